package sortedfile

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const readBufferSize = 64 * 1024

// Stats counts the I/O a LineCursor performed against its stream.
type Stats struct {
	Seeks     int
	Lines     int
	BytesRead int64
}

// LineCursor reads whole lines from a seekable stream at arbitrary byte offsets.
// Positions already inside the read buffer are reached without touching the
// underlying stream.
type LineCursor struct {
	rs    io.ReadSeeker
	br    *bufio.Reader
	pos   int64
	size  int64
	stats Stats
	long  []byte
}

func NewLineCursor(rs io.ReadSeeker) (*LineCursor, error) {
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("failed to determine stream size: %w", err)
	}

	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("failed to rewind stream: %w", err)
	}

	return &LineCursor{
		rs:   rs,
		br:   bufio.NewReaderSize(rs, readBufferSize),
		size: size,
	}, nil
}

func (c *LineCursor) Size() int64 {
	return c.size
}

func (c *LineCursor) Stats() Stats {
	return c.stats
}

// ReadLineAt reads the line that starts at off, including its trailing newline,
// and returns the offset just past it. At end of stream it returns an empty line
// and end == off. The returned slice is only valid until the next call.
//
// ReadLineAt does not realign: if off is not a line boundary the result is the
// tail of the line containing off. Use Align first when that matters.
func (c *LineCursor) ReadLineAt(off int64) ([]byte, int64, error) {
	if off >= c.size {
		return nil, c.size, nil
	}

	if err := c.seek(off); err != nil {
		return nil, off, err
	}

	line, err := c.br.ReadSlice('\n')
	if errors.Is(err, bufio.ErrBufferFull) {
		c.long = append(c.long[:0], line...)
		for errors.Is(err, bufio.ErrBufferFull) {
			line, err = c.br.ReadSlice('\n')
			c.long = append(c.long, line...)
		}
		line = c.long
	}
	if err != nil && err != io.EOF {
		return nil, off, fmt.Errorf("failed to read line at offset %d: %w", off, err)
	}

	c.pos += int64(len(line))
	c.stats.Lines++
	c.stats.BytesRead += int64(len(line))

	return line, c.pos, nil
}

// Align returns the offset of the first line starting at or after off.
// The result is c.Size() when no line starts there.
func (c *LineCursor) Align(off int64) (int64, error) {
	if off <= 0 {
		return 0, nil
	}
	if off >= c.size {
		return c.size, nil
	}

	// Reading from off-1 consumes the fragment, or just the newline when off
	// is already a boundary.
	_, end, err := c.ReadLineAt(off - 1)
	if err != nil {
		return off, err
	}

	return end, nil
}

func (c *LineCursor) seek(off int64) error {
	if off == c.pos {
		return nil
	}

	if off > c.pos && off-c.pos <= int64(c.br.Buffered()) {
		n, err := c.br.Discard(int(off - c.pos))
		c.pos += int64(n)
		if err != nil {
			return fmt.Errorf("failed to skip to offset %d: %w", off, err)
		}
		return nil
	}

	if _, err := c.rs.Seek(off, io.SeekStart); err != nil {
		return fmt.Errorf("failed to seek to offset %d: %w", off, err)
	}

	c.br.Reset(c.rs)
	c.pos = off
	c.stats.Seeks++

	return nil
}

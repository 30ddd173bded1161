package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/gamma-omg/pwnaudit/accounts"
)

var header = []string{"RID", "User", "userAccountControl", "Pwned"}

// Writer records pwned accounts as tab separated rows.
type Writer struct {
	w     *csv.Writer
	rows  int
	close func() error
}

func NewWriter(w io.Writer) (*Writer, error) {
	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(header); err != nil {
		return nil, fmt.Errorf("failed to write report header: %w", err)
	}

	return &Writer{w: cw, close: func() error { return nil }}, nil
}

func Create(path string) (*Writer, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create report file: %w", err)
	}

	w, err := NewWriter(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	w.close = f.Close

	return w, nil
}

func (w *Writer) Write(a accounts.Account, count uint64) error {
	err := w.w.Write([]string{
		strconv.FormatUint(a.RID, 10),
		a.Username,
		strconv.FormatUint(uint64(a.UAC), 10),
		strconv.FormatUint(count, 10),
	})
	if err != nil {
		return fmt.Errorf("failed to write report row for %s: %w", a.Username, err)
	}

	w.rows++
	return nil
}

func (w *Writer) Rows() int {
	return w.rows
}

// Close flushes buffered rows and closes the underlying file, if any.
func (w *Writer) Close() error {
	w.w.Flush()
	if err := w.w.Error(); err != nil {
		w.close()
		return fmt.Errorf("failed to flush report: %w", err)
	}

	return w.close()
}

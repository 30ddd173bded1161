package sortedfile

import "fmt"

// BinarySearch looks up hash with O(log n) seeks and keeps no state between
// calls, so queries may arrive in any order. It shares the cursor with nothing
// else; callers serialize access.
func BinarySearch(c *LineCursor, hash string) (Result, error) {
	target := []byte(hash)

	// lo and hi are line boundaries: entries before lo sort below target and
	// entries from hi on sort above it.
	lo, hi := int64(0), c.Size()
	for lo < hi {
		mid, err := c.Align(lo + (hi-lo)/2)
		if err != nil {
			return NotFound, err
		}
		if mid >= hi {
			res, _, err := scanRange(c, target, lo, hi)
			return res, err
		}

		line, end, err := c.ReadLineAt(mid)
		if err != nil {
			return NotFound, err
		}

		ord, count, err := Probe(line, target)
		if err != nil {
			return NotFound, fmt.Errorf("offset %d: %w", mid, err)
		}

		switch ord {
		case Equal:
			return Found(count), nil
		case Less:
			lo = end
		case Greater:
			hi = mid
		}
	}

	return NotFound, nil
}

// scanRange walks the lines in [from, to) and reports the offset of the line
// it stopped on, or to when it ran through the whole range.
func scanRange(c *LineCursor, target []byte, from, to int64) (Result, int64, error) {
	for off := from; off < to; {
		line, end, err := c.ReadLineAt(off)
		if err != nil {
			return NotFound, off, err
		}
		if end == off {
			break
		}

		ord, count, err := Probe(line, target)
		if err != nil {
			return NotFound, off, fmt.Errorf("offset %d: %w", off, err)
		}

		switch ord {
		case Equal:
			return Found(count), off, nil
		case Greater:
			return NotFound, off, nil
		}

		off = end
	}

	return NotFound, to, nil
}

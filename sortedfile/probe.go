package sortedfile

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
)

var (
	// ErrMalformedLine is returned when a reference line is not HASH:COUNT.
	ErrMalformedLine = errors.New("malformed reference line")

	// ErrOrderingViolation is returned when a query sorts below one already searched.
	ErrOrderingViolation = errors.New("query out of order")
)

type Order int

const (
	Less Order = iota - 1
	Equal
	Greater
)

func (o Order) String() string {
	switch o {
	case Less:
		return "less"
	case Equal:
		return "equal"
	default:
		return "greater"
	}
}

// ParseLine splits a reference line into its hash and count fields.
func ParseLine(line []byte) (key []byte, value []byte, err error) {
	line = bytes.TrimRight(line, " \t\r\n")

	i := bytes.IndexByte(line, ':')
	if i < 0 {
		return nil, nil, fmt.Errorf("%w: no separator in %q", ErrMalformedLine, line)
	}

	return line[:i], line[i+1:], nil
}

// Probe orders the key of line against target. The count is parsed only on Equal.
func Probe(line []byte, target []byte) (Order, uint64, error) {
	key, value, err := ParseLine(line)
	if err != nil {
		return Greater, 0, err
	}

	ord := Order(bytes.Compare(key, target))
	if ord != Equal {
		return ord, 0, nil
	}

	count, err := strconv.ParseUint(string(value), 10, 64)
	if err != nil {
		return Equal, 0, fmt.Errorf("%w: bad count in %q", ErrMalformedLine, line)
	}

	return Equal, count, nil
}

package accounts

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// UACAccountDisable is the ACCOUNTDISABLE bit of userAccountControl.
const UACAccountDisable = 0x0002

type Account struct {
	RID          uint64
	Username     string
	PasswordHash string
	UAC          uint32
}

func (a Account) Active() bool {
	return a.UAC&UACAccountDisable == 0
}

// Batch holds the active accounts of an export sorted by password hash.
type Batch struct {
	Total  int
	Active []Account
}

func (b *Batch) Hashes() []string {
	hashes := make([]string, 0, len(b.Active))
	for _, a := range b.Active {
		hashes = append(hashes, a.PasswordHash)
	}
	return hashes
}

// ReadFile loads an account export, transparently decompressing .gz files.
func ReadFile(path string) (*Batch, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		gr, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("failed to open gzip stream: %w", err)
		}
		defer gr.Close()
		r = gr
	}

	return Read(r)
}

// Read parses whitespace separated "RID USERNAME HASH UAC" lines.
func Read(r io.Reader) (*Batch, error) {
	b := &Batch{}

	scanner := bufio.NewScanner(r)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		a, err := parseAccount(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNum, err)
		}

		b.Total++
		if a.Active() {
			b.Active = append(b.Active, a)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read accounts: %w", err)
	}

	slices.SortStableFunc(b.Active, func(x, y Account) int {
		return strings.Compare(x.PasswordHash, y.PasswordHash)
	})

	return b, nil
}

func parseAccount(fields []string) (Account, error) {
	if len(fields) < 4 {
		return Account{}, fmt.Errorf("expected 4 fields, got %d", len(fields))
	}

	rid, err := strconv.ParseUint(fields[0], 10, 64)
	if err != nil {
		return Account{}, fmt.Errorf("failed to parse RID %q: %w", fields[0], err)
	}

	uac, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Account{}, fmt.Errorf("failed to parse userAccountControl %q: %w", fields[3], err)
	}

	return Account{
		RID:          rid,
		Username:     fields[1],
		PasswordHash: strings.ToUpper(fields[2]),
		UAC:          uint32(uac),
	}, nil
}

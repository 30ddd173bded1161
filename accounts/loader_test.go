package accounts

import (
	"compress/gzip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const export = `500 Administrator 8846f7eaee8fb117ad06bdd830b7586c 66048
501 Guest 31d6cfe0d16ae931b73c59d7e0c089c0 66050

1104 alice 8846F7EAEE8FB117AD06BDD830B7586C 512
1105 bob 0CB6948805F797BF2A82807973B89537 512
1106 carol AAD3B435B51404EEAAD3B435B51404EE 514
`

func Test_Read(t *testing.T) {
	b, err := Read(strings.NewReader(export))
	require.NoError(t, err)

	assert.Equal(t, 5, b.Total)
	require.Len(t, b.Active, 3)

	assert.Equal(t, Account{RID: 1105, Username: "bob", PasswordHash: "0CB6948805F797BF2A82807973B89537", UAC: 512}, b.Active[0])
	assert.Equal(t, "Administrator", b.Active[1].Username)
	assert.Equal(t, "alice", b.Active[2].Username)
	assert.Equal(t, []string{
		"0CB6948805F797BF2A82807973B89537",
		"8846F7EAEE8FB117AD06BDD830B7586C",
		"8846F7EAEE8FB117AD06BDD830B7586C",
	}, b.Hashes())
}

func Test_Read_Errors(t *testing.T) {
	var cases = []struct {
		name  string
		input string
		err   string
	}{
		{name: "short", input: "500 Administrator 66048\n", err: "line 1: expected 4 fields"},
		{name: "rid", input: "\nabc Administrator AAAA 66048\n", err: "line 2: failed to parse RID"},
		{name: "uac", input: "500 Administrator AAAA disabled\n", err: "line 1: failed to parse userAccountControl"},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Read(strings.NewReader(c.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.err)
		})
	}
}

func Test_Account_Active(t *testing.T) {
	assert.True(t, Account{UAC: 512}.Active())
	assert.True(t, Account{UAC: 66048}.Active())
	assert.False(t, Account{UAC: 514}.Active())
	assert.False(t, Account{UAC: 66050}.Active())
}

func Test_ReadFile(t *testing.T) {
	tmp := t.TempDir()

	plain := filepath.Join(tmp, "hash.csv")
	require.NoError(t, os.WriteFile(plain, []byte(export), 0o644))

	b, err := ReadFile(plain)
	require.NoError(t, err)
	assert.Len(t, b.Active, 3)

	gz := filepath.Join(tmp, "hash.csv.gz")
	f, err := os.Create(gz)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(export))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	b, err = ReadFile(gz)
	require.NoError(t, err)
	assert.Equal(t, 5, b.Total)
	assert.Len(t, b.Active, 3)

	_, err = ReadFile(filepath.Join(tmp, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

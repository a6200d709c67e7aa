package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rdr(s string) *bufio.Reader {
	return bufio.NewReader(strings.NewReader(s))
}

// stubPasswords makes readPassword return answers in order.
func stubPasswords(t *testing.T, answers ...string) {
	t.Helper()
	old := readPassword
	t.Cleanup(func() { readPassword = old })

	i := 0
	readPassword = func(int) ([]byte, error) {
		if i >= len(answers) {
			return nil, errors.New("no more input")
		}
		i++
		return []byte(answers[i-1]), nil
	}
}

func TestGetSimpleText(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("hello world\n"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
	assert.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	var out bytes.Buffer
	got, err := GetSimpleText(rdr("lastline"), "Name?", &out)
	require.NoError(t, err)
	assert.Equal(t, "lastline", got)

	_, err = GetSimpleText(rdr(""), "Name?", &out)
	assert.Error(t, err)
}

func TestGetTextOrDefault(t *testing.T) {
	var out bytes.Buffer
	got, err := GetTextOrDefault(rdr("\n"), "Username", "admin", &out)
	require.NoError(t, err)
	assert.Equal(t, "admin", got)
	assert.Contains(t, out.String(), "Username [admin]")

	got, err = GetTextOrDefault(rdr("root\n"), "Username", "admin", &out)
	require.NoError(t, err)
	assert.Equal(t, "root", got)
}

func TestGetPassword_Error(t *testing.T) {
	stubPasswords(t)
	var out bytes.Buffer
	_, err := GetPassword(&out, "Password: ")
	assert.Error(t, err)
}

func TestGetNewPassword(t *testing.T) {
	var out bytes.Buffer

	stubPasswords(t, "pw", "pw")
	pw, err := GetNewPassword(&out)
	require.NoError(t, err)
	assert.Equal(t, "pw", string(pw))

	stubPasswords(t, "pw", "other")
	_, err = GetNewPassword(&out)
	assert.ErrorIs(t, err, errPasswordMismatch)

	stubPasswords(t, "", "")
	_, err = GetNewPassword(&out)
	assert.Error(t, err)
}

package common

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// GenerateNumericCode returns a string of length random decimal digits.
// Leading zeros are kept.
func GenerateNumericCode(length int) (string, error) {
	var sb strings.Builder
	sb.Grow(length)
	ten := big.NewInt(10)
	for i := 0; i < length; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", err
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

// WipeByteArray zeroes b in place. Nil is allowed.
func WipeByteArray(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

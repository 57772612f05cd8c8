package utils

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"math/big"
	"strconv"
	"strings"
)

var ErrInvalidCodeLength = errors.New("invalid code length")

// GenerateNumericCode draws uniformly from [10^(digits-1), 10^digits) with crypto/rand,
// so a 7 digit code lies in 1,000,000..9,999,999.
func GenerateNumericCode(digits int) (string, error) {
	if digits < 1 || digits > 18 {
		return "", ErrInvalidCodeLength
	}
	low := pow10(digits - 1)
	span := pow10(digits) - low
	n, err := rand.Int(rand.Reader, big.NewInt(span))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(low+n.Int64(), 10), nil
}

// GenerateHexCode renders size random bytes as uppercase hex (2*size characters).
func GenerateHexCode(size int) (string, error) {
	if size < 1 {
		return "", ErrInvalidCodeLength
	}
	buffer := make([]byte, size)
	if _, err := rand.Read(buffer); err != nil {
		return "", err
	}
	return strings.ToUpper(hex.EncodeToString(buffer)), nil
}

func pow10(n int) int64 {
	result := int64(1)
	for i := 0; i < n; i++ {
		result *= 10
	}
	return result
}

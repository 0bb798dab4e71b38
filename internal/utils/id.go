package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// GenerateUserID returns "DSA" + 7 upper-case base36 chars (10 chars total).
func GenerateUserID() (string, error) {
	const suffixLen = 7
	max := big.NewInt(0).Exp(big.NewInt(36), big.NewInt(suffixLen), nil)
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		return "", err
	}
	digits := make([]byte, suffixLen)
	for i := suffixLen - 1; i >= 0; i-- {
		rem := new(big.Int)
		n.DivMod(n, big.NewInt(36), rem)
		digits[i] = base36Alphabet[int(rem.Int64())]
	}
	return "DSA" + strings.ToUpper(string(digits)), nil
}

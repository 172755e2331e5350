package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	referenceAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// ReferenceLength is the length of generated reference numbers.
	ReferenceLength = 10
)

// ReferenceGenerator produces candidate ticket reference numbers. Uniqueness
// is checked by the caller.
type ReferenceGenerator interface {
	Generate() (string, error)
}

// RandomReferenceGenerator draws uppercase alphanumeric tokens from crypto/rand.
type RandomReferenceGenerator struct {
	Length int
}

// NewReferenceGenerator returns a generator for ReferenceLength tokens.
func NewReferenceGenerator() *RandomReferenceGenerator {
	return &RandomReferenceGenerator{Length: ReferenceLength}
}

// Generate returns a fresh random token.
func (g *RandomReferenceGenerator) Generate() (string, error) {
	length := g.Length
	if length <= 0 {
		length = ReferenceLength
	}

	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(referenceAlphabet)))
	for i := range result {
		n, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", fmt.Errorf("generate reference number: %w", err)
		}
		result[i] = referenceAlphabet[n.Int64()]
	}
	return string(result), nil
}

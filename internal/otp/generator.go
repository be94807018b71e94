package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

const (
	// Numeric draws digits only.
	Numeric = "0123456789"
	// Alphanumeric draws digits and ASCII letters of both cases.
	Alphanumeric = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

// Generator draws fixed-length codes from an alphabet using its own
// randomness source.
type Generator struct {
	alphabet string
	length   int
	src      io.Reader
}

// NewGenerator returns a generator. A nil src uses crypto/rand.
func NewGenerator(length int, alphabet string, src io.Reader) *Generator {
	if src == nil {
		src = rand.Reader
	}
	return &Generator{alphabet: alphabet, length: length, src: src}
}

// Generate returns a new code.
func (g *Generator) Generate() (string, error) {
	max := big.NewInt(int64(len(g.alphabet)))
	buf := make([]byte, g.length)
	for i := range buf {
		n, err := rand.Int(g.src, max)
		if err != nil {
			return "", fmt.Errorf("draw otp character: %w", err)
		}
		buf[i] = g.alphabet[n.Int64()]
	}
	return string(buf), nil
}

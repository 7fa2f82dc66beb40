// Package token generates short random identifiers for links.
package token

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"

	"github.com/jaevor/go-nanoid"
)

// Alphabet is the set of symbols a token is drawn from.
const Alphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultLength is the token length used when none is configured.
const DefaultLength = 6

// mask keeps the low 6 bits of a random byte; values >= len(Alphabet) are rejected.
const mask = 0x3f

var errEmptySource = errors.New("random source returned no data")

// Generator produces random tokens.
type Generator interface {
	Generate() (string, error)
}

// ReaderGenerator draws tokens from a random byte source.
// The zero value is not usable; construct with NewGenerator.
type ReaderGenerator struct {
	source io.Reader
	length int
}

// NewGenerator creates a generator reading from source. A nil source means crypto/rand.
func NewGenerator(source io.Reader, length int) *ReaderGenerator {
	if source == nil {
		source = rand.Reader
	}

	if length <= 0 {
		length = DefaultLength
	}

	return &ReaderGenerator{source: source, length: length}
}

// Length returns the number of symbols in each generated token.
func (g *ReaderGenerator) Length() int {
	return g.length
}

// Generate returns a token of exactly Length symbols, each chosen uniformly
// from Alphabet by rejection sampling.
func (g *ReaderGenerator) Generate() (string, error) {
	out := make([]byte, 0, g.length)
	buf := make([]byte, g.length)

	for len(out) < g.length {
		n, err := io.ReadFull(g.source, buf[:g.length-len(out)])
		if n == 0 && err != nil {
			return "", fmt.Errorf("read random source: %w", err)
		}

		for _, b := range buf[:n] {
			if idx := b & mask; int(idx) < len(Alphabet) {
				out = append(out, Alphabet[idx])
			}
		}

		if err != nil && len(out) < g.length {
			return "", fmt.Errorf("read random source: %w", errEmptySource)
		}
	}

	return string(out), nil
}

// NanoIDGenerator adapts a go-nanoid generator to Generator.
type NanoIDGenerator struct {
	next   func() string
	length int
}

// NewNanoID creates a crypto-backed nanoid generator over Alphabet.
func NewNanoID(length int) (*NanoIDGenerator, error) {
	if length <= 0 {
		length = DefaultLength
	}

	next, err := nanoid.CustomASCII(Alphabet, length)
	if err != nil {
		return nil, fmt.Errorf("create nanoid generator: %w", err)
	}

	return &NanoIDGenerator{next: next, length: length}, nil
}

// Length returns the number of symbols in each generated token.
func (g *NanoIDGenerator) Length() int {
	return g.length
}

func (g *NanoIDGenerator) Generate() (string, error) {
	return g.next(), nil
}

// Func adapts a plain function to Generator.
type Func func() (string, error)

func (f Func) Generate() (string, error) {
	return f()
}

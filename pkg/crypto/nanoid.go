package crypto

import (
	"crypto/rand"
	"errors"
	"math"
)

const (
	defaultAlphabet string = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"
	defaultSize     int    = 22 // 22 * 6 = 132 bits (uuid is 128 bits) of entropy
	maxAlphabetSize int    = 255
	minAlphabetSize int    = 8
)

var (
	ErrAlphabetTooLong  = errors.New("alphabet must contain no more than 255 characters")
	ErrAlphabetTooShort = errors.New("alphabet must contain at least 8 characters")
	ErrAlphabetNotASCII = errors.New("alphabet must contain only ASCII characters")
)

// NanoIDGenerator produces fixed-size random identifiers over an ASCII alphabet.
type NanoIDGenerator struct {
	alphabet string
	mask     int
	size     int
}

func getMask(alphabetLen int) int {
	for i := 1; i <= 8; i++ {
		mask := (2 << uint(i)) - 1
		if mask > alphabetLen-1 {
			return mask
		}
	}
	return maxAlphabetSize // Max mask for 8 bits
}

// NewNanoID builds a generator. An empty alphabet or non-positive size selects
// the defaults.
func NewNanoID(alphabet string, size int) (*NanoIDGenerator, error) {
	if alphabet == "" {
		alphabet = defaultAlphabet
	}
	if size <= 0 {
		size = defaultSize
	}

	// Generate() indexes by byte position
	for i := 0; i < len(alphabet); i++ {
		if alphabet[i] > 127 {
			return nil, ErrAlphabetNotASCII
		}
	}

	if len(alphabet) > maxAlphabetSize {
		return nil, ErrAlphabetTooLong
	}
	if len(alphabet) < minAlphabetSize {
		return nil, ErrAlphabetTooShort
	}

	return &NanoIDGenerator{
		alphabet: alphabet,
		mask:     getMask(len(alphabet)),
		size:     size,
	}, nil
}

func (n *NanoIDGenerator) Generate() (string, error) {
	alphabetLen := len(n.alphabet)
	step := int(math.Ceil(1.6 * float64(n.mask*n.size) / float64(alphabetLen)))

	id := make([]byte, n.size)
	buffer := make([]byte, step)

	for position := 0; position < n.size; {
		if _, err := rand.Read(buffer); err != nil {
			return "", err
		}

		for i := 0; i < step && position < n.size; i++ {
			index := buffer[i] & byte(n.mask)

			// Discard indexes past the alphabet to keep the distribution uniform
			if int(index) < alphabetLen {
				id[position] = n.alphabet[index]
				position++
			}
		}
	}

	return string(id), nil
}

package domain

import (
	"errors"
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// ErrHashWidthMismatch is returned when two hashes of different bit widths
// are compared.
var ErrHashWidthMismatch = errors.New("hash bit widths differ")

// bitsPerWord is the number of bits stored per hash word.
const bitsPerWord = 64

// Hash is a fixed-width perceptual hash bit vector. Two hashes of the same
// width are always comparable by Hamming distance.
type Hash struct {
	// Bits is the total number of significant bits.
	Bits int
	// Words holds the bits packed into 64-bit words, most significant first.
	Words []uint64
}

// NewHash builds a Hash from packed words and a significant bit count.
func NewHash(words []uint64, bitCount int) Hash {
	w := make([]uint64, len(words))
	copy(w, words)
	return Hash{Bits: bitCount, Words: w}
}

// Distance returns the Hamming distance to other: the count of differing
// bits. It is symmetric and zero for identical hashes.
func (h Hash) Distance(other Hash) (int, error) {
	if h.Bits != other.Bits || len(h.Words) != len(other.Words) {
		return 0, fmt.Errorf("%w: %d vs %d bits", ErrHashWidthMismatch, h.Bits, other.Bits)
	}

	distance := 0
	for i := range h.Words {
		distance += bits.OnesCount64(h.Words[i] ^ other.Words[i])
	}

	return distance, nil
}

// IsZero reports whether the hash is unset.
func (h Hash) IsZero() bool {
	return h.Bits == 0 && len(h.Words) == 0
}

// String encodes the hash as "<bits>:<hex words>". The encoding
// round-trips through ParseHash.
func (h Hash) String() string {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(h.Bits))
	sb.WriteByte(':')
	for _, w := range h.Words {
		fmt.Fprintf(&sb, "%016x", w)
	}
	return sb.String()
}

// ParseHash decodes a hash from its String encoding.
func ParseHash(s string) (Hash, error) {
	bitsPart, hexPart, found := strings.Cut(s, ":")
	if !found {
		return Hash{}, fmt.Errorf("malformed hash %q: missing separator", s)
	}

	bitCount, err := strconv.Atoi(bitsPart)
	if err != nil || bitCount <= 0 {
		return Hash{}, fmt.Errorf("malformed hash %q: bad bit count", s)
	}

	const hexDigitsPerWord = bitsPerWord / 4
	if len(hexPart)%hexDigitsPerWord != 0 {
		return Hash{}, fmt.Errorf("malformed hash %q: truncated words", s)
	}

	wordCount := len(hexPart) / hexDigitsPerWord
	if wordCount*bitsPerWord < bitCount {
		return Hash{}, fmt.Errorf("malformed hash %q: %d words cannot hold %d bits", s, wordCount, bitCount)
	}

	words := make([]uint64, 0, wordCount)
	for i := 0; i < wordCount; i++ {
		chunk := hexPart[i*hexDigitsPerWord : (i+1)*hexDigitsPerWord]
		w, parseErr := strconv.ParseUint(chunk, 16, 64)
		if parseErr != nil {
			return Hash{}, fmt.Errorf("malformed hash %q: %w", s, parseErr)
		}
		words = append(words, w)
	}

	return Hash{Bits: bitCount, Words: words}, nil
}

package fingerprint

import (
	"errors"
	"fmt"
	"math/bits"
	"strings"
)

var (
	// ErrInvalidImage is returned when an image is empty or cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")
	// ErrLengthMismatch is returned when two fingerprints of different lengths are compared.
	ErrLengthMismatch = errors.New("fingerprint length mismatch")
)

// Fingerprint is a fixed-length sequence of bits stored MSB-first in 64-bit words.
// Bit i corresponds to cell i of the hash grid in row-major order.
// A Fingerprint is immutable once built; the zero value has length 0.
type Fingerprint struct {
	words []uint64
	n     int
}

func newFingerprint(n int) Fingerprint {
	return Fingerprint{words: make([]uint64, (n+63)/64), n: n}
}

func (f *Fingerprint) set(i int) {
	f.words[i/64] |= 1 << (63 - uint(i%64))
}

// FromBits builds a fingerprint from individual bit values.
func FromBits(values []bool) Fingerprint {
	f := newFingerprint(len(values))
	for i, v := range values {
		if v {
			f.set(i)
		}
	}
	return f
}

// Parse builds a fingerprint from its bitstring form ("0110...").
func Parse(s string) (Fingerprint, error) {
	f := newFingerprint(len(s))
	for i := range len(s) {
		switch s[i] {
		case '1':
			f.set(i)
		case '0':
		default:
			return Fingerprint{}, fmt.Errorf("invalid bit %q at position %d", s[i], i)
		}
	}
	return f, nil
}

// Len returns the number of bits.
func (f Fingerprint) Len() int {
	return f.n
}

// Bit reports whether bit i is set. It panics if i is out of range.
func (f Fingerprint) Bit(i int) bool {
	if i < 0 || i >= f.n {
		panic(fmt.Sprintf("fingerprint: bit index %d out of range [0,%d)", i, f.n))
	}
	return f.words[i/64]&(1<<(63-uint(i%64))) != 0
}

// OnesCount returns the number of set bits.
func (f Fingerprint) OnesCount() int {
	count := 0
	for _, w := range f.words {
		count += bits.OnesCount64(w)
	}
	return count
}

// Equal reports whether both fingerprints have the same length and bits.
func (f Fingerprint) Equal(other Fingerprint) bool {
	if f.n != other.n {
		return false
	}
	for i := range f.words {
		if f.words[i] != other.words[i] {
			return false
		}
	}
	return true
}

// String returns the bitstring form, one '0' or '1' per bit.
func (f Fingerprint) String() string {
	var sb strings.Builder
	sb.Grow(f.n)
	for i := range f.n {
		if f.Bit(i) {
			sb.WriteByte('1')
		} else {
			sb.WriteByte('0')
		}
	}
	return sb.String()
}

// Hex returns the fingerprint as a hex string, trailing pad bits are zero.
func (f Fingerprint) Hex() string {
	var sb strings.Builder
	digits := (f.n + 3) / 4
	for i, w := range f.words {
		remaining := digits - i*16
		if remaining <= 0 {
			break
		}
		s := fmt.Sprintf("%016x", w)
		if remaining < 16 {
			s = s[:remaining]
		}
		sb.WriteString(s)
	}
	return sb.String()
}

// MarshalText implements encoding.TextMarshaler using the bitstring form.
func (f Fingerprint) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Fingerprint) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Distance returns the Hamming distance between two fingerprints.
func Distance(a, b Fingerprint) (int, error) {
	if a.n != b.n {
		return 0, fmt.Errorf("%w: %d vs %d bits", ErrLengthMismatch, a.n, b.n)
	}
	distance := 0
	for i := range a.words {
		distance += bits.OnesCount64(a.words[i] ^ b.words[i])
	}
	return distance, nil
}

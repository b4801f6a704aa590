// Package seq provides alphabets, one-hot encoding, and sequence surgery
// for biological sequences.
package seq

// Alphabet is an ordered set of sequence characters. The row order of every
// one-hot encoding and PWM in the library follows the alphabet order.
type Alphabet []byte

// Built-in alphabets.
var (
	DNA     = Alphabet("ACGT")
	RNA     = Alphabet("ACGU")
	Protein = Alphabet("ACDEFGHIKLMNPQRSTVWY")
)

// DefaultIgnore is the character treated as "unknown": it encodes to an
// all-zero column and decodes from one.
const DefaultIgnore = 'N'

// Len returns the number of characters in the alphabet.
func (a Alphabet) Len() int {
	return len(a)
}

// String returns the alphabet as a string.
func (a Alphabet) String() string {
	return string(a)
}

// Index returns the row index of c, or -1 when c is not in the alphabet.
// Lookup is case-insensitive.
func (a Alphabet) Index(c byte) int {
	if c >= 'a' && c <= 'z' {
		c -= 'a' - 'A'
	}
	for i, ac := range a {
		if ac == c {
			return i
		}
	}
	return -1
}

// Complementable reports whether the alphabet is its own reverse complement
// (row i pairs with row Len()-1-i), as ACGT and ACGU are.
func (a Alphabet) Complementable() bool {
	switch string(a) {
	case string(DNA), string(RNA):
		return true
	default:
		return false
	}
}

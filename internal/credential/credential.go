// Package credential generates human-readable app passwords.
package credential

import (
	"crypto/rand"
	"errors"
	"io"
	"math/big"
	"strings"
)

const (
	// Ambiguous lists the characters left out of HumanReadable.
	Ambiguous = "0O1lI"

	// HumanReadable is the alphabet app passwords are drawn from.
	HumanReadable = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// GroupSize is the number of characters between dashes.
	GroupSize = 5
	// Groups is the number of dash-separated groups.
	Groups = 5
	// Length is the formatted length including separators.
	Length = Groups*GroupSize + Groups - 1
)

// ErrEmptyAlphabet is returned when asked to draw from an empty alphabet.
var ErrEmptyAlphabet = errors.New("credential: empty alphabet")

// Generator produces app passwords from a cryptographically secure source.
type Generator struct {
	reader io.Reader
}

// NewGenerator returns a Generator reading from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{reader: rand.Reader}
}

// NewGeneratorWithReader returns a Generator reading from r.
// Tests use it to inject failing or deterministic sources.
func NewGeneratorWithReader(r io.Reader) *Generator {
	return &Generator{reader: r}
}

// Generate returns a secret formatted as XXXXX-XXXXX-XXXXX-XXXXX-XXXXX.
func (g *Generator) Generate() (string, error) {
	raw, err := g.GenerateString(HumanReadable, Groups*GroupSize)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.Grow(Length)
	for i := 0; i < Groups; i++ {
		if i > 0 {
			b.WriteByte('-')
		}
		b.WriteString(raw[i*GroupSize : (i+1)*GroupSize])
	}
	return b.String(), nil
}

// GenerateString returns length characters drawn uniformly from alphabet.
func (g *Generator) GenerateString(alphabet string, length int) (string, error) {
	if alphabet == "" {
		return "", ErrEmptyAlphabet
	}
	if length <= 0 {
		return "", nil
	}

	size := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(g.reader, size)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

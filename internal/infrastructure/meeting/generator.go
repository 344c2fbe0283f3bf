// Package meeting issues opaque meeting links for confirmed sessions.
package meeting

import (
	"crypto/rand"
	"fmt"
	"io"
	"strings"
)

const (
	alphabet    = "abcdefghijklmnopqrstuvwxyz0123456789"
	groupLength = 4
	groups      = 3
)

// Generator builds links of the form <base>/xxxx-xxxx-xxxx. Codes are drawn
// from crypto/rand with rejection sampling so every character is uniform.
type Generator struct {
	baseURL string
	random  io.Reader
}

// NewGenerator returns a Generator rooted at baseURL.
func NewGenerator(baseURL string) *Generator {
	return &Generator{
		baseURL: strings.TrimRight(baseURL, "/"),
		random:  rand.Reader,
	}
}

// NewLink implements mentorship.LinkGenerator.
func (g *Generator) NewLink() (string, error) {
	code, err := g.code()
	if err != nil {
		return "", fmt.Errorf("failed to generate meeting code: %w", err)
	}
	return g.baseURL + "/" + code, nil
}

func (g *Generator) code() (string, error) {
	// 252 is the largest multiple of 36 below 256.
	const limit = 252

	var sb strings.Builder
	sb.Grow(groups*groupLength + groups - 1)

	buf := make([]byte, 32)
	written := 0
	for written < groups*groupLength {
		if _, err := io.ReadFull(g.random, buf); err != nil {
			return "", err
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			if written > 0 && written%groupLength == 0 {
				sb.WriteByte('-')
			}
			sb.WriteByte(alphabet[int(b)%len(alphabet)])
			written++
			if written == groups*groupLength {
				break
			}
		}
	}
	return sb.String(), nil
}

package meeting

import (
	"bytes"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var linkPattern = regexp.MustCompile(`^https://meet\.example\.com/[a-z0-9]{4}-[a-z0-9]{4}-[a-z0-9]{4}$`)

func TestGenerator_Format(t *testing.T) {
	g := NewGenerator("https://meet.example.com/")

	link, err := g.NewLink()
	require.NoError(t, err)
	assert.Regexp(t, linkPattern, link)
}

func TestGenerator_Unique(t *testing.T) {
	g := NewGenerator("https://meet.example.com")
	seen := make(map[string]struct{}, 1000)

	for i := 0; i < 1000; i++ {
		link, err := g.NewLink()
		require.NoError(t, err)
		_, dup := seen[link]
		require.False(t, dup, "duplicate link %s", link)
		seen[link] = struct{}{}
	}
}

func TestGenerator_RejectsBiasedBytes(t *testing.T) {
	// 0xFF bytes are above the sampling limit and must be skipped.
	src := bytes.Repeat([]byte{0xFF}, 32)
	src = append(src, bytes.Repeat([]byte{0, 1, 2, 3, 35, 36}, 6)...)

	g := &Generator{baseURL: "https://meet.example.com", random: bytes.NewReader(src)}

	link, err := g.NewLink()
	require.NoError(t, err)
	assert.Equal(t, "https://meet.example.com/abcd-9aab-cd9a", link)
}

func TestGenerator_ReaderFailure(t *testing.T) {
	g := &Generator{baseURL: "https://meet.example.com", random: bytes.NewReader(nil)}

	_, err := g.NewLink()
	assert.Error(t, err)
}

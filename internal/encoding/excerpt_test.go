package encoding

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcerpt(t *testing.T) {
	cases := map[string]string{
		"":                            "",
		"# Title only":                "",
		"# Title\n\nFirst *para*.\n":  "First para.",
		"[![ci](b.svg)](x)\n\nProse":  "Prose",
		"<p>html</p>\n\nAfter html":   "After html",
		"Wrapped\nacross lines\n":     "Wrapped across lines",
		"```\ncode\n```\n\nText":      "Text",
		"Use `go test` to run tests.": "Use go test to run tests.",
	}
	for given, expected := range cases {
		assert.Equal(t, expected, Excerpt([]byte(given)), given)
	}
}

func TestExcerptTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Excerpt([]byte(long))
	assert.True(t, strings.HasSuffix(got, "…"))
	assert.LessOrEqual(t, len([]rune(got)), MaxExcerptLength+1)
}

type testMeta struct {
	Title     string    `yaml:"title"`
	Tags      []string  `yaml:"tags"`
	Homepage  *string   `yaml:"homepage"`
	UpdatedAt time.Time `yaml:"updatedAt"`
}

func TestFrontmatter(t *testing.T) {
	updated := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doc, err := MarshalFrontmatter(testMeta{Title: "Hello", Tags: []string{"go"}, UpdatedAt: updated}, "# Body\n")
	require.NoError(t, err)

	s := string(doc)
	assert.True(t, strings.HasPrefix(s, "---\ntitle: Hello\n"))
	assert.Contains(t, s, "homepage: null\n")
	assert.Contains(t, s, "---\n\n# Body\n")

	var meta testMeta
	body, err := UnmarshalFrontmatter(doc, &meta)
	require.NoError(t, err)
	assert.Equal(t, "# Body\n", body)
	assert.Equal(t, "Hello", meta.Title)
	assert.Equal(t, []string{"go"}, meta.Tags)
	assert.Nil(t, meta.Homepage)
	assert.True(t, updated.Equal(meta.UpdatedAt))
}

func TestUnmarshalFrontmatterRequiresHeader(t *testing.T) {
	var meta testMeta
	_, err := UnmarshalFrontmatter([]byte("# no header\n"), &meta)
	assert.ErrorIs(t, err, ErrNoFrontmatter)
}

package encoding

import (
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MaxExcerptLength caps Excerpt, in runes.
const MaxExcerptLength = 280

// Excerpt returns the plain text of the first paragraph of a README that
// holds prose, skipping headings, badges and HTML. Empty if there is none.
func Excerpt(in []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(in))

	var excerpt string
	_ = ast.Walk(root, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading, *ast.HTMLBlock, *ast.FencedCodeBlock, *ast.CodeBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph:
			t := strings.Join(strings.Fields(DecodeTextFromNode(n, in)), " ")
			if t == "" {
				return ast.WalkSkipChildren, nil
			}
			excerpt = t
			return ast.WalkStop, nil
		}
		return ast.WalkContinue, nil
	})
	return truncate(excerpt, MaxExcerptLength)
}

// DecodeTextFromNode extracts the text content of an AST node, leaving out
// image alt text and raw HTML.
func DecodeTextFromNode(node ast.Node, src []byte) string {
	var b strings.Builder
	_ = ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := n.(type) {
		case *ast.Image, *ast.RawHTML:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			b.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return b.String()
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if i := strings.LastIndexByte(cut, ' '); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

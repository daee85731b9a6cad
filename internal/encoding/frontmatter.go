package encoding

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

const frontmatterDelimiter = "---"

// ErrNoFrontmatter is returned when a document does not open with a header block.
var ErrNoFrontmatter = errors.New("document has no frontmatter")

// MarshalFrontmatter renders meta as a YAML header block followed by body.
func MarshalFrontmatter(meta any, body string) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString(frontmatterDelimiter + "\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(meta); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode frontmatter: %w", err)
	}
	buf.WriteString(frontmatterDelimiter + "\n\n")
	buf.WriteString(body)
	if !strings.HasSuffix(body, "\n") {
		buf.WriteByte('\n')
	}
	return buf.Bytes(), nil
}

// UnmarshalFrontmatter decodes the YAML header block of doc into meta and
// returns the body that follows it.
func UnmarshalFrontmatter(doc []byte, meta any) (string, error) {
	s := string(doc)
	if !strings.HasPrefix(s, frontmatterDelimiter+"\n") {
		return "", ErrNoFrontmatter
	}
	rest := s[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter+"\n")
	if end < 0 {
		return "", ErrNoFrontmatter
	}
	if err := yaml.Unmarshal([]byte(rest[:end+1]), meta); err != nil {
		return "", fmt.Errorf("failed to decode frontmatter: %w", err)
	}
	body := rest[end+len(frontmatterDelimiter)+2:]
	return strings.TrimPrefix(body, "\n"), nil
}

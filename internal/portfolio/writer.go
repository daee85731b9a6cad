package portfolio

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"portfoliosync.shikanime.studio/internal/encoding"
)

const (
	IndexFile         = "projects.json"
	ProfileFile       = "profile.json"
	ContributionsFile = "contributions.json"
)

// Writer emits the artifacts read by the site generator: JSON documents in
// the data directory and one markdown page per project in the content
// directory.
type Writer struct {
	fs         afero.Fs
	dataDir    string
	contentDir string
}

// NewWriter returns a Writer emitting into dataDir and contentDir on fs.
func NewWriter(fs afero.Fs, dataDir, contentDir string) *Writer {
	return &Writer{fs: fs, dataDir: dataDir, contentDir: contentDir}
}

func (w *Writer) WriteIndex(idx *Index) error {
	return w.writeJSON(IndexFile, idx)
}

// WriteProfile writes p, or null when p is nil.
func (w *Writer) WriteProfile(p *Profile) error {
	return w.writeJSON(ProfileFile, p)
}

// WriteContributions writes c, or null when c is nil.
func (w *Writer) WriteContributions(c *Contributions) error {
	return w.writeJSON(ContributionsFile, c)
}

// WriteContent recreates the content directory with one <slug>.md page per
// item, the project fields as frontmatter and the README as body.
func (w *Writer) WriteContent(items []*Item) error {
	if err := w.fs.RemoveAll(w.contentDir); err != nil {
		return fmt.Errorf("failed to clear %s: %w", w.contentDir, err)
	}
	if err := w.fs.MkdirAll(w.contentDir, 0o755); err != nil {
		return fmt.Errorf("failed to create %s: %w", w.contentDir, err)
	}
	for _, it := range items {
		doc, err := encoding.MarshalFrontmatter(it.Project, it.Readme)
		if err != nil {
			return fmt.Errorf("failed to render %s: %w", it.Project.Slug, err)
		}
		if err := writeFileAtomic(w.fs, filepath.Join(w.contentDir, it.Project.Slug+".md"), doc); err != nil {
			return err
		}
	}
	return nil
}

func (w *Writer) writeJSON(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return writeFileAtomic(w.fs, filepath.Join(w.dataDir, name), append(data, '\n'))
}

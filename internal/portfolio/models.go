package portfolio

import (
	"encoding/json"
	"time"

	"portfoliosync.shikanime.studio/internal/portfolio/github"
)

// Entry is one repository listed in the catalog.
type Entry struct {
	Owner    string   `yaml:"owner"`
	Name     string   `yaml:"name"`
	URL      string   `yaml:"url,omitempty"`
	Featured bool     `yaml:"featured,omitempty"`
	Tags     []string `yaml:"tags,omitempty"`
}

func (e Entry) String() string { return e.Owner + "/" + e.Name }

// Catalog is the ordered list of repositories to publish, plus the account
// whose profile readme and contribution calendar are published.
type Catalog struct {
	Account  string  `yaml:"account,omitempty"`
	Projects []Entry `yaml:"projects"`
}

// CacheRecord is what is remembered about a repository between runs.
type CacheRecord struct {
	ETag       string          `json:"etag,omitempty"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	Repository json.RawMessage `json:"repository"`
	Topics     []string        `json:"topics"`
	Readme     string          `json:"readme"`
	FetchedAt  time.Time       `json:"fetchedAt"`
}

// Project is the normalized record published for a repository. The slug is
// carried by the content file name, so it is left out of the frontmatter.
type Project struct {
	Slug          string    `json:"slug" yaml:"-"`
	Title         string    `json:"title" yaml:"title"`
	Description   string    `json:"description" yaml:"description"`
	Owner         string    `json:"owner" yaml:"owner"`
	Name          string    `json:"name" yaml:"name"`
	Tags          []string  `json:"tags" yaml:"tags"`
	Stars         int       `json:"stars" yaml:"stars"`
	UpdatedAt     time.Time `json:"updatedAt" yaml:"updatedAt"`
	Homepage      *string   `json:"homepage" yaml:"homepage"`
	URL           string    `json:"url" yaml:"url"`
	DefaultBranch string    `json:"defaultBranch" yaml:"defaultBranch"`
	Featured      bool      `json:"featured" yaml:"featured"`
}

// Index lists every published project and the tags they use.
type Index struct {
	Projects    []Project `json:"projects"`
	Tags        []string  `json:"tags"`
	GeneratedAt time.Time `json:"generatedAt"`
}

type Profile struct {
	Login     string    `json:"login"`
	Readme    string    `json:"readme"`
	FetchedAt time.Time `json:"fetchedAt"`
}

type Contributions struct {
	Login     string                   `json:"login"`
	Total     int                      `json:"total"`
	Days      []github.ContributionDay `json:"days"`
	FetchedAt time.Time                `json:"fetchedAt"`
}

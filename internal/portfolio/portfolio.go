package portfolio

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"portfoliosync.shikanime.studio/internal/config"
	"portfoliosync.shikanime.studio/internal/portfolio/github"
)

// Portfolio ties the GitHub client, the filesystem and the configuration
// together.
type Portfolio struct {
	cfg *config.Config
	fs  afero.Fs
	gh  API
}

// NewForConfig builds a Portfolio on the OS filesystem with a GitHub client
// authenticated by the configured token, if any.
func NewForConfig(cfg *config.Config) (*Portfolio, error) {
	token := cfg.GetGitHubToken()
	gh, err := github.NewClient(
		github.WithToken(token),
		github.WithLimiter(github.NewGitHubLimiter(token != "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub client: %w", err)
	}
	return New(cfg, afero.NewOsFs(), gh), nil
}

// New constructs a Portfolio from its parts.
func New(cfg *config.Config, fs afero.Fs, gh API) *Portfolio {
	return &Portfolio{cfg: cfg, fs: fs, gh: gh}
}

// Catalog loads the configured catalog file.
func (p *Portfolio) Catalog() (*Catalog, error) {
	return LoadCatalog(p.fs, p.cfg.GetCatalogPath())
}

// Syncer returns a Syncer writing into the configured directories.
func (p *Portfolio) Syncer() *Syncer {
	return NewSyncer(
		p.gh,
		NewCache(p.fs, p.cfg.GetCacheDir()),
		NewWriter(p.fs, p.cfg.GetDataDir(), p.cfg.GetContentDir()),
		WithConcurrency(p.cfg.GetConcurrency()),
		WithProfileLogin(p.cfg.GetProfileLogin()),
	)
}

// Sync loads the catalog and runs a full sync.
func (p *Portfolio) Sync(ctx context.Context) (*Summary, error) {
	cat, err := p.Catalog()
	if err != nil {
		return nil, err
	}
	return p.Syncer().Run(ctx, cat)
}

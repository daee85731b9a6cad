package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	gogithub "github.com/google/go-github/v75/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"k8s.io/utils/ptr"

	"portfoliosync.shikanime.studio/internal/encoding"
	"portfoliosync.shikanime.studio/internal/portfolio/github"
)

// ErrFetch is returned when GitHub answered without data and without
// confirming the cached copy.
var ErrFetch = errors.New("no repository data")

// defaultBranch is used when the repository does not report one.
const defaultBranch = "HEAD"

var tracer = otel.Tracer("portfoliosync.shikanime.studio/internal/portfolio")

// API is the part of the GitHub client the sync pipeline relies on.
type API interface {
	Authenticated() bool
	GetRepository(ctx context.Context, owner, repo, etag string) (json.RawMessage, *github.Result, error)
	GetTopics(ctx context.Context, owner, repo string) ([]string, error)
	GetReadme(ctx context.Context, owner, repo string) (string, error)
	GetContributionCalendar(ctx context.Context, login string) (*github.ContributionCalendar, error)
}

// Item is a synced repository: its published record and its README with
// absolute links.
type Item struct {
	Project  Project
	Readme   string
	CacheHit bool
}

// Fetcher resolves catalog entries into Items, going to GitHub only when the
// cached copy is stale.
type Fetcher struct {
	gh    API
	cache *Cache
	now   func() time.Time
}

// NewFetcher returns a Fetcher reading and refreshing records in cache.
func NewFetcher(gh API, cache *Cache) *Fetcher {
	return &Fetcher{gh: gh, cache: cache, now: time.Now}
}

// Fetch syncs one entry. The repository metadata is requested conditionally
// on the cached ETag; a 304 reuses the cached record without further calls.
// Fresh metadata triggers the topics and README requests, whose failures
// degrade to no topics and a placeholder README, and replaces the cached
// record.
func (f *Fetcher) Fetch(ctx context.Context, e Entry) (*Item, error) {
	ctx, span := tracer.Start(ctx, "Fetcher.Fetch", trace.WithAttributes(
		attribute.String("github.owner", e.Owner),
		attribute.String("github.repo", e.Name),
	))
	defer span.End()

	item, err := f.fetch(ctx, e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", item.CacheHit))
	return item, nil
}

func (f *Fetcher) fetch(ctx context.Context, e Entry) (*Item, error) {
	cached, err := f.cache.Get(e.Owner, e.Name)
	if err != nil {
		slog.WarnContext(ctx, "Failed to read cache record", "owner", e.Owner, "repo", e.Name, "error", err)
		cached = nil
	}
	var etag string
	if cached != nil {
		etag = cached.ETag
	}

	raw, res, err := f.gh.GetRepository(ctx, e.Owner, e.Name, etag)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", e, err)
	}

	var rec *CacheRecord
	hit := false
	switch {
	case res.NotModified && cached != nil:
		slog.DebugContext(ctx, "Repository not modified", "owner", e.Owner, "repo", e.Name)
		rec, hit = cached, true
	case hasData(raw):
		rec, err = f.refresh(ctx, e, raw, res.ETag)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to fetch %s: %w", e, ErrFetch)
	}

	p, err := NormalizeProject(e, rec)
	if err != nil {
		return nil, err
	}
	return &Item{
		Project:  p,
		Readme:   encoding.RewriteReadmeURLs(rec.Readme, e.Owner, e.Name, p.DefaultBranch),
		CacheHit: hit,
	}, nil
}

// refresh gathers topics and README for fresh metadata and stores the result.
func (f *Fetcher) refresh(ctx context.Context, e Entry, raw json.RawMessage, etag string) (*CacheRecord, error) {
	var repo gogithub.Repository
	if err := json.Unmarshal(raw, &repo); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", e, err)
	}

	topics, err := f.gh.GetTopics(ctx, e.Owner, e.Name)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch topics", "owner", e.Owner, "repo", e.Name, "error", err)
		topics = []string{}
	}
	readme, err := f.gh.GetReadme(ctx, e.Owner, e.Name)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch readme, using placeholder", "owner", e.Owner, "repo", e.Name, "error", err)
		readme = placeholderReadme(e, &repo)
	}

	rec := &CacheRecord{
		ETag:       etag,
		UpdatedAt:  lastUpdated(&repo),
		Repository: raw,
		Topics:     topics,
		Readme:     readme,
		FetchedAt:  f.now().UTC(),
	}
	if err := f.cache.Put(e.Owner, e.Name, rec); err != nil {
		slog.WarnContext(ctx, "Failed to write cache record", "owner", e.Owner, "repo", e.Name, "error", err)
	}
	return rec, nil
}

// NormalizeProject derives the published record of an entry from its
// cached GitHub data.
func NormalizeProject(e Entry, rec *CacheRecord) (Project, error) {
	var repo gogithub.Repository
	if err := json.Unmarshal(rec.Repository, &repo); err != nil {
		return Project{}, fmt.Errorf("failed to decode %s: %w", e, err)
	}

	var homepage *string
	if h := strings.TrimSpace(ptr.Deref(repo.Homepage, "")); h != "" {
		homepage = ptr.To(h)
	}
	description := strings.TrimSpace(repo.GetDescription())
	if description == "" {
		description = encoding.Excerpt([]byte(rec.Readme))
	}
	title := repo.GetName()
	if title == "" {
		title = e.Name
	}
	url := repo.GetHTMLURL()
	if url == "" {
		url = "https://github.com/" + e.Owner + "/" + e.Name
	}
	branch := repo.GetDefaultBranch()
	if branch == "" {
		branch = defaultBranch
	}
	updated := rec.UpdatedAt
	if updated.IsZero() {
		updated = lastUpdated(&repo)
	}

	return Project{
		Slug:          Slug(e.Owner, e.Name),
		Title:         title,
		Description:   description,
		Owner:         e.Owner,
		Name:          e.Name,
		Tags:          NormalizeTags(rec.Topics, e.Tags),
		Stars:         repo.GetStargazersCount(),
		UpdatedAt:     updated,
		Homepage:      homepage,
		URL:           url,
		DefaultBranch: branch,
		Featured:      e.Featured,
	}, nil
}

// lastUpdated prefers the last push over the last metadata change.
func lastUpdated(repo *gogithub.Repository) time.Time {
	if t := repo.GetPushedAt(); !t.IsZero() {
		return t.UTC()
	}
	return repo.GetUpdatedAt().UTC()
}

func placeholderReadme(e Entry, repo *gogithub.Repository) string {
	title := repo.GetName()
	if title == "" {
		title = e.Name
	}
	readme := "# " + title + "\n"
	if d := strings.TrimSpace(repo.GetDescription()); d != "" {
		readme += "\n" + d + "\n"
	}
	return readme
}

func hasData(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s != "" && s != "null"
}

package portfolio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"portfoliosync.shikanime.studio/internal/encoding"
)

// DefaultConcurrency is the number of entries fetched at once.
const DefaultConcurrency = 4

// ErrEntriesFailed reports that at least one catalog entry could not be synced.
var ErrEntriesFailed = errors.New("some projects failed to sync")

// EntryError is the failure of a single catalog entry.
type EntryError struct {
	Entry Entry
	Err   error
}

func (e *EntryError) Error() string { return e.Entry.String() + ": " + e.Err.Error() }

func (e *EntryError) Unwrap() error { return e.Err }

// Summary tallies the outcome of a run.
type Summary struct {
	Succeeded int
	Failed    int
	CacheHits int
	Failures  []*EntryError
}

// Err returns ErrEntriesFailed when any entry failed.
func (s *Summary) Err() error {
	if s.Failed == 0 {
		return nil
	}
	return fmt.Errorf("%d of %d: %w", s.Failed, s.Failed+s.Succeeded, ErrEntriesFailed)
}

// Syncer drives a whole run: every catalog entry through the Fetcher, then
// the index, the content pages and the profile artifacts.
type Syncer struct {
	gh      API
	fetcher *Fetcher
	writer  *Writer
	opts    SyncerOptions
}

// SyncerOptions holds configuration for a Syncer.
type SyncerOptions struct {
	concurrency  int
	profileLogin string
	now          func() time.Time
}

// SyncerOption applies a configuration to SyncerOptions.
type SyncerOption func(*SyncerOptions)

// WithConcurrency bounds the entries in flight.
func WithConcurrency(n int) SyncerOption {
	return func(o *SyncerOptions) { o.concurrency = n }
}

// WithProfileLogin sets the account whose profile readme and contribution
// calendar are published, overriding the catalog's account.
func WithProfileLogin(login string) SyncerOption {
	return func(o *SyncerOptions) { o.profileLogin = login }
}

// WithClock replaces time.Now for generated timestamps.
func WithClock(now func() time.Time) SyncerOption {
	return func(o *SyncerOptions) { o.now = now }
}

// NewSyncer returns a Syncer fetching with gh and publishing through writer.
func NewSyncer(gh API, cache *Cache, writer *Writer, opts ...SyncerOption) *Syncer {
	o := SyncerOptions{concurrency: DefaultConcurrency, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	if o.concurrency <= 0 {
		o.concurrency = DefaultConcurrency
	}
	f := NewFetcher(gh, cache)
	f.now = o.now
	return &Syncer{gh: gh, fetcher: f, writer: writer, opts: o}
}

type result struct {
	item *Item
	err  error
}

// Run syncs every entry of cat and writes the artifacts. Entry failures are
// reported through the Summary; the returned error is set only when an
// artifact could not be written.
func (s *Syncer) Run(ctx context.Context, cat *Catalog) (*Summary, error) {
	ctx, span := tracer.Start(ctx, "Syncer.Run", trace.WithAttributes(
		attribute.Int("catalog.size", len(cat.Projects)),
	))
	defer span.End()

	results := s.fetchAll(ctx, cat.Projects)

	sum := &Summary{}
	items := make([]*Item, 0, len(results))
	for i, r := range results {
		if r.err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, &EntryError{Entry: cat.Projects[i], Err: r.err})
			continue
		}
		sum.Succeeded++
		if r.item.CacheHit {
			sum.CacheHits++
		}
		items = append(items, r.item)
	}
	SortItems(items)

	if err := s.publish(ctx, items); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return sum, err
	}

	login := s.opts.profileLogin
	if login == "" {
		login = cat.Account
	}
	if err := s.writer.WriteProfile(s.fetchProfile(ctx, login)); err != nil {
		return sum, err
	}
	if err := s.writer.WriteContributions(s.fetchContributions(ctx, login)); err != nil {
		return sum, err
	}

	span.SetAttributes(
		attribute.Int("sync.succeeded", sum.Succeeded),
		attribute.Int("sync.failed", sum.Failed),
		attribute.Int("sync.cache_hits", sum.CacheHits),
	)
	slog.InfoContext(ctx, "Sync finished", "succeeded", sum.Succeeded, "failed", sum.Failed, "cacheHits", sum.CacheHits)
	return sum, nil
}

// fetchAll runs the Fetcher over entries, at most concurrency at a time.
// Each task fills its own slot, so results keep the catalog order.
func (s *Syncer) fetchAll(ctx context.Context, entries []Entry) []result {
	results := make([]result, len(entries))
	var g errgroup.Group
	g.SetLimit(s.opts.concurrency)
	for i, e := range entries {
		g.Go(func() error {
			item, err := s.fetcher.Fetch(ctx, e)
			results[i] = result{item: item, err: err}
			if err != nil {
				slog.ErrorContext(ctx, "Failed to sync project", "owner", e.Owner, "repo", e.Name, "error", err)
				return nil
			}
			slog.InfoContext(ctx, "Synced project", "owner", e.Owner, "repo", e.Name, "cacheHit", item.CacheHit)
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Syncer) publish(ctx context.Context, items []*Item) error {
	projects := make([]Project, 0, len(items))
	var tags []string
	for _, it := range items {
		projects = append(projects, it.Project)
		tags = append(tags, it.Project.Tags...)
	}
	idx := &Index{
		Projects:    projects,
		Tags:        NormalizeTags(tags, nil),
		GeneratedAt: s.opts.now().UTC(),
	}
	if err := s.writer.WriteIndex(idx); err != nil {
		return err
	}
	if err := s.writer.WriteContent(items); err != nil {
		return err
	}
	slog.InfoContext(ctx, "Wrote projects", "projects", len(projects), "tags", len(idx.Tags))
	return nil
}

// fetchProfile returns the profile readme of login, or nil when it cannot
// be fetched.
func (s *Syncer) fetchProfile(ctx context.Context, login string) *Profile {
	if login == "" {
		slog.DebugContext(ctx, "No profile account configured")
		return nil
	}
	readme, err := s.gh.GetReadme(ctx, login, login)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch profile readme", "login", login, "error", err)
		return nil
	}
	return &Profile{
		Login:     login,
		Readme:    encoding.RewriteReadmeURLs(readme, login, login, defaultBranch),
		FetchedAt: s.opts.now().UTC(),
	}
}

// fetchContributions returns the contribution calendar of login, or nil when
// it cannot be fetched. GitHub only serves it to authenticated clients.
func (s *Syncer) fetchContributions(ctx context.Context, login string) *Contributions {
	if login == "" {
		return nil
	}
	if !s.gh.Authenticated() {
		slog.InfoContext(ctx, "Skipping contributions, no GitHub token configured", "login", login)
		return nil
	}
	cal, err := s.gh.GetContributionCalendar(ctx, login)
	if err != nil {
		slog.WarnContext(ctx, "Failed to fetch contributions", "login", login, "error", err)
		return nil
	}
	return &Contributions{
		Login:     login,
		Total:     cal.Total,
		Days:      cal.Days,
		FetchedAt: s.opts.now().UTC(),
	}
}

// SortItems orders featured projects first, then by stars, most first.
// Ties keep their catalog order.
func SortItems(items []*Item) {
	slices.SortStableFunc(items, func(a, b *Item) int {
		if a.Project.Featured != b.Project.Featured {
			if a.Project.Featured {
				return -1
			}
			return 1
		}
		return b.Project.Stars - a.Project.Stars
	})
}

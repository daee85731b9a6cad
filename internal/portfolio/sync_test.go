package portfolio

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"portfoliosync.shikanime.studio/internal/encoding"
)

const contributionsResponse = `{"data":{"user":{"contributionsCollection":{"contributionCalendar":{
  "totalContributions": 5,
  "weeks": [
    {"contributionDays": [
      {"date": "2026-01-01", "contributionCount": 0, "contributionLevel": "NONE"},
      {"date": "2026-01-02", "contributionCount": 5, "contributionLevel": "FOURTH_QUARTILE"}
    ]}
  ]
}}}}}`

var fixedNow = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

type syncFixture struct {
	gh     *fakeGitHub
	fs     afero.Fs
	syncer *Syncer
}

func newSyncFixture(t *testing.T, gh *fakeGitHub, authenticated bool, opts ...SyncerOption) *syncFixture {
	t.Helper()
	fs := afero.NewMemMapFs()
	opts = append([]SyncerOption{WithClock(func() time.Time { return fixedNow })}, opts...)
	s := NewSyncer(
		newTestAPI(t, gh, authenticated),
		NewCache(fs, "cache"),
		NewWriter(fs, "data", "content"),
		opts...,
	)
	return &syncFixture{gh: gh, fs: fs, syncer: s}
}

func (f *syncFixture) readJSON(t *testing.T, name string, v any) {
	t.Helper()
	data, err := afero.ReadFile(f.fs, filepath.Join("data", name))
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, v))
}

func TestSyncWritesArtifacts(t *testing.T) {
	gh := newFakeGitHub()
	gh.add("o", "small", &fakeRepo{metadata: metadata("small", 5, ""), topics: []string{"go"}, readme: "small"})
	gh.add("o", "big", &fakeRepo{metadata: metadata("big", 50, ""), topics: []string{"rust", "go"}, readme: "big"})
	gh.add("o", "mid", &fakeRepo{metadata: metadata("mid", 10, ""), topics: []string{}, readme: "[x](x.md)"})
	gh.add("me", "me", &fakeRepo{metadata: metadata("me", 0, ""), readme: "![me](me.png)"})
	gh.graphql = contributionsResponse

	cat := &Catalog{
		Account: "me",
		Projects: []Entry{
			{Owner: "o", Name: "small", Featured: true},
			{Owner: "o", Name: "big"},
			{Owner: "o", Name: "mid", Tags: []string{"Side Project"}},
		},
	}
	f := newSyncFixture(t, gh, true)

	sum, err := f.syncer.Run(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Succeeded)
	assert.Equal(t, 0, sum.Failed)
	assert.NoError(t, sum.Err())

	var idx Index
	f.readJSON(t, IndexFile, &idx)
	var slugs []string
	for _, p := range idx.Projects {
		slugs = append(slugs, p.Slug)
	}
	assert.Equal(t, []string{"o-small", "o-big", "o-mid"}, slugs)
	assert.Equal(t, []string{"go", "rust", "side-project"}, idx.Tags)
	assert.True(t, fixedNow.Equal(idx.GeneratedAt))

	doc, err := afero.ReadFile(f.fs, filepath.Join("content", "o-mid.md"))
	require.NoError(t, err)
	var meta Project
	body, err := encoding.UnmarshalFrontmatter(doc, &meta)
	require.NoError(t, err)
	assert.Equal(t, "[x](https://github.com/o/mid/blob/main/x.md)\n", body)
	assert.Equal(t, "mid", meta.Title)
	assert.Equal(t, []string{"side-project"}, meta.Tags)
	assert.Empty(t, meta.Slug)
	assert.NotContains(t, string(doc), "slug:")

	var profile Profile
	f.readJSON(t, ProfileFile, &profile)
	assert.Equal(t, "me", profile.Login)
	assert.Equal(t, "![me](https://raw.githubusercontent.com/me/me/HEAD/me.png)", profile.Readme)

	var contributions Contributions
	f.readJSON(t, ContributionsFile, &contributions)
	assert.Equal(t, "me", contributions.Login)
	assert.Equal(t, 5, contributions.Total)
	require.Len(t, contributions.Days, 2)
	assert.Equal(t, 4, contributions.Days[1].Level)
}

func TestSyncReplacesContentDirectory(t *testing.T) {
	gh := newFakeGitHub()
	gh.add("o", "r", &fakeRepo{metadata: metadata("r", 1, ""), topics: []string{}, readme: "r"})
	f := newSyncFixture(t, gh, false)
	require.NoError(t, afero.WriteFile(f.fs, filepath.Join("content", "stale.md"), []byte("old"), 0o644))

	_, err := f.syncer.Run(context.Background(), &Catalog{Projects: []Entry{{Owner: "o", Name: "r"}}})
	require.NoError(t, err)

	stale, err := afero.Exists(f.fs, filepath.Join("content", "stale.md"))
	require.NoError(t, err)
	assert.False(t, stale)
	fresh, err := afero.Exists(f.fs, filepath.Join("content", "o-r.md"))
	require.NoError(t, err)
	assert.True(t, fresh)
}

func TestSyncSecondRunHitsCache(t *testing.T) {
	gh := newFakeGitHub()
	gh.add("o", "r", &fakeRepo{metadata: metadata("r", 1, ""), etag: `"v1"`, topics: []string{"go"}, readme: "r"})
	f := newSyncFixture(t, gh, false)
	cat := &Catalog{Projects: []Entry{{Owner: "o", Name: "r"}}}

	sum, err := f.syncer.Run(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.CacheHits)

	sum, err = f.syncer.Run(context.Background(), cat)
	require.NoError(t, err)
	assert.Equal(t, 1, sum.CacheHits)
	assert.Equal(t, 2, gh.count("/repos/o/r"))
	assert.Equal(t, 1, gh.count("/repos/o/r/topics"))
	assert.Equal(t, 1, gh.count("/repos/o/r/readme"))
}

func TestSyncExitStatus(t *testing.T) {
	t.Run("all entries succeed", func(t *testing.T) {
		gh := newFakeGitHub()
		gh.add("o", "r", &fakeRepo{metadata: metadata("r", 1, ""), topics: []string{}, readme: "r"})
		f := newSyncFixture(t, gh, true)

		sum, err := f.syncer.Run(context.Background(), &Catalog{Account: "ghost", Projects: []Entry{{Owner: "o", Name: "r"}}})
		require.NoError(t, err)
		assert.NoError(t, sum.Err())

		var profile *Profile
		f.readJSON(t, ProfileFile, &profile)
		assert.Nil(t, profile)
		var contributions *Contributions
		f.readJSON(t, ContributionsFile, &contributions)
		assert.Nil(t, contributions)
	})

	t.Run("one entry fails", func(t *testing.T) {
		gh := newFakeGitHub()
		gh.add("o", "r", &fakeRepo{metadata: metadata("r", 1, ""), topics: []string{}, readme: "r"})
		f := newSyncFixture(t, gh, true)

		sum, err := f.syncer.Run(context.Background(), &Catalog{
			Account:  "ghost",
			Projects: []Entry{{Owner: "o", Name: "r"}, {Owner: "o", Name: "gone"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 1, sum.Succeeded)
		assert.Equal(t, 1, sum.Failed)
		require.Len(t, sum.Failures, 1)
		assert.Equal(t, "gone", sum.Failures[0].Entry.Name)
		assert.ErrorIs(t, sum.Err(), ErrEntriesFailed)

		var idx Index
		f.readJSON(t, IndexFile, &idx)
		assert.Len(t, idx.Projects, 1)
	})
}

func TestSyncSkipsContributionsWithoutToken(t *testing.T) {
	gh := newFakeGitHub()
	gh.add("me", "me", &fakeRepo{metadata: metadata("me", 0, ""), readme: "hi"})
	gh.graphql = contributionsResponse
	f := newSyncFixture(t, gh, false)

	_, err := f.syncer.Run(context.Background(), &Catalog{Account: "me", Projects: []Entry{}})
	require.NoError(t, err)
	assert.Equal(t, 0, gh.count("/graphql"))

	data, err := afero.ReadFile(f.fs, filepath.Join("data", ContributionsFile))
	require.NoError(t, err)
	assert.Equal(t, "null\n", string(data))

	var profile Profile
	f.readJSON(t, ProfileFile, &profile)
	assert.Equal(t, "hi", profile.Readme)
}

func TestSyncBoundsConcurrency(t *testing.T) {
	gh := newFakeGitHub()
	gh.delay = 10 * time.Millisecond
	var entries []Entry
	for i := range 12 {
		name := fmt.Sprintf("r%d", i)
		gh.add("o", name, &fakeRepo{metadata: metadata(name, i, ""), topics: []string{}, readme: name})
		entries = append(entries, Entry{Owner: "o", Name: name})
	}
	f := newSyncFixture(t, gh, false)

	sum, err := f.syncer.Run(context.Background(), &Catalog{Projects: entries})
	require.NoError(t, err)
	assert.Equal(t, 12, sum.Succeeded)
	assert.LessOrEqual(t, gh.peak.Load(), int32(DefaultConcurrency))
	assert.Positive(t, gh.peak.Load())
}

func TestSortItems(t *testing.T) {
	items := []*Item{
		{Project: Project{Name: "featured", Featured: true, Stars: 5}},
		{Project: Project{Name: "popular", Stars: 50}},
		{Project: Project{Name: "modest", Stars: 10}},
		{Project: Project{Name: "popular-too", Stars: 50}},
	}
	SortItems(items)

	var names []string
	for _, it := range items {
		names = append(names, it.Project.Name)
	}
	assert.Equal(t, []string{"featured", "popular", "popular-too", "modest"}, names)
}

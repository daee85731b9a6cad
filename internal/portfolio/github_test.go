package portfolio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"portfoliosync.shikanime.studio/internal/portfolio/github"
)

// fakeRepo is a repository served by fakeGitHub. An empty readme answers 404.
type fakeRepo struct {
	metadata string
	etag     string
	topics   []string
	readme   string
	status   int
}

// fakeGitHub serves the REST and GraphQL endpoints used by a sync and keeps
// count of requests per path and of requests in flight.
type fakeGitHub struct {
	repos    map[string]*fakeRepo
	graphql  string
	delay    time.Duration
	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	peak     atomic.Int32
}

func newFakeGitHub() *fakeGitHub {
	return &fakeGitHub{repos: map[string]*fakeRepo{}, calls: map[string]int{}}
}

func (f *fakeGitHub) add(owner, name string, r *fakeRepo) *fakeRepo {
	f.repos[owner+"/"+name] = r
	return r
}

func (f *fakeGitHub) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[path]
}

func (f *fakeGitHub) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		p := f.peak.Load()
		if n <= p || f.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(f.delay)

	f.mu.Lock()
	f.calls[r.URL.Path]++
	f.mu.Unlock()

	if r.URL.Path == "/graphql" {
		if f.graphql == "" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, f.graphql)
		return
	}

	parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/repos/"), "/")
	if len(parts) < 2 {
		http.NotFound(w, r)
		return
	}
	repo, ok := f.repos[parts[0]+"/"+parts[1]]
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch {
	case len(parts) == 2:
		if repo.status != 0 {
			w.WriteHeader(repo.status)
			return
		}
		if repo.etag != "" && r.Header.Get("If-None-Match") == repo.etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		if repo.etag != "" {
			w.Header().Set("ETag", repo.etag)
		}
		fmt.Fprint(w, repo.metadata)
	case parts[2] == "topics":
		if repo.topics == nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"names": repo.topics})
	case parts[2] == "readme":
		if repo.readme == "" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"type":     "file",
			"encoding": "base64",
			"content":  base64.StdEncoding.EncodeToString([]byte(repo.readme)),
		})
	default:
		http.NotFound(w, r)
	}
}

func noSleep(context.Context, time.Duration) error { return nil }

// newTestAPI returns a GitHub client talking to f.
func newTestAPI(t *testing.T, f *fakeGitHub, authenticated bool) *github.Client {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	opts := []github.ClientOption{
		github.WithBaseURL(srv.URL),
		github.WithHTTPClient(srv.Client()),
		github.WithSleep(noSleep),
	}
	if authenticated {
		opts = append(opts, github.WithToken("test-token"))
	}
	c, err := github.NewClient(opts...)
	require.NoError(t, err)
	return c
}

func metadata(name string, stars int, extra string) string {
	doc := fmt.Sprintf(`{"name":%q,"stargazers_count":%d,"default_branch":"main","html_url":"https://github.com/o/%s","pushed_at":"2026-01-02T03:04:05Z","updated_at":"2025-12-01T00:00:00Z"`, name, stars, name)
	if extra != "" {
		doc += "," + extra
	}
	return doc + "}"
}

package source

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/logger"
)

const listingFixture = `{
	"data": {
		"children": [
			{"data": {"id": "low", "url": "https://i.redd.it/low.png", "title": "low score", "score": 10, "subreddit": "memes"}},
			{"data": {"id": "self", "url": "https://reddit.com/r/memes/1", "title": "self post", "score": 900, "subreddit": "memes", "selftext": "body"}},
			{"data": {"id": "stick", "url": "https://i.redd.it/stick.png", "title": "stickied", "score": 800, "subreddit": "memes", "stickied": true}},
			{"data": {"id": "gal", "url": "https://www.reddit.com/gallery/abc", "title": "gallery", "score": 700, "subreddit": "memes"}},
			{"data": {"id": "vid", "url": "https://v.redd.it/clip", "title": "a video", "score": 600, "subreddit": "memes"}},
			{"data": {"id": "high", "url": "https://i.redd.it/high.jpg", "title": "high score", "score": 500, "subreddit": "dankmemes"}}
		]
	}
}`

func newTestReddit(t *testing.T, handler http.HandlerFunc, includeVideos bool) *Reddit {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	r := NewReddit(&config.SourceConfig{
		Subreddits:    []string{"memes", "dankmemes"},
		RequestLimit:  25,
		IncludeVideos: includeVideos,
		UserAgent:     "gomeme test",
	}, logger.NewNoOp())
	r.baseURL = server.URL
	return r
}

func TestFetchSkipsAndSorts(t *testing.T) {
	var gotPath, gotAgent string
	r := newTestReddit(t, func(w http.ResponseWriter, req *http.Request) {
		gotPath = req.URL.String()
		gotAgent = req.Header.Get("User-Agent")
		_, _ = w.Write([]byte(listingFixture))
	}, false)

	candidates, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if !strings.HasPrefix(gotPath, "/r/memes+dankmemes/hot.json") {
		t.Errorf("listing path = %q, want joined subreddit hot listing", gotPath)
	}
	if gotAgent != "gomeme test" {
		t.Errorf("user agent = %q", gotAgent)
	}

	// Self posts, stickied posts, galleries and videos are skipped; the
	// rest come back best score first.
	if len(candidates) != 2 {
		t.Fatalf("Fetch() returned %d candidates, want 2", len(candidates))
	}
	if candidates[0].ID != "high" || candidates[1].ID != "low" {
		t.Errorf("candidate order = [%s %s], want [high low]", candidates[0].ID, candidates[1].ID)
	}
	if candidates[0].SourceTag != "dankmemes" {
		t.Errorf("source tag = %q, want dankmemes", candidates[0].SourceTag)
	}
}

func TestFetchIncludesVideosWhenConfigured(t *testing.T) {
	r := newTestReddit(t, func(w http.ResponseWriter, req *http.Request) {
		_, _ = w.Write([]byte(listingFixture))
	}, true)

	candidates, err := r.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}

	if len(candidates) != 3 {
		t.Fatalf("Fetch() returned %d candidates, want 3 with videos", len(candidates))
	}
	if candidates[0].ID != "vid" || !candidates[0].IsVideo {
		t.Errorf("best candidate = %+v, want the video", candidates[0])
	}
}

func TestFetchRetriesServerErrors(t *testing.T) {
	attempts := 0
	handler := func(w http.ResponseWriter, req *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(listingFixture))
	}

	server := httptest.NewServer(http.HandlerFunc(handler))
	defer server.Close()

	r := NewReddit(&config.SourceConfig{
		Subreddits:   []string{"memes"},
		RequestLimit: 25,
		UserAgent:    "gomeme test",
		MaxRetries:   2,
		RetryBase:    time.Millisecond,
		RetryMax:     5 * time.Millisecond,
	}, logger.NewNoOp())
	r.baseURL = server.URL

	if _, err := r.Fetch(context.Background()); err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if attempts != 2 {
		t.Errorf("server saw %d attempts, want 2", attempts)
	}
}

func TestFetchBadStatus(t *testing.T) {
	r := newTestReddit(t, func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}, false)

	if _, err := r.Fetch(context.Background()); err == nil {
		t.Error("Fetch() expected error on 403 response")
	}
}

package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/httpclient"
	"github.com/jonesrussell/gomeme/internal/logger"
	"github.com/jonesrussell/gomeme/internal/media"
)

// defaultBaseURL is the public Reddit listing endpoint.
const defaultBaseURL = "https://www.reddit.com"

// maxListingBodyBytes limits the size of listing responses.
const maxListingBodyBytes = 16 * 1024 * 1024 // 16 MB

// listing mirrors the subset of the Reddit hot-listing JSON we consume.
type listing struct {
	Data struct {
		Children []struct {
			Data listedPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// listedPost is one submission in a listing.
type listedPost struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	Title     string `json:"title"`
	Score     int    `json:"score"`
	Subreddit string `json:"subreddit"`
	Selftext  string `json:"selftext"`
	Stickied  bool   `json:"stickied"`
}

// Reddit fetches ranked candidates from one or more subreddit hot listings.
type Reddit struct {
	cfg        *config.SourceConfig
	log        logger.Interface
	httpClient *http.Client
	executor   failsafe.Executor[*http.Response]
	baseURL    string
}

// NewReddit creates a new Reddit candidate source.
func NewReddit(cfg *config.SourceConfig, log logger.Interface) *Reddit {
	return &Reddit{
		cfg:        cfg,
		log:        log.WithComponent("source"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		executor: httpclient.NewExecutor(httpclient.RetryConfig{
			MaxRetries: cfg.MaxRetries,
			BaseDelay:  cfg.RetryBase,
			MaxDelay:   cfg.RetryMax,
		}),
		baseURL: defaultBaseURL,
	}
}

// Fetch returns the current hot candidates, best first. Transient HTTP
// failures are retried with bounded exponential backoff before an error
// is surfaced.
func (r *Reddit) Fetch(ctx context.Context) ([]domain.Candidate, error) {
	url := fmt.Sprintf(
		"%s/r/%s/hot.json?limit=%d",
		r.baseURL, strings.Join(r.cfg.Subreddits, "+"), r.cfg.RequestLimit,
	)

	r.log.Info("fetching candidates", "url", url)

	resp, err := httpclient.Do(ctx, r.executor, func() (*http.Response, error) {
		req, reqErr := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
		if reqErr != nil {
			return nil, reqErr
		}
		req.Header.Set("User-Agent", r.cfg.UserAgent)
		return r.httpClient.Do(req)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("listing request returned status %d", resp.StatusCode)
	}

	var l listing
	decoder := json.NewDecoder(io.LimitReader(resp.Body, maxListingBodyBytes))
	if decodeErr := decoder.Decode(&l); decodeErr != nil {
		return nil, fmt.Errorf("failed to decode listing: %w", decodeErr)
	}

	candidates := r.collectCandidates(&l)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score > candidates[j].Score
	})

	r.log.Info("candidates fetched", "count", len(candidates))

	return candidates, nil
}

// collectCandidates converts listed posts to candidates, skipping
// self-posts, stickied posts, galleries and (optionally) videos.
func (r *Reddit) collectCandidates(l *listing) []domain.Candidate {
	now := time.Now()
	candidates := make([]domain.Candidate, 0, len(l.Data.Children))

	for _, child := range l.Data.Children {
		post := child.Data
		if post.URL == "" || post.Selftext != "" || post.Stickied {
			continue
		}
		if strings.Contains(post.URL, "gallery") {
			continue
		}

		isVideo := media.IsVideoURL(post.URL)
		if isVideo && !r.cfg.IncludeVideos {
			continue
		}

		candidates = append(candidates, domain.Candidate{
			ID:        post.ID,
			URL:       post.URL,
			Title:     post.Title,
			Score:     post.Score,
			SourceTag: post.Subreddit,
			IsVideo:   isVideo,
			FetchedAt: now,
		})
	}

	return candidates
}

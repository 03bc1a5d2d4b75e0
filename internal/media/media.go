// Package media downloads and normalizes candidate media into a canonical
// local representation: an image, or a video plus a still preview frame.
package media

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
)

// Failure sentinels. All acquisition failures skip the candidate; none are
// fatal to the process.
var (
	// ErrUnsupportedURL is returned when no acquisition strategy matches.
	ErrUnsupportedURL = errors.New("no acquisition strategy matches URL")
	// ErrContentRemoved is returned when the provider redirects to its
	// "content removed" placeholder.
	ErrContentRemoved = errors.New("content has been removed by provider")
	// ErrUnknownSize is returned when a size probe cannot determine the
	// content length.
	ErrUnknownSize = errors.New("content size cannot be determined")
)

// imgurRemovedURL is the redirect target imgur serves for deleted media.
const imgurRemovedURL = "https://i.imgur.com/removed.png"

// URL shape patterns, tried in declaration order. The first match wins;
// there is no fallback to a later strategy for the same URL.
var (
	gifvPattern  = regexp.MustCompile(`\.gifv$`)
	gifPattern   = regexp.MustCompile(`\.gif$`)
	videoPattern = regexp.MustCompile(`\.mp4$|v\.redd\.it`)
	imagePattern = regexp.MustCompile(`\.(png|jpg|jpeg)$`)
)

// IsVideoURL reports whether the URL points at video-like media (plain
// video, animated image or animated-image container).
func IsVideoURL(url string) bool {
	return videoPattern.MatchString(url) ||
		gifPattern.MatchString(url) ||
		gifvPattern.MatchString(url)
}

// IsAnimatedURL reports whether the URL points at a bare animated image or
// an animated-image container. These are the formats subject to the size
// probe before download.
func IsAnimatedURL(url string) bool {
	return gifPattern.MatchString(url) || gifvPattern.MatchString(url)
}

// Acquirer downloads candidate media by URL and normalizes it under one
// temp directory. Safe for concurrent use; generated filenames never
// collide.
type Acquirer struct {
	cfg        *config.MediaConfig
	log        logger.Interface
	httpClient *http.Client
	names      *nameGenerator
}

// NewAcquirer creates a new media acquirer.
func NewAcquirer(cfg *config.MediaConfig, log logger.Interface) *Acquirer {
	return &Acquirer{
		cfg:        cfg,
		log:        log.WithComponent("media"),
		httpClient: &http.Client{Timeout: cfg.DownloadTimeout},
		names:      newNameGenerator(cfg.TempDir),
	}
}

// Acquire downloads and normalizes the media behind url. The returned
// AcquiredMedia always carries a static PNG preview usable for
// fingerprinting; any partial output of a failed acquisition is removed.
func (a *Acquirer) Acquire(ctx context.Context, url string) (*domain.AcquiredMedia, error) {
	if err := a.ensureTempDir(); err != nil {
		return nil, err
	}

	a.log.Info("acquiring media", "url", url)

	strategies := []struct {
		pattern *regexp.Regexp
		acquire func(context.Context, string) (*domain.AcquiredMedia, error)
	}{
		{gifvPattern, a.acquireGifv},
		{gifPattern, a.acquireGif},
		{videoPattern, a.acquireVideo},
		{imagePattern, a.acquireImage},
	}

	for _, s := range strategies {
		if !s.pattern.MatchString(url) {
			continue
		}

		acquired, err := s.acquire(ctx, url)
		if err != nil {
			return nil, fmt.Errorf("acquisition failed for %s: %w", url, err)
		}

		a.log.Info("media acquired",
			"url", url,
			"path", acquired.LocalPath,
			"is_video", acquired.IsVideo,
		)
		return acquired, nil
	}

	return nil, fmt.Errorf("%w: %s", ErrUnsupportedURL, url)
}

// ProbeSizeMB determines the content size in megabytes with a
// metadata-only request, without downloading the body.
func (a *Acquirer) ProbeSizeMB(ctx context.Context, url string) (float64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, http.NoBody)
	if err != nil {
		return 0, fmt.Errorf("failed to build size probe: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("size probe failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("size probe returned status %d", resp.StatusCode)
	}
	if resp.ContentLength <= 0 {
		return 0, ErrUnknownSize
	}

	const bytesPerMB = 1024 * 1024
	return float64(resp.ContentLength) / bytesPerMB, nil
}

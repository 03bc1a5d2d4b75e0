// Package pipeline turns ranked feed candidates into one prepared item in
// the publish slot.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/filter"
	"github.com/jonesrussell/gomeme/internal/logger"
	"github.com/jonesrussell/gomeme/internal/media"
	"github.com/jonesrussell/gomeme/internal/metrics"
	"github.com/jonesrussell/gomeme/internal/queue"
)

// Rejection reasons reported alongside the filter package's reasons.
const (
	reasonOversized         = "oversized"
	reasonSizeUnknown       = "size_unknown"
	reasonAcquireFailed     = "acquire_failed"
	reasonFingerprintFailed = "fingerprint_failed"
)

// Source produces ranked candidates, best first.
type Source interface {
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

// Acquirer downloads and normalizes candidate media.
type Acquirer interface {
	Acquire(ctx context.Context, url string) (*domain.AcquiredMedia, error)
	ProbeSizeMB(ctx context.Context, url string) (float64, error)
	DeleteFile(path string) error
}

// Fingerprinter computes the perceptual and textual fingerprint of a
// preview image.
type Fingerprinter interface {
	Fingerprint(ctx context.Context, previewPath, sourceURL string) (*domain.Fingerprint, error)
}

// History is the subset of the history store the pipeline needs.
type History interface {
	HasID(ctx context.Context, id string) (bool, error)
	HasURL(ctx context.Context, url string) (bool, error)
	AllHashes(ctx context.Context) ([]domain.Hash, error)
	RecordCandidate(ctx context.Context, c *domain.Candidate) error
	RecordFingerprint(ctx context.Context, fp *domain.Fingerprint) error
}

// Screen decides whether a candidate may be published. TitleClean runs
// before any download; IsAcceptable runs over the full fingerprint.
type Screen interface {
	TitleClean(title string) bool
	IsAcceptable(candidate *domain.Candidate, fp *domain.Fingerprint, history []domain.Hash) (bool, string)
}

// Pipeline evaluates feed candidates until one fills the publish slot.
type Pipeline struct {
	cfg           *config.MediaConfig
	source        Source
	acquirer      Acquirer
	fingerprinter Fingerprinter
	screen        Screen
	history       History
	slot          *queue.Slot
	metrics       *metrics.Metrics
	log           logger.Interface
}

// New creates a Pipeline.
func New(
	cfg *config.MediaConfig,
	source Source,
	acquirer Acquirer,
	fingerprinter Fingerprinter,
	screen Screen,
	history History,
	slot *queue.Slot,
	m *metrics.Metrics,
	log logger.Interface,
) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		source:        source,
		acquirer:      acquirer,
		fingerprinter: fingerprinter,
		screen:        screen,
		history:       history,
		slot:          slot,
		metrics:       m,
		log:           log.WithComponent("pipeline"),
	}
}

// FillQueue evaluates fresh candidates in rank order until one is accepted
// into the publish slot. A no-op when the slot is already occupied. An
// exhausted batch is not an error; the slot simply stays empty until the
// next trigger.
func (p *Pipeline) FillQueue(ctx context.Context) error {
	if p.slot.Occupied() {
		p.log.Debug("publish slot occupied, skipping fill")
		return nil
	}

	log := p.log.With("run_id", uuid.NewString())

	candidates, err := p.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch candidates: %w", err)
	}

	fresh, err := p.dropSeen(ctx, candidates)
	if err != nil {
		return err
	}
	log.Info("candidate batch ready", "fetched", len(candidates), "fresh", len(fresh))

	// One batch load per pass. A hash recorded during this pass is not
	// visible to later candidates of the same pass.
	hashes, err := p.history.AllHashes(ctx)
	if err != nil {
		return fmt.Errorf("failed to load history hashes: %w", err)
	}

	for i := range fresh {
		candidate := &fresh[i]

		if ctx.Err() != nil {
			return ctx.Err()
		}

		accepted, evalErr := p.evaluate(ctx, log, candidate, hashes)
		if evalErr != nil {
			return evalErr
		}
		if accepted {
			return nil
		}
	}

	log.Info("batch exhausted without an acceptable candidate")
	return nil
}

// Inject prepares a manually chosen URL and places it in the publish
// slot, bypassing the feed and the duplicate screens. The operator is
// trusted; only acquisition or fingerprinting failures reject it.
func (p *Pipeline) Inject(ctx context.Context, url string) (*domain.QueueItem, error) {
	if p.slot.Occupied() {
		return nil, errors.New("publish slot already holds an item")
	}

	candidate := &domain.Candidate{
		ID:        "manual-" + uuid.NewString(),
		URL:       url,
		Title:     "manual injection",
		SourceTag: "manual",
		IsVideo:   media.IsVideoURL(url),
		FetchedAt: time.Now(),
	}
	if err := p.history.RecordCandidate(ctx, candidate); err != nil {
		return nil, fmt.Errorf("failed to record injected candidate: %w", err)
	}

	acquired, err := p.acquirer.Acquire(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire injected media: %w", err)
	}

	fp, err := p.fingerprinter.Fingerprint(ctx, acquired.PreviewPath, url)
	if err != nil {
		p.discardMedia(acquired)
		return nil, fmt.Errorf("failed to fingerprint injected media: %w", err)
	}
	if err := p.history.RecordFingerprint(ctx, fp); err != nil {
		p.discardMedia(acquired)
		return nil, fmt.Errorf("failed to record injected fingerprint: %w", err)
	}

	item := &domain.QueueItem{
		Candidate:  *candidate,
		Media:      *acquired,
		Caption:    fp.Caption,
		PreparedAt: time.Now(),
	}
	if !p.slot.TryPut(item) {
		p.discardMedia(acquired)
		return nil, errors.New("publish slot filled concurrently")
	}

	p.metrics.SetQueueOccupied(true)
	p.log.Info("manual injection queued", "url", url)
	return item, nil
}

// dropSeen removes candidates whose id or url is already recorded.
func (p *Pipeline) dropSeen(ctx context.Context, candidates []domain.Candidate) ([]domain.Candidate, error) {
	fresh := make([]domain.Candidate, 0, len(candidates))
	for i := range candidates {
		c := &candidates[i]

		seen, err := p.history.HasID(ctx, c.ID)
		if err != nil {
			return nil, fmt.Errorf("failed identity pre-filter: %w", err)
		}
		if !seen {
			seen, err = p.history.HasURL(ctx, c.URL)
			if err != nil {
				return nil, fmt.Errorf("failed identity pre-filter: %w", err)
			}
		}
		if seen {
			continue
		}

		fresh = append(fresh, *c)
	}
	return fresh, nil
}

// evaluate runs one candidate through the record/screen/acquire chain and
// reports whether it filled the slot. Only infrastructure failures return
// an error; a rejected candidate just yields (false, nil).
func (p *Pipeline) evaluate(ctx context.Context, log logger.Interface, candidate *domain.Candidate, hashes []domain.Hash) (bool, error) {
	p.metrics.CandidatesEvaluated.Inc()

	// Recorded before any check so repeated passes never re-evaluate it.
	if err := p.history.RecordCandidate(ctx, candidate); err != nil {
		return false, fmt.Errorf("failed to record candidate %s: %w", candidate.ID, err)
	}

	if reason, ok := p.preScreen(ctx, log, candidate); !ok {
		p.reject(log, candidate, reason)
		return false, nil
	}

	acquired, err := p.acquirer.Acquire(ctx, candidate.URL)
	if err != nil {
		log.Warn("media acquisition failed", "id", candidate.ID, "url", candidate.URL, "error", err)
		p.reject(log, candidate, reasonAcquireFailed)
		return false, nil
	}

	fp, err := p.fingerprinter.Fingerprint(ctx, acquired.PreviewPath, candidate.URL)
	if err != nil {
		log.Warn("fingerprinting failed", "id", candidate.ID, "error", err)
		p.discardMedia(acquired)
		p.reject(log, candidate, reasonFingerprintFailed)
		return false, nil
	}

	// Persisted regardless of acceptance so rejected items still count
	// toward future duplicate detection.
	if err := p.history.RecordFingerprint(ctx, fp); err != nil {
		p.discardMedia(acquired)
		return false, fmt.Errorf("failed to record fingerprint for %s: %w", candidate.ID, err)
	}

	if ok, reason := p.screen.IsAcceptable(candidate, fp, hashes); !ok {
		p.discardMedia(acquired)
		p.reject(log, candidate, reason)
		return false, nil
	}

	item := &domain.QueueItem{
		Candidate:  *candidate,
		Media:      *acquired,
		Caption:    fp.Caption,
		PreparedAt: time.Now(),
	}
	if !p.slot.TryPut(item) {
		// Another fill won the race; this candidate's media is discarded
		// and will be re-considered never (already recorded).
		p.discardMedia(acquired)
		log.Info("publish slot filled concurrently, discarding candidate", "id", candidate.ID)
		return true, nil
	}

	p.metrics.SetQueueOccupied(true)
	log.Info("candidate accepted",
		"id", candidate.ID,
		"url", candidate.URL,
		"title", candidate.Title,
		"is_video", acquired.IsVideo,
	)
	return true, nil
}

// preScreen runs the checks that precede any download: the title
// blocklist and, for animated formats, the size probe.
func (p *Pipeline) preScreen(ctx context.Context, log logger.Interface, candidate *domain.Candidate) (string, bool) {
	if !p.screen.TitleClean(candidate.Title) {
		return filter.ReasonBlockedTitle, false
	}

	if p.cfg.MaxGifSizeMB > 0 && media.IsAnimatedURL(candidate.URL) {
		size, err := p.acquirer.ProbeSizeMB(ctx, candidate.URL)
		if err != nil {
			if errors.Is(err, media.ErrUnknownSize) {
				return reasonSizeUnknown, false
			}
			log.Warn("size probe failed", "id", candidate.ID, "error", err)
			return reasonSizeUnknown, false
		}
		if size > p.cfg.MaxGifSizeMB {
			log.Info("candidate oversized", "id", candidate.ID, "size_mb", size, "limit_mb", p.cfg.MaxGifSizeMB)
			return reasonOversized, false
		}
	}

	return "", true
}

func (p *Pipeline) reject(log logger.Interface, candidate *domain.Candidate, reason string) {
	p.metrics.CandidatesRejected.WithLabelValues(reason).Inc()
	log.Debug("candidate rejected", "id", candidate.ID, "reason", reason)
}

// discardMedia removes the local files of a candidate that will not be
// published.
func (p *Pipeline) discardMedia(acquired *domain.AcquiredMedia) {
	if err := p.acquirer.DeleteFile(acquired.LocalPath); err != nil {
		p.log.Warn("failed to delete media", "path", acquired.LocalPath, "error", err)
	}
	if acquired.PreviewPath != acquired.LocalPath {
		if err := p.acquirer.DeleteFile(acquired.PreviewPath); err != nil {
			p.log.Warn("failed to delete preview", "path", acquired.PreviewPath, "error", err)
		}
	}
}

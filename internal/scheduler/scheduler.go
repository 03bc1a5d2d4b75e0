// Package scheduler drives the publish cadence: a preload timer that
// fills the queue ahead of each slot, a publish timer that drains it, and
// an independent daily retention job.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
	"github.com/jonesrussell/gomeme/internal/metrics"
	"github.com/jonesrussell/gomeme/internal/publisher"
	"github.com/jonesrussell/gomeme/internal/queue"
)

// retentionSpec runs the daily retention cleanup shortly after midnight,
// away from the midnight publish anchor.
const retentionSpec = "15 0 * * *"

// Pipeline fills the publish slot with the next acceptable candidate.
type Pipeline interface {
	FillQueue(ctx context.Context) error
}

// History is the retention subset of the history store.
type History interface {
	Prune(ctx context.Context, maxAge time.Duration) (posts, fingerprints int64, err error)
}

// MediaCleaner releases local media files.
type MediaCleaner interface {
	DeleteFile(path string) error
	CleanTempFolder() error
}

// Scheduler owns the two publish timers and the retention cron.
type Scheduler struct {
	pipeline  Pipeline
	publisher publisher.Interface
	history   History
	media     MediaCleaner
	slot      *queue.Slot
	metrics   *metrics.Metrics
	log       logger.Interface

	caption   string
	retention time.Duration

	mu           sync.Mutex
	cadence      Cadence
	preloadTimer *time.Timer
	publishTimer *time.Timer
	nextPreload  time.Time
	nextPublish  time.Time
	kick         chan struct{}

	cron   *cron.Cron
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates a Scheduler with the given initial cadence. caption is the
// static text attached to every published post; retention bounds the age
// of history rows.
func New(
	cadence Cadence,
	caption string,
	retention time.Duration,
	pipeline Pipeline,
	pub publisher.Interface,
	history History,
	media MediaCleaner,
	slot *queue.Slot,
	m *metrics.Metrics,
	log logger.Interface,
) *Scheduler {
	return &Scheduler{
		pipeline:  pipeline,
		publisher: pub,
		history:   history,
		media:     media,
		slot:      slot,
		metrics:   m,
		log:       log.WithComponent("scheduler"),
		caption:   caption,
		retention: retention,
		cadence:   cadence,
		kick:      make(chan struct{}, 1),
		cron:      cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
	}
}

// Start computes the first anchors, arms both timers and starts the
// retention cron. It returns once the timer loop is running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.mu.Lock()
	s.armTimersLocked(time.Now())
	s.mu.Unlock()

	if _, err := s.cron.AddFunc(retentionSpec, s.runRetention); err != nil {
		return fmt.Errorf("failed to schedule retention job: %w", err)
	}
	s.cron.Start()

	s.wg.Add(1)
	go s.run()

	s.log.Info("scheduler started",
		"posts_per_day", s.cadence.PostsPerDay,
		"next_preload", s.nextPreload,
		"next_publish", s.nextPublish,
	)
	return nil
}

// Stop cancels in-flight work, stops the timers and the cron, clears the
// slot and wipes the temp directory.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}

	cronCtx := s.cron.Stop()
	<-cronCtx.Done()

	s.mu.Lock()
	stopTimer(s.preloadTimer)
	stopTimer(s.publishTimer)
	s.mu.Unlock()

	s.wg.Wait()

	if item, ok := s.slot.Clear(); ok {
		s.releaseMedia(item)
	}
	s.metrics.SetQueueOccupied(false)

	if err := s.media.CleanTempFolder(); err != nil {
		s.log.Warn("failed to wipe temp folder on shutdown", "error", err)
	}

	s.log.Info("scheduler stopped")
}

// SetCadence replaces the publish cadence and recomputes both timers from
// the current moment. Old timers are stopped first, so slots never stack.
func (s *Scheduler) SetCadence(cadence Cadence) error {
	if cadence.PostsPerDay <= 0 || cadence.PostsPerDay > maxPostsPerDay {
		return fmt.Errorf("posts per day must be between 1 and %d, got %d", maxPostsPerDay, cadence.PostsPerDay)
	}
	if cadence.StartDelay < 0 || cadence.PreloadLead < 0 {
		return fmt.Errorf("start delay and preload lead must not be negative")
	}

	s.mu.Lock()
	s.cadence = cadence
	s.armTimersLocked(time.Now())
	next := s.nextPublish
	s.mu.Unlock()

	// Wake the timer loop so it picks up the new timer channels.
	select {
	case s.kick <- struct{}{}:
	default:
	}

	s.log.Info("cadence updated",
		"posts_per_day", cadence.PostsPerDay,
		"start_delay", cadence.StartDelay,
		"preload_lead", cadence.PreloadLead,
		"next_publish", next,
	)
	return nil
}

// Cadence returns the active cadence.
func (s *Scheduler) Cadence() Cadence {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cadence
}

// NextTimes returns the next preload and publish instants.
func (s *Scheduler) NextTimes() (preload, publish time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextPreload, s.nextPublish
}

// armTimersLocked stops any armed timers and re-arms both from now.
// Callers hold s.mu.
func (s *Scheduler) armTimersLocked(now time.Time) {
	stopTimer(s.preloadTimer)
	stopTimer(s.publishTimer)

	s.nextPreload, s.nextPublish = nextAnchors(now, s.cadence)
	s.preloadTimer = time.NewTimer(s.nextPreload.Sub(now))
	s.publishTimer = time.NewTimer(s.nextPublish.Sub(now))
}

func stopTimer(t *time.Timer) {
	if t != nil {
		t.Stop()
	}
}

// run services both timers. Handlers run in their own goroutines so a
// slow preload never delays a publish.
func (s *Scheduler) run() {
	defer s.wg.Done()

	for {
		s.mu.Lock()
		preloadC := s.preloadTimer.C
		publishC := s.publishTimer.C
		s.mu.Unlock()

		select {
		case <-s.ctx.Done():
			return

		case <-s.kick:
			// Cadence changed; re-read the timer channels.

		case <-preloadC:
			s.mu.Lock()
			now := time.Now()
			s.nextPreload, _ = nextAnchors(now, s.cadence)
			s.preloadTimer = time.NewTimer(s.nextPreload.Sub(now))
			s.mu.Unlock()

			s.wg.Add(1)
			go s.handlePreload()

		case <-publishC:
			s.mu.Lock()
			now := time.Now()
			_, s.nextPublish = nextAnchors(now, s.cadence)
			s.publishTimer = time.NewTimer(s.nextPublish.Sub(now))
			s.mu.Unlock()

			s.wg.Add(1)
			go s.handlePublish()
		}
	}
}

// handlePreload fills the publish slot ahead of the next publish tick.
func (s *Scheduler) handlePreload() {
	defer s.wg.Done()

	s.log.Info("preload tick")
	if err := s.pipeline.FillQueue(s.ctx); err != nil {
		s.log.Error("preload fill failed", "error", err)
	}
	s.metrics.SetQueueOccupied(s.slot.Occupied())
}

// handlePublish drains the slot and hands the item to the publisher. An
// empty slot gets one synchronous fill attempt; if the slot is still
// empty the tick is skipped and reported as an anomaly.
func (s *Scheduler) handlePublish() {
	defer s.wg.Done()

	s.log.Info("publish tick")

	item, ok := s.slot.Take()
	if !ok {
		if err := s.pipeline.FillQueue(s.ctx); err != nil {
			s.log.Error("rescue fill failed", "error", err)
		}
		item, ok = s.slot.Take()
	}
	if !ok {
		s.metrics.SchedulingAnomalies.Inc()
		s.log.Warn("publish slot empty, skipping this tick")
		if err := s.publisher.Notify(s.ctx, "publish slot was empty; skipped a publish tick"); err != nil {
			s.log.Warn("failed to notify admins", "error", err)
		}
		return
	}
	s.metrics.SetQueueOccupied(false)

	err := s.publisher.Publish(s.ctx, item.Media.LocalPath, s.caption, item.Media.IsVideo)
	if err != nil {
		s.metrics.PublishFailures.Inc()
		s.log.Error("publish failed", "id", item.Candidate.ID, "error", err)
		if notifyErr := s.publisher.Notify(s.ctx, fmt.Sprintf("publish failed: %v", err)); notifyErr != nil {
			s.log.Warn("failed to notify admins", "error", notifyErr)
		}
	} else {
		s.metrics.PostsPublished.Inc()
		s.log.Info("published", "id", item.Candidate.ID, "title", item.Candidate.Title)
	}

	// The item left the queue either way; its media is no longer needed.
	s.releaseMedia(item)
}

// runRetention prunes old history rows and wipes the temp directory. The
// wipe is skipped while the slot holds an item, because that item's media
// lives in the temp directory.
func (s *Scheduler) runRetention() {
	s.log.Info("retention tick")

	posts, fingerprints, err := s.history.Prune(s.ctx, s.retention)
	if err != nil {
		s.log.Error("history prune failed", "error", err)
	} else {
		s.log.Info("history pruned", "posts", posts, "fingerprints", fingerprints)
	}

	if s.slot.Occupied() {
		s.log.Info("temp wipe skipped, publish slot occupied")
		return
	}
	if err := s.media.CleanTempFolder(); err != nil {
		s.log.Warn("temp wipe failed", "error", err)
	}
}

// releaseMedia deletes an item's local files.
func (s *Scheduler) releaseMedia(item *domain.QueueItem) {
	if err := s.media.DeleteFile(item.Media.LocalPath); err != nil {
		s.log.Warn("failed to delete media", "path", item.Media.LocalPath, "error", err)
	}
	if item.Media.PreviewPath != item.Media.LocalPath {
		if err := s.media.DeleteFile(item.Media.PreviewPath); err != nil {
			s.log.Warn("failed to delete preview", "path", item.Media.PreviewPath, "error", err)
		}
	}
}

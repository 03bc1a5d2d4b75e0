package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
)

// schema creates the history tables when they do not exist. Hashes are
// stored in their string encoding so the column survives hash size
// changes; width-mismatched rows are simply never close to a current
// hash.
const schema = `
CREATE TABLE IF NOT EXISTS posts (
	id          TEXT PRIMARY KEY,
	url         TEXT NOT NULL,
	source_tag  TEXT NOT NULL,
	title       TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS posts_url_idx ON posts (url);
CREATE INDEX IF NOT EXISTS posts_created_at_idx ON posts (created_at);

CREATE TABLE IF NOT EXISTS fingerprints (
	hash        TEXT NOT NULL,
	caption     TEXT,
	url         TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS fingerprints_created_at_idx ON fingerprints (created_at);
`

// Store persists seen candidates and their fingerprints.
type Store struct {
	db  *sqlx.DB
	log logger.Interface
}

// NewStore creates a history store backed by db.
func NewStore(db *sqlx.DB, log logger.Interface) *Store {
	return &Store{
		db:  db,
		log: log.WithComponent("history"),
	}
}

// EnsureSchema creates the history tables if they are missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure history schema: %w", err)
	}
	return nil
}

// HasID reports whether a post with the given source ID was seen before.
func (s *Store) HasID(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`
	if err := s.db.GetContext(ctx, &exists, query, id); err != nil {
		return false, fmt.Errorf("failed to check post id: %w", err)
	}
	return exists, nil
}

// HasURL reports whether a post with the given media URL was seen before.
func (s *Store) HasURL(ctx context.Context, url string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM posts WHERE url = $1)`
	if err := s.db.GetContext(ctx, &exists, query, url); err != nil {
		return false, fmt.Errorf("failed to check post url: %w", err)
	}
	return exists, nil
}

// RecordCandidate stores a candidate as seen, regardless of whether it is
// later accepted. Recording twice is not an error.
func (s *Store) RecordCandidate(ctx context.Context, c *domain.Candidate) error {
	query := `
		INSERT INTO posts (id, url, source_tag, title)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.db.ExecContext(ctx, query, c.ID, c.URL, c.SourceTag, c.Title); err != nil {
		return fmt.Errorf("failed to record candidate: %w", err)
	}
	return nil
}

// RecordFingerprint stores a computed fingerprint.
func (s *Store) RecordFingerprint(ctx context.Context, fp *domain.Fingerprint) error {
	query := `INSERT INTO fingerprints (hash, caption, url) VALUES ($1, $2, $3)`
	if _, err := s.db.ExecContext(ctx, query, fp.Hash.String(), fp.Caption, fp.SourceURL); err != nil {
		return fmt.Errorf("failed to record fingerprint: %w", err)
	}
	return nil
}

// AllHashes returns every stored perceptual hash. Rows whose encoding no
// longer parses are skipped with a warning.
func (s *Store) AllHashes(ctx context.Context) ([]domain.Hash, error) {
	var encoded []string
	query := `SELECT hash FROM fingerprints`
	if err := s.db.SelectContext(ctx, &encoded, query); err != nil {
		return nil, fmt.Errorf("failed to load historical hashes: %w", err)
	}

	hashes := make([]domain.Hash, 0, len(encoded))
	for _, e := range encoded {
		hash, err := domain.ParseHash(e)
		if err != nil {
			s.log.Warn("skipping unparseable stored hash", "value", e, "error", err)
			continue
		}
		hashes = append(hashes, hash)
	}

	return hashes, nil
}

// AllCaptions returns every non-empty stored caption.
func (s *Store) AllCaptions(ctx context.Context) ([]string, error) {
	var captions []string
	query := `SELECT caption FROM fingerprints WHERE caption IS NOT NULL AND caption <> ''`
	if err := s.db.SelectContext(ctx, &captions, query); err != nil {
		return nil, fmt.Errorf("failed to load historical captions: %w", err)
	}

	if captions == nil {
		captions = []string{}
	}
	return captions, nil
}

// Prune deletes history rows older than maxAge and returns how many rows
// each table lost.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (posts, fingerprints int64, err error) {
	cutoff := time.Now().Add(-maxAge)

	postsResult, err := s.db.ExecContext(ctx, `DELETE FROM posts WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to prune posts: %w", err)
	}
	posts, err = postsResult.RowsAffected()
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count pruned posts: %w", err)
	}

	fpResult, err := s.db.ExecContext(ctx, `DELETE FROM fingerprints WHERE created_at < $1`, cutoff)
	if err != nil {
		return posts, 0, fmt.Errorf("failed to prune fingerprints: %w", err)
	}
	fingerprints, err = fpResult.RowsAffected()
	if err != nil {
		return posts, 0, fmt.Errorf("failed to count pruned fingerprints: %w", err)
	}

	s.log.Info("history pruned", "posts", posts, "fingerprints", fingerprints)
	return posts, fingerprints, nil
}

// Stats returns the current row counts of both history tables.
func (s *Store) Stats(ctx context.Context) (posts, fingerprints int64, err error) {
	if err = s.db.GetContext(ctx, &posts, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, 0, fmt.Errorf("failed to count posts: %w", err)
	}
	if err = s.db.GetContext(ctx, &fingerprints, `SELECT COUNT(*) FROM fingerprints`); err != nil {
		return 0, 0, fmt.Errorf("failed to count fingerprints: %w", err)
	}
	return posts, fingerprints, nil
}

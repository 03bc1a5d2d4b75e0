// Package source provides the ranked candidate feed.
package source

import (
	"context"

	"github.com/jonesrussell/gomeme/internal/domain"
)

// Interface defines the candidate feed contract: the best candidates
// available at call time, sorted by descending score.
type Interface interface {
	Fetch(ctx context.Context) ([]domain.Candidate, error)
}

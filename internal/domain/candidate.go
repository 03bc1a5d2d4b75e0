// Package domain provides domain models used across the application.
package domain

import "time"

// Candidate represents one feed item eligible for acceptance, prior to
// download and fingerprinting. Immutable once fetched.
type Candidate struct {
	// Unique identifier of the item at the source. Synthetic for
	// manually injected URLs.
	ID string `json:"id,omitempty"`
	// URL of the media to acquire.
	URL string `json:"url"`
	// Title of the item at the source.
	Title string `json:"title,omitempty"`
	// Score is the source's ranking value; candidates are evaluated in
	// descending score order.
	Score int `json:"score"`
	// SourceTag identifies where the candidate came from (e.g. subreddit).
	SourceTag string `json:"source_tag,omitempty"`
	// IsVideo reports whether the URL points at video-like media.
	IsVideo bool `json:"is_video"`
	// FetchedAt is when the candidate was pulled from the source.
	FetchedAt time.Time `json:"fetched_at"`
}

// AcquiredMedia is the canonical local representation of a downloaded
// candidate. PreviewPath is always a static image: the media itself for
// images, an extracted first frame for videos and animated formats.
type AcquiredMedia struct {
	LocalPath   string `json:"local_path"`
	PreviewPath string `json:"preview_path"`
	IsVideo     bool   `json:"is_video"`
}

// QueueItem is a candidate whose media has been acquired, fingerprinted
// and accepted, waiting in the single-slot queue for publication.
type QueueItem struct {
	Candidate Candidate     `json:"candidate"`
	Media     AcquiredMedia `json:"media"`
	// Caption is the OCR caption of the preview, nil when OCR was skipped.
	Caption *string `json:"caption,omitempty"`
	// PreparedAt is when the item was placed in the queue.
	PreparedAt time.Time `json:"prepared_at"`
}

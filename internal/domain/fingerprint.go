package domain

import "time"

// Fingerprint summarizes the visual and textual content of a piece of
// media so duplicates can be detected later.
type Fingerprint struct {
	// Hash is the perceptual hash of the preview image.
	Hash Hash `json:"hash"`
	// Caption is the normalized OCR text of the preview. An empty string
	// means no text was found; nil means OCR was skipped or failed.
	Caption *string `json:"caption,omitempty"`
	// SourceURL is the URL the media was acquired from.
	SourceURL string `json:"source_url"`
	// CreatedAt is when the fingerprint was computed.
	CreatedAt time.Time `json:"created_at"`
}

// HasCaption reports whether OCR produced any text.
func (f *Fingerprint) HasCaption() bool {
	return f.Caption != nil && *f.Caption != ""
}

// Package filter screens fingerprinted candidates against policy rules
// and the publication history.
package filter

import (
	"strings"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/fingerprint"
	"github.com/jonesrussell/gomeme/internal/logger"
)

// Rejection reasons reported to the metrics layer.
const (
	ReasonBlockedTitle   = "blocked_title"
	ReasonBlockedCaption = "blocked_caption"
	ReasonDuplicateHash  = "duplicate_hash"
)

// Filter applies the policy blocklist and perceptual duplicate screening.
type Filter struct {
	cfg       *config.FilterConfig
	log       logger.Interface
	blocklist []string
}

// New creates a Filter. Blocklist entries are normalized once so every
// comparison is case- and whitespace-insensitive.
func New(cfg *config.FilterConfig, log logger.Interface) *Filter {
	blocklist := make([]string, 0, len(cfg.TitleBlocklist))
	for _, entry := range cfg.TitleBlocklist {
		if normalized := fingerprint.NormalizeText(entry); normalized != "" {
			blocklist = append(blocklist, normalized)
		}
	}

	return &Filter{
		cfg:       cfg,
		log:       log.WithComponent("filter"),
		blocklist: blocklist,
	}
}

// TitleClean reports whether the candidate title contains no blocklisted
// term.
func (f *Filter) TitleClean(title string) bool {
	return f.textClean(fingerprint.NormalizeText(title))
}

// CaptionClean reports whether the OCR caption contains no blocklisted
// term. A nil or empty caption is always clean.
func (f *Filter) CaptionClean(caption *string) bool {
	if caption == nil || *caption == "" {
		return true
	}
	return f.textClean(fingerprint.NormalizeText(*caption))
}

func (f *Filter) textClean(normalized string) bool {
	if normalized == "" {
		return true
	}
	for _, term := range f.blocklist {
		if strings.Contains(normalized, term) {
			return false
		}
	}
	return true
}

// HashNovel reports whether hash is far enough from every historical hash.
// A distance strictly below the threshold marks a duplicate; a threshold
// of zero disables the screening entirely. Historical hashes of a
// different width are skipped rather than compared.
func (f *Filter) HashNovel(hash domain.Hash, history []domain.Hash) bool {
	if f.cfg.HashThreshold <= 0 {
		return true
	}

	for _, past := range history {
		distance, err := hash.Distance(past)
		if err != nil {
			f.log.Debug("skipping incomparable historical hash",
				"candidate", hash.String(),
				"historical", past.String(),
			)
			continue
		}
		if distance < f.cfg.HashThreshold {
			f.log.Info("duplicate hash detected",
				"distance", distance,
				"threshold", f.cfg.HashThreshold,
			)
			return false
		}
	}

	return true
}

// IsAcceptable runs every screen over a fingerprinted candidate and
// returns the first rejection reason, or an empty string when the
// candidate passes.
func (f *Filter) IsAcceptable(candidate *domain.Candidate, fp *domain.Fingerprint, history []domain.Hash) (bool, string) {
	if !f.TitleClean(candidate.Title) {
		return false, ReasonBlockedTitle
	}
	if !f.CaptionClean(fp.Caption) {
		return false, ReasonBlockedCaption
	}
	if !f.HashNovel(fp.Hash, history) {
		return false, ReasonDuplicateHash
	}
	return true, ""
}

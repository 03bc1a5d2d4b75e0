package filter

import (
	"testing"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
)

func newTestFilter(threshold int, blocklist ...string) *Filter {
	return New(&config.FilterConfig{
		HashThreshold:  threshold,
		TitleBlocklist: blocklist,
	}, logger.NewNoOp())
}

func strPtr(s string) *string { return &s }

func TestTitleClean(t *testing.T) {
	f := newTestFilter(10, "badword", "Spoiler Alert")

	tests := []struct {
		name  string
		title string
		want  bool
	}{
		{"clean title", "wholesome cat picture", true},
		{"exact blocked term", "badword", false},
		{"embedded blocked term", "such a BadWord here", false},
		{"multi word term case insensitive", "SPOILER  alert inside", false},
		{"empty title", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.TitleClean(tt.title); got != tt.want {
				t.Errorf("TitleClean(%q) = %v, want %v", tt.title, got, tt.want)
			}
		})
	}
}

func TestCaptionClean(t *testing.T) {
	f := newTestFilter(10, "badword")

	tests := []struct {
		name    string
		caption *string
		want    bool
	}{
		{"nil caption", nil, true},
		{"empty caption", strPtr(""), true},
		{"clean caption", strPtr("top text bottom text"), true},
		{"blocked caption", strPtr("this badword slipped in"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.CaptionClean(tt.caption); got != tt.want {
				t.Errorf("CaptionClean() = %v, want %v", got, tt.want)
			}
		})
	}
}

func hashOf(words ...uint64) domain.Hash {
	return domain.NewHash(words, 64*len(words))
}

func TestHashNovel(t *testing.T) {
	tests := []struct {
		name      string
		threshold int
		hash      domain.Hash
		history   []domain.Hash
		want      bool
	}{
		{
			name:      "empty history",
			threshold: 10,
			hash:      hashOf(0xff),
			history:   nil,
			want:      true,
		},
		{
			name:      "identical historical hash",
			threshold: 10,
			hash:      hashOf(0xff),
			history:   []domain.Hash{hashOf(0xff)},
			want:      false,
		},
		{
			name:      "distance below threshold",
			threshold: 10,
			hash:      hashOf(0xff),
			history:   []domain.Hash{hashOf(0xf0)},
			want:      false,
		},
		{
			name:      "distance at threshold is novel",
			threshold: 4,
			hash:      hashOf(0xff),
			history:   []domain.Hash{hashOf(0xf0)},
			want:      true,
		},
		{
			name:      "threshold zero disables screening",
			threshold: 0,
			hash:      hashOf(0xff),
			history:   []domain.Hash{hashOf(0xff)},
			want:      true,
		},
		{
			name:      "width mismatched history skipped",
			threshold: 10,
			hash:      hashOf(0xff),
			history:   []domain.Hash{hashOf(0xff, 0xff)},
			want:      true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newTestFilter(tt.threshold)
			if got := f.HashNovel(tt.hash, tt.history); got != tt.want {
				t.Errorf("HashNovel() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsAcceptable(t *testing.T) {
	f := newTestFilter(10, "badword")

	candidate := &domain.Candidate{ID: "abc", Title: "fine title"}
	blocked := &domain.Candidate{ID: "def", Title: "a badword title"}
	fp := &domain.Fingerprint{Hash: hashOf(0xff)}

	if ok, reason := f.IsAcceptable(candidate, fp, nil); !ok || reason != "" {
		t.Errorf("IsAcceptable() = (%v, %q), want (true, \"\")", ok, reason)
	}

	if ok, reason := f.IsAcceptable(blocked, fp, nil); ok || reason != ReasonBlockedTitle {
		t.Errorf("IsAcceptable() = (%v, %q), want (false, %q)", ok, reason, ReasonBlockedTitle)
	}

	captioned := &domain.Fingerprint{Hash: hashOf(0xff), Caption: strPtr("badword text")}
	if ok, reason := f.IsAcceptable(candidate, captioned, nil); ok || reason != ReasonBlockedCaption {
		t.Errorf("IsAcceptable() = (%v, %q), want (false, %q)", ok, reason, ReasonBlockedCaption)
	}

	if ok, reason := f.IsAcceptable(candidate, fp, []domain.Hash{hashOf(0xff)}); ok || reason != ReasonDuplicateHash {
		t.Errorf("IsAcceptable() = (%v, %q), want (false, %q)", ok, reason, ReasonDuplicateHash)
	}
}

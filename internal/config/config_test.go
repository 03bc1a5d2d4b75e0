package config_test

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jonesrussell/gomeme/internal/config"
)

func newViperWithBase(t *testing.T) *viper.Viper {
	t.Helper()

	v := viper.New()
	v.Set("source.subreddits", []string{"memes"})
	return v
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := config.Load(newViperWithBase(t))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, 24, cfg.Schedule.PostsPerDay)
	assert.Equal(t, 300*time.Second, cfg.Schedule.PreloadLead)
	assert.Equal(t, 30, cfg.Schedule.RetentionDays)
	assert.Equal(t, 32, cfg.Fingerprint.HashSize)
	assert.Equal(t, 30*time.Second, cfg.Fingerprint.OCRTimeout)
	assert.Equal(t, 10, cfg.Filter.HashThreshold)
	assert.Equal(t, "tmp/media", cfg.Media.TempDir)
	assert.Equal(t, 3, cfg.Source.MaxRetries)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
}

func TestLoadOverrides(t *testing.T) {
	v := newViperWithBase(t)
	v.Set("schedule.posts_per_day", 6)
	v.Set("schedule.preload_lead", "10m")
	v.Set("filter.hash_threshold", 0)
	v.Set("filter.title_blocklist", []string{"spoiler"})
	v.Set("fingerprint.ocr_enabled", true)
	v.Set("media.max_gif_size_mb", 25.5)

	cfg, err := config.Load(v)
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.Schedule.PostsPerDay)
	assert.Equal(t, 10*time.Minute, cfg.Schedule.PreloadLead)
	assert.Zero(t, cfg.Filter.HashThreshold)
	assert.Equal(t, []string{"spoiler"}, cfg.Filter.TitleBlocklist)
	assert.True(t, cfg.Fingerprint.OCREnabled)
	assert.InDelta(t, 25.5, cfg.Media.MaxGifSizeMB, 0.001)
}

func TestLoadInvalid(t *testing.T) {
	tests := []struct {
		name string
		set  map[string]any
	}{
		{"negative posts per day", map[string]any{"schedule.posts_per_day": -1}},
		{"sub-second posts per day", map[string]any{"schedule.posts_per_day": 100000}},
		{"negative start delay", map[string]any{"schedule.start_delay": "-5s"}},
		{"negative hash threshold", map[string]any{"filter.hash_threshold": -3}},
		{"negative hash size", map[string]any{"fingerprint.hash_size": -8}},
		{"negative ocr timeout", map[string]any{"fingerprint.ocr_timeout": "-1s"}},
		{"negative gif size", map[string]any{"media.max_gif_size_mb": -1.0}},
		{"no subreddits", map[string]any{"source.subreddits": []string{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := viper.New()
			v.Set("source.subreddits", []string{"memes"})
			for key, value := range tt.set {
				v.Set(key, value)
			}

			_, err := config.Load(v)
			assert.Error(t, err)
		})
	}
}

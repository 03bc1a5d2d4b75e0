package media

import (
	"encoding/xml"
	"errors"
	"testing"
)

func parseManifest(t *testing.T, doc string) *manifest {
	t.Helper()

	var m manifest
	if err := xml.Unmarshal([]byte(doc), &m); err != nil {
		t.Fatalf("failed to parse manifest fixture: %v", err)
	}
	return &m
}

func TestSelectRenditions(t *testing.T) {
	const base = "https://v.redd.it/abc"

	tests := []struct {
		name      string
		doc       string
		wantVideo string
		wantAudio string
		wantErr   error
	}{
		{
			name: "video and audio pick best of each",
			doc: `<MPD><Period>
				<AdaptationSet contentType="video">
					<Representation><BaseURL>DASH_240.mp4</BaseURL></Representation>
					<Representation><BaseURL>DASH_480.mp4</BaseURL></Representation>
					<Representation><BaseURL>DASH_720.mp4</BaseURL></Representation>
				</AdaptationSet>
				<AdaptationSet contentType="audio">
					<Representation><BaseURL>DASH_AUDIO_64.mp4</BaseURL></Representation>
					<Representation><BaseURL>DASH_AUDIO_128.mp4</BaseURL></Representation>
				</AdaptationSet>
			</Period></MPD>`,
			wantVideo: base + "/DASH_720.mp4",
			wantAudio: base + "/DASH_AUDIO_128.mp4",
		},
		{
			name: "single set without content type is video",
			doc: `<MPD><Period>
				<AdaptationSet>
					<Representation><BaseURL>DASH_360.mp4</BaseURL></Representation>
				</AdaptationSet>
			</Period></MPD>`,
			wantVideo: base + "/DASH_360.mp4",
		},
		{
			name:    "empty manifest",
			doc:     `<MPD><Period></Period></MPD>`,
			wantErr: ErrNoRenditions,
		},
		{
			name: "audio only",
			doc: `<MPD><Period>
				<AdaptationSet contentType="audio">
					<Representation><BaseURL>DASH_AUDIO_128.mp4</BaseURL></Representation>
				</AdaptationSet>
			</Period></MPD>`,
			wantErr: ErrNoRenditions,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			video, audio, err := selectRenditions(base, parseManifest(t, tt.doc))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("selectRenditions() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("selectRenditions() error = %v", err)
			}
			if video != tt.wantVideo {
				t.Errorf("video = %q, want %q", video, tt.wantVideo)
			}
			if audio != tt.wantAudio {
				t.Errorf("audio = %q, want %q", audio, tt.wantAudio)
			}
		})
	}
}

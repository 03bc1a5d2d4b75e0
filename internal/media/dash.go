package media

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jonesrussell/gomeme/internal/domain"
)

// manifestSuffix is appended to a segmented-video URL to fetch its
// rendition manifest.
const manifestSuffix = "/DASHPlaylist.mpd"

// maxManifestBytes limits the size of a fetched manifest.
const maxManifestBytes = 4 * 1024 * 1024 // 4 MB

// ErrNoRenditions is returned when a manifest lists no usable video
// rendition.
var ErrNoRenditions = errors.New("manifest lists no video renditions")

// manifest mirrors the subset of the DASH MPD document we consume.
type manifest struct {
	XMLName xml.Name `xml:"MPD"`
	Period  struct {
		AdaptationSets []adaptationSet `xml:"AdaptationSet"`
	} `xml:"Period"`
}

// adaptationSet groups the renditions of one content type.
type adaptationSet struct {
	ContentType     string        `xml:"contentType,attr"`
	Representations []rendition   `xml:"Representation"`
}

// rendition is one downloadable stream; renditions are listed in
// ascending quality order, so the last one is the best.
type rendition struct {
	BaseURL string `xml:"BaseURL"`
}

// selectRenditions picks the highest-quality video rendition and, when an
// audio adaptation set is present, the highest-quality audio rendition.
// The returned URLs are absolute; audioURL is empty when the stream has
// no audio track.
func selectRenditions(baseURL string, m *manifest) (videoURL, audioURL string, err error) {
	sets := m.Period.AdaptationSets
	if len(sets) == 0 {
		return "", "", ErrNoRenditions
	}

	var videoSet, audioSet *adaptationSet
	for i := range sets {
		switch sets[i].ContentType {
		case "video":
			videoSet = &sets[i]
		case "audio":
			audioSet = &sets[i]
		}
	}
	// Video-only manifests may omit the contentType attribute entirely.
	if videoSet == nil && len(sets) == 1 && sets[0].ContentType == "" {
		videoSet = &sets[0]
	}

	if videoSet == nil || len(videoSet.Representations) == 0 {
		return "", "", ErrNoRenditions
	}

	best := videoSet.Representations[len(videoSet.Representations)-1].BaseURL
	if best == "" {
		return "", "", ErrNoRenditions
	}
	videoURL = baseURL + "/" + best

	if audioSet != nil && len(audioSet.Representations) > 0 {
		if audio := audioSet.Representations[len(audioSet.Representations)-1].BaseURL; audio != "" {
			audioURL = baseURL + "/" + audio
		}
	}

	return videoURL, audioURL, nil
}

// fetchManifest downloads and parses the DASH manifest for url.
func (a *Acquirer) fetchManifest(ctx context.Context, url string) (*manifest, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url+manifestSuffix, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to build manifest request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("manifest fetch failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("manifest fetch returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxManifestBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m manifest
	if unmarshalErr := xml.Unmarshal(body, &m); unmarshalErr != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", unmarshalErr)
	}

	return &m, nil
}

// acquireVideo downloads a segmented video described by a manifest. When
// the manifest carries an audio rendition, audio and video parts are
// downloaded separately and muxed into one file; the temp parts are
// removed either way. The preview is the first frame of the output.
func (a *Acquirer) acquireVideo(ctx context.Context, url string) (*domain.AcquiredMedia, error) {
	m, err := a.fetchManifest(ctx, url)
	if err != nil {
		return nil, err
	}

	videoURL, audioURL, err := selectRenditions(url, m)
	if err != nil {
		return nil, err
	}

	videoPath := a.names.next("mp4")

	if audioURL != "" {
		if muxErr := a.downloadAndMux(ctx, videoURL, audioURL, videoPath); muxErr != nil {
			return nil, muxErr
		}
	} else if dlErr := a.downloadContent(ctx, videoURL, videoPath); dlErr != nil {
		return nil, dlErr
	}

	previewPath, err := a.extractFirstFrame(ctx, videoPath)
	if err != nil {
		_ = a.DeleteFile(videoPath)
		return nil, err
	}

	return &domain.AcquiredMedia{
		LocalPath:   videoPath,
		PreviewPath: previewPath,
		IsVideo:     true,
	}, nil
}

// downloadAndMux fetches the audio and video parts to temp files and muxes
// them into dest. The parts are always deleted; a mux failure leaves no
// partial output.
func (a *Acquirer) downloadAndMux(ctx context.Context, videoURL, audioURL, dest string) error {
	videoPart := a.names.next("mp4")
	audioPart := a.names.next("mp4")

	defer func() {
		_ = a.DeleteFile(videoPart)
		_ = a.DeleteFile(audioPart)
	}()

	if err := a.downloadContent(ctx, videoURL, videoPart); err != nil {
		return err
	}
	if err := a.downloadContent(ctx, audioURL, audioPart); err != nil {
		return err
	}

	if err := a.muxStreams(ctx, videoPart, audioPart, dest); err != nil {
		_ = a.DeleteFile(dest)
		return err
	}

	return nil
}

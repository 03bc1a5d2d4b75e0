package media

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/jonesrussell/gomeme/internal/domain"
)

// ffmpegBinary is resolved through PATH.
const ffmpegBinary = "ffmpeg"

// gifScaleFilter rounds both dimensions down to the nearest even number,
// a hard requirement of the yuv420p encoder.
const gifScaleFilter = "scale=trunc(iw/2)*2:trunc(ih/2)*2"

// runFFmpeg executes ffmpeg with the given arguments under the transcode
// timeout. Cancelling ctx kills the process.
func (a *Acquirer) runFFmpeg(ctx context.Context, args ...string) error {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.TranscodeTimeout)
	defer cancel()

	full := append([]string{"-y", "-hide_banner", "-loglevel", "error"}, args...)
	cmd := exec.CommandContext(ctx, ffmpegBinary, full...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	a.log.Debug("running ffmpeg", "args", strings.Join(args, " "))

	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if detail != "" {
			return fmt.Errorf("ffmpeg failed: %w: %s", err, detail)
		}
		return fmt.Errorf("ffmpeg failed: %w", err)
	}

	return nil
}

// muxStreams combines separate video and audio parts into one container
// without re-encoding.
func (a *Acquirer) muxStreams(ctx context.Context, videoPart, audioPart, dest string) error {
	return a.runFFmpeg(ctx, "-i", videoPart, "-i", audioPart, "-c", "copy", dest)
}

// extractFirstFrame decodes a single frame from the video at path into a
// canonical PNG preview.
func (a *Acquirer) extractFirstFrame(ctx context.Context, path string) (string, error) {
	previewPath := a.names.nextPreview("png")

	if err := a.runFFmpeg(ctx, "-i", path, "-vframes", "1", previewPath); err != nil {
		return "", err
	}

	if err := convertImage(previewPath); err != nil {
		_ = a.DeleteFile(previewPath)
		return "", err
	}

	return previewPath, nil
}

// acquireGif downloads a bare animated image and transcodes it to a
// scaled, even-dimensioned video container. The original animated file is
// removed once transcoded.
func (a *Acquirer) acquireGif(ctx context.Context, url string) (*domain.AcquiredMedia, error) {
	gifPath := a.names.next("gif")

	if err := a.downloadContent(ctx, url, gifPath); err != nil {
		return nil, err
	}

	videoPath := a.names.next("mp4")
	transcodeErr := a.runFFmpeg(ctx,
		"-i", gifPath,
		"-vf", gifScaleFilter,
		"-movflags", "faststart",
		"-pix_fmt", "yuv420p",
		videoPath,
	)
	_ = a.DeleteFile(gifPath)
	if transcodeErr != nil {
		_ = a.DeleteFile(videoPath)
		return nil, transcodeErr
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

// acquireGifv downloads an animated-image container. The provider serves
// the same content as plain video under a rewritten extension.
func (a *Acquirer) acquireGifv(ctx context.Context, url string) (*domain.AcquiredMedia, error) {
	videoPath := a.names.next("mp4")

	if err := a.downloadContent(ctx, strings.Replace(url, ".gifv", ".mp4", 1), videoPath); err != nil {
		return nil, err
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

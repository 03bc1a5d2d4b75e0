package media

import (
	"context"
	"fmt"
	"image"
	"image/draw"
	_ "image/jpeg" // register JPEG decoding
	"image/png"
	"io"
	"net/http"
	"os"

	"github.com/jonesrussell/gomeme/internal/domain"
)

// downloadContent fetches url and writes the body to dest. Non-2xx
// responses and the provider's removed-content placeholder are failures.
func (a *Acquirer) downloadContent(ctx context.Context, url, dest string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to build download request: %w", err)
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download returned status %d", resp.StatusCode)
	}
	if resp.Request != nil && resp.Request.URL.String() == imgurRemovedURL {
		return ErrContentRemoved
	}

	out, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dest, err)
	}

	if _, copyErr := io.Copy(out, resp.Body); copyErr != nil {
		out.Close()
		_ = a.DeleteFile(dest)
		return fmt.Errorf("failed to write %s: %w", dest, copyErr)
	}

	if closeErr := out.Close(); closeErr != nil {
		_ = a.DeleteFile(dest)
		return fmt.Errorf("failed to close %s: %w", dest, closeErr)
	}

	return nil
}

// acquireImage downloads a static image and re-encodes it to canonical
// RGBA PNG in place. The preview is the image itself.
func (a *Acquirer) acquireImage(ctx context.Context, url string) (*domain.AcquiredMedia, error) {
	path := a.names.next("png")

	if err := a.downloadContent(ctx, url, path); err != nil {
		return nil, err
	}

	if err := convertImage(path); err != nil {
		_ = a.DeleteFile(path)
		return nil, err
	}

	return &domain.AcquiredMedia{
		LocalPath:   path,
		PreviewPath: path,
		IsVideo:     false,
	}, nil
}

// convertImage re-encodes the image at path as PNG with an alpha channel,
// normalizing inconsistent source encodings.
func convertImage(path string) error {
	in, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open image: %w", err)
	}

	decoded, _, err := image.Decode(in)
	in.Close()
	if err != nil {
		return fmt.Errorf("failed to decode image: %w", err)
	}

	rgba := image.NewNRGBA(decoded.Bounds())
	draw.Draw(rgba, rgba.Bounds(), decoded, decoded.Bounds().Min, draw.Src)

	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to rewrite image: %w", err)
	}

	if encodeErr := png.Encode(out, rgba); encodeErr != nil {
		out.Close()
		return fmt.Errorf("failed to encode png: %w", encodeErr)
	}

	return out.Close()
}

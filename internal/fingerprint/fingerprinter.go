// Package fingerprint computes perceptual and textual fingerprints of
// acquired media previews for later duplicate detection.
package fingerprint

import (
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/png"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode"

	"github.com/corona10/goimagehash"

	"github.com/jonesrussell/gomeme/internal/config"
	"github.com/jonesrussell/gomeme/internal/domain"
	"github.com/jonesrussell/gomeme/internal/logger"
)

// tesseractBinary is the OCR command invoked for caption extraction.
const tesseractBinary = "tesseract"

// Fingerprinter turns a preview image into a domain.Fingerprint. The
// perceptual hash is deterministic for identical inputs; the OCR pass is
// best-effort and never fails the fingerprint.
type Fingerprinter struct {
	cfg *config.FingerprintConfig
	log logger.Interface
}

// New creates a Fingerprinter.
func New(cfg *config.FingerprintConfig, log logger.Interface) *Fingerprinter {
	return &Fingerprinter{
		cfg: cfg,
		log: log.WithComponent("fingerprint"),
	}
}

// Fingerprint computes the perceptual hash of the preview image at
// previewPath and, when OCR is enabled, its normalized caption text. A
// failed OCR pass yields a nil caption; a preview that cannot be decoded
// is an error.
func (f *Fingerprinter) Fingerprint(ctx context.Context, previewPath, sourceURL string) (*domain.Fingerprint, error) {
	img, err := decodeImage(previewPath)
	if err != nil {
		return nil, err
	}

	hash, err := f.hashImage(img)
	if err != nil {
		return nil, err
	}

	fp := &domain.Fingerprint{
		Hash:      hash,
		SourceURL: sourceURL,
		CreatedAt: time.Now(),
	}

	if f.cfg.OCREnabled {
		caption, ocrErr := f.extractCaption(ctx, previewPath)
		if ocrErr != nil {
			f.log.Warn("ocr failed, fingerprint carries no caption",
				"path", previewPath,
				"error", ocrErr,
			)
		} else {
			fp.Caption = &caption
		}
	}

	f.log.Debug("fingerprint computed",
		"url", sourceURL,
		"hash", fp.Hash.String(),
		"has_caption", fp.HasCaption(),
	)

	return fp, nil
}

// hashImage computes the difference hash of img at the configured grid
// size.
func (f *Fingerprinter) hashImage(img image.Image) (domain.Hash, error) {
	ext, err := goimagehash.ExtDifferenceHash(img, f.cfg.HashSize, f.cfg.HashSize)
	if err != nil {
		return domain.Hash{}, fmt.Errorf("failed to compute perceptual hash: %w", err)
	}

	return domain.NewHash(ext.GetHash(), f.cfg.HashSize*f.cfg.HashSize), nil
}

// extractCaption runs OCR over the preview and normalizes the output.
// The run is bounded by the configured OCR timeout so a wedged tesseract
// process cannot stall a pipeline pass.
func (f *Fingerprinter) extractCaption(ctx context.Context, previewPath string) (string, error) {
	if f.cfg.OCRTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.cfg.OCRTimeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, tesseractBinary, previewPath, "stdout")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("tesseract failed: %w: %s", err, strings.TrimSpace(stderr.String()))
	}

	return NormalizeText(stdout.String()), nil
}

// NormalizeText canonicalizes free text for comparison: lower-cased,
// runs of whitespace collapsed to single spaces, non-printable runes
// removed.
func NormalizeText(s string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, s)

	return strings.ToLower(strings.Join(strings.Fields(cleaned), " "))
}

// decodeImage opens and decodes the image at path.
func decodeImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open preview: %w", err)
	}
	defer file.Close()

	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("failed to decode preview: %w", err)
	}

	return img, nil
}

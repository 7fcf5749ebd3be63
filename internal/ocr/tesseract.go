package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractRecognizer runs Tesseract through gosseract. A gosseract client
// wraps a single TessBaseAPI handle that must not be shared between
// goroutines, so a client is created per call.
type TesseractRecognizer struct{}

// NewTesseractRecognizer verifies that the Tesseract runtime is loadable and
// that the requested languages are installed. A failure here is a startup
// error, not a per-message one.
func NewTesseractRecognizer(language string) (*TesseractRecognizer, error) {
	available, err := gosseract.GetAvailableLanguages()
	if err != nil {
		return nil, fmt.Errorf("tesseract is not available: %w", err)
	}
	for _, lang := range strings.Split(language, "+") {
		if !slices.Contains(available, lang) {
			return nil, fmt.Errorf("tesseract language %q is not installed (available: %s)", lang, strings.Join(available, ","))
		}
	}
	slog.Info("Tesseract OCR is available.", "version", gosseract.Version(), "language", language)
	return &TesseractRecognizer{}, nil
}

func (r *TesseractRecognizer) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(language, "+")...); err != nil {
		return "", fmt.Errorf("failed to set OCR language %q: %w", language, err)
	}
	if err := client.SetImageFromBytes(image); err != nil {
		return "", fmt.Errorf("failed to load image: %w", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", fmt.Errorf("tesseract recognition failed: %w", err)
	}
	return text, nil
}

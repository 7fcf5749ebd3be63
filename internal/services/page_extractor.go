package services

import (
	"context"
	"fmt"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
)

// PageExtractor recognizes the text of a single page.
type PageExtractor struct {
	recognizer port.Recognizer
	language   string
}

func NewPageExtractor(recognizer port.Recognizer, language string) *PageExtractor {
	return &PageExtractor{recognizer: recognizer, language: language}
}

func (e *PageExtractor) Extract(ctx context.Context, page models.PageUnit) (models.ExtractionResult, error) {
	text, err := e.recognizer.Recognize(ctx, page.Data, e.language)
	if err != nil {
		return models.ExtractionResult{}, fmt.Errorf("%w: page %d: %w", models.ErrPageFailed, page.Index, err)
	}
	return models.ExtractionResult{Index: page.Index, Text: text}, nil
}

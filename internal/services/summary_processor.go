package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
)

var (
	errNoText            = errors.New("no OCR text provided (neither inline nor reference)")
	errNoSummary         = errors.New("no summary got generated")
	errSummaryFailed     = errors.New("summarization failed")
	errSummaryNotEnabled = errors.New("summarization is not configured")
)

// SummaryProcessor handles one extraction result: it resolves the text
// (inline or from the text bucket) and asks the summarizer for a summary.
type SummaryProcessor struct {
	store      port.ObjectStore
	summarizer port.Summarizer
	textBucket string
	worker     string
}

func NewSummaryProcessor(store port.ObjectStore, summarizer port.Summarizer, textBucket, worker string) *SummaryProcessor {
	return &SummaryProcessor{store: store, summarizer: summarizer, textBucket: textBucket, worker: worker}
}

func (p *SummaryProcessor) Process(ctx context.Context, req models.SummaryRequest) (*models.ProcessingResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID)

	if req.Status == models.StatusFailed {
		logCtx.Warn("Upstream extraction failed; nothing to summarize.", "upstreamError", req.Error)
		return nil, fmt.Errorf("upstream extraction failed: %s", req.Error)
	}

	text := req.Text
	switch {
	case text != "":
		logCtx.Info("Using inline OCR text.", "chars", len(text))
	case req.TextReference != "":
		logCtx.Info("Downloading OCR text.", "bucket", p.textBucket, "key", req.TextReference)
		data, err := p.store.Get(ctx, p.textBucket, req.TextReference)
		if err != nil {
			return nil, fmt.Errorf("failed to download OCR text: %w", err)
		}
		text = string(data)
		logCtx.Info("Downloaded OCR text.", "chars", len(text))
	default:
		return nil, errNoText
	}

	summary := p.summarizer.Summarize(ctx, text)
	switch {
	case summary == models.NoSummaryGenerated:
		return nil, errNoSummary
	case strings.HasPrefix(summary, models.SummaryFailedPrefix):
		logCtx.Error("Summarizer reported a failure", "detail", summary)
		return nil, errSummaryFailed
	case summary == models.SummarySkipped:
		return nil, errSummaryNotEnabled
	}

	logCtx.Info("Completed summarization.", "chars", len(summary))
	return models.CompletedSummary(req.DocumentID, p.worker, summary), nil
}

// SummaryFailureMessage renders the error text of a failed summary response.
func SummaryFailureMessage(err error) string {
	switch {
	case errors.Is(err, errNoSummary):
		return "No Summary got generated"
	case errors.Is(err, errSummaryFailed):
		return "Summarization failed"
	case errors.Is(err, models.ErrInvalidRequest), errors.Is(err, errNoText), errors.Is(err, errSummaryNotEnabled):
		return err.Error()
	default:
		return fmt.Sprintf("GenAI processing failed: %v", err)
	}
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
	"github.com/Lllllllleong/documentworkers/internal/worker"
)

// OCRProcessor handles one validated extraction request: download, extract,
// route. Errors are returned unformatted to the worker handler, which turns
// them into failed responses and broker decisions.
type OCRProcessor struct {
	store     port.ObjectStore
	extractor *DocumentExtractor
	router    *ResultRouter
	worker    string
}

func NewOCRProcessor(store port.ObjectStore, extractor *DocumentExtractor, router *ResultRouter, worker string) *OCRProcessor {
	return &OCRProcessor{store: store, extractor: extractor, router: router, worker: worker}
}

func (p *OCRProcessor) Process(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, error) {
	logCtx := slog.With("documentId", req.DocumentID, "bucket", req.StorageBucket, "key", req.StorageKey)

	logCtx.Info("Downloading document.")
	data, err := p.store.Get(ctx, req.StorageBucket, req.StorageKey)
	if err != nil {
		return nil, fmt.Errorf("failed to download document: %w", err)
	}

	contentType := req.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	filename := req.OriginalFilename
	if filename == "" {
		filename = req.StorageKey
	}

	logCtx.Info("Starting OCR processing.", "state", worker.StateFetched, "sizeBytes", len(data))
	text, err := p.extractor.Process(ctx, data, contentType, filename)
	if err != nil {
		return nil, err
	}

	logCtx.Info("Routing extracted text.", "state", worker.StateExtracted, "chars", len(text))
	routed, err := p.router.Route(ctx, req.DocumentID, text)
	if err != nil {
		return nil, err
	}

	logCtx.Info("Completed OCR processing.", "state", worker.StateRouted, "external", routed.IsExternal())
	if routed.IsExternal() {
		return models.CompletedWithReference(req.DocumentID, p.worker, routed.Reference), nil
	}
	return models.Completed(req.DocumentID, p.worker, routed.Inline), nil
}

// FailureMessage renders the error text of a failed extraction response.
func FailureMessage(err error) string {
	var unsupported *models.UnsupportedTypeError
	switch {
	case errors.As(err, &unsupported):
		return "Unsupported file type: " + unsupported.Detail()
	case errors.Is(err, models.ErrUnsupportedFileType):
		return fmt.Sprintf("Unsupported file type: %v", err)
	case errors.Is(err, models.ErrInvalidRequest):
		return err.Error()
	case errors.Is(err, models.ErrObjectNotFound):
		return fmt.Sprintf("Document not found: %v", err)
	default:
		return fmt.Sprintf("OCR processing failed: %v", err)
	}
}

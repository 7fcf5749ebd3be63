package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
)

// ExtractFunction runs the OCR pipeline behind the serverless entry points:
// synchronously for HTTP requests, and for storage upload events with the
// response published to the broker.
type ExtractFunction struct {
	processor *OCRProcessor
	publisher port.Publisher
	tracker   port.StatusTracker
	worker    string
}

func NewExtractFunction(processor *OCRProcessor, publisher port.Publisher, tracker port.StatusTracker, worker string) *ExtractFunction {
	return &ExtractFunction{processor: processor, publisher: publisher, tracker: tracker, worker: worker}
}

// HandleRequest returns the response for req and the HTTP status to send.
// Transient failures map to 503 so the caller retries.
func (f *ExtractFunction) HandleRequest(ctx context.Context, req models.ProcessingRequest) (*models.ProcessingResponse, int) {
	logCtx := slog.With("documentId", req.DocumentID)

	if err := req.Validate(); err != nil {
		logCtx.Warn("Rejecting invalid request.", "error", err)
		return models.Failed(req.DocumentID, f.worker, FailureMessage(err)), http.StatusBadRequest
	}

	resp, err := f.processor.Process(ctx, req)
	if err != nil {
		resp = models.Failed(req.DocumentID, f.worker, FailureMessage(err))
		if models.IsTransient(err) {
			logCtx.Warn("Transient failure processing request.", "error", err)
			return resp, http.StatusServiceUnavailable
		}
		logCtx.Error("Failed processing document", "error", err)
	}
	f.record(ctx, resp)
	return resp, http.StatusOK
}

// HandleUpload processes a newly uploaded object. Only transient failures
// are returned, so the event is redelivered; all other outcomes are
// published as a response.
func (f *ExtractFunction) HandleUpload(ctx context.Context, e models.StorageObjectEvent) error {
	req := RequestFromUpload(e)
	logCtx := slog.With("documentId", req.DocumentID, "bucket", e.Bucket, "object", e.Name)
	if req.DocumentID == "" {
		logCtx.Warn("Ignoring event without an object name.")
		return nil
	}

	resp, err := f.processor.Process(ctx, req)
	if err != nil {
		if models.IsTransient(err) {
			logCtx.Warn("Transient failure processing upload.", "error", err)
			return err
		}
		logCtx.Error("Failed processing upload", "error", err)
		resp = models.Failed(req.DocumentID, f.worker, FailureMessage(err))
	}
	f.record(ctx, resp)

	body, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}
	if err := f.publisher.Publish(ctx, body); err != nil {
		return fmt.Errorf("failed to publish response: %w", err)
	}
	logCtx.Info("Published response.", "status", resp.Status)
	return nil
}

func (f *ExtractFunction) record(ctx context.Context, resp *models.ProcessingResponse) {
	if f.tracker == nil {
		return
	}
	if err := f.tracker.Record(ctx, resp); err != nil {
		slog.Warn("Failed to record document status.", "documentId", resp.DocumentID, "error", err)
	}
}

// RequestFromUpload derives a request from an upload event. The document ID
// is the object's base name without its extension.
func RequestFromUpload(e models.StorageObjectEvent) models.ProcessingRequest {
	base := path.Base(e.Name)
	docID := strings.TrimSuffix(base, path.Ext(base))
	if e.Name == "" || docID == "." || docID == "/" {
		docID = ""
	}
	size, _ := strconv.ParseInt(e.Size, 10, 64)
	return models.ProcessingRequest{
		DocumentID:       docID,
		OriginalFilename: base,
		ContentType:      e.ContentType,
		FileSize:         size,
		StorageBucket:    e.Bucket,
		StorageKey:       e.Name,
	}
}

package models

import "fmt"

// These structs define the JSON payloads exchanged over the message broker
// between the API, the extraction worker and the summarization worker.

const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// ProcessingRequest is the inbound message asking for text extraction.
type ProcessingRequest struct {
	DocumentID       string `json:"document_id"`
	Title            string `json:"title,omitempty"`
	OriginalFilename string `json:"original_filename,omitempty"`
	ContentType      string `json:"content_type,omitempty"`
	FileSize         int64  `json:"file_size,omitempty"`
	StorageBucket    string `json:"storage_bucket"`
	StorageKey       string `json:"storage_key"`
}

func (r ProcessingRequest) GetDocumentID() string { return r.DocumentID }

// Validate reports the first missing required field.
func (r ProcessingRequest) Validate() error {
	if r.DocumentID == "" {
		return fmt.Errorf("%w: missing required field: document_id", ErrInvalidRequest)
	}
	if r.StorageBucket == "" || r.StorageKey == "" {
		return fmt.Errorf("%w: missing required fields: storage_bucket or storage_key", ErrInvalidRequest)
	}
	return nil
}

// SummaryRequest is consumed by the summarization worker. It has the shape of
// a ProcessingResponse published by the extraction worker.
type SummaryRequest struct {
	DocumentID    string `json:"document_id"`
	Status        string `json:"status,omitempty"`
	Worker        string `json:"worker,omitempty"`
	Text          string `json:"text,omitempty"`
	TextReference string `json:"text_reference,omitempty"`
	Error         string `json:"error,omitempty"`
}

func (r SummaryRequest) GetDocumentID() string { return r.DocumentID }

func (r SummaryRequest) Validate() error {
	if r.DocumentID == "" {
		return fmt.Errorf("%w: missing required field: document_id", ErrInvalidRequest)
	}
	return nil
}

// ProcessingResponse is published for every request that can be attributed
// to a document. Use the constructors below; they keep the
// completed/failed field invariants. A completed summary response carries
// summary_text in place of text or text_reference.
type ProcessingResponse struct {
	DocumentID    string `json:"document_id"`
	Status        string `json:"status"`
	Worker        string `json:"worker"`
	Text          string `json:"text,omitempty"`
	TextReference string `json:"text_reference,omitempty"`
	SummaryText   string `json:"summary_text,omitempty"`
	Error         string `json:"error,omitempty"`
}

// Completed builds a successful response carrying inline text.
func Completed(documentID, worker, text string) *ProcessingResponse {
	return &ProcessingResponse{DocumentID: documentID, Status: StatusCompleted, Worker: worker, Text: text}
}

// CompletedWithReference builds a successful response pointing at externally stored text.
func CompletedWithReference(documentID, worker, reference string) *ProcessingResponse {
	return &ProcessingResponse{DocumentID: documentID, Status: StatusCompleted, Worker: worker, TextReference: reference}
}

// CompletedSummary builds the summarization worker's successful response.
func CompletedSummary(documentID, worker, summary string) *ProcessingResponse {
	return &ProcessingResponse{DocumentID: documentID, Status: StatusCompleted, Worker: worker, SummaryText: summary}
}

// Failed builds a failure response. An empty message is replaced so that a
// failed response always carries a readable error.
func Failed(documentID, worker, message string) *ProcessingResponse {
	if message == "" {
		message = "processing failed"
	}
	return &ProcessingResponse{DocumentID: documentID, Status: StatusFailed, Worker: worker, Error: message}
}

// Sentinel strings used where an empty payload or an error value must not
// travel downstream.
const (
	NoTextExtracted     = "[No text could be extracted from this document]"
	NoSummaryGenerated  = "[No summary generated]"
	SummaryFailedPrefix = "[Summarization failed:"
	SummarySkipped      = "[Summarization skipped: Gemini not configured]"
)

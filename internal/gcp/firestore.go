package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"

	"github.com/Lllllllleong/documentworkers/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given project ID.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// FirestoreTracker records each worker's outcome on the document's record.
// Every worker writes its own sub-map, merged into the record, so the
// extraction and summarization workers never overwrite each other and a
// redelivered message rewrites the same fields.
type FirestoreTracker struct {
	client     *firestore.Client
	collection string
	now        func() time.Time
}

func NewFirestoreTracker(client *firestore.Client, collection string) *FirestoreTracker {
	return &FirestoreTracker{client: client, collection: collection, now: time.Now}
}

func (t *FirestoreTracker) Record(ctx context.Context, resp *models.ProcessingResponse) error {
	update := map[string]interface{}{
		"documentId": resp.DocumentID,
		"workers": map[string]interface{}{
			resp.Worker: StatusRecord(resp, t.now()),
		},
	}
	if _, err := t.client.Collection(t.collection).Doc(resp.DocumentID).Set(ctx, update, firestore.MergeAll); err != nil {
		return fmt.Errorf("failed to update status for document %s: %w", resp.DocumentID, err)
	}
	return nil
}

func (t *FirestoreTracker) Close() error {
	return t.client.Close()
}

// StatusRecord converts a response into the stored per-worker status.
func StatusRecord(resp *models.ProcessingResponse, at time.Time) models.DocumentStatus {
	return models.DocumentStatus{
		DocumentID:   resp.DocumentID,
		Worker:       resp.Worker,
		Status:       resp.Status,
		ErrorDetails: resp.Error,
		TextRef:      resp.TextReference,
		UpdatedAt:    at.UTC(),
	}
}

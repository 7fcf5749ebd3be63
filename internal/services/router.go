package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Lllllllleong/documentworkers/internal/metrics"
	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
	"github.com/sethvargo/go-retry"
)

// RouterConfig controls inline vs. external delivery of extracted text.
type RouterConfig struct {
	SizeThreshold int // texts of at least this many UTF-8 bytes are stored externally
	Bucket        string
	KeyPrefix     string
	MaxRetries    uint64
	BackoffBase   time.Duration
}

// RoutedText holds exactly one of Inline or Reference.
type RoutedText struct {
	Inline    string
	Reference string
}

func (r RoutedText) IsExternal() bool { return r.Reference != "" }

// ResultRouter decides how extracted text travels downstream.
type ResultRouter struct {
	store   port.ObjectStore
	config  RouterConfig
	metrics *metrics.Metrics
}

func NewResultRouter(store port.ObjectStore, config RouterConfig, m *metrics.Metrics) *ResultRouter {
	if config.BackoffBase <= 0 {
		config.BackoffBase = time.Second
	}
	return &ResultRouter{store: store, config: config, metrics: m}
}

// ReferenceKey is the deterministic storage key for a document's text.
func (r *ResultRouter) ReferenceKey(documentID string) string {
	return fmt.Sprintf("%s%s.txt", r.config.KeyPrefix, documentID)
}

// Route returns the text inline when it is smaller than the threshold, and
// otherwise writes it to the text bucket and returns the key. Because the
// key only depends on documentID, re-routing the same document overwrites
// the same object.
func (r *ResultRouter) Route(ctx context.Context, documentID, text string) (RoutedText, error) {
	size := len(text)
	logCtx := slog.With("documentId", documentID, "sizeBytes", size, "thresholdBytes", r.config.SizeThreshold)

	if size < r.config.SizeThreshold {
		logCtx.Info("Text below threshold. Sending inline.")
		r.metrics.ObserveRoute("inline")
		return RoutedText{Inline: text}, nil
	}

	key := r.ReferenceKey(documentID)
	logCtx.Info("Text above threshold. Storing externally.", "bucket", r.config.Bucket, "key", key)

	backoff := retry.WithMaxRetries(r.config.MaxRetries, retry.NewExponential(r.config.BackoffBase))
	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := r.store.Put(ctx, r.config.Bucket, key, []byte(text), "text/plain; charset=utf-8")
		if err != nil && models.IsTransient(err) {
			logCtx.Warn("Upload failed, will retry.", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return err
	})
	if err != nil {
		logCtx.Error("Failed to store extracted text", "error", err)
		return RoutedText{}, fmt.Errorf("failed to store extracted text: %w", err)
	}
	r.metrics.ObserveRoute("external")
	return RoutedText{Reference: key}, nil
}

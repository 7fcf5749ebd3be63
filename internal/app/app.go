// Package app wires configuration into concrete components shared by the
// worker binaries and the serverless entry point.
package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/Lllllllleong/documentworkers/internal/config"
	"github.com/Lllllllleong/documentworkers/internal/gcp"
	"github.com/Lllllllleong/documentworkers/internal/metrics"
	"github.com/Lllllllleong/documentworkers/internal/ocr"
	"github.com/Lllllllleong/documentworkers/internal/pdf"
	"github.com/Lllllllleong/documentworkers/internal/port"
	"github.com/Lllllllleong/documentworkers/internal/services"
	"github.com/Lllllllleong/documentworkers/internal/storage/s3"
)

// NewLogger builds the process logger. JSON is the default format.
func NewLogger(cfg config.LogConfig, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: ParseLevel(cfg.Level)}
	if strings.EqualFold(cfg.Format, "text") {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// ParseLevel maps a level name to slog.Level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// SetupLogging installs the configured logger as the slog default.
func SetupLogging(cfg config.LogConfig) {
	slog.SetDefault(NewLogger(cfg, os.Stdout).With("service", "documentworkers"))
}

// Closers collects shutdown hooks; Close runs them in reverse order.
type Closers []func() error

func (c *Closers) Add(fn func() error) { *c = append(*c, fn) }

func (c *Closers) Close() {
	for i := len(*c) - 1; i >= 0; i-- {
		if err := (*c)[i](); err != nil {
			slog.Warn("Error during shutdown", "error", err)
		}
	}
}

// NewObjectStore returns the configured object store backend.
func NewObjectStore(ctx context.Context, cfg *config.Config, closers *Closers) (port.ObjectStore, error) {
	switch cfg.Storage.Provider {
	case "gcs":
		store, err := gcp.NewGCSStore(ctx)
		if err != nil {
			return nil, err
		}
		closers.Add(store.Close)
		return store, nil
	default:
		return s3.NewS3Client(ctx, &cfg.Storage)
	}
}

// NewStatusTracker returns a Firestore tracker, or nil when no GCP project
// is configured.
func NewStatusTracker(ctx context.Context, cfg *config.Config, closers *Closers) (port.StatusTracker, error) {
	if cfg.GCP.ProjectID == "" {
		slog.Info("GCP_PROJECT_ID not set; document status tracking disabled.")
		return nil, nil
	}
	client, err := gcp.NewFirestoreClient(ctx, cfg.GCP.ProjectID)
	if err != nil {
		return nil, err
	}
	tracker := gcp.NewFirestoreTracker(client, cfg.GCP.FirestoreCollection)
	closers.Add(tracker.Close)
	return tracker, nil
}

// NewSummarizer returns a Gemini summarizer, or a disabled one when no GCP
// project is configured.
func NewSummarizer(ctx context.Context, cfg *config.Config, closers *Closers) (port.Summarizer, error) {
	if cfg.GCP.ProjectID == "" {
		slog.Warn("GCP_PROJECT_ID not set; summarization is disabled.")
		return gcp.DisabledSummarizer{}, nil
	}
	summarizer, err := gcp.NewVertexSummarizer(ctx, cfg.GCP.ProjectID, cfg.GenAI)
	if err != nil {
		return nil, err
	}
	closers.Add(summarizer.Close)
	return summarizer, nil
}

// NewOCRProcessor builds the extraction pipeline. It fails when the
// recognition engine or its language data is unavailable.
func NewOCRProcessor(cfg *config.Config, store port.ObjectStore, m *metrics.Metrics) (*services.OCRProcessor, error) {
	recognizer, err := ocr.NewTesseractRecognizer(cfg.OCR.Language)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OCR engine: %w", err)
	}

	poolSize := cfg.OCR.PoolSize()
	splitter := services.NewPageSplitter(pdf.NewPageCounter(), pdf.NewFitzRenderer(), services.SplitterConfig{
		PageThreshold: cfg.OCR.ParallelThresholdPages,
		SizeThreshold: cfg.OCR.ParallelThresholdBytes,
		DPI:           cfg.OCR.DPI,
		PoolSize:      poolSize,
	})
	extractor := services.NewDocumentExtractor(splitter, services.NewPageExtractor(recognizer, cfg.OCR.Language), poolSize, m)
	router := services.NewResultRouter(store, services.RouterConfig{
		SizeThreshold: cfg.OCR.TextSizeThreshold,
		Bucket:        cfg.Storage.TextBucket,
		KeyPrefix:     cfg.Storage.TextKeyPrefix,
		MaxRetries:    uint64(max(cfg.Storage.PutMaxRetries, 0)),
		BackoffBase:   time.Second,
	}, m)

	slog.Info("OCR pipeline ready.",
		"language", cfg.OCR.Language,
		"dpi", cfg.OCR.DPI,
		"poolSize", poolSize,
		"textSizeThreshold", cfg.OCR.TextSizeThreshold,
	)
	return services.NewOCRProcessor(store, extractor, router, cfg.Worker.Name), nil
}

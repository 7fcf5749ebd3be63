package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"
	"github.com/joho/godotenv"

	"github.com/Lllllllleong/documentworkers/internal/app"
	"github.com/Lllllllleong/documentworkers/internal/broker/rabbitmq"
	"github.com/Lllllllleong/documentworkers/internal/config"
	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/services"
)

var (
	extractInstance *services.ExtractFunction
	once            sync.Once
	initErr         error
)

func init() {
	_ = godotenv.Load()

	functions.HTTP("HandleExtract", handleExtract)
	functions.CloudEvent("ExtractOnUpload", extractOnUpload)
}

// main runs the functions locally; on Cloud Functions the framework
// invokes the registered entry points directly.
func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

// initialize builds the shared clients once per instance. They live for
// the lifetime of the instance and are never closed.
func initialize() (*services.ExtractFunction, error) {
	cfg, err := config.Load("extract")
	if err != nil {
		return nil, err
	}
	app.SetupLogging(cfg.Log)

	ctx := context.Background()
	var closers app.Closers
	store, err := app.NewObjectStore(ctx, cfg, &closers)
	if err != nil {
		return nil, err
	}
	tracker, err := app.NewStatusTracker(ctx, cfg, &closers)
	if err != nil {
		return nil, err
	}
	processor, err := app.NewOCRProcessor(cfg, store, nil)
	if err != nil {
		return nil, err
	}
	broker, err := rabbitmq.Dial(cfg.RabbitMQ)
	if err != nil {
		return nil, err
	}
	return services.NewExtractFunction(processor, broker, tracker, cfg.Worker.Name), nil
}

func instance() (*services.ExtractFunction, error) {
	once.Do(func() {
		extractInstance, initErr = initialize()
	})
	return extractInstance, initErr
}

// handleExtract processes a ProcessingRequest posted as JSON and answers
// with the ProcessingResponse.
func handleExtract(w http.ResponseWriter, r *http.Request) {
	fn, err := instance()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.ProcessingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	resp, status := fn.HandleRequest(r.Context(), req)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}

// extractOnUpload processes an object finalized in the documents bucket.
func extractOnUpload(ctx context.Context, e cloudevents.Event) error {
	fn, err := instance()
	if err != nil {
		slog.Error("Critical error during function initialization", "error", err)
		return err
	}

	var obj models.StorageObjectEvent
	if err := json.Unmarshal(e.Data(), &obj); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	return fn.HandleUpload(ctx, obj)
}

package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/config"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load("extract")
	require.NoError(t, err)

	assert.Equal(t, "extract", cfg.Worker.Name)
	assert.Equal(t, "documents.operations", cfg.RabbitMQ.Exchange)
	assert.Equal(t, "documents.processing", cfg.RabbitMQ.Queue)
	assert.Equal(t, "documents.processing.response", cfg.RabbitMQ.ResponseQueue)
	assert.Equal(t, "s3", cfg.Storage.Provider)
	assert.Equal(t, "ocr/", cfg.Storage.TextKeyPrefix)
	assert.Equal(t, 1024*1024, cfg.OCR.TextSizeThreshold)
	assert.Equal(t, "eng", cfg.OCR.Language)
	assert.Equal(t, 300, cfg.OCR.DPI)
	assert.Equal(t, 5, cfg.OCR.ParallelThresholdPages)
	assert.Equal(t, 1024*1024, cfg.OCR.ParallelThresholdBytes)
	assert.Equal(t, 12000, cfg.GenAI.MaxInputLength)
	assert.Contains(t, cfg.GenAI.PromptTemplate, "{text}")
	assert.Empty(t, cfg.GCP.ProjectID)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("WORKER_NAME", "ocr")
	t.Setenv("RABBITMQ_HOST", "rabbit")
	t.Setenv("RABBITMQ_PORT", "5673")
	t.Setenv("RABBITMQ_QUEUE", "documents.ocr")
	t.Setenv("STORAGE_PROVIDER", "GCS")
	t.Setenv("OCR_TEXT_SIZE_THRESHOLD", "2048")
	t.Setenv("PDF_PARALLEL_THRESHOLD_PAGES", "3")
	t.Setenv("PDF_PARALLEL_THRESHOLD_BYTES", "524288")
	t.Setenv("MINIO_SECURE", "true")

	cfg, err := config.Load("extract")
	require.NoError(t, err)

	assert.Equal(t, "ocr", cfg.Worker.Name)
	assert.Equal(t, "rabbit", cfg.RabbitMQ.Host)
	assert.Equal(t, 5673, cfg.RabbitMQ.Port)
	assert.Equal(t, "documents.ocr.response", cfg.RabbitMQ.ResponseQueue)
	assert.Equal(t, "gcs", cfg.Storage.Provider)
	assert.True(t, cfg.Storage.Secure)
	assert.Equal(t, 2048, cfg.OCR.TextSizeThreshold)
	assert.Equal(t, 3, cfg.OCR.ParallelThresholdPages)
	assert.Equal(t, 512*1024, cfg.OCR.ParallelThresholdBytes)
}

func TestLoad_RejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		env  string
		val  string
	}{
		{"unknown storage provider", "STORAGE_PROVIDER", "ftp"},
		{"zero threshold", "OCR_TEXT_SIZE_THRESHOLD", "0"},
		{"negative dpi", "TESSERACT_DPI", "-1"},
		{"fraction above one", "OCR_WORKER_FRACTION", "1.5"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.env, tt.val)
			_, err := config.Load("extract")
			assert.Error(t, err)
		})
	}
}

func TestRabbitMQConfig_URL(t *testing.T) {
	r := config.RabbitMQConfig{Host: "mq", Port: 5672, User: "u", Password: "p", VHost: "/"}
	assert.Equal(t, "amqp://u:p@mq:5672/", r.URL())

	r.VHost = "/docs"
	assert.Equal(t, "amqp://u:p@mq:5672/docs", r.URL())
}

func TestOCRConfig_PoolSizeNeverBelowOne(t *testing.T) {
	o := config.OCRConfig{WorkerFraction: 0.0001}
	assert.Equal(t, 1, o.PoolSize())

	o.WorkerFraction = 1
	assert.GreaterOrEqual(t, o.PoolSize(), 1)
}

package config

import (
	"fmt"
	"math"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all worker configuration. It is built once by Load and then
// passed by pointer into every component; nothing reads the environment
// after startup.
type Config struct {
	Worker   WorkerConfig
	RabbitMQ RabbitMQConfig
	Storage  StorageConfig
	OCR      OCRConfig
	GenAI    GenAIConfig
	GCP      GCPConfig
	Log      LogConfig
	Metrics  MetricsConfig
	HTTP     HTTPConfig
}

// WorkerConfig identifies the worker in published responses.
type WorkerConfig struct {
	Name string `mapstructure:"name"`
}

// RabbitMQConfig holds broker connection and topology settings.
type RabbitMQConfig struct {
	Host               string `mapstructure:"host"`
	Port               int    `mapstructure:"port"`
	User               string `mapstructure:"user"`
	Password           string `mapstructure:"password"`
	VHost              string `mapstructure:"vhost"`
	Exchange           string `mapstructure:"exchange"`
	Queue              string `mapstructure:"queue"`
	ResponseQueue      string `mapstructure:"response_queue"`
	RoutingKeyRequest  string `mapstructure:"routing_key_request"`
	RoutingKeyResponse string `mapstructure:"routing_key_response"`
	PublishTimeoutSecs int    `mapstructure:"publish_timeout_secs"`
}

// URL returns the AMQP connection URL.
func (r *RabbitMQConfig) URL() string {
	vhost := strings.TrimPrefix(r.VHost, "/")
	return fmt.Sprintf("amqp://%s:%s@%s:%d/%s", r.User, r.Password, r.Host, r.Port, vhost)
}

// StorageConfig selects and configures the object store.
type StorageConfig struct {
	Provider        string `mapstructure:"provider"` // "s3" (MinIO compatible) or "gcs"
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	AccessKey       string `mapstructure:"access_key"`
	SecretKey       string `mapstructure:"secret_key"`
	Secure          bool   `mapstructure:"secure"`
	DocumentsBucket string `mapstructure:"documents_bucket"`
	TextBucket      string `mapstructure:"text_bucket"`
	TextKeyPrefix   string `mapstructure:"text_key_prefix"`
	PutMaxRetries   int    `mapstructure:"put_max_retries"`
}

// OCRConfig holds extraction pipeline settings.
type OCRConfig struct {
	TextSizeThreshold      int     `mapstructure:"text_size_threshold"`
	Language               string  `mapstructure:"language"`
	DPI                    int     `mapstructure:"dpi"`
	ParallelThresholdPages int     `mapstructure:"parallel_threshold_pages"`
	ParallelThresholdBytes int     `mapstructure:"parallel_threshold_bytes"`
	WorkerFraction         float64 `mapstructure:"worker_fraction"`
}

// PoolSize returns the number of concurrent page tasks: a fraction of the
// available cores, never less than one.
func (o *OCRConfig) PoolSize() int {
	n := int(math.Floor(float64(runtime.NumCPU()) * o.WorkerFraction))
	if n < 1 {
		return 1
	}
	return n
}

// GenAIConfig holds Vertex AI summarization settings.
type GenAIConfig struct {
	Region         string `mapstructure:"region"`
	Model          string `mapstructure:"model"`
	MaxInputLength int    `mapstructure:"max_input_length"`
	PromptTemplate string `mapstructure:"prompt_template"`
}

// GCPConfig holds project-wide Google Cloud settings. An empty ProjectID
// disables Firestore status tracking and Vertex AI.
type GCPConfig struct {
	ProjectID           string `mapstructure:"project_id"`
	FirestoreCollection string `mapstructure:"firestore_collection"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// MetricsConfig holds the Prometheus listener address; empty disables it.
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// HTTPConfig holds the functions-framework listener port.
type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

const defaultPromptTemplate = `
You are a document summarization assistant for a Document Management System (DMS).
Your task is to analyse the following OCR-extracted text and provide a structured summary.

Instructions:
1. Create a concise summary (2-3 sentences)
2. Identify the document type if possible
3. Also include newlines for better paragraph structure
4. Keep the summary factual and objective - do not add interpretations

Document text:
---
{text}
---

Provide the summary now.
`

// Load reads configuration from environment variables. workerName is the
// default for WORKER_NAME and lets each binary identify itself without
// extra setup.
func Load(workerName string) (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("worker.name", workerName)

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.exchange", "documents.operations")
	v.SetDefault("rabbitmq.queue", "documents.processing")
	v.SetDefault("rabbitmq.response_queue", "")
	v.SetDefault("rabbitmq.routing_key_request", "documents.request")
	v.SetDefault("rabbitmq.routing_key_response", "documents.response")
	v.SetDefault("rabbitmq.publish_timeout_secs", 30)

	v.SetDefault("storage.provider", "s3")
	v.SetDefault("storage.endpoint", "localhost:9000")
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.access_key", "minioadmin")
	v.SetDefault("storage.secret_key", "minioadmin")
	v.SetDefault("storage.secure", false)
	v.SetDefault("storage.documents_bucket", "paperless-documents")
	v.SetDefault("storage.text_bucket", "paperless-ocr-text")
	v.SetDefault("storage.text_key_prefix", "ocr/")
	v.SetDefault("storage.put_max_retries", 3)

	v.SetDefault("ocr.text_size_threshold", 1024*1024)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.parallel_threshold_pages", 5)
	v.SetDefault("ocr.parallel_threshold_bytes", 1024*1024)
	v.SetDefault("ocr.worker_fraction", 0.75)

	v.SetDefault("genai.region", "us-central1")
	v.SetDefault("genai.model", "gemini-2.5-flash")
	v.SetDefault("genai.max_input_length", 12000)
	v.SetDefault("genai.prompt_template", defaultPromptTemplate)

	v.SetDefault("gcp.project_id", "")
	v.SetDefault("gcp.firestore_collection", "documents")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("metrics.addr", "")
	v.SetDefault("http.port", "8080")

	// Variable names are shared with the rest of the platform's deployment
	// files, so they are bound explicitly instead of derived from a prefix.
	envBindings := map[string]string{
		"worker.name":                   "WORKER_NAME",
		"rabbitmq.host":                 "RABBITMQ_HOST",
		"rabbitmq.port":                 "RABBITMQ_PORT",
		"rabbitmq.user":                 "RABBITMQ_USER",
		"rabbitmq.password":             "RABBITMQ_PASSWORD",
		"rabbitmq.vhost":                "RABBITMQ_VHOST",
		"rabbitmq.exchange":             "RABBITMQ_EXCHANGE",
		"rabbitmq.queue":                "RABBITMQ_QUEUE",
		"rabbitmq.response_queue":       "RABBITMQ_RESPONSE_QUEUE",
		"rabbitmq.routing_key_request":  "RABBITMQ_ROUTING_KEY_REQUEST",
		"rabbitmq.routing_key_response": "RABBITMQ_ROUTING_KEY_RESPONSE",
		"rabbitmq.publish_timeout_secs": "RABBITMQ_PUBLISH_TIMEOUT_SECS",
		"storage.provider":              "STORAGE_PROVIDER",
		"storage.endpoint":              "MINIO_ENDPOINT",
		"storage.region":                "STORAGE_REGION",
		"storage.access_key":            "MINIO_ACCESS_KEY",
		"storage.secret_key":            "MINIO_SECRET_KEY",
		"storage.secure":                "MINIO_SECURE",
		"storage.documents_bucket":      "MINIO_DOCUMENTS_BUCKET",
		"storage.text_bucket":           "MINIO_OCR_TEXT_BUCKET",
		"storage.text_key_prefix":       "OCR_TEXT_KEY_PREFIX",
		"storage.put_max_retries":       "STORAGE_PUT_MAX_RETRIES",
		"ocr.text_size_threshold":       "OCR_TEXT_SIZE_THRESHOLD",
		"ocr.language":                  "TESSERACT_LANGUAGE",
		"ocr.dpi":                       "TESSERACT_DPI",
		"ocr.parallel_threshold_pages":  "PDF_PARALLEL_THRESHOLD_PAGES",
		"ocr.parallel_threshold_bytes":  "PDF_PARALLEL_THRESHOLD_BYTES",
		"ocr.worker_fraction":           "OCR_WORKER_FRACTION",
		"genai.region":                  "VERTEX_AI_REGION",
		"genai.model":                   "GEMINI_MODEL",
		"genai.max_input_length":        "SUMMARY_MAX_INPUT_LENGTH",
		"genai.prompt_template":         "SUMMARY_PROMPT_TEMPLATE",
		"gcp.project_id":                "GCP_PROJECT_ID",
		"gcp.firestore_collection":      "FIRESTORE_COLLECTION",
		"log.level":                     "LOG_LEVEL",
		"log.format":                    "LOG_FORMAT",
		"metrics.addr":                  "METRICS_ADDR",
		"http.port":                     "PORT",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}
	cfg.Worker = WorkerConfig{Name: v.GetString("worker.name")}

	cfg.RabbitMQ = RabbitMQConfig{
		Host:               v.GetString("rabbitmq.host"),
		Port:               v.GetInt("rabbitmq.port"),
		User:               v.GetString("rabbitmq.user"),
		Password:           v.GetString("rabbitmq.password"),
		VHost:              v.GetString("rabbitmq.vhost"),
		Exchange:           v.GetString("rabbitmq.exchange"),
		Queue:              v.GetString("rabbitmq.queue"),
		ResponseQueue:      v.GetString("rabbitmq.response_queue"),
		RoutingKeyRequest:  v.GetString("rabbitmq.routing_key_request"),
		RoutingKeyResponse: v.GetString("rabbitmq.routing_key_response"),
		PublishTimeoutSecs: v.GetInt("rabbitmq.publish_timeout_secs"),
	}
	if cfg.RabbitMQ.ResponseQueue == "" {
		cfg.RabbitMQ.ResponseQueue = cfg.RabbitMQ.Queue + ".response"
	}

	cfg.Storage = StorageConfig{
		Provider:        strings.ToLower(v.GetString("storage.provider")),
		Endpoint:        v.GetString("storage.endpoint"),
		Region:          v.GetString("storage.region"),
		AccessKey:       v.GetString("storage.access_key"),
		SecretKey:       v.GetString("storage.secret_key"),
		Secure:          v.GetBool("storage.secure"),
		DocumentsBucket: v.GetString("storage.documents_bucket"),
		TextBucket:      v.GetString("storage.text_bucket"),
		TextKeyPrefix:   v.GetString("storage.text_key_prefix"),
		PutMaxRetries:   v.GetInt("storage.put_max_retries"),
	}

	cfg.OCR = OCRConfig{
		TextSizeThreshold:      v.GetInt("ocr.text_size_threshold"),
		Language:               v.GetString("ocr.language"),
		DPI:                    v.GetInt("ocr.dpi"),
		ParallelThresholdPages: v.GetInt("ocr.parallel_threshold_pages"),
		ParallelThresholdBytes: v.GetInt("ocr.parallel_threshold_bytes"),
		WorkerFraction:         v.GetFloat64("ocr.worker_fraction"),
	}

	cfg.GenAI = GenAIConfig{
		Region:         v.GetString("genai.region"),
		Model:          v.GetString("genai.model"),
		MaxInputLength: v.GetInt("genai.max_input_length"),
		PromptTemplate: v.GetString("genai.prompt_template"),
	}

	cfg.GCP = GCPConfig{
		ProjectID:           v.GetString("gcp.project_id"),
		FirestoreCollection: v.GetString("gcp.firestore_collection"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Metrics = MetricsConfig{Addr: v.GetString("metrics.addr")}
	cfg.HTTP = HTTPConfig{Port: v.GetString("http.port")}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Storage.Provider != "s3" && c.Storage.Provider != "gcs" {
		return fmt.Errorf("STORAGE_PROVIDER must be \"s3\" or \"gcs\", got %q", c.Storage.Provider)
	}
	if c.OCR.TextSizeThreshold <= 0 {
		return fmt.Errorf("OCR_TEXT_SIZE_THRESHOLD must be positive, got %d", c.OCR.TextSizeThreshold)
	}
	if c.OCR.DPI <= 0 {
		return fmt.Errorf("TESSERACT_DPI must be positive, got %d", c.OCR.DPI)
	}
	if c.OCR.WorkerFraction <= 0 || c.OCR.WorkerFraction > 1 {
		return fmt.Errorf("OCR_WORKER_FRACTION must be in (0, 1], got %v", c.OCR.WorkerFraction)
	}
	return nil
}

package gcp

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"cloud.google.com/go/vertexai/genai"

	"github.com/Lllllllleong/documentworkers/internal/config"
	"github.com/Lllllllleong/documentworkers/internal/models"
)

const summarizerSystemPrompt = "You are a document summarization assistant. Summaries are concise, factual and written in the language of the source document."

// textPlaceholder is replaced with the (truncated) OCR text in the prompt template.
const textPlaceholder = "{text}"

// VertexSummarizer implements port.Summarizer on a Gemini model.
type VertexSummarizer struct {
	model          *genai.GenerativeModel
	baseClient     *genai.Client
	promptTemplate string
	maxInputLength int
}

// NewVertexSummarizer creates the Gemini client and configures the summary model.
func NewVertexSummarizer(ctx context.Context, projectID string, cfg config.GenAIConfig) (*VertexSummarizer, error) {
	if projectID == "" || cfg.Region == "" {
		return nil, fmt.Errorf("NewVertexSummarizer: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, cfg.Region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	return &VertexSummarizer{
		model:          configureModel(baseClient.GenerativeModel(cfg.Model)),
		baseClient:     baseClient,
		promptTemplate: cfg.PromptTemplate,
		maxInputLength: cfg.MaxInputLength,
	}, nil
}

func configureModel(model *genai.GenerativeModel) *genai.GenerativeModel {
	model.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(summarizerSystemPrompt)},
	}
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:     genai.Ptr[float32](0.7),
		TopP:            genai.Ptr[float32](0.95),
		TopK:            genai.Ptr[int32](40),
		MaxOutputTokens: genai.Ptr[int32](1024),
	}
	return model
}

// Summarize never returns an error: failures are reported through the
// models.SummaryFailedPrefix and models.NoSummaryGenerated sentinels.
func (s *VertexSummarizer) Summarize(ctx context.Context, text string) string {
	prompt := BuildPrompt(s.promptTemplate, text, s.maxInputLength)

	resp, err := s.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		slog.Error("Gemini summarization call failed", "error", err)
		return fmt.Sprintf("%s %v]", models.SummaryFailedPrefix, err)
	}

	summary := strings.TrimSpace(responseText(resp))
	if summary == "" {
		return models.NoSummaryGenerated
	}
	return summary
}

func (s *VertexSummarizer) Close() error {
	if s.baseClient != nil {
		return s.baseClient.Close()
	}
	return nil
}

// DisabledSummarizer is used when no GCP project is configured.
type DisabledSummarizer struct{}

func (DisabledSummarizer) Summarize(context.Context, string) string {
	return models.SummarySkipped
}

// BuildPrompt truncates text to maxLen characters (when maxLen > 0) and
// substitutes it for every {text} placeholder of the template.
func BuildPrompt(template, text string, maxLen int) string {
	if maxLen > 0 {
		if runes := []rune(text); len(runes) > maxLen {
			text = string(runes[:maxLen])
		}
	}
	if !strings.Contains(template, textPlaceholder) {
		return template + "\n\n" + text
	}
	return strings.ReplaceAll(template, textPlaceholder, text)
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

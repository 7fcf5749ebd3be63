package gcp

import (
	"context"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/vertexai/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/models"
)

func TestBuildPrompt(t *testing.T) {
	t.Run("substitutes placeholder", func(t *testing.T) {
		assert.Equal(t, "Summarize: hello.", BuildPrompt("Summarize: {text}.", "hello", 100))
	})

	t.Run("truncates by characters", func(t *testing.T) {
		got := BuildPrompt("{text}", "héllo wörld", 5)
		assert.Equal(t, "héllo", got)
	})

	t.Run("no limit when max is zero", func(t *testing.T) {
		long := strings.Repeat("a", 20000)
		assert.Equal(t, long, BuildPrompt("{text}", long, 0))
	})

	t.Run("appends text when template lacks placeholder", func(t *testing.T) {
		assert.Equal(t, "Summarize\n\nbody", BuildPrompt("Summarize", "body", 10))
	})
}

func TestResponseText(t *testing.T) {
	assert.Empty(t, responseText(nil))
	assert.Empty(t, responseText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []genai.Part{genai.Text("A "), genai.Text("summary")}},
		}},
	}
	assert.Equal(t, "A summary", responseText(resp))
}

func TestConfigureModel(t *testing.T) {
	model := configureModel(&genai.GenerativeModel{})

	require.NotNil(t, model.SystemInstruction)
	require.Len(t, model.SystemInstruction.Parts, 1)
	assert.Equal(t, genai.Text(summarizerSystemPrompt), model.SystemInstruction.Parts[0])
	assert.Equal(t, float32(0.7), *model.Temperature)
	assert.Equal(t, int32(1024), *model.MaxOutputTokens)
}

func TestDisabledSummarizer(t *testing.T) {
	assert.Equal(t, models.SummarySkipped, DisabledSummarizer{}.Summarize(context.Background(), "text"))
}

func TestStatusRecord(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.FixedZone("x", 3600))
	resp := models.CompletedWithReference("42", "extract", "ocr/42.txt")

	rec := StatusRecord(resp, at)

	assert.Equal(t, "42", rec.DocumentID)
	assert.Equal(t, "extract", rec.Worker)
	assert.Equal(t, models.StatusCompleted, rec.Status)
	assert.Equal(t, "ocr/42.txt", rec.TextRef)
	assert.Empty(t, rec.ErrorDetails)
	assert.Equal(t, time.UTC, rec.UpdatedAt.Location())
}

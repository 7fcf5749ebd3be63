package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/models"
)

func TestCompletedSummary_CarriesOnlySummaryText(t *testing.T) {
	body, err := json.Marshal(models.CompletedSummary("doc-1", "summarize", "A short summary."))
	require.NoError(t, err)

	var fields map[string]any
	require.NoError(t, json.Unmarshal(body, &fields))

	assert.Equal(t, "A short summary.", fields["summary_text"])
	assert.Equal(t, models.StatusCompleted, fields["status"])
	assert.NotContains(t, fields, "text")
	assert.NotContains(t, fields, "text_reference")
	assert.NotContains(t, fields, "error")
}

func TestFailed_DefaultsEmptyMessage(t *testing.T) {
	resp := models.Failed("doc-1", "extract", "")

	assert.Equal(t, models.StatusFailed, resp.Status)
	assert.Equal(t, "processing failed", resp.Error)
	assert.Empty(t, resp.Text)
}

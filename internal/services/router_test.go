package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/services"
	"github.com/Lllllllleong/documentworkers/mocks"
)

const textBucket = "paperless-ocr-text"

func newRouter(store *mocks.MockObjectStore, threshold int) *services.ResultRouter {
	return services.NewResultRouter(store, services.RouterConfig{
		SizeThreshold: threshold,
		Bucket:        textBucket,
		KeyPrefix:     "ocr/",
		MaxRetries:    2,
		BackoffBase:   time.Millisecond,
	}, nil)
}

func TestResultRouter_ReferenceKey(t *testing.T) {
	r := newRouter(new(mocks.MockObjectStore), 10)
	assert.Equal(t, "ocr/42.txt", r.ReferenceKey("42"))
	assert.Equal(t, r.ReferenceKey("42"), r.ReferenceKey("42"))
}

func TestResultRouter_Route_BelowThresholdIsInline(t *testing.T) {
	store := new(mocks.MockObjectStore)
	text := strings.Repeat("a", 9)

	routed, err := newRouter(store, 10).Route(context.Background(), "42", text)

	require.NoError(t, err)
	assert.False(t, routed.IsExternal())
	assert.Equal(t, text, routed.Inline)
	store.AssertNotCalled(t, "Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestResultRouter_Route_AtThresholdIsExternal(t *testing.T) {
	store := new(mocks.MockObjectStore)
	text := strings.Repeat("a", 10)
	store.On("Put", mock.Anything, textBucket, "ocr/42.txt", []byte(text), "text/plain; charset=utf-8").Return(nil)

	routed, err := newRouter(store, 10).Route(context.Background(), "42", text)

	require.NoError(t, err)
	assert.True(t, routed.IsExternal())
	assert.Equal(t, "ocr/42.txt", routed.Reference)
	assert.Empty(t, routed.Inline)
	store.AssertExpectations(t)
}

func TestResultRouter_Route_MeasuresUTF8Bytes(t *testing.T) {
	store := new(mocks.MockObjectStore)
	text := "ééééé" // 5 runes, 10 bytes
	store.On("Put", mock.Anything, textBucket, "ocr/7.txt", []byte(text), mock.Anything).Return(nil)

	routed, err := newRouter(store, 10).Route(context.Background(), "7", text)

	require.NoError(t, err)
	assert.True(t, routed.IsExternal())
}

func TestResultRouter_Route_RetriesTransientFailures(t *testing.T) {
	store := new(mocks.MockObjectStore)
	transient := fmt.Errorf("%w: 503", models.ErrTransient)
	store.On("Put", mock.Anything, textBucket, "ocr/42.txt", mock.Anything, mock.Anything).Return(transient).Once()
	store.On("Put", mock.Anything, textBucket, "ocr/42.txt", mock.Anything, mock.Anything).Return(nil).Once()

	routed, err := newRouter(store, 1).Route(context.Background(), "42", "text")

	require.NoError(t, err)
	assert.Equal(t, "ocr/42.txt", routed.Reference)
	store.AssertNumberOfCalls(t, "Put", 2)
}

func TestResultRouter_Route_GivesUpAfterMaxRetries(t *testing.T) {
	store := new(mocks.MockObjectStore)
	transient := fmt.Errorf("%w: 503", models.ErrTransient)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(transient)

	_, err := newRouter(store, 1).Route(context.Background(), "42", "text")

	require.Error(t, err)
	assert.True(t, models.IsTransient(err))
	store.AssertNumberOfCalls(t, "Put", 3)
}

func TestResultRouter_Route_PermanentFailureIsNotRetried(t *testing.T) {
	store := new(mocks.MockObjectStore)
	store.On("Put", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(errors.New("access denied"))

	_, err := newRouter(store, 1).Route(context.Background(), "42", "text")

	assert.ErrorContains(t, err, "failed to store extracted text: access denied")
	store.AssertNumberOfCalls(t, "Put", 1)
}

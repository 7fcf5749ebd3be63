package services_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/services"
	"github.com/Lllllllleong/documentworkers/mocks"
)

func newExtractFunction() (*services.ExtractFunction, *ocrFixture, *mocks.MockMessageBroker) {
	f := newOCRFixture(1048576)
	broker := new(mocks.MockMessageBroker)
	return services.NewExtractFunction(f.processor, broker, nil, "extract"), f, broker
}

func TestRequestFromUpload(t *testing.T) {
	req := services.RequestFromUpload(models.StorageObjectEvent{
		Bucket:      "paperless-documents",
		Name:        "uploads/2024/42.pdf",
		ContentType: "application/pdf",
		Size:        "2048",
	})

	assert.Equal(t, models.ProcessingRequest{
		DocumentID:       "42",
		OriginalFilename: "42.pdf",
		ContentType:      "application/pdf",
		FileSize:         2048,
		StorageBucket:    "paperless-documents",
		StorageKey:       "uploads/2024/42.pdf",
	}, req)
	assert.Empty(t, services.RequestFromUpload(models.StorageObjectEvent{Bucket: "b"}).DocumentID)
}

func TestExtractFunction_HandleRequest(t *testing.T) {
	t.Run("completed", func(t *testing.T) {
		fn, f, _ := newExtractFunction()
		f.store.On("Get", mock.Anything, "paperless-documents", "documents/42.png").Return([]byte("img"), nil)
		f.recognizer.On("Recognize", mock.Anything, []byte("img"), "eng").Return("Hello", nil)

		resp, status := fn.HandleRequest(context.Background(), imageRequest())

		assert.Equal(t, http.StatusOK, status)
		assert.Equal(t, models.Completed("42", "extract", "Hello"), resp)
	})

	t.Run("invalid", func(t *testing.T) {
		fn, _, _ := newExtractFunction()

		resp, status := fn.HandleRequest(context.Background(), models.ProcessingRequest{DocumentID: "42"})

		assert.Equal(t, http.StatusBadRequest, status)
		assert.Equal(t, models.StatusFailed, resp.Status)
	})

	t.Run("transient", func(t *testing.T) {
		fn, f, _ := newExtractFunction()
		f.store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: timeout", models.ErrTransient))

		_, status := fn.HandleRequest(context.Background(), imageRequest())

		assert.Equal(t, http.StatusServiceUnavailable, status)
	})
}

func TestExtractFunction_HandleUpload_PublishesResponse(t *testing.T) {
	fn, f, broker := newExtractFunction()
	f.store.On("Get", mock.Anything, "paperless-documents", "42.png").Return([]byte("img"), nil)
	f.recognizer.On("Recognize", mock.Anything, []byte("img"), "eng").Return("Hello", nil)
	var body []byte
	broker.On("Publish", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).([]byte)
	}).Return(nil)

	err := fn.HandleUpload(context.Background(), models.StorageObjectEvent{Bucket: "paperless-documents", Name: "42.png", ContentType: "image/png"})

	require.NoError(t, err)
	var resp models.ProcessingResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, "42", resp.DocumentID)
	assert.Equal(t, "Hello", resp.Text)
}

func TestExtractFunction_HandleUpload_PermanentFailureIsPublished(t *testing.T) {
	fn, f, broker := newExtractFunction()
	f.store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return([]byte("text"), nil)
	broker.On("Publish", mock.Anything, mock.Anything).Return(nil)

	err := fn.HandleUpload(context.Background(), models.StorageObjectEvent{Bucket: "b", Name: "notes.txt", ContentType: "text/plain"})

	require.NoError(t, err)
	broker.AssertNumberOfCalls(t, "Publish", 1)
}

func TestExtractFunction_HandleUpload_TransientFailureIsReturned(t *testing.T) {
	fn, f, broker := newExtractFunction()
	f.store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: 503", models.ErrTransient))

	err := fn.HandleUpload(context.Background(), models.StorageObjectEvent{Bucket: "b", Name: "42.png"})

	assert.True(t, models.IsTransient(err))
	broker.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestExtractFunction_HandleUpload_PublishError(t *testing.T) {
	fn, f, broker := newExtractFunction()
	f.store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, fmt.Errorf("%w: gone", models.ErrObjectNotFound))
	broker.On("Publish", mock.Anything, mock.Anything).Return(errors.New("no route"))

	err := fn.HandleUpload(context.Background(), models.StorageObjectEvent{Bucket: "b", Name: "42.png"})

	assert.ErrorContains(t, err, "failed to publish response: no route")
}

package services_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/services"
	"github.com/Lllllllleong/documentworkers/mocks"
)

type ocrFixture struct {
	store      *mocks.MockObjectStore
	recognizer *mocks.MockRecognizer
	processor  *services.OCRProcessor
}

func newOCRFixture(threshold int) *ocrFixture {
	f := &ocrFixture{store: new(mocks.MockObjectStore), recognizer: new(mocks.MockRecognizer)}
	splitter := newSplitter(new(mocks.MockPageCounter), new(mocks.MockPageRenderer), 5)
	extractor := services.NewDocumentExtractor(splitter, services.NewPageExtractor(f.recognizer, "eng"), 2, nil)
	router := newRouter(f.store, threshold)
	f.processor = services.NewOCRProcessor(f.store, extractor, router, "extract")
	return f
}

func imageRequest() models.ProcessingRequest {
	return models.ProcessingRequest{
		DocumentID:       "42",
		OriginalFilename: "42.png",
		ContentType:      "image/png",
		StorageBucket:    "paperless-documents",
		StorageKey:       "documents/42.png",
	}
}

func TestOCRProcessor_Process_InlineText(t *testing.T) {
	f := newOCRFixture(1048576)
	f.store.On("Get", mock.Anything, "paperless-documents", "documents/42.png").Return([]byte("img"), nil)
	f.recognizer.On("Recognize", mock.Anything, []byte("img"), "eng").Return("Hello", nil)

	resp, err := f.processor.Process(context.Background(), imageRequest())

	require.NoError(t, err)
	assert.Equal(t, models.Completed("42", "extract", "Hello"), resp)
}

func TestOCRProcessor_Process_ExternalText(t *testing.T) {
	f := newOCRFixture(10)
	long := strings.Repeat("word ", 10)
	f.store.On("Get", mock.Anything, "paperless-documents", "documents/42.png").Return([]byte("img"), nil)
	f.store.On("Put", mock.Anything, textBucket, "ocr/42.txt", []byte(strings.TrimSpace(long)), mock.Anything).Return(nil)
	f.recognizer.On("Recognize", mock.Anything, []byte("img"), "eng").Return(long, nil)

	resp, err := f.processor.Process(context.Background(), imageRequest())

	require.NoError(t, err)
	assert.Equal(t, models.StatusCompleted, resp.Status)
	assert.Equal(t, "ocr/42.txt", resp.TextReference)
	assert.Empty(t, resp.Text)
}

func TestOCRProcessor_Process_FallsBackToStorageKey(t *testing.T) {
	f := newOCRFixture(1048576)
	req := imageRequest()
	req.OriginalFilename = ""
	req.ContentType = ""
	f.store.On("Get", mock.Anything, req.StorageBucket, req.StorageKey).Return([]byte("img"), nil)
	f.recognizer.On("Recognize", mock.Anything, []byte("img"), "eng").Return("from key", nil)

	resp, err := f.processor.Process(context.Background(), req)

	require.NoError(t, err)
	assert.Equal(t, "from key", resp.Text)
}

func TestOCRProcessor_Process_DownloadErrors(t *testing.T) {
	f := newOCRFixture(1048576)
	notFound := fmt.Errorf("%w: documents/42.png", models.ErrObjectNotFound)
	f.store.On("Get", mock.Anything, mock.Anything, mock.Anything).Return(nil, notFound)

	resp, err := f.processor.Process(context.Background(), imageRequest())

	assert.Nil(t, resp)
	assert.ErrorIs(t, err, models.ErrObjectNotFound)
	assert.True(t, strings.HasPrefix(services.FailureMessage(err), "Document not found: "))
}

func TestFailureMessage(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "invalid request",
			err:  fmt.Errorf("%w: missing required field: document_id", models.ErrInvalidRequest),
			want: "invalid request: missing required field: document_id",
		},
		{
			name: "unsupported type",
			err:  &models.UnsupportedTypeError{ContentType: "text/plain"},
			want: "Unsupported file type: text/plain (extension: none)",
		},
		{
			name: "generic",
			err:  errors.New("boom"),
			want: "OCR processing failed: boom",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, services.FailureMessage(tt.err))
		})
	}
}

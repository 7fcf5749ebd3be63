package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Lllllllleong/documentworkers/internal/models"
)

// MockRecognizer is a mock implementation of port.Recognizer.
type MockRecognizer struct {
	mock.Mock
}

func (m *MockRecognizer) Recognize(ctx context.Context, image []byte, language string) (string, error) {
	args := m.Called(ctx, image, language)
	return args.String(0), args.Error(1)
}

// MockPageCounter is a mock implementation of port.PageCounter.
type MockPageCounter struct {
	mock.Mock
}

func (m *MockPageCounter) PageCount(data []byte) (int, error) {
	args := m.Called(data)
	return args.Int(0), args.Error(1)
}

// MockPageRenderer is a mock implementation of port.PageRenderer.
type MockPageRenderer struct {
	mock.Mock
}

func (m *MockPageRenderer) RenderPage(ctx context.Context, data []byte, page int, dpi int) ([]byte, error) {
	args := m.Called(ctx, data, page, dpi)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

// MockSummarizer is a mock implementation of port.Summarizer.
type MockSummarizer struct {
	mock.Mock
}

func (m *MockSummarizer) Summarize(ctx context.Context, text string) string {
	args := m.Called(ctx, text)
	return args.String(0)
}

// MockStatusTracker is a mock implementation of port.StatusTracker.
type MockStatusTracker struct {
	mock.Mock
}

func (m *MockStatusTracker) Record(ctx context.Context, resp *models.ProcessingResponse) error {
	args := m.Called(ctx, resp)
	return args.Error(0)
}

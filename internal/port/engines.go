package port

import (
	"context"

	"github.com/Lllllllleong/documentworkers/internal/models"
)

// Recognizer runs text recognition on a single raster image.
type Recognizer interface {
	Recognize(ctx context.Context, image []byte, language string) (string, error)
}

// PageCounter reads the page count of a PDF without rendering it.
type PageCounter interface {
	PageCount(data []byte) (int, error)
}

// PageRenderer rasterizes one page (1-based) of a PDF at the given DPI.
// Implementations must be safe to call concurrently for different pages of
// the same document bytes.
type PageRenderer interface {
	RenderPage(ctx context.Context, data []byte, page int, dpi int) ([]byte, error)
}

// Summarizer produces a summary. It never returns an error; failures are
// reported through the sentinel strings in the models package.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

// StatusTracker records the outcome of a worker for a document.
type StatusTracker interface {
	Record(ctx context.Context, resp *models.ProcessingResponse) error
}

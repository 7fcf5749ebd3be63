package pdf

import (
	"context"
	"fmt"

	"github.com/gen2brain/go-fitz"
)

// FitzRenderer rasterizes PDF pages to PNG with MuPDF.
//
// A fitz.Document is not safe for concurrent use, so every call opens its
// own document over the shared (read-only) input bytes. Parallel page tasks
// therefore share nothing mutable.
type FitzRenderer struct{}

func NewFitzRenderer() *FitzRenderer {
	return &FitzRenderer{}
}

func (r *FitzRenderer) RenderPage(ctx context.Context, data []byte, page int, dpi int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer doc.Close()

	if page < 1 || page > doc.NumPage() {
		return nil, fmt.Errorf("page %d out of range (document has %d pages)", page, doc.NumPage())
	}

	png, err := doc.ImagePNG(page-1, float64(dpi))
	if err != nil {
		return nil, fmt.Errorf("failed to render page %d at %d dpi: %w", page, dpi, err)
	}
	return png, nil
}

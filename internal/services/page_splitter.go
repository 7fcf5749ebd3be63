package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/Lllllllleong/documentworkers/internal/port"
	"golang.org/x/sync/errgroup"
)

// SplitterConfig holds the parallelism policy for page conversion.
type SplitterConfig struct {
	PageThreshold int // parallel when the page count exceeds this
	SizeThreshold int // or when the document exceeds this many bytes
	DPI           int
	PoolSize      int
}

// SplitResult is the ordered page sequence plus the mode it was produced in.
// Extraction reuses the same mode.
type SplitResult struct {
	Parallel bool
	Pages    []models.PageUnit
}

// PageSplitter turns a document into per-page raster images.
type PageSplitter struct {
	counter  port.PageCounter
	renderer port.PageRenderer
	config   SplitterConfig
}

func NewPageSplitter(counter port.PageCounter, renderer port.PageRenderer, config SplitterConfig) *PageSplitter {
	if config.PoolSize < 1 {
		config.PoolSize = 1
	}
	return &PageSplitter{counter: counter, renderer: renderer, config: config}
}

// UseParallel applies the "parallel if either threshold is exceeded" policy.
func (s *PageSplitter) UseParallel(totalPages, size int) bool {
	return totalPages > s.config.PageThreshold || size > s.config.SizeThreshold
}

// Split returns the pages of data. An image is returned as a single page
// without any conversion. For a PDF, a failure on any page fails the whole
// split and no pages are returned.
func (s *PageSplitter) Split(ctx context.Context, data []byte, kind models.DocumentKind) (*SplitResult, error) {
	switch kind {
	case models.KindImage:
		return &SplitResult{Pages: []models.PageUnit{{Index: 1, Data: data}}}, nil
	case models.KindPDF:
	default:
		return nil, fmt.Errorf("%w: cannot split %s input", models.ErrUnsupportedFileType, kind)
	}

	totalPages, err := s.counter.PageCount(data)
	if err != nil {
		return nil, err
	}
	parallel := s.UseParallel(totalPages, len(data))
	logCtx := slog.With("pageCount", totalPages, "sizeBytes", len(data), "parallel", parallel)
	logCtx.Info("Converting PDF pages to images.")

	pages := make([]models.PageUnit, totalPages)
	if parallel {
		eg, gctx := errgroup.WithContext(ctx)
		eg.SetLimit(s.config.PoolSize)
		for i := range pages {
			pageNumber := i + 1
			eg.Go(func() (err error) {
				defer recoverPage(pageNumber, &err)
				img, err := s.renderer.RenderPage(gctx, data, pageNumber, s.config.DPI)
				if err != nil {
					return fmt.Errorf("%w: page %d: %w", models.ErrPageFailed, pageNumber, err)
				}
				pages[pageNumber-1] = models.PageUnit{Index: pageNumber, Data: img}
				return nil
			})
		}
		if err := eg.Wait(); err != nil {
			logCtx.Error("One or more pages failed to render", "error", err)
			return nil, err
		}
	} else {
		for i := range pages {
			pageNumber := i + 1
			img, err := s.renderer.RenderPage(ctx, data, pageNumber, s.config.DPI)
			if err != nil {
				logCtx.Error("Page failed to render", "page", pageNumber, "error", err)
				return nil, fmt.Errorf("%w: page %d: %w", models.ErrPageFailed, pageNumber, err)
			}
			pages[i] = models.PageUnit{Index: pageNumber, Data: img}
		}
	}

	logCtx.Info("Converted PDF pages.", "pages", len(pages))
	return &SplitResult{Parallel: parallel, Pages: pages}, nil
}

// recoverPage turns a panic in a page task goroutine into an ErrPageFailed error.
func recoverPage(pageNumber int, err *error) {
	if r := recover(); r != nil {
		slog.Error("Recovered from panic in page task", "page", pageNumber, "panic", r)
		*err = fmt.Errorf("%w: page %d: panic: %v", models.ErrPageFailed, pageNumber, r)
	}
}

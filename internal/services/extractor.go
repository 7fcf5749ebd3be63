package services

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Lllllllleong/documentworkers/internal/metrics"
	"github.com/Lllllllleong/documentworkers/internal/models"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

var imageExtensions = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".tiff": true, ".tif": true, ".bmp": true, ".gif": true,
}

const pdfExtension = ".pdf"

// Classify decides whether the input is an image or a PDF: the filename
// extension wins, then the declared content type. Only when neither carries
// any information is the payload itself sniffed.
func Classify(contentType, filename string, data []byte) models.DocumentKind {
	ext := strings.ToLower(filepath.Ext(filename))
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	switch {
	case imageExtensions[ext]:
		return models.KindImage
	case ext == pdfExtension:
		return models.KindPDF
	case strings.HasPrefix(contentType, "image/"):
		return models.KindImage
	case strings.HasPrefix(contentType, "application/pdf"):
		return models.KindPDF
	}

	if ext == "" && (contentType == "" || contentType == "application/octet-stream") {
		return kindFromMIME(detectMIME(data))
	}
	return models.KindUnsupported
}

func detectMIME(data []byte) string {
	if len(data) == 0 {
		return "application/octet-stream"
	}
	head := data
	if len(head) > 512 {
		head = head[:512]
	}
	mt := http.DetectContentType(head)
	if mt != "application/octet-stream" {
		return mt
	}
	return mimetype.Detect(data).String()
}

func kindFromMIME(mt string) models.DocumentKind {
	switch {
	case strings.HasPrefix(mt, "image/"):
		return models.KindImage
	case strings.HasPrefix(mt, "application/pdf"):
		return models.KindPDF
	default:
		return models.KindUnsupported
	}
}

// DocumentExtractor coordinates splitting and per-page extraction and
// reassembles the page texts in page order.
type DocumentExtractor struct {
	splitter  *PageSplitter
	extractor *PageExtractor
	poolSize  int
	metrics   *metrics.Metrics
}

func NewDocumentExtractor(splitter *PageSplitter, extractor *PageExtractor, poolSize int, m *metrics.Metrics) *DocumentExtractor {
	if poolSize < 1 {
		poolSize = 1
	}
	return &DocumentExtractor{splitter: splitter, extractor: extractor, poolSize: poolSize, metrics: m}
}

// Process returns the text of the document. The result is never empty:
// when nothing could be recognized the NoTextExtracted sentinel is returned.
func (d *DocumentExtractor) Process(ctx context.Context, data []byte, contentType, filename string) (string, error) {
	kind := Classify(contentType, filename, data)
	logCtx := slog.With("filename", filename, "contentType", contentType, "kind", kind.String())

	switch kind {
	case models.KindImage:
		logCtx.Info("Processing image file.")
		res, err := d.extractor.Extract(ctx, models.PageUnit{Index: 1, Data: data})
		if err != nil {
			return "", err
		}
		d.metrics.AddPages("sequential", 1)
		text := strings.TrimSpace(res.Text)
		if text == "" {
			logCtx.Warn("No text extracted from image.")
			return models.NoTextExtracted, nil
		}
		logCtx.Info("Extracted text from image.", "chars", len(text))
		return text, nil

	case models.KindPDF:
		logCtx.Info("Processing PDF file.")
		return d.processPDF(ctx, logCtx, data)

	default:
		return "", &models.UnsupportedTypeError{ContentType: contentType, Extension: strings.ToLower(filepath.Ext(filename))}
	}
}

func (d *DocumentExtractor) processPDF(ctx context.Context, logCtx *slog.Logger, data []byte) (string, error) {
	start := time.Now()
	split, err := d.splitter.Split(ctx, data, models.KindPDF)
	if err != nil {
		return "", fmt.Errorf("failed to convert PDF: %w", err)
	}
	logCtx.Info("Converted PDF to images.", "pages", len(split.Pages), "elapsed", time.Since(start).String())

	start = time.Now()
	results, err := d.extractPages(ctx, split)
	if err != nil {
		return "", err
	}
	mode := "sequential"
	if split.Parallel {
		mode = "parallel"
	}
	d.metrics.AddPages(mode, len(results))

	text := Reassemble(results)
	logCtx.Info("OCR complete.", "chars", len(text), "pages", len(results), "mode", mode, "elapsed", time.Since(start).String())
	return text, nil
}

// extractPages mirrors the split's execution mode. Each task writes only its
// own slot, and results carry their page index.
func (d *DocumentExtractor) extractPages(ctx context.Context, split *SplitResult) ([]models.ExtractionResult, error) {
	results := make([]models.ExtractionResult, len(split.Pages))
	if !split.Parallel {
		for i, page := range split.Pages {
			res, err := d.extractor.Extract(ctx, page)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(d.poolSize)
	for i, page := range split.Pages {
		eg.Go(func() (err error) {
			defer recoverPage(page.Index, &err)
			res, err := d.extractor.Extract(gctx, page)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Reassemble joins page texts in ascending page order, independent of the
// order the results were produced in.
func Reassemble(results []models.ExtractionResult) string {
	ordered := make([]models.ExtractionResult, len(results))
	copy(ordered, results)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Index < ordered[j].Index })

	empty := true
	parts := make([]string, 0, len(ordered))
	for _, r := range ordered {
		if strings.TrimSpace(r.Text) != "" {
			empty = false
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", r.Index, r.Text))
	}
	if empty {
		return models.NoTextExtracted
	}
	return strings.TrimSpace(strings.Join(parts, "\n\n"))
}

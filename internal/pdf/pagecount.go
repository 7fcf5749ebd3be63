package pdf

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// PageCounter reads the page tree of a PDF with pdfcpu. No page content is
// decoded or rendered.
type PageCounter struct {
	conf *model.Configuration
}

// NewPageCounter returns a counter that validates in relaxed mode.
func NewPageCounter() *PageCounter {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return &PageCounter{conf: conf}
}

func (c *PageCounter) PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), c.conf)
	if err != nil {
		return 0, fmt.Errorf("failed to read page count: %w", err)
	}
	return n, nil
}

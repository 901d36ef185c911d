package render

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// ValidatePDF checks that the file at path is a readable PDF and returns its
// page count. Relaxed validation mode is used because lab scanners routinely
// emit mildly non-conformant PDFs.
func ValidatePDF(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("open file: %w", err)
	}
	defer file.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(file, conf)
	if err != nil {
		return 0, fmt.Errorf("read pdf context: %w", err)
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return 0, fmt.Errorf("ensure page count: %w", err)
	}
	return ctx.PageCount, nil
}

// pageTexts pulls the machine text layer per page. Scanned pages have no text
// layer; failures on individual pages yield "" for that page rather than
// aborting.
func pageTexts(path string, pageCount int) []string {
	texts := make([]string, pageCount)

	f, reader, err := pdf.Open(path)
	if err != nil {
		return texts
	}
	defer f.Close()

	n := reader.NumPage()
	if n > pageCount {
		n = pageCount
	}
	for i := 1; i <= n; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		content, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}
		texts[i-1] = content
	}
	return texts
}

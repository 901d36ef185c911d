package render

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"
)

// Page is one document page ready for model invocation: its 1-based number,
// the machine text layer (may be empty for scans), and the rasterized image.
type Page struct {
	Number int
	Text   string
	PNG    []byte
}

type Config struct {
	// Pdftoppm is the path or name of the pdftoppm binary.
	Pdftoppm string
	DPI      int
	MaxPages int
}

type Renderer struct {
	cfg    Config
	runner Runner
	log    *slog.Logger
}

func NewRenderer(cfg Config, runner Runner, logger *slog.Logger) *Renderer {
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 200
	}
	if runner == nil {
		runner = execRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{cfg: cfg, runner: runner, log: logger}
}

// Render validates the PDF at path, rasterizes every page to PNG and pairs
// each image with the page's text layer. Pages beyond MaxPages are dropped.
func (r *Renderer) Render(ctx context.Context, path string) ([]Page, error) {
	start := time.Now()

	pageCount, err := ValidatePDF(path)
	if err != nil {
		return nil, fmt.Errorf("validate pdf: %w", err)
	}
	if r.cfg.MaxPages > 0 && pageCount > r.cfg.MaxPages {
		r.log.Warn("render.page_cap",
			"path", path, "pages", pageCount, "max_pages", r.cfg.MaxPages)
		pageCount = r.cfg.MaxPages
	}

	texts := pageTexts(path, pageCount)

	images, err := r.rasterize(ctx, path, pageCount)
	if err != nil {
		return nil, fmt.Errorf("rasterize: %w", err)
	}

	pages := make([]Page, 0, pageCount)
	for i := 0; i < pageCount; i++ {
		var png []byte
		if i < len(images) {
			png = images[i]
		}
		pages = append(pages, Page{Number: i + 1, Text: texts[i], PNG: png})
	}

	r.log.Info("render.ok",
		"path", path,
		"pages", len(pages),
		"dpi", r.cfg.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return pages, nil
}

func (r *Renderer) rasterize(ctx context.Context, path string, pageCount int) ([][]byte, error) {
	tmpDir, err := os.MkdirTemp("", "coc-pp-*")
	if err != nil {
		return nil, err
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			r.log.Warn("render.tmp_cleanup_failed", "dir", dir, "error", err)
		}
	}(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	// pdftoppm -r <dpi> -l <lastPage> -png <in.pdf> <tmp/page>
	args := []string{"-r", fmt.Sprintf("%d", r.cfg.DPI), "-l", fmt.Sprintf("%d", pageCount), "-png", path, prefix}
	_, errb, err := r.runner.Run(ctx, r.cfg.Pdftoppm, args...)
	if err != nil {
		return nil, fmt.Errorf("pdftoppm: %w: %s", err, truncate(string(errb), 2<<10))
	}

	// collect generated pngs (prefix-1.png, prefix-2.png, ...)
	matches, _ := filepath.Glob(prefix + "-*.png")
	sort.Strings(matches)
	if len(matches) == 0 {
		return nil, fmt.Errorf("pdftoppm produced no images")
	}
	if len(matches) > pageCount {
		matches = matches[:pageCount]
	}

	images := make([][]byte, 0, len(matches))
	for _, img := range matches {
		b, err := os.ReadFile(img)
		if err != nil {
			return nil, fmt.Errorf("read rendered page %s: %w", filepath.Base(img), err)
		}
		images = append(images, b)
	}
	return images, nil
}

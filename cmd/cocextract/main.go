package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	"github.com/joseph-ayodele/coc-extractor/internal/aggregate"
	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/export"
	"github.com/joseph-ayodele/coc-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/coc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/coc-extractor/internal/render"
	"github.com/joseph-ayodele/coc-extractor/internal/watch"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	// Parse CLI flags
	var (
		file    = flag.String("file", "", "PDF file to extract (one of --file/--dir required)")
		dir     = flag.String("dir", "", "directory of PDF files to extract")
		out     = flag.String("out", "", "output directory (defaults to the input's directory)")
		xlsx    = flag.Bool("xlsx", false, "also write an XLSX workbook next to each JSON result")
		watchFl = flag.Bool("watch", false, "keep watching --dir and extract PDFs as they appear")
		workers = flag.Int("workers", 4, "concurrent extraction workers in --watch mode")
	)
	flag.Parse()

	if (*file == "") == (*dir == "") {
		printError("Error: exactly one of --file or --dir is required\n")
		os.Exit(1)
	}
	if *watchFl && *dir == "" {
		printError("Error: --watch requires --dir\n")
		os.Exit(1)
	}

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
	}, logger)
	if err != nil {
		logger.Error("failed to create model client", "error", err)
		os.Exit(1)
	}

	renderer := render.NewRenderer(render.Config{
		Pdftoppm: cfg.Render.Pdftoppm,
		DPI:      cfg.Render.DPI,
		MaxPages: cfg.Render.MaxPages,
	}, nil, logger)

	proc := pipeline.NewProcessor(logger, renderer, client)
	exporter := export.NewService(logger)

	if *watchFl {
		runWatch(ctx, proc, exporter, logger, *dir, *out, *xlsx, *workers)
		return
	}

	inputs, err := collectInputs(*file, *dir)
	if err != nil {
		logger.Error("failed to collect inputs", "error", err)
		os.Exit(1)
	}
	if len(inputs) == 0 {
		printError("Error: no PDF files found\n")
		os.Exit(1)
	}

	processed := 0
	failures := 0
	for _, path := range inputs {
		logger.Info("processing file", "file", path)
		resp, err := proc.Process(ctx, path)
		if err != nil {
			logger.Error("extraction failed", "file", path, "error", err)
			failures++
			continue
		}
		jsonPath, err := writeResult(exporter, resp, path, *out, *xlsx)
		if err != nil {
			logger.Error("failed to write result", "file", path, "error", err)
			failures++
			continue
		}
		processed++
		logger.Info("extraction complete",
			"file", path,
			"fields", len(resp.ExtractedFields),
			"samples", len(resp.SampleDataInformation),
			"output", jsonPath)
	}

	fmt.Printf("Extraction complete!\n")
	fmt.Printf("- Files processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)

	if failures > 0 {
		os.Exit(1)
	}
}

// runWatch keeps extracting PDFs as they land in dir until interrupted.
func runWatch(ctx context.Context, proc *pipeline.Processor, exporter *export.Service,
	logger *slog.Logger, dir, out string, xlsx bool, workers int) {

	queue := pipeline.NewQueue(proc, logger, func(job pipeline.Job, resp *aggregate.Response, err error) {
		if err != nil {
			return
		}
		if _, werr := writeResult(exporter, resp, job.Path, out, xlsx); werr != nil {
			logger.Error("failed to write result", "file", job.Path, "error", werr)
		}
	}, pipeline.WithWorkers(workers))

	events, errs, err := watch.Start(ctx, watch.Config{
		Roots:       []string{dir},
		InitialScan: true,
		Debounce:    2 * time.Second,
	}, logger)
	if err != nil {
		logger.Error("failed to start watcher", "dir", dir, "error", err)
		os.Exit(1)
	}

	logger.Info("watching for documents", "dir", dir, "workers", workers)
	for events != nil || errs != nil {
		select {
		case path, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			_ = queue.Enqueue(ctx, pipeline.Job{Path: path, SubmittedAt: time.Now()})
		case _, ok := <-errs:
			if !ok {
				errs = nil
			}
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Shutdown(drainCtx)
}

// writeResult writes the JSON result (and optionally a workbook) next to the
// input or under outDir when set.
func writeResult(exporter *export.Service, resp *aggregate.Response, path, outDir string, xlsx bool) (string, error) {
	if outDir == "" {
		outDir = filepath.Dir(path)
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	jsonPath := filepath.Join(outDir, base+"_results.json")

	b, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(jsonPath, b, 0644); err != nil {
		return "", err
	}

	if xlsx {
		wb, err := exporter.ExportSamplesXLSX(resp)
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(filepath.Join(outDir, base+"_results.xlsx"), wb, 0644); err != nil {
			return "", err
		}
	}
	return jsonPath, nil
}

// collectInputs resolves the --file/--dir flags to a list of PDF paths.
func collectInputs(file, dir string) ([]string, error) {
	if file != "" {
		return []string{file}, nil
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(e.Name()), ".pdf") {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

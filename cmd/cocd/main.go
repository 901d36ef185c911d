package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"

	"go.uber.org/zap"

	"github.com/joseph-ayodele/coc-extractor/internal/common"
	"github.com/joseph-ayodele/coc-extractor/internal/export"
	"github.com/joseph-ayodele/coc-extractor/internal/llm/gemini"
	"github.com/joseph-ayodele/coc-extractor/internal/pipeline"
	"github.com/joseph-ayodele/coc-extractor/internal/render"
	"github.com/joseph-ayodele/coc-extractor/internal/server"
)

func main() {
	// Logger
	logger, _ := zap.NewProduction()
	defer logger.Sync()
	log := logger.Sugar()

	// Component logger
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)

	cfg, err := common.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	// Context with signal
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := gemini.NewClient(ctx, gemini.Config{
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
		MaxAttempts: cfg.LLM.MaxAttempts,
	}, slogger)
	if err != nil {
		log.Fatalf("gemini client: %v", err)
	}

	renderer := render.NewRenderer(render.Config{
		Pdftoppm: cfg.Render.Pdftoppm,
		DPI:      cfg.Render.DPI,
		MaxPages: cfg.Render.MaxPages,
	}, nil, slogger)

	proc := pipeline.NewProcessor(slogger, renderer, client)
	srv := server.New(cfg.Server, proc, export.NewService(slogger), slogger)

	httpServer := &http.Server{
		Addr:    cfg.Server.HTTPAddr,
		Handler: srv.Router(),
	}

	go func() {
		log.Infof("HTTP serving on %s", cfg.Server.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http serve: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
	log.Info("stopped.")
}

package gemini

import (
	"context"
	"log/slog"
	"time"

	"google.golang.org/genai"
)

// Config for the Gemini client. The API key comes in explicitly; the
// process-wide env lookup belongs to the command-line config layer.
type Config struct {
	APIKey      string
	Model       string // e.g. "gemini-2.0-flash"
	Temperature float32
	Timeout     time.Duration // per-invocation deadline
	MaxAttempts int           // retries per page, including the first try
}

type Client struct {
	cfg    Config
	genai  *genai.Client
	logger *slog.Logger
}

func NewClient(ctx context.Context, cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.Model == "" {
		cfg.Model = "gemini-2.0-flash"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 90 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if logger == nil {
		logger = slog.Default()
	}

	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}

	return &Client{
		cfg:    cfg,
		genai:  gc,
		logger: logger,
	}, nil
}

package common

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server ServerConfig
	Render RenderConfig
	LLM    LLMConfig
}

type ServerConfig struct {
	HTTPAddr        string
	MaxFileSizeMB   int
	ShutdownTimeout time.Duration
}

type RenderConfig struct {
	// Pdftoppm is the path or name of the pdftoppm binary used for page
	// rasterization.
	Pdftoppm string
	DPI      int
	MaxPages int
}

type LLMConfig struct {
	Model       string
	APIKey      string
	Temperature float32
	Timeout     time.Duration
	MaxAttempts int
}

// LoadConfig reads configuration from environment variables, applying
// defaults where unset.
func LoadConfig() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
			MaxFileSizeMB:   getEnvAsInt("MAX_FILE_SIZE_MB", 25),
			ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		Render: RenderConfig{
			Pdftoppm: getEnv("PDFTOPPM_PATH", "pdftoppm"),
			DPI:      getEnvAsInt("RENDER_DPI", 200),
			MaxPages: getEnvAsInt("MAX_PAGES", 20),
		},
		LLM: LLMConfig{
			Model:       getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
			APIKey:      getEnv("GEMINI_API_KEY", ""),
			Temperature: getEnvAsFloat32("GEMINI_TEMPERATURE", 0.0),
			Timeout:     getEnvAsDuration("GEMINI_TIMEOUT", 90*time.Second),
			MaxAttempts: getEnvAsInt("GEMINI_MAX_ATTEMPTS", 3),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

func (c *Config) Validate() error {
	if c.LLM.APIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY is required")
	}
	if c.Server.MaxFileSizeMB <= 0 {
		return fmt.Errorf("MAX_FILE_SIZE_MB must be positive, got %d", c.Server.MaxFileSizeMB)
	}
	if c.Render.DPI < 72 || c.Render.DPI > 600 {
		return fmt.Errorf("RENDER_DPI must be between 72 and 600, got %d", c.Render.DPI)
	}
	if c.Render.MaxPages <= 0 {
		return fmt.Errorf("MAX_PAGES must be positive, got %d", c.Render.MaxPages)
	}
	if c.LLM.MaxAttempts <= 0 {
		return fmt.Errorf("GEMINI_MAX_ATTEMPTS must be positive, got %d", c.LLM.MaxAttempts)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatValue)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

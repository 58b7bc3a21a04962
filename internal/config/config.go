package config

import (
	"fmt"
	"os"
	"strconv"
)

type Config struct {
	Port string

	// Translation (Groq)
	GroqAPIKey string
	GroqModel  string

	// Speech synthesis
	SpeechEndpoint string
	SpeechAPIKey   string

	// Supabase persistence
	SupabaseURL        string
	SupabaseServiceKey string
	StorageBucket      string
	AudioStoragePath   string

	// Pipeline
	MaxConcurrentAnnotate int
	MaxRetries            int

	// Upload limits
	MaxUploadBytes int64

	// Intermediate output
	OutputDir string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8000"),

		GroqAPIKey: os.Getenv("GROQ_API_KEY"),
		GroqModel:  envOr("GROQ_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),

		SpeechEndpoint: os.Getenv("SPEECH_ENDPOINT"),
		SpeechAPIKey:   os.Getenv("SPEECH_API_KEY"),

		SupabaseURL:        os.Getenv("SUPABASE_URL"),
		SupabaseServiceKey: os.Getenv("SUPABASE_SERVICE_KEY"),
		StorageBucket:      envOr("SUPABASE_STORAGE_BUCKET", "audio_files"),
		AudioStoragePath:   envOr("AUDIO_STORAGE_PATH", "audio"),

		MaxConcurrentAnnotate: envInt("MAX_CONCURRENT_ANNOTATE", 4),
		MaxRetries:            envInt("MAX_RETRIES", 3),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 52428800), // 50MB

		OutputDir: envOr("OUTPUT_DIR", "output"),
	}

	if cfg.MaxConcurrentAnnotate <= 0 {
		cfg.MaxConcurrentAnnotate = 4
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 52428800
	}

	return cfg
}

func (c Config) Validate() error {
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if c.SpeechEndpoint == "" {
		return fmt.Errorf("SPEECH_ENDPOINT is required")
	}
	if c.SpeechAPIKey == "" {
		return fmt.Errorf("SPEECH_API_KEY is required")
	}
	if c.SupabaseURL == "" {
		return fmt.Errorf("SUPABASE_URL is required")
	}
	if c.SupabaseServiceKey == "" {
		return fmt.Errorf("SUPABASE_SERVICE_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docvoice/docvoice/internal/api"
	"github.com/docvoice/docvoice/internal/config"
	"github.com/docvoice/docvoice/internal/pipeline"
	"github.com/docvoice/docvoice/internal/speech"
	"github.com/docvoice/docvoice/internal/store"
	"github.com/docvoice/docvoice/internal/translate"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	// Initialize collaborator clients.
	translator := translate.NewClient(cfg.GroqAPIKey, cfg.GroqModel)
	synth := speech.NewClient(cfg.SpeechEndpoint, cfg.SpeechAPIKey)
	st := store.NewClient(cfg.SupabaseURL, cfg.SupabaseServiceKey, cfg.StorageBucket, cfg.AudioStoragePath, log)

	// Initialize pipeline.
	annotator := pipeline.NewAnnotator(translator, synth, st, log, cfg.MaxConcurrentAnnotate, cfg.MaxRetries)
	orch := pipeline.NewOrchestrator(annotator, log, cfg.OutputDir)

	// Initialize HTTP server.
	srv := api.NewServer(orch, translator, st, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		translator.Close()
		synth.Close()
		st.Close()
	}()

	log.Info("starting docvoice", "port", cfg.Port)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}

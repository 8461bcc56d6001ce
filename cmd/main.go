package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"child-speech-pipeline-service/internal/app"
	"child-speech-pipeline-service/internal/config"
	"child-speech-pipeline-service/internal/events"
	apihttp "child-speech-pipeline-service/internal/http"
	"child-speech-pipeline-service/internal/notify"
	"child-speech-pipeline-service/internal/observability"
	"child-speech-pipeline-service/internal/pipeline"
	"child-speech-pipeline-service/internal/recognize"
	"child-speech-pipeline-service/internal/store"
	"child-speech-pipeline-service/internal/transcode"
	"child-speech-pipeline-service/internal/workspace"
)

func main() {
	cfg := config.Load()
	application := app.New(cfg)
	application.Start()

	ctx := context.Background()

	st, err := store.Open(ctx, cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Storage.SQLitePath).Msg("Failed to open store")
	}
	defer st.Close()

	publisher := events.New(&events.Config{
		Enabled:   cfg.Kafka.Enabled,
		Brokers:   cfg.Kafka.Brokers,
		Topic:     cfg.Kafka.Topic,
		Principal: cfg.Service.Principal,
	})
	defer publisher.Close()

	hub := notify.NewHub()

	p := pipeline.New(pipeline.Deps{
		Workspaces: pipeline.FSWorkspaces(workspace.NewManager(cfg.Storage.WorkspaceDir)),
		Transcoder: transcode.New(cfg.Codec.BinPath, cfg.Codec.SampleRateHz, cfg.Codec.Timeout),
		Recognizer: recognize.New(
			cfg.Recognizer.Endpoint,
			cfg.Recognizer.APIKey,
			cfg.Recognizer.Language,
			cfg.Recognizer.SampleRateHz,
			cfg.Recognizer.Timeout,
		),
		Store:     st,
		Notifier:  hub,
		Publisher: publisher,
		UploadDir: cfg.Storage.UploadDir,
	})

	router := apihttp.NewRouter(
		application,
		p,
		st,
		hub,
		apihttp.HeaderChildSessions{Children: st},
		apihttp.HeaderParentSessions{Parents: st},
	)

	obs := observability.NewServer(cfg.Service.MetricsAddr, nil)
	obs.Start()

	server := &http.Server{
		Addr:        ":" + cfg.Service.HTTPPort,
		Handler:     router,
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	go func() {
		log.Info().Str("port", cfg.Service.HTTPPort).Msg("Child speech pipeline service started")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP serve failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP shutdown failed")
	}
	if err := obs.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Observability shutdown failed")
	}

	// Detached pipeline tails still hold workspaces and pending writes.
	p.Wait()
	application.Shutdown()
}

// Package main is the entry point for the chat desk server.
package main

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/capitalize-ai/chatdesk/internal/config"
	"github.com/capitalize-ai/chatdesk/internal/dispatch"
	"github.com/capitalize-ai/chatdesk/internal/handler"
	"github.com/capitalize-ai/chatdesk/internal/markup"
	"github.com/capitalize-ai/chatdesk/internal/service"
	"github.com/capitalize-ai/chatdesk/internal/store"
	"github.com/capitalize-ai/chatdesk/internal/view"
	"github.com/capitalize-ai/chatdesk/internal/voice"
	"github.com/capitalize-ai/chatdesk/pkg/logger"
	"github.com/capitalize-ai/chatdesk/pkg/tracing"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	logger.SetGlobal(log)

	log.Info("starting chat desk")

	// Initialize tracing if enabled
	ctx := context.Background()
	if cfg.TracingEnabled {
		tp, err := tracing.InitTracer(ctx, "chatdesk", cfg.TracingEndpoint)
		if err != nil {
			log.Warn("failed to initialize tracing", zap.Error(err))
		} else {
			defer tracing.Shutdown(ctx, tp)
		}
	}

	opened, err := openStore(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open store", zap.String("backend", cfg.StoreBackend), zap.Error(err))
		os.Exit(1)
	}
	defer opened.close()

	repo := store.NewRepository(opened.store, log)
	conv := view.New(markup.NewRenderer())
	dispatcher := dispatch.NewClient(dispatch.Config{
		Endpoint: cfg.ChatEndpoint,
		Timeout:  cfg.ChatTimeout,
	}, log)

	session := service.NewSession(repo, conv, dispatcher, log)
	if err := session.Start(ctx); err != nil {
		log.Error("failed to start session", zap.Error(err))
		os.Exit(1)
	}

	// Voice I/O
	speaker := voice.NewSpeaker(voice.NewExecSynthesizer(cfg.TTSBinary), repo.VoiceSettings, conv.SetSpeaking, log)
	defer speaker.Close()

	recognizer := voice.NewPushRecognizer()
	capture := voice.NewCapture(recognizer, conv, func(ctx context.Context, text string) {
		if err := session.Send(ctx, text); err != nil {
			log.Warn("failed to send captured speech", zap.Error(err))
		}
	}, cfg.MicTimeout, log)
	capture.OnStateChange(conv.SetListening)

	// Initialize handlers
	chats := handler.NewChatHandler(session, log)
	router := handler.NewRouter(handler.Handlers{
		Health:   handler.NewHealthHandler(opened.checks...),
		Chats:    chats,
		Messages: handler.NewMessageHandler(session, chats, log),
		Projects: handler.NewProjectHandler(session, log),
		Voice:    handler.NewVoiceHandler(repo, session, speaker, capture, recognizer, log),
		Stream:   handler.NewStreamHandler(chats, log),
	}, handler.RouterConfig{
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)

	// Create HTTP server. Cancelling the base context on shutdown ends open
	// view streams.
	baseCtx, stopStreams := context.WithCancel(context.Background())
	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      otelhttp.NewHandler(router, "chatdesk"),
		ReadTimeout:  cfg.ServerReadTimeout,
		WriteTimeout: cfg.ServerWriteTimeout,
		IdleTimeout:  120 * time.Second,
		BaseContext:  func(net.Listener) context.Context { return baseCtx },
	}
	server.RegisterOnShutdown(stopStreams)

	// Start server in goroutine
	go func() {
		log.Info("server listening", zap.String("port", cfg.ServerPort))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", zap.Error(err))
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server")

	// Graceful shutdown with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", zap.Error(err))
	}

	speaker.Stop()
	if err := session.SyncActiveChat(shutdownCtx); err != nil {
		log.Warn("failed to save active chat", zap.Error(err))
	}

	log.Info("server stopped")
}

func newLogger(cfg *config.Config) (*logger.Logger, error) {
	if cfg.Development() {
		return logger.NewDevelopment()
	}
	return logger.New(cfg.LogLevel)
}

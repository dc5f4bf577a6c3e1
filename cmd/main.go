package main

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"chat-rooms/auth"
	"chat-rooms/infrastructure/httpapi"
	"chat-rooms/infrastructure/ws"
	"chat-rooms/internal"
	"chat-rooms/logs"
	"chat-rooms/moderation"
	"chat-rooms/repositories"
	"chat-rooms/runtime"
	"chat-rooms/runtime/workers"
	"chat-rooms/services"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/samber/lo"
)

//go:embed censored
var censoredFS embed.FS

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so every defer executes before the process
// exits.
func run() (int, error) {
	// 1. Configuration & Logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	if config.LimitMessages == nil {
		config.LimitMessages = lo.ToPtr(50)
	}
	auth.SetSigningKey(config.JWTSecret)

	logger := logs.GetLoggerFromString(config.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 2. Storage (BadgerDB for records, Bluge for full-text search)
	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return exitRuntime, fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.DefaultConfig(config.BlugeFilepath))
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open bluge writer: %w", err)
	}
	defer func() {
		logger.Info("Closing Bluge...")
		_ = blugeWriter.Close()
	}()

	// 3. Repositories
	users := repositories.NewUserRepository(db)
	messages := repositories.NewMessageRepository(db, logger, config.LimitMessages)
	privateMessages := repositories.NewPrivateMessageRepository(db, logger)
	friendships := repositories.NewFriendshipRepository(db)
	modStore := repositories.NewModerationRepository(db)
	index := repositories.NewMessageIndex(blugeWriter, logger)

	if err := users.EnsureSystemUser(); err != nil {
		return exitRuntime, fmt.Errorf("system user bootstrap failed: %w", err)
	}

	// 4. Moderation
	wordsDir, err := fs.Sub(censoredFS, "censored")
	if err != nil {
		return exitRuntime, err
	}
	words, err := moderation.LoadWords(wordsDir)
	if err != nil {
		return exitRuntime, fmt.Errorf("censored words loading failed: %w", err)
	}
	censor, err := moderation.NewCensor(words, charReplacement)
	if err != nil {
		return exitRuntime, fmt.Errorf("censor build failed: %w", err)
	}
	gate := moderation.NewGate(modStore)

	// 5. Runtime & Services
	registry := runtime.NewRegistry()
	broadcaster := runtime.NewBroadcaster(registry, logger)

	chatService := services.NewChatService(logger, registry, broadcaster,
		users, messages, privateMessages, friendships, index, gate, censor)
	authService := services.NewAuthService(users, config.AuthTokenDuration)
	friendService := services.NewFriendService(logger, users, friendships)
	moderationService := services.NewModerationService(logger, broadcaster,
		users, messages, modStore)

	// 6. Background workers under supervision
	supervisor := workers.NewSupervisor(logger, config.RestartInterval)
	supervisor.Add(
		workers.NewSweeperWorker(logger, registry, broadcaster, config.SweepInterval, config.InactivityThreshold),
		workers.NewPrunerWorker(logger, messages, config.PruneInterval, config.MessageRetention),
		workers.NewHealthMonitoringWorker(logger, registry, config.MetricInterval),
	)
	supervisorDone := make(chan struct{})
	go func() {
		supervisor.Run(ctx)
		close(supervisorDone)
	}()

	// 7. HTTP server (REST + WebSocket upgrade)
	wsHandler := ws.NewHandler(logger, chatService, strings.Split(config.AllowedOrigins, ","))
	api := httpapi.NewAPI(logger, authService, chatService, friendService,
		moderationService, registry, wsHandler)

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      api.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return exitRuntime, fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
		logger.Info("Shutdown signal received")
	}

	// 8. Graceful shutdown: stop accepting, drain, stop workers
	shutdownCtx, cancel := context.WithTimeout(context.Background(), config.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown failed", "error", err)
	}

	supervisor.Stop()
	<-supervisorDone
	logger.Info("Server stopped")
	return exitOK, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ericfisherdev/passhost/internal/adapter/driven/backend"
	"github.com/ericfisherdev/passhost/internal/adapter/driving/nativemsg"
	"github.com/ericfisherdev/passhost/internal/application"
	"github.com/ericfisherdev/passhost/internal/config"
	"github.com/ericfisherdev/passhost/internal/crypto"
)

// shutdownTimeout bounds how long a signal waits for the in-flight request.
const shutdownTimeout = 10 * time.Second

func main() {
	// Setup signal-based context (SIGINT, SIGTERM).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		slog.Error("fatal error", "error", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	// 1. Load configuration (fail fast on a missing master key).
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	callerArgs, err := cfg.ApplyFlags(args)
	if err != nil {
		return err
	}

	// 2. Logger on stderr; stdout belongs to the browser.
	logger := cfg.NewLogger(stderr)
	slog.SetDefault(logger)
	slog.Info("config loaded",
		"backend", cfg.Backend,
		"cipher", cfg.Cipher,
		"max_message_size", cfg.MaxMessageSize,
		"caller_args", callerArgs,
	)

	// 3. Build the envelope, then wipe our copy of the key.
	alg, err := crypto.ParseAlgorithm(cfg.Cipher)
	if err != nil {
		return err
	}
	key, err := cfg.MasterKey()
	if err != nil {
		return err
	}
	envelope, err := crypto.NewEnvelope(key, alg)
	crypto.Zero(key)
	if err != nil {
		return fmt.Errorf("build envelope: %w", err)
	}

	// 4. Open the secret store.
	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		return err
	}
	store, err := backend.Open(ctx, backend.Options{
		Kind:            kind,
		ServiceName:     cfg.ServiceName,
		DBPath:          cfg.DBPath,
		MongoURI:        cfg.MongoURI,
		MongoDatabase:   cfg.MongoDatabase,
		MongoCollection: cfg.MongoCollection,
	}, logger)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			slog.Error("error closing storage backend", "error", closeErr)
		}
	}()

	// 5. Wire the dispatcher behind the native messaging server.
	dispatcher := application.NewDispatcher(envelope, store.Storage, logger)
	srv, err := nativemsg.NewServer(dispatcher, logger, cfg.MaxMessageSize)
	if err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ctx, stdin, stdout)
	}()

	slog.Info("passhost started", "backend", store.Kind, "cipher", envelope.Algorithm())

	// 6. Wait for the browser to hang up or a shutdown signal.
	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("native messaging: %w", err)
		}
		slog.Info("passhost stopped")
		return nil
	case <-ctx.Done():
		slog.Info("shutting down")
	}

	// 7. Let the in-flight request finish before the backend is closed.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("in-flight request did not finish", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// Command passhost-check verifies that the configured master key and storage
// backend work end to end. It stores a probe credential, reads it back and
// deletes it. Exit status is 0 on success and 1 otherwise.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ericfisherdev/passhost/internal/adapter/driven/backend"
	"github.com/ericfisherdev/passhost/internal/application"
	"github.com/ericfisherdev/passhost/internal/config"
	"github.com/ericfisherdev/passhost/internal/crypto"
	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

func main() {
	os.Exit(check())
}

func check() int {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "error", err)
		return 1
	}
	if _, err := cfg.ApplyFlags(os.Args[1:]); err != nil {
		slog.Error("flags", "error", err)
		return 1
	}
	logger := cfg.NewLogger(os.Stderr)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	alg, err := crypto.ParseAlgorithm(cfg.Cipher)
	if err != nil {
		logger.Error("cipher", "error", err)
		return 1
	}
	key, err := cfg.MasterKey()
	if err != nil {
		logger.Error("master key", "error", err)
		return 1
	}
	envelope, err := crypto.NewEnvelope(key, alg)
	crypto.Zero(key)
	if err != nil {
		logger.Error("envelope", "error", err)
		return 1
	}

	kind, err := backend.ParseKind(cfg.Backend)
	if err != nil {
		logger.Error("backend", "error", err)
		return 1
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
		logger.Error("open backend", "error", err)
		return 1
	}
	defer func() { _ = store.Close() }()

	if err := probe(ctx, application.NewDispatcher(envelope, store.Storage, logger), store.Storage); err != nil {
		logger.Error("probe failed", "backend", store.Kind, "error", err)
		return 1
	}

	logger.Info("probe succeeded", "backend", store.Kind, "cipher", envelope.Algorithm())
	return 0
}

// probe round-trips a throwaway credential under a unique URL so it can never
// collide with a real entry.
func probe(ctx context.Context, d *application.Dispatcher, storage driven.SecureStorage) error {
	want := model.Credential{
		Username: "passhost-check",
		Password: uuid.NewString(),
		URL:      "passhost-check://" + uuid.NewString(),
	}

	if err := d.SaveCredential(ctx, want); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	got, err := d.GetCredential(ctx, want.URL)
	if err != nil {
		_ = storage.Delete(ctx, want.URL)
		return fmt.Errorf("get: %w", err)
	}
	if got != want {
		_ = storage.Delete(ctx, want.URL)
		return errors.New("get: credential mismatch")
	}
	if err := d.DeleteCredential(ctx, want.URL); err != nil {
		return fmt.Errorf("delete: %w", err)
	}
	if _, err := d.GetCredential(ctx, want.URL); !errors.Is(err, model.ErrNotFound) {
		return fmt.Errorf("get after delete: want not found, got %v", err)
	}
	return nil
}

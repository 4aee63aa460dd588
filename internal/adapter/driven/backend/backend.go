// Package backend selects and opens the SecureStorage implementation for the
// process. The choice is made once at startup; an unsupported platform is a
// construction error, never a crash.
package backend

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/ericfisherdev/passhost/internal/adapter/driven/keyring"
	"github.com/ericfisherdev/passhost/internal/adapter/driven/memory"
	mongoadapter "github.com/ericfisherdev/passhost/internal/adapter/driven/mongo"
	sqliteadapter "github.com/ericfisherdev/passhost/internal/adapter/driven/sqlite"
	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

// Kind names a storage backend.
type Kind string

const (
	KindAuto    Kind = "auto"
	KindKeyring Kind = "keyring"
	KindSQLite  Kind = "sqlite"
	KindMongo   Kind = "mongo"
	KindMemory  Kind = "memory"
)

// ParseKind maps a configuration value to a Kind. Empty means KindAuto.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case "":
		return KindAuto, nil
	case KindAuto, KindKeyring, KindSQLite, KindMongo, KindMemory:
		return k, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q", s)
	}
}

// keyringPlatforms lists the GOOS values with an OS secret store.
var keyringPlatforms = map[string]bool{
	"linux":   true,
	"darwin":  true,
	"windows": true,
	"freebsd": true,
	"openbsd": true,
}

// Resolve turns kind into a concrete backend for goos. KindAuto picks the OS
// secret store. Asking for the keyring where none exists returns
// model.ErrPlatformUnsupported.
func Resolve(kind Kind, goos string) (Kind, error) {
	switch kind {
	case KindAuto, KindKeyring:
		if !keyringPlatforms[goos] {
			return "", fmt.Errorf("%w: no secret store for %s", model.ErrPlatformUnsupported, goos)
		}
		return KindKeyring, nil
	case KindSQLite, KindMongo, KindMemory:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown storage backend %q", kind)
	}
}

// Options configure Open.
type Options struct {
	Kind            Kind
	ServiceName     string
	DBPath          string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
}

// Handle is an opened backend. Close releases whatever the backend holds.
type Handle struct {
	Storage driven.SecureStorage
	Kind    Kind
	close   func() error
}

// Close releases the backend. It is safe to call on a backend that holds nothing.
func (h *Handle) Close() error {
	if h.close == nil {
		return nil
	}
	return h.close()
}

// Open resolves opts.Kind for the running platform and opens it. A nil
// logger falls back to slog.Default().
func Open(ctx context.Context, opts Options, logger *slog.Logger) (*Handle, error) {
	return openFor(ctx, opts, runtime.GOOS, logger)
}

func openFor(ctx context.Context, opts Options, goos string, logger *slog.Logger) (*Handle, error) {
	if logger == nil {
		logger = slog.Default()
	}
	kind, err := Resolve(opts.Kind, goos)
	if err != nil {
		return nil, err
	}

	var h *Handle
	switch kind {
	case KindKeyring:
		store := keyring.NewStore(opts.ServiceName)
		h = &Handle{Storage: store, Kind: kind}
		logger.Info("storage backend opened", "backend", kind, "service", store.Service())

	case KindSQLite:
		db, err := sqliteadapter.NewDB(ctx, opts.DBPath)
		if err != nil {
			return nil, fmt.Errorf("%w: open sqlite %q: %w", model.ErrStorage, opts.DBPath, err)
		}
		version, err := sqliteadapter.RunMigrations(db.Writer)
		if err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("%w: %w", model.ErrStorage, err)
		}
		h = &Handle{Storage: sqliteadapter.NewSecretRepo(db), Kind: kind, close: db.Close}
		logger.Info("storage backend opened", "backend", kind, "path", opts.DBPath, "schema_version", version)

	case KindMongo:
		store, err := mongoadapter.NewStore(ctx, opts.MongoURI, opts.MongoDatabase, opts.MongoCollection)
		if err != nil {
			return nil, err
		}
		h = &Handle{Storage: store, Kind: kind, close: store.Close}
		logger.Info("storage backend opened", "backend", kind,
			"database", opts.MongoDatabase, "collection", opts.MongoCollection)

	case KindMemory:
		h = &Handle{Storage: memory.NewStore(), Kind: kind}
		logger.Warn("storage backend opened; credentials will not persist", "backend", kind)
	}

	return h, nil
}

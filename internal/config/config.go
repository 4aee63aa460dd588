// Package config loads application configuration from environment variables.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/pflag"

	"github.com/ericfisherdev/passhost/internal/crypto"
)

// Config holds the application configuration loaded from environment variables.
type Config struct {
	// SecretKey is the 32-byte master key when given directly.
	SecretKey []byte
	// Passphrase and KDFSalt derive the master key when SecretKey is absent.
	Passphrase string
	KDFSalt    []byte

	Backend         string
	ServiceName     string
	Cipher          string
	DBPath          string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	MaxMessageSize  int

	LogLevel  slog.Level
	LogFormat string
}

// ErrMasterKeyNotSet is returned by Load when no key source is configured.
// The host refuses to fall back to a built-in key.
var ErrMasterKeyNotSet = errors.New("master key not configured: set PASSHOST_SECRET_KEY or PASSHOST_PASSPHRASE and PASSHOST_KDF_SALT")

// Load reads configuration from environment variables and returns a validated Config.
// A master key source is required: PASSHOST_SECRET_KEY (64 hex chars), or
// PASSHOST_PASSPHRASE with PASSHOST_KDF_SALT (hex, at least 16 bytes).
// Optional variables with defaults: PASSHOST_BACKEND (auto),
// PASSHOST_SERVICE_NAME (password_manager_service), PASSHOST_CIPHER (aes-256-gcm),
// PASSHOST_DB_PATH (passhost.db), PASSHOST_MONGO_DATABASE (passhost),
// PASSHOST_MONGO_COLLECTION (secrets), PASSHOST_MAX_MESSAGE_SIZE (4194304),
// PASSHOST_LOG_LEVEL (info), PASSHOST_LOG_FORMAT (text).
func Load() (*Config, error) {
	cfg := &Config{
		Backend:         "auto",
		ServiceName:     "password_manager_service",
		Cipher:          "aes-256-gcm",
		DBPath:          "passhost.db",
		MongoDatabase:   "passhost",
		MongoCollection: "secrets",
		MaxMessageSize:  4 << 20,
		LogLevel:        slog.LevelInfo,
		LogFormat:       "text",
	}

	if v, ok := os.LookupEnv("PASSHOST_SECRET_KEY"); ok && v != "" {
		key, err := hex.DecodeString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("PASSHOST_SECRET_KEY is not valid hex: %w", err)
		}
		if len(key) != crypto.KeySize {
			return nil, fmt.Errorf("PASSHOST_SECRET_KEY must be %d bytes (%d hex chars), got %d bytes",
				crypto.KeySize, crypto.KeySize*2, len(key))
		}
		cfg.SecretKey = key
	}

	cfg.Passphrase = os.Getenv("PASSHOST_PASSPHRASE")
	if v, ok := os.LookupEnv("PASSHOST_KDF_SALT"); ok && v != "" {
		salt, err := hex.DecodeString(strings.TrimSpace(v))
		if err != nil {
			return nil, fmt.Errorf("PASSHOST_KDF_SALT is not valid hex: %w", err)
		}
		cfg.KDFSalt = salt
	}

	for env, dst := range map[string]*string{
		"PASSHOST_BACKEND":          &cfg.Backend,
		"PASSHOST_SERVICE_NAME":     &cfg.ServiceName,
		"PASSHOST_CIPHER":           &cfg.Cipher,
		"PASSHOST_DB_PATH":          &cfg.DBPath,
		"PASSHOST_MONGO_URI":        &cfg.MongoURI,
		"PASSHOST_MONGO_DATABASE":   &cfg.MongoDatabase,
		"PASSHOST_MONGO_COLLECTION": &cfg.MongoCollection,
		"PASSHOST_LOG_FORMAT":       &cfg.LogFormat,
	} {
		if v, ok := os.LookupEnv(env); ok && v != "" {
			*dst = v
		}
	}

	if v, ok := os.LookupEnv("PASSHOST_MAX_MESSAGE_SIZE"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("PASSHOST_MAX_MESSAGE_SIZE must be a positive integer, got %q", v)
		}
		cfg.MaxMessageSize = n
	}

	if v, ok := os.LookupEnv("PASSHOST_LOG_LEVEL"); ok && v != "" {
		if err := cfg.LogLevel.UnmarshalText([]byte(v)); err != nil {
			return nil, fmt.Errorf("PASSHOST_LOG_LEVEL has invalid level %q: %w", v, err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyFlags overlays command-line flags on top of the environment. Browsers
// launch native hosts with their own arguments (an extension origin, a
// manifest path, --parent-window on Windows), so unknown flags are ignored and
// positional arguments are returned untouched.
func (c *Config) ApplyFlags(args []string) ([]string, error) {
	fs := pflag.NewFlagSet("passhost", pflag.ContinueOnError)
	fs.ParseErrorsWhitelist.UnknownFlags = true

	backend := fs.String("backend", c.Backend, "storage backend: auto, keyring, sqlite, mongo or memory")
	serviceName := fs.String("service-name", c.ServiceName, "secret-store service name")
	dbPath := fs.String("db-path", c.DBPath, "SQLite database path for the sqlite backend")
	logLevel := fs.String("log-level", c.LogLevel.String(), "log level: debug, info, warn or error")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	c.Backend = *backend
	c.ServiceName = *serviceName
	c.DBPath = *dbPath
	if err := c.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return nil, fmt.Errorf("--log-level has invalid level %q: %w", *logLevel, err)
	}

	if err := c.validate(); err != nil {
		return nil, err
	}
	return fs.Args(), nil
}

// MasterKey returns the configured master key, deriving it from the
// passphrase with Argon2id when no raw key was given. The caller owns the
// returned slice and should wipe it once the envelope is built.
func (c *Config) MasterKey() ([]byte, error) {
	if c.SecretKey != nil {
		return append([]byte(nil), c.SecretKey...), nil
	}
	key, err := crypto.DeriveKey([]byte(c.Passphrase), c.KDFSalt, crypto.DefaultKDFParams())
	if err != nil {
		return nil, fmt.Errorf("derive master key: %w", err)
	}
	return key, nil
}

func (c *Config) validate() error {
	switch {
	case c.SecretKey != nil && c.Passphrase != "":
		return errors.New("set only one of PASSHOST_SECRET_KEY and PASSHOST_PASSPHRASE")
	case c.SecretKey == nil && c.Passphrase == "":
		return ErrMasterKeyNotSet
	case c.SecretKey == nil && len(c.KDFSalt) < crypto.MinSaltSize:
		return fmt.Errorf("PASSHOST_KDF_SALT must be at least %d bytes of hex when PASSHOST_PASSPHRASE is set", crypto.MinSaltSize)
	}

	switch strings.ToLower(c.Backend) {
	case "auto", "keyring", "sqlite", "memory":
	case "mongo":
		if c.MongoURI == "" {
			return errors.New("PASSHOST_MONGO_URI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("PASSHOST_BACKEND has unknown value %q", c.Backend)
	}

	if _, err := crypto.ParseAlgorithm(c.Cipher); err != nil {
		return fmt.Errorf("PASSHOST_CIPHER: %w", err)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("PASSHOST_LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}
	return nil
}

// NewLogger builds the process logger. Output goes to w, which must not be
// stdout while the host is attached to a browser.
func (c *Config) NewLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

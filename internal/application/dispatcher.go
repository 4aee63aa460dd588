package application

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/ericfisherdev/passhost/internal/crypto"
	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

// Dispatcher maps extension requests onto envelope and storage operations.
// It holds no mutable state: the envelope and storage are read-only after
// construction, so Handle may be called concurrently if the storage allows it.
type Dispatcher struct {
	envelope *crypto.Envelope
	storage  driven.SecureStorage
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher over envelope and storage.
func NewDispatcher(envelope *crypto.Envelope, storage driven.SecureStorage, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		envelope: envelope,
		storage:  storage,
		logger:   logger,
	}
}

// Handle processes one request to completion. Every error becomes a
// model.Failure; Handle never returns a nil Response.
func (d *Dispatcher) Handle(ctx context.Context, req model.Request) model.Response {
	switch r := req.(type) {
	case model.GetCredential:
		cred, err := d.GetCredential(ctx, r.URL)
		if err != nil {
			return d.fail(ctx, "get", r.URL, err)
		}
		return model.CredentialResponse{Credential: cred}

	case model.SaveCredential:
		if err := d.SaveCredential(ctx, r.Credential); err != nil {
			return d.fail(ctx, "save", r.Credential.URL, err)
		}
		return model.Success{}

	case model.DeleteCredential:
		if err := d.DeleteCredential(ctx, r.URL); err != nil {
			return d.fail(ctx, "delete", r.URL, err)
		}
		return model.Success{}

	default:
		return d.fail(ctx, "dispatch", "", fmt.Errorf("%w: unsupported request %T", model.ErrInvalidRequest, req))
	}
}

// GetCredential loads, opens and decodes the credential stored under url.
func (d *Dispatcher) GetCredential(ctx context.Context, url string) (model.Credential, error) {
	if url == "" {
		return model.Credential{}, fmt.Errorf("%w: empty url", model.ErrInvalidRequest)
	}

	blob, err := d.storage.Load(ctx, url)
	if err != nil {
		return model.Credential{}, err
	}

	alg, rec, err := crypto.UnmarshalRecord(url, blob)
	if err != nil {
		return model.Credential{}, err
	}
	if alg != d.envelope.Algorithm() {
		return model.Credential{}, model.ErrEncryption
	}

	plaintext, err := d.envelope.OpenRecord(rec)
	if err != nil {
		return model.Credential{}, err
	}
	defer crypto.Zero(plaintext)

	var cred model.Credential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return model.Credential{}, fmt.Errorf("%w: decode credential: %w", model.ErrSerialization, err)
	}
	return cred, nil
}

// SaveCredential encodes, seals and stores cred under cred.URL, replacing any
// previous entry.
func (d *Dispatcher) SaveCredential(ctx context.Context, cred model.Credential) error {
	if cred.URL == "" {
		return fmt.Errorf("%w: empty url", model.ErrInvalidRequest)
	}

	plaintext, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("%w: encode credential: %w", model.ErrSerialization, err)
	}
	defer crypto.Zero(plaintext)

	rec, err := d.envelope.SealRecord(cred.URL, plaintext)
	if err != nil {
		return err
	}

	return d.storage.Save(ctx, cred.URL, crypto.MarshalRecord(d.envelope.Algorithm(), rec))
}

// DeleteCredential removes the entry for url. A missing entry is reported as
// model.ErrNotFound, not treated as success.
func (d *Dispatcher) DeleteCredential(ctx context.Context, url string) error {
	if url == "" {
		return fmt.Errorf("%w: empty url", model.ErrInvalidRequest)
	}
	return d.storage.Delete(ctx, url)
}

// fail logs the full cause and returns the coarse failure message. Only the
// host of rawURL is logged unless debug logging is on.
func (d *Dispatcher) fail(ctx context.Context, op, rawURL string, err error) model.Response {
	kind := model.KindOf(err)
	level := slog.LevelWarn
	if kind == model.KindNotFound {
		level = slog.LevelInfo
	}
	attrs := []any{
		"op", op,
		"host", hostOf(rawURL),
		"kind", kind,
		"error", err,
	}
	if d.logger.Enabled(ctx, slog.LevelDebug) {
		attrs = append(attrs, "url", rawURL)
	}
	d.logger.Log(ctx, level, "request failed", attrs...)
	return model.Failure{Message: model.Message(err)}
}

// hostOf returns the host part of rawURL, or "" when there is none.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Host
}

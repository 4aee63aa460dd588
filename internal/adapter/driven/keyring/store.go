// Package keyring stores credential blobs in the operating system secret
// store: the Secret Service on Linux and the BSDs, Keychain on macOS and
// Credential Manager on Windows.
//
// Entries are addressed by (service name, id). The secret stores hold text,
// so blobs are written as standard base64, which round-trips every byte.
package keyring

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	gokeyring "github.com/zalando/go-keyring"

	"github.com/ericfisherdev/passhost/internal/domain/model"
	"github.com/ericfisherdev/passhost/internal/domain/port/driven"
)

// DefaultServiceName is the service attribute every entry is filed under.
const DefaultServiceName = "password_manager_service"

// Compile-time interface satisfaction check.
var _ driven.SecureStorage = (*Store)(nil)

// Store is the OS secret-store implementation of the SecureStorage port.
// Concurrency guarantees are those of the platform service.
type Store struct {
	service string
}

// NewStore creates a Store filing entries under service. An empty service
// uses DefaultServiceName.
func NewStore(service string) *Store {
	if service == "" {
		service = DefaultServiceName
	}
	return &Store{service: service}
}

// Service returns the service attribute entries are filed under.
func (s *Store) Service() string {
	return s.service
}

// Save creates or replaces the entry for id.
func (s *Store) Save(ctx context.Context, id string, data []byte) error {
	if err := checkCall(ctx, id); err != nil {
		return err
	}

	if err := gokeyring.Set(s.service, id, base64.StdEncoding.EncodeToString(data)); err != nil {
		return fmt.Errorf("%w: keyring store: %w", model.ErrStorage, err)
	}
	return nil
}

// Load returns the bytes stored for id.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	if err := checkCall(ctx, id); err != nil {
		return nil, err
	}

	encoded, err := gokeyring.Get(s.service, id)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return nil, fmt.Errorf("keyring lookup: %w", model.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: keyring lookup: %w", model.ErrStorage, err)
	}

	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("%w: keyring entry is not base64: %w", model.ErrSerialization, err)
	}
	return data, nil
}

// Delete removes the entry for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := checkCall(ctx, id); err != nil {
		return err
	}

	err := gokeyring.Delete(s.service, id)
	if errors.Is(err, gokeyring.ErrNotFound) {
		return fmt.Errorf("keyring clear: %w", model.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("%w: keyring clear: %w", model.ErrStorage, err)
	}
	return nil
}

// checkCall rejects empty ids and calls made after ctx is done. The platform
// APIs take no context, so a call already in flight cannot be interrupted.
func checkCall(ctx context.Context, id string) error {
	if id == "" {
		return fmt.Errorf("%w: empty id", model.ErrStorage)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", model.ErrStorage, err)
	}
	return nil
}

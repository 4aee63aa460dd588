package driven

import "context"

// SecureStorage defines the driven port for the secret store that holds
// encrypted credential blobs. Implementations store opaque bytes keyed by id
// and know nothing about encryption or credentials.
//
// Errors are classified with the sentinels in the model package:
// model.ErrNotFound when the id has no entry and model.ErrStorage for any
// backend failure. The two must stay distinguishable.
type SecureStorage interface {
	// Save creates the entry for id or atomically replaces an existing one.
	Save(ctx context.Context, id string, data []byte) error

	// Load returns exactly the bytes last saved under id.
	// Returns model.ErrNotFound if id has no entry.
	Load(ctx context.Context, id string) ([]byte, error)

	// Delete removes the entry for id. A later Load returns model.ErrNotFound.
	// Returns model.ErrNotFound if id has no entry.
	Delete(ctx context.Context, id string) error
}

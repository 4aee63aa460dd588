package model

import "errors"

// Sentinel errors shared by every layer. Adapters wrap their causes with
// fmt.Errorf("...: %w", ErrX) so callers can classify with errors.Is.
var (
	// ErrStorage indicates a secret-store backend operation failed.
	ErrStorage = errors.New("storage error")

	// ErrEncryption indicates a seal or open failed. Open never says why.
	ErrEncryption = errors.New("encryption error")

	// ErrSerialization indicates a credential or stored blob could not be
	// encoded or decoded.
	ErrSerialization = errors.New("serialization error")

	// ErrNotFound indicates the requested id has no stored entry.
	ErrNotFound = errors.New("not found")

	// ErrPlatformUnsupported indicates no secret-store backend exists for the
	// host platform. It is only returned while constructing a backend.
	ErrPlatformUnsupported = errors.New("platform not supported")

	// ErrInvalidRequest indicates a request that could not be understood.
	ErrInvalidRequest = errors.New("invalid request")
)

// Kind classifies an error into the failure taxonomy.
type Kind string

const (
	KindNone                Kind = ""
	KindStorage             Kind = "storage"
	KindEncryption          Kind = "encryption"
	KindSerialization       Kind = "serialization"
	KindNotFound            Kind = "not_found"
	KindPlatformUnsupported Kind = "platform_unsupported"
	KindInvalidRequest      Kind = "invalid_request"
	KindUnknown             Kind = "unknown"
)

// KindOf returns the Kind of err. NotFound is checked first because backends
// wrap it alongside their own context.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	case errors.Is(err, ErrEncryption):
		return KindEncryption
	case errors.Is(err, ErrSerialization):
		return KindSerialization
	case errors.Is(err, ErrPlatformUnsupported):
		return KindPlatformUnsupported
	case errors.Is(err, ErrInvalidRequest):
		return KindInvalidRequest
	case errors.Is(err, ErrStorage):
		return KindStorage
	default:
		return KindUnknown
	}
}

// Message returns the message reported to the extension for err. Only the
// kind is exposed; causes stay in the host's log.
func Message(err error) string {
	switch KindOf(err) {
	case KindNone:
		return ""
	case KindNotFound:
		return ErrNotFound.Error()
	case KindEncryption:
		return ErrEncryption.Error()
	case KindSerialization:
		return ErrSerialization.Error()
	case KindPlatformUnsupported:
		return ErrPlatformUnsupported.Error()
	case KindInvalidRequest:
		return ErrInvalidRequest.Error()
	default:
		return ErrStorage.Error()
	}
}

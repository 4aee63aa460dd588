package crypto

import (
	"fmt"

	"golang.org/x/crypto/argon2"
)

// MinSaltSize is the shortest salt DeriveKey accepts.
const MinSaltSize = 16

// KDFParams are the Argon2id cost parameters used to derive a master key from
// a passphrase.
type KDFParams struct {
	Time      uint32
	MemoryKiB uint32
	Threads   uint8
}

// DefaultKDFParams returns the desktop cost profile.
func DefaultKDFParams() KDFParams {
	return KDFParams{Time: 3, MemoryKiB: 64 * 1024, Threads: 4}
}

// DeriveKey stretches passphrase into a KeySize master key with Argon2id.
func DeriveKey(passphrase, salt []byte, p KDFParams) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, fmt.Errorf("derive key: empty passphrase")
	}
	if len(salt) < MinSaltSize {
		return nil, fmt.Errorf("derive key: salt must be at least %d bytes, got %d", MinSaltSize, len(salt))
	}
	if p.Time == 0 || p.MemoryKiB == 0 || p.Threads == 0 {
		return nil, fmt.Errorf("derive key: invalid argon2id parameters %+v", p)
	}
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKiB, p.Threads, KeySize), nil
}

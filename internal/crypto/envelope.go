package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"

	"github.com/ericfisherdev/passhost/internal/domain/model"
)

const (
	// KeySize is the size of the master key in bytes.
	KeySize = 32
	// NonceSize is the size of an AEAD nonce in bytes.
	NonceSize = model.NonceSize
	// TagSize is the size of the authentication tag appended to ciphertexts.
	TagSize = 16
)

// Algorithm identifies the AEAD cipher of an Envelope. The value is written
// into every stored blob.
type Algorithm byte

const (
	AlgorithmAES256GCM        Algorithm = 1
	AlgorithmChaCha20Poly1305 Algorithm = 2
)

// String returns the configuration name of the algorithm.
func (a Algorithm) String() string {
	switch a {
	case AlgorithmAES256GCM:
		return "aes-256-gcm"
	case AlgorithmChaCha20Poly1305:
		return "chacha20-poly1305"
	default:
		return fmt.Sprintf("unknown(%d)", byte(a))
	}
}

// ParseAlgorithm maps a configuration name to an Algorithm.
func ParseAlgorithm(name string) (Algorithm, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "aes-256-gcm", "aes256gcm":
		return AlgorithmAES256GCM, nil
	case "chacha20-poly1305", "chacha20poly1305":
		return AlgorithmChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("unknown cipher %q", name)
	}
}

// Envelope seals and opens credential payloads under a fixed master key.
// It holds no mutable state and is safe for concurrent use.
type Envelope struct {
	aead cipher.AEAD
	alg  Algorithm
	rand io.Reader
}

// NewEnvelope creates an Envelope for key, which must be KeySize bytes.
// The caller may wipe key afterwards; the cipher keeps its own schedule.
func NewEnvelope(key []byte, alg Algorithm) (*Envelope, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: invalid key size: got %d, want %d", model.ErrEncryption, len(key), KeySize)
	}

	var (
		aead cipher.AEAD
		err  error
	)
	switch alg {
	case AlgorithmAES256GCM:
		var block cipher.Block
		block, err = aes.NewCipher(key)
		if err != nil {
			return nil, fmt.Errorf("%w: aes.NewCipher: %w", model.ErrEncryption, err)
		}
		aead, err = cipher.NewGCM(block)
	case AlgorithmChaCha20Poly1305:
		aead, err = chacha20poly1305.New(key)
	default:
		return nil, fmt.Errorf("%w: unsupported algorithm %s", model.ErrEncryption, alg)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: init %s: %w", model.ErrEncryption, alg, err)
	}

	return &Envelope{aead: aead, alg: alg, rand: rand.Reader}, nil
}

// Algorithm returns the cipher the envelope seals with.
func (e *Envelope) Algorithm() Algorithm {
	return e.alg
}

// Seal encrypts plaintext under a freshly generated nonce and returns the
// ciphertext (tag appended) together with that nonce. associatedData is
// authenticated but not encrypted and must be presented again to Open.
func (e *Envelope) Seal(plaintext, associatedData []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, NonceSize)
	if _, err := io.ReadFull(e.rand, nonce); err != nil {
		return nil, nil, fmt.Errorf("%w: read nonce: %w", model.ErrEncryption, err)
	}

	ciphertext = e.aead.Seal(nil, nonce, plaintext, associatedData)
	return ciphertext, nonce, nil
}

// Open authenticates and decrypts ciphertext. Any mismatch returns
// model.ErrEncryption and nothing else.
func (e *Envelope) Open(ciphertext, nonce, associatedData []byte) ([]byte, error) {
	if len(nonce) != NonceSize || len(ciphertext) < TagSize {
		return nil, model.ErrEncryption
	}

	plaintext, err := e.aead.Open(nil, nonce, ciphertext, associatedData)
	if err != nil {
		return nil, model.ErrEncryption
	}
	return plaintext, nil
}

// SealRecord encrypts plaintext into an EncryptedRecord for id. The id is
// bound as associated data so a blob copied under another id will not open.
func (e *Envelope) SealRecord(id string, plaintext []byte) (model.EncryptedRecord, error) {
	ciphertext, nonce, err := e.Seal(plaintext, recordAD(id))
	if err != nil {
		return model.EncryptedRecord{}, err
	}
	return model.EncryptedRecord{ID: id, Ciphertext: ciphertext, Nonce: nonce}, nil
}

// OpenRecord decrypts a record produced by SealRecord.
func (e *Envelope) OpenRecord(rec model.EncryptedRecord) ([]byte, error) {
	return e.Open(rec.Ciphertext, rec.Nonce, recordAD(rec.ID))
}

func recordAD(id string) []byte {
	return []byte("passhost:credential:" + id)
}

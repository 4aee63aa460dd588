// Package crypto implements the envelope encryption applied to credentials
// before they reach a secret store.
//
// An Envelope wraps an AEAD cipher bound to the process master key. Every
// Seal draws a fresh 96-bit nonce from crypto/rand; nonces are never derived
// from counters, so the envelope carries no state between calls. Uniqueness
// therefore rests on the birthday bound, which is comfortable at the volume of
// a personal password manager.
//
// Open reports every failure as model.ErrEncryption with no further detail.
// Callers cannot tell a wrong key from a tampered ciphertext or a wrong nonce.
//
// The nonce and ciphertext of a record always travel together: MarshalRecord
// packs both into the single blob a secret store keeps per id:
//
//	version(1) || algorithm(1) || nonce(12) || ciphertext || tag(16)
package crypto

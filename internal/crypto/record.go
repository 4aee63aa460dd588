package crypto

import (
	"fmt"

	"github.com/ericfisherdev/passhost/internal/domain/model"
)

const (
	recordVersion    byte = 1
	recordHeaderSize      = 2
	recordMinSize         = recordHeaderSize + NonceSize + TagSize
)

// MarshalRecord packs the nonce and ciphertext of rec into one blob, tagged
// with the algorithm that sealed it. The id is not included; it is the key the
// blob is stored under.
func MarshalRecord(alg Algorithm, rec model.EncryptedRecord) []byte {
	out := make([]byte, 0, recordHeaderSize+len(rec.Nonce)+len(rec.Ciphertext))
	out = append(out, recordVersion, byte(alg))
	out = append(out, rec.Nonce...)
	out = append(out, rec.Ciphertext...)
	return out
}

// UnmarshalRecord splits a blob written by MarshalRecord back into a record for
// id. Malformed blobs return model.ErrSerialization.
func UnmarshalRecord(id string, blob []byte) (Algorithm, model.EncryptedRecord, error) {
	if len(blob) < recordMinSize {
		return 0, model.EncryptedRecord{}, fmt.Errorf("%w: record blob too short (%d bytes)", model.ErrSerialization, len(blob))
	}
	if blob[0] != recordVersion {
		return 0, model.EncryptedRecord{}, fmt.Errorf("%w: unknown record version %d", model.ErrSerialization, blob[0])
	}

	alg := Algorithm(blob[1])
	if alg != AlgorithmAES256GCM && alg != AlgorithmChaCha20Poly1305 {
		return 0, model.EncryptedRecord{}, fmt.Errorf("%w: unknown record algorithm %d", model.ErrSerialization, blob[1])
	}

	body := blob[recordHeaderSize:]
	rec := model.EncryptedRecord{
		ID:         id,
		Nonce:      append([]byte(nil), body[:NonceSize]...),
		Ciphertext: append([]byte(nil), body[NonceSize:]...),
	}
	return alg, rec, nil
}

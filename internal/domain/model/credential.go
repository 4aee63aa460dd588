package model

// Credential is a plaintext login for a site. URL identifies the site and is
// the key under which the encrypted form is stored. A Credential only lives in
// memory around an encrypt or decrypt.
type Credential struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

// NonceSize is the length in bytes of the AEAD nonce carried by an EncryptedRecord.
const NonceSize = 12

// EncryptedRecord is the durable form of a Credential. Nonce is the exact
// nonce that produced Ciphertext; the two are always stored together.
type EncryptedRecord struct {
	ID         string
	Ciphertext []byte
	Nonce      []byte
}

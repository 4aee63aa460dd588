package model

// Request is a message received from the browser extension. The set of
// implementations is closed: GetCredential, SaveCredential and DeleteCredential.
type Request interface {
	isRequest()
}

// GetCredential asks for the credential stored under URL.
type GetCredential struct {
	URL string
}

// SaveCredential stores Credential under Credential.URL, replacing any
// existing entry.
type SaveCredential struct {
	Credential Credential
}

// DeleteCredential removes the credential stored under URL.
type DeleteCredential struct {
	URL string
}

func (GetCredential) isRequest()    {}
func (SaveCredential) isRequest()   {}
func (DeleteCredential) isRequest() {}

// Response is the reply to a Request. The set of implementations is closed:
// CredentialResponse, Success and Failure.
type Response interface {
	isResponse()
}

// CredentialResponse carries a decrypted credential back to the extension.
type CredentialResponse struct {
	Credential Credential
}

// Success acknowledges a save or delete.
type Success struct{}

// Failure reports a per-request error as a human-readable message.
type Failure struct {
	Message string
}

func (CredentialResponse) isResponse() {}
func (Success) isResponse()            {}
func (Failure) isResponse()            {}

package nativemsg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ericfisherdev/passhost/internal/domain/model"
)

func newTestCodec(t *testing.T) *Codec {
	t.Helper()
	c, err := NewCodec()
	require.NoError(t, err)
	return c
}

func TestCodec_DecodeRequest(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		want    model.Request
	}{
		{
			name:    "get",
			payload: `{"GetPassword":{"url":"https://example.com"}}`,
			want:    model.GetCredential{URL: "https://example.com"},
		},
		{
			name:    "save",
			payload: `{"SavePassword":{"credentials":{"username":"alice","password":"s3cr3t","url":"https://example.com"}}}`,
			want: model.SaveCredential{Credential: model.Credential{
				Username: "alice", Password: "s3cr3t", URL: "https://example.com",
			}},
		},
		{
			name:    "save with empty password",
			payload: `{"SavePassword":{"credentials":{"username":"alice","password":"","url":"https://example.com"}}}`,
			want: model.SaveCredential{Credential: model.Credential{
				Username: "alice", URL: "https://example.com",
			}},
		},
		{
			name:    "delete",
			payload: `{"DeletePassword":{"url":"https://example.com"}}`,
			want:    model.DeleteCredential{URL: "https://example.com"},
		},
	}

	c := newTestCodec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.DecodeRequest([]byte(tt.payload))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCodec_DecodeRequestRejects(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{name: "not json", payload: `{GetPassword`},
		{name: "empty object", payload: `{}`},
		{name: "bare string", payload: `"GetPassword"`},
		{name: "unknown variant", payload: `{"ListPasswords":{}}`},
		{name: "two variants", payload: `{"GetPassword":{"url":"a"},"DeletePassword":{"url":"a"}}`},
		{name: "missing url", payload: `{"GetPassword":{}}`},
		{name: "empty url", payload: `{"DeletePassword":{"url":""}}`},
		{name: "url not string", payload: `{"GetPassword":{"url":42}}`},
		{name: "extra field", payload: `{"GetPassword":{"url":"a","extra":true}}`},
		{name: "missing password", payload: `{"SavePassword":{"credentials":{"username":"a","url":"b"}}}`},
		{name: "credentials not object", payload: `{"SavePassword":{"credentials":"a"}}`},
	}

	c := newTestCodec(t)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := c.DecodeRequest([]byte(tt.payload))
			assert.Nil(t, got)
			assert.ErrorIs(t, err, model.ErrInvalidRequest)
		})
	}
}

func TestEncodeResponse(t *testing.T) {
	tests := []struct {
		name string
		resp model.Response
		want string
	}{
		{
			name: "password",
			resp: model.CredentialResponse{Credential: model.Credential{Username: "alice", Password: "s3cr3t", URL: "https://example.com"}},
			want: `{"Password":{"username":"alice","password":"s3cr3t","url":"https://example.com"}}`,
		},
		{name: "success", resp: model.Success{}, want: `"Success"`},
		{name: "error", resp: model.Failure{Message: "not found"}, want: `{"Error":"not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := EncodeResponse(tt.resp)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(got))
		})
	}
}

func TestEncodeResponse_Nil(t *testing.T) {
	_, err := EncodeResponse(nil)
	assert.Error(t, err)
}

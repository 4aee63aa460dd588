package nativemsg

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/ericfisherdev/passhost/internal/domain/model"
)

//go:embed schema.json
var requestSchemaJSON []byte

// Codec converts between wire JSON and model messages. Requests are checked
// against the embedded JSON Schema before they are decoded.
type Codec struct {
	schema *gojsonschema.Schema
}

// NewCodec compiles the request schema.
func NewCodec() (*Codec, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(requestSchemaJSON))
	if err != nil {
		return nil, fmt.Errorf("compile request schema: %w", err)
	}
	return &Codec{schema: schema}, nil
}

type wireCredentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	URL      string `json:"url"`
}

type wireRequest struct {
	GetPassword *struct {
		URL string `json:"url"`
	} `json:"GetPassword"`
	SavePassword *struct {
		Credentials wireCredentials `json:"credentials"`
	} `json:"SavePassword"`
	DeletePassword *struct {
		URL string `json:"url"`
	} `json:"DeletePassword"`
}

// DecodeRequest validates payload and returns the request it carries. Any
// problem is reported as model.ErrInvalidRequest.
func (c *Codec) DecodeRequest(payload []byte) (model.Request, error) {
	result, err := c.schema.Validate(gojsonschema.NewBytesLoader(payload))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", model.ErrInvalidRequest, strings.Join(msgs, "; "))
	}

	var w wireRequest
	if err := json.Unmarshal(payload, &w); err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrInvalidRequest, err)
	}

	switch {
	case w.GetPassword != nil:
		return model.GetCredential{URL: w.GetPassword.URL}, nil
	case w.SavePassword != nil:
		wc := w.SavePassword.Credentials
		return model.SaveCredential{Credential: model.Credential{
			Username: wc.Username,
			Password: wc.Password,
			URL:      wc.URL,
		}}, nil
	case w.DeletePassword != nil:
		return model.DeleteCredential{URL: w.DeletePassword.URL}, nil
	default:
		return nil, fmt.Errorf("%w: no request variant", model.ErrInvalidRequest)
	}
}

// EncodeResponse renders resp in the wire format:
//
//	{"Password":{"username":"…","password":"…","url":"…"}}
//	"Success"
//	{"Error":"…"}
func EncodeResponse(resp model.Response) ([]byte, error) {
	switch r := resp.(type) {
	case model.CredentialResponse:
		return json.Marshal(map[string]wireCredentials{
			"Password": {Username: r.Credential.Username, Password: r.Credential.Password, URL: r.Credential.URL},
		})
	case model.Success:
		return json.Marshal("Success")
	case model.Failure:
		return json.Marshal(map[string]string{"Error": r.Message})
	default:
		return nil, fmt.Errorf("encode response: unsupported type %T", resp)
	}
}

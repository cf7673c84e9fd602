package lockhttp

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	contentTypeJSON = "application/json"
	contentTypeYAML = "application/yaml"
)

type marshalFunc func(v any) ([]byte, error)

// mediaType returns the media type of a Content-Type or Accept header
// without its parameters.
func mediaType(header string) string {
	mt, _, _ := strings.Cut(header, ";")
	return strings.TrimSpace(strings.ToLower(mt))
}

// negotiate picks the response encoding from the Accept header. JSON is
// the default.
func negotiate(r *http.Request) (string, marshalFunc) {
	if mediaType(r.Header.Get("Accept")) == contentTypeYAML {
		return contentTypeYAML, yaml.Marshal
	}
	return contentTypeJSON, json.Marshal
}

// decodePayload reads the request body as a JSON or YAML document. An
// empty body is a null payload.
func decodePayload(r *http.Request) (json.RawMessage, error) {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return nil, nil
	}

	if mediaType(r.Header.Get("Content-Type")) == contentTypeYAML {
		var payload any
		if err := yaml.Unmarshal(data, &payload); err != nil {
			return nil, err
		}
		return json.Marshal(payload)
	}

	if !json.Valid(data) {
		return nil, errInvalidJSON
	}
	return json.RawMessage(data), nil
}

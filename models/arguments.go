package models

import (
	"encoding/json"
	"fmt"
	"strings"
)

// MalformedResponseError reports a JSON payload from an upstream service or
// the model that could not be decoded.
type MalformedResponseError struct {
	Source string
	Body   string
	Err    error
}

func (e *MalformedResponseError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	if body == "" {
		return fmt.Sprintf("malformed response from %s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("malformed response from %s: %v (body: %s)", e.Source, e.Err, body)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// DecodeArguments normalizes tool-call arguments to a mapping. Backends send
// either a JSON-encoded string (OpenAI style) or an already-decoded object
// (Ollama style); both are accepted. An empty or null payload is an empty map.
func DecodeArguments(raw interface{}) (map[string]interface{}, error) {
	switch v := raw.(type) {
	case nil:
		return map[string]interface{}{}, nil
	case map[string]interface{}:
		return v, nil
	case string:
		return decodeArgumentBytes([]byte(v))
	case []byte:
		return decodeArgumentBytes(v)
	case json.RawMessage:
		return decodeArgumentBytes(v)
	default:
		// Typed maps from SDKs: round-trip through JSON.
		b, err := json.Marshal(v)
		if err != nil {
			return nil, &MalformedResponseError{Source: "tool arguments", Err: err}
		}
		return decodeArgumentBytes(b)
	}
}

func decodeArgumentBytes(b []byte) (map[string]interface{}, error) {
	s := strings.TrimSpace(string(b))
	if s == "" || s == "null" {
		return map[string]interface{}{}, nil
	}
	// Some servers double-encode: "{\"url\": ...}"
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err == nil {
			return decodeArgumentBytes([]byte(inner))
		}
	}
	args := map[string]interface{}{}
	if err := json.Unmarshal([]byte(s), &args); err != nil {
		return nil, &MalformedResponseError{Source: "tool arguments", Body: s, Err: err}
	}
	return args, nil
}

package azurefunc

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
)

// ToBoltRequest converts a request forwarded by the Functions host.
// Multi-valued query parameters and headers keep their first value.
func ToBoltRequest(r *http.Request) (*bolt.Request, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("could not read body: %w", err)
	}
	query := make(map[string]string)
	for k, v := range r.URL.Query() {
		if len(v) > 0 {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string)
	for k, v := range r.Header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return bolt.NewRequest(r.Method, r.URL.Path, query, headers, body), nil
}

// WriteResponse writes resp to w.
func WriteResponse(w http.ResponseWriter, resp *bolt.Response) error {
	for k, v := range resp.Headers {
		w.Header().Set(k, v)
	}
	w.WriteHeader(resp.Status)
	_, err := w.Write(resp.Body)
	return err
}

// InvokeRequest is the payload the Functions host posts to a custom handler
// when request forwarding is off.
type InvokeRequest struct {
	Data     map[string]json.RawMessage
	Metadata map[string]json.RawMessage
}

// HTTPTrigger is the "req" entry of InvokeRequest.Data.
type HTTPTrigger struct {
	URL    string `json:"Url"`
	Method string
	// Query is an object, or that object encoded as a JSON string.
	Query   json.RawMessage
	Headers map[string][]string
	Params  map[string]string
	// Body is usually a JSON string; structured bodies are taken verbatim.
	Body json.RawMessage
}

// BoltRequest converts the trigger named binding.
func (ir *InvokeRequest) BoltRequest(binding string) (*bolt.Request, error) {
	raw, ok := ir.Data[binding]
	if !ok {
		return nil, fmt.Errorf("invoke request has no %q binding", binding)
	}
	var t HTTPTrigger
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("could not decode %q binding: %w", binding, err)
	}
	u, err := url.Parse(t.URL)
	if err != nil {
		return nil, fmt.Errorf("could not parse url %q: %w", t.URL, err)
	}
	query, err := decodeQuery(t.Query)
	if err != nil {
		return nil, err
	}
	if len(query) == 0 {
		for k, v := range u.Query() {
			query[k] = v[0]
		}
	}
	headers := make(map[string]string, len(t.Headers))
	for k, v := range t.Headers {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return bolt.NewRequest(t.Method, u.Path, query, headers, decodeBody(t.Body)), nil
}

func decodeQuery(raw json.RawMessage) (map[string]string, error) {
	query := make(map[string]string)
	if len(raw) == 0 || string(raw) == "null" {
		return query, nil
	}
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		if encoded == "" {
			return query, nil
		}
		raw = json.RawMessage(encoded)
	}
	if err := json.Unmarshal(raw, &query); err != nil {
		return nil, fmt.Errorf("could not decode query: %w", err)
	}
	return query, nil
}

func decodeBody(raw json.RawMessage) []byte {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []byte(s)
	}
	return raw
}

// InvokeResponse is what a custom handler answers to an InvokeRequest.
type InvokeResponse struct {
	Outputs     map[string]interface{}
	Logs        []string
	ReturnValue interface{}
}

// HTTPOutput is an http output binding value.
type HTTPOutput struct {
	StatusCode int               `json:"statusCode"`
	Headers    map[string]string `json:"headers"`
	Body       string            `json:"body"`
}

// NewInvokeResponse puts resp into the output binding named binding.
func NewInvokeResponse(binding string, resp *bolt.Response) InvokeResponse {
	headers := resp.Headers
	if headers == nil {
		headers = map[string]string{}
	}
	return InvokeResponse{
		Outputs: map[string]interface{}{
			binding: HTTPOutput{StatusCode: resp.Status, Headers: headers, Body: string(resp.Body)},
		},
		Logs: []string{},
	}
}

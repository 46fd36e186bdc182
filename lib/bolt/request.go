// Package bolt verifies, parses and dispatches Slack requests to listeners.
// It knows nothing about the host that delivers the requests.
package bolt

import (
	"net/http"
	"strings"
)

// Request is an inbound HTTP request in host-independent form. Header names
// are stored lower-cased.
type Request struct {
	Method  string
	Path    string
	Query   map[string]string
	Headers map[string]string
	Body    []byte
}

// NewRequest copies its arguments so later changes by the caller are not seen.
func NewRequest(method, path string, query, headers map[string]string, body []byte) *Request {
	r := &Request{
		Method:  strings.ToUpper(method),
		Path:    path,
		Query:   make(map[string]string, len(query)),
		Headers: make(map[string]string, len(headers)),
		Body:    append([]byte(nil), body...),
	}
	for k, v := range query {
		r.Query[k] = v
	}
	for k, v := range headers {
		r.Headers[strings.ToLower(k)] = v
	}
	return r
}

// Header looks a header up case-insensitively.
func (r *Request) Header(name string) string {
	return r.Headers[strings.ToLower(name)]
}

// HTTPHeader returns the headers in net/http form.
func (r *Request) HTTPHeader() http.Header {
	h := make(http.Header, len(r.Headers))
	for k, v := range r.Headers {
		h.Set(k, v)
	}
	return h
}

// Cookie returns the value of the named cookie from the Cookie header.
func (r *Request) Cookie(name string) (string, bool) {
	hr := http.Request{Header: http.Header{"Cookie": {r.Header("cookie")}}}
	c, err := hr.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Response is what a handler sends back to the host.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

func NewResponse(status int, body string) *Response {
	return &Response{Status: status, Headers: map[string]string{}, Body: []byte(body)}
}

// SetHeader sets a header, creating the map when needed.
func (r *Response) SetHeader(name, value string) {
	if r.Headers == nil {
		r.Headers = map[string]string{}
	}
	r.Headers[name] = value
}

// Package kms is a fake Google Cloud KMS encrypt/decrypt REST API. Any key
// name is accepted; everything is sealed with one local AES key.
package kms

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/gorilla/mux"
	"google.golang.org/api/option"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/handler"
)

// DefaultKey is the AES-256 key used when none is given.
var DefaultKey = []byte{
	0x15, 0x7, 0x9c, 0x8f, 0x9, 0xe6, 0x30, 0x0,
	0x39, 0x1, 0x4d, 0x9c, 0xf0, 0x79, 0xd7, 0xcf,
	0xd5, 0x48, 0x39, 0x41, 0x86, 0xf2, 0xf4, 0x50,
	0xbd, 0xa3, 0xcc, 0x46, 0x49, 0x8c, 0xb1, 0xf0}

type encryptRequest struct {
	Plaintext                   string `json:"plaintext"`
	AdditionalAuthenticatedData string `json:"additionalAuthenticatedData,omitempty"`
}
type encryptResponse struct {
	Name       string `json:"name"`
	Ciphertext string `json:"ciphertext"`
}
type decryptRequest struct {
	Ciphertext                  string `json:"ciphertext"`
	AdditionalAuthenticatedData string `json:"additionalAuthenticatedData,omitempty"`
}
type decryptResponse struct {
	Plaintext string `json:"plaintext"`
}

type env struct {
	aead     cipher.AEAD
	requests int64
}

// API serves the fake.
type API struct {
	*env
	Router *mux.Router
}

// NewAPI seals with key, which must be 16, 24 or 32 bytes.
func NewAPI(key []byte) (*API, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}
	e := &env{aead: aead}
	r := mux.NewRouter()
	r.Handle("/v1/projects/{project-id}/locations/{location}/keyRings/{keyring-name}/cryptoKeys/{key-name}:encrypt", handler.Handler{Env: e, H: encryptHandler})
	r.Handle("/v1/projects/{project-id}/locations/{location}/keyRings/{keyring-name}/cryptoKeys/{key-name}:decrypt", handler.Handler{Env: e, H: decryptHandler})
	return &API{env: e, Router: r}, nil
}

func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	a.Router.ServeHTTP(w, r)
}

// Requests counts the encrypt and decrypt calls served.
func (a *API) Requests() int {
	return int(atomic.LoadInt64(&a.requests))
}

func encryptHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	env := e.(*env)
	atomic.AddInt64(&env.requests, 1)
	req := &encryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	plaintext, err := base64.StdEncoding.DecodeString(req.Plaintext)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	nonce := make([]byte, env.aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return err
	}
	sealed := env.aead.Seal(nonce, nonce, plaintext, nil)
	return writeJSON(w, &encryptResponse{
		Name:       mux.Vars(r)["key-name"],
		Ciphertext: base64.StdEncoding.EncodeToString(sealed),
	})
}

func decryptHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	env := e.(*env)
	atomic.AddInt64(&env.requests, 1)
	req := &decryptRequest{}
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	sealed, err := base64.StdEncoding.DecodeString(req.Ciphertext)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	n := env.aead.NonceSize()
	if len(sealed) < n {
		return handler.StatusError{Code: http.StatusBadRequest, Err: errors.New("ciphertext is too short")}
	}
	plaintext, err := env.aead.Open(nil, sealed[:n], sealed[n:], nil)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	return writeJSON(w, &decryptResponse{Plaintext: base64.StdEncoding.EncodeToString(plaintext)})
}

func writeJSON(w http.ResponseWriter, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(v)
}

// Server runs an API on a local httptest server.
type Server struct {
	*API
	HTTP *httptest.Server
}

func NewServer() *Server {
	api, err := NewAPI(DefaultKey)
	if err != nil {
		panic(err)
	}
	return &Server{API: api, HTTP: httptest.NewServer(api)}
}

func (s *Server) Close() {
	s.HTTP.Close()
}

// ClientOptions point a cloudkms client at the fake without credentials.
func (s *Server) ClientOptions() []option.ClientOption {
	return []option.ClientOption{
		option.WithEndpoint(s.HTTP.URL + "/"),
		option.WithHTTPClient(s.HTTP.Client()),
	}
}

package handler

import (
	"errors"
	"net/http"

	log "github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

// Error represents a handler error. It provides methods for a HTTP status
// code and embeds the built-in error interface.
type Error interface {
	error
	Status() int
}

// StatusError represents an error with an associated HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

// Allows StatusError to satisfy the error interface.
func (se StatusError) Error() string {
	return se.Err.Error()
}

func (se StatusError) Unwrap() error {
	return se.Err
}

// Status returns our HTTP status code.
func (se StatusError) Status() int {
	return se.Code
}

// Handler takes a configured Env and a function matching our signature.
// Errors returned by H are written as their status, or 500 when they carry none.
type Handler struct {
	Env interface{}
	H   func(e interface{}, w http.ResponseWriter, r *http.Request) error
	Log *log.Logger
}

// ServeHTTP allows our Handler type to satisfy http.Handler.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.H(h.Env, w, r)
	if err == nil {
		return
	}
	var se Error
	if errors.As(err, &se) {
		h.logf(r, "HTTP %d - %s", se.Status(), se)
		http.Error(w, se.Error(), se.Status())
		return
	}
	h.logf(r, "HTTP %d - unhandled error: %+v", http.StatusInternalServerError, err)
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

func (h Handler) logf(r *http.Request, format string, a ...interface{}) {
	if h.Log == nil {
		log.Printf(format, a...)
		return
	}
	h.Log.WithRequest(r).Errorf(format, a...)
}

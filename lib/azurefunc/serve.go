package azurefunc

import (
	"encoding/json"
	"net/http"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/handler"
)

// ServeForwarded is a handler.Handler function for forwarded requests. Env
// must be a *SlackRequestHandler.
func ServeForwarded(e interface{}, w http.ResponseWriter, r *http.Request) error {
	h := e.(*SlackRequestHandler)
	req, err := ToBoltRequest(r)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	resp, err := h.Handle(r.Context(), req)
	if err != nil {
		return err
	}
	return WriteResponse(w, resp)
}

// ServeInvocation is a handler.Handler function for the invocation payload.
// Env must be a *SlackRequestHandler.
func ServeInvocation(e interface{}, w http.ResponseWriter, r *http.Request) error {
	h := e.(*SlackRequestHandler)
	var ir InvokeRequest
	if err := json.NewDecoder(r.Body).Decode(&ir); err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	req, err := ir.BoltRequest(h.binding)
	if err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	resp, err := h.Handle(r.Context(), req)
	if err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	return json.NewEncoder(w).Encode(NewInvokeResponse(h.output, resp))
}

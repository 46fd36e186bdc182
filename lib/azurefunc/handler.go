// Package azurefunc runs a bolt App behind an Azure Functions custom handler.
package azurefunc

import (
	"context"
	"net/http"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

// Application is the part of *bolt.App the handler needs.
type Application interface {
	Dispatch(ctx context.Context, req *bolt.Request) (*bolt.Response, error)
	OAuthFlow() bolt.OAuthFlow
}

// SlackRequestHandler decides what a request is for: POSTs go to the app,
// GETs on the OAuth install and redirect paths go to the flow, everything
// else is not found.
type SlackRequestHandler struct {
	app         Application
	log         *logger.Logger
	binding     string
	output      string
	logHandlers []logger.Handler
	resetLogs   bool
}

type Option func(*SlackRequestHandler)

// WithLogHandlers replaces every handler on the logger's shared root with hs.
// Repeated construction with the same handlers leaves exactly one copy of each.
func WithLogHandlers(hs ...logger.Handler) Option {
	return func(h *SlackRequestHandler) {
		h.logHandlers = hs
		h.resetLogs = true
	}
}

// WithBindings names the trigger and output bindings used in invocation mode.
// Defaults are "req" and "res".
func WithBindings(trigger, output string) Option {
	return func(h *SlackRequestHandler) {
		h.binding = trigger
		h.output = output
	}
}

func NewSlackRequestHandler(app Application, log *logger.Logger, opts ...Option) *SlackRequestHandler {
	h := &SlackRequestHandler{app: app, log: log, binding: "req", output: "res"}
	for _, opt := range opts {
		opt(h)
	}
	if h.log == nil {
		h.log = logger.New("", logger.WithLocal(true))
	}
	if h.resetLogs {
		h.log.ResetHandlers(h.logHandlers...)
	}
	return h
}

// Handle routes req. Errors from the app or the OAuth flow are returned
// unchanged.
func (h *SlackRequestHandler) Handle(ctx context.Context, req *bolt.Request) (*bolt.Response, error) {
	h.log.Debugf("%s %s", req.Method, req.Path)
	switch req.Method {
	case http.MethodPost:
		return h.app.Dispatch(ctx, req)
	case http.MethodGet:
		flow := h.app.OAuthFlow()
		if flow == nil {
			break
		}
		switch req.Path {
		case flow.InstallPath():
			return flow.HandleInstallation(ctx, req)
		case flow.RedirectURIPath():
			return flow.HandleCallback(ctx, req)
		}
	}
	return NotFound(), nil
}

// NotFound is the response for requests nothing handles.
func NotFound() *bolt.Response {
	return bolt.NewResponse(http.StatusNotFound, "Not Found")
}

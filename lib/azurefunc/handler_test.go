package azurefunc

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"cloud.google.com/go/logging"
	"github.com/davecgh/go-spew/spew"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

type stubFlow struct {
	calls []string
	err   error
}

func (f *stubFlow) InstallPath() string         { return "/slack/install" }
func (f *stubFlow) RedirectURIPath() string     { return "/slack/oauth_redirect" }
func (f *stubFlow) Authorizer() bolt.Authorizer { return nil }
func (f *stubFlow) HandleInstallation(ctx context.Context, req *bolt.Request) (*bolt.Response, error) {
	f.calls = append(f.calls, "install")
	return bolt.NewResponse(200, "install page"), f.err
}
func (f *stubFlow) HandleCallback(ctx context.Context, req *bolt.Request) (*bolt.Response, error) {
	f.calls = append(f.calls, "callback")
	return bolt.NewResponse(200, "callback page"), f.err
}

type stubApp struct {
	flow       bolt.OAuthFlow
	dispatched []*bolt.Request
	err        error
}

func (a *stubApp) Dispatch(ctx context.Context, req *bolt.Request) (*bolt.Response, error) {
	a.dispatched = append(a.dispatched, req)
	if a.err != nil {
		return nil, a.err
	}
	return bolt.NewResponse(200, "ok"), nil
}

func (a *stubApp) OAuthFlow() bolt.OAuthFlow { return a.flow }

var quietLogger = logger.New("", logger.WithHandlers())

func TestSlackRequestHandler_Handle(t *testing.T) {
	tt := []struct {
		name         string
		noFlow       bool
		method       string
		path         string
		wantBody     string
		wantStatus   int
		wantDispatch int
		wantFlow     []string
	}{
		{name: "post event", method: "POST", path: "/slack/events", wantStatus: 200, wantBody: "ok", wantDispatch: 1},
		{name: "post to install path", method: "POST", path: "/slack/install", wantStatus: 200, wantBody: "ok", wantDispatch: 1},
		{name: "post without flow", noFlow: true, method: "POST", path: "/anything", wantStatus: 200, wantBody: "ok", wantDispatch: 1},
		{name: "install", method: "GET", path: "/slack/install", wantStatus: 200, wantBody: "install page", wantFlow: []string{"install"}},
		{name: "callback", method: "GET", path: "/slack/oauth_redirect", wantStatus: 200, wantBody: "callback page", wantFlow: []string{"callback"}},
		{name: "other get", method: "GET", path: "/slack/events", wantStatus: 404, wantBody: "Not Found"},
		{name: "install path prefix", method: "GET", path: "/slack/install/extra", wantStatus: 404, wantBody: "Not Found"},
		{name: "get without flow", noFlow: true, method: "GET", path: "/slack/install", wantStatus: 404, wantBody: "Not Found"},
		{name: "put", method: "PUT", path: "/slack/events", wantStatus: 404, wantBody: "Not Found"},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			flow := &stubFlow{}
			app := &stubApp{flow: flow}
			if tc.noFlow {
				app.flow = nil
			}
			h := NewSlackRequestHandler(app, quietLogger)
			resp, err := h.Handle(context.Background(), bolt.NewRequest(tc.method, tc.path, nil, nil, []byte("payload")))
			if err != nil {
				t.Fatal(err)
			}
			if resp.Status != tc.wantStatus || string(resp.Body) != tc.wantBody {
				t.Errorf("expected %d %q got %d %q", tc.wantStatus, tc.wantBody, resp.Status, resp.Body)
			}
			if len(app.dispatched) != tc.wantDispatch {
				t.Errorf("expected %d dispatches, got %d", tc.wantDispatch, len(app.dispatched))
			}
			if !reflect.DeepEqual(flow.calls, tc.wantFlow) {
				t.Errorf("expected flow calls %v got %v", tc.wantFlow, flow.calls)
			}
		})
	}
}

func TestNotFound(t *testing.T) {
	want := &bolt.Response{Status: 404, Headers: map[string]string{}, Body: []byte("Not Found")}
	if got := NotFound(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %s got %s", spew.Sdump(want), spew.Sdump(got))
	}
}

func TestSlackRequestHandler_ErrorsPropagate(t *testing.T) {
	boom := errors.New("boom")
	app := &stubApp{flow: &stubFlow{err: boom}, err: boom}
	h := NewSlackRequestHandler(app, quietLogger)
	for _, req := range []*bolt.Request{
		bolt.NewRequest("POST", "/slack/events", nil, nil, nil),
		bolt.NewRequest("GET", "/slack/install", nil, nil, nil),
		bolt.NewRequest("GET", "/slack/oauth_redirect", nil, nil, nil),
	} {
		if _, err := h.Handle(context.Background(), req); err != boom {
			t.Errorf("%s %s: expected boom, got %v", req.Method, req.Path, err)
		}
	}
}

type countingHandler struct {
	entries int
	closed  int
}

func (h *countingHandler) Handle(e logging.Entry) { h.entries++ }
func (h *countingHandler) Close() error           { h.closed++; return nil }

func TestWithLogHandlers_Idempotent(t *testing.T) {
	preexisting := &countingHandler{}
	log := logger.New("", logger.WithHandlers(preexisting))
	console := &countingHandler{}

	for i := 0; i < 3; i++ {
		NewSlackRequestHandler(&stubApp{}, log, WithLogHandlers(console))
	}
	if got := log.Handlers(); len(got) != 1 || got[0] != logger.Handler(console) {
		t.Fatalf("expected only the console handler, got %s", spew.Sdump(got))
	}
	if preexisting.closed != 1 || console.closed != 0 {
		t.Errorf("closed counts: preexisting %d console %d", preexisting.closed, console.closed)
	}
	log.Info("cold start")
	if console.entries != 1 || preexisting.entries != 0 {
		t.Errorf("expected one line on console, got console %d preexisting %d", console.entries, preexisting.entries)
	}
}

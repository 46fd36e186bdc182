package azurefunc

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	adaptererrors "github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/handler"
)

func TestToBoltRequest(t *testing.T) {
	r := httptest.NewRequest("POST", "/slack/events?a=1&a=2&b=3", strings.NewReader("token=x&command=%2Froll"))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Add("X-Slack-Signature", "v0=abc")
	r.Header.Add("X-Slack-Signature", "v0=def")
	got, err := ToBoltRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	want := &bolt.Request{
		Method: "POST",
		Path:   "/slack/events",
		Query:  map[string]string{"a": "1", "b": "3"},
		Headers: map[string]string{
			"content-type":      "application/x-www-form-urlencoded",
			"x-slack-signature": "v0=abc",
		},
		Body: []byte("token=x&command=%2Froll"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %s got %s", spew.Sdump(want), spew.Sdump(got))
	}
}

func TestWriteResponse(t *testing.T) {
	w := httptest.NewRecorder()
	resp := &bolt.Response{Status: 302, Headers: map[string]string{"Location": "https://slack.com/", "Set-Cookie": "a=b"}, Body: []byte("moved")}
	if err := WriteResponse(w, resp); err != nil {
		t.Fatal(err)
	}
	if w.Code != 302 || w.Header().Get("Location") != "https://slack.com/" || w.Header().Get("Set-Cookie") != "a=b" || w.Body.String() != "moved" {
		t.Errorf("unexpected recording %+v", w)
	}
}

func TestInvokeRequest_BoltRequest(t *testing.T) {
	tt := []struct {
		name string
		req  string
		want *bolt.Request
	}{
		{
			name: "query object",
			req: `{"Url":"https://func.azurewebsites.net/slack/oauth_redirect?code=c&state=s","Method":"GET",
				"Query":{"code":"c","state":"s"},"Headers":{"Cookie":["slack-app-oauth-state=s"]},"Params":{},"Body":null}`,
			want: &bolt.Request{
				Method:  "GET",
				Path:    "/slack/oauth_redirect",
				Query:   map[string]string{"code": "c", "state": "s"},
				Headers: map[string]string{"cookie": "slack-app-oauth-state=s"},
			},
		},
		{
			name: "query string",
			req:  `{"Url":"http://localhost:7071/slack/install","Method":"GET","Query":"{\"team\":\"T1\"}","Headers":{},"Body":""}`,
			want: &bolt.Request{
				Method:  "GET",
				Path:    "/slack/install",
				Query:   map[string]string{"team": "T1"},
				Headers: map[string]string{},
			},
		},
		{
			name: "query from url",
			req:  `{"Url":"http://localhost:7071/slack/oauth_redirect?error=access_denied","Method":"GET","Headers":{}}`,
			want: &bolt.Request{
				Method:  "GET",
				Path:    "/slack/oauth_redirect",
				Query:   map[string]string{"error": "access_denied"},
				Headers: map[string]string{},
			},
		},
		{
			name: "string body",
			req:  `{"Url":"http://localhost:7071/slack/events","Method":"POST","Headers":{"Content-Type":["application/json"]},"Body":"{\"type\":\"url_verification\"}"}`,
			want: &bolt.Request{
				Method:  "POST",
				Path:    "/slack/events",
				Query:   map[string]string{},
				Headers: map[string]string{"content-type": "application/json"},
				Body:    []byte(`{"type":"url_verification"}`),
			},
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			ir := InvokeRequest{Data: map[string]json.RawMessage{"req": json.RawMessage(tc.req)}}
			got, err := ir.BoltRequest("req")
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %s got %s", spew.Sdump(tc.want), spew.Sdump(got))
			}
		})
	}

	if _, err := (&InvokeRequest{}).BoltRequest("req"); err == nil {
		t.Errorf("expected an error for a missing binding")
	}
}

func TestServeForwarded(t *testing.T) {
	app := &stubApp{flow: &stubFlow{}}
	h := NewSlackRequestHandler(app, quietLogger)
	srv := httptest.NewServer(handler.Handler{Env: h, H: ServeForwarded, Log: quietLogger})
	defer srv.Close()

	tt := []struct {
		method, path string
		wantStatus   int
		wantBody     string
	}{
		{"POST", "/slack/events", 200, "ok"},
		{"GET", "/slack/install", 200, "install page"},
		{"GET", "/favicon.ico", 404, "Not Found"},
	}
	for _, tc := range tt {
		req, _ := http.NewRequest(tc.method, srv.URL+tc.path, bytes.NewReader([]byte("{}")))
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != tc.wantStatus || string(body) != tc.wantBody {
			t.Errorf("%s %s: expected %d %q got %d %q", tc.method, tc.path, tc.wantStatus, tc.wantBody, resp.StatusCode, body)
		}
	}

	app.err = io.ErrUnexpectedEOF
	resp, err := http.Post(srv.URL+"/slack/events", "application/json", strings.NewReader("{}"))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != 500 {
		t.Errorf("dispatch errors should surface as 500, got %d", resp.StatusCode)
	}

	app.flow = &stubFlow{err: adaptererrors.NewUpstreamError("could not issue state", io.ErrClosedPipe)}
	resp, err = http.Get(srv.URL + "/slack/install")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("storage errors should surface as 503, got %d", resp.StatusCode)
	}
}

func TestServeInvocation(t *testing.T) {
	app := &stubApp{}
	h := NewSlackRequestHandler(app, quietLogger)
	srv := httptest.NewServer(handler.Handler{Env: h, H: ServeInvocation, Log: quietLogger})
	defer srv.Close()

	payload := `{"Data":{"req":{"Url":"http://localhost:7071/slack/events","Method":"POST","Headers":{},"Body":"{}"}},"Metadata":{}}`
	resp, err := http.Post(srv.URL+"/slack", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var got struct {
		Outputs map[string]HTTPOutput
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	want := HTTPOutput{StatusCode: 200, Headers: map[string]string{}, Body: "ok"}
	if !reflect.DeepEqual(got.Outputs["res"], want) {
		t.Errorf("expected %s got %s", spew.Sdump(want), spew.Sdump(got.Outputs))
	}
	if len(app.dispatched) != 1 || string(app.dispatched[0].Body) != "{}" {
		t.Errorf("unexpected dispatches %s", spew.Sdump(app.dispatched))
	}

	bad, err := http.Post(srv.URL+"/slack", "application/json", strings.NewReader("not json"))
	if err != nil {
		t.Fatal(err)
	}
	bad.Body.Close()
	if bad.StatusCode != 400 {
		t.Errorf("expected 400 for a malformed payload, got %d", bad.StatusCode)
	}
}

package oauth

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/blobstore"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/mocks/slackapi"
)

type failingStore struct{ InstallationStore }

func (failingStore) Save(ctx context.Context, inst *Installation) error {
	return errors.New("storage unavailable")
}

type testFlow struct {
	*Flow
	api    *slackapi.Server
	store  *BlobInstallationStore
	states *BlobStateStore
}

func newTestFlow(t *testing.T, mutate func(*Settings)) *testFlow {
	t.Helper()
	api := slackapi.NewServer("good-code", slackapi.DefaultGrant)
	t.Cleanup(api.Close)
	states := NewBlobStateStore(blobstore.NewMemoryStore(), DefaultStateExpiration, quietLogger)
	store, _ := newInstallationStore(false)

	s := NewSettings("CID", "secret")
	s.Scopes = []string{"commands", "chat:write"}
	s.UserScopes = []string{"search:read"}
	s = s.WithStateStore(states).WithInstallationStore(store)
	if mutate != nil {
		mutate(&s)
	}
	f, err := NewFlow(s, WithFlowHTTPClient(api.Client()), WithFlowLogger(quietLogger))
	if err != nil {
		t.Fatal(err)
	}
	return &testFlow{Flow: f, api: api, store: store, states: states}
}

func stateFromCookie(t *testing.T, setCookie string) string {
	t.Helper()
	h := http.Header{"Set-Cookie": {setCookie}}
	for _, c := range (&http.Response{Header: h}).Cookies() {
		if c.Name == DefaultStateCookieName {
			return c.Value
		}
	}
	t.Fatalf("no state cookie in %q", setCookie)
	return ""
}

func TestFlow_HandleInstallation(t *testing.T) {
	f := newTestFlow(t, nil)
	resp, err := f.HandleInstallation(context.Background(), bolt.NewRequest("GET", "/slack/install", nil, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != 200 || resp.Headers["Content-Type"] != "text/html; charset=utf-8" {
		t.Fatalf("unexpected response %s", spew.Sdump(resp))
	}
	cookie := resp.Headers["Set-Cookie"]
	state := stateFromCookie(t, cookie)
	if want := "slack-app-oauth-state=" + state + "; Path=/; Max-Age=600; HttpOnly; Secure"; cookie != want {
		t.Errorf("expected cookie %q got %q", want, cookie)
	}

	u, err := url.Parse(f.AuthorizeURL(state))
	if err != nil {
		t.Fatal(err)
	}
	q := u.Query()
	if u.Host != "slack.com" || u.Path != "/oauth/v2/authorize" ||
		q.Get("client_id") != "CID" || q.Get("scope") != "commands,chat:write" ||
		q.Get("user_scope") != "search:read" || q.Get("state") != state {
		t.Errorf("unexpected authorize url %s", u)
	}
	if !strings.Contains(string(resp.Body), "Add to Slack") ||
		!strings.Contains(string(resp.Body), "state="+state) {
		t.Errorf("install page does not link to the authorize url: %s", resp.Body)
	}
}

func TestFlow_HandleInstallationRedirect(t *testing.T) {
	f := newTestFlow(t, func(s *Settings) { s.InstallPageRenderingEnabled = false })
	resp, err := f.HandleInstallation(context.Background(), bolt.NewRequest("GET", "/slack/install", nil, nil, nil))
	if err != nil {
		t.Fatal(err)
	}
	state := stateFromCookie(t, resp.Headers["Set-Cookie"])
	if resp.Status != http.StatusFound || resp.Headers["Location"] != f.AuthorizeURL(state) {
		t.Errorf("unexpected response %s", spew.Sdump(resp))
	}
}

func TestFlow_HandleCallback(t *testing.T) {
	tt := []struct {
		name       string
		storeFails bool
		query      func(state string) map[string]string
		cookie     func(state string) string
		wantStatus int
		wantReason string
	}{
		{
			name:       "user cancelled",
			query:      func(string) map[string]string { return map[string]string{"error": "access_denied"} },
			wantStatus: 200,
			wantReason: "access_denied",
		},
		{
			name:       "no cookie",
			query:      func(s string) map[string]string { return map[string]string{"code": "good-code", "state": s} },
			wantStatus: 400,
			wantReason: ReasonInvalidBrowser,
		},
		{
			name:       "other browser",
			query:      func(s string) map[string]string { return map[string]string{"code": "good-code", "state": s} },
			cookie:     func(string) string { return "slack-app-oauth-state=someone-else" },
			wantStatus: 400,
			wantReason: ReasonInvalidBrowser,
		},
		{
			name:       "unknown state",
			query:      func(string) map[string]string { return map[string]string{"code": "good-code", "state": "forged"} },
			cookie:     func(string) string { return "slack-app-oauth-state=forged" },
			wantStatus: 401,
			wantReason: ReasonInvalidState,
		},
		{
			name:       "missing code",
			query:      func(s string) map[string]string { return map[string]string{"state": s} },
			cookie:     func(s string) string { return "slack-app-oauth-state=" + s },
			wantStatus: 401,
			wantReason: ReasonMissingCode,
		},
		{
			name:       "bad code",
			query:      func(s string) map[string]string { return map[string]string{"code": "bad-code", "state": s} },
			cookie:     func(s string) string { return "slack-app-oauth-state=" + s },
			wantStatus: 401,
			wantReason: ReasonInvalidCode,
		},
		{
			name:       "storage error",
			storeFails: true,
			query:      func(s string) map[string]string { return map[string]string{"code": "good-code", "state": s} },
			cookie:     func(s string) string { return "slack-app-oauth-state=" + s },
			wantStatus: 500,
			wantReason: ReasonStorageError,
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			f := newTestFlow(t, func(s *Settings) {
				if tc.storeFails {
					*s = s.WithInstallationStore(failingStore{s.InstallationStore()})
				}
			})
			ctx := context.Background()
			state, err := f.states.Issue(ctx)
			if err != nil {
				t.Fatal(err)
			}
			headers := map[string]string{}
			if tc.cookie != nil {
				headers["Cookie"] = tc.cookie(state)
			}
			resp, err := f.HandleCallback(ctx, bolt.NewRequest("GET", "/slack/oauth_redirect", tc.query(state), headers, nil))
			if err != nil {
				t.Fatal(err)
			}
			if resp.Status != tc.wantStatus || !strings.Contains(string(resp.Body), "reason: "+tc.wantReason) {
				t.Errorf("expected %d %s, got %d %s", tc.wantStatus, tc.wantReason, resp.Status, resp.Body)
			}
		})
	}
}

func TestFlow_HandleCallbackSuccess(t *testing.T) {
	f := newTestFlow(t, nil)
	ctx := context.Background()
	state, _ := f.states.Issue(ctx)
	req := bolt.NewRequest("GET", "/slack/oauth_redirect",
		map[string]string{"code": "good-code", "state": state},
		map[string]string{"Cookie": "slack-app-oauth-state=" + state}, nil)

	resp, err := f.HandleCallback(ctx, req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.Status != 200 || !strings.Contains(string(resp.Body), "Thank you!") {
		t.Fatalf("unexpected response %d %s", resp.Status, resp.Body)
	}
	if !strings.Contains(string(resp.Body), "slack://app?team=T0MOCKTEAM&amp;id=A0MOCKAPP") {
		t.Errorf("success page should deep link into the workspace: %s", resp.Body)
	}
	if !strings.Contains(resp.Headers["Set-Cookie"], "Max-Age=0") {
		t.Errorf("state cookie not cleared: %q", resp.Headers["Set-Cookie"])
	}

	g := slackapi.DefaultGrant
	inst, err := f.store.FindInstallation(ctx, InstallationKey{TeamID: g.TeamID, UserID: g.UserID})
	if err != nil || inst == nil {
		t.Fatalf("installation not saved: %v", err)
	}
	if inst.BotToken != g.BotToken || inst.BotID != g.BotID || inst.UserToken != g.UserToken ||
		inst.AppID != g.AppID || inst.BotScopes.String() != g.Scope {
		t.Errorf("unexpected installation %s", spew.Sdump(inst))
	}
	if n := len(f.api.Calls("auth.test")); n != 1 {
		t.Errorf("expected one auth.test call, got %d", n)
	}

	replay, _ := f.HandleCallback(ctx, req)
	if replay.Status != 401 || !strings.Contains(string(replay.Body), ReasonInvalidState) {
		t.Errorf("replayed callback accepted: %d %s", replay.Status, replay.Body)
	}
}

func TestFlow_CallbackRedirects(t *testing.T) {
	f := newTestFlow(t, func(s *Settings) {
		s.SuccessURL = "https://example.com/installed"
		s.FailureURL = "https://example.com/failed"
	})
	ctx := context.Background()
	state, _ := f.states.Issue(ctx)
	ok, _ := f.HandleCallback(ctx, bolt.NewRequest("GET", "/slack/oauth_redirect",
		map[string]string{"code": "good-code", "state": state},
		map[string]string{"Cookie": "slack-app-oauth-state=" + state}, nil))
	if ok.Status != http.StatusFound || ok.Headers["Location"] != "https://example.com/installed" {
		t.Errorf("success: %s", spew.Sdump(ok))
	}
	failed, _ := f.HandleCallback(ctx, bolt.NewRequest("GET", "/slack/oauth_redirect",
		map[string]string{"error": "access_denied"}, nil, nil))
	if failed.Status != http.StatusFound || failed.Headers["Location"] != "https://example.com/failed" {
		t.Errorf("failure: %s", spew.Sdump(failed))
	}
}

func TestFlow_StateValidationDisabled(t *testing.T) {
	f := newTestFlow(t, func(s *Settings) { s.StateValidationEnabled = false })
	resp, err := f.HandleCallback(context.Background(), bolt.NewRequest("GET", "/slack/oauth_redirect",
		map[string]string{"code": "good-code"}, nil, nil))
	if err != nil || resp.Status != 200 {
		t.Errorf("unexpected result %v %d %s", err, resp.Status, resp.Body)
	}
}

func TestNewFlow_RequiresCredentials(t *testing.T) {
	s := NewSettings("", "").
		WithStateStore(NewBlobStateStore(blobstore.NewMemoryStore(), DefaultStateExpiration, quietLogger))
	if _, err := NewFlow(s); err == nil {
		t.Errorf("expected a configuration error")
	}
}

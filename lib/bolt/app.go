package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

const installMessage = "Please install this app into the workspace"

// App verifies Slack requests and dispatches them to registered listeners.
// Listeners must be registered before the App starts serving.
type App struct {
	signingSecret string
	verify        bool
	authorizer    Authorizer
	oauthFlow     OAuthFlow
	log           *logger.Logger
	httpClient    *http.Client
	apiURL        string

	events    map[string]Listener
	commands  map[string]Listener
	actions   map[string]Listener
	shortcuts map[string]Listener
	views     map[string]Listener
}

type Option func(*App)

func WithAuthorizer(a Authorizer) Option {
	return func(app *App) { app.authorizer = a }
}

// WithOAuthFlow installs the flow; its Authorizer replaces any set with
// WithAuthorizer. A nil flow, typed or not, leaves OAuth off.
func WithOAuthFlow(f OAuthFlow) Option {
	return func(app *App) {
		if isNil(f) {
			app.oauthFlow = nil
			return
		}
		app.oauthFlow = f
	}
}

func isNil(v interface{}) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Func, reflect.Interface, reflect.Slice, reflect.Chan:
		return rv.IsNil()
	}
	return false
}

func WithLogger(l *logger.Logger) Option {
	return func(app *App) { app.log = l }
}

func WithHTTPClient(c *http.Client) Option {
	return func(app *App) { app.httpClient = c }
}

// WithAPIURL points listener clients at another Web API root. Must end in "/".
func WithAPIURL(url string) Option {
	return func(app *App) { app.apiURL = url }
}

// WithRequestVerification turns signature checks on or off. On by default.
func WithRequestVerification(verify bool) Option {
	return func(app *App) { app.verify = verify }
}

func New(signingSecret string, opts ...Option) *App {
	app := &App{
		signingSecret: signingSecret,
		verify:        true,
		httpClient:    http.DefaultClient,
		events:        map[string]Listener{},
		commands:      map[string]Listener{},
		actions:       map[string]Listener{},
		shortcuts:     map[string]Listener{},
		views:         map[string]Listener{},
	}
	for _, opt := range opts {
		opt(app)
	}
	if app.log == nil {
		app.log = logger.New("", logger.WithLocal(true), logger.WithPrefix("bolt: "))
	}
	if app.oauthFlow != nil {
		if a := app.oauthFlow.Authorizer(); a != nil {
			app.authorizer = a
		}
	}
	return app
}

// OAuthFlow returns the configured flow, or nil.
func (a *App) OAuthFlow() OAuthFlow {
	return a.oauthFlow
}

// Event registers l for an Events API event type such as "app_mention".
func (a *App) Event(eventType string, l Listener) { a.events[eventType] = l }

// Command registers l for a slash command such as "/roll".
func (a *App) Command(command string, l Listener) { a.commands[command] = l }

// Action registers l for a block action_id or a legacy callback_id.
func (a *App) Action(actionID string, l Listener) { a.actions[actionID] = l }

// Shortcut registers l for a global or message shortcut callback_id.
func (a *App) Shortcut(callbackID string, l Listener) { a.shortcuts[callbackID] = l }

// View registers l for view_submission and view_closed of a view callback_id.
func (a *App) View(callbackID string, l Listener) { a.views[callbackID] = l }

func jsonResponse(status int, v interface{}) *Response {
	b, _ := json.Marshal(v)
	return &Response{
		Status:  status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    b,
	}
}

// Dispatch runs one request through verification, authorization and the
// matching listener. Errors from the authorizer or the listener are returned
// as is.
func (a *App) Dispatch(ctx context.Context, req *Request) (*Response, error) {
	p := parsePayload(req)
	if p.kind == kindSSLCheck {
		return NewResponse(http.StatusOK, ""), nil
	}
	if a.verify {
		if err := a.verifySignature(req); err != nil {
			a.log.Infof("invalid request signature: %v", err)
			return jsonResponse(http.StatusUnauthorized, map[string]string{"error": "invalid request"}), nil
		}
	}
	if p.kind == kindURLVerification {
		return jsonResponse(http.StatusOK, map[string]string{"challenge": p.json.Get("challenge").String()}), nil
	}

	ac := p.authorizeContext()
	var auth *AuthorizeResult
	if a.authorizer != nil && p.kind != kindUnknown && !p.skipsAuthorization() {
		var err error
		auth, err = a.authorizer.Authorize(ctx, ac)
		if err != nil {
			return nil, fmt.Errorf("could not authorize team %s: %w", ac.TeamID, err)
		}
		if auth == nil {
			a.log.Infof("no installation for enterprise:%q team:%q", ac.EnterpriseID, ac.TeamID)
			return NewResponse(http.StatusUnauthorized, installMessage), nil
		}
	}

	l := a.listenerFor(p)
	if l == nil {
		a.log.Debugf("unhandled request: %s", p.raw)
		return jsonResponse(http.StatusNotFound, map[string]string{"error": "unhandled request"}), nil
	}
	c := a.newContext(ctx, req, p, ac, auth)
	if err := l(c); err != nil {
		return nil, err
	}
	if c.response == nil {
		return NewResponse(http.StatusOK, ""), nil
	}
	return c.response, nil
}

func (a *App) verifySignature(req *Request) error {
	sv, err := slack.NewSecretsVerifier(req.HTTPHeader(), a.signingSecret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(req.Body); err != nil {
		return err
	}
	return sv.Ensure()
}

func (a *App) listenerFor(p payload) Listener {
	j := p.json
	switch p.kind {
	case kindEvent:
		return a.events[p.eventType()]
	case kindCommand:
		return a.commands[j.Get("command").String()]
	case kindInteraction:
		switch j.Get("type").String() {
		case "block_actions", "block_suggestion":
			return a.actions[firstString(j, "actions.0.action_id", "action_id")]
		case "interactive_message":
			return a.actions[j.Get("callback_id").String()]
		case "shortcut", "message_action":
			return a.shortcuts[j.Get("callback_id").String()]
		case "view_submission", "view_closed":
			return a.views[j.Get("view.callback_id").String()]
		}
	}
	return nil
}

func (a *App) newContext(ctx context.Context, req *Request, p payload, ac AuthorizeContext, auth *AuthorizeResult) *Context {
	c := &Context{
		Context:             ctx,
		Request:             req,
		Authorize:           auth,
		EnterpriseID:        ac.EnterpriseID,
		TeamID:              ac.TeamID,
		UserID:              ac.UserID,
		ChannelID:           p.channelID(),
		IsEnterpriseInstall: ac.IsEnterpriseInstall,
		Payload:             p.json,
		Logger:              a.log,
		app:                 a,
	}
	switch p.kind {
	case kindEvent:
		ev, err := slackevents.ParseEvent(json.RawMessage(p.raw), slackevents.OptionNoVerifyToken())
		if err != nil {
			a.log.Debugf("could not parse event %s: %v", p.eventType(), err)
			ev.Type = p.json.Get("type").String()
			ev.InnerEvent.Type = p.eventType()
		}
		c.Event = &ev
	case kindCommand:
		hr, err := http.NewRequest(http.MethodPost, "/", bytes.NewReader(req.Body))
		if err == nil {
			hr.Header.Set("Content-Type", "application/x-www-form-urlencoded")
			if cmd, err := slack.SlashCommandParse(hr); err == nil {
				c.Command = &cmd
			}
		}
	case kindInteraction:
		var ic slack.InteractionCallback
		if err := json.Unmarshal(p.raw, &ic); err != nil {
			a.log.Debugf("could not parse interaction: %v", err)
		} else {
			c.Interaction = &ic
		}
	}
	return c
}

func (a *App) client(token string) *slack.Client {
	opts := []slack.Option{slack.OptionHTTPClient(a.httpClient)}
	if a.apiURL != "" {
		opts = append(opts, slack.OptionAPIURL(a.apiURL))
	}
	return slack.New(token, opts...)
}

package oauth

import (
	"context"
	"fmt"
	"html/template"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/slack-go/slack"
	"golang.org/x/oauth2"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

// Failure reasons reported by HandleCallback.
const (
	ReasonInvalidBrowser = "invalid_browser"
	ReasonInvalidState   = "invalid_state"
	ReasonMissingCode    = "missing_code"
	ReasonInvalidCode    = "invalid_code"
	ReasonStorageError   = "storage_error"
)

// Flow serves the install and redirect endpoints of the OAuth v2 flow.
type Flow struct {
	settings   Settings
	httpClient *http.Client
	apiURL     string
	log        *logger.Logger
	endpoint   *oauth2.Config
}

type FlowOption func(*Flow)

func WithFlowHTTPClient(c *http.Client) FlowOption {
	return func(f *Flow) {
		if c != nil {
			f.httpClient = c
		}
	}
}

// WithFlowAPIURL points auth.test at another Web API root.
func WithFlowAPIURL(url string) FlowOption {
	return func(f *Flow) { f.apiURL = url }
}

func WithFlowLogger(l *logger.Logger) FlowOption {
	return func(f *Flow) { f.log = l }
}

// NewFlow needs client credentials and both stores in settings. Zero fields
// get the NewSettings defaults. When settings has no authorizer one is
// derived from the installation store.
func NewFlow(settings Settings, opts ...FlowOption) (*Flow, error) {
	var missing []string
	if settings.ClientID == "" {
		missing = append(missing, "SLACK_CLIENT_ID")
	}
	if settings.ClientSecret == "" {
		missing = append(missing, "SLACK_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return nil, errors.NewConfigurationError("Slack client credentials are not set", missing...)
	}
	if settings.stateStore == nil || settings.installationStore == nil {
		return nil, errors.NewConfigurationError("OAuth settings need a state store and an installation store")
	}
	settings = settings.withDefaults()
	f := &Flow{settings: settings, httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(f)
	}
	f.log = orDefault(f.log)
	if f.settings.authorize == nil {
		f.settings = f.settings.WithAuthorize(NewInstallationStoreAuthorize(
			settings.installationStore, settings.InstallationStoreBotOnly, settings.UserTokenResolution, f.log))
	}
	f.endpoint = &oauth2.Config{
		ClientID:     settings.ClientID,
		ClientSecret: settings.ClientSecret,
		RedirectURL:  settings.RedirectURI,
		Endpoint: oauth2.Endpoint{
			AuthURL:  settings.AuthorizationURL,
			TokenURL: slack.APIURL + "oauth.v2.access",
		},
	}
	return f, nil
}

// Settings returns a copy of the flow's settings.
func (f *Flow) Settings() Settings          { return f.settings }
func (f *Flow) InstallPath() string         { return f.settings.InstallPath }
func (f *Flow) RedirectURIPath() string     { return f.settings.RedirectURIPath }
func (f *Flow) Authorizer() bolt.Authorizer { return f.settings.authorize }
func (f *Flow) StateStore() StateStore      { return f.settings.stateStore }
func (f *Flow) Store() InstallationStore    { return f.settings.installationStore }

// AuthorizeURL is where the user grants the app its scopes.
func (f *Flow) AuthorizeURL(state string) string {
	opts := []oauth2.AuthCodeOption{oauth2.SetAuthURLParam("scope", strings.Join(f.settings.Scopes, ","))}
	if len(f.settings.UserScopes) > 0 {
		opts = append(opts, oauth2.SetAuthURLParam("user_scope", strings.Join(f.settings.UserScopes, ",")))
	}
	return f.endpoint.AuthCodeURL(state, opts...)
}

func (f *Flow) stateCookie(state string) string {
	c := &http.Cookie{
		Name:     f.settings.StateCookieName,
		Value:    state,
		Path:     "/",
		MaxAge:   int(f.settings.StateExpiration / time.Second),
		HttpOnly: true,
		Secure:   true,
	}
	return c.String()
}

func (f *Flow) clearedStateCookie() string {
	c := &http.Cookie{
		Name:     f.settings.StateCookieName,
		Value:    "deleted",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
	}
	return c.String()
}

// HandleInstallation issues a state and sends the user towards Slack, either
// through an "Add to Slack" page or by redirecting.
func (f *Flow) HandleInstallation(ctx context.Context, req *bolt.Request) (*bolt.Response, error) {
	state, err := f.settings.stateStore.Issue(ctx)
	if err != nil {
		return nil, err
	}
	u := f.AuthorizeURL(state)
	if !f.settings.InstallPageRenderingEnabled {
		resp := bolt.NewResponse(http.StatusFound, "")
		resp.SetHeader("Location", u)
		resp.SetHeader("Set-Cookie", f.stateCookie(state))
		return resp, nil
	}
	body, err := render(installPage, struct{ URL string }{u})
	if err != nil {
		return nil, err
	}
	return &bolt.Response{
		Status: http.StatusOK,
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
			"Set-Cookie":   f.stateCookie(state),
		},
		Body: body,
	}, nil
}

// HandleCallback completes the flow: it checks the state, exchanges the code
// and saves the installation. Problems with the request become failure
// pages; only rendering errors are returned.
func (f *Flow) HandleCallback(ctx context.Context, req *bolt.Request) (*bolt.Response, error) {
	if reason := req.Query["error"]; reason != "" {
		f.log.Infof("installation was cancelled or failed: %s", reason)
		return f.failure(reason, http.StatusOK)
	}

	if f.settings.StateValidationEnabled {
		state := req.Query["state"]
		cookie, ok := req.Cookie(f.settings.StateCookieName)
		if !ok || cookie != state {
			return f.failure(ReasonInvalidBrowser, http.StatusBadRequest)
		}
		status, err := f.settings.stateStore.Consume(ctx, state)
		if err != nil {
			f.log.Errorf("could not verify state: %v", err)
			return f.failure(ReasonInvalidState, http.StatusUnauthorized)
		}
		if status != StateOK {
			f.log.Infof("state %s rejected: %s", state, status)
			return f.failure(ReasonInvalidState, http.StatusUnauthorized)
		}
	}

	code := req.Query["code"]
	if code == "" {
		return f.failure(ReasonMissingCode, http.StatusUnauthorized)
	}
	inst, err := f.exchange(ctx, code)
	if err != nil {
		f.log.Warningf("could not exchange code: %v", err)
		return f.failure(ReasonInvalidCode, http.StatusUnauthorized)
	}
	if err := f.settings.installationStore.Save(ctx, inst); err != nil {
		f.log.Errorf("could not save installation: %v", err)
		return f.failure(ReasonStorageError, http.StatusInternalServerError)
	}
	f.log.Infof("installed app %s into enterprise:%q team:%q", inst.AppID, inst.EnterpriseID, inst.TeamID)
	return f.success(inst)
}

func (f *Flow) exchange(ctx context.Context, code string) (*Installation, error) {
	resp, err := slack.GetOAuthV2ResponseContext(ctx, f.httpClient,
		f.settings.ClientID, f.settings.ClientSecret, code, f.settings.RedirectURI)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	inst := &Installation{
		AppID:                           resp.AppID,
		EnterpriseID:                    resp.Enterprise.ID,
		EnterpriseName:                  resp.Enterprise.Name,
		TeamID:                          resp.Team.ID,
		TeamName:                        resp.Team.Name,
		UserID:                          resp.AuthedUser.ID,
		UserToken:                       resp.AuthedUser.AccessToken,
		UserScopes:                      ParseScopes(resp.AuthedUser.Scope),
		UserRefreshToken:                resp.AuthedUser.RefreshToken,
		IncomingWebhookURL:              resp.IncomingWebhook.URL,
		IncomingWebhookChannel:          resp.IncomingWebhook.Channel,
		IncomingWebhookChannelID:        resp.IncomingWebhook.ChannelID,
		IncomingWebhookConfigurationURL: resp.IncomingWebhook.ConfigurationURL,
		IsEnterpriseInstall:             resp.IsEnterpriseInstall,
		TokenType:                       resp.TokenType,
		InstalledAt:                     unixSeconds(now),
	}
	if resp.AuthedUser.ExpiresIn > 0 {
		inst.UserTokenExpiresAt = now.Unix() + int64(resp.AuthedUser.ExpiresIn)
	}
	if resp.TokenType == "bot" && resp.AccessToken != "" {
		inst.BotToken = resp.AccessToken
		inst.BotUserID = resp.BotUserID
		inst.BotScopes = ParseScopes(resp.Scope)
		inst.BotRefreshToken = resp.RefreshToken
		if resp.ExpiresIn > 0 {
			inst.BotTokenExpiresAt = now.Unix() + int64(resp.ExpiresIn)
		}
		opts := []slack.Option{slack.OptionHTTPClient(f.httpClient)}
		if f.apiURL != "" {
			opts = append(opts, slack.OptionAPIURL(f.apiURL))
		}
		at, err := slack.New(inst.BotToken, opts...).AuthTestContext(ctx)
		if err != nil {
			return nil, fmt.Errorf("auth.test: %w", err)
		}
		inst.BotID = at.BotID
	}
	return inst, nil
}

func (f *Flow) success(inst *Installation) (*bolt.Response, error) {
	if f.settings.SuccessURL != "" {
		return f.redirect(f.settings.SuccessURL), nil
	}
	deepLink := "slack://app?team=" + url.QueryEscape(inst.TeamID) + "&id=" + url.QueryEscape(inst.AppID)
	webURL := "https://app.slack.com/client/" + url.PathEscape(inst.TeamID)
	if inst.IsEnterpriseInstall {
		deepLink = "slack://app?team=" + url.QueryEscape(inst.EnterpriseID) + "&id=" + url.QueryEscape(inst.AppID)
		webURL = "https://app.slack.com/manage/" + url.PathEscape(inst.EnterpriseID) + "/integrations/profile/" + url.PathEscape(inst.AppID) + "/workspaces/add"
	}
	body, err := render(successPage, struct {
		URL    template.URL
		WebURL string
	}{template.URL(deepLink), webURL})
	if err != nil {
		return nil, err
	}
	return f.page(http.StatusOK, body), nil
}

func (f *Flow) failure(reason string, status int) (*bolt.Response, error) {
	if f.settings.FailureURL != "" {
		return f.redirect(f.settings.FailureURL), nil
	}
	body, err := render(failurePage, struct{ InstallPath, Reason string }{f.settings.InstallPath, reason})
	if err != nil {
		return nil, err
	}
	return f.page(status, body), nil
}

func (f *Flow) page(status int, body []byte) *bolt.Response {
	return &bolt.Response{
		Status: status,
		Headers: map[string]string{
			"Content-Type": "text/html; charset=utf-8",
			"Set-Cookie":   f.clearedStateCookie(),
		},
		Body: body,
	}
}

func (f *Flow) redirect(to string) *bolt.Response {
	resp := bolt.NewResponse(http.StatusFound, "")
	resp.SetHeader("Location", to)
	resp.SetHeader("Set-Cookie", f.clearedStateCookie())
	return resp
}

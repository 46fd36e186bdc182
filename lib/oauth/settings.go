package oauth

import (
	"time"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/envreader"
)

const (
	DefaultInstallPath      = "/slack/install"
	DefaultRedirectURIPath  = "/slack/oauth_redirect"
	DefaultStateCookieName  = "slack-app-oauth-state"
	DefaultStateExpiration  = 10 * time.Minute
	DefaultAuthorizationURL = "https://slack.com/oauth/v2/authorize"
)

// Settings configures a Flow. It is a value: the With methods return a
// modified copy and never change the receiver.
type Settings struct {
	ClientID     string
	ClientSecret string
	Scopes       []string
	UserScopes   []string
	RedirectURI  string

	InstallPath                 string
	RedirectURIPath             string
	InstallPageRenderingEnabled bool
	AuthorizationURL            string
	SuccessURL                  string
	FailureURL                  string

	StateCookieName        string
	StateExpiration        time.Duration
	StateValidationEnabled bool

	InstallationStoreBotOnly bool
	UserTokenResolution      string
	HistoricalDataEnabled    bool

	stateStore        StateStore
	installationStore InstallationStore
	authorize         bolt.Authorizer

	// set by NewSettings; a literal leaves it false
	defaulted bool
}

func NewSettings(clientID, clientSecret string) Settings {
	return Settings{
		ClientID:                    clientID,
		ClientSecret:                clientSecret,
		InstallPath:                 DefaultInstallPath,
		RedirectURIPath:             DefaultRedirectURIPath,
		InstallPageRenderingEnabled: true,
		AuthorizationURL:            DefaultAuthorizationURL,
		StateCookieName:             DefaultStateCookieName,
		StateExpiration:             DefaultStateExpiration,
		StateValidationEnabled:      true,
		UserTokenResolution:         UserTokenResolutionAuthedUser,
		HistoricalDataEnabled:       true,
		defaulted:                   true,
	}
}

// withDefaults fills every zero field with the NewSettings default. The
// booleans of a Settings built as a literal are switched on as well, since
// false cannot be told apart from unset there.
func (s Settings) withDefaults() Settings {
	d := NewSettings(s.ClientID, s.ClientSecret)
	if s.InstallPath == "" {
		s.InstallPath = d.InstallPath
	}
	if s.RedirectURIPath == "" {
		s.RedirectURIPath = d.RedirectURIPath
	}
	if s.AuthorizationURL == "" {
		s.AuthorizationURL = d.AuthorizationURL
	}
	if s.StateCookieName == "" {
		s.StateCookieName = d.StateCookieName
	}
	if s.StateExpiration <= 0 {
		s.StateExpiration = d.StateExpiration
	}
	if s.UserTokenResolution == "" {
		s.UserTokenResolution = d.UserTokenResolution
	}
	if !s.defaulted {
		s.InstallPageRenderingEnabled = d.InstallPageRenderingEnabled
		s.StateValidationEnabled = d.StateValidationEnabled
		s.HistoricalDataEnabled = d.HistoricalDataEnabled
		s.defaulted = true
	}
	return s
}

// envSettings are the Settings fields that can come from the environment.
type envSettings struct {
	Scopes                      []string      `env:"SLACK_SCOPES" envSeparator:","`
	UserScopes                  []string      `env:"SLACK_USER_SCOPES" envSeparator:","`
	RedirectURI                 string        `env:"SLACK_REDIRECT_URI"`
	InstallPath                 string        `env:"SLACK_INSTALL_PATH" envDefault:"/slack/install"`
	RedirectURIPath             string        `env:"SLACK_REDIRECT_URI_PATH" envDefault:"/slack/oauth_redirect"`
	InstallPageRenderingEnabled bool          `env:"SLACK_INSTALL_PAGE_RENDERING_ENABLED" envDefault:"true"`
	SuccessURL                  string        `env:"SLACK_OAUTH_SUCCESS_URL"`
	FailureURL                  string        `env:"SLACK_OAUTH_FAILURE_URL"`
	StateExpiration             time.Duration `env:"SLACK_STATE_EXPIRATION" envDefault:"10m"`
	BotOnly                     bool          `env:"SLACK_INSTALLATION_STORE_BOT_ONLY"`
	UserTokenResolution         string        `env:"SLACK_USER_TOKEN_RESOLUTION" envDefault:"authed_user"`
}

// SettingsFromEnv builds Settings for the given credentials with the rest
// read from r.
func SettingsFromEnv(r *envreader.EnvReader, clientID, clientSecret string) (Settings, error) {
	var es envSettings
	if err := r.Parse(&es); err != nil {
		return Settings{}, err
	}
	s := NewSettings(clientID, clientSecret)
	s.Scopes = es.Scopes
	s.UserScopes = es.UserScopes
	s.RedirectURI = es.RedirectURI
	s.InstallPath = es.InstallPath
	s.RedirectURIPath = es.RedirectURIPath
	s.InstallPageRenderingEnabled = es.InstallPageRenderingEnabled
	s.SuccessURL = es.SuccessURL
	s.FailureURL = es.FailureURL
	s.StateExpiration = es.StateExpiration
	s.InstallationStoreBotOnly = es.BotOnly
	s.UserTokenResolution = es.UserTokenResolution
	return s, nil
}

func (s Settings) WithStateStore(st StateStore) Settings {
	s.stateStore = st
	return s
}

func (s Settings) WithInstallationStore(st InstallationStore) Settings {
	s.installationStore = st
	return s
}

func (s Settings) WithAuthorize(a bolt.Authorizer) Settings {
	s.authorize = a
	return s
}

func (s Settings) StateStore() StateStore               { return s.stateStore }
func (s Settings) InstallationStore() InstallationStore { return s.installationStore }
func (s Settings) Authorize() bolt.Authorizer           { return s.authorize }

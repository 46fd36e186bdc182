package bolt

import "context"

// AuthorizeContext identifies who a request is for.
type AuthorizeContext struct {
	EnterpriseID        string
	TeamID              string
	UserID              string
	IsEnterpriseInstall bool

	// The user who performed the action, which may differ from UserID in
	// shared channels.
	ActorEnterpriseID string
	ActorTeamID       string
	ActorUserID       string
}

// AuthorizeResult carries the tokens a listener may use.
type AuthorizeResult struct {
	EnterpriseID string
	TeamID       string
	BotID        string
	BotUserID    string
	BotToken     string
	BotScopes    []string
	UserID       string
	UserToken    string
	UserScopes   []string
}

// Token returns the bot token, or the user token when there is no bot.
func (r *AuthorizeResult) Token() string {
	if r == nil {
		return ""
	}
	if r.BotToken != "" {
		return r.BotToken
	}
	return r.UserToken
}

// Authorizer resolves tokens for a request. A nil result with a nil error
// means the app is not installed for that workspace.
type Authorizer interface {
	Authorize(ctx context.Context, ac AuthorizeContext) (*AuthorizeResult, error)
}

type AuthorizerFunc func(ctx context.Context, ac AuthorizeContext) (*AuthorizeResult, error)

func (f AuthorizerFunc) Authorize(ctx context.Context, ac AuthorizeContext) (*AuthorizeResult, error) {
	return f(ctx, ac)
}

// StaticAuthorizer serves a single workspace with a fixed bot token.
func StaticAuthorizer(botToken string) Authorizer {
	return AuthorizerFunc(func(ctx context.Context, ac AuthorizeContext) (*AuthorizeResult, error) {
		return &AuthorizeResult{
			EnterpriseID: ac.EnterpriseID,
			TeamID:       ac.TeamID,
			UserID:       ac.UserID,
			BotToken:     botToken,
		}, nil
	})
}

// OAuthFlow is the installation flow an App can be configured with.
type OAuthFlow interface {
	InstallPath() string
	RedirectURIPath() string
	HandleInstallation(ctx context.Context, req *Request) (*Response, error)
	HandleCallback(ctx context.Context, req *Request) (*Response, error)
	Authorizer() Authorizer
}

// Package oauth implements the Slack OAuth v2 installation flow and the
// blob-backed stores it persists to.
package oauth

import (
	"encoding/json"
	"strings"
	"time"
)

// Scopes marshals as a comma-separated string, the way installation records
// are stored. It also accepts a JSON array.
type Scopes []string

func ParseScopes(s string) Scopes {
	var out Scopes
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func (s Scopes) String() string {
	return strings.Join(s, ",")
}

func (s Scopes) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Scopes) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		*s = ParseScopes(text)
		return nil
	}
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		return err
	}
	*s = list
	return nil
}

// Installation is the grant of one user installing the app into a workspace
// or an Enterprise Grid organization.
type Installation struct {
	AppID          string `json:"app_id,omitempty"`
	EnterpriseID   string `json:"enterprise_id,omitempty"`
	EnterpriseName string `json:"enterprise_name,omitempty"`
	EnterpriseURL  string `json:"enterprise_url,omitempty"`
	TeamID         string `json:"team_id,omitempty"`
	TeamName       string `json:"team_name,omitempty"`

	BotToken          string `json:"bot_token,omitempty"`
	BotID             string `json:"bot_id,omitempty"`
	BotUserID         string `json:"bot_user_id,omitempty"`
	BotScopes         Scopes `json:"bot_scopes,omitempty"`
	BotRefreshToken   string `json:"bot_refresh_token,omitempty"`
	BotTokenExpiresAt int64  `json:"bot_token_expires_at,omitempty"`

	UserID             string `json:"user_id"`
	UserToken          string `json:"user_token,omitempty"`
	UserScopes         Scopes `json:"user_scopes,omitempty"`
	UserRefreshToken   string `json:"user_refresh_token,omitempty"`
	UserTokenExpiresAt int64  `json:"user_token_expires_at,omitempty"`

	IncomingWebhookURL              string `json:"incoming_webhook_url,omitempty"`
	IncomingWebhookChannel          string `json:"incoming_webhook_channel,omitempty"`
	IncomingWebhookChannelID        string `json:"incoming_webhook_channel_id,omitempty"`
	IncomingWebhookConfigurationURL string `json:"incoming_webhook_configuration_url,omitempty"`

	IsEnterpriseInstall bool    `json:"is_enterprise_install"`
	TokenType           string  `json:"token_type,omitempty"`
	InstalledAt         float64 `json:"installed_at"`
}

// Bot is the bot part of an Installation.
type Bot struct {
	AppID               string  `json:"app_id,omitempty"`
	EnterpriseID        string  `json:"enterprise_id,omitempty"`
	EnterpriseName      string  `json:"enterprise_name,omitempty"`
	TeamID              string  `json:"team_id,omitempty"`
	TeamName            string  `json:"team_name,omitempty"`
	BotToken            string  `json:"bot_token"`
	BotID               string  `json:"bot_id,omitempty"`
	BotUserID           string  `json:"bot_user_id,omitempty"`
	BotScopes           Scopes  `json:"bot_scopes,omitempty"`
	BotRefreshToken     string  `json:"bot_refresh_token,omitempty"`
	BotTokenExpiresAt   int64   `json:"bot_token_expires_at,omitempty"`
	IsEnterpriseInstall bool    `json:"is_enterprise_install"`
	InstalledAt         float64 `json:"installed_at"`
}

// Bot returns the bot projection, or nil when the installation has no bot token.
func (i *Installation) Bot() *Bot {
	if i.BotToken == "" {
		return nil
	}
	return &Bot{
		AppID:               i.AppID,
		EnterpriseID:        i.EnterpriseID,
		EnterpriseName:      i.EnterpriseName,
		TeamID:              i.TeamID,
		TeamName:            i.TeamName,
		BotToken:            i.BotToken,
		BotID:               i.BotID,
		BotUserID:           i.BotUserID,
		BotScopes:           i.BotScopes,
		BotRefreshToken:     i.BotRefreshToken,
		BotTokenExpiresAt:   i.BotTokenExpiresAt,
		IsEnterpriseInstall: i.IsEnterpriseInstall,
		InstalledAt:         i.InstalledAt,
	}
}

// Installation widens a Bot back to an Installation without user data.
func (b *Bot) Installation() *Installation {
	return &Installation{
		AppID:               b.AppID,
		EnterpriseID:        b.EnterpriseID,
		EnterpriseName:      b.EnterpriseName,
		TeamID:              b.TeamID,
		TeamName:            b.TeamName,
		BotToken:            b.BotToken,
		BotID:               b.BotID,
		BotUserID:           b.BotUserID,
		BotScopes:           b.BotScopes,
		BotRefreshToken:     b.BotRefreshToken,
		BotTokenExpiresAt:   b.BotTokenExpiresAt,
		IsEnterpriseInstall: b.IsEnterpriseInstall,
		InstalledAt:         b.InstalledAt,
	}
}

// Key identifies the workspace and installer of the installation.
func (i *Installation) Key() InstallationKey {
	return InstallationKey{
		EnterpriseID:        i.EnterpriseID,
		TeamID:              i.TeamID,
		UserID:              i.UserID,
		IsEnterpriseInstall: i.IsEnterpriseInstall,
	}
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// InstallationKey looks installations up. TeamID is ignored for
// organization-wide installs; an empty UserID means the latest installer.
type InstallationKey struct {
	EnterpriseID        string
	TeamID              string
	UserID              string
	IsEnterpriseInstall bool
}

// workspacePath is "{clientID}/{enterprise}-{team}" with "none" for blanks.
func (k InstallationKey) workspacePath(clientID string) string {
	enterprise, team := k.EnterpriseID, k.TeamID
	if enterprise == "" {
		enterprise = "none"
	}
	if team == "" || k.IsEnterpriseInstall {
		team = "none"
	}
	return clientID + "/" + enterprise + "-" + team
}

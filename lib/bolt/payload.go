package bolt

import (
	"encoding/json"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
)

type payloadKind int

const (
	kindUnknown payloadKind = iota
	kindSSLCheck
	kindURLVerification
	kindEvent
	kindCommand
	kindInteraction
)

// payload is the body of a Slack request seen as JSON. Slash commands
// arrive form-encoded and are converted so the same paths work for all kinds.
type payload struct {
	kind payloadKind
	json gjson.Result
	raw  []byte
}

func parsePayload(req *Request) payload {
	body := strings.TrimSpace(string(req.Body))
	if strings.HasPrefix(body, "{") {
		p := payload{json: gjson.Parse(body), raw: []byte(body)}
		switch p.json.Get("type").String() {
		case "url_verification":
			p.kind = kindURLVerification
		case "event_callback", "app_rate_limited":
			p.kind = kindEvent
		}
		return p
	}
	form, err := url.ParseQuery(body)
	if err != nil {
		return payload{}
	}
	switch {
	case form.Get("payload") != "":
		raw := form.Get("payload")
		return payload{kind: kindInteraction, json: gjson.Parse(raw), raw: []byte(raw)}
	case form.Get("ssl_check") == "1":
		return payload{kind: kindSSLCheck}
	case form.Get("command") != "":
		flat := make(map[string]string, len(form))
		for k := range form {
			flat[k] = form.Get(k)
		}
		raw, _ := json.Marshal(flat)
		return payload{kind: kindCommand, json: gjson.ParseBytes(raw), raw: raw}
	}
	return payload{}
}

func firstString(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Type == gjson.String && v.Str != "" {
			return v.Str
		}
	}
	return ""
}

func firstBool(r gjson.Result, paths ...string) bool {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() {
			return v.Bool()
		}
	}
	return false
}

// authorizeContext pulls the workspace and user ids out of the payload.
func (p payload) authorizeContext() AuthorizeContext {
	j := p.json
	var ac AuthorizeContext
	switch p.kind {
	case kindEvent:
		ac.EnterpriseID = firstString(j, "authorizations.0.enterprise_id", "enterprise_id")
		ac.TeamID = firstString(j, "authorizations.0.team_id", "team_id")
		ac.UserID = firstString(j, "event.user", "event.user.id", "event.message.user", "user_id")
		ac.IsEnterpriseInstall = firstBool(j, "authorizations.0.is_enterprise_install", "is_enterprise_install")
		ac.ActorTeamID = firstString(j, "event.user_team", "event.user.team_id", "team_id")
		ac.ActorEnterpriseID = firstString(j, "event.user_profile.enterprise_id", "enterprise_id")
	case kindInteraction:
		ac.EnterpriseID = firstString(j, "enterprise.id", "team.enterprise_id")
		ac.TeamID = firstString(j, "view.app_installed_team_id", "team.id", "user.team_id")
		ac.UserID = firstString(j, "user.id")
		ac.IsEnterpriseInstall = firstBool(j, "is_enterprise_install")
		ac.ActorTeamID = firstString(j, "user.team_id", "team.id")
		ac.ActorEnterpriseID = ac.EnterpriseID
	case kindCommand:
		ac.EnterpriseID = firstString(j, "enterprise_id")
		ac.TeamID = firstString(j, "team_id")
		ac.UserID = firstString(j, "user_id")
		ac.IsEnterpriseInstall = firstBool(j, "is_enterprise_install")
		ac.ActorTeamID = ac.TeamID
		ac.ActorEnterpriseID = ac.EnterpriseID
	}
	ac.ActorUserID = ac.UserID
	return ac
}

func (p payload) channelID() string {
	return firstString(p.json, "event.channel", "event.item.channel", "channel.id", "container.channel_id", "channel_id")
}

func (p payload) eventType() string {
	return p.json.Get("event.type").String()
}

// skipsAuthorization reports events that arrive after the tokens are gone.
func (p payload) skipsAuthorization() bool {
	if p.kind != kindEvent {
		return false
	}
	switch p.eventType() {
	case "app_uninstalled", "tokens_revoked":
		return true
	}
	return false
}

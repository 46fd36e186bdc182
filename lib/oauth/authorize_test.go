package oauth

import (
	"context"
	"reflect"
	"testing"

	"github.com/davecgh/go-spew/spew"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
)

func TestInstallationStoreAuthorize(t *testing.T) {
	s, _ := newInstallationStore(false)
	ctx := context.Background()
	installer := testInstallation()
	s.Save(ctx, installer)
	member := testInstallation()
	member.UserID = "U222"
	member.UserToken = "xoxp-222"
	member.UserScopes = Scopes{"search:read"}
	s.Save(ctx, member)
	// put the first installer back on top
	s.Save(ctx, installer)

	botOnlyTeam := testInstallation()
	botOnlyTeam.TeamID = "T333"
	botOnlyTeam.BotToken = "xoxb-333"
	botOnlyTeam.UserToken = ""
	s.Save(ctx, botOnlyTeam)

	bot := func(teamID, token string) *bolt.AuthorizeResult {
		return &bolt.AuthorizeResult{
			TeamID:    teamID,
			BotID:     "B111",
			BotUserID: "UB111",
			BotToken:  token,
			BotScopes: []string{"commands", "chat:write"},
		}
	}
	withUser := func(r *bolt.AuthorizeResult, userID, token string, scopes []string) *bolt.AuthorizeResult {
		r.UserID, r.UserToken, r.UserScopes = userID, token, scopes
		return r
	}

	tt := []struct {
		name       string
		botOnly    bool
		resolution string
		ac         bolt.AuthorizeContext
		want       *bolt.AuthorizeResult
	}{
		{
			name: "installer",
			ac:   bolt.AuthorizeContext{TeamID: "T111", UserID: "U111", ActorUserID: "U111"},
			want: withUser(bot("T111", "xoxb-111"), "U111", "xoxp-111", nil),
		},
		{
			name: "other installed user",
			ac:   bolt.AuthorizeContext{TeamID: "T111", UserID: "U222", ActorUserID: "U222"},
			want: withUser(bot("T111", "xoxb-111"), "U222", "xoxp-222", []string{"search:read"}),
		},
		{
			name: "user who never installed",
			ac:   bolt.AuthorizeContext{TeamID: "T111", UserID: "U999"},
			want: bot("T111", "xoxb-111"),
		},
		{
			name:    "bot only",
			botOnly: true,
			ac:      bolt.AuthorizeContext{TeamID: "T111", UserID: "U222"},
			want:    bot("T111", "xoxb-111"),
		},
		{
			name:       "actor",
			resolution: UserTokenResolutionActor,
			ac:         bolt.AuthorizeContext{TeamID: "T111", UserID: "U111", ActorTeamID: "T111", ActorUserID: "U222"},
			want:       withUser(bot("T111", "xoxb-111"), "U222", "xoxp-222", []string{"search:read"}),
		},
		{
			name: "workspace without user token",
			ac:   bolt.AuthorizeContext{TeamID: "T333", UserID: "U111"},
			want: withUser(bot("T333", "xoxb-333"), "U111", "", nil),
		},
		{
			name: "not installed",
			ac:   bolt.AuthorizeContext{TeamID: "T999", UserID: "U111"},
		},
		{
			name:    "not installed bot only",
			botOnly: true,
			ac:      bolt.AuthorizeContext{TeamID: "T999"},
		},
	}
	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			a := NewInstallationStoreAuthorize(s, tc.botOnly, tc.resolution, quietLogger)
			got, err := a.Authorize(ctx, tc.ac)
			if err != nil {
				t.Fatal(err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %s got %s", spew.Sdump(tc.want), spew.Sdump(got))
			}
		})
	}
}

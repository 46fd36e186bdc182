package oauth

import (
	"context"
	"fmt"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

const (
	// UserTokenResolutionAuthedUser picks the user token of the user in the
	// request payload.
	UserTokenResolutionAuthedUser = "authed_user"
	// UserTokenResolutionActor picks the user token of the user who acted,
	// which matters in shared channels.
	UserTokenResolutionActor = "actor"
)

// InstallationStoreAuthorize resolves tokens from an InstallationStore.
type InstallationStoreAuthorize struct {
	store               InstallationStore
	botOnly             bool
	userTokenResolution string
	log                 *logger.Logger
}

func NewInstallationStoreAuthorize(store InstallationStore, botOnly bool, userTokenResolution string, log *logger.Logger) *InstallationStoreAuthorize {
	if userTokenResolution == "" {
		userTokenResolution = UserTokenResolutionAuthedUser
	}
	return &InstallationStoreAuthorize{
		store:               store,
		botOnly:             botOnly,
		userTokenResolution: userTokenResolution,
		log:                 orDefault(log),
	}
}

func (a *InstallationStoreAuthorize) Authorize(ctx context.Context, ac bolt.AuthorizeContext) (*bolt.AuthorizeResult, error) {
	key := InstallationKey{
		EnterpriseID:        ac.EnterpriseID,
		TeamID:              ac.TeamID,
		IsEnterpriseInstall: ac.IsEnterpriseInstall,
	}
	if a.botOnly {
		bot, err := a.store.FindBot(ctx, key)
		if err != nil {
			return nil, err
		}
		if bot == nil {
			a.log.Debugf("no bot installation for %s", key.workspacePath("*"))
			return nil, nil
		}
		return botResult(bot), nil
	}

	inst, err := a.store.FindInstallation(ctx, key)
	if err != nil {
		return nil, err
	}
	if inst == nil {
		bot, err := a.store.FindBot(ctx, key)
		if err != nil {
			return nil, err
		}
		if bot == nil {
			a.log.Debugf("no installation for %s", key.workspacePath("*"))
			return nil, nil
		}
		return botResult(bot), nil
	}

	userKey := key
	userKey.UserID = ac.UserID
	if a.userTokenResolution == UserTokenResolutionActor {
		userKey = InstallationKey{
			EnterpriseID:        ac.ActorEnterpriseID,
			TeamID:              ac.ActorTeamID,
			UserID:              ac.ActorUserID,
			IsEnterpriseInstall: ac.IsEnterpriseInstall,
		}
	}

	res := &bolt.AuthorizeResult{
		EnterpriseID: inst.EnterpriseID,
		TeamID:       inst.TeamID,
		BotID:        inst.BotID,
		BotUserID:    inst.BotUserID,
		BotToken:     inst.BotToken,
		BotScopes:    inst.BotScopes,
	}
	switch {
	case userKey.UserID == "":
	case userKey.UserID == inst.UserID && userKey.TeamID == key.TeamID:
		res.UserID, res.UserToken, res.UserScopes = inst.UserID, inst.UserToken, inst.UserScopes
	default:
		userInst, err := a.store.FindInstallation(ctx, userKey)
		if err != nil {
			return nil, fmt.Errorf("could not find installation of %s: %w", userKey.UserID, err)
		}
		if userInst != nil {
			res.UserID, res.UserToken, res.UserScopes = userInst.UserID, userInst.UserToken, userInst.UserScopes
		}
	}
	if res.BotToken == "" && res.UserToken == "" {
		return nil, nil
	}
	return res, nil
}

func botResult(bot *Bot) *bolt.AuthorizeResult {
	return &bolt.AuthorizeResult{
		EnterpriseID: bot.EnterpriseID,
		TeamID:       bot.TeamID,
		BotID:        bot.BotID,
		BotUserID:    bot.BotUserID,
		BotToken:     bot.BotToken,
		BotScopes:    bot.BotScopes,
	}
}

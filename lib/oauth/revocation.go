package oauth

import (
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
)

// RegisterTokenRevocationListeners removes stored installations when the app
// is uninstalled or its tokens are revoked.
func RegisterTokenRevocationListeners(app *bolt.App, store InstallationStore) {
	app.Event("app_uninstalled", func(c *bolt.Context) error {
		key := contextKey(c)
		c.Logger.Infof("app uninstalled from enterprise:%q team:%q", key.EnterpriseID, key.TeamID)
		return store.DeleteAll(c, key)
	})
	app.Event("tokens_revoked", func(c *bolt.Context) error {
		key := contextKey(c)
		for _, user := range c.Payload.Get("event.tokens.oauth").Array() {
			userKey := key
			userKey.UserID = user.String()
			if err := store.DeleteInstallation(c, userKey); err != nil {
				return err
			}
		}
		if len(c.Payload.Get("event.tokens.bot").Array()) > 0 {
			return store.DeleteBot(c, key)
		}
		return nil
	})
}

func contextKey(c *bolt.Context) InstallationKey {
	return InstallationKey{
		EnterpriseID:        c.EnterpriseID,
		TeamID:              c.TeamID,
		IsEnterpriseInstall: c.IsEnterpriseInstall,
	}
}

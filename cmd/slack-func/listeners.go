package main

import (
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
)

func registerListeners(app *bolt.App) {
	app.Event("app_mention", appMentionListener)
	app.Command("/hello", helloCommandListener)
}

func appMentionListener(c *bolt.Context) error {
	ts := c.Payload.Get("event.ts").String()
	_, _, err := c.Client().PostMessageContext(c, c.ChannelID,
		slack.MsgOptionText(fmt.Sprintf("Hi <@%s>!", c.UserID), false),
		slack.MsgOptionTS(ts))
	if err != nil {
		return fmt.Errorf("could not reply to mention: %w", err)
	}
	return nil
}

func helloCommandListener(c *bolt.Context) error {
	text := "Hello!"
	if c.Command != nil && strings.TrimSpace(c.Command.Text) != "" {
		text = fmt.Sprintf("Hello, %s!", strings.TrimSpace(c.Command.Text))
	}
	return c.AckJSON(slack.Msg{ResponseType: slack.ResponseTypeEphemeral, Text: text})
}

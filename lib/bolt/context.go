package bolt

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/tidwall/gjson"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

// Listener handles one kind of Slack request.
type Listener func(c *Context) error

// Context is what a Listener gets. It is also a context.Context, so it can be
// passed straight to slack-go's *Context methods.
type Context struct {
	context.Context

	Request             *Request
	Authorize           *AuthorizeResult
	EnterpriseID        string
	TeamID              string
	UserID              string
	ChannelID           string
	IsEnterpriseInstall bool

	// Payload is the request body as JSON; form-encoded commands are converted.
	Payload gjson.Result

	// Exactly one of these is set, depending on the request.
	Event       *slackevents.EventsAPIEvent
	Command     *slack.SlashCommand
	Interaction *slack.InteractionCallback

	Logger *logger.Logger

	app      *App
	response *Response
}

// Client returns a Web API client for the authorized token.
func (c *Context) Client() *slack.Client {
	return c.app.client(c.Authorize.Token())
}

// Ack sets a plain text response body.
func (c *Context) Ack(text string) {
	c.response = NewResponse(http.StatusOK, text)
}

// AckJSON sets a JSON response body, e.g. a message for a slash command or
// response_action for a view submission.
func (c *Context) AckJSON(v interface{}) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.response = &Response{
		Status:  http.StatusOK,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    b,
	}
	return nil
}

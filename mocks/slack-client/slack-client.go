package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/envreader"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
	"github.com/cloudnative-co/slack-bolt-add-azure/mocks/slackapi"
)

var rootCmd = &cobra.Command{
	Use:   "slack-client [line]",
	Short: "Send signed Slack requests to a running slack-func",
	Long: `Sends each line as a signed Slack request, from the arguments or, without
any, from stdin:

  /cmd text   a slash command
  << text     an app_mention event
  {...}       a raw JSON body`,
	RunE: func(cmd *cobra.Command, args []string) error {
		secret := envreader.NewEnvReader().GetEnvOpt("SLACK_SIGNING_SECRET")
		if secret == "" {
			return fmt.Errorf("SLACK_SIGNING_SECRET must be set")
		}
		c := &client{
			target:  flags.target,
			secret:  secret,
			team:    flags.team,
			user:    flags.user,
			channel: flags.channel,
			http:    &http.Client{Timeout: 10 * time.Second},
		}
		if len(args) > 0 {
			return c.run(cmd.OutOrStdout(), strings.Join(args, " "))
		}
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if err := c.run(cmd.OutOrStdout(), scanner.Text()); err != nil {
				logger.Println("error:", err)
			}
		}
		return scanner.Err()
	},
}

var flags struct {
	target  string
	team    string
	user    string
	channel string
}

func init() {
	rootCmd.Flags().StringVar(&flags.target, "url", "http://localhost:8080/slack/events", "slack-func endpoint")
	rootCmd.Flags().StringVar(&flags.team, "team", slackapi.DefaultGrant.TeamID, "team id")
	rootCmd.Flags().StringVar(&flags.user, "user", slackapi.DefaultGrant.UserID, "user id")
	rootCmd.Flags().StringVar(&flags.channel, "channel", "C2147483705", "channel id")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

type client struct {
	target  string
	secret  string
	team    string
	user    string
	channel string
	http    *http.Client
}

// build turns one input line into a request body and content type.
func (c *client) build(line string) ([]byte, string, error) {
	switch {
	case strings.HasPrefix(line, "/"):
		command, text := line, ""
		if i := strings.IndexByte(line, ' '); i > 0 {
			command, text = line[:i], strings.TrimSpace(line[i+1:])
		}
		form := url.Values{
			"command":      {command},
			"text":         {text},
			"team_id":      {c.team},
			"user_id":      {c.user},
			"channel_id":   {c.channel},
			"trigger_id":   {"13345224609.738474920.8088930838d88f008e0"},
			"response_url": {"https://hooks.slack.com/commands/mock"},
		}
		return []byte(form.Encode()), "application/x-www-form-urlencoded", nil
	case strings.HasPrefix(line, "<< "):
		ts := fmt.Sprintf("%d.000100", time.Now().Unix())
		body, err := json.Marshal(map[string]interface{}{
			"type":       "event_callback",
			"team_id":    c.team,
			"api_app_id": slackapi.DefaultGrant.AppID,
			"event_id":   "Ev" + ts,
			"authorizations": []map[string]interface{}{
				{"team_id": c.team, "user_id": slackapi.DefaultGrant.BotUserID, "is_bot": true},
			},
			"event": map[string]string{
				"type":    "app_mention",
				"user":    c.user,
				"channel": c.channel,
				"text":    "<@" + slackapi.DefaultGrant.BotUserID + "> " + strings.TrimPrefix(line, "<< "),
				"ts":      ts,
			},
		})
		return body, "application/json", err
	case json.Valid([]byte(line)):
		return []byte(line), "application/json", nil
	}
	return nil, "", fmt.Errorf("could not understand %q", line)
}

func (c *client) run(w io.Writer, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	status, body, err := c.send(line)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, ">> %d\n%s\n-----\n", status, pretty(body))
	return nil
}

func (c *client) send(line string) (int, []byte, error) {
	body, contentType, err := c.build(line)
	if err != nil {
		return 0, nil, err
	}
	req, err := http.NewRequest(http.MethodPost, c.target, bytes.NewReader(body))
	if err != nil {
		return 0, nil, err
	}
	headers := map[string]string{"content-type": contentType}
	slackapi.Sign(headers, c.secret, body, time.Now())
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func pretty(body []byte) string {
	var obj interface{}
	if err := json.Unmarshal(body, &obj); err != nil {
		return string(body)
	}
	m, _ := json.MarshalIndent(obj, ">> ", "  ")
	return ">> " + string(m)
}

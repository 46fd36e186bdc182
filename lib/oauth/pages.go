package oauth

import (
	"bytes"
	"html/template"
)

var installPage = template.Must(template.New("install").Parse(`<html>
<head>
<link rel="icon" href="data:,">
<style>
body { padding: 10px 15px; font-family: verdana; text-align: center; }
</style>
</head>
<body>
<h2>Slack App Installation</h2>
<p><a href="{{.URL}}"><img alt="Add to Slack" height="40" width="139" src="https://platform.slack-edge.com/img/add_to_slack.png" srcset="https://platform.slack-edge.com/img/add_to_slack.png 1x, https://platform.slack-edge.com/img/add_to_slack@2x.png 2x" /></a></p>
</body>
</html>
`))

var successPage = template.Must(template.New("success").Parse(`<html>
<head>
<meta http-equiv="refresh" content="0; URL={{.URL}}">
<link rel="icon" href="data:,">
<style>
body { padding: 10px 15px; font-family: verdana; text-align: center; }
</style>
</head>
<body>
<h2>Thank you!</h2>
<p>Redirecting to the Slack App... click <a href="{{.URL}}">here</a>. If you use the browser version of Slack, click <a href="{{.WebURL}}" target="_blank">this link</a> instead.</p>
</body>
</html>
`))

var failurePage = template.Must(template.New("failure").Parse(`<html>
<head>
<link rel="icon" href="data:,">
<style>
body { padding: 10px 15px; font-family: verdana; text-align: center; }
</style>
</head>
<body>
<h2>Oops, Something Went Wrong!</h2>
<p>Please try again from <a href="{{.InstallPath}}">here</a> or contact the app owner (reason: {{.Reason}})</p>
</body>
</html>
`))

func render(t *template.Template, data interface{}) ([]byte, error) {
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

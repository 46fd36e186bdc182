package logger

import (
	"context"
	"fmt"
	"io"

	"cloud.google.com/go/logging"
	charm "github.com/charmbracelet/log"
)

// ConsoleHandler writes entries as leveled text lines.
type ConsoleHandler struct {
	out *charm.Logger
}

func NewConsoleHandler(w io.Writer, debug bool) *ConsoleHandler {
	level := charm.InfoLevel
	if debug {
		level = charm.DebugLevel
	}
	return &ConsoleHandler{out: charm.NewWithOptions(w, charm.Options{
		ReportTimestamp: true,
		Level:           level,
	})}
}

func (h *ConsoleHandler) Handle(e logging.Entry) {
	var keyvals []interface{}
	if e.HTTPRequest != nil && e.HTTPRequest.Request != nil {
		keyvals = append(keyvals, "method", e.HTTPRequest.Request.Method, "path", e.HTTPRequest.Request.URL.Path)
	}
	level := consoleLevel(e.Severity)
	if e.Severity >= logging.Critical {
		keyvals = append(keyvals, "severity", e.Severity.String())
	}
	h.out.Log(level, fmt.Sprint(e.Payload), keyvals...)
}

func (h *ConsoleHandler) Close() error {
	return nil
}

func consoleLevel(s logging.Severity) charm.Level {
	switch {
	case s == logging.Debug:
		return charm.DebugLevel
	case s >= logging.Error:
		return charm.ErrorLevel
	case s >= logging.Warning:
		return charm.WarnLevel
	default:
		return charm.InfoLevel
	}
}

// CloudHandler ships entries to Google Cloud Logging.
type CloudHandler struct {
	client *logging.Client
	logger *logging.Logger
}

func NewCloudHandler(ctx context.Context, projectID string, logName string) (*CloudHandler, error) {
	client, err := logging.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create logging client: %w", err)
	}
	return &CloudHandler{client: client, logger: client.Logger(logName)}, nil
}

func (h *CloudHandler) Handle(e logging.Entry) {
	h.logger.Log(e)
}

// Close flushes buffered entries.
func (h *CloudHandler) Close() error {
	return h.client.Close()
}

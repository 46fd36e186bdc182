package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"cloud.google.com/go/logging"
)

// Handler receives every entry a Logger emits. Handlers are installed on the
// shared root of a Logger and all copies made with WithRequest.
type Handler interface {
	Handle(entry logging.Entry)
	Close() error
}

type handlerSet struct {
	mu       sync.RWMutex
	handlers []Handler
}

type Logger struct {
	root            *handlerSet
	projectID       string
	logName         string
	prefix          string
	debug           bool
	local           bool
	defaultSeverity logging.Severity
	output          io.Writer
	initial         []Handler
	httpRequest     *logging.HTTPRequest
}

// Option configures a Logger at construction.
type Option func(*Logger)

// WithDebug enables Debug entries.
func WithDebug(debug bool) Option {
	return func(l *Logger) { l.debug = debug }
}

// WithLocal disables the Cloud Logging handler.
func WithLocal(local bool) Option {
	return func(l *Logger) { l.local = local }
}

// WithLogName sets the Cloud Logging log id.
func WithLogName(logName string) Option {
	return func(l *Logger) { l.logName = logName }
}

// WithPrefix is prepended to every string payload.
func WithPrefix(prefix string) Option {
	return func(l *Logger) { l.prefix = prefix }
}

// WithDefaultSeverity is used for entries logged without a severity.
func WithDefaultSeverity(s logging.Severity) Option {
	return func(l *Logger) { l.defaultSeverity = s }
}

// WithOutput sets where the console handler writes. Defaults to stderr.
func WithOutput(w io.Writer) Option {
	return func(l *Logger) { l.output = w }
}

// WithHandlers replaces the default handlers. With no arguments the Logger
// discards everything.
func WithHandlers(handlers ...Handler) Option {
	return func(l *Logger) { l.initial = append([]Handler{}, handlers...) }
}

// New creates a Logger. Unless WithHandlers is given it writes to the console
// and, when projectID is set and the logger is not local, to Cloud Logging.
func New(projectID string, opts ...Option) *Logger {
	l := &Logger{
		root:            &handlerSet{},
		projectID:       projectID,
		logName:         "slack-bolt-azure",
		defaultSeverity: logging.Info,
		output:          os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.initial == nil {
		l.initial = l.DefaultHandlers()
	}
	l.ResetHandlers(l.initial...)
	l.initial = nil
	return l
}

// DefaultHandlers builds the handlers New installs when none are given.
func (logger *Logger) DefaultHandlers() []Handler {
	handlers := []Handler{NewConsoleHandler(logger.output, logger.debug)}
	if logger.projectID == "" || logger.local {
		return handlers
	}
	cloud, err := NewCloudHandler(context.Background(), logger.projectID, logger.logName)
	if err != nil {
		Printf("could not create Cloud Logging handler, console only: %v", err)
		return handlers
	}
	return append(handlers, cloud)
}

// ResetHandlers removes every handler installed on the shared root and
// installs handlers in their place. Removed handlers are closed unless they
// are part of the new set, so calling it repeatedly with the same handlers
// never duplicates output.
func (logger *Logger) ResetHandlers(handlers ...Handler) {
	root := logger.root
	root.mu.Lock()
	old := root.handlers
	root.handlers = append([]Handler(nil), handlers...)
	root.mu.Unlock()

	for _, h := range old {
		if contains(handlers, h) {
			continue
		}
		if err := h.Close(); err != nil {
			Printf("error closing log handler: %v", err)
		}
	}
}

// Handlers returns the handlers currently installed on the shared root.
func (logger *Logger) Handlers() []Handler {
	logger.root.mu.RLock()
	defer logger.root.mu.RUnlock()
	return append([]Handler(nil), logger.root.handlers...)
}

func contains(handlers []Handler, h Handler) bool {
	for _, candidate := range handlers {
		if candidate == h {
			return true
		}
	}
	return false
}

// WithRequest returns a shallow copy of logger with a request present
func (logger *Logger) WithRequest(r *http.Request) *Logger {
	if r == nil || logger == nil {
		panic("nil request")
	}
	logger2 := new(Logger)
	*logger2 = *logger
	logger2.httpRequest = &logging.HTTPRequest{Request: r}
	return logger2
}

func (logger *Logger) Debug(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Debug,
	})
}
func (logger *Logger) Info(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Info,
	})
}
func (logger *Logger) Warning(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Warning,
	})
}
func (logger *Logger) Error(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Error,
	})
}
func (logger *Logger) Critical(message interface{}) {
	logger.Log(logging.Entry{
		Payload:  message,
		Severity: logging.Critical,
	})
}

// Log hands entry to every installed handler.
func (logger *Logger) Log(entry logging.Entry) {
	if logger == nil {
		return
	}
	e := entry
	if e.Severity == logging.Default {
		e.Severity = logger.defaultSeverity
	}
	if e.Severity == logging.Debug && !logger.debug {
		return
	}
	if s, ok := e.Payload.(string); ok && logger.prefix != "" {
		e.Payload = logger.prefix + s
	}
	if logger.httpRequest != nil && e.HTTPRequest == nil {
		e.HTTPRequest = logger.httpRequest
	}
	logger.root.mu.RLock()
	defer logger.root.mu.RUnlock()
	for _, h := range logger.root.handlers {
		h.Handle(e)
	}
}

func (logger *Logger) Debugf(format string, a ...interface{}) {
	logger.Debug(fmt.Sprintf(format, a...))
}
func (logger *Logger) Infof(format string, a ...interface{}) {
	logger.Info(fmt.Sprintf(format, a...))
}
func (logger *Logger) Warningf(format string, a ...interface{}) {
	logger.Warning(fmt.Sprintf(format, a...))
}
func (logger *Logger) Errorf(format string, a ...interface{}) {
	logger.Error(fmt.Sprintf(format, a...))
}
func (logger *Logger) Criticalf(format string, a ...interface{}) {
	logger.Critical(fmt.Sprintf(format, a...))
}

// Close removes and closes every installed handler.
func (logger *Logger) Close() {
	logger.ResetHandlers()
}

// Printf logs to the standard logger. Used before a Logger exists.
func Printf(format string, a ...interface{}) {
	log.Printf(format, a...)
}

// Println logs to the standard logger.
func Println(a ...interface{}) {
	log.Println(a...)
}

// Fatalf logs to the standard logger and exits.
func Fatalf(format string, a ...interface{}) {
	log.Fatalf(format, a...)
}

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/envreader"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
	"github.com/cloudnative-co/slack-bolt-add-azure/mocks/kms"
	"github.com/cloudnative-co/slack-bolt-add-azure/mocks/slackapi"
)

type config struct {
	Addr      string `env:"MOCK_SLACK_ADDR" envDefault:":50082"`
	Code      string `env:"MOCK_SLACK_CODE" envDefault:"mock-code"`
	TeamID    string `env:"MOCK_SLACK_TEAM_ID"`
	BotToken  string `env:"MOCK_SLACK_BOT_TOKEN"`
	UserToken string `env:"MOCK_SLACK_USER_TOKEN"`
	Debug     bool   `env:"DEBUG"`
}

func (c config) grant() slackapi.Grant {
	g := slackapi.DefaultGrant
	if c.TeamID != "" {
		g.TeamID = c.TeamID
	}
	if c.BotToken != "" {
		g.BotToken = c.BotToken
	}
	if c.UserToken != "" {
		g.UserToken = c.UserToken
	}
	return g
}

// Serves the fake Slack Web API and Cloud KMS so slack-func can run locally
// with SLACK_API_URL and KMS_ENDPOINT pointed at it.
func main() {
	var c config
	if err := envreader.NewEnvReader().Parse(&c); err != nil {
		logger.Fatalf("could not read configuration: %v", err)
	}
	log := logger.New("", logger.WithLocal(true), logger.WithDebug(c.Debug), logger.WithLogName("mock-slack-server"))
	defer log.Close()

	kmsAPI, err := kms.NewAPI(kms.DefaultKey)
	if err != nil {
		log.Criticalf("could not start kms: %v", err)
		return
	}
	r := mux.NewRouter()
	r.PathPrefix("/v1/").Handler(kmsAPI)
	r.PathPrefix("/").Handler(slackapi.NewAPI(c.Code, c.grant()))
	srv := &http.Server{
		Addr:         c.Addr,
		Handler:      logRequests(log, r),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("mock slack api and kms listening on %s, accepting code %q", c.Addr, c.Code)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Criticalf("listen: %v", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Errorf("shutdown: %v", err)
	}
}

func logRequests(log *logger.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		log.WithRequest(r).Debugf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

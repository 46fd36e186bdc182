package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/logging"
	"github.com/gorilla/mux"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/azurefunc"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/bolt"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/envreader"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/handler"
	log "github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/oauth"
)

type environment struct {
	config     *envConfig
	log        *log.Logger
	httpClient *http.Client
	handler    *azurefunc.SlackRequestHandler
	cleanup    func()
}

func main() {
	log.Printf("hello.")
	ctx := context.Background()
	reader := newEnvReader()
	config, err := GetEnvironmentalConfig(reader)
	if err != nil {
		log.Fatalf("ERROR OCCURED BEFORE LOGGING: %s", err)
	}
	logger := log.New(
		config.LogProjectID,
		log.WithDefaultSeverity(logging.Info),
		log.WithDebug(config.Debug),
		log.WithLocal(config.Local),
		log.WithLogName(config.LogName),
		log.WithPrefix("slack-func: "),
	)
	defer log.Println("Shutting down logger.")
	defer logger.Close()

	httpClient, err := config.httpClient()
	if err != nil {
		logger.Criticalf("could not start: %v", err)
		return
	}
	env := &environment{config: config, log: logger, httpClient: httpClient}
	if err := env.init(ctx, reader); err != nil {
		if errors.IsConfiguration(err) {
			logger.Criticalf("could not start, check the app settings or local.settings.json: %v", err)
			return
		}
		logger.Criticalf("could not start: %v", err)
		return
	}
	defer env.cleanup()
	logger.Infof("Logger up and running! oauth:%v backend:%s forwarding:%v", config.oauthEnabled(), config.Backend, config.Forwarding)

	srv := &http.Server{
		Addr:         ":" + config.Port,
		WriteTimeout: time.Second * 15,
		ReadTimeout:  time.Second * 15,
		IdleTimeout:  time.Second * 60,
		Handler:      env.router(),
	}

	go func() {
		err := srv.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			logger.Criticalf("ListenAndServe error: %+v", err)
		}
	}()

	// The Functions host stops workers with SIGTERM.
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
	<-c

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*15)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	log.Println("shut down")
}

// init builds the app and the request handler.
func (env *environment) init(ctx context.Context, reader *envreader.EnvReader) error {
	app, cleanup, err := newApp(ctx, env.config, reader, env.log, env.httpClient)
	if err != nil {
		return err
	}
	env.cleanup = cleanup
	env.handler = azurefunc.NewSlackRequestHandler(app, env.log,
		azurefunc.WithLogHandlers(env.log.Handlers()...),
		azurefunc.WithBindings(env.config.TriggerBinding, env.config.OutputBinding))
	return nil
}

func newApp(ctx context.Context, config *envConfig, reader *envreader.EnvReader, logger *log.Logger, httpClient *http.Client) (*bolt.App, func(), error) {
	opts := []bolt.Option{bolt.WithLogger(logger), bolt.WithHTTPClient(httpClient)}
	cleanup := func() {}
	var flow *oauth.Flow
	if config.oauthEnabled() {
		opener, closeStore, err := config.opener(ctx)
		if err != nil {
			return nil, nil, err
		}
		cleanup = closeStore
		cipher, err := config.cipher(ctx)
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		flow, err = oauth.NewBlobFlow(ctx, reader, oauth.BlobFlowOptions{
			Opener:     opener,
			Cipher:     cipher,
			Logger:     logger,
			HTTPClient: httpClient,
		})
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, bolt.WithOAuthFlow(flow))
	} else if config.BotToken != "" {
		opts = append(opts, bolt.WithAuthorizer(bolt.StaticAuthorizer(config.BotToken)))
	} else {
		logger.Warning("neither OAuth credentials nor SLACK_BOT_TOKEN are set; listeners get no token")
	}

	app := bolt.New(config.SigningSecret, opts...)
	registerListeners(app)
	if flow != nil {
		oauth.RegisterTokenRevocationListeners(app, flow.Store())
	}
	return app, cleanup, nil
}

func (env *environment) router() *mux.Router {
	r := mux.NewRouter()
	if env.config.Forwarding {
		r.PathPrefix("/").Handler(handler.Handler{Env: env.handler, H: azurefunc.ServeForwarded, Log: env.log})
		return r
	}
	r.Handle("/"+env.config.FunctionName, handler.Handler{Env: env.handler, H: azurefunc.ServeInvocation, Log: env.log})
	return r
}

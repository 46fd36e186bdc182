package main

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/go-redis/redis/v7"
	"google.golang.org/api/option"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/blobstore"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/envreader"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
)

type envConfig struct {
	Port         string `env:"FUNCTIONS_CUSTOMHANDLER_PORT" envDefault:"8080"`
	Forwarding   bool   `env:"FUNCTIONS_FORWARDING_HTTP_REQUEST" envDefault:"true"`
	FunctionName string `env:"AZURE_FUNCTION_NAME" envDefault:"slack"`
	// Names of the trigger and output bindings in function.json.
	TriggerBinding string `env:"AZURE_FUNCTION_TRIGGER_BINDING" envDefault:"req"`
	OutputBinding  string `env:"AZURE_FUNCTION_OUTPUT_BINDING" envDefault:"res"`
	SigningSecret  string `env:"SLACK_SIGNING_SECRET,required,notEmpty"`
	ClientID       string `env:"SLACK_CLIENT_ID"`
	ClientSecret   string `env:"SLACK_CLIENT_SECRET"`
	BotToken       string `env:"SLACK_BOT_TOKEN"`
	APIURL         string `env:"SLACK_API_URL"`

	Backend            string `env:"BLOB_BACKEND" envDefault:"azure"`
	DatastoreProjectID string `env:"DATASTORE_PROJECT_ID"`
	RedisAddr          string `env:"REDIS_ADDR"`

	KMSKeyName  string `env:"KMS_KEY_NAME"`
	KMSEndpoint string `env:"KMS_ENDPOINT"`

	LogProjectID string `env:"LOG_PROJECT_ID"`
	LogName      string `env:"LOG_NAME" envDefault:"slack-func"`
	Debug        bool   `env:"DEBUG"`
	Local        bool   `env:"LOCAL"`
}

// newEnvReader reads the process environment and, when it exists, the
// local.settings.json the Functions tooling keeps next to host.json.
func newEnvReader() *envreader.EnvReader {
	path := os.Getenv("LOCAL_SETTINGS_FILE")
	if path == "" {
		path = "local.settings.json"
	}
	if _, err := os.Stat(path); err != nil {
		return envreader.NewEnvReader()
	}
	return envreader.NewEnvReader(envreader.WithSettingsFile(path))
}

func GetEnvironmentalConfig(r *envreader.EnvReader) (*envConfig, error) {
	if err := r.SettingsError(); err != nil {
		return nil, err
	}
	config := &envConfig{}
	if err := r.Parse(config); err != nil && len(r.MissingKeys) == 0 {
		return nil, fmt.Errorf("could not parse config: %w", err)
	}
	switch config.Backend {
	case "azure":
		if config.oauthEnabled() {
			r.GetEnv("AZURE_BLOB_CONNECTION_STR")
		}
	case "datastore":
		r.GetEnv("DATASTORE_PROJECT_ID")
	case "redis":
		r.GetEnv("REDIS_ADDR")
	case "memory":
	default:
		return nil, fmt.Errorf("unknown BLOB_BACKEND %q", config.Backend)
	}
	if r.Errors {
		return nil, errors.NewConfigurationError("could not gather config", r.MissingKeys...)
	}
	return config, nil
}

func (c *envConfig) oauthEnabled() bool {
	return c.ClientID != "" || c.ClientSecret != ""
}

// opener returns the blob opener for the configured backend and a function
// releasing its client. A nil opener means Azure Blob Storage.
func (c *envConfig) opener(ctx context.Context) (blobstore.Opener, func(), error) {
	switch c.Backend {
	case "datastore":
		client, err := blobstore.NewDatastoreClient(ctx, c.DatastoreProjectID, c.Local)
		if err != nil {
			return nil, nil, err
		}
		return blobstore.DatastoreOpener(client), func() { client.Close() }, nil
	case "redis":
		return c.redisOpener()
	case "memory":
		return blobstore.MemoryOpener(), func() {}, nil
	}
	return nil, func() {}, nil
}

// redisOpener connects to every address in REDIS_ADDR. More than one
// address shards blobs over the nodes.
func (c *envConfig) redisOpener() (blobstore.Opener, func(), error) {
	var clients []*redis.Client
	closeAll := func() {
		for _, client := range clients {
			client.Close()
		}
	}
	nodes := make(map[string]blobstore.Opener)
	for _, addr := range strings.Split(c.RedisAddr, ",") {
		addr = strings.TrimSpace(addr)
		if addr == "" {
			continue
		}
		client := redis.NewClient(&redis.Options{Addr: addr})
		clients = append(clients, client)
		if err := client.Ping().Err(); err != nil {
			closeAll()
			return nil, nil, fmt.Errorf("could not reach redis at %s: %w", addr, err)
		}
		nodes[addr] = blobstore.RedisOpener(client)
	}
	switch len(clients) {
	case 0:
		return nil, nil, fmt.Errorf("REDIS_ADDR has no addresses")
	case 1:
		return blobstore.RedisOpener(clients[0]), closeAll, nil
	}
	return blobstore.ShardedOpener(nodes), closeAll, nil
}

// cipher returns the Cloud KMS cipher for installation records, or nil
// when KMS_KEY_NAME is not set. KMS_ENDPOINT points it at an emulator.
func (c *envConfig) cipher(ctx context.Context) (blobstore.Cipher, error) {
	if c.KMSKeyName == "" {
		return nil, nil
	}
	var opts []option.ClientOption
	if c.KMSEndpoint != "" {
		opts = append(opts, option.WithEndpoint(c.KMSEndpoint))
		if c.Local {
			opts = append(opts, option.WithoutAuthentication())
		}
	}
	kms, err := blobstore.NewKMSCipher(ctx, c.KMSKeyName, opts...)
	if err != nil {
		return nil, err
	}
	return kms, nil
}

// httpClient returns the client used for every Web API call. With
// SLACK_API_URL set, requests for slack.com/api/ go there instead.
func (c *envConfig) httpClient() (*http.Client, error) {
	client := &http.Client{Timeout: 10 * time.Second}
	if c.APIURL == "" {
		return client, nil
	}
	target, err := url.Parse(strings.TrimSuffix(c.APIURL, "/"))
	if err != nil || target.Host == "" {
		return nil, fmt.Errorf("invalid SLACK_API_URL %q", c.APIURL)
	}
	client.Transport = apiRewrite{target: target, base: http.DefaultTransport}
	return client, nil
}

type apiRewrite struct {
	target *url.URL
	base   http.RoundTripper
}

func (t apiRewrite) RoundTrip(r *http.Request) (*http.Response, error) {
	if r.URL.Host != "slack.com" || !strings.HasPrefix(r.URL.Path, "/api/") {
		return t.base.RoundTrip(r)
	}
	out := r.Clone(r.Context())
	out.URL.Scheme = t.target.Scheme
	out.URL.Host = t.target.Host
	out.URL.Path = t.target.Path + r.URL.Path
	out.Host = t.target.Host
	return t.base.RoundTrip(out)
}

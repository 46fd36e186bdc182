package oauth

import (
	"context"
	"net/http"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/blobstore"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/envreader"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

// BlobFlowOptions configures NewBlobFlow. Every field is optional.
type BlobFlowOptions struct {
	// Settings is copied, never modified. Its stores and authorizer are
	// replaced with blob-backed ones and zero fields get the NewSettings
	// defaults. Read from the environment when nil.
	Settings *Settings

	// Containers default to SLACK_STATE_BLOB_CONTAINER_NAME and
	// SLACK_INSTALLATION_BLOB_CONTAINER_NAME.
	StateContainer        string
	InstallationContainer string

	// Opener defaults to Azure Blob Storage on AZURE_BLOB_CONNECTION_STR.
	Opener blobstore.Opener

	// Cipher, when set, encrypts installation records at rest.
	Cipher blobstore.Cipher

	Logger     *logger.Logger
	HTTPClient *http.Client
	APIURL     string
}

// NewBlobFlow builds a Flow whose state, installations and authorizer are all
// backed by blob containers. It fails before touching storage when
// SLACK_CLIENT_ID or SLACK_CLIENT_SECRET is not set.
func NewBlobFlow(ctx context.Context, r *envreader.EnvReader, opts BlobFlowOptions) (*Flow, error) {
	if r == nil {
		r = envreader.NewEnvReader()
	}
	log := orDefault(opts.Logger)

	clientID, _ := r.LookupEnv("SLACK_CLIENT_ID")
	if clientID == "" {
		err := errors.NewConfigurationError("Slack client-id is not set as an environment variable", "SLACK_CLIENT_ID")
		log.Error(err.Error())
		return nil, err
	}
	clientSecret, _ := r.LookupEnv("SLACK_CLIENT_SECRET")
	if clientSecret == "" {
		err := errors.NewConfigurationError("Slack client-secret is not set as an environment variable", "SLACK_CLIENT_SECRET")
		log.Error(err.Error())
		return nil, err
	}

	stateContainer := opts.StateContainer
	if stateContainer == "" {
		stateContainer = r.GetEnv("SLACK_STATE_BLOB_CONTAINER_NAME")
	}
	installationContainer := opts.InstallationContainer
	if installationContainer == "" {
		installationContainer = r.GetEnv("SLACK_INSTALLATION_BLOB_CONTAINER_NAME")
	}
	if stateContainer == "" || installationContainer == "" {
		return nil, errors.NewConfigurationError("blob container names are not set", r.MissingKeys...)
	}

	var settings Settings
	if opts.Settings != nil {
		settings = *opts.Settings
		if settings.ClientID == "" {
			settings.ClientID = clientID
		}
		if settings.ClientSecret == "" {
			settings.ClientSecret = clientSecret
		}
		settings = settings.withDefaults()
	} else {
		var err error
		if settings, err = SettingsFromEnv(r, clientID, clientSecret); err != nil {
			return nil, errors.NewConfigurationError(err.Error(), r.MissingKeys...)
		}
	}

	open := opts.Opener
	if open == nil {
		connStr := r.GetEnv("AZURE_BLOB_CONNECTION_STR")
		if connStr == "" {
			return nil, errors.NewConfigurationError("Azure blob connection string is not set", "AZURE_BLOB_CONNECTION_STR")
		}
		client, err := blobstore.NewAzureClient(connStr)
		if err != nil {
			return nil, err
		}
		open = blobstore.AzureOpener(client)
	}
	stateBlobs, err := open(ctx, stateContainer)
	if err != nil {
		return nil, err
	}
	installationBlobs, err := open(ctx, installationContainer)
	if err != nil {
		return nil, err
	}
	if opts.Cipher != nil {
		installationBlobs = blobstore.NewEncryptedStore(installationBlobs, opts.Cipher)
	}

	stateStore := NewBlobStateStore(stateBlobs, settings.StateExpiration, log)
	installationStore := NewBlobInstallationStore(installationBlobs, settings.ClientID,
		WithHistoricalData(settings.HistoricalDataEnabled), WithStoreLogger(log))
	authorize := NewInstallationStoreAuthorize(installationStore,
		settings.InstallationStoreBotOnly, settings.UserTokenResolution, log)

	return NewFlow(settings.
		WithStateStore(stateStore).
		WithInstallationStore(installationStore).
		WithAuthorize(authorize),
		WithFlowLogger(log), WithFlowHTTPClient(opts.HTTPClient), WithFlowAPIURL(opts.APIURL))
}

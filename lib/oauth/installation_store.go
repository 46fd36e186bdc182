package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/blobstore"
	adaptererrors "github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

// InstallationStore persists installations. Find methods return nil, nil
// when nothing is stored for the key.
type InstallationStore interface {
	Save(ctx context.Context, inst *Installation) error
	FindBot(ctx context.Context, key InstallationKey) (*Bot, error)
	FindInstallation(ctx context.Context, key InstallationKey) (*Installation, error)
	DeleteBot(ctx context.Context, key InstallationKey) error
	DeleteInstallation(ctx context.Context, key InstallationKey) error
	DeleteAll(ctx context.Context, key InstallationKey) error
}

// BlobInstallationStore lays records out as
//
//	{client_id}/{enterprise_id}-{team_id}/bot-latest
//	{client_id}/{enterprise_id}-{team_id}/installer-latest
//	{client_id}/{enterprise_id}-{team_id}/installer-{user_id}-latest
//
// with "none" for missing ids. With historical data enabled each save also
// writes copies suffixed with the unix time instead of "latest".
type BlobInstallationStore struct {
	blobs      blobstore.Store
	clientID   string
	historical bool
	log        *logger.Logger
	now        func() time.Time
}

type InstallationStoreOption func(*BlobInstallationStore)

func WithHistoricalData(enabled bool) InstallationStoreOption {
	return func(s *BlobInstallationStore) { s.historical = enabled }
}

func WithStoreLogger(l *logger.Logger) InstallationStoreOption {
	return func(s *BlobInstallationStore) { s.log = l }
}

func NewBlobInstallationStore(blobs blobstore.Store, clientID string, opts ...InstallationStoreOption) *BlobInstallationStore {
	s := &BlobInstallationStore{blobs: blobs, clientID: clientID, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.log = orDefault(s.log)
	return s
}

func (s *BlobInstallationStore) put(ctx context.Context, workspace, name string, v interface{}, ts time.Time) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if err := s.blobs.Put(ctx, workspace+"/"+name+"-latest", b); err != nil {
		return err
	}
	if s.historical {
		return s.blobs.Put(ctx, workspace+"/"+name+"-"+strconv.FormatInt(ts.Unix(), 10), b)
	}
	return nil
}

// Save upserts the bot, the latest installer and the per-user record.
func (s *BlobInstallationStore) Save(ctx context.Context, inst *Installation) error {
	ts := s.now()
	stamped := *inst
	if stamped.InstalledAt == 0 {
		stamped.InstalledAt = unixSeconds(ts)
	}
	workspace := stamped.Key().workspacePath(s.clientID)
	if bot := stamped.Bot(); bot != nil {
		if err := s.put(ctx, workspace, "bot", bot, ts); err != nil {
			return adaptererrors.NewUpstreamError("could not save bot for "+workspace, err)
		}
	}
	if err := s.put(ctx, workspace, "installer", &stamped, ts); err != nil {
		return adaptererrors.NewUpstreamError("could not save installation for "+workspace, err)
	}
	if stamped.UserID != "" {
		if err := s.put(ctx, workspace, "installer-"+stamped.UserID, &stamped, ts); err != nil {
			return adaptererrors.NewUpstreamError("could not save installation of "+stamped.UserID+" for "+workspace, err)
		}
	}
	s.log.Debugf("saved installation for %s", workspace)
	return nil
}

func (s *BlobInstallationStore) get(ctx context.Context, key string, v interface{}) (bool, error) {
	b, err := s.blobs.Get(ctx, key)
	if errors.Is(err, blobstore.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("could not decode %s: %w", key, err)
	}
	return true, nil
}

func (s *BlobInstallationStore) FindBot(ctx context.Context, key InstallationKey) (*Bot, error) {
	name := key.workspacePath(s.clientID) + "/bot-latest"
	bot := &Bot{}
	found, err := s.get(ctx, name, bot)
	if err != nil {
		return nil, fmt.Errorf("could not find bot: %w", err)
	}
	if !found {
		return nil, nil
	}
	return bot, nil
}

func (s *BlobInstallationStore) FindInstallation(ctx context.Context, key InstallationKey) (*Installation, error) {
	name := key.workspacePath(s.clientID) + "/installer-latest"
	if key.UserID != "" {
		name = key.workspacePath(s.clientID) + "/installer-" + key.UserID + "-latest"
	}
	inst := &Installation{}
	found, err := s.get(ctx, name, inst)
	if err != nil {
		return nil, fmt.Errorf("could not find installation: %w", err)
	}
	if !found {
		return nil, nil
	}
	return inst, nil
}

// Find returns the workspace bot as an Installation when botOnly is set, and
// the installation for key otherwise.
func (s *BlobInstallationStore) Find(ctx context.Context, key InstallationKey, botOnly bool) (*Installation, error) {
	if !botOnly {
		return s.FindInstallation(ctx, key)
	}
	bot, err := s.FindBot(ctx, key)
	if bot == nil || err != nil {
		return nil, err
	}
	return bot.Installation(), nil
}

func (s *BlobInstallationStore) deletePrefix(ctx context.Context, prefix string) error {
	keys, err := s.blobs.List(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if err := s.blobs.Delete(ctx, k); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return err
		}
	}
	return nil
}

// DeleteBot removes the bot record and its history.
func (s *BlobInstallationStore) DeleteBot(ctx context.Context, key InstallationKey) error {
	if err := s.deletePrefix(ctx, key.workspacePath(s.clientID)+"/bot-"); err != nil {
		return fmt.Errorf("could not delete bot: %w", err)
	}
	return nil
}

// DeleteInstallation removes the records of key.UserID, or of every installer
// when UserID is empty.
func (s *BlobInstallationStore) DeleteInstallation(ctx context.Context, key InstallationKey) error {
	prefix := key.workspacePath(s.clientID) + "/installer-"
	if key.UserID != "" {
		prefix += key.UserID + "-"
	}
	if err := s.deletePrefix(ctx, prefix); err != nil {
		return fmt.Errorf("could not delete installation: %w", err)
	}
	if key.UserID == "" {
		return nil
	}
	// installer-latest belongs to whoever installed last.
	latest, err := s.FindInstallation(ctx, InstallationKey{
		EnterpriseID:        key.EnterpriseID,
		TeamID:              key.TeamID,
		IsEnterpriseInstall: key.IsEnterpriseInstall,
	})
	if err != nil {
		return err
	}
	if latest != nil && latest.UserID == key.UserID {
		name := key.workspacePath(s.clientID) + "/installer-latest"
		if err := s.blobs.Delete(ctx, name); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return fmt.Errorf("could not delete installation: %w", err)
		}
	}
	return nil
}

// DeleteAll removes everything stored for the workspace of key.
func (s *BlobInstallationStore) DeleteAll(ctx context.Context, key InstallationKey) error {
	if err := s.DeleteBot(ctx, key); err != nil {
		return err
	}
	key.UserID = ""
	return s.DeleteInstallation(ctx, key)
}

package oauth

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cloudnative-co/slack-bolt-add-azure/lib/blobstore"
	adaptererrors "github.com/cloudnative-co/slack-bolt-add-azure/lib/errors"
	"github.com/cloudnative-co/slack-bolt-add-azure/lib/logger"
)

type StateStatus int

const (
	StateNotFound StateStatus = iota
	StateOK
	StateExpired
)

func (s StateStatus) String() string {
	switch s {
	case StateOK:
		return "ok"
	case StateExpired:
		return "expired"
	}
	return "not_found"
}

// StateStore issues OAuth state tokens and accepts each one at most once.
type StateStore interface {
	Issue(ctx context.Context) (string, error)
	Consume(ctx context.Context, state string) (StateStatus, error)
}

// BlobStateStore keeps one blob per state, named by the state and holding its
// issue time in unix seconds.
type BlobStateStore struct {
	blobs      blobstore.Store
	expiration time.Duration
	log        *logger.Logger
	now        func() time.Time
}

func NewBlobStateStore(blobs blobstore.Store, expiration time.Duration, log *logger.Logger) *BlobStateStore {
	return &BlobStateStore{blobs: blobs, expiration: expiration, log: orDefault(log), now: time.Now}
}

func (s *BlobStateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.NewString()
	value := []byte(strconv.FormatInt(s.now().Unix(), 10))
	var err error
	if ttl, ok := s.blobs.(blobstore.TTLStore); ok {
		err = ttl.PutTTL(ctx, state, value, s.expiration)
	} else {
		err = s.blobs.Put(ctx, state, value)
	}
	if err != nil {
		return "", adaptererrors.NewUpstreamError("could not issue state", err)
	}
	return state, nil
}

// Consume deletes the state before checking its age, so a state is never
// accepted twice even when two callbacks race.
func (s *BlobStateStore) Consume(ctx context.Context, state string) (StateStatus, error) {
	if state == "" {
		return StateNotFound, nil
	}
	b, err := s.blobs.Get(ctx, state)
	if errors.Is(err, blobstore.ErrNotFound) {
		s.log.Debugf("state %s not found", state)
		return StateNotFound, nil
	}
	if err != nil {
		return StateNotFound, adaptererrors.NewUpstreamError("could not read state", err)
	}
	err = s.blobs.Delete(ctx, state)
	if errors.Is(err, blobstore.ErrNotFound) {
		s.log.Debugf("state %s consumed concurrently", state)
		return StateNotFound, nil
	}
	if err != nil {
		return StateNotFound, adaptererrors.NewUpstreamError("could not delete state", err)
	}
	issued, err := strconv.ParseInt(strings.TrimSpace(string(b)), 10, 64)
	if err != nil {
		s.log.Warningf("state %s has an unreadable issue time %q", state, b)
		return StateNotFound, nil
	}
	if s.now().Sub(time.Unix(issued, 0)) > s.expiration {
		return StateExpired, nil
	}
	return StateOK, nil
}

package blobstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/datastore"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const blobKind = "Blob"

type blobEntity struct {
	Value   []byte `datastore:",noindex"`
	Updated time.Time
}

// DatastoreStore keeps blobs as entities of one namespace; the container
// name is the namespace.
type DatastoreStore struct {
	client    *datastore.Client
	namespace string
}

// NewDatastoreClient connects to Cloud Datastore. With local set it talks to
// the emulator without credentials.
func NewDatastoreClient(ctx context.Context, projectID string, local bool) (*datastore.Client, error) {
	var client *datastore.Client
	var err error
	if local {
		client, err = datastore.NewClient(ctx, projectID,
			option.WithoutAuthentication(),
			option.WithGRPCDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())))
	} else {
		client, err = datastore.NewClient(ctx, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("datastoredb: could not connect: %w", err)
	}
	return client, nil
}

// DatastoreOpener maps containers to namespaces on client.
func DatastoreOpener(client *datastore.Client) Opener {
	return func(ctx context.Context, container string) (Store, error) {
		return &DatastoreStore{client: client, namespace: container}, nil
	}
}

// keyRange bounds the key names starting with prefix. Both are nil for an
// empty prefix.
func (s *DatastoreStore) keyRange(prefix string) (lo, hi *datastore.Key) {
	if prefix == "" {
		return nil, nil
	}
	return s.key(prefix), s.key(prefix + "\uffff")
}

func (s *DatastoreStore) key(name string) *datastore.Key {
	k := datastore.NameKey(blobKind, name, nil)
	k.Namespace = s.namespace
	return k
}

func (s *DatastoreStore) Get(ctx context.Context, key string) ([]byte, error) {
	e := blobEntity{}
	err := s.client.Get(ctx, s.key(key), &e)
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("datastoredb: could not get %s: %w", key, err)
	}
	return e.Value, nil
}

func (s *DatastoreStore) Put(ctx context.Context, key string, value []byte) error {
	e := blobEntity{Value: value, Updated: time.Now()}
	if _, err := s.client.Put(ctx, s.key(key), &e); err != nil {
		return fmt.Errorf("datastoredb: could not put %s: %w", key, err)
	}
	return nil
}

func (s *DatastoreStore) Delete(ctx context.Context, key string) error {
	k := s.key(key)
	_, err := s.client.RunInTransaction(ctx, func(tx *datastore.Transaction) error {
		if err := tx.Get(k, &blobEntity{}); err != nil {
			return err
		}
		return tx.Delete(k)
	})
	if errors.Is(err, datastore.ErrNoSuchEntity) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("datastoredb: could not delete %s: %w", key, err)
	}
	return nil
}

func (s *DatastoreStore) List(ctx context.Context, prefix string) ([]string, error) {
	q := datastore.NewQuery(blobKind).Namespace(s.namespace).KeysOnly()
	if lo, hi := s.keyRange(prefix); lo != nil {
		q = q.FilterField("__key__", ">=", lo).FilterField("__key__", "<", hi)
	}
	keys, err := s.client.GetAll(ctx, q, nil)
	if err != nil {
		return nil, fmt.Errorf("datastoredb: could not list %s: %w", prefix, err)
	}
	var names []string
	for _, k := range keys {
		if strings.HasPrefix(k.Name, prefix) {
			names = append(names, k.Name)
		}
	}
	return names, nil
}

package blobstore

import (
	"context"
	"fmt"
	"time"
)

// Cipher seals blob values before they reach storage.
type Cipher interface {
	Encrypt(ctx context.Context, plaintext []byte) ([]byte, error)
	Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error)
}

// EncryptedStore encrypts values on the way in and decrypts them on the way
// out. Keys are stored as-is so List keeps working.
type EncryptedStore struct {
	Store
	cipher Cipher
}

func NewEncryptedStore(s Store, c Cipher) *EncryptedStore {
	return &EncryptedStore{Store: s, cipher: c}
}

func (s *EncryptedStore) Get(ctx context.Context, key string) ([]byte, error) {
	sealed, err := s.Store.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	value, err := s.cipher.Decrypt(ctx, sealed)
	if err != nil {
		return nil, fmt.Errorf("could not decrypt %s: %w", key, err)
	}
	return value, nil
}

func (s *EncryptedStore) Put(ctx context.Context, key string, value []byte) error {
	sealed, err := s.cipher.Encrypt(ctx, value)
	if err != nil {
		return fmt.Errorf("could not encrypt %s: %w", key, err)
	}
	return s.Store.Put(ctx, key, sealed)
}

func (s *EncryptedStore) PutTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	ts, ok := s.Store.(TTLStore)
	if !ok {
		return s.Put(ctx, key, value)
	}
	sealed, err := s.cipher.Encrypt(ctx, value)
	if err != nil {
		return fmt.Errorf("could not encrypt %s: %w", key, err)
	}
	return ts.PutTTL(ctx, key, sealed, ttl)
}

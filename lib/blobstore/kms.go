package blobstore

import (
	"context"
	"encoding/base64"
	"fmt"

	"google.golang.org/api/cloudkms/v1"
	"google.golang.org/api/option"
)

// KMSCipher encrypts with a Google Cloud KMS symmetric key. keyName is the
// full resource name,
// projects/{project}/locations/{location}/keyRings/{ring}/cryptoKeys/{key}.
type KMSCipher struct {
	keys    *cloudkms.ProjectsLocationsKeyRingsCryptoKeysService
	keyName string
}

func NewKMSCipher(ctx context.Context, keyName string, opts ...option.ClientOption) (*KMSCipher, error) {
	if keyName == "" {
		return nil, fmt.Errorf("kms: key name is empty")
	}
	svc, err := cloudkms.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("kms: could not create client: %w", err)
	}
	return &KMSCipher{keys: svc.Projects.Locations.KeyRings.CryptoKeys, keyName: keyName}, nil
}

// Encrypt returns the base64 ciphertext exactly as KMS hands it back.
func (c *KMSCipher) Encrypt(ctx context.Context, plaintext []byte) ([]byte, error) {
	req := &cloudkms.EncryptRequest{Plaintext: base64.StdEncoding.EncodeToString(plaintext)}
	resp, err := c.keys.Encrypt(c.keyName, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("kms: could not encrypt: %w", err)
	}
	return []byte(resp.Ciphertext), nil
}

func (c *KMSCipher) Decrypt(ctx context.Context, ciphertext []byte) ([]byte, error) {
	req := &cloudkms.DecryptRequest{Ciphertext: string(ciphertext)}
	resp, err := c.keys.Decrypt(c.keyName, req).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("kms: could not decrypt: %w", err)
	}
	plaintext, err := base64.StdEncoding.DecodeString(resp.Plaintext)
	if err != nil {
		return nil, fmt.Errorf("kms: bad plaintext encoding: %w", err)
	}
	return plaintext, nil
}

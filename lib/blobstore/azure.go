package blobstore

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

// AzureStore keeps blobs in one Azure Blob Storage container.
type AzureStore struct {
	client    *azblob.Client
	container string
}

// NewAzureClient builds a service client from a storage account connection string.
func NewAzureClient(connectionString string) (*azblob.Client, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("azureblob: could not create client: %w", err)
	}
	return client, nil
}

// AzureOpener opens containers on client, creating missing ones.
func AzureOpener(client *azblob.Client) Opener {
	return func(ctx context.Context, container string) (Store, error) {
		_, err := client.CreateContainer(ctx, container, nil)
		if err != nil && !bloberror.HasCode(err, bloberror.ContainerAlreadyExists) {
			return nil, fmt.Errorf("azureblob: could not create container %s: %w", container, err)
		}
		return NewAzureStore(client, container), nil
	}
}

func NewAzureStore(client *azblob.Client, container string) *AzureStore {
	return &AzureStore{client: client, container: container}
}

func (s *AzureStore) Get(ctx context.Context, key string) ([]byte, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("azureblob: could not download %s: %w", key, err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("azureblob: could not read %s: %w", key, err)
	}
	return b, nil
}

func (s *AzureStore) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.client.UploadBuffer(ctx, s.container, key, value, nil); err != nil {
		return fmt.Errorf("azureblob: could not upload %s: %w", key, err)
	}
	return nil
}

func (s *AzureStore) Delete(ctx context.Context, key string) error {
	_, err := s.client.DeleteBlob(ctx, s.container, key, nil)
	if bloberror.HasCode(err, bloberror.BlobNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("azureblob: could not delete %s: %w", key, err)
	}
	return nil
}

func (s *AzureStore) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("azureblob: could not list %s: %w", prefix, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				keys = append(keys, *item.Name)
			}
		}
	}
	return keys, nil
}

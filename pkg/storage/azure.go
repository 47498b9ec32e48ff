package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

type azure struct {
	client *azblob.Client
	logger *slog.Logger
}

// NewAzure creates an Azure Blob Storage System. Keys take the form
// "container/path/to/blob". No connection is made until Open is called.
func NewAzure(cfg *AzureConfig, logger *slog.Logger) (System, error) {
	client, err := newAzureClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("create azure client: %w", err)
	}

	return &azure{
		client: client,
		logger: logger.With("system", "storage", "backend", SchemeAzure),
	}, nil
}

func newAzureClient(cfg *AzureConfig) (*azblob.Client, error) {
	if cfg.ConnectionString != "" {
		return azblob.NewClientFromConnectionString(cfg.ConnectionString, nil)
	}

	cred, err := defaultCredential()
	if err != nil {
		return nil, err
	}
	return azblob.NewClient(cfg.AccountURL, cred, nil)
}

func defaultCredential() (azcore.TokenCredential, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return cred, nil
}

func (a *azure) Open(ctx context.Context, key string) (*Object, error) {
	container, name, err := splitKey(key)
	if err != nil {
		return nil, err
	}

	resp, err := a.client.DownloadStream(ctx, container, name, nil)
	if err != nil {
		switch {
		case bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound):
			return nil, fmt.Errorf("azure blob %s: %w", key, ErrNotFound)
		case bloberror.HasCode(err,
			bloberror.AuthorizationFailure,
			bloberror.AuthorizationPermissionMismatch,
			bloberror.InsufficientAccountPermissions,
		):
			return nil, fmt.Errorf("azure blob %s: %w", key, ErrForbidden)
		}
		return nil, fmt.Errorf("download azure blob %s: %w", key, err)
	}

	obj := &Object{
		ReadCloser: resp.Body,
		Name:       baseName(name),
		Size:       -1,
	}
	if resp.ContentLength != nil {
		obj.Size = *resp.ContentLength
	}
	if resp.ContentType != nil {
		obj.ContentType = *resp.ContentType
	}

	a.logger.Info("blob opened", "container", container, "blob", name, "size", obj.Size)
	return obj, nil
}

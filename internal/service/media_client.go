package service

import (
	"context"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/google/uuid"

	"github.com/stitchline/atelier-api/pkg/storage"
)

// StorageMediaClient is the default MediaClient, backed by the local media
// store with HMAC-signed playback URLs.
type StorageMediaClient struct {
	store  *storage.MediaStore
	signer *storage.SignedURLSigner
}

// NewStorageMediaClient wires the filesystem store and URL signer.
func NewStorageMediaClient(store *storage.MediaStore, signer *storage.SignedURLSigner) *StorageMediaClient {
	return &StorageMediaClient{store: store, signer: signer}
}

// Store persists the stream and returns a durable reference.
func (c *StorageMediaClient) Store(ctx context.Context, name string, r io.Reader) (string, time.Time, error) {
	ref := path.Join("qa", fmt.Sprintf("%s-%s", uuid.NewString(), path.Base(name)))
	if _, err := c.store.SaveStream(ref, r); err != nil {
		return "", time.Time{}, err
	}
	return ref, time.Now().UTC(), nil
}

// PlaybackURL returns a signed token for the stored reference.
func (c *StorageMediaClient) PlaybackURL(ref string) (string, time.Time, error) {
	return c.signer.Generate(path.Base(ref), ref)
}

package delivery

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/DukeRupert/folio/internal/storage"
)

// Saver performs a direct transfer and returns where the artifact landed.
type Saver interface {
	Save(ctx context.Context, art *Artifact) (string, error)
}

// TabOpener hands the artifact to a new browsing context.
type TabOpener interface {
	OpenTab(ctx context.Context, art *Artifact) error
}

// LinkPublisher produces a user-followable link to the artifact.
type LinkPublisher interface {
	Publish(ctx context.Context, art *Artifact) (string, error)
}

// SaverFunc adapts a function to Saver.
type SaverFunc func(ctx context.Context, art *Artifact) (string, error)

func (f SaverFunc) Save(ctx context.Context, art *Artifact) (string, error) {
	return f(ctx, art)
}

// TabOpenerFunc adapts a function to TabOpener.
type TabOpenerFunc func(ctx context.Context, art *Artifact) error

func (f TabOpenerFunc) OpenTab(ctx context.Context, art *Artifact) error {
	return f(ctx, art)
}

// LinkPublisherFunc adapts a function to LinkPublisher.
type LinkPublisherFunc func(ctx context.Context, art *Artifact) (string, error)

func (f LinkPublisherFunc) Publish(ctx context.Context, art *Artifact) (string, error) {
	return f(ctx, art)
}

// StorageSaver saves artifacts to object storage under a per-delivery key
// and confirms the object exists before reporting success.
type StorageSaver struct {
	store  storage.Storage
	expiry time.Duration
}

// NewStorageSaver returns a Saver backed by store. A non-zero expiry makes
// the returned location a presigned URL.
func NewStorageSaver(store storage.Storage, expiry time.Duration) *StorageSaver {
	return &StorageSaver{store: store, expiry: expiry}
}

func (s *StorageSaver) Save(ctx context.Context, art *Artifact) (string, error) {
	key := storage.ArtifactKey(art.ID, art.Filename)

	err := s.store.Put(ctx, key, bytes.NewReader(art.Data), storage.PutOptions{
		ContentType: art.ContentType,
		Overwrite:   true,
		Filename:    art.Filename,
	})
	if err != nil {
		return "", err
	}

	ok, err := s.store.Exists(ctx, key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNotConfirmed, key)
	}

	return s.store.URL(ctx, key, s.expiry)
}

// DefaultInlineLimit is the largest artifact embedded directly in a data URL.
const DefaultInlineLimit = 5 << 20

// DefaultLinkExpiry bounds how long temporary links stay valid.
const DefaultLinkExpiry = time.Hour

// LinkBuilder publishes small artifacts as data URLs and larger ones as
// expiring storage URLs.
type LinkBuilder struct {
	store       storage.Storage
	inlineLimit int
	expiry      time.Duration
}

// NewLinkBuilder returns a LinkPublisher. store may be nil, in which case
// only artifacts under the inline limit can be linked.
func NewLinkBuilder(store storage.Storage) *LinkBuilder {
	return &LinkBuilder{
		store:       store,
		inlineLimit: DefaultInlineLimit,
		expiry:      DefaultLinkExpiry,
	}
}

// WithInlineLimit overrides the data URL threshold.
func (b *LinkBuilder) WithInlineLimit(n int) *LinkBuilder {
	b.inlineLimit = n
	return b
}

// WithExpiry overrides how long temporary links stay valid.
func (b *LinkBuilder) WithExpiry(d time.Duration) *LinkBuilder {
	b.expiry = d
	return b
}

func (b *LinkBuilder) Publish(ctx context.Context, art *Artifact) (string, error) {
	if art.Size() < b.inlineLimit {
		return dataURL(art), nil
	}
	if b.store == nil {
		return "", ErrLinkUnavailable
	}

	key := storage.LinkKey(art.ID, art.Filename)
	err := b.store.Put(ctx, key, bytes.NewReader(art.Data), storage.PutOptions{
		ContentType: art.ContentType,
		Overwrite:   true,
		Filename:    art.Filename,
	})
	if err != nil {
		return "", err
	}
	return b.store.URL(ctx, key, b.expiry)
}

func dataURL(art *Artifact) string {
	return "data:" + art.ContentType + ";base64," + base64.StdEncoding.EncodeToString(art.Data)
}

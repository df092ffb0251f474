// Package assets stores mirrored binary assets (sprite images) in S3-compatible object
// storage and keeps a catalog of what has been mirrored.
package assets

import (
	"context"
	"errors"
	"time"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

// KindSprite is the asset kind of mirrored sprite images
const KindSprite = "sprite"

// ErrObjectNotFound is returned when an object does not exist in a bucket
var ErrObjectNotFound = errors.New("object not found")

// Asset is one mirrored object
type Asset struct {
	ID           int64        `json:"id"`
	AssetKind    string       `json:"asset_kind"`
	ResourceKind catalog.Kind `json:"resource_kind"`
	ResourceKey  string       `json:"resource_key"`
	SourceURL    string       `json:"source_url"`
	Bucket       string       `json:"bucket"`
	Path         string       `json:"path"`
	ContentType  string       `json:"content_type,omitempty"`
	Bytes        int64        `json:"bytes"`
	SHA256       string       `json:"sha256"`
	CreatedAt    time.Time    `json:"created_at"`
}

//go:generate mockgen -destination=mocks/mock_assets.go -package=mocks -source=assets.go ObjectStore,Catalog

// ObjectStore is the subset of S3 operations used by the sprite mirror
type ObjectStore interface {
	// EnsureBucket creates the bucket when it does not exist
	EnsureBucket(ctx context.Context, bucket string) error

	// Put uploads data under path, replacing any existing object
	Put(ctx context.Context, bucket, path string, data []byte, contentType string) error

	// Get downloads an object or returns ErrObjectNotFound
	Get(ctx context.Context, bucket, path string) ([]byte, error)
}

// Catalog records which source URLs have been mirrored
type Catalog interface {
	// Exists reports whether sourceURL was mirrored already
	Exists(ctx context.Context, sourceURL string) (bool, error)

	// Record inserts an asset, or updates the stored location of an existing source URL
	Record(ctx context.Context, asset Asset) error

	// ListForResource returns the assets of one resource ordered by path
	ListForResource(ctx context.Context, kind catalog.Kind, key string) ([]Asset, error)
}

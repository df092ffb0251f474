package assets

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/pokemnky/catalog-sync/internal/catalog"
)

type object struct {
	data        []byte
	contentType string
}

// MemoryObjectStore keeps objects in memory
type MemoryObjectStore struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
}

var _ ObjectStore = (*MemoryObjectStore)(nil)

// NewMemoryObjectStore creates an empty in-memory object store
func NewMemoryObjectStore() *MemoryObjectStore {
	return &MemoryObjectStore{buckets: make(map[string]map[string]object)}
}

func (s *MemoryObjectStore) EnsureBucket(_ context.Context, bucket string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.buckets[bucket]; !ok {
		s.buckets[bucket] = make(map[string]object)
	}
	return nil
}

func (s *MemoryObjectStore) Put(_ context.Context, bucket, path string, data []byte, contentType string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	objects, ok := s.buckets[bucket]
	if !ok {
		objects = make(map[string]object)
		s.buckets[bucket] = objects
	}
	objects[path] = object{data: slices.Clone(data), contentType: contentType}
	return nil
}

func (s *MemoryObjectStore) Get(_ context.Context, bucket, path string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.buckets[bucket][path]
	if !ok {
		return nil, ErrObjectNotFound
	}
	return slices.Clone(obj.data), nil
}

// ContentType returns the content type an object was uploaded with
func (s *MemoryObjectStore) ContentType(bucket, path string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.buckets[bucket][path].contentType
}

// Paths lists the object paths of a bucket in order
func (s *MemoryObjectStore) Paths(bucket string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	paths := make([]string, 0, len(s.buckets[bucket]))
	for p := range s.buckets[bucket] {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}

// MemoryCatalog keeps the asset catalog in memory
type MemoryCatalog struct {
	mu     sync.RWMutex
	nextID int64
	assets map[string]Asset
	now    func() time.Time
}

var _ Catalog = (*MemoryCatalog)(nil)

// NewMemoryCatalog creates an empty in-memory asset catalog
func NewMemoryCatalog() *MemoryCatalog {
	return &MemoryCatalog{assets: make(map[string]Asset), now: time.Now}
}

func (c *MemoryCatalog) Exists(_ context.Context, sourceURL string) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.assets[sourceURL]
	return ok, nil
}

func (c *MemoryCatalog) Record(_ context.Context, asset Asset) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.assets[asset.SourceURL]; ok {
		asset.ID = existing.ID
		asset.AssetKind = existing.AssetKind
		asset.ResourceKind = existing.ResourceKind
		asset.ResourceKey = existing.ResourceKey
		asset.CreatedAt = existing.CreatedAt
	} else {
		c.nextID++
		asset.ID = c.nextID
		asset.CreatedAt = c.now()
	}
	c.assets[asset.SourceURL] = asset
	return nil
}

func (c *MemoryCatalog) ListForResource(_ context.Context, kind catalog.Kind, key string) ([]Asset, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []Asset
	for _, a := range c.assets {
		if a.ResourceKind == kind && a.ResourceKey == key {
			out = append(out, a)
		}
	}
	slices.SortFunc(out, func(a, b Asset) int { return strings.Compare(a.Path, b.Path) })
	return out, nil
}

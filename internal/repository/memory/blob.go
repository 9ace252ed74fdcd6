package memory

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"

	"lectern/internal/domain"
	resourceRepo "lectern/internal/domain/repositories/resource"
)

// BlobStore keeps objects in memory. FailPut and FailRemove inject errors per key.
type BlobStore struct {
	mutex   sync.RWMutex
	objects map[string][]byte
	types   map[string]string
	puts    map[string]int
	baseURL string

	FailPut    func(key string) error
	FailRemove func(key string) error
}

// NewBlobStore creates an empty store whose public URLs start with baseURL
func NewBlobStore(baseURL string) *BlobStore {
	if baseURL == "" {
		baseURL = "memory://blobs"
	}
	return &BlobStore{
		objects: make(map[string][]byte),
		types:   make(map[string]string),
		puts:    make(map[string]int),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

var _ resourceRepo.BlobStore = (*BlobStore)(nil)

func (s *BlobStore) Put(ctx context.Context, key string, body io.Reader, opts resourceRepo.PutOptions) error {
	s.mutex.Lock()
	s.puts[key]++
	s.mutex.Unlock()

	if s.FailPut != nil {
		if err := s.FailPut(key); err != nil {
			return err
		}
	}

	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.objects[key]; exists && !opts.Overwrite {
		return &domain.ConflictError{
			Message:      fmt.Sprintf("object already exists: %s", key),
			ResourceType: "object",
			ResourceID:   key,
		}
	}
	s.objects[key] = data
	s.types[key] = opts.ContentType
	return nil
}

func (s *BlobStore) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/" + strings.Join(segments, "/")
}

func (s *BlobStore) Remove(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		if s.FailRemove != nil {
			if err := s.FailRemove(key); err != nil {
				return err
			}
		}
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()
	for _, key := range keys {
		delete(s.objects, key)
		delete(s.types, key)
	}
	return nil
}

func (s *BlobStore) List(ctx context.Context, prefix string) ([]resourceRepo.BlobEntry, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	entries := make([]resourceRepo.BlobEntry, 0)
	for key, data := range s.objects {
		if strings.HasPrefix(key, prefix) {
			entries = append(entries, resourceRepo.BlobEntry{Key: key, Size: int64(len(data))})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Key < entries[j].Key })
	return entries, nil
}

// Object returns a stored object's bytes
func (s *BlobStore) Object(key string) ([]byte, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	data, ok := s.objects[key]
	return bytes.Clone(data), ok
}

// ContentType returns the content type an object was stored with
func (s *BlobStore) ContentType(key string) string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.types[key]
}

// PutCount returns how many times Put was called for key, including failed attempts
func (s *BlobStore) PutCount(key string) int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.puts[key]
}

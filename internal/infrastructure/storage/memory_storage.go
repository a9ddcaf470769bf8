package storage

import (
	"context"
	"net/url"
	"sync"
	"time"

	billingapp "github.com/pharmabill/backend/internal/application/billing"
)

var _ billingapp.DocumentStorage = (*MemoryDocumentStorage)(nil)

// MemoryDocumentStorage keeps documents in process memory. It is used in
// development and tests when no bucket is configured; its links are not
// reachable over HTTP.
type MemoryDocumentStorage struct {
	mu      sync.RWMutex
	objects map[string]memoryObject
}

type memoryObject struct {
	data        []byte
	contentType string
}

// NewMemoryDocumentStorage creates an empty store
func NewMemoryDocumentStorage() *MemoryDocumentStorage {
	return &MemoryDocumentStorage{objects: make(map[string]memoryObject)}
}

func (s *MemoryDocumentStorage) Upload(_ context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return errEmptyKey
	}
	cp := make([]byte, len(data))
	copy(cp, data)

	s.mu.Lock()
	s.objects[key] = memoryObject{data: cp, contentType: contentType}
	s.mu.Unlock()
	return nil
}

func (s *MemoryDocumentStorage) GenerateDownloadURL(_ context.Context, key string, expiresIn time.Duration) (string, time.Time, error) {
	if key == "" {
		return "", time.Time{}, errEmptyKey
	}
	if expiresIn <= 0 {
		expiresIn = defaultPresignExpiration
	}
	expiresAt := time.Now().Add(expiresIn)
	u := url.URL{
		Scheme:   "memory",
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {expiresAt.UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), expiresAt, nil
}

// Get returns a stored document and its content type
func (s *MemoryDocumentStorage) Get(key string) ([]byte, string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	obj, ok := s.objects[key]
	return obj.data, obj.contentType, ok
}

// Ping always succeeds
func (s *MemoryDocumentStorage) Ping(context.Context) error {
	return nil
}

package blobstore

import (
	"context"
	"sync"

	"github.com/oscied/orchestrator/cmn"
)

// MockStore is an in-memory BlobStore for tests: Rename just records the
// canonical URI it would have produced, with no filesystem or network
// activity, and ProbeSize/ProbeDuration return whatever the test configured.
type MockStore struct {
	mu        sync.Mutex
	sizes     map[string]int64
	durations map[string]float64
	deleted   map[string]bool
}

func NewMockStore() *MockStore {
	return &MockStore{sizes: map[string]int64{}, durations: map[string]float64{}, deleted: map[string]bool{}}
}

func (m *MockStore) Rename(_ context.Context, _, userID, mediaID, filename string) (string, error) {
	return "mock://medias/" + userID + "/" + mediaID + "/" + filename, nil
}

func (m *MockStore) SetSize(uri string, size int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sizes[uri] = size
}

func (m *MockStore) SetDuration(uri string, seconds float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.durations[uri] = seconds
}

func (m *MockStore) ProbeSize(_ context.Context, uri string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if size, ok := m.sizes[uri]; ok {
		return size, nil
	}
	return 0, cmn.NewMissingEntityRef("media object", uri)
}

func (m *MockStore) ProbeDuration(_ context.Context, uri string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.durations[uri]; ok {
		return d, nil
	}
	return 0, cmn.NewMissingEntityRef("media object", uri)
}

func (m *MockStore) DeleteTree(_ context.Context, uri string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted[uri] = true
	return nil
}

func (m *MockStore) Deleted(uri string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.deleted[uri]
}

// Package mock provides a mock reverse search provider for testing.
package mock

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/kozaktomas/tracelens/internal/revsearch"
)

// MockProvider is a mock implementation of revsearch.Provider
type MockProvider struct {
	mu      sync.Mutex
	matches []revsearch.Match
	calls   int

	// Error injection
	SearchError error

	// Delay blocks Search until it elapses or the context is done.
	Delay time.Duration
}

// NewMockProvider creates a provider that returns the given matches
func NewMockProvider(matches ...revsearch.Match) *MockProvider {
	return &MockProvider{matches: matches}
}

// Name returns the provider name
func (m *MockProvider) Name() string { return "mock" }

// Search returns the configured matches
func (m *MockProvider) Search(ctx context.Context, img image.Image) ([]revsearch.Match, error) {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()

	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.SearchError != nil {
		return nil, m.SearchError
	}

	out := make([]revsearch.Match, len(m.matches))
	copy(out, m.matches)
	return out, nil
}

// Calls returns how many times Search was invoked
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package mock provides an in-memory cache.Store with failure injection.
package mock

import (
	"context"
	"sync"
	"time"

	"github.com/pdiddy/matsearch/internal/cache"
)

// Store is an in-memory cache.Store. Expiry is recorded, not enforced.
type Store struct {
	mu      sync.Mutex
	Data    map[string][]byte
	TTLs    map[string]time.Duration
	GetErr  error
	SetErr  error
	GetHits int
	Sets    int
}

var _ cache.Store = (*Store)(nil)

// New returns an empty Store.
func New() *Store {
	return &Store{Data: map[string][]byte{}, TTLs: map[string]time.Duration{}}
}

// Get implements cache.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.GetErr != nil {
		return nil, s.GetErr
	}
	v, ok := s.Data[key]
	if !ok {
		return nil, cache.ErrMiss
	}
	s.GetHits++
	return append([]byte(nil), v...), nil
}

// SetWithExpiry implements cache.Store.
func (s *Store) SetWithExpiry(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Sets++
	if s.SetErr != nil {
		return s.SetErr
	}
	if s.Data == nil {
		s.Data = map[string][]byte{}
		s.TTLs = map[string]time.Duration{}
	}
	s.Data[key] = append([]byte(nil), value...)
	s.TTLs[key] = ttl
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.Data)
}

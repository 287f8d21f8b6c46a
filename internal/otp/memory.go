package otp

import (
	"context"
	"sync"
)

// MemoryStore keeps challenges in process memory. A restart drops every
// pending challenge, which is acceptable for this service.
type MemoryStore struct {
	mu         sync.Mutex
	challenges map[string]Challenge
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{challenges: make(map[string]Challenge)}
}

func memoryKey(purpose Purpose, email string) string {
	return string(purpose) + ":" + email
}

func (s *MemoryStore) Get(ctx context.Context, purpose Purpose, email string) (*Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch, ok := s.challenges[memoryKey(purpose, email)]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (s *MemoryStore) Put(ctx context.Context, purpose Purpose, email string, ch *Challenge) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.challenges[memoryKey(purpose, email)] = *ch
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, purpose Purpose, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.challenges, memoryKey(purpose, email))
	return nil
}

// Package cartstore provides the places a cart can be persisted to: memory,
// a local JSON file, Redis and Postgres. All of them store the same JSON
// document produced by cart.Encode.
package cartstore

import (
	"context"
	"sync"

	"github.com/jogardn/panda-lite/internal/cart"
)

type MemoryStore struct {
	mu   sync.Mutex
	data []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (cart.Cart, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.data == nil {
		return cart.Cart{}, false, nil
	}
	c, err := cart.Decode(s.data)
	if err != nil {
		return cart.Cart{}, false, err
	}
	return c, true, nil
}

func (s *MemoryStore) Save(_ context.Context, c cart.Cart) error {
	data, err := cart.Encode(c)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

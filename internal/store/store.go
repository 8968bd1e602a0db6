// Package store holds the credentials the vulnerable target verifies against.
package store

import (
	"context"
	"sync"
)

// Store looks up the secret of an account. An unknown account is reported
// with ok == false and a nil error.
type Store interface {
	Lookup(ctx context.Context, account string) (secret string, ok bool, err error)
}

// MemoryStore is a map-backed Store safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	secrets map[string]string
}

// NewMemoryStore returns a store holding a copy of secrets.
func NewMemoryStore(secrets map[string]string) *MemoryStore {
	m := &MemoryStore{secrets: make(map[string]string, len(secrets))}
	for account, secret := range secrets {
		m.secrets[account] = secret
	}
	return m
}

// Lookup implements Store.
func (m *MemoryStore) Lookup(_ context.Context, account string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	secret, ok := m.secrets[account]
	return secret, ok, nil
}

// Put sets the secret of account.
func (m *MemoryStore) Put(account, secret string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.secrets[account] = secret
}

// Len returns the number of accounts.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.secrets)
}

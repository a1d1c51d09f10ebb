package app

import (
	"context"
	"sync"
)

// KeyedMutex sérialise les sections critiques par clé (ici: account/mediaID).
// Deux scrobbles concurrents pour la même série ne peuvent pas lire puis
// écrire le même état de liste en parallèle.
//
// Acquire respecte le contexte, comme le limiteur de téléchargements.
type KeyedMutex struct {
	mu     sync.Mutex
	held   map[string]struct{}
	notify chan struct{}
}

func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{held: make(map[string]struct{}), notify: make(chan struct{})}
}

// Acquire blocks until the key is free or the context is done. On success the
// caller must Release the same key exactly once.
func (m *KeyedMutex) Acquire(ctx context.Context, key string) error {
	for {
		m.mu.Lock()
		if _, busy := m.held[key]; !busy {
			m.held[key] = struct{}{}
			m.mu.Unlock()
			return nil
		}
		ch := m.notify
		m.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}

func (m *KeyedMutex) Release(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.held, key)
	// Réveille tous les waiters; ceux d'une autre clé re-testeront et se
	// rendormiront.
	close(m.notify)
	m.notify = make(chan struct{})
}

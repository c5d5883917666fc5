package storage

import (
	"context"
	"sync"
)

// LocalLock is the in-process CheckoutLock used when no Redis is configured.
type LocalLock struct {
	mu      sync.Mutex
	holders map[string]string
}

func NewLocalLock() *LocalLock {
	return &LocalLock{holders: make(map[string]string)}
}

func (l *LocalLock) Acquire(ctx context.Context, terminalID, token string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, held := l.holders[terminalID]; held {
		return false, nil
	}
	l.holders[terminalID] = token
	return true, nil
}

func (l *LocalLock) Release(ctx context.Context, terminalID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.holders[terminalID] == token {
		delete(l.holders, terminalID)
	}
	return nil
}

package port

import "context"

type CheckoutLock interface {
	// Acquire takes the checkout lock for a terminal, returns false if already held
	Acquire(ctx context.Context, terminalID, token string) (bool, error)

	// Release frees the lock only if it is still held with the same token
	Release(ctx context.Context, terminalID, token string) error
}

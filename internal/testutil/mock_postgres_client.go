package testutil

import (
	"context"
	"sync"

	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/postgres"
	"github.com/flexprice/recharge-sync/internal/types"
)

// MockPostgresClient implements postgres.IClient without a database.
// Transactions simply run the callback and locks are recorded.
type MockPostgresClient struct {
	mu       sync.Mutex
	txCount  int
	lockKeys []string
	held     map[string]bool
}

var _ postgres.IClient = (*MockPostgresClient)(nil)

// NewMockPostgresClient creates a new mock client
func NewMockPostgresClient() *MockPostgresClient {
	return &MockPostgresClient{held: make(map[string]bool)}
}

// Querier is not supported by the mock and returns nil
func (c *MockPostgresClient) Querier(_ context.Context) postgres.Querier {
	return nil
}

func (c *MockPostgresClient) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.Lock()
	c.txCount++
	c.mu.Unlock()
	return fn(ctx)
}

func (c *MockPostgresClient) LockKey(_ context.Context, req types.LockRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held[req.Key] {
		return ierr.NewError("lock is held").
			WithHintf("Lock %s is held by another transaction", req.Key).
			Mark(ierr.ErrAlreadyExists)
	}
	c.lockKeys = append(c.lockKeys, req.Key)
	return nil
}

func (c *MockPostgresClient) TryLockKey(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.held[key] {
		return false, nil
	}
	c.lockKeys = append(c.lockKeys, key)
	return true, nil
}

// Hold marks key as held elsewhere so lock attempts on it fail
func (c *MockPostgresClient) Hold(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.held[key] = true
}

// TxCount returns the number of WithTx calls
func (c *MockPostgresClient) TxCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.txCount
}

// LockKeys returns the keys locked so far, in order
func (c *MockPostgresClient) LockKeys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.lockKeys...)
}

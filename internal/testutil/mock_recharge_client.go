package testutil

import (
	"context"
	"sync"

	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/integration/recharge"
)

// MockRechargeClient implements recharge.RechargeClient with canned responses
type MockRechargeClient struct {
	mu         sync.Mutex
	charges    []*recharge.Charge
	listErr    error
	signature  string
	lastParams *recharge.ListChargesParams
}

var _ recharge.RechargeClient = (*MockRechargeClient)(nil)

// NewMockRechargeClient creates a client that accepts signature and returns charges
func NewMockRechargeClient(signature string, charges ...*recharge.Charge) *MockRechargeClient {
	return &MockRechargeClient{signature: signature, charges: charges}
}

// FailListCharges makes ListCharges return err. Pass nil to reset.
func (c *MockRechargeClient) FailListCharges(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listErr = err
}

// LastParams returns the params of the most recent ListCharges call
func (c *MockRechargeClient) LastParams() *recharge.ListChargesParams {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastParams
}

func (c *MockRechargeClient) ListCharges(_ context.Context, params *recharge.ListChargesParams) ([]*recharge.Charge, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastParams = params
	if c.listErr != nil {
		return nil, c.listErr
	}
	return c.charges, nil
}

func (c *MockRechargeClient) VerifyWebhookSignature(_ context.Context, signature string) error {
	if signature != c.signature {
		return ierr.NewError("webhook signature verification failed").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}
	return nil
}

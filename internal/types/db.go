package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeSubscription serialises webhook processing for one upstream subscription
	LockScopeSubscription LockScope = "recharge_subscription"
)

// DefaultLockTimeout is used when a LockRequest carries no timeout
const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock to acquire inside a transaction
type LockRequest struct {
	Key string
	// Timeout nil means DefaultLockTimeout, zero or negative means fail fast
	Timeout *time.Duration
}

// GetTimeout returns the effective lock timeout
func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a lock key from a scope and parameters.
// The key is a deterministic string that Postgres will hash internally.
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// scope:key1=value1:key2=value2:...
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameRechargeEvents TableName = "recharge_events"
)

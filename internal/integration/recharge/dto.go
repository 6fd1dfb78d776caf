package recharge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
)

const (
	// DefaultBaseURL is the base URL for the Recharge API
	DefaultBaseURL = "https://api.rechargeapps.com"

	// DefaultChargesSortBy lists the most recently modified charges first
	DefaultChargesSortBy = "updated_at-desc"

	// DefaultChargesLimit is the page size used when none is configured
	DefaultChargesLimit = 50
)

// ID is an upstream identifier. Recharge returns ids as JSON numbers on some
// endpoints and strings on others; both decode to their decimal text. null,
// absent and the literal texts "null"/"undefined" decode to the empty ID.
type ID string

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "null" || s == "undefined" {
			s = ""
		}
		*id = ID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("recharge: invalid id %s", string(data))
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string {
	return string(id)
}

// Ptr returns nil for the empty ID
func (id ID) Ptr() *string {
	return lo.EmptyableToPtr(string(id))
}

// timestampLayouts are tried in order. Recharge emits zone-less timestamps
// which are read as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Timestamp is an upstream timestamp. The zero value means absent.
type Timestamp struct {
	time.Time
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("recharge: invalid timestamp %s", string(data))
	}
	if s == nil || strings.TrimSpace(*s) == "" {
		t.Time = time.Time{}
		return nil
	}

	parsed, err := ParseTimestamp(*s)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.UTC().Format(time.RFC3339))
}

// Ptr returns nil for an absent timestamp
func (t Timestamp) Ptr() *time.Time {
	if t.IsZero() {
		return nil
	}
	v := t.Time.UTC()
	return &v
}

// ParseTimestamp parses any timestamp format Recharge is known to emit
func ParseTimestamp(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("recharge: unsupported timestamp format %q", value)
}

// Quantity accepts a JSON number or a numeric string
type Quantity int

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(bytes.TrimSpace(data), `"`)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("recharge: invalid quantity %s", string(data))
	}
	v, err := n.Int64()
	if err != nil {
		return fmt.Errorf("recharge: invalid quantity %s", string(data))
	}
	*q = Quantity(v)
	return nil
}

// quantityPtr returns nil for a missing or non-positive quantity
func quantityPtr(q *Quantity) *int {
	if q == nil || *q <= 0 {
		return nil
	}
	return lo.ToPtr(int(*q))
}

// Charge is a Recharge charge as returned by GET /charges
type Charge struct {
	ID          ID         `json:"id"`
	CustomerID  ID         `json:"customer_id"`
	Status      string     `json:"status"`
	ScheduledAt Timestamp  `json:"scheduled_at"`
	CreatedAt   Timestamp  `json:"created_at"`
	UpdatedAt   Timestamp  `json:"updated_at"`
	LineItems   []LineItem `json:"line_items"`
}

// LineItem is one subscription line of a charge
type LineItem struct {
	SubscriptionID   ID        `json:"subscription_id"`
	ShopifyProductID ID        `json:"shopify_product_id"`
	ShopifyVariantID ID        `json:"shopify_variant_id"`
	Quantity         *Quantity `json:"quantity"`
}

// Subscription is the subscription object delivered inline on webhooks
type Subscription struct {
	ID                    ID        `json:"id"`
	CustomerID            ID        `json:"customer_id"`
	ShopifyProductID      ID        `json:"shopify_product_id"`
	ShopifyVariantID      ID        `json:"shopify_variant_id"`
	Quantity              *Quantity `json:"quantity"`
	Status                string    `json:"status"`
	NextChargeScheduledAt Timestamp `json:"next_charge_scheduled_at"`
	UpdatedAt             Timestamp `json:"updated_at"`
}

// ListChargesParams holds the query for GET /charges. Zero values fall back
// to the client configuration.
type ListChargesParams struct {
	SortBy string
	Limit  int
}

// ListChargesResponse is the body of GET /charges
type ListChargesResponse struct {
	Charges []*Charge `json:"charges"`
}

// ErrorResponse is the body Recharge returns on failed requests
type ErrorResponse struct {
	Errors interface{} `json:"errors"`
	Error  string      `json:"error"`
}

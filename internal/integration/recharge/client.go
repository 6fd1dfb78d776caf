package recharge

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/flexprice/recharge-sync/internal/config"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/types"
)

// maxResponseBytes bounds how much of a response body is read
const maxResponseBytes = 10 << 20

// RechargeClient defines the interface for Recharge API operations
type RechargeClient interface {
	ListCharges(ctx context.Context, params *ListChargesParams) ([]*Charge, error)
	VerifyWebhookSignature(ctx context.Context, signature string) error
}

// Client handles Recharge API calls and webhook verification
type Client struct {
	config     config.RechargeConfig
	webhook    config.WebhookConfig
	logger     *logger.Logger
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]*Charge]
}

// NewClient creates a new Recharge client
func NewClient(cfg *config.Configuration, logger *logger.Logger) RechargeClient {
	if cfg.Webhook.Secret == "" {
		if cfg.Webhook.AllowUnsigned {
			logger.Warnw("recharge webhook secret not configured, signature check disabled",
				"allow_unsigned", true)
		} else {
			logger.Warnw("recharge webhook secret not configured, all webhook deliveries will be rejected")
		}
	}

	limit := rate.Inf
	if cfg.Recharge.RateLimit > 0 {
		limit = rate.Limit(cfg.Recharge.RateLimit)
	}

	return &Client{
		config:  cfg.Recharge,
		webhook: cfg.Webhook,
		logger:  logger,
		httpClient: &http.Client{
			Timeout: cfg.Recharge.Timeout,
		},
		limiter: rate.NewLimiter(limit, max(cfg.Recharge.RateBurst, 1)),
		breaker: newChargesBreaker(cfg.Recharge.CircuitBreaker, logger),
	}
}

func newChargesBreaker(cfg config.CircuitBreakerConfig, logger *logger.Logger) *gobreaker.CircuitBreaker[[]*Charge] {
	if !cfg.Enabled {
		return nil
	}

	return gobreaker.NewCircuitBreaker[[]*Charge](gobreaker.Settings{
		Name:        "recharge_list_charges",
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("recharge circuit breaker state changed",
				"breaker", name,
				"from", from.String(),
				"to", to.String())
		},
	})
}

// ListCharges fetches one page of charges. Every failure is marked
// ErrUpstreamUnavailable, including calls refused by the open circuit breaker.
func (c *Client) ListCharges(ctx context.Context, params *ListChargesParams) ([]*Charge, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Recharge rate limit wait aborted").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	if c.breaker == nil {
		return c.listCharges(ctx, params)
	}

	charges, err := c.breaker.Execute(func() ([]*Charge, error) {
		return c.listCharges(ctx, params)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.logger.Warnw("recharge circuit breaker open, skipping request", "state", c.breaker.State().String())
		return nil, ierr.WithError(err).
			WithHint("Recharge API temporarily disabled after repeated failures").
			Mark(ierr.ErrUpstreamUnavailable)
	}
	return charges, err
}

func (c *Client) listCharges(ctx context.Context, params *ListChargesParams) ([]*Charge, error) {
	if params == nil {
		params = &ListChargesParams{}
	}

	endpoint, err := c.chargesURL(params)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Invalid Recharge base URL").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to create Recharge request").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	httpReq.Header.Set(types.HeaderRechargeAccessToken, c.config.APIKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Errorw("failed to fetch charges from Recharge", "error", err)
		return nil, ierr.WithError(err).
			WithHint("Unable to connect to Recharge API").
			Mark(ierr.ErrUpstreamUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to read Recharge response").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Errorw("Recharge API error",
			"status", resp.StatusCode,
			"body", string(respBody))

		var errResp ErrorResponse
		details := map[string]interface{}{"status": resp.StatusCode}
		if err := json.Unmarshal(respBody, &errResp); err == nil {
			details["errors"] = errResp.Errors
			details["error"] = errResp.Error
		}
		return nil, ierr.NewError("Recharge API error").
			WithHint(fmt.Sprintf("HTTP status %d", resp.StatusCode)).
			WithReportableDetails(details).
			Mark(ierr.ErrUpstreamUnavailable)
	}

	var page rawChargesPage
	if err := json.Unmarshal(respBody, &page); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to parse Recharge response").
			Mark(ierr.ErrUpstreamUnavailable)
	}

	charges := make([]*Charge, 0, len(page.Charges))
	skipped := 0
	for i, raw := range page.Charges {
		var charge *Charge
		if err := json.Unmarshal(raw, &charge); err != nil {
			skipped++
			c.logger.Warnw("skipping undecodable Recharge charge",
				"index", i,
				"error", err)
			continue
		}
		charges = append(charges, charge)
	}

	c.logger.Infow("successfully fetched charges from Recharge",
		"count", len(charges),
		"skipped", skipped)

	return charges, nil
}

// rawChargesPage defers decoding of each charge so one malformed record does
// not discard the rest of the page.
type rawChargesPage struct {
	Charges []json.RawMessage `json:"charges"`
}

func (c *Client) chargesURL(params *ListChargesParams) (string, error) {
	base, err := url.Parse(c.config.BaseURL)
	if err != nil {
		return "", err
	}

	sortBy := params.SortBy
	if sortBy == "" {
		sortBy = c.config.SortBy
	}
	limit := params.Limit
	if limit <= 0 {
		limit = c.config.Limit
	}

	u := base.JoinPath("charges")
	q := u.Query()
	if sortBy != "" {
		q.Set("sort_by", sortBy)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// VerifyWebhookSignature compares the X-Recharge-Hmac-Sha256 header against
// the configured webhook secret. With no secret configured the check passes
// only when unsigned deliveries are explicitly allowed.
func (c *Client) VerifyWebhookSignature(ctx context.Context, signature string) error {
	if c.webhook.Secret == "" {
		if c.webhook.AllowUnsigned {
			return nil
		}
		c.logger.Errorw("webhook secret not configured")
		return ierr.NewError("webhook secret not configured").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}

	if subtle.ConstantTimeCompare([]byte(signature), []byte(c.webhook.Secret)) != 1 {
		c.logger.Errorw("webhook signature mismatch",
			"received_signature_length", len(signature))
		return ierr.NewError("webhook signature verification failed").
			WithHint("Unauthorized").
			Mark(ierr.ErrUnauthorized)
	}

	return nil
}

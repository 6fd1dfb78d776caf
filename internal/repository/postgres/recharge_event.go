package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/postgres"
	"github.com/flexprice/recharge-sync/internal/types"
)

const rechargeEventColumns = `id, charge_id, subscription_id, customer_id, event_type, status,
	original_scheduled_at, current_scheduled_at,
	previous_product_id, current_product_id,
	previous_variant_id, current_variant_id,
	previous_quantity, current_quantity,
	effective_date, created_at, updated_at`

// Every non-key column is overwritten: an incoming event fully supersedes the
// stored row for the same (charge_id, subscription_id).
const upsertRechargeEventQuery = `
	INSERT INTO recharge_events (` + rechargeEventColumns + `)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	ON CONFLICT ON CONSTRAINT recharge_events_charge_subscription_key DO UPDATE SET
		id = EXCLUDED.id,
		customer_id = EXCLUDED.customer_id,
		event_type = EXCLUDED.event_type,
		status = EXCLUDED.status,
		original_scheduled_at = EXCLUDED.original_scheduled_at,
		current_scheduled_at = EXCLUDED.current_scheduled_at,
		previous_product_id = EXCLUDED.previous_product_id,
		current_product_id = EXCLUDED.current_product_id,
		previous_variant_id = EXCLUDED.previous_variant_id,
		current_variant_id = EXCLUDED.current_variant_id,
		previous_quantity = EXCLUDED.previous_quantity,
		current_quantity = EXCLUDED.current_quantity,
		effective_date = EXCLUDED.effective_date,
		created_at = EXCLUDED.created_at,
		updated_at = EXCLUDED.updated_at`

const getLatestRechargeEventQuery = `
	SELECT ` + rechargeEventColumns + `
	FROM recharge_events
	WHERE subscription_id = $1
	ORDER BY updated_at DESC, created_at DESC
	LIMIT 1`

type rechargeEventRepository struct {
	client postgres.IClient
	logger *logger.Logger
}

// NewRechargeEventRepository creates a new recharge event repository
func NewRechargeEventRepository(client postgres.IClient, logger *logger.Logger) rechargeevent.Repository {
	return &rechargeEventRepository{
		client: client,
		logger: logger,
	}
}

func (r *rechargeEventRepository) Upsert(ctx context.Context, events []*rechargeevent.RechargeEvent) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}

	for _, event := range events {
		if err := event.Validate(); err != nil {
			return 0, err
		}
	}

	r.logger.Debugw("upserting recharge events", "count", len(events))

	// Rows are written one statement at a time so that repeated keys inside a
	// batch resolve to the later element instead of failing the statement.
	err := r.client.WithTx(ctx, func(ctx context.Context) error {
		q := r.client.Querier(ctx)
		for _, event := range events {
			if _, err := q.ExecContext(ctx, upsertRechargeEventQuery, upsertArgs(event)...); err != nil {
				return ierr.WithError(err).
					WithHint("Failed to upsert recharge event").
					WithReportableDetails(map[string]interface{}{
						"subscription_id": event.SubscriptionID,
						"charge_id":       event.ChargeID,
						"event_type":      event.EventType,
						"pq_code":         pqCode(err),
					}).
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return len(events), nil
}

func (r *rechargeEventRepository) GetLatestBySubscription(ctx context.Context, subscriptionID string) (*rechargeevent.RechargeEvent, error) {
	if subscriptionID == "" {
		return nil, ierr.NewError("subscription_id is required").
			WithHint("Subscription ID is required").
			Mark(ierr.ErrValidation)
	}

	row := r.client.Querier(ctx).QueryRowContext(ctx, getLatestRechargeEventQuery, subscriptionID)
	event, err := scanRechargeEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // No prior event is not an error here
		}
		return nil, ierr.WithError(err).
			WithHint("Failed to get latest recharge event").
			WithReportableDetails(map[string]interface{}{
				"subscription_id": subscriptionID,
			}).
			Mark(ierr.ErrDatabase)
	}

	return event, nil
}

func upsertArgs(e *rechargeevent.RechargeEvent) []interface{} {
	id := e.ID
	if id == "" {
		id = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT)
	}

	return []interface{}{
		id,
		e.ChargeID,
		e.SubscriptionID,
		e.CustomerID,
		string(e.EventType),
		e.Status,
		e.OriginalScheduledAt,
		e.CurrentScheduledAt,
		e.PreviousProductID,
		e.CurrentProductID,
		e.PreviousVariantID,
		e.CurrentVariantID,
		e.PreviousQuantity,
		e.CurrentQuantity,
		e.EffectiveDate,
		e.CreatedAt,
		e.UpdatedAt,
	}
}

func scanRechargeEvent(row *sql.Row) (*rechargeevent.RechargeEvent, error) {
	var (
		e                                  rechargeevent.RechargeEvent
		eventType                          string
		chargeID                           sql.NullString
		previousProductID, currentProduct  sql.NullString
		previousVariantID, currentVariant  sql.NullString
		previousQuantity, currentQuantity  sql.NullInt64
		originalScheduled, currentSchedule sql.NullTime
		effectiveDate                      sql.NullTime
	)

	err := row.Scan(
		&e.ID,
		&chargeID,
		&e.SubscriptionID,
		&e.CustomerID,
		&eventType,
		&e.Status,
		&originalScheduled,
		&currentSchedule,
		&previousProductID,
		&currentProduct,
		&previousVariantID,
		&currentVariant,
		&previousQuantity,
		&currentQuantity,
		&effectiveDate,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	e.EventType = types.RechargeEventType(eventType)
	e.ChargeID = stringPtr(chargeID)
	e.OriginalScheduledAt = timePtr(originalScheduled)
	e.CurrentScheduledAt = timePtr(currentSchedule)
	e.PreviousProductID = stringPtr(previousProductID)
	e.CurrentProductID = stringPtr(currentProduct)
	e.PreviousVariantID = stringPtr(previousVariantID)
	e.CurrentVariantID = stringPtr(currentVariant)
	e.PreviousQuantity = intPtr(previousQuantity)
	e.CurrentQuantity = intPtr(currentQuantity)
	e.EffectiveDate = timePtr(effectiveDate)

	return &e, nil
}

func stringPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return &v.String
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}

func timePtr(v sql.NullTime) *time.Time {
	if !v.Valid {
		return nil
	}
	t := v.Time.UTC()
	return &t
}

func pqCode(err error) string {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/flexprice/recharge-sync/internal/domain/rechargeevent"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/logger"
	"github.com/flexprice/recharge-sync/internal/postgres"
	"github.com/flexprice/recharge-sync/internal/types"
)

type RechargeEventRepositorySuite struct {
	suite.Suite
	ctx  context.Context
	db   *sql.DB
	mock sqlmock.Sqlmock
	repo rechargeevent.Repository
}

func TestRechargeEventRepository(t *testing.T) {
	suite.Run(t, new(RechargeEventRepositorySuite))
}

func (s *RechargeEventRepositorySuite) SetupTest() {
	db, mock, err := sqlmock.New()
	s.Require().NoError(err)

	log := logger.NewNoopLogger()
	s.ctx = context.Background()
	s.db = db
	s.mock = mock
	s.repo = NewRechargeEventRepository(postgres.NewClient(db, log), log)
}

func (s *RechargeEventRepositorySuite) TearDownTest() {
	s.NoError(s.mock.ExpectationsWereMet())
	_ = s.db.Close()
}

func skipEvent(chargeID, subscriptionID string) *rechargeevent.RechargeEvent {
	updatedAt := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	return &rechargeevent.RechargeEvent{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT),
		ChargeID:       lo.ToPtr(chargeID),
		SubscriptionID: subscriptionID,
		CustomerID:     "9",
		EventType:      types.RechargeEventTypeSkip,
		Status:         "SKIPPED",
		EffectiveDate:  &updatedAt,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      updatedAt,
	}
}

var upsertPattern = regexp.QuoteMeta("INSERT INTO recharge_events (")

func (s *RechargeEventRepositorySuite) TestUpsert_WritesBatchInOneTransaction() {
	first := skipEvent("1", "55")
	second := skipEvent("1", "56")

	s.mock.ExpectBegin()
	s.mock.ExpectExec(upsertPattern).
		WithArgs(first.ID, "1", "55", "9", "skip", "SKIPPED",
			nil, nil, nil, nil, nil, nil, nil, nil,
			sqlmock.AnyArg(), first.CreatedAt, first.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(upsertPattern).
		WithArgs(second.ID, "1", "56", "9", "skip", "SKIPPED",
			nil, nil, nil, nil, nil, nil, nil, nil,
			sqlmock.AnyArg(), second.CreatedAt, second.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	count, err := s.repo.Upsert(s.ctx, []*rechargeevent.RechargeEvent{first, second})
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *RechargeEventRepositorySuite) TestUpsert_ProductChangeWithoutChargeID() {
	event := &rechargeevent.RechargeEvent{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECHARGE_EVENT),
		SubscriptionID:    "77",
		CustomerID:        "9",
		EventType:         types.RechargeEventTypeSubscriptionProductChange,
		Status:            "ACTIVE",
		PreviousVariantID: lo.ToPtr("200"),
		CurrentVariantID:  lo.ToPtr("300"),
		CurrentQuantity:   lo.ToPtr(2),
		CreatedAt:         time.Now().UTC(),
		UpdatedAt:         time.Now().UTC(),
	}

	s.mock.ExpectBegin()
	s.mock.ExpectExec(upsertPattern).
		WithArgs(event.ID, nil, "77", "9", "subscription_product_change", "ACTIVE",
			nil, nil, nil, nil, "200", "300", nil, int64(2),
			nil, event.CreatedAt, event.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectCommit()

	count, err := s.repo.Upsert(s.ctx, []*rechargeevent.RechargeEvent{event})
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *RechargeEventRepositorySuite) TestUpsert_FailureRollsBackBatch() {
	s.mock.ExpectBegin()
	s.mock.ExpectExec(upsertPattern).WillReturnResult(sqlmock.NewResult(0, 1))
	s.mock.ExpectExec(upsertPattern).WillReturnError(errors.New("connection reset"))
	s.mock.ExpectRollback()

	count, err := s.repo.Upsert(s.ctx, []*rechargeevent.RechargeEvent{
		skipEvent("1", "55"),
		skipEvent("2", "55"),
	})
	s.Equal(0, count)
	s.True(ierr.IsDatabase(err))
}

func (s *RechargeEventRepositorySuite) TestUpsert_EmptyBatchIsNoop() {
	count, err := s.repo.Upsert(s.ctx, nil)
	s.NoError(err)
	s.Equal(0, count)
}

func (s *RechargeEventRepositorySuite) TestUpsert_InvalidEventWritesNothing() {
	invalid := skipEvent("1", "")

	count, err := s.repo.Upsert(s.ctx, []*rechargeevent.RechargeEvent{skipEvent("1", "55"), invalid})
	s.Equal(0, count)
	s.True(ierr.IsValidation(err))
}

func (s *RechargeEventRepositorySuite) TestUpsert_ChargeEventWithoutChargeIDWritesNothing() {
	orphan := skipEvent("1", "77")
	orphan.ChargeID = nil
	orphan.EventType = types.RechargeEventTypeChargeUpdate

	count, err := s.repo.Upsert(s.ctx, []*rechargeevent.RechargeEvent{orphan})
	s.Equal(0, count)
	s.True(ierr.IsValidation(err))
}

var latestColumns = []string{
	"id", "charge_id", "subscription_id", "customer_id", "event_type", "status",
	"original_scheduled_at", "current_scheduled_at",
	"previous_product_id", "current_product_id",
	"previous_variant_id", "current_variant_id",
	"previous_quantity", "current_quantity",
	"effective_date", "created_at", "updated_at",
}

var latestPattern = regexp.QuoteMeta("FROM recharge_events") + `\s+` + regexp.QuoteMeta("WHERE subscription_id = $1")

func (s *RechargeEventRepositorySuite) TestGetLatestBySubscription_Found() {
	updatedAt := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	s.mock.ExpectQuery(latestPattern).
		WithArgs("77").
		WillReturnRows(sqlmock.NewRows(latestColumns).AddRow(
			"revt_1", nil, "77", "9", "charge_update", "QUEUED",
			nil, nil,
			nil, "20",
			nil, "200",
			nil, int64(1),
			updatedAt, updatedAt, updatedAt,
		))

	event, err := s.repo.GetLatestBySubscription(s.ctx, "77")
	s.Require().NoError(err)
	s.Require().NotNil(event)

	s.Equal("revt_1", event.ID)
	s.Nil(event.ChargeID)
	s.Equal(types.RechargeEventTypeChargeUpdate, event.EventType)
	s.Equal("200", lo.FromPtr(event.CurrentVariantID))
	s.Equal("20", lo.FromPtr(event.CurrentProductID))
	s.Nil(event.PreviousVariantID)
	s.Equal(1, lo.FromPtr(event.CurrentQuantity))
	s.Nil(event.OriginalScheduledAt)
	s.Require().NotNil(event.EffectiveDate)
	s.True(updatedAt.Equal(*event.EffectiveDate))
}

func (s *RechargeEventRepositorySuite) TestGetLatestBySubscription_None() {
	s.mock.ExpectQuery(latestPattern).
		WithArgs("77").
		WillReturnRows(sqlmock.NewRows(latestColumns))

	event, err := s.repo.GetLatestBySubscription(s.ctx, "77")
	s.NoError(err)
	s.Nil(event)
}

func (s *RechargeEventRepositorySuite) TestGetLatestBySubscription_Error() {
	s.mock.ExpectQuery(latestPattern).
		WithArgs("77").
		WillReturnError(errors.New("relation \"recharge_events\" does not exist"))

	event, err := s.repo.GetLatestBySubscription(s.ctx, "77")
	s.Nil(event)
	s.True(ierr.IsDatabase(err))
}

func TestUpsertQuery_OverwritesEveryColumn(t *testing.T) {
	for _, column := range latestColumns {
		if column == "charge_id" || column == "subscription_id" {
			continue
		}
		assert.Contains(t, upsertRechargeEventQuery, column+" = EXCLUDED."+column)
	}
	require.Contains(t, upsertRechargeEventQuery, "ON CONFLICT ON CONSTRAINT recharge_events_charge_subscription_key")
}

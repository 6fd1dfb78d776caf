package service

import (
	"context"

	"github.com/flexprice/recharge-sync/internal/api/dto"
	ierr "github.com/flexprice/recharge-sync/internal/errors"
	"github.com/flexprice/recharge-sync/internal/integration/recharge"
)

// ChargeSyncService polls recent Recharge charges into the event store
type ChargeSyncService interface {
	// SyncCharges runs one poll: fetch, normalize, upsert. An unavailable
	// upstream yields an empty result and no error, store failures are returned.
	SyncCharges(ctx context.Context) (*dto.SyncChargesResponse, error)
}

type chargeSyncService struct {
	ServiceParams
}

// NewChargeSyncService creates a new charge sync service
func NewChargeSyncService(params ServiceParams) ChargeSyncService {
	return &chargeSyncService{
		ServiceParams: params,
	}
}

func (s *chargeSyncService) SyncCharges(ctx context.Context) (*dto.SyncChargesResponse, error) {
	log := s.Logger.WithContext(ctx)
	resp := &dto.SyncChargesResponse{}

	log.Infow("fetching recharge charges",
		"sort_by", s.Config.Recharge.SortBy,
		"limit", s.Config.Recharge.Limit)

	charges, err := s.RechargeClient.ListCharges(ctx, &recharge.ListChargesParams{
		SortBy: s.Config.Recharge.SortBy,
		Limit:  s.Config.Recharge.Limit,
	})
	if err != nil {
		if ierr.IsUpstreamUnavailable(err) {
			log.Warnw("recharge unavailable, skipping charge sync", "error", err)
			return resp, nil
		}
		return nil, err
	}

	resp.ChargesFetched = len(charges)
	if len(charges) == 0 {
		log.Infow("no charges to sync")
		return resp, nil
	}

	log.Infow("normalizing recharge charges", "charges", len(charges))
	events := recharge.CollectChargeEvents(charges)
	if len(events) == 0 {
		log.Infow("no charge events to record", "charges", len(charges))
		return resp, nil
	}

	log.Infow("upserting recharge events", "events", len(events))
	recorded, err := s.RechargeEventRepo.Upsert(ctx, events)
	if err != nil {
		log.Errorw("failed to upsert recharge events",
			"events", len(events),
			"error", err)
		return nil, err
	}

	resp.EventsRecorded = recorded
	log.Infow("charge sync completed",
		"charges_fetched", resp.ChargesFetched,
		"events_recorded", resp.EventsRecorded)

	return resp, nil
}

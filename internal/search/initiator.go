package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/geo"
)

// Initiator starts searches from donation-request change events.
type Initiator struct {
	Store RecordStore
	Queue Queue
	Cfg   config.SearchConfig
}

// NewInitiator wires an Initiator.
func NewInitiator(store RecordStore, q Queue, cfg config.SearchConfig) *Initiator {
	return &Initiator{Store: store, Queue: q, Cfg: cfg}
}

// HandleEvent reacts to a request INSERT or MODIFY:
//   - no search record yet and the request is pending: create a PENDING
//     record and enqueue round 0 at the seeker's own cell;
//   - record exists and the request is no longer pending: mark it COMPLETED;
//   - record exists and the request moved back to PENDING from an inactive
//     status: reopen a COMPLETED record and enqueue a fresh round that
//     carries the existing ledger forward;
//   - otherwise refresh its descriptive fields.
//
// A malformed event yields an OperationalError.
func (i *Initiator) HandleEvent(ctx context.Context, ev domain.RequestEvent) error {
	tr := otel.Tracer("search/Initiator")
	ctx, span := tr.Start(ctx, "HandleEvent",
		trace.WithAttributes(
			attribute.String("seeker.id", ev.SeekerID),
			attribute.String("request.id", ev.RequestID),
			attribute.String("event.kind", string(ev.Kind)),
		),
	)
	defer span.End()

	if err := ValidateEvent(ev); err != nil {
		return err
	}
	key := ev.Key()
	lg := log.With().Str("seeker_id", key.SeekerID).Str("request_id", key.RequestID).Str("event", string(ev.Kind)).Logger()

	req, err := i.Store.GetDonationRequest(ctx, key)
	if err != nil {
		return fmt.Errorf("load donation request: %w", err)
	}
	if req == nil {
		return operational(nil, "donation request %s/%s not found", key.SeekerID, key.RequestID)
	}
	if req.Geohash == "" {
		req.Geohash = strings.ToLower(ev.Geohash)
	}
	status := ev.Status
	if status == "" {
		status = req.Status
	}

	rec, err := i.Store.GetSearchRecord(ctx, key)
	if err != nil {
		return fmt.Errorf("load search record: %w", err)
	}

	if rec == nil {
		if !status.Active() {
			lg.Debug().Str("status", string(status)).Msg("no search started for inactive request")
			return nil
		}
		rec = &domain.DonorSearchRecord{
			SeekerID:         key.SeekerID,
			RequestID:        key.RequestID,
			RequestCreatedAt: key.CreatedAt,
			Status:           domain.SearchPending,
		}
		rec.ApplyRequest(req)
		rec.SetNotified(nil)
		if err := i.Store.SaveSearchRecord(ctx, rec); err != nil {
			return fmt.Errorf("create search record: %w", err)
		}
		if err := i.enqueueFirst(ctx, rec, nil); err != nil {
			return err
		}
		searchesStarted.WithLabelValues("created").Inc()
		lg.Info().Str("geohash", rec.Geohash).Msg("search started")
		return nil
	}

	rec.ApplyRequest(req)
	switch {
	case !status.Active():
		rec.Status = domain.SearchCompleted
		if err := i.Store.SaveSearchRecord(ctx, rec); err != nil {
			return fmt.Errorf("close search record: %w", err)
		}
		lg.Info().Str("status", string(status)).Msg("search closed: request no longer pending")
		return nil

	case reopens(ev, status):
		reopened, err := i.Store.ReopenSearchRecord(ctx, rec)
		if err != nil {
			return fmt.Errorf("reopen search record: %w", err)
		}
		if !reopened {
			lg.Debug().Msg("search already active")
			return nil
		}
		if err := i.enqueueFirst(ctx, rec, rec.Notified()); err != nil {
			return err
		}
		searchesStarted.WithLabelValues("reopened").Inc()
		lg.Info().Int("ledger", len(rec.Notified())).Msg("search reopened")
		return nil
	}

	if err := i.Store.SaveSearchRecord(ctx, rec); err != nil {
		return fmt.Errorf("save search record: %w", err)
	}
	lg.Debug().Str("search_status", string(rec.Status)).Msg("search record refreshed")
	return nil
}

// reopens reports whether ev moves a request from an inactive status back to
// an active one.
func reopens(ev domain.RequestEvent, status domain.RequestStatus) bool {
	return ev.Kind == domain.EventModify &&
		status.Active() &&
		ev.PreviousStatus != "" && !ev.PreviousStatus.Active()
}

func (i *Initiator) enqueueFirst(ctx context.Context, rec *domain.DonorSearchRecord, carry domain.Ledger) error {
	msg := &domain.SearchRoundMessage{
		SeekerID:                    rec.SeekerID,
		RequestID:                   rec.RequestID,
		CreatedAt:                   rec.RequestCreatedAt,
		CurrentNeighborSearchLevel:  0,
		RemainingGeohashesToProcess: []string{geo.Truncate(rec.Geohash, i.Cfg.NeighborGeohashLength)},
		NotifiedEligibleDonors:      carry,
	}
	body, err := EncodeRoundMessage(msg)
	if err != nil {
		return operational(err, "encode round message")
	}
	if _, err := i.Queue.Enqueue(ctx, body, 0); err != nil {
		return fmt.Errorf("enqueue first round: %w", err)
	}
	return nil
}

// ValidateEvent checks the identity, geohash and kind of ev. Failures are
// OperationalErrors.
func ValidateEvent(ev domain.RequestEvent) error {
	switch {
	case strings.TrimSpace(ev.SeekerID) == "":
		return operational(nil, "request event: missing seekerId")
	case strings.TrimSpace(ev.RequestID) == "":
		return operational(nil, "request event: missing requestPostId")
	case ev.CreatedAt <= 0:
		return operational(nil, "request event: missing createdAt")
	case !geo.Valid(ev.Geohash):
		return operational(nil, "request event: invalid geohash %q", ev.Geohash)
	case ev.Kind != domain.EventInsert && ev.Kind != domain.EventModify:
		return operational(nil, "request event: unsupported event %q", ev.Kind)
	}
	return nil
}

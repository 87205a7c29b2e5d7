// Package services – RequestService
//
// RequestService is the intake path for donation requests when no upstream
// change stream is attached. It persists the request, then hands the
// resulting INSERT or MODIFY event to the search initiator exactly as the
// Kafka consumer would. It also records donor acceptances, which the
// orchestrator counts against the requested blood quantity.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/geo"
	"github.com/tbourn/donor-search/internal/repo"
	"github.com/tbourn/donor-search/internal/search"
)

// EventHandler reacts to donation-request change events.
type EventHandler interface {
	HandleEvent(ctx context.Context, ev domain.RequestEvent) error
}

// RequestService writes donation requests and acceptances.
type RequestService struct {
	DB     *gorm.DB
	Events EventHandler
}

// NewRequestService wires a RequestService.
func NewRequestService(db *gorm.DB, events EventHandler) *RequestService {
	return &RequestService{DB: db, Events: events}
}

var bloodGroups = map[string]bool{
	"A+": true, "A-": true, "B+": true, "B-": true,
	"AB+": true, "AB-": true, "O+": true, "O-": true,
}

// Upsert stores req and emits the matching request event. created reports
// whether the request did not exist before.
//
// Validation failures, including an event the initiator would reject, return
// an error wrapping ErrInvalidRequest before anything is written. The request
// row is committed before the event is handled; a failing event leaves the
// row in place and returns the event error so the caller can retry the write.
func (s *RequestService) Upsert(ctx context.Context, req *domain.DonationRequest) (created bool, err error) {
	if err := validateRequest(req); err != nil {
		return false, err
	}
	req.Geohash = strings.ToLower(req.Geohash)
	req.City = strings.ToLower(strings.TrimSpace(req.City))

	ev := domain.RequestEvent{
		SeekerID:  req.SeekerID,
		RequestID: req.RequestID,
		CreatedAt: req.RequestCreatedAt,
		Geohash:   req.Geohash,
		Status:    req.Status,
		Kind:      domain.EventInsert,
	}
	if err := search.ValidateEvent(ev); err != nil {
		return false, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	err = s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		old, err := repo.GetDonationRequest(ctx, tx, req.Key())
		switch {
		case errors.Is(err, repo.ErrNotFound):
			created = true
		case err != nil:
			return err
		default:
			ev.Kind = domain.EventModify
			ev.PreviousStatus = old.Status
			req.CreatedAt = old.CreatedAt
		}
		return repo.UpsertDonationRequest(ctx, tx, req)
	})
	if err != nil {
		return false, err
	}

	if err := s.Events.HandleEvent(ctx, ev); err != nil {
		return created, fmt.Errorf("start search: %w", err)
	}
	return created, nil
}

// Accept records that donorID accepted the request of key. Once the accepted
// donors cover the requested blood quantity the search record is marked
// COMPLETED.
//
// Errors:
//   - ErrRequestNotFound when the request does not exist.
//   - ErrAlreadyAccepted when the donor already accepted it.
func (s *RequestService) Accept(ctx context.Context, key domain.SearchKey, donorID string) error {
	if strings.TrimSpace(donorID) == "" {
		return fmt.Errorf("%w: missing donor id", ErrInvalidRequest)
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		req, err := repo.GetDonationRequest(ctx, tx, key)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				return ErrRequestNotFound
			}
			return err
		}
		err = repo.CreateAcceptance(ctx, tx, key.SeekerID, key.RequestID, donorID)
		if errors.Is(err, repo.ErrDuplicate) {
			return ErrAlreadyAccepted
		}
		if err != nil {
			return err
		}

		accepted, err := repo.CountAcceptedDonors(ctx, tx, key.SeekerID, key.RequestID)
		if err != nil {
			return err
		}
		if accepted < int64(req.BloodQuantity) {
			return nil
		}
		_, err = repo.CompleteSearchRecord(ctx, tx, key)
		return err
	})
}

func validateRequest(req *domain.DonationRequest) error {
	bad := func(reason string) error { return fmt.Errorf("%w: %s", ErrInvalidRequest, reason) }
	switch {
	case req == nil:
		return bad("empty body")
	case strings.TrimSpace(req.SeekerID) == "":
		return bad("missing seeker id")
	case strings.TrimSpace(req.RequestID) == "":
		return bad("missing request id")
	case req.RequestCreatedAt <= 0:
		return bad("missing created-at")
	case !geo.Valid(req.Geohash):
		return bad("invalid geohash")
	case strings.TrimSpace(req.City) == "":
		return bad("missing city")
	case !bloodGroups[req.RequestedBloodGroup]:
		return bad("unknown blood group")
	case req.BloodQuantity < 1:
		return bad("blood quantity must be positive")
	case !req.UrgencyLevel.Valid():
		return bad("unknown urgency level")
	case req.DonationDateTime.IsZero():
		return bad("missing donation time")
	}
	switch req.Status {
	case domain.RequestPending, domain.RequestCompleted, domain.RequestCancelled, domain.RequestExpired:
		return nil
	case "":
		req.Status = domain.RequestPending
		return nil
	}
	return bad("unknown status")
}

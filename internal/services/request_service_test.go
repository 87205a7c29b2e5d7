package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/repo"
	"github.com/tbourn/donor-search/internal/search"
)

func TestRequestService_Upsert_InsertThenModify(t *testing.T) {
	db := newTestDB(t)
	ev := &recordingEvents{}
	svc := NewRequestService(db, ev)
	ctx := context.Background()

	req := sampleRequest()
	created, err := svc.Upsert(ctx, req)
	if err != nil || !created {
		t.Fatalf("first upsert: created=%v err=%v", created, err)
	}
	stored, err := repo.GetDonationRequest(ctx, db, req.Key())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if stored.Geohash != "wh0r35qr" || stored.City != "dhaka" {
		t.Fatalf("expected normalized geohash/city, got %q/%q", stored.Geohash, stored.City)
	}

	upd := sampleRequest()
	upd.Status = domain.RequestCancelled
	created, err = svc.Upsert(ctx, upd)
	if err != nil || created {
		t.Fatalf("second upsert: created=%v err=%v", created, err)
	}

	if len(ev.events) != 2 {
		t.Fatalf("want 2 events, got %d", len(ev.events))
	}
	if ev.events[0].Kind != domain.EventInsert || ev.events[0].PreviousStatus != "" {
		t.Fatalf("unexpected insert event: %+v", ev.events[0])
	}
	mod := ev.events[1]
	if mod.Kind != domain.EventModify || mod.Status != domain.RequestCancelled || mod.PreviousStatus != domain.RequestPending {
		t.Fatalf("unexpected modify event: %+v", mod)
	}
}

func TestRequestService_Upsert_Validation(t *testing.T) {
	cases := map[string]func(r *domain.DonationRequest){
		"seeker":   func(r *domain.DonationRequest) { r.SeekerID = " " },
		"request":  func(r *domain.DonationRequest) { r.RequestID = "" },
		"created":  func(r *domain.DonationRequest) { r.RequestCreatedAt = 0 },
		"geohash":  func(r *domain.DonationRequest) { r.Geohash = "wh0r35a!" },
		"city":     func(r *domain.DonationRequest) { r.City = "" },
		"group":    func(r *domain.DonationRequest) { r.RequestedBloodGroup = "C+" },
		"quantity": func(r *domain.DonationRequest) { r.BloodQuantity = 0 },
		"urgency":  func(r *domain.DonationRequest) { r.UrgencyLevel = "SOON" },
		"date":     func(r *domain.DonationRequest) { r.DonationDateTime = time.Time{} },
		"status":   func(r *domain.DonationRequest) { r.Status = "OPEN" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			db := newTestDB(t)
			ev := &recordingEvents{}
			req := sampleRequest()
			mutate(req)
			_, err := NewRequestService(db, ev).Upsert(context.Background(), req)
			if !errors.Is(err, ErrInvalidRequest) {
				t.Fatalf("expected ErrInvalidRequest, got %v", err)
			}
			if len(ev.events) != 0 {
				t.Fatalf("no event expected on invalid input")
			}
		})
	}
}

func TestRequestService_Upsert_DefaultsStatusToPending(t *testing.T) {
	db := newTestDB(t)
	ev := &recordingEvents{}
	req := sampleRequest()
	req.Status = ""
	if _, err := NewRequestService(db, ev).Upsert(context.Background(), req); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if ev.events[0].Status != domain.RequestPending {
		t.Fatalf("status = %q, want PENDING", ev.events[0].Status)
	}
}

func TestRequestService_Upsert_EventErrors(t *testing.T) {
	db := newTestDB(t)
	boom := errors.New("queue down")
	ev := &recordingEvents{err: boom}
	svc := NewRequestService(db, ev)

	_, err := svc.Upsert(context.Background(), sampleRequest())
	if !errors.Is(err, boom) {
		t.Fatalf("expected event error, got %v", err)
	}
	// the request row survives so a retried write becomes a MODIFY
	if _, err := repo.GetDonationRequest(context.Background(), db, sampleRequest().Key()); err != nil {
		t.Fatalf("request not persisted: %v", err)
	}

	// the write is committed, so an initiator rejection is not a client error
	opErr := &search.OperationalError{Message: "bad event"}
	ev.err = opErr
	_, err = svc.Upsert(context.Background(), sampleRequest())
	if errors.Is(err, ErrInvalidRequest) || !errors.Is(err, opErr) {
		t.Fatalf("expected the initiator error after commit, got %v", err)
	}
}

type memQueue struct{ bodies [][]byte }

func (q *memQueue) Enqueue(_ context.Context, body []byte, _ time.Duration) (string, error) {
	q.bodies = append(q.bodies, body)
	return "job", nil
}

func (q *memQueue) ExtendVisibility(context.Context, string, time.Duration) error { return nil }

func TestRequestService_Upsert_StartsSearch(t *testing.T) {
	db := newTestDB(t)
	q := &memQueue{}
	initiator := search.NewInitiator(repo.NewStore(db), q, config.SearchConfig{NeighborGeohashLength: 6})
	svc := NewRequestService(db, initiator)

	req := sampleRequest()
	if _, err := svc.Upsert(context.Background(), req); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	rec, err := repo.GetSearchRecord(context.Background(), db, req.Key())
	if err != nil {
		t.Fatalf("search record not created: %v", err)
	}
	if rec.Status != domain.SearchPending || rec.RequestedBloodGroup != "O-" {
		t.Fatalf("unexpected record: %+v", rec)
	}
	if len(q.bodies) != 1 {
		t.Fatalf("want first round enqueued, got %d", len(q.bodies))
	}
	msg, err := search.ParseRoundMessage(q.bodies[0])
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(msg.RemainingGeohashesToProcess) != 1 || msg.RemainingGeohashesToProcess[0] != "wh0r35" {
		t.Fatalf("unexpected first round: %+v", msg)
	}
}

func TestRequestService_Accept(t *testing.T) {
	db := newTestDB(t)
	svc := NewRequestService(db, &recordingEvents{})
	ctx := context.Background()
	req := sampleRequest()
	if _, err := svc.Upsert(ctx, req); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	if err := svc.Accept(ctx, req.Key(), "d1"); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if err := svc.Accept(ctx, req.Key(), "d1"); !errors.Is(err, ErrAlreadyAccepted) {
		t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
	}
	if err := svc.Accept(ctx, req.Key(), "d2"); err != nil {
		t.Fatalf("second donor: %v", err)
	}
	n, err := repo.CountAcceptedDonors(ctx, db, req.SeekerID, req.RequestID)
	if err != nil || n != 2 {
		t.Fatalf("accepted = %d, %v; want 2", n, err)
	}
}

func TestRequestService_Accept_Errors(t *testing.T) {
	db := newTestDB(t)
	svc := NewRequestService(db, &recordingEvents{})
	key := domain.SearchKey{SeekerID: "s1", RequestID: "missing", CreatedAt: 1}

	if err := svc.Accept(context.Background(), key, "d1"); !errors.Is(err, ErrRequestNotFound) {
		t.Fatalf("expected ErrRequestNotFound, got %v", err)
	}
	if err := svc.Accept(context.Background(), key, " "); !errors.Is(err, ErrInvalidRequest) {
		t.Fatalf("expected ErrInvalidRequest, got %v", err)
	}
}

func TestRequestService_Accept_CompletesSatisfiedSearch(t *testing.T) {
	db := newTestDB(t)
	initiator := search.NewInitiator(repo.NewStore(db), &memQueue{}, config.SearchConfig{NeighborGeohashLength: 6})
	svc := NewRequestService(db, initiator)
	ctx := context.Background()

	req := sampleRequest()
	if _, err := svc.Upsert(ctx, req); err != nil {
		t.Fatalf("upsert: %v", err)
	}
	status := func() domain.SearchStatus {
		t.Helper()
		rec, err := repo.GetSearchRecord(ctx, db, req.Key())
		if err != nil {
			t.Fatalf("load record: %v", err)
		}
		return rec.Status
	}

	if err := svc.Accept(ctx, req.Key(), "d1"); err != nil {
		t.Fatalf("accept d1: %v", err)
	}
	if got := status(); got != domain.SearchPending {
		t.Fatalf("after 1 of 2 acceptances: status = %s, want PENDING", got)
	}
	if err := svc.Accept(ctx, req.Key(), "d2"); err != nil {
		t.Fatalf("accept d2: %v", err)
	}
	if got := status(); got != domain.SearchCompleted {
		t.Fatalf("after 2 of 2 acceptances: status = %s, want COMPLETED", got)
	}
}

func TestRequestService_Upsert_CancelThenReopen(t *testing.T) {
	db := newTestDB(t)
	q := &memQueue{}
	initiator := search.NewInitiator(repo.NewStore(db), q, config.SearchConfig{NeighborGeohashLength: 6})
	svc := NewRequestService(db, initiator)
	ctx := context.Background()

	if _, err := svc.Upsert(ctx, sampleRequest()); err != nil {
		t.Fatalf("create: %v", err)
	}
	cancelled := sampleRequest()
	cancelled.Status = domain.RequestCancelled
	if _, err := svc.Upsert(ctx, cancelled); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	rec, err := repo.GetSearchRecord(ctx, db, cancelled.Key())
	if err != nil || rec.Status != domain.SearchCompleted {
		t.Fatalf("after cancel: %+v, %v; want COMPLETED", rec, err)
	}

	if _, err := svc.Upsert(ctx, sampleRequest()); err != nil {
		t.Fatalf("reopen: %v", err)
	}
	rec, err = repo.GetSearchRecord(ctx, db, cancelled.Key())
	if err != nil || rec.Status != domain.SearchPending {
		t.Fatalf("after reopen: %+v, %v; want PENDING", rec, err)
	}
	if len(q.bodies) != 2 {
		t.Fatalf("want a fresh round on reopen, got %d rounds", len(q.bodies))
	}
}

package search

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tbourn/donor-search/internal/config"
	"github.com/tbourn/donor-search/internal/domain"
)

const (
	seekerGeohash = "wh0r35qr"
	seekerCell    = "wh0r35"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testConfig() config.SearchConfig {
	return config.SearchConfig{
		MaxNeighborSearchLevel:   15,
		MaxGeohashesPerExecution: 340,
		MaxGeohashesPerRound:     50,
		NeighborGeohashLength:    6,
		MaxRetryCount:            5,
		MaxReinstatedRetryCount:  3,
		ContinueDelay:            time.Minute,
		MaxEnqueueDelay:          15 * time.Minute,
		MaxVisibilityDelay:       12 * time.Hour,
		UrgentDelay:              config.DelayBounds{Min: 15 * time.Minute, Max: 2 * time.Hour},
		RegularDelay:             config.DelayBounds{Min: time.Hour, Max: 12 * time.Hour},
		ReinstateMultiplier:      2,
		ReinstateMaxDelay:        24 * time.Hour,
		DistanceTieBreak:         "farthest",
	}
}

// fakeStore is an in-memory RecordStore. Saved records are deep-copied,
// ledgers merged and COMPLETED kept terminal the way the SQLite store does.
type fakeStore struct {
	mu       sync.Mutex
	records  map[domain.SearchKey]*domain.DonorSearchRecord
	requests map[domain.SearchKey]*domain.DonationRequest
	accepted map[domain.SearchKey]int
	saves    int
	err      error

	// afterGet, when set, runs once right after the next GetSearchRecord.
	afterGet func()
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  map[domain.SearchKey]*domain.DonorSearchRecord{},
		requests: map[domain.SearchKey]*domain.DonationRequest{},
		accepted: map[domain.SearchKey]int{},
	}
}

func copyRecord(r *domain.DonorSearchRecord) *domain.DonorSearchRecord {
	c := *r
	c.SetNotified(r.Notified())
	return &c
}

func (s *fakeStore) GetSearchRecord(_ context.Context, key domain.SearchKey) (*domain.DonorSearchRecord, error) {
	s.mu.Lock()
	if s.err != nil {
		s.mu.Unlock()
		return nil, s.err
	}
	var out *domain.DonorSearchRecord
	if r, ok := s.records[key]; ok {
		out = copyRecord(r)
	}
	hook := s.afterGet
	s.afterGet = nil
	s.mu.Unlock()

	if hook != nil {
		hook()
	}
	return out, nil
}

func (s *fakeStore) SaveSearchRecord(_ context.Context, rec *domain.DonorSearchRecord) error {
	_, err := s.save(rec, false)
	return err
}

func (s *fakeStore) ReopenSearchRecord(_ context.Context, rec *domain.DonorSearchRecord) (bool, error) {
	return s.save(rec, true)
}

func (s *fakeStore) save(rec *domain.DonorSearchRecord, reopen bool) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return false, s.err
	}
	s.saves++
	var reopened bool
	if stored, ok := s.records[rec.Key()]; ok {
		rec.SetNotified(stored.Notified().Merge(rec.Notified()))
		switch {
		case reopen && stored.Status == domain.SearchCompleted:
			rec.Status = domain.SearchPending
			reopened = true
		case reopen, stored.Status == domain.SearchCompleted:
			rec.Status = stored.Status
		}
	}
	s.records[rec.Key()] = copyRecord(rec)
	return reopened, nil
}

func (s *fakeStore) GetDonationRequest(_ context.Context, key domain.SearchKey) (*domain.DonationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	r, ok := s.requests[key]
	if !ok {
		return nil, nil
	}
	c := *r
	return &c, nil
}

func (s *fakeStore) CountAcceptedDonors(_ context.Context, key domain.SearchKey) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted[key], s.err
}

func (s *fakeStore) record(key domain.SearchKey) *domain.DonorSearchRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[key]; ok {
		return copyRecord(r)
	}
	return nil
}

func (s *fakeStore) setStatus(key domain.SearchKey, status domain.SearchStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[key].Status = status
}

// fakeDonors serves donors by exact cell.
type fakeDonors struct {
	cells map[string][]domain.DonorRef
	calls []string
	err   error
}

func (f *fakeDonors) DonorsFor(_ context.Context, prefix, _, _ string) ([]domain.DonorRef, error) {
	f.calls = append(f.calls, prefix)
	if f.err != nil {
		return nil, f.err
	}
	return f.cells[prefix], nil
}

func donorAt(id, geohash string) domain.DonorRef {
	return domain.DonorRef{DonorID: id, LocationID: "loc-" + id + "-" + geohash, Geohash: geohash}
}

type enqueued struct {
	body  []byte
	delay time.Duration
}

type extension struct {
	handle string
	d      time.Duration
}

type fakeQueue struct {
	jobs    []enqueued
	extends []extension
	err     error
}

func (q *fakeQueue) Enqueue(_ context.Context, body []byte, delay time.Duration) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.jobs = append(q.jobs, enqueued{body: append([]byte(nil), body...), delay: delay})
	return "job", nil
}

func (q *fakeQueue) ExtendVisibility(_ context.Context, handle string, d time.Duration) error {
	if q.err != nil {
		return q.err
	}
	q.extends = append(q.extends, extension{handle: handle, d: d})
	return nil
}

func (q *fakeQueue) pop() (enqueued, bool) {
	if len(q.jobs) == 0 {
		return enqueued{}, false
	}
	j := q.jobs[0]
	q.jobs = q.jobs[1:]
	return j, true
}

type fakeDispatcher struct {
	sent []domain.DonorNotification
	err  error
}

func (d *fakeDispatcher) Send(_ context.Context, n domain.DonorNotification) error {
	d.sent = append(d.sent, n)
	return d.err
}

func (d *fakeDispatcher) countByDonor() map[string]int {
	out := map[string]int{}
	for _, n := range d.sent {
		out[n.DonorID]++
	}
	return out
}

var errStoreDown = errors.New("store down")

// harness bundles an Orchestrator with its fakes and a controllable clock.
type harness struct {
	store *fakeStore
	donor *fakeDonors
	queue *fakeQueue
	disp  *fakeDispatcher
	orch  *Orchestrator
	now   time.Time
	key   domain.SearchKey
}

func newHarness(cfg config.SearchConfig, qty int, urgency domain.UrgencyLevel) *harness {
	h := &harness{
		store: newFakeStore(),
		donor: &fakeDonors{cells: map[string][]domain.DonorRef{}},
		queue: &fakeQueue{},
		disp:  &fakeDispatcher{},
		now:   testNow,
		key:   domain.SearchKey{SeekerID: "seeker-1", RequestID: "req-1", CreatedAt: testNow.Add(-time.Hour).Unix()},
	}
	h.orch = NewOrchestrator(h.store, h.donor, h.queue, h.disp, cfg)
	h.orch.Now = func() time.Time { return h.now }

	req := &domain.DonationRequest{
		SeekerID: h.key.SeekerID, RequestID: h.key.RequestID, RequestCreatedAt: h.key.CreatedAt,
		Status: domain.RequestPending, BloodQuantity: qty, RequestedBloodGroup: "A+",
		UrgencyLevel: urgency, DonationDateTime: testNow.Add(3 * 24 * time.Hour),
		City: "dhaka", Geohash: seekerGeohash, Location: "Dhaka Medical College",
		ContactNumber: "+8801000000000",
	}
	h.store.requests[h.key] = req

	rec := &domain.DonorSearchRecord{
		SeekerID: h.key.SeekerID, RequestID: h.key.RequestID, RequestCreatedAt: h.key.CreatedAt,
		Status: domain.SearchPending,
	}
	rec.ApplyRequest(req)
	rec.SetNotified(nil)
	h.store.records[h.key] = rec
	return h
}

func (h *harness) message() *domain.SearchRoundMessage {
	return &domain.SearchRoundMessage{
		SeekerID:                    h.key.SeekerID,
		RequestID:                   h.key.RequestID,
		CreatedAt:                   h.key.CreatedAt,
		RemainingGeohashesToProcess: []string{seekerCell},
	}
}

func mustEncode(m *domain.SearchRoundMessage) []byte {
	b, err := EncodeRoundMessage(m)
	if err != nil {
		panic(err)
	}
	return b
}

func (h *harness) lastEnqueued() *domain.SearchRoundMessage {
	if len(h.queue.jobs) == 0 {
		return nil
	}
	m, err := ParseRoundMessage(h.queue.jobs[len(h.queue.jobs)-1].body)
	if err != nil {
		panic(err)
	}
	return m
}

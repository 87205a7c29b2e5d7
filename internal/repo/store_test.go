package repo

import (
	"context"
	"testing"

	"github.com/tbourn/donor-search/internal/domain"
)

func TestStore_AbsentRowsAreNil(t *testing.T) {
	s := NewStore(newMigratedDB(t))
	key := domain.SearchKey{SeekerID: "s", RequestID: "r", CreatedAt: 1}

	rec, err := s.GetSearchRecord(context.Background(), key)
	if err != nil || rec != nil {
		t.Fatalf("GetSearchRecord = %v, %v; want nil, nil", rec, err)
	}
	req, err := s.GetDonationRequest(context.Background(), key)
	if err != nil || req != nil {
		t.Fatalf("GetDonationRequest = %v, %v; want nil, nil", req, err)
	}
	n, err := s.CountAcceptedDonors(context.Background(), key)
	if err != nil || n != 0 {
		t.Fatalf("CountAcceptedDonors = %d, %v", n, err)
	}
}

func TestStore_ClaimNotification(t *testing.T) {
	ctx := context.Background()
	s := NewStore(newMigratedDB(t))
	key := domain.SearchKey{SeekerID: "s", RequestID: "r", CreatedAt: 1}

	ok, err := s.ClaimNotification(ctx, key, "d1")
	if err != nil || !ok {
		t.Fatalf("first claim = %v, %v", ok, err)
	}
	ok, err = s.ClaimNotification(ctx, key, "d1")
	if err != nil || ok {
		t.Fatalf("second claim = %v, %v; want false, nil", ok, err)
	}
	if err := s.ReleaseNotification(ctx, key, "d1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if ok, _ := s.ClaimNotification(ctx, key, "d1"); !ok {
		t.Fatalf("claim after release should succeed")
	}
}

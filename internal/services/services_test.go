package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/donor-search/internal/domain"
	"github.com/tbourn/donor-search/internal/repo"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:services_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	if err := repo.AutoMigrate(db); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

// recordingEvents captures the events handed to the initiator.
type recordingEvents struct {
	events []domain.RequestEvent
	err    error
}

func (r *recordingEvents) HandleEvent(_ context.Context, ev domain.RequestEvent) error {
	r.events = append(r.events, ev)
	return r.err
}

func sampleRequest() *domain.DonationRequest {
	return &domain.DonationRequest{
		SeekerID:            "s1",
		RequestID:           "r1",
		RequestCreatedAt:    1700000000,
		Status:              domain.RequestPending,
		BloodQuantity:       2,
		RequestedBloodGroup: "O-",
		UrgencyLevel:        domain.Urgent,
		DonationDateTime:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		City:                "Dhaka",
		Geohash:             "WH0R35QR",
		Location:            "Dhaka Medical College",
	}
}

func seedRecord(t *testing.T, db *gorm.DB, seeker, request string, createdAt int64, ledger domain.Ledger) {
	t.Helper()
	rec := &domain.DonorSearchRecord{
		SeekerID:            seeker,
		RequestID:           request,
		RequestCreatedAt:    createdAt,
		Status:              domain.SearchPending,
		BloodQuantity:       1,
		RequestedBloodGroup: "A+",
		UrgencyLevel:        domain.Regular,
		DonationDateTime:    time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
		City:                "dhaka",
		Geohash:             "wh0r35qr",
	}
	rec.SetNotified(ledger)
	if err := repo.SaveSearchRecord(context.Background(), db, rec); err != nil {
		t.Fatalf("seed record: %v", err)
	}
}

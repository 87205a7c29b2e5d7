package repo

import (
	"context"
	"fmt"
	"testing"

	"github.com/tbourn/donor-search/internal/domain"
)

func TestQueryByGeohashPrefix_FiltersAndPaginates(t *testing.T) {
	ctx := context.Background()
	db := newMigratedDB(t)

	seed := []domain.DonorLocation{
		{LocationID: "l01", DonorID: "d1", City: "dhaka", BloodGroup: "A+", Geohash: "WH0R35QR"},
		{LocationID: "l02", DonorID: "d2", City: "dhaka", BloodGroup: "A+", Geohash: "wh0r35qx"},
		{LocationID: "l03", DonorID: "d3", City: "dhaka", BloodGroup: "A+", Geohash: "wh0r3w00"},
		{LocationID: "l04", DonorID: "d4", City: "dhaka", BloodGroup: "B+", Geohash: "wh0r35qr"},
		{LocationID: "l05", DonorID: "d5", City: "ctg", BloodGroup: "A+", Geohash: "wh0r35qr"},
		{LocationID: "l06", DonorID: "d6", City: "dhaka", BloodGroup: "A+", Geohash: "wh0x0000"},
	}
	for i := range seed {
		if err := UpsertDonorLocation(ctx, db, &seed[i]); err != nil {
			t.Fatalf("seed: %v", err)
		}
	}

	var ids []string
	cursor := ""
	pages := 0
	for {
		page, next, err := QueryByGeohashPrefix(ctx, db, "dhaka", "A+", "wh0r", cursor, 2)
		if err != nil {
			t.Fatalf("query: %v", err)
		}
		pages++
		for _, l := range page {
			ids = append(ids, l.LocationID)
		}
		if next == "" {
			break
		}
		cursor = next
	}
	if fmt.Sprint(ids) != "[l01 l02 l03]" {
		t.Fatalf("unexpected ids: %v", ids)
	}
	if pages != 2 {
		t.Fatalf("expected 2 pages, got %d", pages)
	}

	page, next, err := QueryByGeohashPrefix(ctx, db, "dhaka", "A+", "wh0r35", "", 10)
	if err != nil || next != "" || len(page) != 2 {
		t.Fatalf("exact-cell query: page=%v next=%q err=%v", page, next, err)
	}
}

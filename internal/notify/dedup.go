package notify

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/tbourn/donor-search/internal/domain"
)

// Sender delivers one notification.
type Sender interface {
	Send(ctx context.Context, n domain.DonorNotification) error
}

// ReceiptStore records which donors were notified for a request.
type ReceiptStore interface {
	// ClaimNotification reports false when donorID was already claimed.
	ClaimNotification(ctx context.Context, key domain.SearchKey, donorID string) (bool, error)
	ReleaseNotification(ctx context.Context, key domain.SearchKey, donorID string) error
}

// Deduplicator forwards a notification only when its receipt can be claimed.
// A failed delivery releases the receipt again.
type Deduplicator struct {
	Next     Sender
	Receipts ReceiptStore
}

// NewDeduplicator wraps next.
func NewDeduplicator(next Sender, receipts ReceiptStore) *Deduplicator {
	return &Deduplicator{Next: next, Receipts: receipts}
}

// Send implements Sender.
func (d *Deduplicator) Send(ctx context.Context, n domain.DonorNotification) error {
	key := domain.SearchKey{SeekerID: n.Payload.SeekerID, RequestID: n.Payload.RequestID, CreatedAt: n.Payload.CreatedAt}

	claimed, err := d.Receipts.ClaimNotification(ctx, key, n.DonorID)
	if err != nil {
		return err
	}
	if !claimed {
		published.WithLabelValues(resultDuplicate).Inc()
		log.Debug().Str("donor_id", n.DonorID).Str("request_id", key.RequestID).Msg("notification suppressed: already sent")
		return nil
	}

	if err := d.Next.Send(ctx, n); err != nil {
		if rerr := d.Receipts.ReleaseNotification(context.WithoutCancel(ctx), key, n.DonorID); rerr != nil {
			log.Error().Err(rerr).Str("donor_id", n.DonorID).Msg("release notification receipt")
		}
		return err
	}
	return nil
}

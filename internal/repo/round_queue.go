// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file implements the round queue: a table-backed
// message queue with visibility-timeout semantics.
//
// A received job stays leased (invisible) until its VisibleAt. Every receive
// issues a new receipt handle; Delete, ExtendVisibility, Release and
// DeadLetter only act on the holder of the current handle and return
// ErrNotFound for a stale one.
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/donor-search/internal/domain"
)

// RoundQueue is the queue of pending search rounds.
type RoundQueue struct {
	DB *gorm.DB

	// VisibilityTimeout is the lease granted by Receive.
	VisibilityTimeout time.Duration
	// MaxDelay caps the delay accepted by Enqueue (0 = uncapped).
	MaxDelay time.Duration
	// MaxVisibility caps ExtendVisibility and Release (0 = uncapped).
	MaxVisibility time.Duration

	now func() time.Time
}

// NewRoundQueue returns a queue over db.
func NewRoundQueue(db *gorm.DB, visibility, maxDelay, maxVisibility time.Duration) *RoundQueue {
	return &RoundQueue{
		DB:                db,
		VisibilityTimeout: visibility,
		MaxDelay:          maxDelay,
		MaxVisibility:     maxVisibility,
	}
}

func (q *RoundQueue) clock() time.Time {
	if q.now != nil {
		return q.now().UTC()
	}
	return time.Now().UTC()
}

// Enqueue adds a job that becomes visible after delay (capped at MaxDelay)
// and returns its id.
func (q *RoundQueue) Enqueue(ctx context.Context, body []byte, delay time.Duration) (string, error) {
	delay = capDur(delay, q.MaxDelay)
	job := &domain.RoundJob{
		ID:        uuid.NewString(),
		Body:      body,
		VisibleAt: q.clock().Add(delay),
	}
	if err := q.DB.WithContext(ctx).Create(job).Error; err != nil {
		return "", err
	}
	return job.ID, nil
}

// Receive leases up to max visible jobs, oldest first.
func (q *RoundQueue) Receive(ctx context.Context, max int) ([]domain.RoundJob, error) {
	if max < 1 {
		max = 1
	}
	now := q.clock()
	var out []domain.RoundJob
	err := q.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ready []domain.RoundJob
		if err := tx.Where("dead = ? AND visible_at <= ?", false, now).
			Order("visible_at asc").
			Limit(max).
			Find(&ready).Error; err != nil {
			return err
		}
		for _, j := range ready {
			handle := uuid.NewString()
			until := now.Add(q.VisibilityTimeout)
			res := tx.Model(&domain.RoundJob{}).
				Where("id = ? AND receive_count = ?", j.ID, j.ReceiveCount).
				Updates(map[string]any{
					"receipt_handle": handle,
					"visible_at":     until,
					"receive_count":  gorm.Expr("receive_count + 1"),
				})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				continue // leased by another receiver
			}
			j.ReceiptHandle = handle
			j.VisibleAt = until
			j.ReceiveCount++
			out = append(out, j)
		}
		return nil
	})
	return out, err
}

// ExtendVisibility hides the job held by handle for d more (capped at
// MaxVisibility), measured from now. A deferred job has not failed, so its
// receive count starts over.
func (q *RoundQueue) ExtendVisibility(ctx context.Context, handle string, d time.Duration) error {
	return q.update(ctx, handle, map[string]any{
		"visible_at":    q.clock().Add(capDur(d, q.MaxVisibility)),
		"receive_count": 0,
	})
}

// Release returns the job to the queue after delay, recording reason.
func (q *RoundQueue) Release(ctx context.Context, handle string, delay time.Duration, reason string) error {
	return q.update(ctx, handle, map[string]any{
		"visible_at": q.clock().Add(capDur(delay, q.MaxVisibility)),
		"last_error": reason,
	})
}

// DeadLetter parks the job permanently, recording reason.
func (q *RoundQueue) DeadLetter(ctx context.Context, handle string, reason string) error {
	return q.update(ctx, handle, map[string]any{
		"dead":       true,
		"last_error": reason,
	})
}

// Delete acknowledges the job held by handle.
func (q *RoundQueue) Delete(ctx context.Context, handle string) error {
	res := q.DB.WithContext(ctx).
		Where("receipt_handle = ? AND dead = ?", handle, false).
		Delete(&domain.RoundJob{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (q *RoundQueue) update(ctx context.Context, handle string, fields map[string]any) error {
	if handle == "" {
		return ErrNotFound
	}
	res := q.DB.WithContext(ctx).
		Model(&domain.RoundJob{}).
		Where("receipt_handle = ? AND dead = ?", handle, false).
		Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// QueueStats is a point-in-time view of the round queue.
type QueueStats struct {
	Ready    int64 `json:"ready"`     // visible now
	InFlight int64 `json:"in_flight"` // leased or delayed
	Dead     int64 `json:"dead"`
}

// Stats counts jobs by state. It runs three lightweight count queries.
func (q *RoundQueue) Stats(ctx context.Context) (QueueStats, error) {
	var s QueueStats
	now := q.clock()
	base := func() *gorm.DB { return q.DB.WithContext(ctx).Model(&domain.RoundJob{}) }

	if err := base().Where("dead = ? AND visible_at <= ?", false, now).Count(&s.Ready).Error; err != nil {
		return s, err
	}
	if err := base().Where("dead = ? AND visible_at > ?", false, now).Count(&s.InFlight).Error; err != nil {
		return s, err
	}
	if err := base().Where("dead = ?", true).Count(&s.Dead).Error; err != nil {
		return s, err
	}
	return s, nil
}

func capDur(d, max time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	if max > 0 && d > max {
		return max
	}
	return d
}

package domain

import "time"

// RoundJob is one message of the round queue. A job is invisible to
// receivers until VisibleAt; each receive issues a fresh ReceiptHandle that
// must be presented to delete the job or change its visibility.
type RoundJob struct {
	ID            string    `gorm:"type:char(36);primaryKey"`
	Body          []byte    `gorm:"type:blob;not null"`
	VisibleAt     time.Time `gorm:"not null;index:idx_round_jobs_ready,priority:2"`
	Dead          bool      `gorm:"not null;default:false;index:idx_round_jobs_ready,priority:1"`
	ReceiptHandle string    `gorm:"type:char(36);index"`
	ReceiveCount  int       `gorm:"not null;default:0"`
	LastError     string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime"`
}

// TableName returns the database table name for RoundJob.
func (RoundJob) TableName() string { return "round_jobs" }

// NotificationReceipt marks that a donor was sent a notification for a
// request, keyed by (seeker_id, request_id, donor_id). It lets a redelivered
// round skip donors that were notified before the ledger was persisted.
type NotificationReceipt struct {
	ID        string    `gorm:"type:TEXT NOT NULL;primaryKey"`
	SeekerID  string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_receipt_request_donor,priority:1"`
	RequestID string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_receipt_request_donor,priority:2"`
	DonorID   string    `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_receipt_request_donor,priority:3"`
	CreatedAt time.Time `gorm:"type:DATETIME NOT NULL;autoCreateTime"`
}

// TableName implements the GORM tabler interface.
func (NotificationReceipt) TableName() string { return "notification_receipts" }

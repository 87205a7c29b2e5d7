// Package domain defines the persistence models and value types of the
// donor-search service. GORM-mapped types back the SQLite tables used by the
// repository layer; plain value types (round messages, request events,
// notifications) travel over the queue and Kafka.
package domain

import (
	"time"

	"gorm.io/datatypes"
)

// SearchStatus is the lifecycle state of a DonorSearchRecord.
type SearchStatus string

const (
	SearchPending   SearchStatus = "PENDING"
	SearchCompleted SearchStatus = "COMPLETED"
)

// UrgencyLevel drives pacing and the size of the notification buffer.
type UrgencyLevel string

const (
	Urgent  UrgencyLevel = "URGENT"
	Regular UrgencyLevel = "REGULAR"
)

// Valid reports whether u is a known urgency level.
func (u UrgencyLevel) Valid() bool { return u == Urgent || u == Regular }

// RequestStatus is the status of a donation request as owned by the request store.
type RequestStatus string

const (
	RequestPending   RequestStatus = "PENDING"
	RequestCompleted RequestStatus = "COMPLETED"
	RequestCancelled RequestStatus = "CANCELLED"
	RequestExpired   RequestStatus = "EXPIRED"
)

// Active reports whether donors should still be searched for the request.
func (s RequestStatus) Active() bool { return s == RequestPending }

// SearchKey identifies a donation request and its search record.
type SearchKey struct {
	SeekerID  string
	RequestID string
	CreatedAt int64 // request creation time, unix seconds
}

// EligibleDonorInfo is stored per donor id in the notified-donor ledger.
type EligibleDonorInfo struct {
	LocationID string  `json:"locationId"`
	Distance   float64 `json:"distance"`
}

// Ledger maps donor id to the location/distance it was notified for.
type Ledger map[string]EligibleDonorInfo

// Merge adds entries of other that are missing from l and returns l.
// Existing entries are never replaced, so the ledger only grows.
func (l Ledger) Merge(other Ledger) Ledger {
	if l == nil {
		l = make(Ledger, len(other))
	}
	for id, info := range other {
		if _, ok := l[id]; !ok {
			l[id] = info
		}
	}
	return l
}

// Clone returns a non-nil copy of l.
func (l Ledger) Clone() Ledger {
	out := make(Ledger, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// DonorSearchRecord is the persistent state of one request's donor search.
// All intermediate ring progress lives in queued round messages; the record
// carries status, the request details used to render notifications, and the
// de-duplication ledger.
type DonorSearchRecord struct {
	SeekerID         string `gorm:"type:varchar(64);primaryKey"`
	RequestID        string `gorm:"type:varchar(64);primaryKey"`
	RequestCreatedAt int64  `gorm:"primaryKey;autoIncrement:false"`

	Status              SearchStatus `gorm:"type:varchar(16);not null;index"`
	BloodQuantity       int          `gorm:"not null"`
	RequestedBloodGroup string       `gorm:"type:varchar(8);not null"`
	UrgencyLevel        UrgencyLevel `gorm:"type:varchar(16);not null"`
	DonationDateTime    time.Time    `gorm:"not null"`
	City                string       `gorm:"type:varchar(64);not null"`
	Geohash             string       `gorm:"type:varchar(12);not null"`
	Location            string       `gorm:"type:varchar(255)"`
	ContactNumber       string       `gorm:"type:varchar(32)"`
	PatientName         string       `gorm:"type:varchar(128)"`
	ShortDescription    string       `gorm:"type:text"`

	NotifiedEligibleDonors datatypes.JSONType[Ledger] `gorm:"not null"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for DonorSearchRecord.
func (DonorSearchRecord) TableName() string { return "donor_search_records" }

// Key returns the identity of the record.
func (r *DonorSearchRecord) Key() SearchKey {
	return SearchKey{SeekerID: r.SeekerID, RequestID: r.RequestID, CreatedAt: r.RequestCreatedAt}
}

// Notified returns a mutable copy of the ledger (never nil).
func (r *DonorSearchRecord) Notified() Ledger {
	return r.NotifiedEligibleDonors.Data().Clone()
}

// SetNotified replaces the ledger column value.
func (r *DonorSearchRecord) SetNotified(l Ledger) {
	if l == nil {
		l = Ledger{}
	}
	r.NotifiedEligibleDonors = datatypes.NewJSONType(l)
}

// ApplyRequest copies the descriptive fields of a request onto the record.
func (r *DonorSearchRecord) ApplyRequest(req *DonationRequest) {
	r.BloodQuantity = req.BloodQuantity
	r.RequestedBloodGroup = req.RequestedBloodGroup
	r.UrgencyLevel = req.UrgencyLevel
	r.DonationDateTime = req.DonationDateTime
	r.City = req.City
	r.Geohash = req.Geohash
	r.Location = req.Location
	r.ContactNumber = req.ContactNumber
	r.PatientName = req.PatientName
	r.ShortDescription = req.ShortDescription
}

// DonationRequest is a seeker's blood request as kept by the request store.
type DonationRequest struct {
	SeekerID         string `gorm:"type:varchar(64);primaryKey"`
	RequestID        string `gorm:"type:varchar(64);primaryKey"`
	RequestCreatedAt int64  `gorm:"primaryKey;autoIncrement:false"`

	Status              RequestStatus `gorm:"type:varchar(16);not null;index"`
	BloodQuantity       int           `gorm:"not null"`
	RequestedBloodGroup string        `gorm:"type:varchar(8);not null"`
	UrgencyLevel        UrgencyLevel  `gorm:"type:varchar(16);not null"`
	DonationDateTime    time.Time     `gorm:"not null"`
	City                string        `gorm:"type:varchar(64);not null"`
	Geohash             string        `gorm:"type:varchar(12);not null"`
	Location            string        `gorm:"type:varchar(255)"`
	ContactNumber       string        `gorm:"type:varchar(32)"`
	PatientName         string        `gorm:"type:varchar(128)"`
	ShortDescription    string        `gorm:"type:text"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName returns the database table name for DonationRequest.
func (DonationRequest) TableName() string { return "donation_requests" }

// Key returns the identity of the request.
func (r *DonationRequest) Key() SearchKey {
	return SearchKey{SeekerID: r.SeekerID, RequestID: r.RequestID, CreatedAt: r.RequestCreatedAt}
}

// AcceptedDonation records a donor who accepted a request.
// A donor can accept a given request only once.
type AcceptedDonation struct {
	ID        string    `gorm:"type:char(36);primaryKey"`
	SeekerID  string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_accept_request_donor,priority:1"`
	RequestID string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_accept_request_donor,priority:2"`
	DonorID   string    `gorm:"type:varchar(64);not null;uniqueIndex:ux_accept_request_donor,priority:3"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName returns the database table name for AcceptedDonation.
func (AcceptedDonation) TableName() string { return "accepted_donations" }

// DonorLocation is one registered location of a donor. Donors may have
// several (home, work), each in its own geohash cell.
type DonorLocation struct {
	LocationID string `gorm:"type:varchar(64);primaryKey"`
	DonorID    string `gorm:"type:varchar(64);not null;index"`
	City       string `gorm:"type:varchar(64);not null;index:idx_donor_loc_lookup,priority:1"`
	BloodGroup string `gorm:"type:varchar(8);not null;index:idx_donor_loc_lookup,priority:2"`
	Geohash    string `gorm:"type:varchar(12);not null;index:idx_donor_loc_lookup,priority:3"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName returns the database table name for DonorLocation.
func (DonorLocation) TableName() string { return "donor_locations" }

// DonorRef is the cached projection of a DonorLocation. Geohash is filled
// in when refs are handed out; inside a cache entry it is the group key.
type DonorRef struct {
	DonorID    string `json:"donorId"`
	LocationID string `json:"locationId"`
	Geohash    string `json:"geohash,omitempty"`
}

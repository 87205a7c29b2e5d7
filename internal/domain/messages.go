package domain

import "time"

// SearchRoundMessage is the payload of one queued search round.
type SearchRoundMessage struct {
	SeekerID  string `json:"seekerId"`
	RequestID string `json:"requestPostId"`
	CreatedAt int64  `json:"createdAt"`

	CurrentNeighborSearchLevel  int      `json:"currentNeighborSearchLevel"`
	RemainingGeohashesToProcess []string `json:"remainingGeohashesToProcess"`
	NotifiedEligibleDonors      Ledger   `json:"notifiedEligibleDonors,omitempty"`
	PotentialDonorsLeftToNotify *int     `json:"potentialDonorsLeftToNotify,omitempty"`

	RetryCount            int    `json:"retryCount"`
	ReinstatedRetryCount  int    `json:"reinstatedRetryCount"`
	TargetedExecutionTime *int64 `json:"targetedExecutionTime,omitempty"`
}

// Key returns the request identity carried by the message.
func (m *SearchRoundMessage) Key() SearchKey {
	return SearchKey{SeekerID: m.SeekerID, RequestID: m.RequestID, CreatedAt: m.CreatedAt}
}

// WakeTime returns the targeted execution time, if any.
func (m *SearchRoundMessage) WakeTime() (time.Time, bool) {
	if m.TargetedExecutionTime == nil || *m.TargetedExecutionTime <= 0 {
		return time.Time{}, false
	}
	return time.Unix(*m.TargetedExecutionTime, 0), true
}

// EventKind is the change type of a donation-request event.
type EventKind string

const (
	EventInsert EventKind = "INSERT"
	EventModify EventKind = "MODIFY"
)

// RequestEvent announces that a donation request was created or updated.
// PreviousStatus is the status before a MODIFY, when the producer knows it.
type RequestEvent struct {
	SeekerID       string        `json:"seekerId"`
	RequestID      string        `json:"requestPostId"`
	CreatedAt      int64         `json:"createdAt"`
	Geohash        string        `json:"geohash"`
	Status         RequestStatus `json:"status"`
	PreviousStatus RequestStatus `json:"previousStatus,omitempty"`
	Kind           EventKind     `json:"eventName"`
}

// Key returns the request identity carried by the event.
func (e *RequestEvent) Key() SearchKey {
	return SearchKey{SeekerID: e.SeekerID, RequestID: e.RequestID, CreatedAt: e.CreatedAt}
}

// DonorNotification is one push message for a donor about a request.
type DonorNotification struct {
	ID      string              `json:"id"`
	DonorID string              `json:"userId"`
	Title   string              `json:"title"`
	Body    string              `json:"body"`
	Type    string              `json:"type"`
	Payload NotificationPayload `json:"payload"`
}

// NotificationPayload is the structured part of a DonorNotification.
type NotificationPayload struct {
	SeekerID            string       `json:"seekerId"`
	RequestID           string       `json:"requestPostId"`
	CreatedAt           int64        `json:"createdAt"`
	LocationID          string       `json:"locationId"`
	Distance            float64      `json:"distance"`
	BloodQuantity       int          `json:"bloodQuantity"`
	RequestedBloodGroup string       `json:"requestedBloodGroup"`
	UrgencyLevel        UrgencyLevel `json:"urgencyLevel"`
	DonationDateTime    time.Time    `json:"donationDateTime"`
	Location            string       `json:"location"`
	ContactNumber       string       `json:"contactNumber"`
	PatientName         string       `json:"patientName,omitempty"`
	ShortDescription    string       `json:"shortDescription,omitempty"`
}

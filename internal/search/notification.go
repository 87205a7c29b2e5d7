package search

import (
	"strings"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/tbourn/donor-search/internal/domain"
)

// NotificationType tags donor notifications about a blood request.
const NotificationType = "BLOOD_REQ_POST"

var (
	titleCaser = cases.Title(language.English)
	printer    = message.NewPrinter(language.English)
)

// renderNotification builds the message sent to donorID for rec.
func renderNotification(rec *domain.DonorSearchRecord, donorID string, info domain.EligibleDonorInfo) domain.DonorNotification {
	urgency := titleCaser.String(strings.ToLower(string(rec.UrgencyLevel)))

	title := printer.Sprintf("%s: %s blood needed", urgency, rec.RequestedBloodGroup)
	if rec.UrgencyLevel != domain.Urgent {
		title = printer.Sprintf("%s blood needed", rec.RequestedBloodGroup)
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf("%d bag(s) of %s blood needed", rec.BloodQuantity, rec.RequestedBloodGroup))
	if rec.Location != "" {
		b.WriteString(printer.Sprintf(" at %s", rec.Location))
	}
	if !rec.DonationDateTime.IsZero() {
		b.WriteString(printer.Sprintf(" on %s", rec.DonationDateTime.UTC().Format("Mon 2 Jan 15:04 MST")))
	}
	b.WriteString(printer.Sprintf(". You are about %.2f km away.", info.Distance))
	if rec.ShortDescription != "" {
		b.WriteString(" ")
		b.WriteString(rec.ShortDescription)
	}

	return domain.DonorNotification{
		ID:      uuid.NewString(),
		DonorID: donorID,
		Title:   title,
		Body:    b.String(),
		Type:    NotificationType,
		Payload: domain.NotificationPayload{
			SeekerID:            rec.SeekerID,
			RequestID:           rec.RequestID,
			CreatedAt:           rec.RequestCreatedAt,
			LocationID:          info.LocationID,
			Distance:            info.Distance,
			BloodQuantity:       rec.BloodQuantity,
			RequestedBloodGroup: rec.RequestedBloodGroup,
			UrgencyLevel:        rec.UrgencyLevel,
			DonationDateTime:    rec.DonationDateTime,
			Location:            rec.Location,
			ContactNumber:       rec.ContactNumber,
			PatientName:         rec.PatientName,
			ShortDescription:    rec.ShortDescription,
		},
	}
}

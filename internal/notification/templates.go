package notification

import (
	"fmt"
	"time"
)

// Templates renders the lifecycle emails. All links point at the public site;
// the service itself never serves pages.
type Templates struct {
	frontendURL string
}

// NewTemplates creates a Templates renderer rooted at the site base URL.
func NewTemplates(frontendURL string) *Templates {
	return &Templates{frontendURL: frontendURL}
}

// VerificationEmail builds the verify-your-booking message.
func (t *Templates) VerificationEmail(to, fullName, token string) Email {
	link := fmt.Sprintf("%s/verify-booking?token=%s", t.frontendURL, token)
	return Email{
		To:      to,
		Subject: "Verify your booking – MindSettler",
		Text: fmt.Sprintf(
			"Hello %s,\n\nPlease verify your booking by visiting the link below:\n%s\n\nIf you did not request this booking, please ignore this email.\n\n– MindSettler Team\n",
			fullName, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>Please verify your booking by clicking the link below:</p><p><a href="%s">Verify Booking</a></p><p>If you did not request this booking, please ignore this email.</p><br /><p>– MindSettler Team</p>`,
			fullName, link,
		),
	}
}

// CancellationEmail builds the confirm-your-cancellation message.
func (t *Templates) CancellationEmail(to, fullName, token string, slotStart *time.Time) Email {
	link := fmt.Sprintf("%s/verify-cancellation?token=%s", t.frontendURL, token)
	slot := ""
	if slotStart != nil {
		slot = fmt.Sprintf("\nYour session is scheduled for %s.\n", slotStart.Format("Mon, 02 Jan 2006 15:04 MST"))
	}
	return Email{
		To:      to,
		Subject: "Confirm your cancellation – MindSettler",
		Text: fmt.Sprintf(
			"Hello %s,\n%s\nTo confirm cancelling your session, visit the link below:\n%s\n\nIf you did not request this, you can safely ignore this email; your booking stays unchanged.\n\n– MindSettler Team\n",
			fullName, slot, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>To confirm cancelling your session, click the link below:</p><p><a href="%s">Confirm Cancellation</a></p><p>If you did not request this, you can safely ignore this email; your booking stays unchanged.</p><br /><p>– MindSettler Team</p>`,
			fullName, link,
		),
	}
}

// StatusEmail builds a status-change notice pointing at the status page.
func (t *Templates) StatusEmail(to, fullName, ackID, status, reason string, slotStart, slotEnd *time.Time) Email {
	link := fmt.Sprintf("%s/booking-status?acknowledgement_id=%s", t.frontendURL, ackID)

	var detail string
	switch status {
	case "APPROVED":
		if slotStart != nil && slotEnd != nil {
			detail = fmt.Sprintf("Your session was approved for %s – %s.",
				slotStart.Format("Mon, 02 Jan 2006 15:04 MST"),
				slotEnd.Format("15:04 MST"))
		} else {
			detail = "Your session was approved."
		}
	case "REJECTED":
		detail = "Your booking request could not be accommodated."
		if reason != "" {
			detail += " Reason: " + reason
		}
	case "CONFIRMED":
		detail = "Your payment was received and your session is confirmed."
	case "CANCELLED":
		detail = "Your booking was cancelled."
		if reason != "" {
			detail += " Reason: " + reason
		}
	case "COMPLETED":
		detail = "Thank you for attending your session."
	default:
		detail = fmt.Sprintf("Your booking status is now %s.", status)
	}

	return Email{
		To:      to,
		Subject: fmt.Sprintf("Booking %s update – MindSettler", ackID),
		Text: fmt.Sprintf(
			"Hello %s,\n\n%s\n\nCheck your booking any time:\n%s\n\n– MindSettler Team\n",
			fullName, detail, link,
		),
		HTML: fmt.Sprintf(
			`<p>Hello %s,</p><p>%s</p><p><a href="%s">View booking status</a></p><br /><p>– MindSettler Team</p>`,
			fullName, detail, link,
		),
	}
}

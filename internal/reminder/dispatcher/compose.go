package dispatcher

import (
	"fmt"
	"html"
	"time"

	certmodels "certtrack/internal/certification/models"
)

// composeReminderEmail renders the expiry reminder for one offset window. The
// status comes from classifying the certification at dispatch time, so the
// wording reflects where the certification stands today rather than the last
// swept value.
func composeReminderEmail(personName, certTypeKey string, status certmodels.CertStatus, expiry time.Time, offsetDays int) (subject, body string) {
	expiryText := expiry.UTC().Format("January 2, 2006")

	var when string
	switch offsetDays {
	case 0:
		when = "today"
	case 1:
		when = "tomorrow"
	default:
		when = fmt.Sprintf("in %d days", offsetDays)
	}

	subject = fmt.Sprintf("Your %s certification expires %s", certTypeKey, when)

	var standing string
	switch status {
	case certmodels.CertStatusExpiring:
		standing = fmt.Sprintf("is in its renewal window and expires %s, on %s", when, expiryText)
	case certmodels.CertStatusExpired:
		standing = fmt.Sprintf("expired on %s", expiryText)
	default:
		standing = fmt.Sprintf("is still valid, but expires %s, on %s", when, expiryText)
	}

	body = fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your <strong>%s</strong> certification %s.</p>
		<p>Please renew it and upload your updated documentation before the
		expiry date to stay in compliance.</p>
		<p>If you have already renewed, you can ignore this reminder.</p>`,
		html.EscapeString(personName),
		html.EscapeString(certTypeKey),
		standing,
	)
	return subject, body
}

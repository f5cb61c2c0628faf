package service

import (
	"fmt"
	"html"
	"time"
)

// composeReuploadEmail renders the message sent when an admin requests a fresh
// evidence upload.
func composeReuploadEmail(personName, certTypeKey, uploadURL string, expiresAt time.Time) (subject, body string) {
	subject = fmt.Sprintf("Action needed: upload your %s certification", certTypeKey)
	body = fmt.Sprintf(`
		<p>Hi %s,</p>
		<p>Your district needs an updated document for your <strong>%s</strong> certification.</p>
		<p><a href="%s">Upload your document</a></p>
		<p>This link can be used once and expires on %s.</p>
		<p>If you were not expecting this email, you can ignore it.</p>`,
		html.EscapeString(personName),
		html.EscapeString(certTypeKey),
		uploadURL,
		expiresAt.UTC().Format("Jan 2, 2006 15:04 MST"),
	)
	return subject, body
}

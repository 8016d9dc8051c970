package core

import "log"

// Mailer dispatches the password reset notification. Delivery mechanics are
// out of scope here; the interface exists so the forgot-password path stays
// symmetric and testable.
type Mailer interface {
	SendPasswordReset(email, link string) error
}

// LogMailer writes the reset link to the application log instead of sending
// mail. Useful for development and as the default when no provider is wired.
type LogMailer struct{}

func (LogMailer) SendPasswordReset(email, link string) error {
	log.Printf("password reset requested for %s: %s", email, link)
	return nil
}

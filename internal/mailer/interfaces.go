package mailer

// Service delivers transactional mail. Delivery is best-effort: callers log
// failures and carry on, they never fail a request because mail bounced.
type Service interface {
	SendPasswordResetEmail(toEmail, toName, resetURL, code string) error
}

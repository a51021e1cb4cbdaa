package mailer

import (
	"fmt"

	"github.com/vnlease/vnlease-api/pkg/logger"
)

// DevMailer prints mail to stdout instead of sending it.
type DevMailer struct{}

func NewDevMailer() *DevMailer {
	return &DevMailer{}
}

func (d *DevMailer) SendPasswordResetEmail(toEmail, toName, resetURL, code string) error {
	logger.Info("[DEV MAIL] Password Reset Email",
		"to", toEmail,
		"name", toName,
		"reset_url", resetURL,
		"code", code,
	)

	fmt.Printf("\n"+
		"=================================================================\n"+
		"PASSWORD RESET EMAIL (DEV MODE)\n"+
		"=================================================================\n"+
		"To: %s (%s)\n"+
		"Subject: Reset your password\n"+
		"\n"+
		"Reset URL: %s\n"+
		"Code: %s\n"+
		"=================================================================\n\n",
		toEmail, toName, resetURL, code)

	return nil
}

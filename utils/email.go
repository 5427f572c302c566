package utils

import (
	"fmt"

	"gopkg.in/gomail.v2"
)

// Mailer sends transactional email over SMTP.
type Mailer struct {
	sender string
	dialer *gomail.Dialer
}

func NewMailer(host string, port int, user, pass, sender string) *Mailer {
	return &Mailer{
		sender: sender,
		dialer: gomail.NewDialer(host, port, user, pass),
	}
}

// Send delivers a plain-text message with an optional HTML alternative.
func (m *Mailer) Send(to, subject, text, html string) error {
	if m.dialer.Host == "" {
		return fmt.Errorf("smtp host not configured")
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.sender)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", text)
	if html != "" {
		msg.AddAlternative("text/html", html)
	}

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send email to %s: %w", to, err)
	}
	return nil
}

// SignInEmail renders the email carrying a sign-in code and its magic link.
func SignInEmail(code, link string) (subject, text string) {
	return "Your Refer-ify sign-in code",
		fmt.Sprintf("Your sign-in code is: %s\n\nOr open this link to sign in:\n%s\n\nThe code expires in 10 minutes.", code, link)
}

// ResetEmail renders the password reset email.
func ResetEmail(code string) (subject, text string) {
	return "Reset your Refer-ify password",
		fmt.Sprintf("Your password reset code is: %s\n\nThe code expires in 10 minutes.", code)
}

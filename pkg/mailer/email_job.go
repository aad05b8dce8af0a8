package mailer

import (
	"net/url"
	"strings"
	"time"

	mailtpl "github.com/oksasatya/go-auth-facade/pkg/mailer/templates"
)

// EmailJob is the JSON payload put on the RabbitMQ queue for sending email.
// Either Template (+Data) or Subject/Text/HTML is set.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"`
	Data     map[string]any `json:"data,omitempty"`
}

// Links are the brand and link settings every templated email carries.
type Links struct {
	AppName     string
	CompanyName string
	SupportURL  string
	VerifyURL   string
	ResetURL    string
}

// NewVerifyEmailJob builds the email-verification message for token.
func NewVerifyEmailJob(l Links, to, name, token string, ttl time.Duration) EmailJob {
	d := l.base(mailtpl.VerifyEmail, to, name, ttl)
	d.ActionURL = withToken(l.VerifyURL, token)
	return EmailJob{To: to, Template: mailtpl.VerifyEmail, Data: mailtpl.ToMap(d)}
}

// NewPasswordResetJob builds the password-reset message for token.
func NewPasswordResetJob(l Links, to, name, token string, ttl time.Duration) EmailJob {
	d := l.base(mailtpl.ForgotPassword, to, name, ttl)
	d.ActionURL = withToken(l.ResetURL, token)
	return EmailJob{To: to, Template: mailtpl.ForgotPassword, Data: mailtpl.ToMap(d)}
}

func (l Links) base(typ, to, name string, ttl time.Duration) mailtpl.EmailData {
	if name == "" {
		name = to
	}
	return mailtpl.EmailData{
		Type:          typ,
		Name:          name,
		Email:         to,
		AppName:       l.AppName,
		CompanyName:   l.CompanyName,
		SupportURL:    l.SupportURL,
		ExpiresAtText: time.Now().Add(ttl).UTC().Format("02 January 2006, 15:04 MST"),
	}
}

func withToken(base, token string) string {
	sep := "?"
	if strings.Contains(base, "?") {
		sep = "&"
	}
	return base + sep + "token=" + url.QueryEscape(token)
}

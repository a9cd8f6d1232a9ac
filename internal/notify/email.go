package notify

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/model"
)

// EmailConfig holds SMTP settings for the email channel.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// EmailNotifier mails the lead's resolved agent address over SMTP.
type EmailNotifier struct {
	cfg  EmailConfig
	tmpl Templates

	// sendMail allows test injection; defaults to smtp.SendMail.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates an email notifier.
func NewEmail(cfg EmailConfig, tmpl Templates) *EmailNotifier {
	return &EmailNotifier{
		cfg:      cfg,
		tmpl:     tmpl,
		sendMail: smtp.SendMail,
	}
}

func (n *EmailNotifier) Notify(ctx context.Context, lead model.Lead) error {
	if lead.Contact.Email == "" {
		return eris.New("notify: lead has no email for email channel")
	}
	if err := ctx.Err(); err != nil {
		return eris.Wrap(err, "notify: email")
	}

	subject, body, err := n.tmpl.RenderEmail(lead)
	if err != nil {
		return err
	}

	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n\r\n%s",
		n.cfg.From, lead.Contact.Email, subject, body)

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	if err := n.sendMail(addr, auth, n.cfg.From, []string{lead.Contact.Email}, []byte(msg)); err != nil {
		return eris.Wrap(err, "notify: send email")
	}
	return nil
}

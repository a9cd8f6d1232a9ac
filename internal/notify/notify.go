// Package notify delivers outreach messages to the agents behind
// qualified leads.
package notify

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/shortsale-cli/internal/model"
	"github.com/sells-group/shortsale-cli/pkg/smsgateway"
)

// Notifier sends one outbound message per qualified lead. A failure
// affects only that lead; the pipeline keeps going.
type Notifier interface {
	Notify(ctx context.Context, lead model.Lead) error
}

// SMSNotifier texts the lead's resolved agent phone.
type SMSNotifier struct {
	client smsgateway.Client
	tmpl   Templates
}

// NewSMS creates an SMS notifier.
func NewSMS(client smsgateway.Client, tmpl Templates) *SMSNotifier {
	return &SMSNotifier{client: client, tmpl: tmpl}
}

func (n *SMSNotifier) Notify(ctx context.Context, lead model.Lead) error {
	if lead.Contact.Phone == "" {
		return eris.New("notify: lead has no phone for sms channel")
	}

	text, err := n.tmpl.RenderSMS(lead)
	if err != nil {
		return err
	}

	if err := n.client.Send(ctx, lead.Contact.Phone, text); err != nil {
		return eris.Wrap(err, "notify: send sms")
	}
	return nil
}

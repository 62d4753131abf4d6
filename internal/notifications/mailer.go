// Package notifications sends owner-facing email and reacts to rental events.
package notifications

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/pixiedvc/pixiedvc-backend/internal/matching"
	"github.com/pixiedvc/pixiedvc-backend/pkg/config"
	pkgerrors "github.com/pixiedvc/pixiedvc-backend/pkg/errors"
)

type sender interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// Mailer delivers owner email through SendGrid.
type Mailer struct {
	client   sender
	from     string
	fromName string
}

func NewMailer(cfg config.SendgridConfig) (*Mailer, error) {
	if !cfg.Enabled() {
		return nil, fmt.Errorf("sendgrid api key required")
	}
	return newMailer(sendgrid.NewSendClient(cfg.APIKey), cfg), nil
}

func newMailer(client sender, cfg config.SendgridConfig) *Mailer {
	return &Mailer{client: client, from: cfg.DefaultFrom, fromName: cfg.FromName}
}

// SendOwnerMatchEmail asks an owner to accept or decline a new match.
func (m *Mailer) SendOwnerMatchEmail(ctx context.Context, msg matching.OwnerMatchEmail) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	subject := fmt.Sprintf("New PixieDVC rental request at %s", msg.ResortName)
	stay := fmt.Sprintf("%s to %s", formatDay(msg.CheckIn), formatDay(msg.CheckOut))

	text := fmt.Sprintf(`Hi %s,

A guest would like to rent %d points at %s, %s.
Lead guest: %s (%s)

Accept: %s
Decline: %s

This offer expires in one hour.
`, greeting(msg.OwnerName), msg.TotalPoints, msg.ResortName, stay, msg.LeadGuestName, msg.LeadGuestEmail, msg.AcceptURL, msg.DeclineURL)

	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>A guest would like to rent <strong>%d points</strong> at <strong>%s</strong>, %s.</p>
<p>Lead guest: %s (%s)</p>
<p><a href="%s">Accept</a> &middot; <a href="%s">Decline</a></p>
<p>This offer expires in one hour.</p>`,
		html.EscapeString(greeting(msg.OwnerName)), msg.TotalPoints, html.EscapeString(msg.ResortName),
		html.EscapeString(stay), html.EscapeString(msg.LeadGuestName), html.EscapeString(msg.LeadGuestEmail),
		html.EscapeString(msg.AcceptURL), html.EscapeString(msg.DeclineURL))

	return m.send(ctx, msg.To, msg.OwnerName, subject, text, body)
}

// RentalEmail tells an owner to book the DVC reservation for an accepted match.
type RentalEmail struct {
	To                string
	OwnerName         string
	ResortName        string
	CheckIn           time.Time
	CheckOut          time.Time
	Points            int
	RentalAmountCents int64
}

func (m *Mailer) SendOwnerRentalEmail(ctx context.Context, msg RentalEmail) error {
	if strings.TrimSpace(msg.To) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "recipient required")
	}
	subject := fmt.Sprintf("Please book your %s reservation", msg.ResortName)
	stay := fmt.Sprintf("%s to %s", formatDay(msg.CheckIn), formatDay(msg.CheckOut))
	amount := formatDollars(msg.RentalAmountCents)

	text := fmt.Sprintf(`Hi %s,

Thanks for accepting. Please book %d points at %s for %s.
Your payout for this rental is %s.
`, greeting(msg.OwnerName), msg.Points, msg.ResortName, stay, amount)

	body := fmt.Sprintf(`<p>Hi %s,</p>
<p>Thanks for accepting. Please book <strong>%d points</strong> at <strong>%s</strong> for %s.</p>
<p>Your payout for this rental is <strong>%s</strong>.</p>`,
		html.EscapeString(greeting(msg.OwnerName)), msg.Points, html.EscapeString(msg.ResortName),
		html.EscapeString(stay), amount)

	return m.send(ctx, msg.To, msg.OwnerName, subject, text, body)
}

func (m *Mailer) send(ctx context.Context, to, toName, subject, text, body string) error {
	message := mail.NewSingleEmail(mail.NewEmail(m.fromName, m.from), subject, mail.NewEmail(toName, to), text, body)
	resp, err := m.client.SendWithContext(ctx, message)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "send email")
	}
	if resp != nil && resp.StatusCode >= 400 {
		return pkgerrors.Newf(pkgerrors.CodeDependency, "sendgrid returned status %d", resp.StatusCode)
	}
	return nil
}

func greeting(name string) string {
	if strings.TrimSpace(name) == "" {
		return "there"
	}
	return name
}

func formatDay(t time.Time) string {
	if t.IsZero() {
		return "TBD"
	}
	return t.Format("Jan 2, 2006")
}

func formatDollars(cents int64) string {
	return fmt.Sprintf("$%d.%02d", cents/100, cents%100)
}

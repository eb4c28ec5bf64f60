// Package mail drains the email outbox. The send_email action only queues
// rows; delivery happens here so a slow or down SMTP server never blocks
// rule execution.
package mail

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"boardflow/internal/config"
	"boardflow/internal/repo"
)

const defaultBatch = 50

// SendFunc delivers one email. Implementations must be safe for repeated
// calls with the same message; the outbox retries nothing on its own but
// an operator may flip a failed row back to pending.
type SendFunc func(ctx context.Context, recipient, subject, body string) error

// Dispatcher flushes pending outbox rows through Send, marking each row
// sent or failed as it goes.
type Dispatcher struct {
	Repo   repo.Repo
	Logger zerolog.Logger
	Send   SendFunc
	Now    func() time.Time
	Batch  int
}

// Flush delivers one batch of pending emails and reports how many were
// sent and how many failed. A delivery error marks the row failed and
// moves on; only outbox read/write errors abort the pass.
func (d Dispatcher) Flush(ctx context.Context) (sent, failed int, err error) {
	batch := d.Batch
	if batch <= 0 {
		batch = defaultBatch
	}
	pending, err := d.Repo.PendingEmails(ctx, batch)
	if err != nil {
		return 0, 0, fmt.Errorf("read outbox: %w", err)
	}
	for _, email := range pending {
		if err := d.Send(ctx, email.Recipient, email.Subject, email.Body); err != nil {
			d.Logger.Error().Err(err).Str("email_id", email.ID).Str("recipient", email.Recipient).Msg("mail: deliver")
			if markErr := d.Repo.MarkEmail(ctx, email.ID, "failed", ""); markErr != nil {
				return sent, failed, fmt.Errorf("mark email failed: %w", markErr)
			}
			failed++
			continue
		}
		if markErr := d.Repo.MarkEmail(ctx, email.ID, "sent", d.now()); markErr != nil {
			return sent, failed, fmt.Errorf("mark email sent: %w", markErr)
		}
		sent++
	}
	return sent, failed, nil
}

// Run flushes on an interval until ctx is cancelled.
func (d Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if _, _, err := d.Flush(ctx); err != nil {
			d.Logger.Error().Err(err).Msg("mail: flush outbox")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (d Dispatcher) now() string {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return now().UTC().Format(time.RFC3339)
}

// SMTPSender builds a SendFunc for the configured SMTP relay. PLAIN auth
// is used when a username is set; otherwise the connection is anonymous.
func SMTPSender(cfg *config.Config) SendFunc {
	return func(_ context.Context, recipient, subject, body string) error {
		var auth smtp.Auth
		if cfg.SMTP.Username != "" {
			auth = smtp.PlainAuth("", cfg.SMTP.Username, cfg.SMTP.Password, cfg.SMTP.Host)
		}
		msg := buildMessage(cfg.SMTPFrom(), recipient, subject, body)
		return smtp.SendMail(cfg.SMTPAddr(), auth, cfg.SMTPFrom(), []string{recipient}, msg)
	}
}

func buildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}

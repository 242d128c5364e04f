// Package notify sends operator alerts over SMTP. Alerts are best effort and
// never gate the pipeline.
package notify

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/bluelotus98/blue-lotus-backend/internal/events"
	"github.com/bluelotus98/blue-lotus-backend/platform/config"
	"github.com/bluelotus98/blue-lotus-backend/platform/logger"

	gomail "github.com/wneessen/go-mail"
)

// Alerter emails the operator when a job burns through its retries. A nil
// Alerter is valid and does nothing, so alerting stays optional.
type Alerter struct {
	host     string
	port     int
	username string
	password string
	from     string
	to       string
	log      *logger.Logger

	send func(ctx context.Context, subject, body string) error
}

// NewAlerter creates an alerter from config, or nil when SMTP is not
// configured.
func NewAlerter(cfg config.AlertConfig, log *logger.Logger) *Alerter {
	if !cfg.IsAlertingEnabled() {
		return nil
	}
	a := &Alerter{
		host:     cfg.GetSMTPHost(),
		port:     cfg.GetSMTPPort(),
		username: cfg.GetSMTPUsername(),
		password: cfg.GetSMTPPassword(),
		from:     cfg.GetAlertFromAddress(),
		to:       cfg.GetAlertToAddress(),
		log:      log,
	}
	a.send = a.smtpSend
	return a
}

// RegisterHandlers subscribes the alerter to the failure events it emails
// about. A nil alerter registers nothing.
func (a *Alerter) RegisterHandlers(bus events.Bus) {
	if a == nil {
		return
	}
	bus.Subscribe(events.EventCallAnalysisFailed, a)
}

// Handle implements events.Handler.
func (a *Alerter) Handle(ctx context.Context, event events.Event) error {
	if failed, ok := event.(events.CallAnalysisFailed); ok {
		a.AnalysisFailed(ctx, failed.CallEventID, failed.TenantID.String(), failed.Reason)
	}
	return nil
}

// AnalysisFailed notifies the operator that a call's analysis gave up after
// exhausting retries. The row stays queryable; this is the signal to look at
// the archived job.
func (a *Alerter) AnalysisFailed(ctx context.Context, callEventID, tenantID, reason string) {
	if a == nil {
		return
	}

	subject := fmt.Sprintf("Call analysis failed: %s", callEventID)
	body := fmt.Sprintf(
		"Analysis for call event %s (tenant %s) failed after exhausting retries.\n\nLast error: %s\n\nThe raw event is persisted and the job is archived for inspection.",
		callEventID, tenantID, reason,
	)

	if err := a.send(ctx, subject, body); err != nil {
		a.log.Error("failed to send analysis alert", "callEventId", callEventID, "error", err)
	}
}

func (a *Alerter) smtpSend(ctx context.Context, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(a.from); err != nil {
		return fmt.Errorf("smtp from: %w", err)
	}
	if err := msg.To(a.to); err != nil {
		return fmt.Errorf("smtp to: %w", err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	client, err := gomail.NewClient(a.host,
		gomail.WithPort(a.port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(a.username),
		gomail.WithPassword(a.password),
		gomail.WithTLSPortPolicy(gomail.TLSOpportunistic),
		gomail.WithTimeout(15*time.Second),
		gomail.WithDialContextFunc(func(dctx context.Context, _ string, addr string) (net.Conn, error) {
			return (&net.Dialer{}).DialContext(dctx, "tcp4", addr)
		}),
	)
	if err != nil {
		return fmt.Errorf("smtp client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

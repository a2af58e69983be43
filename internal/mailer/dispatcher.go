package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lmorrell/coldreach/internal/domain"
)

// SendRequest describes one campaign message for one recipient.
type SendRequest struct {
	To      string
	Subject string
	HTML    string

	// From overrides the chosen account's address in the message header.
	From string

	// TrackingID, when set, gets a beacon and click redirects injected into
	// the rendered body.
	TrackingID string

	// Attributes personalize the subject and body templates.
	Attributes map[string]string
}

// SendResult reports a successful transmission back to the caller, which owns
// all persistence of tracking records and campaign counters.
type SendResult struct {
	MessageID    string `json:"message_id"`
	AccountUsed  string `json:"account_used"`
	AccountUsage string `json:"account_usage"`
}

// Dispatcher is the single entry point that turns "send this message to this
// lead" into a transmitted, tracked email: render, inject tracking, pick an
// account, transmit, charge quota. It persists nothing; transmission and
// persistence fail independently and the caller must be able to tell them
// apart.
type Dispatcher struct {
	pool      *AccountPool
	transport Transport
	baseURL   string
	logger    *slog.Logger

	limiter    Limiter
	ratePerSec int
}

// Limiter paces sends per account. Satisfied by engine.Throttle.
type Limiter interface {
	Wait(ctx context.Context, account string, limit int) error
}

func NewDispatcher(pool *AccountPool, transport Transport, baseURL string, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		pool:      pool,
		transport: transport,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// WithRateLimit paces transmissions through each account at sendsPerSecond.
// Zero disables pacing.
func (d *Dispatcher) WithRateLimit(l Limiter, sendsPerSecond int) *Dispatcher {
	d.limiter = l
	d.ratePerSec = sendsPerSecond
	return d
}

// Send processes one outbound message. Quota is charged only after the
// transport confirms transmission; a failed send leaves the pool untouched.
func (d *Dispatcher) Send(ctx context.Context, req SendRequest) (*SendResult, error) {
	if !domain.ValidEmail(req.To) {
		return nil, &InvalidInputError{Reason: "malformed recipient address: " + req.To}
	}
	if req.Subject == "" && req.HTML == "" {
		return nil, &InvalidInputError{Reason: "message has no subject and no body"}
	}

	subject := RenderTemplate(req.Subject, req.Attributes)
	html := RenderTemplate(req.HTML, req.Attributes)

	if req.TrackingID != "" {
		html = InjectTracking(html, req.TrackingID, d.baseURL)
	}

	account, err := d.pool.Acquire()
	if err != nil {
		return nil, err
	}

	if d.limiter != nil && d.ratePerSec > 0 {
		if err := d.limiter.Wait(ctx, account.Email, d.ratePerSec); err != nil {
			return nil, fmt.Errorf("waiting for send slot: %w", err)
		}
	}

	msg := &Message{
		From:    req.From,
		To:      req.To,
		Subject: subject,
		HTML:    html,
	}

	messageID, err := d.transport.Send(ctx, account, msg)
	if err != nil {
		d.logger.Warn("transmission failed",
			"account", account.Email,
			"to", req.To,
			"error", err,
		)
		return nil, &TransmissionError{Account: account.Email, Err: err}
	}

	d.pool.Charge(account)
	usage := d.pool.usageString(account)

	d.logger.Info("email sent",
		"account", account.Email,
		"to", req.To,
		"message_id", messageID,
		"account_usage", usage,
		"tracking_id", req.TrackingID,
	)

	return &SendResult{
		MessageID:    messageID,
		AccountUsed:  account.Email,
		AccountUsage: usage,
	}, nil
}

package mailer

import (
	"context"
)

// Message is one fully rendered outbound email. Transient; the dispatcher
// builds it per send and nothing persists it.
type Message struct {
	From    string
	To      string
	Subject string
	HTML    string
}

// Transport transmits a message using the credentials of the chosen sending
// account and returns the provider's message identifier. Implementations:
// SMTPTransport for mailbox pools, ResendTransport for the transactional API.
// The dispatcher works with either unchanged.
type Transport interface {
	Send(ctx context.Context, account *Account, msg *Message) (string, error)
}

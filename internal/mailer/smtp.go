package mailer

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/google/uuid"
)

// SMTPTransport sends through an SMTP submission endpoint, authenticating
// with the chosen account's own credentials. Host and port are shared across
// the pool (one workspace provider), the identity varies per send.
type SMTPTransport struct {
	Host string
	Port int

	// sendMail is swapped in tests. Defaults to smtp.SendMail, which speaks
	// STARTTLS when the server offers it.
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPTransport(host string, port int) *SMTPTransport {
	return &SMTPTransport{
		Host:     host,
		Port:     port,
		sendMail: smtp.SendMail,
	}
}

func (t *SMTPTransport) Send(ctx context.Context, account *Account, msg *Message) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	from := msg.From
	if from == "" {
		from = account.Email
	}

	messageID := fmt.Sprintf("<%s@%s>", uuid.NewString(), domainOf(account.Email))

	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", msg.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", msg.Subject)
	fmt.Fprintf(&b, "Message-ID: %s\r\n", messageID)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(msg.HTML)

	addr := fmt.Sprintf("%s:%d", t.Host, t.Port)
	auth := smtp.PlainAuth("", account.Email, account.Password, t.Host)

	if err := t.sendMail(addr, auth, account.Email, []string{msg.To}, []byte(b.String())); err != nil {
		return "", fmt.Errorf("smtp send: %w", err)
	}

	return messageID, nil
}

func domainOf(email string) string {
	if i := strings.LastIndex(email, "@"); i >= 0 {
		return email[i+1:]
	}
	return email
}

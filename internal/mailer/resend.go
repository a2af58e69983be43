package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const resendEndpoint = "https://api.resend.com/emails"

// ResendTransport sends through the Resend transactional API. One service
// credential covers the whole pool; the account's address is only used as the
// From header.
type ResendTransport struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
}

func NewResendTransport(apiKey string) *ResendTransport {
	return &ResendTransport{
		apiKey:   apiKey,
		endpoint: resendEndpoint,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID      string `json:"id"`
	Message string `json:"message,omitempty"`
}

func (t *ResendTransport) Send(ctx context.Context, account *Account, msg *Message) (string, error) {
	from := msg.From
	if from == "" {
		from = account.Email
	}

	payload, err := json.Marshal(resendRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		HTML:    msg.HTML,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling resend request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("building resend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling resend: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	var parsed resendResponse
	if err := json.Unmarshal(body, &parsed); err != nil && resp.StatusCode < 300 {
		return "", fmt.Errorf("decoding resend response: %w", err)
	}

	if resp.StatusCode >= 300 {
		if parsed.Message != "" {
			return "", fmt.Errorf("resend rejected message (status %d): %s", resp.StatusCode, parsed.Message)
		}
		return "", fmt.Errorf("resend rejected message (status %d)", resp.StatusCode)
	}

	return parsed.ID, nil
}

package alerts

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// defaultMailEndpoint is the mail provider's send API.
const defaultMailEndpoint = "https://api.resend.com/emails"

// EmailNotifier sends the daily change report through a transactional mail
// provider's HTTP API.
type EmailNotifier struct {
	endpoint  string
	apiKey    string
	from      string
	recipient string
	client    *http.Client
}

// NewEmailNotifier creates an email notifier for the given recipient.
func NewEmailNotifier(apiKey, from, recipient string) *EmailNotifier {
	return &EmailNotifier{
		endpoint:  defaultMailEndpoint,
		apiKey:    apiKey,
		from:      from,
		recipient: recipient,
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// WithEndpoint overrides the mail API endpoint. Used in tests.
func (e *EmailNotifier) WithEndpoint(url string) *EmailNotifier {
	e.endpoint = url
	return e
}

func (e *EmailNotifier) Name() string { return "email" }

func (e *EmailNotifier) Send(ctx context.Context, report Report) error {
	payload := emailPayload{
		From:    e.from,
		To:      []string{e.recipient},
		Subject: report.Subject(),
		Text:    report.Body(),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create email request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("send email report: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("mail provider returned status %d", resp.StatusCode)
	}
	return nil
}

type emailPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

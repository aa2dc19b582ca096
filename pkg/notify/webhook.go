package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/sethvargo/go-retry"
)

// DefaultActivityImage is the image shown in the activity section of a card.
const DefaultActivityImage = "https://teamsnodesample.azurewebsites.net/static/img/image5.png"

// Webhook posts MessageCards to an incoming webhook URL.
type Webhook struct {
	url        string
	client     *http.Client
	image      string
	maxRetries uint64
	baseDelay  time.Duration
	maxDelay   time.Duration
	logger     *slog.Logger
}

// WebhookOption configures a Webhook.
type WebhookOption func(*Webhook)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithRetries sets how many times a transient failure is retried and the
// first backoff delay.
func WithRetries(n uint64, base time.Duration) WebhookOption {
	return func(w *Webhook) {
		w.maxRetries = n
		w.baseDelay = base
	}
}

// WithActivityImage overrides DefaultActivityImage.
func WithActivityImage(url string) WebhookOption {
	return func(w *Webhook) { w.image = url }
}

// WithWebhookLogger sets the logger for retry attempts.
func WithWebhookLogger(logger *slog.Logger) WebhookOption {
	return func(w *Webhook) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// NewWebhook creates a Webhook for url.
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:        url,
		client:     &http.Client{Timeout: 30 * time.Second},
		image:      DefaultActivityImage,
		maxRetries: 3,
		baseDelay:  500 * time.Millisecond,
		maxDelay:   10 * time.Second,
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.baseDelay <= 0 {
		w.baseDelay = time.Millisecond
	}
	return w
}

type card struct {
	Title    string    `json:"title"`
	Text     string    `json:"text"`
	Sections []section `json:"sections"`
}

type section struct {
	ActivityTitle    string `json:"activityTitle,omitempty"`
	ActivitySubtitle string `json:"activitySubtitle,omitempty"`
	ActivityText     string `json:"activityText,omitempty"`
	ActivityImage    string `json:"activityImage,omitempty"`
	Title            string `json:"title,omitempty"`
	Facts            []fact `json:"facts,omitempty"`
}

type fact struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// buildCard renders msg as a MessageCard. Failed messages carry the error
// text JSON-quoted under "Error Message".
func buildCard(msg Message, image string) (card, error) {
	f := fact{Name: "Message", Value: msg.Message}
	if msg.Failed() {
		quoted, err := json.Marshal(msg.ErrorMessage)
		if err != nil {
			return card{}, err
		}
		f = fact{Name: "Error Message", Value: string(quoted)}
	}
	return card{
		Title: msg.Title,
		Text:  msg.Text,
		Sections: []section{
			{
				ActivityTitle:    msg.Status,
				ActivitySubtitle: msg.ActivitySubtitle,
				ActivityText:     msg.ActivityText,
				ActivityImage:    image,
			},
			{
				Title: "Output",
				Facts: []fact{f},
			},
		},
	}, nil
}

// Notify posts msg, retrying network errors, 429 and 5xx responses with
// exponential backoff.
func (w *Webhook) Notify(ctx context.Context, msg Message) error {
	c, err := buildCard(msg, w.image)
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}
	body, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode card: %w", err)
	}

	backoff := retry.WithMaxRetries(w.maxRetries, retry.WithCappedDuration(w.maxDelay, retry.NewExponential(w.baseDelay)))
	attempt := 0
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		err := w.post(ctx, body)
		if err != nil {
			w.logger.Debug("webhook attempt failed", "attempt", attempt, "error", err)
		}
		return err
	})
}

func (w *Webhook) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return retry.RetryableError(fmt.Errorf("post webhook: %w", err))
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case isRetryableStatus(resp.StatusCode):
		return retry.RetryableError(fmt.Errorf("webhook returned %s", resp.Status))
	default:
		return fmt.Errorf("webhook returned %s", resp.Status)
	}
}

// isRetryableStatus treats 429 and 5xx as transient.
func isRetryableStatus(code int) bool {
	if code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

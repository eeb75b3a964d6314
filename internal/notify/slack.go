package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/doyensec/safeurl"
	"golang.org/x/time/rate"

	"github.com/example/lab-resource-manager/internal/config"
	"github.com/example/lab-resource-manager/internal/logging"
)

const (
	slackTimeout = 10 * time.Second
	// Slack accepts about one webhook message per second per channel.
	slackRate  = rate.Limit(1)
	slackBurst = 3
)

type slackText struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type slackBlock struct {
	Type string    `json:"type"`
	Text slackText `json:"text"`
}

type slackPayload struct {
	Text   string       `json:"text"`
	Blocks []slackBlock `json:"blocks,omitempty"`
}

// SlackSender posts messages to incoming webhooks, throttled per webhook URL.
type SlackSender struct {
	client *http.Client
	logger *slog.Logger

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewSlackSender uses client when given, otherwise an HTTP client that only
// dials public addresses on ports 80 and 443.
func NewSlackSender(client *http.Client, logger *slog.Logger) *SlackSender {
	if client == nil {
		cfg := safeurl.GetConfigBuilder().
			SetTimeout(slackTimeout).
			SetAllowedSchemes("https", "http").
			SetAllowedPorts(80, 443).
			Build()
		client = safeurl.Client(cfg).Client
	}
	return &SlackSender{
		client:   client,
		logger:   logger,
		limiters: map[string]*rate.Limiter{},
	}
}

var _ Sender = (*SlackSender)(nil)

func (s *SlackSender) Send(ctx context.Context, destination config.NotificationConfig, message Message) error {
	if destination.WebhookURL == "" {
		return fmt.Errorf("slack destination has no webhook_url")
	}
	if err := s.limiter(destination.WebhookURL).Wait(ctx); err != nil {
		return fmt.Errorf("wait for slack rate limit: %w", err)
	}

	body, err := json.Marshal(slackPayload{
		Text: message.Text,
		Blocks: []slackBlock{{
			Type: "section",
			Text: slackText{Type: "mrkdwn", Text: message.Text},
		}},
	})
	if err != nil {
		return fmt.Errorf("encode slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, destination.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	logging.Resolve(ctx, s.logger).Debug("slack notification sent", "kind", string(message.Event.Kind))
	return nil
}

func (s *SlackSender) limiter(url string) *rate.Limiter {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.limiters[url]
	if !ok {
		l = rate.NewLimiter(slackRate, slackBurst)
		s.limiters[url] = l
	}
	return l
}

// MockSender only logs. It backs the "mock" destination type.
type MockSender struct {
	logger *slog.Logger
}

func NewMockSender(logger *slog.Logger) *MockSender {
	return &MockSender{logger: logger}
}

func (m *MockSender) Send(ctx context.Context, _ config.NotificationConfig, message Message) error {
	logging.Resolve(ctx, m.logger).Info("mock notification",
		"kind", string(message.Event.Kind),
		"usage_id", message.Event.Usage.ID().String(),
		"message", message.Text,
	)
	return nil
}

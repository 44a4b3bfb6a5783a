package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"cryptoetl/config"

	"go.uber.org/zap"
)

// ErrMissingCredential is returned when the webhook URL cannot be resolved.
var ErrMissingCredential = errors.New("missing webhook credential")

// SlackNotifier posts alerts to a Slack incoming webhook. The webhook URL is
// a secret and is resolved on every send.
type SlackNotifier struct {
	secrets    config.SecretProvider
	secretName string
	username   string
	iconEmoji  string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewSlackNotifier(secrets config.SecretProvider, secretName, username, iconEmoji string,
	timeout time.Duration, logger *zap.Logger) *SlackNotifier {
	return &SlackNotifier{
		secrets:    secrets,
		secretName: secretName,
		username:   username,
		iconEmoji:  iconEmoji,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

type slackMessage struct {
	Text      string `json:"text"`
	Username  string `json:"username,omitempty"`
	IconEmoji string `json:"icon_emoji,omitempty"`
}

func (s *SlackNotifier) Notify(ctx context.Context, alert AlertEvent) error {
	webhookURL, err := s.secrets.Secret(ctx, s.secretName)
	if errors.Is(err, config.ErrSecretNotFound) {
		return fmt.Errorf("%w: %s: %v", ErrMissingCredential, s.secretName, err)
	}
	if err != nil {
		return fmt.Errorf("resolve webhook %s: %w", s.secretName, err)
	}

	payload, err := json.Marshal(slackMessage{
		Text:      alert.Message,
		Username:  s.username,
		IconEmoji: s.iconEmoji,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create webhook request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send slack webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("slack webhook returned status %d: %s", resp.StatusCode, body)
	}

	s.logger.Info("alert delivered",
		zap.String("symbol", alert.Symbol),
		zap.Float64("price", alert.Price),
		zap.Float64("threshold", alert.Threshold))
	return nil
}

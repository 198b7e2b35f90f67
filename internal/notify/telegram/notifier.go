// Package telegram delivers alert messages through the Telegram Bot API.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/aristath/pricewatch/internal/domain"
)

const defaultBaseURL = "https://api.telegram.org"

// Notifier sends plain-text messages to a single chat
type Notifier struct {
	baseURL  string
	botToken string
	chatID   string
	client   *http.Client
	log      zerolog.Logger
}

// NewNotifier creates a notifier. With an empty token or chat id every Send is a no-op.
func NewNotifier(botToken, chatID string, timeout time.Duration, log zerolog.Logger) *Notifier {
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	return &Notifier{
		baseURL:  defaultBaseURL,
		botToken: botToken,
		chatID:   chatID,
		client:   &http.Client{Timeout: timeout},
		log:      log.With().Str("client", "telegram").Logger(),
	}
}

// Configured reports whether a destination is set
func (n *Notifier) Configured() bool {
	return n.botToken != "" && n.chatID != ""
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// Send delivers text. Transport errors and non-2xx responses wrap domain.ErrNotifyFailure.
func (n *Notifier) Send(ctx context.Context, text string) error {
	if !n.Configured() {
		n.log.Debug().Msg("Telegram not configured, skipping message")
		return nil
	}

	payload, err := json.Marshal(sendMessageRequest{
		ChatID:                n.chatID,
		Text:                  text,
		DisableWebPagePreview: true,
	})
	if err != nil {
		return fmt.Errorf("%w: encode message: %v", domain.ErrNotifyFailure, err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%w: build request: %v", domain.ErrNotifyFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		// the error text embeds the URL, which carries the bot token
		return fmt.Errorf("%w: request failed", domain.ErrNotifyFailure)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: telegram API returned %d: %s", domain.ErrNotifyFailure, resp.StatusCode, string(body))
	}

	n.log.Debug().Int("chars", len(text)).Msg("Message sent")
	return nil
}

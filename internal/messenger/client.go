// Package messenger delivers outbound messages to the messaging provider's
// Graph API. Delivery is best effort: bounded retries, then give up with a
// log line. No reply ever depends on a send succeeding.
package messenger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"freres-bot/internal/util"

	"go.uber.org/zap"
)

const (
	defaultAPIBaseURL = "https://graph.facebook.com/v18.0"
	maxAttempts       = 3
	retryBackoff      = 500 * time.Millisecond
)

// Sender is the outbound gateway contract consumed by the webhook adapter
// and the notification worker.
type Sender interface {
	SendText(ctx context.Context, userID, text string) error
	SendImage(ctx context.Context, userID, imageURL string) error
}

// Client talks to the provider's send API.
type Client struct {
	httpClient  *http.Client
	accessToken string
	baseURL     string
	logger      *zap.Logger
}

// NewClient creates a messenger client. An empty baseURL selects the
// production Graph API endpoint.
func NewClient(accessToken, baseURL string) *Client {
	if baseURL == "" {
		baseURL = defaultAPIBaseURL
	}
	return &Client{
		httpClient:  &http.Client{Timeout: 10 * time.Second},
		accessToken: accessToken,
		baseURL:     baseURL,
		logger:      util.GetLogger(),
	}
}

type recipient struct {
	ID string `json:"id"`
}

type textMessage struct {
	Text string `json:"text"`
}

type attachmentPayload struct {
	URL        string `json:"url"`
	IsReusable bool   `json:"is_reusable"`
}

type attachment struct {
	Type    string            `json:"type"`
	Payload attachmentPayload `json:"payload"`
}

type attachmentMessage struct {
	Attachment attachment `json:"attachment"`
}

// SendText delivers a text message to a user.
func (c *Client) SendText(ctx context.Context, userID, text string) error {
	return c.post(ctx, map[string]interface{}{
		"recipient": recipient{ID: userID},
		"message":   textMessage{Text: text},
	})
}

// SendImage delivers an image attachment to a user.
func (c *Client) SendImage(ctx context.Context, userID, imageURL string) error {
	return c.post(ctx, map[string]interface{}{
		"recipient": recipient{ID: userID},
		"message": attachmentMessage{
			Attachment: attachment{
				Type:    "image",
				Payload: attachmentPayload{URL: imageURL, IsReusable: true},
			},
		},
	})
}

func (c *Client) post(ctx context.Context, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal send payload: %w", err)
	}

	url := fmt.Sprintf("%s/me/messages?access_token=%s", c.baseURL, c.accessToken)

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("build send request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(req)
		if err == nil {
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if resp.StatusCode < 300 {
				return nil
			}
			lastErr = fmt.Errorf("send API returned status %d", resp.StatusCode)
		} else {
			lastErr = err
		}

		if attempt < maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}
	}

	util.OutboundSendFailures.Inc()
	c.logger.Warn("Outbound send failed after retries", zap.Error(lastErr))
	return lastErr
}

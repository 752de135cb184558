// Package lark delivers card messages to Lark incoming-webhook endpoints.
package lark

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/xuanhao97/intergrate-gitlab-lark/internal/card"
)

// Destination is where a single delivery goes: a webhook URL plus an optional
// signing secret. Every request can carry its own destination.
type Destination struct {
	URL    string
	Secret string
}

// Result is the normalized outcome of one delivery attempt.
// Success=true implies Error is empty; Success=false implies Error is set.
type Result struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Deliverer sends one card message to a destination.
type Deliverer interface {
	Deliver(ctx context.Context, dest Destination, msg *card.Message) Result
}

// Client posts cards over HTTP. One attempt per call, no retries.
type Client struct {
	http    *http.Client
	maxBody int64
	logger  zerolog.Logger
	now     func() time.Time
}

// NewClient creates a delivery client with the given request timeout.
func NewClient(timeout time.Duration, logger zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		maxBody: 64 * 1024,
		logger:  logger.With().Str("component", "lark.client").Logger(),
		now:     time.Now,
	}
}

// signedMessage merges the signature fields into the outgoing card body.
type signedMessage struct {
	card.Message
	Sign      string `json:"sign"`
	Timestamp string `json:"timestamp"`
}

// webhookResponse is the Lark incoming-webhook response body.
type webhookResponse struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	Data struct {
		MessageID string `json:"message_id"`
	} `json:"data"`
}

// Deliver posts msg to dest. When dest.Secret is set the body carries a
// sign/timestamp pair computed with Sign. All failures — local, transport,
// or remote — come back as a Result, never as an error.
func (c *Client) Deliver(ctx context.Context, dest Destination, msg *card.Message) Result {
	if dest.URL == "" {
		return failure("lark webhook URL is not set")
	}

	var payload any = msg
	if dest.Secret != "" {
		ts := strconv.FormatInt(c.now().Unix(), 10)
		payload = signedMessage{
			Message:   *msg,
			Sign:      Sign(ts, dest.Secret),
			Timestamp: ts,
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return failure(fmt.Sprintf("encode message: %v", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, dest.URL, bytes.NewReader(body))
	if err != nil {
		return failure(fmt.Sprintf("create request: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Error().Err(err).Str("url", dest.URL).Msg("lark delivery failed")
		return failure(err.Error())
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody))
	if err != nil {
		return failure(fmt.Sprintf("read response: %v", err))
	}

	var wr webhookResponse
	if err := json.Unmarshal(raw, &wr); err != nil {
		return failure(fmt.Sprintf("decode response (status %d): %v", resp.StatusCode, err))
	}

	if resp.StatusCode != http.StatusOK || wr.Code != 0 {
		errMsg := wr.Msg
		if errMsg == "" {
			errMsg = fmt.Sprintf("lark webhook returned status %d, code %d", resp.StatusCode, wr.Code)
		}
		c.logger.Warn().Int("status", resp.StatusCode).Int("code", wr.Code).Str("msg", wr.Msg).
			Msg("lark rejected message")
		return failure(errMsg)
	}

	c.logger.Debug().Str("message_id", wr.Data.MessageID).Msg("lark message delivered")
	return Result{Success: true, MessageID: wr.Data.MessageID}
}

// Sign computes the Lark custom-bot signature: base64 of the HMAC-SHA256
// digest of timestamp+secret, keyed by the secret.
func Sign(timestamp, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp + secret))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func failure(msg string) Result {
	return Result{Success: false, Error: msg}
}

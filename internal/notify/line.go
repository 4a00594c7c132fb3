// Package notify delivers user-facing messages over the LINE Messaging API.
// Delivery is best-effort: a failed push is logged and reported to the
// caller, but callers treat it as non-fatal so bookkeeping never depends on
// a chat API being up.
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

	"github.com/avast/retry-go"

	"kakeibo/internal/log"
)

const (
	pushEndpoint  = "https://api.line.me/v2/bot/message/push"
	replyEndpoint = "https://api.line.me/v2/bot/message/reply"

	requestTimeout = 10 * time.Second
	maxAttempts    = 3
	retryDelay     = 2 * time.Second
)

// ErrNoRecipient is returned by Push when no LINE user is registered yet.
// The user id is captured from the first webhook message they send.
var ErrNoRecipient = errors.New("no LINE user id registered")

type LineClient struct {
	httpClient   *http.Client
	channelToken string
	logger       *log.Logger
}

type lineMessage struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type pushRequest struct {
	To       string        `json:"to"`
	Messages []lineMessage `json:"messages"`
}

type replyRequest struct {
	ReplyToken string        `json:"replyToken"`
	Messages   []lineMessage `json:"messages"`
}

func NewLineClient(channelToken string, logger *log.Logger) *LineClient {
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentNotify)
	}
	return &LineClient{
		httpClient:   &http.Client{Timeout: requestTimeout},
		channelToken: channelToken,
		logger:       logger,
	}
}

// Push sends a text message to the given user.
func (c *LineClient) Push(ctx context.Context, userID, text string) error {
	if userID == "" {
		return ErrNoRecipient
	}
	body := pushRequest{To: userID, Messages: []lineMessage{{Type: "text", Text: text}}}
	if err := c.post(ctx, pushEndpoint, body); err != nil {
		c.logger.Error("push failed",
			log.FieldOperation, log.OpPush, log.FieldError, err.Error())
		return err
	}
	return nil
}

// Reply answers a webhook event using its reply token. Reply tokens are
// single-use and expire quickly, so replies are never retried.
func (c *LineClient) Reply(ctx context.Context, replyToken, text string) error {
	body := replyRequest{ReplyToken: replyToken, Messages: []lineMessage{{Type: "text", Text: text}}}
	if err := c.postOnce(ctx, replyEndpoint, body); err != nil {
		c.logger.Error("reply failed",
			log.FieldOperation, log.OpReply, log.FieldError, err.Error())
		return err
	}
	return nil
}

func (c *LineClient) post(ctx context.Context, endpoint string, body any) error {
	return retry.Do(
		func() error {
			return c.postOnce(ctx, endpoint, body)
		},
		retry.RetryIf(func(err error) bool {
			var apiErr *apiError
			if errors.As(err, &apiErr) {
				return apiErr.StatusCode == http.StatusTooManyRequests ||
					apiErr.StatusCode >= http.StatusInternalServerError
			}
			// Network errors are worth another try.
			return true
		}),
		retry.Attempts(maxAttempts),
		retry.Delay(retryDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
	)
}

func (c *LineClient) postOnce(ctx context.Context, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.channelToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return &apiError{StatusCode: resp.StatusCode, Body: string(detail)}
	}
	return nil
}

type apiError struct {
	StatusCode int
	Body       string
}

func (e *apiError) Error() string {
	return fmt.Sprintf("line api status %d: %s", e.StatusCode, e.Body)
}

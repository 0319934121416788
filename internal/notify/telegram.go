package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/undeadpelmen/acbot/internal/controller"
)

const DefaultTelegramURL = "https://api.telegram.org"

type Telegram struct {
	client  *http.Client
	baseURL string
	token   string
	chatID  string
}

func NewTelegram(baseURL, token, chatID string, timeout time.Duration) *Telegram {
	if baseURL == "" {
		baseURL = DefaultTelegramURL
	}
	return &Telegram{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		chatID:  chatID,
	}
}

func (t *Telegram) Name() string {
	return "telegram"
}

func (t *Telegram) Notify(ctx context.Context, r controller.Report) error {
	return t.Send(ctx, r.Message())
}

func (t *Telegram) Send(ctx context.Context, text string) error {
	q := url.Values{}
	q.Set("chat_id", t.chatID)
	q.Set("text", text)
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", t.baseURL, t.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	resp, err := t.client.Do(req)
	if err != nil {
		// the error text carries the URL, and with it the bot token
		return fmt.Errorf("send message: %w", redact(err, t.token))
	}
	defer resp.Body.Close()

	return checkStatus(resp)
}

func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret string) error {
	if secret == "" {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, "<token>"), err: err}
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	signerrors "github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/pkg/errors"
)

// DefaultTelegramAPI is the public Bot API endpoint.
const DefaultTelegramAPI = "https://api.telegram.org"

// Telegram sends messages to one chat through the Bot API.
type Telegram struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
}

var _ Notifier = (*Telegram)(nil)

// TelegramOption defines a function type to modify a Telegram instance.
type TelegramOption func(*Telegram)

// WithAPIURL points the notifier at another Bot API host (primarily for testing).
func WithAPIURL(apiURL string) TelegramOption {
	return func(t *Telegram) {
		t.apiURL = strings.TrimRight(apiURL, "/")
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(client *http.Client) TelegramOption {
	return func(t *Telegram) {
		t.client = client
	}
}

// WithTimeout bounds each Bot API call.
func WithTimeout(timeout time.Duration) TelegramOption {
	return func(t *Telegram) {
		t.client = &http.Client{Transport: t.client.Transport, Timeout: timeout}
	}
}

func NewTelegram(token, chatID string, options ...TelegramOption) *Telegram {
	t := &Telegram{
		apiURL: DefaultTelegramAPI,
		token:  token,
		chatID: chatID,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range options {
		opt(t)
	}
	return t
}

type telegramResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

func (t *Telegram) Notify(ctx context.Context, text string) error {
	q := url.Values{}
	q.Set("chat_id", t.chatID)
	q.Set("text", text)
	endpoint := fmt.Sprintf("%s/bot%s/sendMessage?%s", t.apiURL, t.token, q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	// The request URL carries the bot token, keep it out of the errors
	if err != nil {
		return errors.Wrap(signerrors.ErrNotification, "[Telegram.Notify] invalid request")
	}
	resp, err := t.client.Do(req)
	if err != nil {
		return errors.Wrap(signerrors.ErrNotification, "[Telegram.Notify] request failed")
	}
	defer resp.Body.Close()

	var body telegramResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return errors.Wrapf(signerrors.ErrNotification, "[Telegram.Notify] status %d, undecodable body", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK || !body.OK {
		return errors.Wrapf(signerrors.ErrNotification, "[Telegram.Notify] status %d: %s", resp.StatusCode, body.Description)
	}
	return nil
}

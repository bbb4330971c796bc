package auth

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	signerrors "github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/pkg/errors"
	"golang.org/x/net/publicsuffix"
)

const (
	loginPath        = "connexion"
	userAgent        = "signatory/1.0"
	defaultTimeout   = 30 * time.Second
	maxResponseBytes = 4 << 20
)

// Credentials are the portal account used to log in.
type Credentials struct {
	Email    string
	Password string
}

// Session is a cookie carrying HTTP session against the training portal.
// A Session is meant to live for a single signing attempt and must be
// closed afterwards.
type Session struct {
	baseURL     *url.URL
	credentials Credentials
	marker      string
	client      *http.Client
}

// Factory acquires a fresh Session for each signing attempt.
type Factory func() (*Session, error)

// SessionOption defines a function type to modify a Session instance.
type SessionOption func(*Session)

// WithTimeout sets the per request timeout.
func WithTimeout(timeout time.Duration) SessionOption {
	return func(s *Session) {
		s.client.Timeout = timeout
	}
}

// WithMarker sets the text that only appears on pages behind the login.
func WithMarker(marker string) SessionOption {
	return func(s *Session) {
		s.marker = marker
	}
}

// WithTransport replaces the HTTP transport (primarily for testing).
func WithTransport(rt http.RoundTripper) SessionOption {
	return func(s *Session) {
		s.client.Transport = rt
	}
}

// NewSession creates a logged out session against baseURL.
func NewSession(baseURL string, credentials Credentials, options ...SessionOption) (*Session, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, errors.Wrap(err, "[NewSession] invalid base URL")
	}
	if credentials.Email == "" || credentials.Password == "" {
		return nil, errors.New("[NewSession] email and password are required")
	}
	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, errors.Wrap(err, "[NewSession] cookiejar.New")
	}

	s := &Session{
		baseURL:     u,
		credentials: credentials,
		marker:      DefaultMarker,
		client:      &http.Client{Jar: jar, Timeout: defaultTimeout},
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// NewFactory returns a Factory building sessions with the same settings.
func NewFactory(baseURL string, credentials Credentials, options ...SessionOption) Factory {
	return func() (*Session, error) {
		return NewSession(baseURL, credentials, options...)
	}
}

// Submit posts an empty form to path, relative to the base URL.
func (s *Session) Submit(ctx context.Context, path string) error {
	resp, body, err := s.do(ctx, http.MethodPost, path, url.Values{})
	if err != nil {
		return errors.Wrap(err, "[Session.Submit]")
	}
	if !success(resp.StatusCode) {
		return fmt.Errorf("[Session.Submit] %s: status %d (%s): %w", path, resp.StatusCode, snippet(body), signerrors.ErrSubmitRejected)
	}
	return nil
}

// Close drops the cookies and idle connections. It is safe to call more than once.
func (s *Session) Close() {
	if s.client == nil {
		return
	}
	s.client.CloseIdleConnections()
	s.client.Jar = nil
	s.client = nil
}

func (s *Session) resolve(path string) string {
	return s.baseURL.ResolveReference(&url.URL{Path: strings.TrimLeft(path, "/")}).String()
}

// do sends a request and reads the whole body. A nil form sends a GET.
func (s *Session) do(ctx context.Context, method, path string, form url.Values) (*http.Response, string, error) {
	if s.client == nil {
		return nil, "", errors.New("session closed")
	}

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, s.resolve(path), body)
	if err != nil {
		return nil, "", errors.Wrap(err, "NewRequest")
	}
	req.Header.Set("User-Agent", userAgent)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, "", errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, "", errors.Wrapf(err, "reading %s %s", method, path)
	}
	return resp, string(data), nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) > 120 {
		return body[:120] + "..."
	}
	return body
}

package auth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	signerrors "github.com/jrsteele09/go-signatory/internal/errors"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// Login form field names
const (
	TokenField    = "_csrf_token"
	UsernameField = "_username"
	PasswordField = "_password"
)

// DefaultMarker only appears on the portal pages of a logged in user.
const DefaultMarker = "Mes démarches"

// Login fetches the login form, posts the credentials with the anti-forgery
// token and checks that the returned page belongs to a logged in user. On
// success the session cookies are authenticated for the following requests.
func (s *Session) Login(ctx context.Context) error {
	_, page, err := s.do(ctx, http.MethodGet, loginPath, nil)
	if err != nil {
		return errors.Wrap(err, "[Session.Login] fetching login page")
	}

	token, err := ExtractToken(page)
	if err != nil {
		return errors.Wrap(err, "[Session.Login]")
	}

	form := url.Values{}
	form.Set(TokenField, token)
	form.Set(UsernameField, s.credentials.Email)
	form.Set(PasswordField, s.credentials.Password)

	resp, body, err := s.do(ctx, http.MethodPost, loginPath, form)
	if err != nil {
		return errors.Wrap(err, "[Session.Login] posting credentials")
	}
	if !success(resp.StatusCode) || !strings.Contains(body, s.marker) {
		return fmt.Errorf("[Session.Login] status %d: %w", resp.StatusCode, signerrors.ErrLoginRejected)
	}

	log.Debug().Str("email", s.credentials.Email).Msg("Logged in")
	return nil
}

// ExtractToken returns the value of the anti-forgery input of an HTML page.
func ExtractToken(page string) (string, error) {
	doc, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return "", errors.Wrap(err, "html.Parse")
	}
	if token := findInputValue(doc, TokenField); token != "" {
		return token, nil
	}
	return "", signerrors.ErrMissingToken
}

func findInputValue(n *html.Node, name string) string {
	if n.Type == html.ElementNode && n.Data == "input" && getAttr(n, "name") == name {
		return getAttr(n, "value")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if value := findInputValue(c, name); value != "" {
			return value
		}
	}
	return ""
}

func getAttr(n *html.Node, key string) string {
	for _, attr := range n.Attr {
		if attr.Key == key {
			return attr.Val
		}
	}
	return ""
}

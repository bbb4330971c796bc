package portalfake

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
)

const (
	Token         = "csrf-token-123"
	preAuthCookie = "PHPSESSID"
	authCookie    = "REMEMBERME"
)

// Portal is an in-process stand-in for the training portal: a login form
// protected by an anti-forgery token and sign endpoints behind the login.
type Portal struct {
	*httptest.Server

	lock       sync.Mutex
	email      string
	password   string
	omitToken  bool
	marker     string
	signStatus int
	requests   int
	logins     int
	signed     []string
}

func New(email, password string) *Portal {
	p := &Portal{
		email:      email,
		password:   password,
		marker:     "Mes démarches",
		signStatus: http.StatusOK,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /connexion", p.loginPage)
	mux.HandleFunc("POST /connexion", p.loginSubmit)
	mux.HandleFunc("POST /formation/", p.sign)
	p.Server = httptest.NewServer(p.count(mux))
	return p
}

// OmitToken removes the anti-forgery input from the login form.
func (p *Portal) OmitToken() {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.omitToken = true
}

// SetPassword changes the password the portal accepts.
func (p *Portal) SetPassword(password string) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.password = password
}

// SetSignStatus makes the sign endpoint answer with status.
func (p *Portal) SetSignStatus(status int) {
	p.lock.Lock()
	defer p.lock.Unlock()
	p.signStatus = status
}

// Requests is the number of HTTP requests served so far.
func (p *Portal) Requests() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.requests
}

// Logins is the number of accepted logins.
func (p *Portal) Logins() int {
	p.lock.Lock()
	defer p.lock.Unlock()
	return p.logins
}

// Signed returns the sign paths that were accepted.
func (p *Portal) Signed() []string {
	p.lock.Lock()
	defer p.lock.Unlock()
	return append([]string(nil), p.signed...)
}

func (p *Portal) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.lock.Lock()
		p.requests++
		p.lock.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (p *Portal) loginPage(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{Name: preAuthCookie, Value: "anonymous", Path: "/"})
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	p.lock.Lock()
	omit := p.omitToken
	p.lock.Unlock()

	token := ""
	if !omit {
		token = fmt.Sprintf(`<input type="hidden" name="_csrf_token" value="%s">`, Token)
	}
	fmt.Fprintf(w, `<html><body><form method="post" action="/connexion">
<input type="email" name="_username"><input type="password" name="_password">%s
<button type="submit">Connexion</button></form></body></html>`, token)
}

func (p *Portal) loginSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	if _, err := r.Cookie(preAuthCookie); err != nil || r.PostFormValue("_csrf_token") != Token {
		http.Error(w, "invalid csrf token", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	p.lock.Lock()
	accepted := r.PostFormValue("_username") == p.email && r.PostFormValue("_password") == p.password
	if accepted {
		p.logins++
	}
	marker := p.marker
	p.lock.Unlock()

	if !accepted {
		fmt.Fprint(w, "<html><body><p>Identifiants invalides.</p></body></html>")
		return
	}

	http.SetCookie(w, &http.Cookie{Name: authCookie, Value: "yes", Path: "/"})
	fmt.Fprintf(w, "<html><body><h1>%s</h1></body></html>", marker)
}

func (p *Portal) sign(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(authCookie); err != nil || c.Value != "yes" {
		http.Error(w, "login required", http.StatusUnauthorized)
		return
	}
	if !strings.Contains(r.URL.Path, "/emarger/") {
		http.NotFound(w, r)
		return
	}
	p.lock.Lock()
	defer p.lock.Unlock()
	if p.signStatus != http.StatusOK {
		http.Error(w, "refused", p.signStatus)
		return
	}
	p.signed = append(p.signed, r.URL.Path)
	w.WriteHeader(http.StatusOK)
}

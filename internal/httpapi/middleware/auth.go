package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// Credentials is the parsed passwordProtection setting ("user:pass").
type Credentials struct {
	User     string
	Password string
}

// ParseCredentials splits "user:pass". An empty string disables auth.
func ParseCredentials(raw string) (Credentials, bool) {
	user, pass, ok := strings.Cut(raw, ":")
	if raw == "" || !ok {
		return Credentials{}, false
	}
	return Credentials{User: user, Password: pass}, true
}

func (c Credentials) match(user, pass string) bool {
	u := subtle.ConstantTimeCompare([]byte(user), []byte(c.User))
	p := subtle.ConstantTimeCompare([]byte(pass), []byte(c.Password))
	return u&p == 1
}

// BasicAuth guards everything behind HTTP basic auth when raw is a valid
// "user:pass" pair. Otherwise it allows all requests.
func BasicAuth(raw, realm string) func(http.Handler) http.Handler {
	creds, enabled := ParseCredentials(raw)
	if realm == "" {
		realm = "status"
	}
	return func(next http.Handler) http.Handler {
		if !enabled {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, pass, ok := r.BasicAuth()
			if ok && creds.match(user, pass) {
				next.ServeHTTP(w, r)
				return
			}
			w.Header().Set("WWW-Authenticate", `Basic realm="`+realm+`", charset="UTF-8"`)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"unauthorized"}`))
		})
	}
}

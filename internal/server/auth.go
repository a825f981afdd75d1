package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/54b3r/moviechat-go/internal/logging"
)

// Reasons reported to onFailure and logged on rejected searches.
const (
	authMissing = "missing"
	authInvalid = "invalid"
)

// searchChallenge is sent with every 401 from /api/search.
const searchChallenge = `Bearer realm="moviechat", scope="search"`

// authMiddleware requires "Authorization: Bearer <apiKey>" on the wrapped
// route. An empty apiKey disables the check; New warns about that once at
// startup. onFailure, when set, receives authMissing or authInvalid. The
// presented token is never logged.
func authMiddleware(apiKey string, onFailure func(reason string), next http.Handler) http.Handler {
	if apiKey == "" {
		return next
	}
	if onFailure == nil {
		onFailure = func(string) {}
	}
	want := []byte(apiKey)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, present := bearerToken(r)

		reason := ""
		switch {
		case !present:
			reason = authMissing
		case subtle.ConstantTimeCompare([]byte(token), want) != 1:
			reason = authInvalid
		}
		if reason == "" {
			next.ServeHTTP(w, r)
			return
		}

		onFailure(reason)
		logging.FromContext(r.Context()).Warn("auth: search rejected",
			slog.String("reason", reason),
			slog.String("client", clientIP(r)),
		)
		challenge := searchChallenge
		if reason == authInvalid {
			challenge += `, error="invalid_token"`
		}
		w.Header().Set("WWW-Authenticate", challenge)
		http.Error(w, "a valid API key is required to search", http.StatusUnauthorized)
	})
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header. present is false when the header is absent, uses another scheme,
// or carries an empty token.
func bearerToken(r *http.Request) (token string, present bool) {
	scheme, value, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "bearer") {
		return "", false
	}
	token = strings.TrimSpace(value)
	return token, token != ""
}

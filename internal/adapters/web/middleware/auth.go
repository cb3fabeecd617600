package middleware

import (
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// TokenVerifier checks an API bearer token.
type TokenVerifier interface {
	Verify(token string) bool
}

// BcryptVerifier accepts the token whose bcrypt hash it holds.
type BcryptVerifier struct {
	hash []byte
}

// NewBcryptVerifier returns nil when hash is empty, which disables authentication.
func NewBcryptVerifier(hash string) TokenVerifier {
	if hash == "" {
		return nil
	}
	return &BcryptVerifier{hash: []byte(hash)}
}

// Verify compares token against the stored hash.
func (v *BcryptVerifier) Verify(token string) bool {
	return bcrypt.CompareHashAndPassword(v.hash, []byte(token)) == nil
}

// HashToken produces the hash to put in the configuration for token.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// AuthMiddleware requires a valid token. The token is read from the
// Authorization header, or from the "token" query parameter for websocket
// clients that cannot set headers. A nil verifier lets every request through.
func AuthMiddleware(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if verifier == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var token string
			authHeader := r.Header.Get("Authorization")
			if strings.HasPrefix(authHeader, "Bearer ") {
				token = strings.TrimPrefix(authHeader, "Bearer ")
			}
			if token == "" {
				token = r.URL.Query().Get("token")
			}

			if token == "" || !verifier.Verify(token) {
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

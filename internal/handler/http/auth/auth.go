// Package auth guards the control surface with bearer-token
// authentication. Token issuance and session management belong to the
// external system that operates this API — this package only validates
// what it's handed.
package auth

import (
	"context"
	"errors"
	"net/http"
	"os"
	"strings"
	"time"

	"catchup-feed/internal/handler/http/respond"

	"github.com/golang-jwt/jwt/v5"
)

type ctxKey string

const ctxSubject ctxKey = "control_subject"

// RequireBearer validates a JWT bearer token signed with CONTROL_JWT_SECRET
// on every request, rejecting with 401 on any failure. There is no
// role/permission matrix here, unlike the admin/viewer split a public
// reads API would need — every control operation requires the same
// single operator credential.
func RequireBearer(next http.Handler) http.Handler {
	secret := []byte(os.Getenv("CONTROL_JWT_SECRET"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject, err := validateBearer(r.Header.Get("Authorization"), secret)
		if err != nil {
			respond.SafeError(w, http.StatusUnauthorized, errors.New("unauthorized: "+err.Error()))
			return
		}
		ctx := context.WithValue(r.Context(), ctxSubject, subject)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func validateBearer(authz string, secret []byte) (string, error) {
	const prefix = "Bearer "
	if len(secret) == 0 {
		return "", errors.New("control auth not configured")
	}
	if !strings.HasPrefix(authz, prefix) {
		return "", errors.New("missing bearer token")
	}
	tokenString := strings.TrimPrefix(authz, prefix)

	tok, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.New("unexpected signing method")
		}
		return secret, nil
	})
	if err != nil || !tok.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid claims")
	}
	exp, ok := claims["exp"].(float64)
	if !ok || int64(exp) < time.Now().Unix() {
		return "", errors.New("token expired")
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", errors.New("invalid sub claim")
	}
	return sub, nil
}

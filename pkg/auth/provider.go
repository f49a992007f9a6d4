package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"
)

type contextKey string

const (
	UserContextKey  contextKey = "auth.user"
	EmailContextKey contextKey = "auth.email"
)

var ErrUnauthorized = errors.New("unauthorized")

type Provider interface {
	Authenticate(ctx context.Context, r *http.Request) (context.Context, error)
}

// Middleware accepts a request as soon as one provider authenticates it.
// Without providers every request passes.
func Middleware(providers ...Provider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(providers) == 0 {
				next.ServeHTTP(w, r)
				return
			}

			for _, p := range providers {
				ctx, err := p.Authenticate(r.Context(), r)

				if err != nil {
					continue
				}

				next.ServeHTTP(w, r.WithContext(ctx))
				return
			}

			http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		})
	}
}

// BearerToken extracts the token of an "Authorization: Bearer" header.
func BearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")

	if header == "" {
		return "", errors.New("missing authorization header")
	}

	token, ok := strings.CutPrefix(header, "Bearer ")

	if !ok || token == "" {
		return "", errors.New("invalid authorization header")
	}

	return token, nil
}

func User(ctx context.Context) string {
	user, _ := ctx.Value(UserContextKey).(string)
	return user
}

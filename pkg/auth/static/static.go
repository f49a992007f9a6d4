package static

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"github.com/unblurai/unblur/pkg/auth"
)

var _ auth.Provider = (*Provider)(nil)

// Provider accepts requests carrying a fixed bearer token.
type Provider struct {
	token string
}

func New(token string) (*Provider, error) {
	return &Provider{
		token: token,
	}, nil
}

func (p *Provider) Authenticate(ctx context.Context, r *http.Request) (context.Context, error) {
	if p.token == "" {
		return ctx, nil
	}

	token, err := auth.BearerToken(r)

	if err != nil {
		return ctx, err
	}

	if subtle.ConstantTimeCompare([]byte(token), []byte(p.token)) != 1 {
		return ctx, errors.New("invalid token")
	}

	return context.WithValue(ctx, auth.UserContextKey, "token"), nil
}

package client

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/unblurai/unblur/server/api"
)

type HealthService struct {
	Options []RequestOption
}

func NewHealthService(opts ...RequestOption) HealthService {
	return HealthService{
		Options: opts,
	}
}

type Health = api.HealthResponse

func (r *HealthService) Get(ctx context.Context, opts ...RequestOption) (*Health, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	req, _ := http.NewRequestWithContext(ctx, "GET", c.URL+"/api/health", nil)

	resp, err := c.do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	var result Health

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

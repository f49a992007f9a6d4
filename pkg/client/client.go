package client

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/unblurai/unblur/server/api"
)

type Client struct {
	Health HealthService

	Uploads     UploadService
	Refinements RefinementService
}

func New(url string, opts ...RequestOption) *Client {
	opts = append(opts, WithURL(url))

	return &Client{
		Health: NewHealthService(opts...),

		Uploads:     NewUploadService(opts...),
		Refinements: NewRefinementService(opts...),
	}
}

type RequestOption func(*RequestConfig)

type RequestConfig struct {
	URL   string
	Token string

	Client *http.Client
}

func WithURL(url string) RequestOption {
	return func(c *RequestConfig) {
		c.URL = strings.TrimRight(url, "/")
	}
}

func WithToken(token string) RequestOption {
	return func(c *RequestConfig) {
		c.Token = token
	}
}

func WithHTTPClient(client *http.Client) RequestOption {
	return func(c *RequestConfig) {
		c.Client = client
	}
}

func newRequestConfig(opts ...RequestOption) *RequestConfig {
	c := &RequestConfig{
		Client: http.DefaultClient,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *RequestConfig) do(req *http.Request) (*http.Response, error) {
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.Client.Do(req)

	if err != nil {
		return nil, err
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()

		var result api.ErrorResponse

		if err := json.NewDecoder(resp.Body).Decode(&result); err == nil && result.Detail != "" {
			return nil, errors.New(result.Detail)
		}

		return nil, errors.New(resp.Status)
	}

	return resp, nil
}

func Ptr[T any](v T) *T {
	return &v
}

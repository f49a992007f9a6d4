package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/unblurai/unblur/server/api"
)

type RefinementService struct {
	Options []RequestOption
}

func NewRefinementService(opts ...RequestOption) RefinementService {
	return RefinementService{
		Options: opts,
	}
}

type RefinementRequest struct {
	Text        string
	Instruction string
}

type Refinement = api.RefineResponse

type Tuning = api.TuneResponse

// New refines text. A failed refinement is returned as an error carrying the
// server's message.
func (r *RefinementService) New(ctx context.Context, input RefinementRequest, opts ...RequestOption) (*Refinement, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	body, err := json.Marshal(api.RefineRequest{
		OriginalText:          input.Text,
		RefinementInstruction: input.Instruction,
	})

	if err != nil {
		return nil, err
	}

	req, _ := http.NewRequestWithContext(ctx, "POST", c.URL+"/api/refine", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	var result Refinement

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, errors.New(result.Message)
	}

	return &result, nil
}

func (r *RefinementService) Tune(ctx context.Context, input RefinementRequest, opts ...RequestOption) (*Tuning, error) {
	c := newRequestConfig(append(r.Options, opts...)...)

	form := url.Values{
		"text":        {input.Text},
		"instruction": {input.Instruction},
	}

	req, _ := http.NewRequestWithContext(ctx, "POST", c.URL+"/api/tune", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.do(req)

	if err != nil {
		return nil, err
	}

	defer resp.Body.Close()

	var result Tuning

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return &result, nil
}

// Package client talks to a running churnd prediction server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"churn-predictor/internal/common"
	"churn-predictor/internal/features"
	"churn-predictor/internal/ml"
	"churn-predictor/internal/report"

	"github.com/go-resty/resty/v2"
)

// Client calls the churnd HTTP API.
type Client struct {
	base string
	rest *resty.Client
}

// APIError is a non-2xx response of the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("churnd: %d %s", e.Status, e.Message)
}

// RunResponse is a run with its summary as returned by the server.
type RunResponse struct {
	ml.RunResult
	Summary report.Summary `json:"summary"`
}

type errorBody struct {
	Error string `json:"error"`
}

// New creates a client for the server at base. A non-positive timeout uses 30s.
func New(base string, timeout time.Duration) *Client {
	r := resty.New()
	if timeout > 0 {
		r.SetTimeout(timeout)
	} else {
		r.SetTimeout(30 * time.Second) // default fallback
	}
	r.SetHeader("Accept", "application/json")
	return &Client{strings.TrimRight(base, "/"), r}
}

// Predict uploads the table and returns the stored run.
func (c *Client) Predict(ctx context.Context, model common.ModelID, source string, t *features.Table) (*RunResponse, error) {
	req := ml.PredictRequest{
		Model:  model.String(),
		Source: source,
	}
	if t != nil {
		req.Records = t.Records
	}

	resp := &RunResponse{}
	if err := c.do(ctx, http.MethodPost, "/predict", req, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Runs lists up to limit runs, newest first.
func (c *Client) Runs(ctx context.Context, limit int) ([]ml.RunResult, error) {
	var runs []ml.RunResult
	path := "/runs?limit=" + strconv.Itoa(limit)
	if err := c.do(ctx, http.MethodGet, path, nil, &runs); err != nil {
		return nil, err
	}
	return runs, nil
}

// Run returns one stored run with its predictions.
func (c *Client) Run(ctx context.Context, id string) (*RunResponse, error) {
	resp := &RunResponse{}
	if err := c.do(ctx, http.MethodGet, "/runs/"+id, nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// DeleteRun removes a stored run and its predictions.
func (c *Client) DeleteRun(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/runs/"+id, nil, nil)
}

// Model returns the artifact metadata of a model.
func (c *Client) Model(ctx context.Context, id common.ModelID) (*ml.ModelInfoResponse, error) {
	resp := &ml.ModelInfoResponse{}
	if err := c.do(ctx, http.MethodGet, "/models/"+id.String(), nil, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Health returns nil when every model is ready.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

// Ready checks that the server can serve model before a table is uploaded. A degraded
// server is accepted as long as model itself is loaded.
func (c *Client) Ready(ctx context.Context, model common.ModelID) (*ml.ModelInfoResponse, error) {
	if err := c.Health(ctx); err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return nil, err
		}
	}
	return c.Model(ctx, model)
}

func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	apiErr := &errorBody{}
	r := c.rest.R().
		SetContext(ctx).
		SetError(apiErr)
	if body != nil {
		r.SetBody(body)
	}
	if result != nil {
		r.SetResult(result)
	}

	resp, err := r.Execute(method, c.base+path)
	if err != nil {
		return fmt.Errorf("churnd %s %s: %w", method, path, err)
	}
	if resp.IsError() {
		msg := apiErr.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return &APIError{Status: resp.StatusCode(), Message: msg}
	}
	return nil
}

package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"

	apihttp "github.com/GriffinCanCode/MicroMind/backend/internal/api/http"
	"github.com/GriffinCanCode/MicroMind/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/MicroMind/backend/internal/orchestrator"
	"github.com/GriffinCanCode/MicroMind/backend/internal/shared/id"
)

// ErrServer marks 5xx responses so the breaker counts them as failures
var ErrServer = errors.New("server error")

// APIError is a non-2xx response from the orchestrator API
type APIError struct {
	Status  int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

// Unwrap lets errors.Is(err, ErrServer) match 5xx responses
func (e *APIError) Unwrap() error {
	if e.Status >= http.StatusInternalServerError {
		return ErrServer
	}
	return nil
}

// Config configures a Client
type Config struct {
	BaseURL string
	Timeout time.Duration
	// Retries applies to 503 responses (full queue) and connection errors
	Retries int
	// RateLimit caps requests per second; zero is unlimited
	RateLimit float64
}

// DefaultConfig returns a client configuration for a local server
func DefaultConfig() Config {
	return Config{
		BaseURL: "http://localhost:8888",
		Timeout: 30 * time.Second,
		Retries: 3,
	}
}

// Client talks to the orchestrator HTTP API
type Client struct {
	resty   *resty.Client
	breaker *resilience.Breaker

	mu      sync.RWMutex
	limiter *rate.Limiter
}

// New creates a client with a circuit breaker and optional rate limit
func New(cfg Config) *Client {
	r := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetTransport(&retryablehttp.RoundTripper{Client: newRetryClient(cfg.Retries)}).
		SetHeader("User-Agent", "MicroMind-Client/1.0").
		SetHeader("Accept", "application/json")

	breaker := resilience.New("micromind-api", resilience.Settings{
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     10 * time.Second,
		ReadyToTrip: resilience.ConsecutiveFailures(5),
	})

	c := &Client{resty: r, breaker: breaker}
	c.SetRateLimit(cfg.RateLimit)
	return c
}

// newRetryClient retries 503 responses and connection errors up to retries
// times. Once retries run out the last response is handed back unchanged so
// the caller still sees the server's error body.
func newRetryClient(retries int) *retryablehttp.Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = max(retries, 0)
	rc.RetryWaitMin = 100 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.CheckRetry = func(ctx context.Context, resp *http.Response, err error) (bool, error) {
		if ctx.Err() != nil {
			return false, ctx.Err()
		}
		if err != nil {
			return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
		}
		return resp.StatusCode == http.StatusServiceUnavailable, nil
	}
	return rc
}

// SetRateLimit configures rate limiting (requests per second)
func (c *Client) SetRateLimit(rps float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
	} else {
		c.limiter = rate.NewLimiter(rate.Limit(rps), max(int(rps), 1))
	}
}

// Breaker returns the client's circuit breaker
func (c *Client) Breaker() *resilience.Breaker {
	return c.breaker
}

// do runs one request through the limiter and breaker. Non-2xx responses
// become *APIError; only 5xx and transport errors trip the breaker.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (*resty.Response, error) {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var resp *resty.Response
	var apiErr error
	err := c.breaker.Execute(func() error {
		req := c.resty.R().SetContext(ctx)
		if body != nil {
			req.SetBody(body)
		}
		if out != nil {
			req.SetResult(out)
		}

		var err error
		resp, err = req.Execute(method, path)
		if err != nil {
			return err
		}
		if resp.IsError() {
			apiErr = decodeError(resp)
			if errors.Is(apiErr, ErrServer) {
				return apiErr
			}
		}
		return nil
	})
	if err != nil {
		return resp, err
	}
	return resp, apiErr
}

func decodeError(resp *resty.Response) *APIError {
	e := &APIError{Status: resp.StatusCode()}
	if err := sonic.Unmarshal(resp.Body(), e); err != nil || e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode())
	}
	return e
}

// Health is the body of GET /health
type Health struct {
	Status       string             `json:"status"`
	Orchestrator orchestrator.Stats `json:"orchestrator"`
}

// Health fetches orchestrator statistics
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	if _, err := c.do(ctx, http.MethodGet, "/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ModuleList is the body of GET /modules
type ModuleList struct {
	Modules []string `json:"modules"`
	Kinds   []string `json:"kinds"`
}

// Modules lists modules in execution order and the kinds the server can build
func (c *Client) Modules(ctx context.Context) (*ModuleList, error) {
	var out ModuleList
	if _, err := c.do(ctx, http.MethodGet, "/modules", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// AddModule adds a stock module of kind at the head of the pipeline
func (c *Client) AddModule(ctx context.Context, kind, name string) error {
	_, err := c.do(ctx, http.MethodPost, "/modules", apihttp.AddModuleRequest{Kind: kind, Name: name}, nil)
	return err
}

// RemoveModule removes the newest module named name
func (c *Client) RemoveModule(ctx context.Context, name string) error {
	_, err := c.do(ctx, http.MethodDelete, "/modules/"+name, nil, nil)
	return err
}

// Process submits text and waits for the processed record. When modules
// fail the record is returned along with an *APIError.
func (c *Client) Process(ctx context.Context, text string) (*apihttp.RecordResponse, error) {
	var out apihttp.RecordResponse
	resp, err := c.do(ctx, http.MethodPost, "/records", apihttp.SubmitRequest{Text: text}, &out)

	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnprocessableEntity {
		if uerr := sonic.Unmarshal(resp.Body(), &out); uerr != nil {
			return nil, err
		}
		return &out, err
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ProcessRaw uploads a plain text or HTML body and waits for the processed
// record. contentType may carry a charset parameter.
func (c *Client) ProcessRaw(ctx context.Context, body []byte, contentType string) (*apihttp.RecordResponse, error) {
	c.mu.RLock()
	limiter := c.limiter
	c.mu.RUnlock()
	if err := limiter.Wait(ctx); err != nil {
		return nil, err
	}

	var out apihttp.RecordResponse
	var resp *resty.Response
	err := c.breaker.Execute(func() error {
		var err error
		resp, err = c.resty.R().
			SetContext(ctx).
			SetHeader("Content-Type", contentType).
			SetBody(body).
			Post("/records/raw")
		if err != nil {
			return err
		}
		if resp.StatusCode() >= http.StatusInternalServerError {
			return decodeError(resp)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if uerr := sonic.Unmarshal(resp.Body(), &out); uerr != nil || out.Record.ID == "" {
		if resp.IsError() {
			return nil, decodeError(resp)
		}
		return nil, fmt.Errorf("decode record: %w", uerr)
	}
	if resp.IsError() {
		return &out, decodeError(resp)
	}
	return &out, nil
}

// Submit queues text without waiting and returns the record ID
func (c *Client) Submit(ctx context.Context, text string) (id.RecordID, error) {
	var out struct {
		RecordID id.RecordID `json:"record_id"`
	}
	if _, err := c.do(ctx, http.MethodPost, "/records", apihttp.SubmitRequest{Text: text, Async: true}, &out); err != nil {
		return "", err
	}
	return out.RecordID, nil
}

package functions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-edu-portal/internal/errors"
	"github.com/jrsteele09/go-edu-portal/internal/metrics"
	pkgerrors "github.com/pkg/errors"
	"github.com/sony/gobreaker"
)

const (
	FunctionChat        = "chat"
	FunctionPaymentLink = "payment-link"
)

// StatusError is a non-2xx reply from a function.
type StatusError struct {
	Function string
	Status   int
	Message  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("function %s returned %d: %s", e.Function, e.Status, e.Message)
}

// Client invokes the portal's hosted functions. Calls go through a circuit
// breaker that opens after repeated server-side failures.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	breaker *gobreaker.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.http = c
	}
}

func New(baseURL, apiKey string, timeout time.Duration, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, pkgerrors.New("[functions New] base URL is required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "functions",
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// Client errors are the caller's fault and do not trip the breaker.
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return se.Status < http.StatusInternalServerError
			}
			return err == nil
		},
	})
	return c, nil
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatResponse struct {
	Message string `json:"message"`
}

// Chat sends one message to the assistant function and returns its reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", pkgerrors.New("[Chat] message is required")
	}
	var resp chatResponse
	if err := c.invoke(ctx, FunctionChat, chatRequest{Message: message}, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

type paymentLinkRequest struct {
	Plan   string `json:"plan"`
	UserID string `json:"userId"`
}

type paymentLinkResponse struct {
	URL string `json:"url"`
}

// PaymentLink asks for a checkout URL for plan on behalf of userID.
func (c *Client) PaymentLink(ctx context.Context, plan, userID string) (string, error) {
	if plan == "" || userID == "" {
		return "", pkgerrors.New("[PaymentLink] plan and user are required")
	}
	var resp paymentLinkResponse
	if err := c.invoke(ctx, FunctionPaymentLink, paymentLinkRequest{Plan: plan, UserID: userID}, &resp); err != nil {
		return "", err
	}
	if resp.URL == "" {
		return "", pkgerrors.New("[PaymentLink] function returned no url")
	}
	return resp.URL, nil
}

func (c *Client) invoke(ctx context.Context, name string, in, out any) (err error) {
	defer func() {
		outcome := "ok"
		if err != nil {
			outcome = "error"
		}
		metrics.FunctionCalls.WithLabelValues(name, outcome).Inc()
	}()

	_, err = c.breaker.Execute(func() (interface{}, error) {
		return nil, c.call(ctx, name, in, out)
	})
	if pkgerrors.Is(err, gobreaker.ErrOpenState) || pkgerrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.Wrapf(errors.ErrFunctionUnavailable, "function %s", name)
	}
	return err
}

func (c *Client) call(ctx context.Context, name string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return pkgerrors.Wrap(err, "[functions call] marshal")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/"+name, bytes.NewReader(body))
	if err != nil {
		return pkgerrors.Wrap(err, "[functions call] request")
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrapf(err, "[functions call] %s", name)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return pkgerrors.Wrapf(err, "[functions call] read %s", name)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(raw))
		if json.Unmarshal(raw, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &StatusError{Function: name, Status: resp.StatusCode, Message: msg}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrapf(err, "[functions call] decode %s", name)
	}
	return nil
}

// Package stripe is a minimal client for the payment processor's
// payment-intent API. It holds no local state; linking intents to orders is
// the caller's responsibility.
package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-faster/errors"
)

const (
	defaultBaseURL = "https://api.stripe.com"
	defaultTimeout = 30 * time.Second
)

// ProcessorError carries the processor's diagnostic for a rejected or failed
// request. Requests are never retried by this client.
type ProcessorError struct {
	HTTPStatus int
	Code       string
	Message    string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("payment processor error (status %d, code %q): %s", e.HTTPStatus, e.Code, e.Message)
}

// PaymentIntent is the processor's opaque intent handle, returned verbatim.
type PaymentIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
	Status       string `json:"status"`
}

// Client issues requests against the processor's HTTP API.
type Client struct {
	baseURL    string
	secretKey  string
	httpClient *http.Client
}

// Option customizes a Client.
type Option func(*Client)

// WithBaseURL overrides the processor endpoint, used by tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// NewClient creates a Client authenticated with the given secret key.
func NewClient(secretKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    defaultBaseURL,
		secretKey:  secretKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreatePaymentIntent creates an intent for the given minor-unit amount with
// automatic payment-method selection enabled.
func (c *Client) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string) (*PaymentIntent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinorUnits, 10))
	form.Set("currency", currency)
	form.Set("automatic_payment_methods[enabled]", "true")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/v1/payment_intents", strings.NewReader(form.Encode()))
	if err != nil {
		return nil, errors.Wrap(err, "build intent request")
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &ProcessorError{Code: "network_error", Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, errors.Wrap(err, "read intent response")
	}

	if resp.StatusCode != http.StatusOK {
		return nil, parseError(resp.StatusCode, body)
	}

	var intent PaymentIntent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, errors.Wrap(err, "decode intent response")
	}
	return &intent, nil
}

func parseError(status int, body []byte) *ProcessorError {
	var wrapper struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil || wrapper.Error.Message == "" {
		return &ProcessorError{HTTPStatus: status, Message: strings.TrimSpace(string(body))}
	}
	return &ProcessorError{
		HTTPStatus: status,
		Code:       wrapper.Error.Code,
		Message:    wrapper.Error.Message,
	}
}

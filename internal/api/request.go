package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Exchange error codes the client reacts to.
const (
	CodeInvalidSession = "INVALID_SESSION_INFORMATION"
	CodeNoSession      = "NO_SESSION"
)

// APIError represents an HTTP-level error from the exchange.
type APIError struct {
	StatusCode int
	Message    string
	Code       string // Exchange error code parsed from the body, if any
	Body       []byte
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("exchange api error %d: %s (%s)", e.StatusCode, e.Message, e.Code)
	}
	return fmt.Sprintf("exchange api error %d: %s", e.StatusCode, e.Message)
}

// IsRetryable returns true if the error should trigger a retry.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

// VenueError is a well-formed response reporting a failed operation.
type VenueError struct {
	Operation string
	Code      string
}

func (e *VenueError) Error() string {
	return fmt.Sprintf("exchange %s failed: %s", e.Operation, e.Code)
}

// IsVenueError reports whether err was reported by the exchange itself.
func IsVenueError(err error) bool {
	var apiErr *APIError
	var venueErr *VenueError
	return errors.As(err, &apiErr) || errors.As(err, &venueErr)
}

// errorBody is the fault envelope returned with 4xx/5xx responses.
type errorBody struct {
	FaultString string `json:"faultstring"`
	Detail      struct {
		APINGException struct {
			ErrorCode    string `json:"errorCode"`
			ErrorDetails string `json:"errorDetails"`
		} `json:"APINGException"`
		AccountAPINGException struct {
			ErrorCode string `json:"errorCode"`
		} `json:"AccountAPINGException"`
	} `json:"detail"`
}

func (b errorBody) code() string {
	switch {
	case b.Detail.APINGException.ErrorCode != "":
		return b.Detail.APINGException.ErrorCode
	case b.Detail.AccountAPINGException.ErrorCode != "":
		return b.Detail.AccountAPINGException.ErrorCode
	}
	return b.FaultString
}

// request describes one HTTP call.
type request struct {
	method      string
	url         string
	contentType string
	body        []byte
	headers     map[string]string
}

// doRequest performs an HTTP request.
func (c *Client) doRequest(ctx context.Context, r request) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var reader io.Reader
	if r.body != nil {
		reader = bytes.NewReader(r.body)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, r.url, reader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{
			StatusCode: resp.StatusCode,
			Message:    http.StatusText(resp.StatusCode),
			Body:       body,
		}
		var eb errorBody
		if json.Unmarshal(body, &eb) == nil {
			apiErr.Code = eb.code()
		}
		if apiErr.Code == CodeInvalidSession || apiErr.Code == CodeNoSession {
			c.markSessionInvalid()
		}
		return nil, apiErr
	}

	return body, nil
}

// doWithRetry performs a request with exponential backoff retry.
func (c *Client) doWithRetry(ctx context.Context, r request) ([]byte, error) {
	var lastErr error
	backoff := c.retryBackoff

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Add jitter: backoff * (0.5 to 1.5)
			jitter := backoff/2 + time.Duration(rand.Int64N(int64(backoff)))
			c.logger.Debug("retrying request",
				"attempt", attempt,
				"backoff", jitter,
				"url", r.url,
			)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(jitter):
			}

			backoff *= 2
		}

		body, err := c.doRequest(ctx, r)
		if err == nil {
			return body, nil
		}

		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.IsRetryable() {
			return nil, err
		}
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// post sends params as JSON to an operation endpoint and decodes the result.
func (c *Client) post(ctx context.Context, baseURL, operation string, params, result any) error {
	payload, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	body, err := c.doWithRetry(ctx, request{
		method:      http.MethodPost,
		url:         strings.TrimRight(baseURL, "/") + "/" + operation + "/",
		contentType: "application/json",
		body:        payload,
		headers:     c.creds.Headers(c.SessionToken()),
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// postForm sends a form to an identity endpoint. Identity calls are not
// retried: a repeated login counts against the exchange login limit.
func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values, headers map[string]string, result any) error {
	var payload []byte
	if form != nil {
		payload = []byte(form.Encode())
	}

	body, err := c.doRequest(ctx, request{
		method:      http.MethodPost,
		url:         endpoint,
		contentType: "application/x-www-form-urlencoded",
		body:        payload,
		headers:     headers,
	})
	if err != nil {
		return err
	}

	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

// identityHeaders returns headers for identity calls.
func (c *Client) identityHeaders(withSession bool) map[string]string {
	token := ""
	if withSession {
		token = c.SessionToken()
	}
	return c.creds.Headers(token)
}

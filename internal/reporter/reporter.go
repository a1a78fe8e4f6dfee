// Package reporter talks to the PaceMan HTTP API.
package reporter

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/sjson"

	"github.com/pacemangg/aatracker/internal/resilience"
)

const (
	DefaultSendEndpoint = "https://paceman.gg/api/aa/send"
	DefaultKillEndpoint = "https://paceman.gg/api/aa/kill"
	DefaultTestEndpoint = "https://paceman.gg/api/test"

	// MinDenyCode is the first status treated as a rejection.
	MinDenyCode = 400

	accessKeyField = "accessKey"
	maxErrorBody   = 64 << 10
)

// Endpoints groups the three PaceMan URLs.
type Endpoints struct {
	Send string
	Kill string
	Test string
}

// DefaultEndpoints returns the production endpoints.
func DefaultEndpoints() Endpoints {
	return Endpoints{Send: DefaultSendEndpoint, Kill: DefaultKillEndpoint, Test: DefaultTestEndpoint}
}

// Response is the interpreted answer to a POST.
type Response struct {
	Code    int
	Message string
	// RequestID is the X-Request-Id sent with the request.
	RequestID string
}

// OK reports whether the server accepted the request.
func (r Response) OK() bool { return r.Code < MinDenyCode }

// Err converts a rejection into a classified error, nil when accepted.
func (r Response) Err() error {
	if r.OK() {
		return nil
	}
	return resilience.NewStatusError(r.Code, r.Message)
}

// Sender posts JSON bodies. The tracker depends on this rather than on *Client.
type Sender interface {
	Send(ctx context.Context, url string, body []byte) (Response, error)
}

// Client performs exactly one attempt per call; retry decisions belong to the caller.
type Client struct {
	http      *http.Client
	userAgent string
}

// NewClient creates a client. A zero timeout leaves requests bounded only by ctx.
func NewClient(timeout time.Duration, version string) *Client {
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: "paceman-aa-tracker/" + strings.TrimPrefix(version, "v"),
	}
}

// Send POSTs body as JSON. For status >= 400 the message is the response body,
// otherwise the status text.
func (c *Client) Send(ctx context.Context, url string, body []byte) (Response, error) {
	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Response{}, resilience.NewPermanentError(fmt.Errorf("build request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-Id", requestID)

	resp, err := c.http.Do(req)
	if err != nil {
		return Response{RequestID: requestID}, err
	}
	defer resp.Body.Close()

	out := Response{Code: resp.StatusCode, RequestID: requestID}
	if resp.StatusCode >= MinDenyCode {
		b, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		out.Message = strings.TrimSpace(string(b))
		if err != nil {
			out.Message = strings.TrimSpace(fmt.Sprintf("%s (error body unreadable: %v)", out.Message, err))
		}
		return out, nil
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	out.Message = strings.TrimSpace(strings.TrimPrefix(resp.Status, fmt.Sprintf("%d", resp.StatusCode)))
	return out, nil
}

// WithAccessKey appends the access key as the last member of a JSON object.
func WithAccessKey(body []byte, accessKey string) ([]byte, error) {
	return sjson.SetBytes(body, accessKeyField, accessKey)
}

// AccessKeyBody is the body of kill and test requests.
func AccessKeyBody(accessKey string) ([]byte, error) {
	return WithAccessKey([]byte("{}"), accessKey)
}

// TestKey checks a candidate access key against the test endpoint.
func TestKey(ctx context.Context, s Sender, endpoint, accessKey string) (Response, error) {
	body, err := AccessKeyBody(accessKey)
	if err != nil {
		return Response{}, err
	}
	return s.Send(ctx, endpoint, body)
}

// Package api is the REST client for the rentdirect backend. Every endpoint
// answers with a tagged Envelope; Unwrap turns it into data or *Error.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"golang.org/x/time/rate"

	"rentdirect/internal/logging"
	"rentdirect/pkg/interfaces"
	"rentdirect/pkg/types"
)

const userAgent = "rentdirect-cli/1.0"

// Options configures NewClient.
type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
	Tokens            interfaces.TokenSource
	HTTPClient        *http.Client
	Logger            hclog.Logger
}

// Client sends JSON requests to the REST root and decodes envelopes.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	tokens  interfaces.TokenSource
	logger  hclog.Logger

	Auth       *AuthEndpoints
	Properties *PropertyEndpoints
	Deals      *DealEndpoints
	Chat       *ChatEndpoints
	Admin      *AdminEndpoints
}

// NewClient builds a client for opts.BaseURL (the REST root including /api).
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	c := &Client{
		baseURL: strings.TrimRight(opts.BaseURL, "/"),
		http:    httpClient,
		limiter: rate.NewLimiter(limit, burst),
		tokens:  opts.Tokens,
		logger:  logging.OrNull(opts.Logger),
	}
	c.Auth = &AuthEndpoints{c: c}
	c.Properties = &PropertyEndpoints{c: c}
	c.Deals = &DealEndpoints{c: c}
	c.Chat = &ChatEndpoints{c: c}
	c.Admin = &AdminEndpoints{c: c}
	return c
}

// SetTokenSource installs the bearer token provider. The session store is
// built after the client, so the app wires it late.
func (c *Client) SetTokenSource(tokens interfaces.TokenSource) {
	c.tokens = tokens
}

// BaseURL returns the REST root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method string
	path   string
	query  url.Values
	body   any
	// token overrides the TokenSource when set.
	token string
}

// do performs one request and decodes the envelope body into out, returning
// the HTTP status. A decodable envelope is accepted whatever the status;
// errors are reserved for requests that produced none.
func (c *Client) do(ctx context.Context, cl call, out any) (int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRateLimited, err)
	}

	endpoint := c.baseURL + cl.path
	if len(cl.query) > 0 {
		endpoint += "?" + cl.query.Encode()
	}

	var bodyReader io.Reader
	if cl.body != nil {
		data, err := json.Marshal(cl.body)
		if err != nil {
			return 0, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, endpoint, bodyReader)
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	c.addHeaders(req, cl.token)
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("request failed", "method", cl.method, "path", cl.path, "error", err)
		return 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	c.logger.Debug("request completed", "method", cl.method, "path", cl.path,
		"status", resp.StatusCode, "duration", time.Since(start))
	status := resp.StatusCode

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return status, &Error{Message: InvalidResponseError, StatusCode: status, Err: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		if status >= 400 {
			return status, &Error{Message: fmt.Sprintf("Request failed with status %d", status), StatusCode: status}
		}
		return status, json.Unmarshal([]byte(`{"success":true}`), out)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		if status >= 400 {
			return status, &Error{Message: fmt.Sprintf("Request failed with status %d", status), StatusCode: status, Err: err}
		}
		return status, &Error{Message: InvalidResponseError, StatusCode: status, Err: err}
	}
	return status, nil
}

func (c *Client) addHeaders(req *http.Request, token string) {
	if token == "" && c.tokens != nil {
		token = c.tokens.Token()
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("X-Request-ID", uuid.NewString())
}

// send performs cl and returns the decoded envelope with StatusCode filled in.
// Error statuses always produce a failed envelope.
func send[T any](ctx context.Context, c *Client, cl call) (*types.Envelope[T], error) {
	var env types.Envelope[T]
	status, err := c.do(ctx, cl, &env)
	if err != nil {
		return nil, err
	}
	env.StatusCode = status
	if status >= 400 {
		env.Success = false
		if env.Error == "" && env.Message == "" {
			env.Error = fmt.Sprintf("Request failed with status %d", status)
		}
	}
	return &env, nil
}

// pageQuery merges page and limit into q without mutating it.
func pageQuery(q url.Values, page, limit int) url.Values {
	out := url.Values{}
	for k, v := range q {
		out[k] = append([]string(nil), v...)
	}
	if page > 0 {
		out.Set("page", fmt.Sprint(page))
	}
	if limit > 0 {
		out.Set("limit", fmt.Sprint(limit))
	}
	return out
}

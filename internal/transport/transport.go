// Package transport performs the JSON and form-encoded HTTP calls made by
// the authentication pipeline and classifies upstream failures.
package transport

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

	"github.com/heyztb/go-mcauth/pkg/autherr"
	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout applies when NewClient is given a zero timeout.
	DefaultTimeout = 30 * time.Second

	// maxResponseBytes caps response body reads. Every endpoint we talk
	// to answers with small JSON documents or a login page.
	maxResponseBytes = 2 * 1024 * 1024
)

// Client sends requests on behalf of the auth services.
type Client struct {
	HTTPClient *http.Client
}

// NewClient builds a Client routed through proxy (nil for a direct
// connection) with the given timeout.
func NewClient(proxy *url.URL, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	tr := http.DefaultTransport.(*http.Transport).Clone()
	if proxy != nil {
		tr.Proxy = http.ProxyURL(proxy)
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   timeout,
			Transport: tr,
		},
	}
}

// Default returns a Client with no proxy and the default timeout.
func Default() *Client {
	return NewClient(nil, 0)
}

// PostJSON marshals body as JSON and decodes the response into result.
// A nil result discards the response body.
func (c *Client) PostJSON(ctx context.Context, endpoint string, body, result any, headers map[string]string) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshalling request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return requestErr(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	return c.do(req, result, headers)
}

// PostForm sends form as application/x-www-form-urlencoded.
func (c *Client) PostForm(ctx context.Context, endpoint string, form url.Values, result any, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return requestErr(endpoint, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	return c.do(req, result, headers)
}

// Get performs a bodyless GET.
func (c *Client) Get(ctx context.Context, endpoint string, result any, headers map[string]string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return requestErr(endpoint, err)
	}
	req.Header.Set("Accept", "application/json")
	return c.do(req, result, headers)
}

func (c *Client) do(req *http.Request, result any, headers map[string]string) error {
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	endpoint := req.URL.String()

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return requestErr(endpoint, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return requestErr(endpoint, fmt.Errorf("reading response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return classify(endpoint, resp.StatusCode, body)
	}
	// The legacy and device code endpoints may report failures with a 2xx
	// status and an error document.
	if gjson.ValidBytes(body) && gjson.GetBytes(body, "error").String() != "" {
		return classify(endpoint, resp.StatusCode, body)
	}

	// 204 leaves result untouched; callers treat a zero value as "absent".
	if result == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &autherr.RequestError{URL: endpoint, StatusCode: resp.StatusCode, Message: "server returned an empty response"}
	}
	if err := json.Unmarshal(body, result); err != nil {
		return &autherr.RequestError{URL: endpoint, StatusCode: resp.StatusCode, Message: "decoding response", Body: body, Err: err}
	}
	return nil
}

// Classify turns an error document into a RequestError whose Kind follows
// the upstream error code. It is exported for callers that talk to an
// endpoint with a raw http.Client.
func Classify(endpoint string, status int, body []byte) error {
	return classify(endpoint, status, body)
}

func classify(endpoint string, status int, body []byte) error {
	e := &autherr.RequestError{URL: endpoint, StatusCode: status, Body: body}
	if !gjson.ValidBytes(body) {
		e.Message = sanitize(body)
		if e.Message == "" {
			e.Message = http.StatusText(status)
		}
		return e
	}

	doc := gjson.ParseBytes(body)
	e.Code = doc.Get("error").String()
	cause := doc.Get("cause").String()
	e.Message = firstNonEmpty(
		doc.Get("error_description").String(),
		doc.Get("errorMessage").String(),
		doc.Get("Message").String(),
		doc.Get("description").String(),
		http.StatusText(status),
	)

	switch e.Code {
	case "ForbiddenOperationException":
		if cause == "UserMigratedException" {
			e.Kind = autherr.ErrUserMigrated
		} else {
			e.Kind = autherr.ErrInvalidCredentials
		}
	case "authorization_pending", "slow_down":
		e.Kind = autherr.ErrAuthPending
	case "invalid_grant", "expired_token", "bad_verification_code", "authorization_declined":
		e.Kind = autherr.ErrInvalidCredentials
	}
	return e
}

func requestErr(endpoint string, err error) error {
	return &autherr.RequestError{URL: endpoint, Err: err}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

// sanitize truncates a non-JSON body for inclusion in error messages and
// drops control characters.
func sanitize(body []byte) string {
	const maxLen = 256
	s := strings.ToValidUTF8(string(body), "?")
	if len(s) > maxLen {
		s = s[:maxLen]
	}
	return strings.Map(func(r rune) rune {
		if r < 0x20 && r != '\n' && r != '\t' {
			return '?'
		}
		return r
	}, strings.TrimSpace(s))
}

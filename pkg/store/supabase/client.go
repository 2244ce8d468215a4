package supabase

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

	"github.com/matzehuels/memorywall/pkg/buildinfo"
	"github.com/matzehuels/memorywall/pkg/cache"
	"github.com/matzehuels/memorywall/pkg/errors"
)

// Config configures the PostgREST client.
type Config struct {
	// ProjectURL is the project root, e.g. https://abc.supabase.co.
	ProjectURL string
	// Key is sent both as the apikey header and as a bearer token.
	Key string
	// HTTPClient defaults to a client with a 30s timeout.
	HTTPClient *http.Client
}

// apiError is the PostgREST error body.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

type client struct {
	http   *http.Client
	prefix string
	key    string
}

func newClient(cfg Config) (*client, error) {
	if cfg.ProjectURL == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "supabase project URL is required")
	}
	if err := errors.ValidateURL(cfg.ProjectURL); err != nil {
		return nil, err
	}
	if cfg.Key == "" {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "supabase key is required")
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: 30 * time.Second}
	}
	return &client{
		http:   hc,
		prefix: strings.TrimRight(cfg.ProjectURL, "/") + "/rest/v1",
		key:    cfg.Key,
	}, nil
}

// do sends one request and decodes the JSON response into out, if non-nil.
// Server errors and transport failures are retried with backoff. A POST that
// hits a primary key violation on a retry is treated as applied, since the
// failed attempt may have committed before the error reached us. Rows carry
// client-generated IDs, so that violation can only be our own earlier write.
func (c *client) do(ctx context.Context, method, path string, query url.Values, prefer string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
	}
	u := c.prefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	attempt := 0
	return cache.RetryWithBackoff(ctx, func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, method, u, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("apikey", c.key)
		req.Header.Set("Authorization", "Bearer "+c.key)
		req.Header.Set("Accept", "application/json")
		req.Header.Set("User-Agent", buildinfo.UserAgent())
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if prefer != "" {
			req.Header.Set("Prefer", prefer)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return errors.Wrap(errors.ErrCodeTimeout, err, "%s %s", method, path)
			}
			return cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "%s %s", method, path))
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return cache.Retryable(errors.Wrap(errors.ErrCodeNetwork, err, "read response"))
		}
		if attempt > 1 && method == http.MethodPost && replayed(resp.StatusCode, data) {
			return nil
		}
		if resp.StatusCode >= 300 {
			return statusError(method, path, resp.StatusCode, data)
		}
		if out == nil || len(data) == 0 {
			return nil
		}
		if err := json.Unmarshal(data, out); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidFormat, err, "decode %s response", path)
		}
		return nil
	})
}

func statusError(method, path string, status int, body []byte) error {
	var ae apiError
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &ae) == nil && ae.Message != "" {
		msg = ae.Message
	}

	var code errors.Code
	switch {
	case status >= 500:
		return cache.Retryable(errors.New(errors.ErrCodeNetwork, "%s %s: %d %s", method, path, status, msg))
	case status == http.StatusConflict || ae.Code == "23505":
		code = errors.ErrCodeConflict
	case status == http.StatusUnauthorized:
		code = errors.ErrCodeUnauthorized
	case status == http.StatusForbidden:
		code = errors.ErrCodeForbidden
	case status == http.StatusNotFound:
		code = errors.ErrCodeNotFound
	default:
		code = errors.ErrCodeInvalidInput
	}
	return &errors.Error{Code: code, Message: fmt.Sprintf("%s %s: %s", method, path, msg)}
}

// replayed reports whether a response is a primary key violation, which on a
// retried insert means the previous attempt went through.
func replayed(status int, body []byte) bool {
	if status != http.StatusConflict {
		return false
	}
	var ae apiError
	if json.Unmarshal(body, &ae) != nil {
		return false
	}
	return ae.Code == "23505" && strings.Contains(ae.Message, "_pkey")
}

func eq(v string) string { return "eq." + v }

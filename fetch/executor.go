package fetch

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
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/sync/singleflight"

	"github.com/krisalay/swrcache/types"
)

const (
	// DefaultTimeout bounds one request end to end.
	DefaultTimeout = 15 * time.Second

	// RequestIDHeader carries a fresh uuid on every outbound request.
	RequestIDHeader = "X-Request-ID"
)

var _ types.Fetcher = (*Executor)(nil)

/*
Executor sends requests to the REST API and classifies failures.

Reads go through Fetch, which is the cache's types.Fetcher. Identical GETs
running at the same time share one round trip. Writes go through Do and are
never shared.
*/
type Executor struct {
	base   string
	client *http.Client
	log    *logrus.Entry

	sf singleflight.Group
}

type Option func(*Executor)

// WithHTTPClient replaces the default client. Its Timeout is kept as is.
func WithHTTPClient(c *http.Client) Option {
	return func(e *Executor) { e.client = c }
}

func WithTimeout(d time.Duration) Option {
	return func(e *Executor) {
		if d > 0 {
			e.client.Timeout = d
		}
	}
}

func WithLogger(log *logrus.Entry) Option {
	return func(e *Executor) {
		if log != nil {
			e.log = log
		}
	}
}

// New creates an Executor for baseURL, e.g. https://dummyjson.com.
func New(baseURL string, opts ...Option) (*Executor, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("fetch: parse base url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("fetch: base url %q must be absolute http(s)", baseURL)
	}

	e := &Executor{
		base:   strings.TrimRight(u.String(), "/"),
		client: &http.Client{Timeout: DefaultTimeout},
		log:    logrus.NewEntry(logrus.StandardLogger()),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.log = e.log.WithField("component", "fetch")
	return e, nil
}

// BaseURL returns the normalised base URL.
func (e *Executor) BaseURL() string {
	return e.base
}

// URL resolves a key path (with query) against the base URL.
func (e *Executor) URL(path string) string {
	return e.base + "/" + strings.TrimLeft(path, "/")
}

// Fetch implements types.Fetcher with a GET of key.
func (e *Executor) Fetch(ctx context.Context, key types.Key) (json.RawMessage, error) {
	target := e.URL(key.String())
	v, err, shared := e.sf.Do(target, func() (any, error) {
		return e.Get(ctx, key.String())
	})
	if shared {
		e.log.WithField("url", target).Debug("shared in-flight request")
	}
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

func (e *Executor) Get(ctx context.Context, path string) (json.RawMessage, error) {
	return e.Do(ctx, http.MethodGet, path, nil)
}

func (e *Executor) Post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return e.Do(ctx, http.MethodPost, path, body)
}

func (e *Executor) Put(ctx context.Context, path string, body any) (json.RawMessage, error) {
	return e.Do(ctx, http.MethodPut, path, body)
}

func (e *Executor) Delete(ctx context.Context, path string) (json.RawMessage, error) {
	return e.Do(ctx, http.MethodDelete, path, nil)
}

/*
Do sends one request and returns the JSON body of a 2xx response.

ERRORS:
-------
- *NetworkError: no response (dial, timeout, cancelled, truncated body)
- *HTTPError:    non-2xx status
- *DecodeError:  2xx with a body that is not JSON
*/
func (e *Executor) Do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	target := e.URL(path)

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("fetch: encode %s body: %w", method, err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	reqID := uuid.NewString()
	req.Header.Set(RequestIDHeader, reqID)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	log := e.log.WithFields(logrus.Fields{
		"method":     method,
		"url":        target,
		"request_id": reqID,
	})
	start := time.Now()

	resp, err := e.client.Do(req)
	if err != nil {
		log.WithError(err).Debug("request failed")
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Method: method, URL: target, Err: err}
	}

	log = log.WithFields(logrus.Fields{
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Debug("request rejected")
		return nil, &HTTPError{
			Method:  method,
			URL:     target,
			Status:  resp.StatusCode,
			Body:    raw,
			Message: gjson.GetBytes(raw, "message").String(),
		}
	}
	if !json.Valid(raw) {
		log.Debug("response is not json")
		return nil, &DecodeError{URL: target, Body: raw}
	}

	log.Debug("request completed")
	return json.RawMessage(raw), nil
}

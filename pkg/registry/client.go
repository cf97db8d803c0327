package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gitsu-io/gitsu/pkg/cache"
	"github.com/gitsu-io/gitsu/pkg/errors"
	"github.com/gitsu-io/gitsu/pkg/hooks"
	"github.com/gitsu-io/gitsu/pkg/httputil"
)

// Client queries a component registry over HTTP, caching lookups and
// retrying transient failures.
type Client struct {
	base  string
	http  *http.Client
	cache cache.Cache
	keyer cache.Keyer
	ttl   time.Duration
}

// ClientOptions configures a registry client.
type ClientOptions struct {
	// Cache stores lookup responses. Nil disables caching.
	Cache cache.Cache

	// TTL bounds cached lookup freshness. 0 caches forever.
	TTL time.Duration

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// NewClient creates a client for the registry at base.
func NewClient(base string, opts ClientOptions) *Client {
	c := &Client{
		base:  strings.TrimRight(base, "/"),
		http:  opts.HTTPClient,
		cache: opts.Cache,
		keyer: cache.NewDefaultKeyer(),
		ttl:   opts.TTL,
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: 30 * time.Second}
	}
	if c.cache == nil {
		c.cache = cache.NewNullCache()
	}
	return c
}

// Lookup resolves a short name to its source URL. Implements the
// resolver.Lookuper contract.
func (c *Client) Lookup(ctx context.Context, name string) (string, error) {
	key := c.keyer.RegistryKey(c.base, name)
	if data, ok, _ := c.cache.Get(ctx, key); ok {
		var entry Entry
		if json.Unmarshal(data, &entry) == nil {
			return entry.URL, nil
		}
	}

	var entry Entry
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.get(ctx, "/packages/"+url.PathEscape(name), &entry)
	})
	if err != nil {
		return "", err
	}

	if data, err := json.Marshal(entry); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
	}
	return entry.URL, nil
}

// Register publishes a name → URL mapping. Inputs are validated before
// the request goes out.
func (c *Client) Register(ctx context.Context, name, sourceURL string) error {
	if err := errors.ValidateComponentName(name); err != nil {
		return err
	}
	if err := errors.ValidateSourceURL(sourceURL); err != nil {
		return err
	}
	body, err := json.Marshal(Entry{Name: name, URL: sourceURL})
	if err != nil {
		return err
	}
	return httputil.RetryWithBackoff(ctx, func() error {
		return c.post(ctx, "/packages", body)
	})
}

// Search returns the entries whose name contains the query.
func (c *Client) Search(ctx context.Context, query string) ([]Entry, error) {
	var entries []Entry
	err := httputil.RetryWithBackoff(ctx, func() error {
		return c.get(ctx, "/packages?search="+url.QueryEscape(query), &entries)
	})
	return entries, err
}

func (c *Client) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return err
	}
	body, err := c.do(req)
	if err != nil {
		return err
	}
	defer body.Close()
	return json.NewDecoder(body).Decode(v)
}

func (c *Client) post(ctx context.Context, path string, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	body, err := c.do(req)
	if err != nil {
		return err
	}
	return body.Close()
}

func (c *Client) do(req *http.Request) (io.ReadCloser, error) {
	start := time.Now()
	hooks.HTTP().OnRequest(req.Context(), req.Method, req.URL.Host, req.URL.Path)
	resp, err := c.http.Do(req)
	if err != nil {
		hooks.HTTP().OnError(req.Context(), req.Method, req.URL.Host, req.URL.Path, err)
		return nil, &httputil.RetryableError{Err: errors.Wrap(errors.ENETWORK, err, "requesting %s", req.URL)}
	}
	hooks.HTTP().OnResponse(req.Context(), req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := checkStatus(resp.StatusCode, req.URL.String()); err != nil {
		resp.Body.Close()
		return nil, err
	}
	return resp.Body, nil
}

func checkStatus(code int, url string) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ENOTFOUND, "%s not found", url)
	case code >= 500:
		return &httputil.RetryableError{Err: errors.New(errors.ENETWORK, "%s: status %d", url, code)}
	default:
		return errors.New(errors.ENETWORK, "%s: status %d", url, code)
	}
}

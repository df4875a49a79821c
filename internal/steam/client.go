// Package steam talks to the Steam store, CDN and web API.
package steam

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/ryanm101/librelauncher/internal/catalog"
)

// Sentinel errors for failed fetches. All of them are transient from the
// pipeline's point of view.
var (
	ErrStatus   = errors.New("unexpected status")
	ErrNotImage = errors.New("response is not an image")
	ErrShape    = errors.New("unexpected document shape")
)

// Options configures endpoints and request behavior.
type Options struct {
	CatalogURL     string
	StoreURL       string
	APIURL         string
	CDNURL         string
	Language       string // Steam language name, e.g. "russian"
	UserAgent      string
	CatalogTimeout time.Duration
	RequestTimeout time.Duration
}

// Client fetches catalog data from Steam.
type Client struct {
	http *http.Client
	opts Options
}

// NewHTTPClient returns an HTTP client whose requests are traced.
func NewHTTPClient() *http.Client {
	return &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)}
}

// New creates a client. A nil httpClient uses NewHTTPClient.
func New(httpClient *http.Client, opts Options) *Client {
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}
	if opts.CatalogTimeout <= 0 {
		opts.CatalogTimeout = 15 * time.Second
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 10 * time.Second
	}
	if opts.Language == "" {
		opts.Language = "english"
	}
	return &Client{http: httpClient, opts: opts}
}

// FetchAppList downloads the full list of catalog titles.
func (c *Client) FetchAppList(ctx context.Context, progress io.Writer) ([]catalog.Entry, error) {
	ctx, cancel := context.WithTimeout(ctx, c.opts.CatalogTimeout)
	defer cancel()

	resp, err := c.get(ctx, c.opts.CatalogURL, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	var body io.Reader = resp.Body
	if progress != nil {
		body = io.TeeReader(resp.Body, progress)
	}

	var payload struct {
		AppList struct {
			Apps []catalog.Entry `json:"apps"`
		} `json:"applist"`
	}
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: app list: %v", ErrShape, err)
	}
	return payload.AppList.Apps, nil
}

// get issues a GET request and fails on anything but 200 OK.
func (c *Client) get(ctx context.Context, url string, prepare func(*http.Request)) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	if prepare != nil {
		prepare(req)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		_ = resp.Body.Close()
		return nil, fmt.Errorf("%w: %s: %s", ErrStatus, url, resp.Status)
	}
	return resp, nil
}

// withTimeout bounds one per-item request.
func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, c.opts.RequestTimeout)
}

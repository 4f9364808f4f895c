package bundlecrypt

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Transport fetches the complete raw payload for one bundle. Retrying is
// the downloader's job; an implementation should fail fast and report a
// TransportError.
//
// Implementations must be safe for concurrent use: a single Transport is
// shared by every download worker.
type Transport interface {
	// Fetch returns the full payload for the bundle at relativePath.
	Fetch(ctx context.Context, relativePath string) ([]byte, error)
}

// HTTPTransport fetches bundles over HTTP(S) from a fixed base URL. The
// underlying client and its connection pool are shared across workers.
type HTTPTransport struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// HTTPTransportOption customizes an HTTPTransport.
type HTTPTransportOption func(*HTTPTransport)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(client *http.Client) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.client = client
	}
}

// WithUserAgent sets the User-Agent header sent with every fetch.
func WithUserAgent(ua string) HTTPTransportOption {
	return func(t *HTTPTransport) {
		t.userAgent = ua
	}
}

// NewHTTPTransport creates a transport rooted at baseURL.
func NewHTTPTransport(baseURL string, opts ...HTTPTransportOption) (*HTTPTransport, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported URL scheme %q", u.Scheme)
	}

	t := &HTTPTransport{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Fetch downloads the payload at baseURL/relativePath.
func (t *HTTPTransport) Fetch(ctx context.Context, relativePath string) ([]byte, error) {
	target := t.baseURL + "/" + strings.TrimLeft(relativePath, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, NewTransportError(relativePath, 0, err)
	}
	if t.userAgent != "" {
		req.Header.Set("User-Agent", t.userAgent)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, NewTransportError(relativePath, 0, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, NewTransportError(relativePath, resp.StatusCode,
			fmt.Errorf("unexpected status %s", resp.Status))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, NewTransportError(relativePath, resp.StatusCode, err)
	}
	return body, nil
}

package bundlecrypt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// Catalog is the asset manifest served next to the bundle endpoint. The
// downloader treats its descriptors as already validated by the server;
// ParseCatalog only enforces what the core relies on.
type Catalog struct {
	// BaseURL is the fetch endpoint bundles are resolved against.
	BaseURL string `json:"baseUrl"`

	// Bundles lists every asset bundle in catalog order.
	Bundles []BundleDescriptor `json:"assetBundles"`
}

// ParseCatalog decodes a catalog JSON document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if len(c.Bundles) == 0 {
		return nil, ErrEmptyCatalog
	}

	seen := make(map[string]struct{}, len(c.Bundles))
	for i := range c.Bundles {
		b := &c.Bundles[i]
		if b.RelativePath == "" {
			return nil, fmt.Errorf("catalog entry %d: missing relative path", i)
		}
		if _, dup := seen[b.RelativePath]; dup {
			return nil, fmt.Errorf("catalog entry %d: duplicate relative path %q", i, b.RelativePath)
		}
		seen[b.RelativePath] = struct{}{}
		if b.FileSize < 0 {
			return nil, fmt.Errorf("catalog entry %q: negative file size", b.RelativePath)
		}
		if b.CompressionMode == CompressionContainer && b.FileSize < ContainerOverhead {
			return nil, fmt.Errorf("catalog entry %q: container bundle smaller than framing", b.RelativePath)
		}
	}
	return &c, nil
}

// FetchCatalog downloads and parses the catalog at the given URL. Unlike
// per-bundle fetches, a catalog failure is fatal to the run, so the error
// is returned plain rather than as a TransportError.
func FetchCatalog(ctx context.Context, client *http.Client, url string) (*Catalog, error) {
	if client == nil {
		client = http.DefaultClient
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build catalog request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch catalog: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch catalog: unexpected status %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return ParseCatalog(body)
}

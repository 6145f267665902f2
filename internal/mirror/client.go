// Package mirror falls back to an upstream public registry for crate names
// not hosted locally, caching metadata in the entry store and archives in
// the content store.
package mirror

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/cargohold/cargohold/internal/crates"
)

// ErrUpstreamNotFound reports a semantic not-found from the upstream; the
// caller maps it to a local NotFound without touching the store.
var ErrUpstreamNotFound = errors.New("crate not found upstream")

// Client talks to the upstream sparse index and download endpoints over a
// shared http.Client.
type Client struct {
	http        *http.Client
	indexURL    string
	downloadURL string
	logger      *logrus.Logger
}

// NewClient builds an upstream client. indexURL is the sparse-index root
// (e.g. https://index.crates.io), downloadURL the blob endpoint root
// (e.g. https://crates.io/api/v1/crates).
func NewClient(httpClient *http.Client, indexURL, downloadURL string, logger *logrus.Logger) *Client {
	return &Client{
		http:        httpClient,
		indexURL:    strings.TrimRight(indexURL, "/"),
		downloadURL: strings.TrimRight(downloadURL, "/"),
		logger:      logger,
	}
}

// FetchMetadata pulls the newline-delimited index metadata for name, using
// the sharding prefix derived from the name.
func (c *Client) FetchMetadata(ctx context.Context, name string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s", c.indexURL, crates.IndexPrefix(name), name)
	c.logger.WithFields(logrus.Fields{
		"action": "mirror_fetch_metadata",
		"crate":  name,
	}).Info("checking crate in upstream index")

	return c.fetch(ctx, url)
}

// FetchCrate downloads the archive blob for (name, version).
func (c *Client) FetchCrate(ctx context.Context, name, version string) ([]byte, error) {
	url := fmt.Sprintf("%s/%s/%s/download", c.downloadURL, name, version)
	c.logger.WithFields(logrus.Fields{
		"action":  "mirror_fetch_crate",
		"crate":   name,
		"version": version,
	}).Info("downloading crate from upstream")

	return c.fetch(ctx, url)
}

func (c *Client) fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build upstream request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("upstream request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUpstreamNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, fmt.Errorf("upstream returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read upstream response: %w", err)
	}
	return body, nil
}

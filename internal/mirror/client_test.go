package mirror

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchMetadataUsesShardedPath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(indexLine))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, srv.URL, quietLogger())
	body, err := client.FetchMetadata(context.Background(), "cargo")
	require.NoError(t, err)
	assert.Equal(t, "/ca/rg/cargo", gotPath)
	assert.Equal(t, indexLine, string(body))
}

func TestClientFetchCratePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte("archive"))
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, srv.URL, quietLogger())
	body, err := client.FetchCrate(context.Background(), "demo", "1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "/demo/1.0.0/download", gotPath)
	assert.Equal(t, "archive", string(body))
}

func TestClientMapsNotFound(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, srv.URL, quietLogger())
	_, err := client.FetchMetadata(context.Background(), "demo")
	assert.True(t, errors.Is(err, ErrUpstreamNotFound))
}

func TestClientPropagatesServerErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := NewClient(srv.Client(), srv.URL, srv.URL, quietLogger())
	_, err := client.FetchMetadata(context.Background(), "demo")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrUpstreamNotFound))
}

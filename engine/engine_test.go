package engine

import (
	"net/url"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewEngineRejectsUnknownSchemes(t *testing.T) {
	_, err := NewEngine(&url.URL{Scheme: "mongodb", Host: "localhost"}, nil)
	require.Error(t, err)

	backendURL := &url.URL{Scheme: "sqlite", Path: filepath.Join(t.TempDir(), "logs.db")}
	_, err = NewEngine(backendURL, []*url.URL{{Scheme: "gopher", Host: ":70"}})
	require.Error(t, err)
}

func TestEngineStartAndClose(t *testing.T) {
	backendURL := &url.URL{Scheme: "sqlite", Path: filepath.Join(t.TempDir(), "logs.db")}
	frontendURL := &url.URL{Scheme: "api+http", Host: "127.0.0.1:0", Path: "/api/"}

	e, err := NewEngine(backendURL, []*url.URL{frontendURL})
	require.NoError(t, err)

	u, b := e.GetBackend()
	require.Equal(t, backendURL, u)
	require.NotNil(t, b)

	urls, fronts := e.GetFrontends()
	require.Len(t, urls, 1)
	require.Len(t, fronts, 1)

	require.NoError(t, e.Start())
	require.NoError(t, e.Close())
}

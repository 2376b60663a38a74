package deps

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/evergreen-ci/cloak/model/dependency"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	helloWorld     = "hello world"
	helloWorldSHA1 = "2aae6c35c94fcfb415dbe95f408b9ce91ee846ed"
)

func newTestFetcher(t *testing.T) *Fetcher {
	f := NewFetcher(filepath.Join(t.TempDir(), "cache"))
	f.Retry.MinDelay = time.Millisecond
	f.Retry.MaxDelay = 5 * time.Millisecond
	return f
}

func newFileServer(body string, hits *int32) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(body))
	}))
}

func TestFetchDownloadsAndCaches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var hits int32
	srv := newFileServer(helloWorld, &hits)
	defer srv.Close()

	f := newTestFetcher(t)
	exe := dependency.Exe{URL: srv.URL + "/setup.exe", SHA1: helloWorldSHA1}

	path, err := f.Fetch(ctx, exe)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(f.CacheDir, "setup.exe"), path)
	contents, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, helloWorld, string(contents))

	_, err = f.Fetch(ctx, exe)
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))

	_, err = os.Stat(path + ".part")
	assert.True(t, os.IsNotExist(err))
}

func TestFetchChecksumMismatch(t *testing.T) {
	var hits int32
	srv := newFileServer("tampered", &hits)
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), dependency.Exe{URL: srv.URL + "/setup.exe", SHA1: helloWorldSHA1})
	require.Error(t, err)
	assert.Equal(t, ErrChecksumMismatch, errors.Cause(err))

	_, err = os.Stat(filepath.Join(f.CacheDir, "setup.exe"))
	assert.True(t, os.IsNotExist(err))
}

func TestFetchRedownloadsStaleCache(t *testing.T) {
	var hits int32
	srv := newFileServer(helloWorld, &hits)
	defer srv.Close()

	f := newTestFetcher(t)
	require.NoError(t, os.MkdirAll(f.CacheDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(f.CacheDir, "setup.exe"), []byte("old"), 0644))

	_, err := f.Fetch(context.Background(), dependency.Exe{URL: srv.URL + "/setup.exe", SHA1: helloWorldSHA1})
	require.NoError(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestFetchClientErrorIsNotRetried(t *testing.T) {
	var hits int32
	srv := newFileServer(helloWorld, &hits)
	defer srv.Close()

	f := newTestFetcher(t)
	_, err := f.Fetch(context.Background(), dependency.Exe{URL: srv.URL + "/missing", SHA1: helloWorldSHA1})
	require.Error(t, err)
	assert.EqualValues(t, 1, atomic.LoadInt32(&hits))
}

func TestDownload(t *testing.T) {
	var hits int32
	srv := newFileServer(helloWorld, &hits)
	defer srv.Close()

	f := newTestFetcher(t)
	body, err := f.Download(context.Background(), srv.URL+"/doge1.jpg")
	require.NoError(t, err)
	assert.Equal(t, helloWorld, string(body))

	_, err = f.Download(context.Background(), srv.URL+"/missing")
	assert.Error(t, err)
}

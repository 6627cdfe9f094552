package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func listDir(t *testing.T, dir string) []os.DirEntry {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	return entries
}

func TestFetchSuccess(t *testing.T) {
	body := []byte("not really a video, but non-empty")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := New(WithTempDir(dir))

	path, err := fetcher.Fetch(context.Background(), server.URL+"/videos/abc.mp4")
	require.NoError(t, err)

	saved, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, body, saved)
	assert.Equal(t, ".mp4", path[len(path)-4:])

	require.NoError(t, os.Remove(path))
}

func TestFetchNon2xxStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := New(WithTempDir(dir))

	_, err := fetcher.Fetch(context.Background(), server.URL+"/videos/abc.mp4")
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Empty(t, listDir(t, dir), "no partial file may remain")
}

func TestFetchEmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := New(WithTempDir(dir))

	_, err := fetcher.Fetch(context.Background(), server.URL+"/videos/abc.mp4")
	assert.ErrorIs(t, err, ErrEmptyArtifact)
	assert.Empty(t, listDir(t, dir), "the empty file must be deleted")
}

func TestFetchCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("some bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := New(WithTempDir(dir))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := fetcher.Fetch(ctx, server.URL+"/videos/abc.mp4")
	assert.Error(t, err)
	assert.Empty(t, listDir(t, dir), "no partial file may remain after cancellation")
}

func TestFetchReportsProgress(t *testing.T) {
	body := make([]byte, 3*chunkSize+100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", strconv.Itoa(len(body)))
		w.Write(body)
	}))
	defer server.Close()

	var downloaded, expected int64
	dir := t.TempDir()
	fetcher := New(WithTempDir(dir), WithProgress(func(d, e int64) {
		downloaded, expected = d, e
	}))

	path, err := fetcher.Fetch(context.Background(), server.URL+"/videos/abc.mp4")
	require.NoError(t, err)
	defer os.Remove(path)

	assert.Equal(t, int64(len(body)), downloaded)
	assert.Equal(t, int64(len(body)), expected)
}

func TestFetchDefaultExtension(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("bytes"))
	}))
	defer server.Close()

	dir := t.TempDir()
	fetcher := New(WithTempDir(dir))

	path, err := fetcher.Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	defer os.Remove(path)
	assert.Equal(t, defaultExt, path[len(path)-len(defaultExt):])
}

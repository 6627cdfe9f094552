// Package fetch streams a located media URL into a local temporary artifact.
// A successful fetch always returns a non-empty file; every failure path
// removes whatever was partially written.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/hashicorp/go-multierror"

	"reelbot"
	"reelbot/util"
)

const (
	// Media files can be large, so the download deadline is generous.
	DefaultTimeout = 10 * time.Minute

	// Response bodies are written out in chunks of this size as they arrive,
	// never buffered whole in memory.
	chunkSize = 64 * 1024

	defaultExt = ".mp4"
)

// ErrEmptyArtifact means the server answered 2xx but sent zero bytes. An
// empty file is never handed downstream.
var ErrEmptyArtifact = errors.New("downloaded artifact is empty")

// StatusError is a non-2xx response to the media request.
type StatusError struct {
	Status int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected response status %d", e.Status)
}

type Option func(*Fetcher)

// WithTempDir sets where temporary artifacts are created.
func WithTempDir(dir string) Option {
	return func(f *Fetcher) {
		f.tempDir = dir
	}
}

// WithClient replaces the HTTP client, e.g. to shorten the timeout in tests.
func WithClient(client *http.Client) Option {
	return func(f *Fetcher) {
		f.client = client
	}
}

// WithProgress sets a callback receiving (downloaded, expected) byte counts
// as the download advances. Expected is -1 when the server sent no length.
func WithProgress(progress func(downloaded, expected int64)) Option {
	return func(f *Fetcher) {
		f.progress = progress
	}
}

type Fetcher struct {
	client   *http.Client
	tempDir  string
	progress func(downloaded, expected int64)
}

func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:  &http.Client{Timeout: DefaultTimeout},
		tempDir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch streams the media URL into a freshly created temporary file and
// returns its path. On any failure no file remains on disk: non-2xx responses
// fail with StatusError before anything is written, and an empty 2xx body
// fails with ErrEmptyArtifact after the partial file is deleted. The caller
// owns the returned artifact and is responsible for deleting it.
func (f *Fetcher) Fetch(ctx context.Context, mediaURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("media request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &StatusError{Status: resp.StatusCode}
	}

	ext := util.ExtFromURLString(mediaURL)
	if ext == "" {
		ext = defaultExt
	}
	tmp, err := os.CreateTemp(f.tempDir, "reel-*"+ext)
	if err != nil {
		return "", fmt.Errorf("failed to create temporary artifact: %w", err)
	}

	written, err := f.save(ctx, tmp, resp.Body, resp.ContentLength)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err == nil && written == 0 {
		err = ErrEmptyArtifact
	}
	if err != nil {
		if rmErr := os.Remove(tmp.Name()); rmErr != nil {
			err = multierror.Append(err, rmErr)
		}
		return "", err
	}
	return tmp.Name(), nil
}

func (f *Fetcher) save(ctx context.Context, dst io.Writer, body io.Reader, expected int64) (int64, error) {
	if f.progress != nil {
		f.progress(0, expected)
	}
	counter := &progressCounter{fetcher: f, expected: expected}
	buf := make([]byte, chunkSize)
	written, err := io.CopyBuffer(io.MultiWriter(dst, counter), reelbot.NewReaderContext(ctx, body), buf)
	if err != nil {
		return written, fmt.Errorf("failed to save stream: %w", err)
	}
	return written, nil
}

// progressCounter ignores the data but reports the running byte count.
// Keep it last in the io.MultiWriter so failed writes are not counted.
type progressCounter struct {
	fetcher    *Fetcher
	expected   int64
	downloaded int64
}

func (c *progressCounter) Write(p []byte) (int, error) {
	c.downloaded += int64(len(p))
	if c.fetcher.progress != nil {
		c.fetcher.progress(c.downloaded, c.expected)
	}
	return len(p), nil
}

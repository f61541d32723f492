package artifact

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// Fetcher retrieves prebuilt index blobs. Fetches are not retried: a failed
// download is surfaced to the caller as ErrTransport, and whether the system
// should retry is a product decision that has not been made.
type Fetcher struct {
	client   *http.Client
	cacheDir string
	logger   *slog.Logger
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient sets a custom HTTP client. Default has a 30s timeout.
func WithHTTPClient(client *http.Client) Option {
	return func(f *Fetcher) {
		if client != nil {
			f.client = client
		}
	}
}

// WithCacheDir enables a local cache of fetched blobs, keyed by content
// hash. Encoded blobs are byte-deterministic, so the hash is stable across
// rebuilds of identical content.
func WithCacheDir(dir string) Option {
	return func(f *Fetcher) {
		f.cacheDir = dir
	}
}

// WithLogger sets a custom logger. Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(f *Fetcher) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewFetcher creates a blob fetcher.
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{Timeout: 30 * time.Second},
		logger: slog.Default().With("component", "artifact-fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch downloads a blob. When a cache directory is configured the blob is
// written through to it after a successful download.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d fetching %s",
			ErrTransport, resp.StatusCode, url)
	}

	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}

	if f.cacheDir != "" {
		if err := f.writeCache(blob); err != nil {
			f.logger.Warn("failed to cache fetched blob", "err", err)
		}
	}

	f.logger.Debug("fetched blob", "url", url, "bytes", len(blob))
	return blob, nil
}

// ReadFile reads a blob from the local filesystem.
func ReadFile(path string) ([]byte, error) {
	blob, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	return blob, nil
}

// ContentHash returns the hex BLAKE2b-128 digest of the blob, the cache key
// for deterministic artifacts.
func ContentHash(blob []byte) string {
	h, _ := blake2b.New(16, nil)
	h.Write(blob)
	return hex.EncodeToString(h.Sum(nil))
}

func (f *Fetcher) writeCache(blob []byte) error {
	if err := os.MkdirAll(f.cacheDir, 0755); err != nil {
		return err
	}
	path := filepath.Join(f.cacheDir, ContentHash(blob)+".embd")
	return os.WriteFile(path, blob, 0644)
}

// CachedPath returns the cache location a blob would occupy, whether or not
// it has been written yet. Returns empty when caching is disabled.
func (f *Fetcher) CachedPath(blob []byte) string {
	if f.cacheDir == "" {
		return ""
	}
	return filepath.Join(f.cacheDir, ContentHash(blob)+".embd")
}

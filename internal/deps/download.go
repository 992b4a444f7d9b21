package deps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/playlistify/playlistify/internal/logging"
)

const (
	// DefaultDownloadTimeout bounds inactivity while fetching a primary asset.
	DefaultDownloadTimeout = 30 * time.Second
	// DefaultMetadataTimeout bounds inactivity while fetching small files
	// such as checksum manifests and signatures.
	DefaultMetadataTimeout = 15 * time.Second
	// DefaultProbeTimeout bounds a URL accessibility probe.
	DefaultProbeTimeout = 5 * time.Second
	// DefaultMaxRedirects caps a redirect chain.
	DefaultMaxRedirects = 5
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "Playlistify/1.0"

	chunkSize = 32 * 1024
)

var errIdleTimeout = errors.New("idle timeout")

// DownloaderOptions configures a Downloader. Zero values select defaults.
type DownloaderOptions struct {
	Timeout      time.Duration
	ProbeTimeout time.Duration
	MaxRedirects int
	UserAgent    string
	Logger       logging.Logger
	// Transport overrides the HTTP transport (tests, proxies).
	Transport http.RoundTripper
}

// Downloader fetches release artifacts over HTTP(S).
type Downloader struct {
	client       *http.Client
	userAgent    string
	timeout      time.Duration
	probeTimeout time.Duration
	maxRedirects int
	log          logging.Logger
}

// NewDownloader creates a new downloader
func NewDownloader(opts DownloaderOptions) *Downloader {
	d := &Downloader{
		client: &http.Client{
			Transport: opts.Transport,
			// Redirects are followed by hand so that each hop is counted
			// and a missing Location header is reported.
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		userAgent:    opts.UserAgent,
		timeout:      opts.Timeout,
		probeTimeout: opts.ProbeTimeout,
		maxRedirects: opts.MaxRedirects,
		log:          logging.OrNop(opts.Logger),
	}

	if d.userAgent == "" {
		d.userAgent = DefaultUserAgent
	}
	if d.timeout <= 0 {
		d.timeout = DefaultDownloadTimeout
	}
	if d.probeTimeout <= 0 {
		d.probeTimeout = DefaultProbeTimeout
	}
	if d.maxRedirects <= 0 {
		d.maxRedirects = DefaultMaxRedirects
	}

	return d
}

// DownloadFile fetches url into destPath using the primary-asset timeout.
func (d *Downloader) DownloadFile(ctx context.Context, url, destPath string, onProgress ProgressFunc) error {
	return d.DownloadFileWithTimeout(ctx, url, destPath, d.timeout, onProgress)
}

// DownloadFileWithTimeout fetches url into destPath. The timeout is an idle
// timeout: it is re-armed every time data arrives. onProgress, when non-nil,
// is called per chunk if the server announced a Content-Length.
//
// The body is written to destPath+".part" and renamed on success; on any
// failure the partial file is removed on a best-effort basis.
func (d *Downloader) DownloadFileWithTimeout(ctx context.Context, url, destPath string, timeout time.Duration, onProgress ProgressFunc) error {
	if timeout <= 0 {
		timeout = d.timeout
	}

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	idle := time.AfterFunc(timeout, func() { cancel(errIdleTimeout) })
	defer idle.Stop()

	err := d.download(ctx, url, destPath, func() { idle.Reset(timeout) }, onProgress)
	if err == nil {
		return nil
	}

	if errors.Is(context.Cause(ctx), errIdleTimeout) {
		err = fmt.Errorf("timed out after %s without data: %w", timeout, err)
	}

	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return newError(KindDownload, "download "+url, err)
}

func (d *Downloader) download(ctx context.Context, url, destPath string, touch func(), onProgress ProgressFunc) error {
	resp, err := d.get(ctx, url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	touch()

	if err := os.MkdirAll(filepath.Dir(destPath), 0o755); err != nil {
		return newError(KindFileSystem, "create download dir", err)
	}

	partPath := destPath + ".part"
	f, err := os.Create(partPath)
	if err != nil {
		return newError(KindFileSystem, "create file", err)
	}

	if err := d.stream(resp, f, touch, onProgress); err != nil {
		f.Close()
		d.removePartial(partPath)
		return err
	}

	if err := f.Close(); err != nil {
		d.removePartial(partPath)
		return newError(KindFileSystem, "close file", err)
	}

	if err := os.Rename(partPath, destPath); err != nil {
		d.removePartial(partPath)
		return newError(KindFileSystem, "rename downloaded file", err)
	}

	return nil
}

// get issues GET requests, following up to maxRedirects redirects, and
// returns the first 200 response.
func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	current := url

	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("User-Agent", d.userAgent)

		resp, err := d.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("execute request: %w", err)
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			resp.Body.Close()

			if location == "" {
				return nil, fmt.Errorf("redirect (HTTP %d) without Location header", resp.StatusCode)
			}
			if hops >= d.maxRedirects {
				return nil, fmt.Errorf("too many redirects (more than %d)", d.maxRedirects)
			}

			next, err := resp.Request.URL.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("parse redirect location %q: %w", location, err)
			}
			d.log.Debug("following redirect", "from", current, "to", next.String())
			current = next.String()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("unexpected HTTP status %d (%s)", resp.StatusCode, http.StatusText(resp.StatusCode))
		}

		return resp, nil
	}
}

func (d *Downloader) stream(resp *http.Response, w io.Writer, touch func(), onProgress ProgressFunc) error {
	total := resp.ContentLength
	var received int64
	buf := make([]byte, chunkSize)

	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			touch()
			if _, err := w.Write(buf[:n]); err != nil {
				return newError(KindFileSystem, "write file", err)
			}
			received += int64(n)

			if onProgress != nil && total > 0 {
				pct := int(received * 100 / total)
				if pct > 100 {
					pct = 100
				}
				onProgress(Progress{
					Progress: pct,
					Status:   ProgressDownloading,
					Message:  fmt.Sprintf("Downloading... %s / %s", FormatBytes(received), FormatBytes(total)),
				})
			}
		}

		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return fmt.Errorf("read response body: %w", readErr)
		}
	}
}

// removePartial deletes a partially written file. Failures are logged only.
func (d *Downloader) removePartial(path string) {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		d.log.Warn("failed to remove partial download", "path", path, "error", err)
	}
}

// CheckURLAccessibility issues a HEAD request and reports whether the
// server answered 200, 301 or 302. It never returns an error.
func (d *Downloader) CheckURLAccessibility(ctx context.Context, url string) bool {
	ctx, cancel := context.WithTimeout(ctx, d.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		d.log.Debug("url probe: bad request", "url", url, "error", err)
		return false
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		d.log.Debug("url probe failed", "url", url, "error", err)
		return false
	}
	resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK, http.StatusMovedPermanently, http.StatusFound:
		return true
	default:
		d.log.Debug("url probe: unexpected status", "url", url, "status", resp.StatusCode)
		return false
	}
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

package deps

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestDownloaderDownloadFile(t *testing.T) {
	tests := []struct {
		name       string
		statusCode int
		body       string
		wantErr    bool
	}{
		{
			name:       "successful_download",
			statusCode: http.StatusOK,
			body:       "test binary content",
		},
		{
			name:       "404_not_found",
			statusCode: http.StatusNotFound,
			body:       "not found",
			wantErr:    true,
		},
		{
			name:       "500_server_error",
			statusCode: http.StatusInternalServerError,
			body:       "server error",
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") != DefaultUserAgent {
					t.Errorf("unexpected User-Agent: %s", r.Header.Get("User-Agent"))
				}
				w.WriteHeader(tt.statusCode)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			destPath := filepath.Join(t.TempDir(), "artifact")
			d := NewDownloader(DownloaderOptions{})
			err := d.DownloadFile(context.Background(), server.URL, destPath, nil)

			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error but got none")
				}
				if !errors.Is(err, ErrDownload) {
					t.Errorf("expected download error kind, got %v", err)
				}
				if !strings.Contains(err.Error(), fmt.Sprintf("%d", tt.statusCode)) {
					t.Errorf("error %q does not mention status %d", err, tt.statusCode)
				}
				if _, statErr := os.Stat(destPath); !os.IsNotExist(statErr) {
					t.Error("destination should not exist after a failed download")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			content, err := os.ReadFile(destPath)
			if err != nil {
				t.Fatalf("failed to read downloaded file: %v", err)
			}
			if string(content) != tt.body {
				t.Errorf("content = %q, want %q", content, tt.body)
			}
		})
	}
}

func TestDownloaderFollowsRedirects(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/start", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/middle", http.StatusFound)
	})
	mux.HandleFunc("/middle", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/final", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/final", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	destPath := filepath.Join(t.TempDir(), "artifact")
	d := NewDownloader(DownloaderOptions{})
	if err := d.DownloadFile(context.Background(), server.URL+"/start", destPath, nil); err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}

	content, _ := os.ReadFile(destPath)
	if string(content) != "payload" {
		t.Errorf("content = %q, want %q", content, "payload")
	}
}

func TestDownloaderRedirectErrors(t *testing.T) {
	t.Run("missing_location", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusFound)
		}))
		defer server.Close()

		d := NewDownloader(DownloaderOptions{})
		err := d.DownloadFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "a"), nil)
		if err == nil || !strings.Contains(err.Error(), "Location") {
			t.Fatalf("expected missing Location error, got %v", err)
		}
	})

	t.Run("too_many_redirects", func(t *testing.T) {
		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			n := hits.Add(1)
			http.Redirect(w, r, fmt.Sprintf("/hop%d", n), http.StatusFound)
		}))
		defer server.Close()

		d := NewDownloader(DownloaderOptions{MaxRedirects: 3})
		err := d.DownloadFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "a"), nil)
		if err == nil || !strings.Contains(err.Error(), "too many redirects") {
			t.Fatalf("expected too many redirects error, got %v", err)
		}
		if got := hits.Load(); got != 4 {
			t.Errorf("server hits = %d, want 4 (initial + 3 redirects)", got)
		}
	})
}

func TestDownloaderProgress(t *testing.T) {
	body := strings.Repeat("x", 3*chunkSize+100)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", fmt.Sprintf("%d", len(body)))
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	var reports []Progress
	d := NewDownloader(DownloaderOptions{})
	err := d.DownloadFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "a"), func(p Progress) {
		reports = append(reports, p)
	})
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}

	if len(reports) == 0 {
		t.Fatal("expected progress reports")
	}
	prev := -1
	for _, p := range reports {
		if p.Status != ProgressDownloading {
			t.Errorf("Status = %q, want %q", p.Status, ProgressDownloading)
		}
		if p.Progress < prev {
			t.Errorf("progress went backwards: %d after %d", p.Progress, prev)
		}
		prev = p.Progress
	}

	last := reports[len(reports)-1]
	if last.Progress != 100 {
		t.Errorf("final progress = %d, want 100", last.Progress)
	}
	if !strings.HasPrefix(last.Message, "Downloading... ") || !strings.Contains(last.Message, " / ") {
		t.Errorf("unexpected message %q", last.Message)
	}
}

func TestDownloaderNoProgressWithoutLength(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.(http.Flusher).Flush() // forces chunked encoding, no Content-Length
		_, _ = w.Write([]byte("streamed"))
	}))
	defer server.Close()

	called := false
	d := NewDownloader(DownloaderOptions{})
	err := d.DownloadFile(context.Background(), server.URL, filepath.Join(t.TempDir(), "a"), func(Progress) {
		called = true
	})
	if err != nil {
		t.Fatalf("DownloadFile() error = %v", err)
	}
	if called {
		t.Error("progress should not be reported without Content-Length")
	}
}

func TestDownloaderIdleTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Length", "1000")
		_, _ = w.Write([]byte("partial"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	dir := t.TempDir()
	destPath := filepath.Join(dir, "artifact")

	d := NewDownloader(DownloaderOptions{})
	start := time.Now()
	err := d.DownloadFileWithTimeout(context.Background(), server.URL, destPath, 200*time.Millisecond, nil)
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if !strings.Contains(err.Error(), "timed out") {
		t.Errorf("error %q does not mention the timeout", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("download took %s, idle timeout not enforced", elapsed)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("expected no leftover files, found %d", len(entries))
	}
}

func TestDownloaderContextCancel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDownloader(DownloaderOptions{})
	err := d.DownloadFile(ctx, server.URL, filepath.Join(t.TempDir(), "a"), nil)
	if err == nil {
		t.Fatal("expected error for cancelled context")
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled in chain, got %v", err)
	}
}

func TestCheckURLAccessibility(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   bool
	}{
		{"ok", http.StatusOK, true},
		{"moved_permanently", http.StatusMovedPermanently, true},
		{"found", http.StatusFound, true},
		{"not_found", http.StatusNotFound, false},
		{"server_error", http.StatusInternalServerError, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodHead {
					t.Errorf("method = %s, want HEAD", r.Method)
				}
				if tt.status == http.StatusMovedPermanently || tt.status == http.StatusFound {
					w.Header().Set("Location", "/elsewhere")
				}
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			d := NewDownloader(DownloaderOptions{})
			if got := d.CheckURLAccessibility(context.Background(), server.URL); got != tt.want {
				t.Errorf("CheckURLAccessibility() = %v, want %v", got, tt.want)
			}
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		d := NewDownloader(DownloaderOptions{ProbeTimeout: time.Second})
		if d.CheckURLAccessibility(context.Background(), url) {
			t.Error("expected false for closed server")
		}
	})

	t.Run("malformed_url", func(t *testing.T) {
		d := NewDownloader(DownloaderOptions{})
		if d.CheckURLAccessibility(context.Background(), "://bad") {
			t.Error("expected false for malformed URL")
		}
	})
}

package retriever

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
)

const (
	defaultMaxBytes = 50 * 1024 * 1024
	defaultTimeout  = 60 * time.Second
)

var errNoClient = errors.New("platform client is not configured")

type Options struct {
	HTTPClient *http.Client
	BotToken   string
	// MaxBytes caps the response body; larger downloads fail.
	MaxBytes int64
	Timeout  time.Duration
}

type Downloader struct {
	http     *http.Client
	botToken string
	maxBytes int64
	timeout  time.Duration
}

func NewDownloader(opts Options) *Downloader {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	maxBytes := opts.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Downloader{
		http:     httpClient,
		botToken: strings.TrimSpace(opts.BotToken),
		maxBytes: maxBytes,
		timeout:  timeout,
	}
}

// Download performs one authenticated GET of d.DownloadURL. Only HTTP 200 is a
// success. There are no retries.
func (dl *Downloader) Download(ctx context.Context, d Descriptor) ([]byte, error) {
	const op = "download"
	if dl == nil || dl.http == nil {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("downloader is not initialized")}
	}
	url := strings.TrimSpace(d.DownloadURL)
	if url == "" {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("descriptor %s has no download url", d.ID)}
	}
	if dl.botToken == "" {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("bot token is required")}
	}

	ctx, cancel := context.WithTimeout(ctx, dl.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+dl.botToken)

	resp, err := dl.http.Do(req)
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, &FetchError{Op: op, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, dl.maxBytes+1))
	if err != nil {
		return nil, &FetchError{Op: op, Err: err}
	}
	if int64(len(data)) > dl.maxBytes {
		return nil, &FetchError{Op: op, Err: fmt.Errorf("file too large (>%d bytes)", dl.maxBytes)}
	}
	return data, nil
}

// SniffPDF checks downloaded bytes against the allowed type, independent of
// what the platform reported.
func SniffPDF(data []byte) error {
	detected := mimetype.Detect(data)
	if detected.Is(AllowedMimeType) {
		return nil
	}
	return fmt.Errorf("%w: content looks like %s", ErrUnsupportedMimeType, detected.String())
}

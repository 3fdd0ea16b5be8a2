package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/schollz/progressbar/v3"
	"go.uber.org/zap"
	"golang.org/x/term"
)

const userAgent = "vaani/1"

var contentTypeExtensions = map[string]string{
	"audio/aac":   ".aac",
	"audio/flac":  ".flac",
	"audio/mp4":   ".m4a",
	"audio/mpeg":  ".mp3",
	"audio/ogg":   ".ogg",
	"audio/opus":  ".opus",
	"audio/wav":   ".wav",
	"audio/wave":  ".wav",
	"audio/webm":  ".webm",
	"audio/x-wav": ".wav",
}

type Options struct {
	URL         string
	Destination string
	Dir         string
	Retries     int
	NoProgress  bool
	HTTPClient  *http.Client
	Logger      *zap.Logger
}

// Audio downloads a remote audio file into a local temp file and returns its
// path. The file name keeps the URL's base name; when the URL carries no
// extension one is inferred from the response Content-Type.
func Audio(ctx context.Context, opts Options) (string, error) {
	if opts.URL == "" {
		return "", errors.New("fetch URL is required")
	}

	dest := opts.Destination
	if dest == "" {
		dir := opts.Dir
		if dir == "" {
			dir = os.TempDir()
		}
		dest = filepath.Join(dir, fmt.Sprintf("vaani-%d-%s", time.Now().UnixNano(), fileNameFromURL(opts.URL)))
	}
	opts.Destination = dest

	contentType, err := File(ctx, opts)
	if err != nil {
		return "", err
	}

	if filepath.Ext(dest) == "" {
		if ext := extensionForContentType(contentType); ext != "" {
			withExt := dest + ext
			if err := os.Rename(dest, withExt); err == nil {
				dest = withExt
			}
		}
	}

	return dest, nil
}

// File downloads a URL into Destination, writing through a .part temp file so
// an interrupted transfer never leaves a truncated destination. It returns
// the response Content-Type.
func File(ctx context.Context, opts Options) (string, error) {
	if opts.URL == "" {
		return "", errors.New("fetch URL is required")
	}
	if opts.Destination == "" {
		return "", errors.New("destination path is required")
	}

	if opts.Retries <= 0 {
		opts.Retries = 3
	}

	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 10 * time.Minute}
	}

	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	if err := os.MkdirAll(filepath.Dir(opts.Destination), 0o755); err != nil {
		return "", fmt.Errorf("create destination directory: %w", err)
	}

	var contentType string
	var lastErr error
	for attempt := 1; attempt <= opts.Retries; attempt++ {
		if attempt > 1 {
			opts.Logger.Warn("retrying fetch", zap.Int("attempt", attempt), zap.Int("max", opts.Retries), zap.String("url", opts.URL))
			time.Sleep(time.Duration(attempt) * 300 * time.Millisecond)
		}

		contentType, lastErr = fetchOnce(ctx, opts)
		if lastErr == nil {
			return contentType, nil
		}
	}

	return "", lastErr
}

func fetchOnce(ctx context.Context, opts Options) (string, error) {
	tempPath := opts.Destination + ".part"
	_ = os.Remove(tempPath)

	outFile, err := os.Create(tempPath)
	if err != nil {
		return "", fmt.Errorf("create temp file: %w", err)
	}

	success := false
	defer func() {
		_ = outFile.Close()
		if !success {
			_ = os.Remove(tempPath)
		}
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, opts.URL, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := opts.HTTPClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var writer io.Writer = outFile

	var bar *progressbar.ProgressBar
	if shouldRenderProgress(opts.NoProgress, resp.ContentLength) {
		bar = progressbar.NewOptions64(
			resp.ContentLength,
			progressbar.OptionSetDescription("downloading"),
			progressbar.OptionSetWidth(20),
			progressbar.OptionShowBytes(true),
			progressbar.OptionThrottle(65*time.Millisecond),
			progressbar.OptionSetRenderBlankState(true),
			progressbar.OptionSetWriter(os.Stderr),
			progressbar.OptionClearOnFinish(),
		)
		writer = io.MultiWriter(outFile, bar)
	}

	if _, err := io.Copy(writer, resp.Body); err != nil {
		return "", fmt.Errorf("fetch body: %w", err)
	}

	if bar != nil {
		_ = bar.Finish()
	}

	if err := outFile.Sync(); err != nil {
		return "", fmt.Errorf("sync temp file: %w", err)
	}

	if err := outFile.Close(); err != nil {
		return "", fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tempPath, opts.Destination); err != nil {
		return "", fmt.Errorf("move temp file into destination: %w", err)
	}

	success = true
	return resp.Header.Get("Content-Type"), nil
}

func fileNameFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "audio"
	}

	base := path.Base(u.Path)
	if base == "" || base == "." || base == "/" {
		return "audio"
	}

	return sanitizeFileName(base)
}

func sanitizeFileName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('-')
		}
	}

	out := strings.Trim(b.String(), ".-")
	if out == "" {
		return "audio"
	}
	return out
}

func extensionForContentType(contentType string) string {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(mediaType, ";"); i >= 0 {
		mediaType = strings.TrimSpace(mediaType[:i])
	}
	return contentTypeExtensions[mediaType]
}

func shouldRenderProgress(noProgress bool, contentLength int64) bool {
	if noProgress {
		return false
	}
	if contentLength <= 0 {
		return false
	}
	return term.IsTerminal(int(os.Stderr.Fd()))
}

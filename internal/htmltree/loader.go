package htmltree

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/net/html/charset"
	"golang.org/x/text/transform"
)

// Input describes where HTML should come from. Exactly one of URL, Path or
// Stdin is used, checked in that order.
type Input struct {
	// URL, if provided, is fetched via HTTP GET.
	URL string

	// Path, if provided (and URL is empty), is read from disk.
	Path string

	// Stdin is used when URL and Path are empty. If nil, stdin reads as empty.
	Stdin io.Reader
}

// Loader fetches or reads HTML with a consistent timeout policy and decodes
// legacy charsets to UTF-8 before handing the document to the parser.
type Loader struct {
	client  *http.Client
	timeout time.Duration
}

// NewLoader creates a Loader. If client is nil, http.DefaultClient is used.
func NewLoader(client *http.Client, timeout time.Duration) *Loader {
	if client == nil {
		client = http.DefaultClient
	}
	return &Loader{
		client:  client,
		timeout: timeout,
	}
}

// Load returns the HTML source for the given input as UTF-8.
//
// On non-2xx HTTP responses, Load returns an error that includes the status
// code and up to 4KB of the response body for debugging.
func (l *Loader) Load(ctx context.Context, input Input) (string, error) {
	switch {
	case strings.TrimSpace(input.URL) != "":
		return l.fetch(ctx, input.URL)

	case strings.TrimSpace(input.Path) != "":
		b, err := os.ReadFile(input.Path)
		if err != nil {
			return "", fmt.Errorf("read file: %w", err)
		}
		return decodeToUTF8(b, "")

	case input.Stdin != nil:
		b, err := io.ReadAll(input.Stdin)
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return decodeToUTF8(b, "")

	default:
		return "", nil
	}
}

func (l *Loader) fetch(ctx context.Context, url string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("User-Agent", "minerecords/1.0")

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http get: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	return decodeToUTF8(b, resp.Header.Get("Content-Type"))
}

// decodeToUTF8 sniffs the document encoding (Content-Type header, <meta>
// declarations, BOM) and transforms the bytes to UTF-8.
//
// Already-UTF-8 input passes through unchanged.
func decodeToUTF8(b []byte, contentType string) (string, error) {
	enc, name, certain := charset.DetermineEncoding(b, contentType)
	if name == "utf-8" {
		return string(b), nil
	}
	_ = certain // an uncertain guess still beats mojibake

	out, _, err := transform.Bytes(enc.NewDecoder(), b)
	if err != nil {
		return "", fmt.Errorf("decode %s: %w", name, err)
	}
	return string(out), nil
}

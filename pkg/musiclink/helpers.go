package musiclink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	// commonUserAgent is the user agent string used for all HTTP requests.
	commonUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// commonAcceptHeader is the accept header used for all HTTP requests.
	commonAcceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	// defaultHTTPTimeout is the default timeout for HTTP requests.
	defaultHTTPTimeout = 10 * time.Second
	// maxHTTPRedirects is the maximum number of HTTP redirects to follow.
	maxHTTPRedirects = 5
	// maxPageReadSize caps how much of a landing page is scanned for the target link.
	maxPageReadSize = 512 * 1024
)

var (
	// ErrTooManyRedirects is returned when too many redirects are encountered.
	ErrTooManyRedirects = errors.New("too many redirects")
	// ErrShortLinkUnresolved is returned when a short link leads nowhere on open.spotify.com.
	ErrShortLinkUnresolved = errors.New("short link did not resolve to a Spotify URL")

	spotifyPageLinkRegex = regexp.MustCompile(`https://open\.spotify\.com/(?:track|playlist|album|artist)/[A-Za-z0-9]{22}`)
)

// newHTTPClient creates a new HTTP client with standard settings and redirect validation.
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultHTTPTimeout,
		CheckRedirect: func(_ *http.Request, via []*http.Request) error {
			if len(via) >= maxHTTPRedirects {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// Expander resolves Spotify share short links to open.spotify.com URLs.
type Expander struct {
	client *http.Client
}

// NewExpander creates an expander. A nil client uses a default client with a redirect limit.
func NewExpander(client *http.Client) *Expander {
	if client == nil {
		client = newHTTPClient()
	}
	return &Expander{client: client}
}

// Expand follows the redirects of a short link. When the chain ends on an app landing
// page instead of open.spotify.com, the page body is scanned for the target URL.
func (e *Expander) Expand(ctx context.Context, shortURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, shortURL, http.NoBody)
	if err != nil {
		return "", err
	}

	req.Header.Set("User-Agent", commonUserAgent)
	req.Header.Set("Accept", commonAcceptHeader)

	resp, err := e.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to follow short link: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if final := resp.Request.URL; strings.EqualFold(final.Hostname(), "open.spotify.com") {
		final.RawQuery = ""
		return final.String(), nil
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("short link returned status %d: %w", resp.StatusCode, ErrShortLinkUnresolved)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageReadSize))
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if match := spotifyPageLinkRegex.Find(body); match != nil {
		return string(match), nil
	}

	return "", ErrShortLinkUnresolved
}

// Package fetch performs one network retrieval into a capture snapshot.
// Retry policy belongs to the external scheduler; a failed attempt leaves
// an empty snapshot plus one diagnostic so the render stage stays uniform.
package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/workbenchdata/tablescrape/internal/capture"
	"github.com/workbenchdata/tablescrape/internal/diag"
)

// Client wraps http.Client with a per-request timeout and a user agent.
type Client struct {
	HTTPClient *http.Client
	UserAgent  string
	// Timeout bounds the single attempt. Zero means no deadline beyond the
	// caller's context.
	Timeout time.Duration
	// RedirectMaxHops caps redirect following to avoid loops. Zero means
	// default (5).
	RedirectMaxHops int
}

func (c *Client) getHTTPClient() *http.Client {
	if c.HTTPClient != nil {
		// Clone to attach our redirect policy without mutating caller's client
		base := *c.HTTPClient
		base.CheckRedirect = c.checkRedirectFunc()
		return &base
	}
	return &http.Client{CheckRedirect: c.checkRedirectFunc()}
}

func (c *Client) checkRedirectFunc() func(req *http.Request, via []*http.Request) error {
	max := c.RedirectMaxHops
	if max <= 0 {
		max = 5
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) >= max {
			return errors.New("too many redirects")
		}
		if req.URL == nil || !isHTTPScheme(req.URL) {
			return errors.New("redirect to unsupported scheme")
		}
		return nil
	}
}

func isHTTPScheme(u *url.URL) bool {
	return u != nil && (u.Scheme == "http" || u.Scheme == "https")
}

// Fetch retrieves target once and writes a capture snapshot to outputPath.
// An empty target means "no new attempt": nothing is written and no
// diagnostics are returned, so the previous snapshot stands. Any HTTP
// response, success or not, is captured verbatim; only transport failures
// degrade to an empty snapshot plus one diagnostic.
func (c *Client) Fetch(ctx context.Context, target, outputPath string) []diag.Diagnostic {
	if target == "" {
		return nil
	}

	u, err := url.Parse(target)
	if err != nil || !isHTTPScheme(u) {
		return c.fail(outputPath, diag.InvalidURL())
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return c.fail(outputPath, diag.InvalidURL())
	}
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	resp, err := c.getHTTPClient().Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.fail(outputPath, diag.Timeout())
		}
		var uerr *url.Error
		if errors.As(err, &uerr) && uerr.Timeout() {
			return c.fail(outputPath, diag.Timeout())
		}
		return c.fail(outputPath, diag.TransportError(err))
	}
	defer resp.Body.Close()

	statusLine := resp.Status
	headers := make([]capture.Header, 0, len(resp.Header))
	for _, name := range headerOrder(resp) {
		for _, v := range resp.Header.Values(name) {
			headers = append(headers, capture.Header{Name: name, Value: v})
		}
	}

	if err := capture.Write(outputPath, u.String(), statusLine, headers, resp.Body); err != nil {
		log.Debug().Err(err).Str("url", u.String()).Msg("capture write failed")
		return c.fail(outputPath, diag.TransportError(err))
	}
	log.Debug().Str("url", u.String()).Str("status", statusLine).Msg("captured response")
	return nil
}

// fail writes the empty snapshot that marks a failed attempt and returns
// its single diagnostic.
func (c *Client) fail(outputPath string, d diag.Diagnostic) []diag.Diagnostic {
	if err := os.WriteFile(outputPath, nil, 0o644); err != nil {
		log.Debug().Err(err).Msg("empty snapshot write failed")
	}
	return []diag.Diagnostic{d}
}

// headerOrder returns canonical header names in a stable order. net/http
// stores headers in a map, so the capture sorts names to stay deterministic.
func headerOrder(resp *http.Response) []string {
	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

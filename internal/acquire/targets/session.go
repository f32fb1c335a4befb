package targets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"certhub/internal/acquire"
)

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

// maxBodySize caps how much of any response is buffered. Certificates are tens
// of kilobytes; anything past this is not a document we want.
const maxBodySize = 8 << 20

// httpSession is the shared transport state behind every driver session: one
// cookie jar, the last HTML page seen, and any document response sniffed
// mid-flight.
type httpSession struct {
	client *http.Client

	// lastPage is the body of the most recent non-document response, used by
	// verify parsing and by the linked-page capture channel.
	lastPage []byte

	// sniffed holds the first document-typed response body observed on this
	// session. It feeds the intercept capture channel.
	sniffed []byte
}

func newHTTPSession(timeout time.Duration) (*httpSession, error) {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	return &httpSession{
		client: &http.Client{Jar: jar, Timeout: timeout},
	}, nil
}

func (s *httpSession) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	return s.do(req)
}

func (s *httpSession) postForm(ctx context.Context, rawURL string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return s.do(req)
}

func (s *httpSession) do(req *http.Request) ([]byte, error) {
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%s answered HTTP %d", req.URL.Host, resp.StatusCode)
	}

	if isDocumentResponse(resp.Header.Get("Content-Type"), body) {
		if s.sniffed == nil {
			s.sniffed = body
		}
	} else {
		s.lastPage = body
	}
	return body, nil
}

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	return nil
}

// isDocumentResponse spots a binary document regardless of how sloppy the
// authority's headers are: some serve PDFs as text/html.
func isDocumentResponse(contentType string, body []byte) bool {
	if strings.Contains(contentType, "pdf") || strings.Contains(contentType, "octet-stream") {
		return true
	}
	return bytes.HasPrefix(body, []byte("%PDF"))
}

// pageContains reports whether the last page carries the marker,
// case-insensitively.
func (s *httpSession) pageContains(marker string) bool {
	return bytes.Contains(bytes.ToLower(s.lastPage), bytes.ToLower([]byte(marker)))
}

// captureFunc adapts a closure to acquire.CaptureStrategy.
type captureFunc struct {
	name string
	fn   func(ctx context.Context) ([]byte, error)
}

func (c captureFunc) Name() string                                { return c.name }
func (c captureFunc) Capture(ctx context.Context) ([]byte, error) { return c.fn(ctx) }

// interceptChannel replays a document response sniffed earlier on the session.
func interceptChannel(s *httpSession) acquire.CaptureStrategy {
	return captureFunc{name: "intercept", fn: func(context.Context) ([]byte, error) {
		if s.sniffed == nil {
			return nil, fmt.Errorf("no document response observed on this session")
		}
		return s.sniffed, nil
	}}
}

var docLinkPattern = regexp.MustCompile(`(?i)(?:href|src)="([^"]+\.pdf[^"]*)"`)

// linkedPageChannel scans the last HTML page for a document link and follows
// it with the session cookies.
func linkedPageChannel(s *httpSession, baseURL string) acquire.CaptureStrategy {
	return captureFunc{name: "linked-page", fn: func(ctx context.Context) ([]byte, error) {
		m := docLinkPattern.FindSubmatch(s.lastPage)
		if m == nil {
			return nil, fmt.Errorf("no document link on result page")
		}
		return s.get(ctx, absoluteURL(baseURL, string(m[1])))
	}}
}

// directFetchChannel downloads a fixed per-session document URL.
func directFetchChannel(s *httpSession, docURL func() string) acquire.CaptureStrategy {
	return captureFunc{name: "direct-fetch", fn: func(ctx context.Context) ([]byte, error) {
		u := docURL()
		if u == "" {
			return nil, fmt.Errorf("document URL not established")
		}
		return s.get(ctx, u)
	}}
}

// renderChannel asks the authority to render the document server-side, the
// fallback for targets that only ever show an HTML result.
func renderChannel(s *httpSession, renderURL string, form func() url.Values) acquire.CaptureStrategy {
	return captureFunc{name: "render", fn: func(ctx context.Context) ([]byte, error) {
		return s.postForm(ctx, renderURL, form())
	}}
}

func absoluteURL(base, ref string) string {
	b, err := url.Parse(base)
	if err != nil {
		return ref
	}
	r, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return b.ResolveReference(r).String()
}

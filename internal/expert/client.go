// Package expert talks to the legacy Expert control panel: it scrapes the
// server-rendered edit forms for the anti-forgery token and current field
// values, and posts legacy-compatible multipart form submissions back.
//
// The endpoint has no API. Success on a POST is an HTTP 2xx or a redirect;
// there is no structured payload either way.
package expert

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the site root, scheme included, no trailing slash.
	BaseURL string
	// Cookie is the raw Cookie header carrying the user's session.
	Cookie    string
	UserAgent string

	// FetchTimeout bounds one edit-page GET; SubmitTimeout bounds one save
	// POST. Zero values get defaults (10s GET, 30s POST).
	FetchTimeout  time.Duration
	SubmitTimeout time.Duration

	// HTTPClient overrides the default client (tests). Its CheckRedirect is
	// replaced; redirects are never followed, a 3xx is a terminal answer.
	HTTPClient *http.Client
}

// Client is a stateless HTTP client for one site. Safe for concurrent use.
type Client struct {
	base          *url.URL
	cookie        string
	userAgent     string
	fetchTimeout  time.Duration
	submitTimeout time.Duration
	http          *http.Client
	log           *slog.Logger
}

// NewClient validates opts and returns a Client. A nil logger discards.
func NewClient(opts Options, log *slog.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{}
	}
	// A redirect from the edit page means the session bounced (login); a
	// redirect from a save POST means success. Either way the first response
	// is the answer.
	hc.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		return http.ErrUseLastResponse
	}
	fetchTimeout := opts.FetchTimeout
	if fetchTimeout <= 0 {
		fetchTimeout = 10 * time.Second
	}
	submitTimeout := opts.SubmitTimeout
	if submitTimeout <= 0 {
		submitTimeout = 30 * time.Second
	}
	return &Client{
		base:          base,
		cookie:        opts.Cookie,
		userAgent:     opts.UserAgent,
		fetchTimeout:  fetchTimeout,
		submitTimeout: submitTimeout,
		http:          hc,
		log:           log,
	}, nil
}

func (c *Client) pageURL(path string) string {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	return u.String()
}

func (c *Client) newRequest(ctx context.Context, method, rawURL string, body *requestBody) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, body.reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, rawURL, nil)
	}
	if err != nil {
		return nil, err
	}
	if c.cookie != "" {
		req.Header.Set("Cookie", c.cookie)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	if body != nil {
		req.Header.Set("Content-Type", body.contentType)
	}
	return req, nil
}

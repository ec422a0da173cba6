// Package fetch retrieves single paths below a target, with retries and a hard
// per-request deadline.
package fetch

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/phuslu/log"
	"github.com/valyala/fasthttp"

	"github.com/deletescape/gitdump/internal/target"
)

// Doer is the part of *fasthttp.Client the fetcher needs. Do-style calls never
// follow redirects.
type Doer interface {
	DoDeadline(req *fasthttp.Request, resp *fasthttp.Response, deadline time.Time) error
}

type Options struct {
	// Retries is the maximum number of attempts per request.
	Retries int
	// Timeout bounds all attempts of one request together.
	Timeout time.Duration
	// Backoff is the first delay between attempts, DefaultBackoff if zero.
	Backoff time.Duration
}

const defaultTimeout = 10 * time.Second

type Client struct {
	target *target.Target
	doer   Doer
	opts   Options
}

// NewHTTPClient returns the fasthttp client used against real targets.
func NewHTTPClient(jobs int) *fasthttp.Client {
	return &fasthttp.Client{
		MaxConnsPerHost: max(jobs+250, fasthttp.DefaultMaxConnsPerHost),
		TLSConfig: &tls.Config{
			InsecureSkipVerify: true,
		},
		NoDefaultUserAgentHeader: true,
		MaxConnWaitTimeout:       10 * time.Second,
	}
}

func New(t *target.Target, doer Doer, opts Options) *Client {
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	return &Client{target: t, doer: doer, opts: opts}
}

func (c *Client) Target() *target.Target {
	return c.target
}

// Get fetches p relative to the target. Any HTTP status is a successful result
// except 429, which is retried; network errors are retried until the retry
// budget or the deadline runs out.
func (c *Client) Get(ctx context.Context, p string) (*Response, error) {
	uri, err := c.target.URL(p)
	if err != nil {
		return nil, err
	}
	return withDeadline(ctx, c.opts.Timeout, func(ctx context.Context) (*Response, error) {
		attempt := 0
		return retry(ctx, c.opts.Retries, c.opts.Backoff, func() (*Response, error) {
			attempt++
			if attempt > 1 {
				log.Debug().Str("uri", uri).Int("attempt", attempt).Msg("retrying")
			}
			return c.do(ctx, uri)
		})
	})
}

func (c *Client) do(ctx context.Context, uri string) (*Response, error) {
	req := fasthttp.AcquireRequest()
	defer fasthttp.ReleaseRequest(req)
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(uri)
	req.Header.SetMethod("GET")

	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.opts.Timeout)
	}
	if err := c.doer.DoDeadline(req, resp, deadline); err != nil {
		return nil, err
	}

	if resp.StatusCode() == statusTooManyRequests {
		return nil, rateLimited(uri, string(resp.Header.Peek("Retry-After")))
	}

	r := &Response{
		URL:           uri,
		StatusCode:    resp.StatusCode(),
		ContentType:   string(resp.Header.ContentType()),
		ContentLength: resp.Header.ContentLength(),
		Location:      string(resp.Header.Peek("Location")),
		Body:          append([]byte(nil), resp.Body()...),
	}
	log.Debug().Str("uri", uri).Int("code", r.StatusCode).Msg("fetched")
	return r, nil
}

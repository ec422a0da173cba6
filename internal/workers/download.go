// Package workers holds the stages of a dump: plain downloads, the directory
// listing crawl, ref discovery and object reconciliation.
package workers

import (
	"context"
	"fmt"

	"github.com/phuslu/log"

	"github.com/deletescape/gitdump/internal/dispatch"
	"github.com/deletescape/gitdump/internal/fetch"
	"github.com/deletescape/gitdump/internal/store"
)

// Fetcher retrieves a single path below the target.
type Fetcher interface {
	Get(ctx context.Context, p string) (*fetch.Response, error)
}

type Worker struct {
	fetcher Fetcher
	store   *store.Store
	jobs    int
	keep    bool
}

// New returns a Worker running at most jobs requests at once. With keep set,
// paths already in the store are read from there instead of being fetched.
func New(f Fetcher, s *store.Store, jobs int, keep bool) *Worker {
	return &Worker{fetcher: f, store: s, jobs: jobs, keep: keep}
}

// Outcome is the result of fetching one path: Delivered, Redirected or Skipped.
type Outcome interface {
	outcome()
}

// Delivered means the body was written to the store.
type Delivered struct {
	Path string
	Body []byte
	// Cached is set when the body came from the store in keep mode.
	Cached bool
}

// Redirected means the server answered 301 or 302, which marks a directory.
type Redirected struct {
	Path     string
	Location string
}

// Skipped means the response was not worth keeping.
type Skipped struct {
	Path   string
	Reason string
}

func (Delivered) outcome()  {}
func (Redirected) outcome() {}
func (Skipped) outcome()    {}

type mode int

const (
	// verbatim writes any 200 response as received.
	verbatim mode = iota
	// strict skips redirects and html or empty responses, which servers hand
	// out for paths that do not exist.
	strict
)

// Download fetches p and stores it. Redirects, HTML and empty bodies are
// skipped.
func (w *Worker) Download(ctx context.Context, p string) (Outcome, error) {
	return w.fetch(ctx, p, strict)
}

// DownloadAll downloads paths concurrently and returns how many were delivered.
// Failures are logged and dropped.
func (w *Worker) DownloadAll(ctx context.Context, paths []string) int {
	delivered := dispatch.Map(ctx, w.jobs, paths, func(ctx context.Context, p string) (bool, error) {
		out, err := w.Download(ctx, p)
		if err != nil {
			return false, err
		}
		_, ok := out.(Delivered)
		return ok, nil
	})
	n := 0
	for _, ok := range delivered {
		if ok {
			n++
		}
	}
	return n
}

func (w *Worker) fetch(ctx context.Context, p string, m mode) (Outcome, error) {
	if w.keep && w.store.Exists(p) {
		body, err := w.store.ReadFile(p)
		if err != nil {
			return nil, err
		}
		log.Info().Str("file", p).Msg("already fetched, skipping redownload")
		return Delivered{Path: p, Body: body, Cached: true}, nil
	}

	resp, err := w.fetcher.Get(ctx, p)
	if err != nil {
		return nil, err
	}
	out := classify(p, resp, m)
	switch o := out.(type) {
	case Delivered:
		if err := w.store.Write(p, o.Body); err != nil {
			return nil, fmt.Errorf("couldn't write %s: %w", p, err)
		}
		log.Info().Str("uri", resp.URL).Msg("fetched file")
	case Redirected:
		log.Debug().Str("uri", resp.URL).Str("location", o.Location).Msg("redirected")
	case Skipped:
		log.Warn().Str("uri", resp.URL).Int("code", resp.StatusCode).Str("reason", o.Reason).Msg("skipping")
	}
	return out, nil
}

func classify(p string, resp *fetch.Response, m mode) Outcome {
	switch {
	case resp.IsRedirect() && m == strict:
		return Skipped{Path: p, Reason: fmt.Sprintf("redirected to %s", resp.Location)}
	case resp.IsRedirect():
		return Redirected{Path: p, Location: resp.Location}
	case resp.StatusCode == 200:
		if m == strict {
			if err := resp.Verify(); err != nil {
				return Skipped{Path: p, Reason: err.Error()}
			}
		}
		return Delivered{Path: p, Body: resp.Body}
	default:
		return Skipped{Path: p, Reason: fmt.Sprintf("status code %d", resp.StatusCode)}
	}
}

package workers

import (
	"context"
	"fmt"
	"net/url"

	"github.com/phuslu/log"

	"github.com/deletescape/gitdump/internal/dispatch"
	"github.com/deletescape/gitdump/internal/utils"
)

// CrawlStats describes a finished crawl.
type CrawlStats struct {
	Waves      int
	Files      int
	Dirs       int
	Discovered int
}

type crawlResult struct {
	children []string
	file     bool
	dir      bool
}

// Crawl downloads seeds and everything reachable from them through directory
// listings, one wave at a time. A wave only starts once the previous one is
// complete; the crawl ends with the first wave that discovers nothing new.
func (w *Worker) Crawl(ctx context.Context, seeds []string) CrawlStats {
	var stats CrawlStats
	seen := make(map[string]struct{})
	frontier := unseen(seen, seeds)

	for len(frontier) > 0 {
		stats.Waves++
		log.Info().Int("wave", stats.Waves).Int("paths", len(frontier)).Msg("crawling")

		results := dispatch.Map(ctx, w.jobs, frontier, w.crawl)

		var next []string
		for _, r := range results {
			if r.file {
				stats.Files++
			}
			if r.dir {
				stats.Dirs++
			}
			next = append(next, unseen(seen, r.children)...)
		}
		stats.Discovered += len(next)
		frontier = next
	}
	return stats
}

func (w *Worker) crawl(ctx context.Context, p string) (crawlResult, error) {
	out, err := w.fetch(ctx, p, verbatim)
	if err != nil {
		return crawlResult{}, err
	}
	switch out.(type) {
	case Redirected:
		children, err := w.listDirectory(ctx, p)
		if err != nil {
			return crawlResult{}, err
		}
		return crawlResult{children: children, dir: true}, nil
	case Delivered:
		return crawlResult{file: true}, nil
	case Skipped:
		return crawlResult{}, nil
	default:
		return crawlResult{}, fmt.Errorf("unhandled outcome %T for %s", out, p)
	}
}

// listDirectory fetches the index page of directory p and returns its entries
// prefixed with p.
func (w *Worker) listDirectory(ctx context.Context, p string) ([]string, error) {
	resp, err := w.fetcher.Get(ctx, p+"/")
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, fmt.Errorf("directory index %s responded with status code %d", resp.URL, resp.StatusCode)
	}
	if !resp.IsHTML() {
		log.Warn().Str("uri", resp.URL).Msg("responded without content type text/html")
	}
	if _, err := resp.Text(); err != nil {
		return nil, err
	}

	var basePath string
	if u, err := url.Parse(resp.URL); err == nil {
		basePath = u.Path
	}
	entries, err := utils.ListDirectory(resp.Body, basePath)
	if err != nil {
		return nil, fmt.Errorf("couldn't get list of indexed files: %w", err)
	}
	log.Info().Str("uri", resp.URL).Int("entries", len(entries)).Msg("fetched directory listing")

	children := make([]string, len(entries))
	for i, e := range entries {
		children[i] = utils.Url(p, e)
	}
	return children, nil
}

// unseen returns the paths not yet in seen and marks them.
func unseen(seen map[string]struct{}, paths []string) []string {
	var out []string
	for _, p := range paths {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

package workers

import (
	"context"
	"regexp"
	"strings"

	"github.com/phuslu/log"
	"gopkg.in/ini.v1"

	"github.com/deletescape/gitdump/internal/dispatch"
	"github.com/deletescape/gitdump/internal/utils"
)

var (
	refRegex       = regexp.MustCompile(`refs(/[a-zA-Z0-9\-._*]+)+`)
	branchRegex    = regexp.MustCompile(`(?m)branch '([^']+)'`)
	configSecRegex = regexp.MustCompile(`^(branch|remote) "(.+)"$`)
)

// RefStats describes a finished ref search.
type RefStats struct {
	Waves   int
	Fetched int
}

// FindRefs fetches seeds, scans every fetched file for ref names and fetches the
// value and reflog of each new ref, wave after wave, until a wave turns up no
// path that was not requested before.
func (w *Worker) FindRefs(ctx context.Context, seeds []string) RefStats {
	var stats RefStats
	seen := make(map[string]struct{})
	frontier := unseen(seen, seeds)

	for len(frontier) > 0 {
		stats.Waves++
		log.Info().Int("wave", stats.Waves).Int("paths", len(frontier)).Msg("finding refs")

		found := dispatch.Map(ctx, w.jobs, frontier, w.findRefs)

		var next []string
		for _, paths := range found {
			if paths != nil {
				stats.Fetched++
			}
			next = append(next, unseen(seen, paths)...)
		}
		frontier = next
	}
	return stats
}

// findRefs returns a non-nil slice whenever p was delivered, so delivered files
// can be counted even if they reference nothing.
func (w *Worker) findRefs(ctx context.Context, p string) ([]string, error) {
	out, err := w.fetch(ctx, p, strict)
	if err != nil {
		return nil, err
	}
	d, ok := out.(Delivered)
	if !ok {
		return nil, nil
	}
	if utils.IsEmptyBytes(d.Body) {
		return []string{}, nil
	}
	return append([]string{}, RefPaths(p, d.Body)...), nil
}

// RefPaths returns the candidate paths for every ref named in body, the contents
// of the file at p. Each ref yields its value file below .git and its reflog
// below .git/logs. Wildcard refs from refspecs are not expanded.
func RefPaths(p string, body []byte) []string {
	var refs []string
	for _, m := range refRegex.FindAll(body, -1) {
		refs = append(refs, string(m))
	}
	switch p {
	case ".git/config":
		refs = append(refs, configRefs(body)...)
	case ".git/FETCH_HEAD":
		for _, m := range branchRegex.FindAllSubmatch(body, -1) {
			refs = append(refs, "refs/remotes/origin/"+string(m[1]))
		}
	}

	var paths []string
	for _, ref := range refs {
		if strings.HasSuffix(ref, "*") || !safeRef(ref) {
			continue
		}
		paths = append(paths, utils.Url(".git", ref), utils.Url(".git/logs", ref))
	}
	return paths
}

// configRefs derives the refs implied by the branch and remote sections of a git
// config: every local branch, and every branch under every remote.
func configRefs(body []byte) []string {
	cfg, err := ini.LoadSources(ini.LoadOptions{
		AllowBooleanKeys:        true,
		SkipUnrecognizableLines: true,
	}, body)
	if err != nil {
		log.Warn().Err(err).Msg("couldn't parse .git/config")
		return nil
	}

	var branches, remotes []string
	for _, name := range cfg.SectionStrings() {
		m := configSecRegex.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		switch m[1] {
		case "branch":
			branches = append(branches, m[2])
		case "remote":
			remotes = append(remotes, m[2])
		}
	}

	var refs []string
	for _, b := range branches {
		refs = append(refs, "refs/heads/"+b)
		for _, r := range remotes {
			refs = append(refs, "refs/remotes/"+r+"/"+b)
		}
	}
	return refs
}

// safeRef rejects refs with segments that would move the path out of .git.
func safeRef(ref string) bool {
	for _, seg := range strings.Split(ref, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return false
		}
	}
	return true
}

// Package gitdump reconstructs git repositories from .git directories exposed by
// web servers.
package gitdump

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/phuslu/log"

	"github.com/deletescape/gitdump/internal/checkout"
	"github.com/deletescape/gitdump/internal/config"
	"github.com/deletescape/gitdump/internal/fetch"
	"github.com/deletescape/gitdump/internal/store"
	"github.com/deletescape/gitdump/internal/target"
	"github.com/deletescape/gitdump/internal/utils"
	"github.com/deletescape/gitdump/internal/workers"
)

// Clone dumps the repository exposed at rawURL into dir, or into a directory
// named after the host when dir is empty.
func Clone(ctx context.Context, rawURL, dir string, cfg config.Config) error {
	t, err := target.Parse(rawURL)
	if err != nil {
		return err
	}
	if dir == "" {
		dir = t.Host()
	}
	if err := utils.PrepareDir(dir, cfg.Force, cfg.Keep); err != nil {
		return err
	}

	client := fetch.New(t, fetch.NewHTTPClient(cfg.Jobs), fetch.Options{
		Retries: cfg.Retries,
		Timeout: cfg.Timeout,
	})
	w := workers.New(client, store.Open(dir), cfg.Jobs, cfg.Keep)

	log.Info().Str("target", t.String()).Str("dir", dir).Int("jobs", cfg.Jobs).Msg("dumping")
	return New(client, w, checkout.Git{Dir: dir}).Run(ctx)
}

// CloneList dumps every target listed in the file at listFile, one URL per line,
// into its own directory below dir. A failing target is logged and skipped.
func CloneList(ctx context.Context, listFile, dir string, cfg config.Config) error {
	f, err := os.Open(listFile)
	if err != nil {
		return err
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("couldn't read %s: %w", listFile, err)
	}

	failed := 0
	for _, u := range targets {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		sub, err := targetDir(dir, u)
		if err != nil {
			log.Error().Str("target", u).Err(err).Msg("skipping target")
			failed++
			continue
		}
		if err := Clone(ctx, u, sub, cfg); err != nil {
			log.Error().Str("target", u).Err(err).Msg("couldn't dump target")
			failed++
		}
	}
	log.Info().Int("targets", len(targets)).Int("failed", failed).Msg("finished list")
	return nil
}

// targetDir names the output directory of one list entry after its host and
// base path.
func targetDir(dir, rawURL string) (string, error) {
	t, err := target.Parse(rawURL)
	if err != nil {
		return "", err
	}
	parts := append([]string{dir, t.Host()}, t.Segments()...)
	return filepath.Join(parts...), nil
}

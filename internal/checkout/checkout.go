// Package checkout materializes the working tree of a dumped repository with the
// git binary.
package checkout

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"regexp"

	"github.com/phuslu/log"
)

var missingRegex = regexp.MustCompile(`(?m)error: unable to read sha1 file of (.+?) \(`)

// Checkouter restores the working tree once the .git directory is on disk.
type Checkouter interface {
	// Checkout runs the checkout. When tolerateIncomplete is set a failing
	// checkout is reported but not returned as an error.
	Checkout(ctx context.Context, tolerateIncomplete bool) error
}

// Git runs `git checkout .` in Dir.
type Git struct {
	Dir string
}

func (g Git) Checkout(ctx context.Context, tolerateIncomplete bool) error {
	mode := "strict"
	if tolerateIncomplete {
		mode = "lenient"
	}
	log.Info().Str("dir", g.Dir).Str("mode", mode).Msg("running git checkout")

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "git", "checkout", ".")
	cmd.Dir = g.Dir
	cmd.Stderr = &stderr
	err := cmd.Run()
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return fmt.Errorf("failed to run git checkout, make sure git is installed: %w", err)
	}
	if !tolerateIncomplete {
		return fmt.Errorf("git checkout failed: %w: %s", err, bytes.TrimSpace(stderr.Bytes()))
	}

	missing := MissingFiles(stderr.Bytes())
	for _, f := range missing {
		log.Warn().Str("file", f).Msg("object for file is missing")
	}
	log.Warn().Err(err).Int("missing", len(missing)).Msg("checkout did not exit cleanly, some files from the tree may be missing")
	return nil
}

// MissingFiles lists the files git reported as unreadable during a checkout.
func MissingFiles(stderr []byte) []string {
	var files []string
	for _, m := range missingRegex.FindAllSubmatch(stderr, -1) {
		files = append(files, string(m[1]))
	}
	return files
}

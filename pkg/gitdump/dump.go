package gitdump

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strings"

	"github.com/phuslu/log"

	"github.com/deletescape/gitdump/internal/checkout"
	"github.com/deletescape/gitdump/internal/utils"
	"github.com/deletescape/gitdump/internal/workers"
)

var ErrNotAGitHead = errors.New("not a git HEAD file")

const (
	headPath      = ".git/HEAD"
	gitDir        = ".git/"
	gitignorePath = ".gitignore"
)

// State is the position of a Dumper in its run.
type State int

const (
	StateInit State = iota
	StateProbing
	StateListing
	StateBlind
	StateDone
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "init"
	case StateProbing:
		return "probing"
	case StateListing:
		return "listing"
	case StateBlind:
		return "blind"
	case StateDone:
		return "done"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Stage is one step of a blind dump. Stages run in declaration order.
type Stage int

const (
	StageKnownFiles Stage = iota
	StageRefs
	StagePacks
	StageObjects
)

func (s Stage) String() string {
	switch s {
	case StageKnownFiles:
		return "known files"
	case StageRefs:
		return "refs"
	case StagePacks:
		return "packs"
	case StageObjects:
		return "objects"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

type Option func(*Dumper)

// WithStateHook registers fn to be called on every state change.
func WithStateHook(fn func(State)) Option {
	return func(d *Dumper) { d.onState = fn }
}

// WithStageHook registers fn to be called before every blind stage.
func WithStageHook(fn func(Stage)) Option {
	return func(d *Dumper) { d.onStage = fn }
}

// Dumper decides how a target can be dumped and drives the workers accordingly.
type Dumper struct {
	fetcher  workers.Fetcher
	worker   *workers.Worker
	checkout checkout.Checkouter

	state   State
	onState func(State)
	onStage func(Stage)
}

func New(f workers.Fetcher, w *workers.Worker, co checkout.Checkouter, opts ...Option) *Dumper {
	d := &Dumper{fetcher: f, worker: w, checkout: co}
	for _, o := range opts {
		o(d)
	}
	return d
}

func (d *Dumper) State() State {
	return d.state
}

// Run probes the target, dumps its .git directory either by crawling the listing
// or blindly, and checks out the working tree. Only a failed probe or checkout is
// returned as an error; failures of single files are logged.
func (d *Dumper) Run(ctx context.Context) error {
	d.setState(StateProbing)
	if err := d.probe(ctx); err != nil {
		return err
	}

	if entries := d.listGitDir(ctx); entries != nil {
		d.setState(StateListing)
		seeds := make([]string, 0, len(entries)+1)
		for _, e := range entries {
			seeds = append(seeds, utils.Url(".git", e))
		}
		seeds = append(seeds, gitignorePath)
		stats := d.worker.Crawl(ctx, seeds)
		log.Info().Int("waves", stats.Waves).Int("files", stats.Files).Int("dirs", stats.Dirs).Msg("crawled .git")
	} else {
		d.setState(StateBlind)
		d.blind(ctx)
	}

	err := d.checkout.Checkout(ctx, d.state == StateBlind)
	d.setState(StateDone)
	return err
}

func (d *Dumper) probe(ctx context.Context) error {
	resp, err := d.fetcher.Get(ctx, headPath)
	if err != nil {
		return fmt.Errorf("couldn't fetch %s: %w", headPath, err)
	}
	log.Info().Str("uri", resp.URL).Int("code", resp.StatusCode).Msg("testing HEAD")
	if err := resp.Verify(); err != nil {
		return fmt.Errorf("%w: %w", ErrNotAGitHead, err)
	}
	text, err := resp.Text()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotAGitHead, err)
	}
	if !headRegex.MatchString(strings.TrimSpace(text)) {
		return fmt.Errorf("%w: %s", ErrNotAGitHead, resp.URL)
	}
	return nil
}

// listGitDir returns the entries of the .git directory index, or nil when the
// server shows no index or the index does not list HEAD.
func (d *Dumper) listGitDir(ctx context.Context) []string {
	resp, err := d.fetcher.Get(ctx, gitDir)
	if err != nil {
		log.Warn().Str("path", gitDir).Err(err).Msg("couldn't fetch directory index")
		return nil
	}
	log.Info().Str("uri", resp.URL).Int("code", resp.StatusCode).Msg("testing directory index")
	if resp.StatusCode != 200 {
		return nil
	}
	if !resp.IsHTML() && !utils.IsHtml(resp.Body) {
		log.Warn().Str("uri", resp.URL).Msg("responded without content type text/html")
	}

	var basePath string
	if u, err := url.Parse(resp.URL); err == nil {
		basePath = u.Path
	}
	entries, err := utils.ListDirectory(resp.Body, basePath)
	if err != nil {
		log.Warn().Str("uri", resp.URL).Err(err).Msg("couldn't get list of indexed files")
		return nil
	}
	if !slices.Contains(entries, "HEAD") {
		return nil
	}
	return entries
}

func (d *Dumper) blind(ctx context.Context) {
	d.stage(StageKnownFiles)
	n := d.worker.DownloadAll(ctx, commonFiles)
	log.Info().Int("fetched", n).Int("tried", len(commonFiles)).Msg("fetched common files")

	d.stage(StageRefs)
	refs := d.worker.FindRefs(ctx, commonRefs)
	log.Info().Int("waves", refs.Waves).Int("fetched", refs.Fetched).Msg("found refs")

	d.stage(StagePacks)
	d.worker.FindPacks(ctx)

	d.stage(StageObjects)
	paths := d.worker.FindObjects(ctx).Paths()
	n = d.worker.DownloadAll(ctx, paths)
	log.Info().Int("fetched", n).Int("tried", len(paths)).Msg("fetched objects")
}

func (d *Dumper) setState(s State) {
	log.Debug().Str("from", d.state.String()).Str("to", s.String()).Msg("state change")
	d.state = s
	if d.onState != nil {
		d.onState(s)
	}
}

func (d *Dumper) stage(s Stage) {
	log.Info().Str("stage", s.String()).Msg("starting stage")
	if d.onStage != nil {
		d.onStage(s)
	}
}

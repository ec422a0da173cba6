package workers

import (
	"context"
	"fmt"
	"regexp"

	"github.com/bmatcuk/doublestar"
	"github.com/phuslu/log"

	"github.com/deletescape/gitdump/internal/dispatch"
	"github.com/deletescape/gitdump/internal/objects"
	"github.com/deletescape/gitdump/internal/pack"
)

var packRegex = regexp.MustCompile(`pack-([a-f0-9]{40})\.pack`)

const (
	infoPacksPath = ".git/objects/info/packs"
	indexPath     = ".git/index"
	packIndexGlob = ".git/objects/pack/pack-*.idx"
	packDir       = ".git/objects/pack"
	refsDir       = ".git/refs"
	logsDir       = ".git/logs"
)

// hashSources are scanned for object hashes along with everything below
// .git/refs and .git/logs.
var hashSources = []string{
	".git/packed-refs",
	".git/info/refs",
	".git/FETCH_HEAD",
	".git/ORIG_HEAD",
}

// FindPacks reads the local objects/info/packs and downloads the index and pack
// of every pack it names. It returns the paths it requested.
func (w *Worker) FindPacks(ctx context.Context) []string {
	if !w.store.Exists(infoPacksPath) {
		log.Info().Msg("no pack list, skipping pack download")
		return nil
	}
	body, err := w.store.ReadFile(infoPacksPath)
	if err != nil {
		log.Warn().Str("file", infoPacksPath).Err(err).Msg("error while reading file")
		return nil
	}

	var paths []string
	seen := make(map[string]struct{})
	for _, m := range packRegex.FindAllSubmatch(body, -1) {
		sha1 := string(m[1])
		if _, ok := seen[sha1]; ok {
			continue
		}
		seen[sha1] = struct{}{}
		paths = append(paths,
			fmt.Sprintf(".git/objects/pack/pack-%s.idx", sha1),
			fmt.Sprintf(".git/objects/pack/pack-%s.pack", sha1),
		)
	}
	n := w.DownloadAll(ctx, paths)
	log.Info().Int("packs", len(seen)).Int("fetched", n).Msg("fetched packs")
	return paths
}

// FindObjects gathers every object hash the local files mention: hashes in ref
// and log files, entries of the index, and the contents of every downloaded pack
// index. A source that cannot be read or parsed contributes nothing.
func (w *Worker) FindObjects(ctx context.Context) *objects.Set {
	set := objects.NewSet()

	sources := append([]string(nil), hashSources...)
	for _, dir := range []string{refsDir, logsDir} {
		files, err := w.store.Files(dir)
		if err != nil {
			log.Warn().Str("dir", dir).Err(err).Msg("couldn't list directory")
			continue
		}
		sources = append(sources, files...)
	}
	for _, f := range sources {
		if !w.store.Exists(f) {
			continue
		}
		body, err := w.store.ReadFile(f)
		if err != nil {
			log.Warn().Str("file", f).Err(err).Msg("error while reading file")
			continue
		}
		set.AddAll(objects.ScanHashes(body))
	}
	log.Debug().Int("objects", set.Len()).Msg("scanned refs and logs")

	if w.store.Exists(indexPath) {
		if hashes, err := w.readIndex(); err != nil {
			log.Warn().Str("file", indexPath).Err(err).Msg("couldn't decode index")
		} else {
			set.AddAll(hashes)
		}
	}
	log.Debug().Int("objects", set.Len()).Msg("read index")

	dispatch.Each(ctx, w.jobs, w.packIndexes(), func(_ context.Context, p string) error {
		data, err := w.store.ReadFile(p)
		if err != nil {
			return err
		}
		hashes, err := pack.Hashes(data)
		if err != nil {
			return err
		}
		set.AddAll(hashes)
		return nil
	})
	log.Info().Int("objects", set.Len()).Msg("found objects")
	return set
}

func (w *Worker) readIndex() ([]string, error) {
	f, err := w.store.Open(indexPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return objects.ReadIndex(f)
}

func (w *Worker) packIndexes() []string {
	files, err := w.store.Files(packDir)
	if err != nil {
		log.Warn().Str("dir", packDir).Err(err).Msg("couldn't list directory")
		return nil
	}
	var idx []string
	for _, f := range files {
		if ok, _ := doublestar.Match(packIndexGlob, f); ok {
			idx = append(idx, f)
		}
	}
	return idx
}

package gitdump

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/deletescape/gitdump/internal/config"
	"github.com/deletescape/gitdump/internal/fetch"
	"github.com/deletescape/gitdump/internal/objects"
	"github.com/deletescape/gitdump/internal/pack"
	"github.com/deletescape/gitdump/internal/store"
	"github.com/deletescape/gitdump/internal/target"
	"github.com/deletescape/gitdump/internal/workers"
)

const (
	hashA    = "1a410efbd13591db07496601ebc7a059dd55cfe9"
	hashB    = "0c1f2a7e4b8d3a61b1fd6e2f5d52ef6e5e9f31b7"
	packHash = "9f1b3c2d4e5f60718293a4b5c6d7e8f901234567"
)

// site serves files by exact path and answers directories with a redirect to
// the slashed path, which is an html index when listing is on and 403 if not.
type site struct {
	files   map[string]string
	listing bool

	mu   sync.Mutex
	hits map[string]int
}

func newSite(t *testing.T, files map[string]string, listing bool) (*site, *httptest.Server) {
	t.Helper()
	s := &site{files: files, listing: listing, hits: make(map[string]int)}
	srv := httptest.NewServer(s)
	t.Cleanup(srv.Close)
	return s, srv
}

func (s *site) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/")
	s.mu.Lock()
	s.hits[p]++
	s.mu.Unlock()

	if body, ok := s.files[p]; ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(body))
		return
	}
	dir := strings.TrimSuffix(p, "/")
	children := s.children(dir)
	switch {
	case len(children) == 0:
		http.NotFound(w, r)
	case !strings.HasSuffix(p, "/"):
		http.Redirect(w, r, "/"+dir+"/", http.StatusMovedPermanently)
	case !s.listing:
		http.Error(w, "Forbidden", http.StatusForbidden)
	default:
		w.Header().Set("Content-Type", "text/html")
		var b strings.Builder
		b.WriteString("<html><body><pre><a href=\"../\">../</a>\n")
		for _, c := range children {
			b.WriteString("<a href=\"" + c + "\">" + c + "</a>\n")
		}
		b.WriteString("</pre></body></html>\n")
		_, _ = w.Write([]byte(b.String()))
	}
}

func (s *site) children(dir string) []string {
	seen := make(map[string]struct{})
	var out []string
	for p := range s.files {
		rest, ok := strings.CutPrefix(p, dir+"/")
		if !ok || rest == "" {
			continue
		}
		name, _, sub := strings.Cut(rest, "/")
		if sub {
			name += "/"
		}
		if _, ok := seen[name]; !ok {
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	return out
}

func (s *site) hitCount(p string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[p]
}

type fakeCheckout struct {
	calls []bool
	err   error
}

func (f *fakeCheckout) Checkout(_ context.Context, tolerateIncomplete bool) error {
	f.calls = append(f.calls, tolerateIncomplete)
	return f.err
}

type recorder struct {
	states []State
	stages []Stage
}

func (r *recorder) options() []Option {
	return []Option{
		WithStateHook(func(s State) { r.states = append(r.states, s) }),
		WithStageHook(func(s Stage) { r.stages = append(r.stages, s) }),
	}
}

func newDumper(t *testing.T, srv *httptest.Server, rec *recorder) (*Dumper, *fakeCheckout, *store.Store) {
	t.Helper()
	tgt, err := target.Parse(srv.URL)
	require.NoError(t, err)
	client := fetch.New(tgt, &fasthttp.Client{}, fetch.Options{Retries: 1, Timeout: 5 * time.Second})
	s := store.New(memfs.New())
	co := &fakeCheckout{}
	return New(client, workers.New(client, s, 4, false), co, rec.options()...), co, s
}

func flatIndex(t *testing.T, hashes ...string) string {
	t.Helper()
	var buf bytes.Buffer
	buf.Write(pack.Signature[:])
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(2)))
	require.NoError(t, binary.Write(&buf, binary.BigEndian, uint32(len(hashes))))
	for _, h := range hashes {
		raw, err := hex.DecodeString(h)
		require.NoError(t, err)
		buf.Write(raw)
		buf.Write(make([]byte, 8))
	}
	return buf.String()
}

func TestRunListing(t *testing.T) {
	files := map[string]string{
		".git/HEAD":               "ref: refs/heads/main\n",
		".git/config":             "[core]\n\tbare = false\n",
		".git/refs/heads/main":    hashA + "\n",
		".git/objects/info/packs": "P pack-" + packHash + ".pack\n",
		objects.LoosePath(hashA):  "x\x01compressed",
		".gitignore":              "node_modules/\n.env\n",
	}
	s, srv := newSite(t, files, true)
	rec := &recorder{}
	d, co, st := newDumper(t, srv, rec)

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []State{StateProbing, StateListing, StateDone}, rec.states)
	assert.Empty(t, rec.stages)
	assert.Equal(t, []bool{false}, co.calls)
	assert.Equal(t, StateDone, d.State())
	for p, body := range files {
		got, err := st.ReadFile(p)
		require.NoError(t, err, p)
		assert.Equal(t, body, string(got), p)
	}
	assert.Zero(t, s.hitCount(".git/objects/pack/pack-"+packHash+".idx"))
	assert.Equal(t, 1, s.hitCount(".git/"))
	assert.Equal(t, 1, s.hitCount(".gitignore"))
}

func TestRunListingWithoutHtmlContentType(t *testing.T) {
	files := map[string]string{
		".git/":       `<pre><a href="HEAD">HEAD</a> <a href="config">config</a></pre>`,
		".git/HEAD":   "ref: refs/heads/main\n",
		".git/config": "[core]\n\tbare = false\n",
	}
	_, srv := newSite(t, files, false)
	rec := &recorder{}
	d, co, st := newDumper(t, srv, rec)

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []State{StateProbing, StateListing, StateDone}, rec.states)
	assert.Equal(t, []bool{false}, co.calls)
	assert.True(t, st.Exists(".git/config"))
}

func TestRunBlind(t *testing.T) {
	files := map[string]string{
		".git/HEAD":               "ref: refs/heads/main\n",
		".git/refs/heads/main":    hashA + "\n",
		".git/objects/info/packs": "P pack-" + packHash + ".pack\n",
		".git/objects/pack/pack-" + packHash + ".idx":  flatIndex(t, hashB),
		".git/objects/pack/pack-" + packHash + ".pack": "PACK\x00\x00\x00\x02\x00\x00\x00\x01",
		objects.LoosePath(hashA):                       "x\x01compressed",
	}
	s, srv := newSite(t, files, false)
	rec := &recorder{}
	d, co, st := newDumper(t, srv, rec)

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []State{StateProbing, StateBlind, StateDone}, rec.states)
	assert.Equal(t, []Stage{StageKnownFiles, StageRefs, StagePacks, StageObjects}, rec.stages)
	assert.Equal(t, []bool{true}, co.calls)
	for p, body := range files {
		got, err := st.ReadFile(p)
		require.NoError(t, err, p)
		assert.Equal(t, body, string(got), p)
	}
	assert.Equal(t, 1, s.hitCount(objects.LoosePath(hashB)))
	assert.False(t, st.Exists(objects.LoosePath(hashB)))
}

func TestRunIndexWithoutHeadIsBlind(t *testing.T) {
	files := map[string]string{
		".git/HEAD": hashA + "\n",
		".git/":     `<html><body><a href="index.php">Home</a></body></html>`,
	}
	_, srv := newSite(t, files, false)
	rec := &recorder{}
	d, co, _ := newDumper(t, srv, rec)

	require.NoError(t, d.Run(context.Background()))

	assert.Equal(t, []State{StateProbing, StateBlind, StateDone}, rec.states)
	assert.Equal(t, []bool{true}, co.calls)
}

func TestRunNotAGitHead(t *testing.T) {
	cases := map[string]http.HandlerFunc{
		"garbage": func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte("hello world\n"))
		},
		"html": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte("<html><body>ref: refs/heads/main</body></html>"))
		},
		"missing": http.NotFound,
		"empty": func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
		},
	}
	for name, handler := range cases {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(handler)
			t.Cleanup(srv.Close)
			rec := &recorder{}
			d, co, _ := newDumper(t, srv, rec)

			err := d.Run(context.Background())

			assert.True(t, errors.Is(err, ErrNotAGitHead), "got %v", err)
			assert.Equal(t, []State{StateProbing}, rec.states)
			assert.Empty(t, rec.stages)
			assert.Empty(t, co.calls)
		})
	}
}

func TestRunCheckoutError(t *testing.T) {
	_, srv := newSite(t, map[string]string{".git/HEAD": "ref: refs/heads/main\n"}, true)
	rec := &recorder{}
	d, co, _ := newDumper(t, srv, rec)
	co.err = errors.New("git checkout failed")

	err := d.Run(context.Background())

	assert.EqualError(t, err, "git checkout failed")
	assert.Equal(t, []bool{false}, co.calls)
	assert.Equal(t, StateDone, d.State())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "probing", StateProbing.String())
	assert.Equal(t, "blind", StateBlind.String())
	assert.Equal(t, "State(9)", State(9).String())
	assert.Equal(t, "known files", StageKnownFiles.String())
	assert.Equal(t, "Stage(7)", Stage(7).String())
}

func TestHeadRegex(t *testing.T) {
	assert.True(t, headRegex.MatchString("ref: refs/heads/main"))
	assert.True(t, headRegex.MatchString(hashA))
	assert.False(t, headRegex.MatchString(hashA+"0"))
	assert.False(t, headRegex.MatchString("<html>"))
}

func TestTargetDir(t *testing.T) {
	dir, err := targetDir("out", "https://example.com/app/.git/HEAD")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("out", "example.com", "app"), dir)

	dir, err = targetDir("", "example.org")
	require.NoError(t, err)
	assert.Equal(t, "example.org", dir)
}

func TestCloneListSkipsInvalidTargets(t *testing.T) {
	list := filepath.Join(t.TempDir(), "targets.txt")
	require.NoError(t, os.WriteFile(list, []byte("# targets\n\nmailto:someone@example.com\n"), 0o644))

	err := CloneList(context.Background(), list, t.TempDir(), config.Default())
	assert.NoError(t, err)
}

func TestCloneListMissingFile(t *testing.T) {
	err := CloneList(context.Background(), filepath.Join(t.TempDir(), "nope.txt"), "", config.Default())
	assert.Error(t, err)
}

func TestCloneInvalidTarget(t *testing.T) {
	err := Clone(context.Background(), "mailto:someone@example.com", t.TempDir(), config.Default())
	assert.ErrorIs(t, err, target.ErrInvalidTarget)
}

package workers

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/stretchr/testify/require"
	"github.com/valyala/fasthttp"

	"github.com/deletescape/gitdump/internal/fetch"
	"github.com/deletescape/gitdump/internal/pack"
	"github.com/deletescape/gitdump/internal/store"
	"github.com/deletescape/gitdump/internal/target"
)

const (
	hashA = "1a410efbd13591db07496601ebc7a059dd55cfe9"
	hashB = "0c1f2a7e4b8d3a61b1fd6e2f5d52ef6e5e9f31b7"
	hashC = "3b18e512dba79e4c8300dd08aeb37f8e728b8dad"
	hashD = "d670460b4b4aece5915caf5c68d12f560a9fe3e4"
	hashE = "e69de29bb2d1d6434b8b29ae775ad8c2e48c5391"
	zero  = "0000000000000000000000000000000000000000"
)

// fakeRepo serves files by exact path. Directories redirect to their slashed
// form, which serves an html index when listing is enabled and 403 otherwise.
type fakeRepo struct {
	files   map[string]string
	listing bool

	mu   sync.Mutex
	hits map[string]int
}

func newFakeRepo(t *testing.T, files map[string]string, listing bool) (*fakeRepo, *httptest.Server) {
	t.Helper()
	repo := &fakeRepo{files: files, listing: listing, hits: make(map[string]int)}
	srv := httptest.NewServer(repo)
	srv.Config.SetKeepAlivesEnabled(false)
	t.Cleanup(srv.Close)
	return repo, srv
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := strings.TrimPrefix(r.URL.Path, "/")
	f.mu.Lock()
	f.hits[p]++
	f.mu.Unlock()

	if body, ok := f.files[p]; ok {
		w.Header().Set("Content-Type", "application/octet-stream")
		_, _ = w.Write([]byte(body))
		return
	}
	dir := strings.TrimSuffix(p, "/")
	if !f.isDir(dir) {
		http.NotFound(w, r)
		return
	}
	if !strings.HasSuffix(p, "/") {
		http.Redirect(w, r, "/"+dir+"/", http.StatusMovedPermanently)
		return
	}
	if !f.listing {
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(f.index(dir)))
}

func (f *fakeRepo) isDir(dir string) bool {
	for p := range f.files {
		if strings.HasPrefix(p, dir+"/") {
			return true
		}
	}
	return false
}

func (f *fakeRepo) index(dir string) string {
	names := make(map[string]struct{})
	for p := range f.files {
		rest, ok := strings.CutPrefix(p, dir+"/")
		if !ok {
			continue
		}
		if child, _, isDir := strings.Cut(rest, "/"); isDir {
			names[child+"/"] = struct{}{}
		} else {
			names[child] = struct{}{}
		}
	}
	var sorted []string
	for n := range names {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)

	var b strings.Builder
	fmt.Fprintf(&b, "<html><head><title>Index of /%s/</title></head><body>\n", dir)
	b.WriteString(`<a href="../">../</a>` + "\n")
	for _, n := range sorted {
		fmt.Fprintf(&b, "<a href=\"%s\">%s</a>\n", n, n)
	}
	b.WriteString("</body></html>\n")
	return b.String()
}

func (f *fakeRepo) hitCount(p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[p]
}

func (f *fakeRepo) requested() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for p := range f.hits {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

func newWorker(t *testing.T, srv *httptest.Server, fs billy.Filesystem, keep bool) *Worker {
	t.Helper()
	tgt, err := target.Parse(srv.URL + "/.git/")
	require.NoError(t, err)
	c := fetch.New(tgt, &fasthttp.Client{}, fetch.Options{Retries: 2, Timeout: 5 * time.Second})
	return New(c, store.New(fs), 4, keep)
}

// flatIndex builds a pack index in the flat layout the pack parser reads.
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

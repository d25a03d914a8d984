package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"hash/fnv"
	"net/http"
	"net/http/httptest"
	"path"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taigrr/contextgen/internal/pathfilter"
	"github.com/taigrr/contextgen/internal/types"
)

// fakeRepo serves a repository tree over the contents API.
type fakeRepo struct {
	t     *testing.T
	dirs  map[string][]string // dir -> ordered child paths; dirs end with "/"
	files map[string]string   // path -> body
	delay bool

	mu       sync.Mutex
	calls    map[string]int
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func newFakeRepo(t *testing.T) *fakeRepo {
	return &fakeRepo{
		t:     t,
		dirs:  map[string][]string{},
		files: map[string]string{},
		calls: map[string]int{},
	}
}

func (f *fakeRepo) dir(name string, children ...string) *fakeRepo {
	f.dirs[name] = children
	return f
}

func (f *fakeRepo) file(name, body string) *fakeRepo {
	f.files[name] = body
	return f
}

func (f *fakeRepo) callCount(p string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[p]
}

func (f *fakeRepo) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	n := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		seen := f.maxSeen.Load()
		if n <= seen || f.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}

	p := strings.TrimPrefix(r.URL.Path, "/repos/owner/repo/contents/")
	f.mu.Lock()
	f.calls[p]++
	f.mu.Unlock()

	if f.delay {
		h := fnv.New32a()
		h.Write([]byte(p))
		time.Sleep(time.Duration(h.Sum32()%7) * time.Millisecond)
	}

	if children, ok := f.dirs[p]; ok {
		listing := make([]Content, 0, len(children))
		for _, child := range children {
			c := Content{Type: "file"}
			switch {
			case strings.HasSuffix(child, "/"):
				c.Type = "dir"
				child = strings.TrimSuffix(child, "/")
			case strings.HasSuffix(child, "@"):
				c.Type = "symlink"
				child = strings.TrimSuffix(child, "@")
			}
			c.Name = path.Base(child)
			c.Path = child
			listing = append(listing, c)
		}
		json.NewEncoder(w).Encode(listing)
		return
	}

	if body, ok := f.files[p]; ok {
		json.NewEncoder(w).Encode(Content{
			Name:     path.Base(p),
			Path:     p,
			Type:     "file",
			Encoding: "base64",
			Content:  wrap(base64.StdEncoding.EncodeToString([]byte(body))),
		})
		return
	}

	w.WriteHeader(http.StatusNotFound)
	w.Write([]byte(`{"message":"Not Found"}`))
}

// wrap mimics the API's 60 column line wrapping of encoded content.
func wrap(s string) string {
	var sb strings.Builder
	for len(s) > 60 {
		sb.WriteString(s[:60])
		sb.WriteString("\n")
		s = s[60:]
	}
	sb.WriteString(s)
	sb.WriteString("\n")
	return sb.String()
}

func (f *fakeRepo) fetcher(filter types.FilterConfig, opts ...FetcherOption) (*Fetcher, func()) {
	server := httptest.NewServer(f)
	return NewFetcher(newTestClient(server), pathfilter.MustNew(filter), opts...), server.Close
}

func TestFetcher_ExcludedDirectoryIsNeverListed(t *testing.T) {
	repo := newFakeRepo(t).
		dir("", "README.md", "docs/").
		dir("docs", "docs/guide.md").
		file("README.md", "# readme").
		file("docs/guide.md", "guide")

	f, done := repo.fetcher(types.FilterConfig{Exclude: []string{"**/docs"}})
	defer done()

	doc, err := f.Fetch(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, []types.ContentBlock{{Path: "README.md", Body: "# readme"}}, doc.Blocks)
	assert.Equal(t, 1, repo.callCount(""))
	assert.Equal(t, 0, repo.callCount("docs"), "excluded directory must not be listed")
	assert.Equal(t, 0, repo.callCount("docs/guide.md"))
}

func TestFetcher_PreOrderListingOrder(t *testing.T) {
	repo := newFakeRepo(t).
		dir("", "b.txt", "zdir/", "a.txt", "adir/").
		dir("zdir", "zdir/z1.txt", "zdir/inner/", "zdir/z0.txt").
		dir("zdir/inner", "zdir/inner/deep.txt").
		dir("adir", "adir/a.txt").
		file("b.txt", "B").
		file("a.txt", "A").
		file("zdir/z1.txt", "Z1").
		file("zdir/z0.txt", "Z0").
		file("zdir/inner/deep.txt", "DEEP").
		file("adir/a.txt", "AA")
	repo.delay = true

	f, done := repo.fetcher(types.FilterConfig{}, WithConcurrency(4))
	defer done()

	doc, err := f.Fetch(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"b.txt",
		"zdir/z1.txt",
		"zdir/inner/deep.txt",
		"zdir/z0.txt",
		"a.txt",
		"adir/a.txt",
	}, doc.Paths())
	assert.Equal(t, "DEEP", doc.Blocks[2].Body)
}

func TestFetcher_OrderStableUnderFanOut(t *testing.T) {
	repo := newFakeRepo(t)
	repo.delay = true

	var root, want []string
	for _, d := range []string{"d3", "d1", "d2"} {
		root = append(root, d+"/")
		var children []string
		for _, n := range []string{"f9", "f2", "f5", "f0", "f7"} {
			p := d + "/" + n + ".go"
			children = append(children, p)
			repo.file(p, "package "+d)
			want = append(want, p)
		}
		repo.dir(d, children...)
	}
	repo.dir("", root...)

	f, done := repo.fetcher(types.FilterConfig{Include: []string{"*.go"}}, WithConcurrency(3))
	defer done()

	for range 3 {
		doc, err := f.Fetch(context.Background(), testRepo)
		require.NoError(t, err)
		assert.Equal(t, want, doc.Paths())
	}
	assert.LessOrEqual(t, repo.maxSeen.Load(), int32(3))
}

func TestFetcher_AppliesFilter(t *testing.T) {
	repo := newFakeRepo(t).
		dir("", "main.py", "main.pyc", "README.md", "pkg/").
		dir("pkg", "pkg/util.py").
		file("main.py", "print(1)").
		file("main.pyc", "\x00").
		file("README.md", "readme").
		file("pkg/util.py", "x = 1")

	f, done := repo.fetcher(types.FilterConfig{
		Include: []string{"*.py"},
		Exclude: []string{"*.pyc"},
	})
	defer done()

	doc, err := f.Fetch(context.Background(), testRepo)
	require.NoError(t, err)

	assert.Equal(t, []string{"main.py", "pkg/util.py"}, doc.Paths())
	assert.Equal(t, 0, repo.callCount("main.pyc"))
	assert.Equal(t, 0, repo.callCount("README.md"))
	assert.Equal(t, 1, repo.callCount("pkg"), "directories are not include-gated")
}

func TestFetcher_SkipsOtherEntryTypes(t *testing.T) {
	repo := newFakeRepo(t).
		dir("", "link@", "a.txt").
		file("a.txt", "a")

	f, done := repo.fetcher(types.FilterConfig{})
	defer done()

	doc, err := f.Fetch(context.Background(), testRepo)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, doc.Paths())
	assert.Equal(t, 0, repo.callCount("link"))
}

func TestFetcher_DecodesBase64WithNewline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/repos/owner/repo/contents/" {
			w.Write([]byte(`[{"name":"hello.txt","path":"hello.txt","type":"file"}]`))
			return
		}
		w.Write([]byte(`{"name":"hello.txt","path":"hello.txt","type":"file","encoding":"base64","content":"aGVsbG8=\n"}`))
	}))
	defer server.Close()

	doc, err := NewFetcher(newTestClient(server), nil).Fetch(context.Background(), testRepo)
	require.NoError(t, err)
	assert.Equal(t, []types.ContentBlock{{Path: "hello.txt", Body: "hello"}}, doc.Blocks)
}

func TestFetcher_DecodeErrorIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/owner/repo/contents/":
			w.Write([]byte(`[{"path":"ok.txt","type":"file"},{"path":"bad.txt","type":"file"}]`))
		case "/repos/owner/repo/contents/ok.txt":
			w.Write([]byte(`{"path":"ok.txt","type":"file","encoding":"base64","content":"b2s="}`))
		default:
			w.Write([]byte(`{"path":"bad.txt","type":"file","encoding":"base64","content":"abc"}`))
		}
	}))
	defer server.Close()

	doc, err := NewFetcher(newTestClient(server), nil).Fetch(context.Background(), testRepo)
	require.Error(t, err)
	assert.Equal(t, 0, doc.Len())

	var decErr *types.DecodeError
	require.True(t, errors.As(err, &decErr))
	assert.Equal(t, "bad.txt", decErr.Path)
}

func TestFetcher_NestedListingFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/owner/repo/contents/":
			w.Write([]byte(`[{"path":"src","type":"dir"}]`))
		default:
			w.WriteHeader(http.StatusInternalServerError)
			w.Write([]byte(`boom`))
		}
	}))
	defer server.Close()

	_, err := NewFetcher(newTestClient(server), nil).Fetch(context.Background(), testRepo)
	require.Error(t, err)

	var remoteErr *types.RemoteAccessError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, http.StatusInternalServerError, remoteErr.Status)
	assert.Equal(t, "src", remoteErr.Path)
}

func TestFetcher_LargeFileFallsBackToDownload(t *testing.T) {
	var server *httptest.Server
	server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/owner/repo/contents/":
			w.Write([]byte(`[{"path":"big.txt","type":"file"}]`))
		case "/repos/owner/repo/contents/big.txt":
			json.NewEncoder(w).Encode(Content{
				Path:        "big.txt",
				Type:        "file",
				Encoding:    "none",
				DownloadURL: server.URL + "/raw/big.txt",
			})
		case "/raw/big.txt":
			assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))
			w.Write([]byte("large body"))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	doc, err := NewFetcher(newTestClient(server), nil).Fetch(context.Background(), testRepo)
	require.NoError(t, err)
	assert.Equal(t, []types.ContentBlock{{Path: "big.txt", Body: "large body"}}, doc.Blocks)
}

func TestFetcher_DownloadFromForeignHostOmitsToken(t *testing.T) {
	var gotAuth []string
	var mu sync.Mutex
	raw := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		gotAuth = append(gotAuth, r.Header.Get("Authorization"))
		mu.Unlock()
		w.Write([]byte("large body"))
	}))
	defer raw.Close()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/repos/owner/repo/contents/":
			w.Write([]byte(`[{"path":"big.txt","type":"file"}]`))
		default:
			json.NewEncoder(w).Encode(Content{
				Path:        "big.txt",
				Type:        "file",
				Encoding:    "none",
				DownloadURL: raw.URL + "/big.txt",
			})
		}
	}))
	defer server.Close()

	doc, err := NewFetcher(newTestClient(server), nil).Fetch(context.Background(), testRepo)
	require.NoError(t, err)
	assert.Equal(t, []types.ContentBlock{{Path: "big.txt", Body: "large body"}}, doc.Blocks)
	assert.Equal(t, []string{""}, gotAuth)
}

func TestFetcher_Cancelled(t *testing.T) {
	repo := newFakeRepo(t).dir("", "a.txt").file("a.txt", "a")
	f, done := repo.fetcher(types.FilterConfig{})
	defer done()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.Fetch(ctx, testRepo)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))

	var remoteErr *types.RemoteAccessError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "listing", remoteErr.Op)
}

func TestWithConcurrency_IgnoresNonPositive(t *testing.T) {
	f := NewFetcher(nil, nil, WithConcurrency(0), WithConcurrency(-3))
	assert.Equal(t, DefaultConcurrency, f.concurrency)
}

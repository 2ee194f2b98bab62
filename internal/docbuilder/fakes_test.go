package docbuilder

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/pkgdocs/internal/sandbox"
	"git.home.luguber.info/inful/pkgdocs/internal/storage"
)

const (
	rustcBanner = "rustc 1.10.0-nightly (57ef01513 2016-05-23)"
	toolBanner  = "cratesfyi 0.2.0 (ba9ae23 2016-05-26)"
)

// fakeStorage records every persistence call.
type fakeStorage struct {
	mu        sync.Mutex
	releases  map[string]storage.BuildResult
	builds    []storage.BuildResult
	trees     map[string][]string // prefix -> relative files present at call time
	calls     int
	connects  int
	closed    int
	connErr   error
	recordErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{releases: map[string]storage.BuildResult{}, trees: map[string][]string{}}
}

func (f *fakeStorage) Connect(context.Context) (storage.Conn, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.connErr != nil {
		return nil, f.connErr
	}
	f.connects++
	return &fakeConn{s: f}, nil
}

type fakeConn struct{ s *fakeStorage }

func (c *fakeConn) AddPackage(_ context.Context, id storage.PackageID, res storage.BuildResult) (int64, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	if c.s.recordErr != nil {
		return 0, c.s.recordErr
	}
	c.s.releases[id.String()] = res
	return int64(len(c.s.releases)), nil
}

func (c *fakeConn) AddBuild(_ context.Context, _ int64, res storage.BuildResult) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	c.s.builds = append(c.s.builds, res)
	return nil
}

func (c *fakeConn) AddPathTree(_ context.Context, prefix, dir string) error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.calls++
	var files []string
	err := filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			rel, _ := filepath.Rel(dir, p)
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		return err
	}
	sort.Strings(files)
	c.s.trees[prefix] = files
	return nil
}

func (c *fakeConn) ReleaseExists(_ context.Context, id storage.PackageID) (bool, error) {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	_, ok := c.s.releases[id.String()]
	return ok, nil
}

func (c *fakeConn) Close() error {
	c.s.mu.Lock()
	defer c.s.mu.Unlock()
	c.s.closed++
	return nil
}

// fakeSandbox emulates the documentation tool by writing output into the chroot.
type fakeSandbox struct {
	mu       sync.Mutex
	home     string
	scripts  []string
	envs     []map[string]string
	rustc    string
	failDocs map[string]bool // target -> fail
	noDocs   bool

	// failCleanup makes rm -rf exit non-zero.
	failCleanup bool
}

func newFakeSandbox(t *testing.T, chroot, user string) *fakeSandbox {
	t.Helper()
	home := filepath.Join(chroot, "home", user)
	require.NoError(t, os.MkdirAll(home, 0o755))
	return &fakeSandbox{home: home, rustc: rustcBanner, failDocs: map[string]bool{}}
}

func (f *fakeSandbox) Run(_ context.Context, cmd sandbox.Command) (sandbox.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.scripts = append(f.scripts, cmd.Script)
	f.envs = append(f.envs, cmd.Env)

	fields := strings.Fields(cmd.Script)
	switch {
	case cmd.Script == "rustc --version":
		return sandbox.Result{Output: f.rustc + "\n", Success: true}, nil
	case cmd.Script == "cratesfyi --version":
		return sandbox.Result{Output: toolBanner + "\n", Success: true}, nil
	case len(fields) == 5 && fields[0] == "cratesfyi" && fields[1] == "doc":
		name, ver, target := fields[2], strings.TrimPrefix(fields[3], "="), fields[4]
		if f.failDocs[target] {
			return sandbox.Result{Output: "error: could not compile `" + name + "`\n"}, nil
		}
		if !f.noDocs {
			doc := filepath.Join(f.home, name+"-"+ver, "doc")
			lib := filepath.Join(doc, strings.ReplaceAll(name, "-", "_"))
			if err := os.MkdirAll(lib, 0o755); err != nil {
				return sandbox.Result{}, err
			}
			for p, content := range map[string]string{
				filepath.Join(lib, "index.html"):      "<html>" + name + "</html>",
				filepath.Join(doc, "main.css"):        "body{}",
				filepath.Join(doc, "jquery.js"):       "jq",
				filepath.Join(doc, "search-index.js"): "var searchIndex = {};",
			} {
				if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
					return sandbox.Result{}, err
				}
			}
		}
		return sandbox.Result{Output: "Documenting " + name + " v" + ver + " (" + target + ")\n", Success: true}, nil
	case len(fields) == 3 && fields[0] == "rm" && fields[1] == "-rf":
		if f.failCleanup {
			return sandbox.Result{Output: "rm: cannot remove '" + fields[2] + "': Permission denied\n"}, nil
		}
		if err := os.RemoveAll(filepath.Join(f.home, fields[2])); err != nil {
			return sandbox.Result{Output: err.Error()}, nil
		}
		return sandbox.Result{Success: true}, nil
	}
	return sandbox.Result{}, fmt.Errorf("unexpected script %q", cmd.Script)
}

func (f *fakeSandbox) docScripts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, s := range f.scripts {
		if strings.HasPrefix(s, "cratesfyi doc ") {
			out = append(out, s)
		}
	}
	return out
}

func (f *fakeSandbox) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.scripts)
}

// fakeFetcher materialises a crate with the given manifest text.
type fakeFetcher struct {
	root     string
	manifest map[string]string // package id -> Cargo.toml
	examples bool
	fetches  int
	err      error
}

func (f *fakeFetcher) Fetch(_ context.Context, name, version string) (string, error) {
	f.fetches++
	if f.err != nil {
		return "", f.err
	}
	dir := filepath.Join(f.root, name, version)
	if err := os.MkdirAll(filepath.Join(dir, "src"), 0o755); err != nil {
		return "", err
	}
	text, ok := f.manifest[name+"-"+version]
	if !ok {
		text = fmt.Sprintf("[package]\nname = %q\nversion = %q\n", name, version)
	}
	if err := os.WriteFile(filepath.Join(dir, "Cargo.toml"), []byte(text), 0o644); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "src", "lib.rs"), []byte("pub fn f() {}\n"), 0o644); err != nil {
		return "", err
	}
	if f.examples {
		if err := os.MkdirAll(filepath.Join(dir, "examples"), 0o755); err != nil {
			return "", err
		}
	}
	return dir, nil
}

type staticDurable map[string]bool

func (s staticDurable) Contains(_ context.Context, id storage.PackageID) (bool, error) {
	return s[id.String()], nil
}

// harness wires a Builder to fakes rooted in t.TempDir().
type harness struct {
	builder *Builder
	store   *fakeStorage
	box     *fakeSandbox
	fetch   *fakeFetcher
	opts    Options
}

func newHarness(t *testing.T, mutate func(*Options)) *harness {
	t.Helper()
	root := t.TempDir()
	opts := Options{
		Destination: filepath.Join(root, "docs"),
		ChrootPath:  filepath.Join(root, "chroot"),
		User:        "cratesfyi",
	}
	if mutate != nil {
		mutate(&opts)
	}
	h := &harness{
		store: newFakeStorage(),
		box:   newFakeSandbox(t, opts.ChrootPath, opts.User),
		fetch: &fakeFetcher{root: filepath.Join(root, "sources"), manifest: map[string]string{}},
		opts:  opts,
	}
	h.builder = New(opts, h.store, h.box, h.fetch)
	return h
}

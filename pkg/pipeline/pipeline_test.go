package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/config"
	"github.com/matzehuels/stacklink/pkg/errors"
	"github.com/matzehuels/stacklink/pkg/lockfile"
	"github.com/matzehuels/stacklink/pkg/observability"
)

const (
	rootID = "app@link-dev:./package.json@7e1a"
	aID    = "a@1.0.0@h1"
	bID    = "b@1.0.0@h2"
	cID    = "c@1.0.0@h3"
	dID    = "d@1.0.0@h4"
	tID    = "t@1.0.0@h5"
	opamID = "@opam/dune@opam:3.11.1@h6"
)

// project is a temporary esy-style project with a lockfile, an installation
// table and one directory per installed package.
type project struct {
	dir     string
	sources map[string]string
}

func newProject(t *testing.T, nodes map[string][2][]string, skip ...string) *project {
	t.Helper()
	dir := t.TempDir()
	p := &project{dir: dir, sources: map[string]string{}}

	type nodeDoc struct {
		Dependencies    []string `json:"dependencies"`
		DevDependencies []string `json:"devDependencies"`
	}
	doc := struct {
		Root string             `json:"root"`
		Node map[string]nodeDoc `json:"node"`
	}{Root: rootID, Node: map[string]nodeDoc{}}

	for id, deps := range nodes {
		doc.Node[id] = nodeDoc{Dependencies: deps[0], DevDependencies: deps[1]}
		if id == rootID || contains(skip, id) {
			continue
		}
		src := filepath.Join(dir, "store", strings.ReplaceAll(id, "/", "_"))
		if err := os.MkdirAll(src, 0755); err != nil {
			t.Fatal(err)
		}
		p.sources[id] = src
	}

	writeJSON(t, filepath.Join(dir, config.DefaultLockfile), doc)
	writeJSON(t, filepath.Join(dir, config.DefaultInstallation), p.sources)
	return p
}

func contains(ids []string, id string) bool {
	for _, x := range ids {
		if x == id {
			return true
		}
	}
	return false
}

func writeJSON(t *testing.T, path string, v any) {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
}

func (p *project) options() Options {
	return Options{
		ProjectDir: p.dir,
		Jobs:       4,
		Logger:     log.NewWithOptions(os.Stderr, log.Options{Level: log.ErrorLevel}),
	}
}

func (p *project) assertLink(t *testing.T, rel, id string) {
	t.Helper()
	target, err := os.Readlink(filepath.Join(p.dir, rel))
	if err != nil {
		t.Errorf("Readlink(%s) error: %v", rel, err)
		return
	}
	if target != p.sources[id] {
		t.Errorf("%s -> %s, want %s", rel, target, p.sources[id])
	}
}

// diamond: root -> {a, b, opam}, a -> {c, d}, b -> {c}, root devDeps -> {t}
func diamond() map[string][2][]string {
	return map[string][2][]string{
		rootID: {{aID, bID, opamID}, {tID}},
		aID:    {{cID, dID}, nil},
		bID:    {{cID}, nil},
		cID:    {nil, nil},
		dID:    {nil, nil},
		tID:    {nil, nil},
		opamID: {nil, nil},
	}
}

func TestExecuteDiamond(t *testing.T) {
	p := newProject(t, diamond())
	runner := NewRunner(cache.NewNullCache(), nil)

	result, err := runner.Execute(context.Background(), p.options())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}

	p.assertLink(t, "node_modules/a", aID)
	p.assertLink(t, "node_modules/b", bID)
	p.assertLink(t, "node_modules/c", cID)
	p.assertLink(t, "node_modules/t", tID)
	p.assertLink(t, "node_modules/a/node_modules/d", dID)

	if _, err := os.Lstat(filepath.Join(p.dir, "node_modules", "@opam")); !os.IsNotExist(err) {
		t.Error("external packages must not be linked")
	}
	if _, err := os.Lstat(filepath.Join(p.dir, "node_modules", "b", "node_modules", "c")); !os.IsNotExist(err) {
		t.Error("hoisted c must not be nested under b")
	}

	if result.Report.Linked != 5 || result.Stats.Hoisted != 1 || result.Stats.Entries != 5 {
		t.Errorf("result = %+v / %+v", result.Stats, result.Report)
	}
	if result.Counts[cID] != 2 || result.Counts[aID] != 1 {
		t.Errorf("Counts = %v", result.Counts)
	}
	for _, e := range result.Layout.Entries {
		if e.ID == cID && (!e.Hoisted || e.Refs != 2) {
			t.Errorf("c entry = %+v, want hoisted with 2 refs", e)
		}
	}
	if result.RunID == "" {
		t.Error("RunID should be set")
	}
}

func TestExecuteUsesCachedLayout(t *testing.T) {
	p := newProject(t, diamond())
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil)
	ctx := context.Background()

	first, err := runner.Execute(ctx, p.options())
	if err != nil {
		t.Fatalf("first Execute() error: %v", err)
	}
	if first.CacheInfo.LayoutHit {
		t.Error("first run should miss the cache")
	}

	// Links from the first run are accepted as they are.
	second, err := runner.Execute(ctx, p.options())
	if err != nil {
		t.Fatalf("second Execute() error: %v", err)
	}
	if !second.CacheInfo.LayoutHit {
		t.Error("second run should hit the cache")
	}
	if second.Counts != nil {
		t.Error("a cache hit should skip counting")
	}
	if second.Report.Linked != first.Report.Linked {
		t.Errorf("Linked = %d, want %d", second.Report.Linked, first.Report.Linked)
	}
	if first.CacheInfo.Key != second.CacheInfo.Key {
		t.Error("unchanged inputs should give the same key")
	}

	opts := p.options()
	opts.Refresh = true
	third, err := runner.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("refresh Execute() error: %v", err)
	}
	if third.CacheInfo.LayoutHit {
		t.Error("refresh should bypass the cache")
	}

	opts = p.options()
	opts.Dev = "none"
	plan, err := runner.Plan(ctx, opts)
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if plan.CacheInfo.LayoutHit || plan.CacheInfo.Key == first.CacheInfo.Key {
		t.Error("changing dev mode should change the cache key")
	}
}

func TestPlanDoesNotLink(t *testing.T) {
	p := newProject(t, diamond())
	result, err := NewRunner(nil, nil).Plan(context.Background(), p.options())
	if err != nil {
		t.Fatalf("Plan() error: %v", err)
	}
	if result.Report != nil {
		t.Error("Plan() should not produce a link report")
	}
	if len(result.Layout.Entries) != 5 {
		t.Errorf("Plan() entries = %d, want 5", len(result.Layout.Entries))
	}
	if _, err := os.Stat(filepath.Join(p.dir, "node_modules")); !os.IsNotExist(err) {
		t.Error("Plan() must not touch the module directory")
	}
}

func TestPlanDevModes(t *testing.T) {
	nodes := diamond()
	nodes[aID] = [2][]string{{cID}, {dID}}

	tests := []struct {
		dev  string
		want int
	}{
		{"all", 5},
		{"root", 4},
		{"none", 3},
	}
	for _, tt := range tests {
		t.Run(tt.dev, func(t *testing.T) {
			p := newProject(t, nodes)
			opts := p.options()
			opts.Dev = lockfile.DevMode(tt.dev)
			result, err := NewRunner(nil, nil).Plan(context.Background(), opts)
			if err != nil {
				t.Fatalf("Plan() error: %v", err)
			}
			if got := len(result.Layout.Entries); got != tt.want {
				t.Errorf("dev=%s placed %d entries, want %d", tt.dev, got, tt.want)
			}
		})
	}
}

func TestExecuteMissingInstallation(t *testing.T) {
	p := newProject(t, diamond(), bID)
	_, err := NewRunner(nil, nil).Execute(context.Background(), p.options())
	if !errors.Is(err, errors.ErrCodeMissingInstallation) {
		t.Fatalf("Execute() error = %v, want MISSING_INSTALLATION", err)
	}
	// a was placed before b and stays linked.
	p.assertLink(t, "node_modules/a", aID)
}

func TestExecuteMalformedIdentifier(t *testing.T) {
	nodes := map[string][2][]string{
		rootID:  {{"weird"}, nil},
		"weird": {nil, nil},
	}
	p := newProject(t, nodes)

	result, err := NewRunner(nil, nil).Execute(context.Background(), p.options())
	if err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	p.assertLink(t, "node_modules/weird", "weird")
	if result.Stats.Degraded != 1 {
		t.Errorf("Degraded = %d, want 1", result.Stats.Degraded)
	}
}

func TestExecuteCachedMalformedIdentifierWarns(t *testing.T) {
	nodes := map[string][2][]string{
		rootID:  {{"weird", aID}, nil},
		"weird": {nil, nil},
		aID:     {nil, nil},
	}
	p := newProject(t, nodes)
	c, err := cache.NewFileCache(filepath.Join(t.TempDir(), "cache"))
	if err != nil {
		t.Fatal(err)
	}
	runner := NewRunner(c, nil)

	for _, run := range []string{"computed", "cached"} {
		var buf bytes.Buffer
		opts := p.options()
		opts.Logger = log.NewWithOptions(&buf, log.Options{Level: log.WarnLevel})

		result, err := runner.Execute(context.Background(), opts)
		if err != nil {
			t.Fatalf("%s Execute() error: %v", run, err)
		}
		if hit := result.CacheInfo.LayoutHit; hit != (run == "cached") {
			t.Fatalf("%s run LayoutHit = %v", run, hit)
		}
		out := buf.String()
		if strings.Count(out, "malformed package identifier") != 1 || !strings.Contains(out, "weird") {
			t.Errorf("%s run should warn once about weird, got:\n%s", run, out)
		}
	}
}

func TestExecuteLoadErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := NewRunner(nil, nil).Execute(context.Background(), Options{ProjectDir: dir})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing lockfile error = %v, want FILE_NOT_FOUND", err)
	}

	if err := os.MkdirAll(filepath.Join(dir, "esy.lock"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, config.DefaultLockfile), []byte("{"), 0644); err != nil {
		t.Fatal(err)
	}
	_, err = NewRunner(nil, nil).Execute(context.Background(), Options{ProjectDir: dir})
	if !errors.Is(err, errors.ErrCodeInvalidLockfile) {
		t.Errorf("corrupt lockfile error = %v, want INVALID_LOCKFILE", err)
	}
}

func TestLoadInstallationTable(t *testing.T) {
	p := newProject(t, diamond())
	opts := p.options()
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatal(err)
	}

	// Relative sources resolve against the table's directory.
	rel, err := filepath.Rel(filepath.Dir(opts.Installation), p.sources[aID])
	if err != nil {
		t.Fatal(err)
	}
	writeJSON(t, opts.Installation, map[string]string{aID: rel})

	first, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if src, _ := first.Installations.Source(aID); src != p.sources[aID] {
		t.Errorf("Source(a) = %q, want %q", src, p.sources[aID])
	}

	writeJSON(t, opts.Installation, map[string]string{aID: p.sources[aID]})
	second, err := Load(opts)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if first.InstallHash == second.InstallHash {
		t.Error("a changed installation table should change InstallHash")
	}
	if first.LockHash != second.LockHash {
		t.Error("LockHash should only depend on the lockfile")
	}
}

func TestOptionsValidation(t *testing.T) {
	tests := []struct {
		name string
		opts Options
	}{
		{"dev", Options{Dev: "sometimes"}},
		{"conflict", Options{Conflict: "last"}},
		{"dir name", Options{DirName: "a/b"}},
		{"jobs", Options{Jobs: -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := tt.opts
			if err := opts.ValidateAndSetDefaults(); err == nil {
				t.Error("ValidateAndSetDefaults() should fail")
			}
		})
	}

	opts := Options{ProjectDir: "/p", Lockfile: "lock.json"}
	if err := opts.ValidateAndSetDefaults(); err != nil {
		t.Fatalf("ValidateAndSetDefaults() error: %v", err)
	}
	if opts.Lockfile != "/p/lock.json" || opts.Installation != filepath.Join("/p", config.DefaultInstallation) {
		t.Errorf("paths = %s, %s", opts.Lockfile, opts.Installation)
	}
	if opts.Jobs < 1 || opts.CacheTTL != config.DefaultCacheTTL || opts.Linker == nil {
		t.Errorf("defaults not applied: %+v", opts)
	}
}

func TestFromConfig(t *testing.T) {
	cfg := config.Default("/p")
	cfg.Conflict = "first"
	cfg.Cache.TTL = config.Duration{Duration: time.Hour}

	opts := FromConfig(cfg)
	if opts.ProjectDir != "/p" || opts.Conflict != "first" || opts.CacheTTL != time.Hour {
		t.Errorf("FromConfig() = %+v", opts)
	}
	if opts.Lockfile != filepath.Join("/p", config.DefaultLockfile) {
		t.Errorf("Lockfile = %s", opts.Lockfile)
	}
}

type countingHooks struct {
	observability.NoopInstallHooks
	mu    sync.Mutex
	links int
	plans int
	done  int
}

func (h *countingHooks) OnLink(context.Context, string, time.Duration, error) {
	h.mu.Lock()
	h.links++
	h.mu.Unlock()
}

func (h *countingHooks) OnPlanComplete(context.Context, int, int, time.Duration, error) {
	h.plans++
}

func (h *countingHooks) OnMaterializeComplete(context.Context, int, time.Duration, error) {
	h.done++
}

func TestExecuteEmitsHooks(t *testing.T) {
	observability.Reset()
	defer observability.Reset()
	h := &countingHooks{}
	observability.SetInstallHooks(h)

	p := newProject(t, diamond())
	if _, err := NewRunner(nil, nil).Execute(context.Background(), p.options()); err != nil {
		t.Fatalf("Execute() error: %v", err)
	}
	if h.links != 5 || h.plans != 1 || h.done != 1 {
		t.Errorf("hooks saw links=%d plans=%d done=%d", h.links, h.plans, h.done)
	}
}

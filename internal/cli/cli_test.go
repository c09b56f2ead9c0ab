package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alicebob/miniredis/v2"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stacklink/pkg/cache"
	"github.com/matzehuels/stacklink/pkg/config"
	"github.com/matzehuels/stacklink/pkg/layout"
	"github.com/matzehuels/stacklink/pkg/lockfile"
	"github.com/matzehuels/stacklink/pkg/pipeline"
)

const (
	rootID = "app@link-dev:./package.json@7e1a"
	aID    = "a@1.0.0@h1"
	bID    = "b@1.0.0@h2"
	cID    = "c@1.0.0@h3"
)

// writeProject lays out root -> {a, b}, a -> {c}, b -> {c} under a temp dir
// and returns the project directory.
func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()

	type nodeDoc struct {
		Dependencies []string `json:"dependencies"`
	}
	lock := map[string]any{
		"root": rootID,
		"node": map[string]nodeDoc{
			rootID: {Dependencies: []string{aID, bID}},
			aID:    {Dependencies: []string{cID}},
			bID:    {Dependencies: []string{cID}},
			cID:    {},
		},
	}
	install := map[string]string{}
	for _, id := range []string{aID, bID, cID} {
		src := filepath.Join(dir, "store", id)
		if err := os.MkdirAll(src, 0755); err != nil {
			t.Fatal(err)
		}
		install[id] = src
	}

	for path, v := range map[string]any{config.DefaultLockfile: lock, config.DefaultInstallation: install} {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		full := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(full, data, 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func testCLI() *CLI {
	return New(io.Discard, LogInfo)
}

func run(t *testing.T, c *CLI, args ...string) (string, error) {
	t.Helper()
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestLayoutFlagsOverrideConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default(dir)
	cfg.Jobs = 2

	var flags layoutFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)
	if err := cmd.ParseFlags([]string{"--dev=root", "--conflict", "first", "-j", "3", "--modules-dir", "mods", "--refresh"}); err != nil {
		t.Fatalf("ParseFlags() error: %v", err)
	}

	opts, err := flags.options(cmd, cfg, testCLI().Logger)
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}
	if opts.Dev != lockfile.DevRoot {
		t.Errorf("Dev = %q, want %q", opts.Dev, lockfile.DevRoot)
	}
	if opts.Conflict != layout.ConflictFirst {
		t.Errorf("Conflict = %q, want %q", opts.Conflict, layout.ConflictFirst)
	}
	if opts.Jobs != 3 {
		t.Errorf("Jobs = %d, want 3", opts.Jobs)
	}
	if opts.DirName != "mods" {
		t.Errorf("DirName = %q, want mods", opts.DirName)
	}
	if !opts.Refresh {
		t.Error("Refresh = false, want true")
	}
	if want := filepath.Join(dir, config.DefaultLockfile); opts.Lockfile != want {
		t.Errorf("Lockfile = %q, want %q", opts.Lockfile, want)
	}
}

func TestLayoutFlagsKeepConfig(t *testing.T) {
	cfg := config.Default(t.TempDir())
	cfg.Jobs = 5
	cfg.Dev = string(lockfile.DevNone)

	var flags layoutFlags
	cmd := &cobra.Command{Use: "test"}
	flags.register(cmd)

	opts, err := flags.options(cmd, cfg, testCLI().Logger)
	if err != nil {
		t.Fatalf("options() error: %v", err)
	}
	if opts.Jobs != 5 {
		t.Errorf("Jobs = %d, want 5", opts.Jobs)
	}
	if opts.Dev != lockfile.DevNone {
		t.Errorf("Dev = %q, want %q", opts.Dev, lockfile.DevNone)
	}
}

func TestLayoutFlagsInvalid(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"dev mode", []string{"--dev=sometimes"}},
		{"conflict policy", []string{"--conflict=last"}},
		{"negative jobs", []string{"--jobs=-1"}},
		{"dir name", []string{"--modules-dir=a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var flags layoutFlags
			cmd := &cobra.Command{Use: "test"}
			flags.register(cmd)
			if err := cmd.ParseFlags(tt.args); err != nil {
				t.Fatalf("ParseFlags() error: %v", err)
			}
			if _, err := flags.options(cmd, config.Default(t.TempDir()), testCLI().Logger); err == nil {
				t.Error("options() should fail")
			}
		})
	}
}

func TestNewCache(t *testing.T) {
	mr := miniredis.RunT(t)
	ctx := t.Context()

	tests := []struct {
		name    string
		noCache bool
		setup   func(*config.Config)
		want    string
	}{
		{"no-cache flag", true, func(*config.Config) {}, "null"},
		{"none backend", false, func(c *config.Config) { c.Cache.Backend = config.BackendNone }, "null"},
		{"file backend", false, func(c *config.Config) { c.Cache.Dir = "cache" }, "scoped"},
		{"redis backend", false, func(c *config.Config) {
			c.Cache.Backend = config.BackendRedis
			c.Cache.RedisAddr = mr.Addr()
		}, "scoped"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testCLI()
			c.noCache = tt.noCache
			cfg := config.Default(t.TempDir())
			tt.setup(cfg)

			cc, err := c.newCache(ctx, cfg)
			if err != nil {
				t.Fatalf("newCache() error: %v", err)
			}
			defer cc.Close()

			got := ""
			switch cc.(type) {
			case *cache.NullCache:
				got = "null"
			case *cache.Scoped:
				got = "scoped"
			}
			if got != tt.want {
				t.Errorf("newCache() = %T, want %s", cc, tt.want)
			}
		})
	}
}

func TestInstallCommand(t *testing.T) {
	dir := writeProject(t)

	if _, err := run(t, testCLI(), "-C", dir, "--no-cache", "install"); err != nil {
		t.Fatalf("install error: %v", err)
	}

	for _, rel := range []string{"node_modules/a", "node_modules/b", "node_modules/c"} {
		if _, err := os.Readlink(filepath.Join(dir, rel)); err != nil {
			t.Errorf("Readlink(%s) error: %v", rel, err)
		}
	}
	if _, err := os.Lstat(filepath.Join(dir, "node_modules/a/node_modules/c")); !os.IsNotExist(err) {
		t.Error("hoisted c should not be nested under a")
	}

	// A second run finds every link in place.
	if _, err := run(t, testCLI(), "-C", dir, "--no-cache", "install"); err != nil {
		t.Fatalf("second install error: %v", err)
	}
}

func TestInstallProjectFlagWinsOverConfigDir(t *testing.T) {
	project := writeProject(t)
	other := t.TempDir()
	body := fmt.Sprintf("lockfile = %q\ninstallation = %q\n",
		filepath.Join(project, config.DefaultLockfile),
		filepath.Join(project, config.DefaultInstallation))
	cfgPath := filepath.Join(other, "custom.toml")
	if err := os.WriteFile(cfgPath, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, testCLI(), "--config", cfgPath, "-C", project, "--no-cache", "install"); err != nil {
		t.Fatalf("install error: %v", err)
	}
	if _, err := os.Readlink(filepath.Join(project, "node_modules", "a")); err != nil {
		t.Errorf("node_modules should be under -C: %v", err)
	}
	if _, err := os.Lstat(filepath.Join(other, "node_modules")); !os.IsNotExist(err) {
		t.Error("node_modules must not be created next to the config file")
	}
}

func TestInstallMissingLockfile(t *testing.T) {
	if _, err := run(t, testCLI(), "-C", t.TempDir(), "--no-cache", "install"); err == nil {
		t.Fatal("install without a lockfile should fail")
	}
}

func TestPlanJSON(t *testing.T) {
	dir := writeProject(t)

	out, err := run(t, testCLI(), "-C", dir, "--no-cache", "plan", "--json")
	if err != nil {
		t.Fatalf("plan error: %v", err)
	}

	var l layout.Layout
	if err := json.Unmarshal([]byte(out), &l); err != nil {
		t.Fatalf("plan output is not a layout: %v\n%s", err, out)
	}
	if len(l.Entries) != 3 {
		t.Fatalf("entries = %d, want 3", len(l.Entries))
	}
	for _, e := range l.Entries {
		if e.ID == cID && (!e.Hoisted || e.Refs != 2) {
			t.Errorf("c = %+v, want hoisted with 2 refs", e)
		}
	}
	if _, err := os.Lstat(filepath.Join(dir, "node_modules")); !os.IsNotExist(err) {
		t.Error("plan should not create the module directory")
	}
}

func TestPlanFlagsExclusive(t *testing.T) {
	dir := writeProject(t)
	if _, err := run(t, testCLI(), "-C", dir, "--no-cache", "plan", "--json", "--tui"); err == nil {
		t.Fatal("--json and --tui together should fail")
	}
}

func TestGraphCommandDOT(t *testing.T) {
	dir := writeProject(t)
	out := filepath.Join(t.TempDir(), "layout.dot")

	if _, err := run(t, testCLI(), "-C", dir, "--no-cache", "graph", "-o", out, "--detailed"); err != nil {
		t.Fatalf("graph error: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "digraph G {") {
		t.Errorf("graph output should be DOT, got %q", string(data))
	}
}

func TestGraphInvalidFormat(t *testing.T) {
	dir := writeProject(t)
	if _, err := run(t, testCLI(), "-C", dir, "graph", "--format", "png"); err == nil {
		t.Fatal("graph --format png should fail")
	}
}

func TestCachePathCommand(t *testing.T) {
	dir := t.TempDir()
	data := []byte("[cache]\ndir = \"layouts\"\n")
	if err := os.WriteFile(filepath.Join(dir, config.FileName), data, 0644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, testCLI(), "-C", dir, "cache", "path")
	if err != nil {
		t.Fatalf("cache path error: %v", err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(dir, "layouts"); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}

func TestStatsLine(t *testing.T) {
	r := &pipeline.Result{Stats: pipeline.Stats{NodeCount: 4, Entries: 3, Hoisted: 1}}
	line := statsLine(r)
	for _, want := range []string{"4 nodes", "3 packages", "1 hoisted"} {
		if !strings.Contains(line, want) {
			t.Errorf("statsLine() = %q, missing %q", line, want)
		}
	}
	if strings.Contains(line, "unparsed") {
		t.Errorf("statsLine() = %q, should not mention unparsed ids", line)
	}
}

func testLayout() *layout.Layout {
	return &layout.Layout{
		Root:       rootID,
		ModulesDir: "/p/node_modules",
		Entries: []layout.Entry{
			{ID: aID, Name: "a", Dest: "/p/node_modules/a", Parent: -1},
			{ID: cID, Name: "c", Dest: "/p/node_modules/c", Hoisted: true, Refs: 2, Parent: -1},
			{ID: "d@1.0.0@h4", Name: "d", Dest: "/p/node_modules/a/node_modules/d", Parent: 0},
		},
	}
}

func key(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestLayoutModelNavigation(t *testing.T) {
	var m tea.Model = newLayoutModel(testLayout(), "/p")

	m, _ = m.Update(tea.KeyMsg{Type: tea.KeyDown})
	m, _ = m.Update(key("j"))
	lm := m.(LayoutModel)
	if lm.Cursor != 2 {
		t.Fatalf("Cursor = %d, want 2", lm.Cursor)
	}

	// Moving past the end stays on the last entry.
	m, _ = m.Update(key("j"))
	if got := m.(LayoutModel).Cursor; got != 2 {
		t.Errorf("Cursor = %d, want 2", got)
	}

	// p jumps to the entry holding d.
	m, _ = m.Update(key("p"))
	if e, _ := m.(LayoutModel).Selected(); e.Name != "a" {
		t.Errorf("after p selected %q, want a", e.Name)
	}

	if !strings.Contains(m.View(), "node_modules/a") {
		t.Error("View() should list destinations")
	}
}

func TestLayoutModelHoistedFilter(t *testing.T) {
	var m tea.Model = newLayoutModel(testLayout(), "/p")

	m, _ = m.Update(key("h"))
	lm := m.(LayoutModel)
	if !lm.HoistedOnly {
		t.Fatal("HoistedOnly = false after h")
	}
	e, ok := lm.Selected()
	if !ok || e.Name != "c" {
		t.Errorf("Selected() = %q, %v, want c", e.Name, ok)
	}
	if strings.Contains(lm.View(), "node_modules/a/node_modules/d") {
		t.Error("filtered view should hide nested entries")
	}
}

func TestLayoutModelQuit(t *testing.T) {
	m := newLayoutModel(testLayout(), "/p")
	for _, k := range []tea.KeyMsg{key("q"), {Type: tea.KeyEsc}, {Type: tea.KeyCtrlC}} {
		if _, cmd := m.Update(k); cmd == nil {
			t.Errorf("Update(%q) should return a quit command", k.String())
		}
	}
}

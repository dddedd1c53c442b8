package internal

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/ui"
)

type recordingEditor struct{ launches [][]string }

func (r *recordingEditor) Launch(_ context.Context, _ string, paths []string) error {
	r.launches = append(r.launches, paths)
	return nil
}

type scriptedPrompter struct {
	answer bool
	asked  []string
}

func (p *scriptedPrompter) Confirm(q string) (bool, error) {
	p.asked = append(p.asked, q)
	return p.answer, nil
}

type harness struct {
	t        *testing.T
	home     string
	editor   *recordingEditor
	prompter *scriptedPrompter
	stdin    string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return &harness{t: t, home: t.TempDir(), editor: &recordingEditor{}, prompter: &scriptedPrompter{}}
}

func (h *harness) run(args ...string) (string, error) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"notecli", "--config", filepath.Join(h.home, ".notecli", "config.yml")}, args...)
	err := Run(context.Background(), full,
		WithHome(h.home),
		WithIO(strings.NewReader(h.stdin), &out, &errOut),
		WithLauncher(h.editor),
		WithPrompter(h.prompter),
	)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	if err != nil {
		h.t.Fatalf("notecli %s: %v", strings.Join(args, " "), err)
	}
	return out
}

func TestAppendPrependCat(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "b1/p1", "test")
	h.mustRun("append", "b1/p1", "test2")
	h.mustRun("prepend", "b1/p1", "test3")

	if got := h.mustRun("cat", "b1/p1"); got != "test3\ntest\ntest2\n" {
		t.Errorf("cat = %q", got)
	}
}

func TestAppendFromStdin(t *testing.T) {
	h := newHarness(t)
	h.stdin = "from stdin\n"
	h.mustRun("append", "p")
	if got := h.mustRun("cat", "p"); got != "from stdin\n" {
		t.Errorf("cat = %q", got)
	}
}

func TestFindAndGrep(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "work/standup", "ship it")
	h.mustRun("append", "home/todo", "stuff")
	h.mustRun("append", "home/todo", "whee")

	if got := h.mustRun("find", "todo"); got != "home/todo\n" {
		t.Errorf("find = %q", got)
	}
	if got := h.mustRun("find", "--glob", "work/*"); got != "work/standup\n" {
		t.Errorf("find --glob = %q", got)
	}
	if got := h.mustRun("grep", "whee"); got != "home/todo:2: whee\n" {
		t.Errorf("grep = %q", got)
	}
	if got := h.mustRun("grep", "--in", "work", "whee"); got != "" {
		t.Errorf("grep --in work = %q", got)
	}
}

func TestOpenRecordsHistory(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "p1", "a")
	h.mustRun("append", "p2", "b")

	h.mustRun("open", "p1")
	h.mustRun("open", "--glob", "p*")
	if len(h.editor.launches) != 2 || len(h.editor.launches[1]) != 2 {
		t.Fatalf("launches = %v", h.editor.launches)
	}
	if got := h.mustRun("history"); got != "p2\np1\np1\n" {
		t.Errorf("history = %q", got)
	}
	if got := h.mustRun("history", "--limit", "1"); got != "p2\n" {
		t.Errorf("history --limit 1 = %q", got)
	}

	h.mustRun("open", "--each", "--glob", "p*")
	if len(h.editor.launches) != 4 || len(h.editor.launches[2]) != 1 || len(h.editor.launches[3]) != 1 {
		t.Fatalf("launches with --each = %v", h.editor.launches)
	}
	h.mustRun("history", "--clear")
	if got := h.mustRun("history"); got != "" {
		t.Errorf("history after --clear = %q", got)
	}
}

func TestGroupAndShowGroups(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "b1/p1", "a")
	h.mustRun("append", "p2", "b")
	h.mustRun("group", "g1", "b1/p1", "p2")

	want := "g1:\n  - b1/p1\n  - p2\n"
	if got := h.mustRun("show", "groups"); got != want {
		t.Errorf("show groups = %q, want %q", got, want)
	}
	h.mustRun("ungroup", "g1", "p2")
	if got := h.mustRun("s", "groups", "^g"); got != "g1:\n  - b1/p1\n" {
		t.Errorf("show groups after ungroup = %q", got)
	}
}

func TestRemoveAsksForConfirmation(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "p1", "a")

	h.mustRun("rm", "p1")
	if len(h.prompter.asked) != 1 {
		t.Fatalf("prompts = %v", h.prompter.asked)
	}
	if got := h.mustRun("cat", "p1"); got != "a\n" {
		t.Errorf("page deleted without consent: %q", got)
	}

	out := h.mustRun("rm", "--yes", "p1")
	if out != "deleted p1\n" {
		t.Errorf("rm output = %q", out)
	}
	if _, err := h.run("cat", "p1"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("cat after rm error = %v", err)
	}
}

func TestRemoveWithoutTerminal(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "p1", "a")
	var out bytes.Buffer
	err := Run(context.Background(),
		[]string{"notecli", "--config", filepath.Join(h.home, "cfg.yml"), "rm", "p1"},
		WithHome(h.home),
		WithIO(strings.NewReader(""), &out, &out),
		WithPrompter(failingPrompter{}),
	)
	if !errors.Is(err, ui.ErrNotInteractive) {
		t.Errorf("rm error = %v, want ErrNotInteractive", err)
	}
}

type failingPrompter struct{}

func (failingPrompter) Confirm(string) (bool, error) { return false, ui.ErrNotInteractive }

func TestMoveRefusesOverwrite(t *testing.T) {
	h := newHarness(t)
	h.mustRun("append", "a", "1")
	h.mustRun("append", "b", "2")

	if _, err := h.run("mv", "a", "b"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("mv error = %v", err)
	}
	h.mustRun("mv", "--force", "a", "test/b")
	if got := h.mustRun("cat", "test/b"); got != "1\n" {
		t.Errorf("cat = %q", got)
	}
}

func TestConfigSetGet(t *testing.T) {
	h := newHarness(t)
	if got := h.mustRun("config", "get", "editor"); got != "vi\n" {
		t.Errorf("default editor = %q", got)
	}
	h.mustRun("config", "set", "editor", "nano")
	if got := h.mustRun("config", "get", "editor"); got != "nano\n" {
		t.Errorf("editor = %q", got)
	}
	if _, err := h.run("config", "set", "bogus", "1"); err == nil {
		t.Error("unknown key accepted")
	}
	show := h.mustRun("config", "show")
	if !strings.Contains(show, "editor: nano") || !strings.Contains(show, "last_updated:") {
		t.Errorf("config show = %q", show)
	}
}

func TestBookCommands(t *testing.T) {
	h := newHarness(t)
	h.mustRun("book", "mk", "b1")
	h.mustRun("append", "b1/p1", "x")

	if got := h.mustRun("book", "ls"); got != "b1\n" {
		t.Errorf("book ls = %q", got)
	}
	if _, err := h.run("book", "use", "missing"); err == nil {
		t.Error("book use accepted a missing book")
	}
	h.mustRun("book", "use", "b1")
	if got := h.mustRun("cat", "p1"); got != "x\n" {
		t.Errorf("cat in namespace = %q", got)
	}
	if got := h.mustRun("--namespace", "", "find", "--glob", "*"); got != "p1\n" {
		t.Errorf("find with empty namespace flag = %q", got)
	}

	h.mustRun("book", "use")
	h.mustRun("book", "rm", "--yes", "b1")
	if got := h.mustRun("book", "ls"); got != "" {
		t.Errorf("book ls after rm = %q", got)
	}
}

func TestImport(t *testing.T) {
	h := newHarness(t)
	src := filepath.Join(t.TempDir(), "Reading List.txt")
	if err := writeFile(src, "book\n"); err != nil {
		t.Fatal(err)
	}
	if got := h.mustRun("import", src, "lists/"); got != "imported lists/reading-list\n" {
		t.Errorf("import = %q", got)
	}
	if _, err := h.run("import", src, "lists/"); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second import error = %v", err)
	}
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{{"cat"}, {"mv", "a"}, {"grep"}, {"group", "g"}} {
		if _, err := h.run(args...); err == nil || !strings.Contains(err.Error(), "usage:") {
			t.Errorf("notecli %v error = %v, want usage error", args, err)
		}
	}
}

func TestStoreInternalsAreNotPages(t *testing.T) {
	h := newHarness(t)
	h.mustRun("open", "real/page")
	store := filepath.Join(h.home, ".notecli")

	for _, args := range [][]string{
		{"append", "history", "junk"},
		{"append", "config.yml", "junk"},
		{"new", "groups/x"},
		{"rm", "--yes", "history"},
	} {
		if _, err := h.run(args...); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("notecli %v error = %v, want ErrInvalidName", args, err)
		}
	}
	if got := h.mustRun("history"); got != "real/page\n" {
		t.Errorf("history = %q", got)
	}
	if _, err := os.Stat(filepath.Join(store, "groups", "x")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("groups/x exists (stat err = %v)", err)
	}
}

func TestNamespaceMustStayInStore(t *testing.T) {
	h := newHarness(t)
	for _, args := range [][]string{
		{"-n", "../../escaped", "new", "p"},
		{"--namespace", "groups", "new", "p"},
		{"book", "use", "../escaped"},
		{"watch", "../escaped"},
	} {
		if _, err := h.run(args...); !errors.Is(err, apperr.ErrInvalidName) {
			t.Errorf("notecli %v error = %v, want ErrInvalidName", args, err)
		}
	}
	if _, err := os.Stat(filepath.Join(filepath.Dir(h.home), "escaped")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("page created outside the store (stat err = %v)", err)
	}
}

func writeFile(path, content string) error {
	return os.WriteFile(path, []byte(content), 0o644)
}

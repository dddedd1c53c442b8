package noteservice

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/notebook"
	"github.com/starford/notecli/internal/session"
	"github.com/starford/notecli/internal/testutil"
)

type nopEditor struct{ launches int }

func (e *nopEditor) Launch(context.Context, string, []string) error {
	e.launches++
	return nil
}

func testService(t *testing.T) (*Service, *nopEditor) {
	t.Helper()
	cfg := testutil.Config(t)
	ed := &nopEditor{}
	return NewService(notebook.New(cfg, nil), session.New(cfg, session.WithLauncher(ed)), nil), ed
}

func seed(t *testing.T, svc *Service, pages map[string]string) {
	t.Helper()
	for name, content := range pages {
		if _, err := svc.Append(context.Background(), name, content); err != nil {
			t.Fatal(err)
		}
	}
}

func TestOpenCreatesAndRecordsHistory(t *testing.T) {
	svc, ed := testService(t)
	ctx := context.Background()
	seed(t, svc, map[string]string{"b1/p1": "x"})

	got, err := svc.Open(ctx, Selector{Names: []string{"b1/p1"}})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b1/p1"}, got); diff != "" {
		t.Errorf("opened mismatch (-want +got):\n%s", diff)
	}
	if ed.launches != 1 {
		t.Errorf("launches = %d", ed.launches)
	}
	hist, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b1/p1"}, hist); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	// A new page left empty by the editor disappears again.
	if _, err := svc.Open(ctx, Selector{Names: []string{"scratch"}}); err != nil {
		t.Fatal(err)
	}
	if svc.Notebook().PageExists("scratch") {
		t.Error("empty page survived the session")
	}
}

func TestOpenGlob(t *testing.T) {
	svc, ed := testService(t)
	seed(t, svc, map[string]string{"p1": "a", "p2": "b"})

	got, err := svc.Open(context.Background(), Selector{Names: []string{"p*"}, Glob: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || ed.launches != 1 {
		t.Errorf("opened %v with %d launches, want 2 pages in 1 launch", got, ed.launches)
	}

	_, err = svc.Open(context.Background(), Selector{Names: []string{"z*"}, Glob: true})
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("no match error = %v", err)
	}
}

func TestOpenEachAndClearHistory(t *testing.T) {
	svc, ed := testService(t)
	ctx := context.Background()
	seed(t, svc, map[string]string{"p1": "a", "p2": "b"})

	got, err := svc.Open(ctx, Selector{Names: []string{"p1", "p2"}, Each: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || ed.launches != 2 {
		t.Errorf("opened %v with %d launches, want 2 pages in 2 launches", got, ed.launches)
	}
	hist, err := svc.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"p2", "p1"}, hist); diff != "" {
		t.Errorf("history mismatch (-want +got):\n%s", diff)
	}

	if err := svc.ClearHistory(ctx); err != nil {
		t.Fatal(err)
	}
	hist, err = svc.History(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(hist) != 0 {
		t.Errorf("history after clear = %v", hist)
	}
}

func TestFindAndGrep(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	seed(t, svc, map[string]string{
		"work/standup": "todo: ship\n",
		"home/todo":    "buy milk\n",
	})

	byGlob, err := svc.Find(ctx, "*/todo", true)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"home/todo"}, byGlob); diff != "" {
		t.Errorf("glob find mismatch (-want +got):\n%s", diff)
	}
	bySubstr, err := svc.Find(ctx, "stand", false)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"work/standup"}, bySubstr); diff != "" {
		t.Errorf("substring find mismatch (-want +got):\n%s", diff)
	}

	hits, err := svc.Grep(ctx, "^todo", "")
	if err != nil {
		t.Fatal(err)
	}
	want := []SearchHit{{Page: "work/standup", Line: 1, Text: "todo: ship\n"}}
	if diff := cmp.Diff(want, hits); diff != "" {
		t.Errorf("grep mismatch (-want +got):\n%s", diff)
	}

	if _, err := svc.Grep(ctx, "x", "nope"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("grep missing book error = %v", err)
	}
}

func TestAppendPrependGetPage(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	if _, err := svc.Append(ctx, "p", "b\n"); err != nil {
		t.Fatal(err)
	}
	d, err := svc.Prepend(ctx, "p", "a\n")
	if err != nil {
		t.Fatal(err)
	}
	if d.Content != "a\nb\n" || d.Checksum == "" {
		t.Errorf("detail = %+v", d)
	}
	if _, err := svc.GetPage(ctx, "missing"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("GetPage missing error = %v", err)
	}
}

func TestRenameRefusesOverwrite(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	seed(t, svc, map[string]string{"a": "1", "b": "2"})

	if _, err := svc.Rename(ctx, "a", "b", false); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Fatalf("Rename error = %v", err)
	}
	d, err := svc.Rename(ctx, "a", "b", true)
	if err != nil {
		t.Fatal(err)
	}
	if d.Content != "1" || svc.Notebook().PageExists("a") {
		t.Errorf("forced rename: %+v", d)
	}
}

func TestDelete(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	seed(t, svc, map[string]string{"p1": "a", "p2": "b", "q": "c"})

	got, err := svc.Delete(ctx, Selector{Names: []string{"p*"}, Glob: true})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"p1", "p2"}, got); diff != "" {
		t.Errorf("deleted mismatch (-want +got):\n%s", diff)
	}
	if _, err := svc.Delete(ctx, Selector{Names: []string{"p1"}}); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("delete missing error = %v", err)
	}
}

func TestGroupLifecycle(t *testing.T) {
	svc, ed := testService(t)
	ctx := context.Background()
	seed(t, svc, map[string]string{"b1/p1": "a", "p2": "b"})

	if _, err := svc.Group(ctx, "g", Selector{Names: []string{"b1/p1", "p2"}}); err != nil {
		t.Fatal(err)
	}
	groups, err := svc.Groups(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string][]string{"g": {"b1/p1", "p2"}}, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}

	opened, err := svc.OpenGroup(ctx, "g", false)
	if err != nil {
		t.Fatal(err)
	}
	if len(opened) != 2 || ed.launches != 1 {
		t.Errorf("OpenGroup opened %v with %d launches", opened, ed.launches)
	}

	if err := svc.Ungroup(ctx, "g", []string{"p2"}); err != nil {
		t.Fatal(err)
	}
	if err := svc.RenameGroup(ctx, "g", "h"); err != nil {
		t.Fatal(err)
	}
	groups, err = svc.Groups(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string][]string{"h": {"b1/p1"}}, groups); diff != "" {
		t.Errorf("groups mismatch (-want +got):\n%s", diff)
	}
	if err := svc.Ungroup(ctx, "h", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.OpenGroup(ctx, "h", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("OpenGroup deleted group error = %v", err)
	}
}

func TestBooks(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	if err := svc.MakeBook(ctx, "b1/inner"); err != nil {
		t.Fatal(err)
	}
	seed(t, svc, map[string]string{"b1/p": "x"})

	books, err := svc.Books(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"b1", "b1/inner"}, books); diff != "" {
		t.Errorf("books mismatch (-want +got):\n%s", diff)
	}
	items, err := svc.ListPages(ctx, "b1", "", true)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 1 || items[0].Fullname != "b1/p" || items[0].Size != 1 {
		t.Errorf("ListPages = %+v", items)
	}
	if err := svc.DeleteBook(ctx, "b1"); err != nil {
		t.Fatal(err)
	}
	if svc.BookExists(ctx, "b1") {
		t.Error("book survived DeleteBook")
	}
}

func TestImportExport(t *testing.T) {
	svc, _ := testService(t)
	ctx := context.Background()
	src := filepath.Join(t.TempDir(), "Meeting Notes.md")
	testutil.WriteFile(t, src, "agenda\n")

	d, err := svc.Import(ctx, src, "work/", false)
	if err != nil {
		t.Fatal(err)
	}
	if d.Fullname != "work/meeting-notes" {
		t.Errorf("imported as %q", d.Fullname)
	}
	if _, err := svc.Import(ctx, src, "work/", false); !errors.Is(err, apperr.ErrAlreadyExists) {
		t.Errorf("second import error = %v", err)
	}
	testutil.WriteFile(t, src, "v2\n")
	if _, err := svc.Import(ctx, src, "work/meeting-notes", true); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := svc.Export(ctx, "work/meeting-notes", &buf); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "v2\n" {
		t.Errorf("export = %q", buf.String())
	}
	if _, err := svc.Import(ctx, filepath.Join(os.TempDir(), "notecli-missing-file"), "", false); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("missing source error = %v", err)
	}
}

func TestImportName(t *testing.T) {
	tests := map[string]string{
		"/tmp/Meeting Notes.md": "meeting-notes",
		"Draft (v2).txt":        "draft-v2",
		"todo.txt":              "todo",
	}
	for in, want := range tests {
		if got := ImportName(in); got != want {
			t.Errorf("ImportName(%q) = %q, want %q", in, got, want)
		}
	}
}

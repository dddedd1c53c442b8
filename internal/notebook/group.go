package notebook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/starford/notecli/internal/apperr"
	"github.com/starford/notecli/internal/storage"
)

// Group is a flat directory of symlinks, one per member page, named after the
// page's bare name.
type Group struct {
	nb   *Notebook
	fs   *storage.FS
	name string
	path string
}

// Group returns the group called name, creating its directory if needed.
func (nb *Notebook) Group(name string) (*Group, error) {
	g, err := nb.groupRef(name)
	if err != nil {
		return nil, err
	}
	if err := g.fs.Mkdir(g.name); err != nil {
		return nil, fmt.Errorf("notebook: create group %q: %w", g.name, err)
	}
	return g, nil
}

func (nb *Notebook) groupRef(name string) (*Group, error) {
	n, err := cleanName("group", name, false)
	if err != nil {
		return nil, err
	}
	if strings.Contains(n, "/") {
		return nil, fmt.Errorf("group name %q is nested: %w", name, apperr.ErrInvalidName)
	}
	fsys, err := nb.groupFS()
	if err != nil {
		return nil, err
	}
	abs, err := fsys.Abs(n)
	if err != nil {
		return nil, err
	}
	return &Group{nb: nb, fs: fsys, name: n, path: abs}, nil
}

// GroupExists reports whether the group directory exists.
func (nb *Notebook) GroupExists(name string) bool {
	g, err := nb.groupRef(name)
	if err != nil {
		return false
	}
	info, err := os.Stat(g.path)
	return err == nil && info.IsDir()
}

// Groups returns the sorted names of the groups matching the regular
// expression match. An empty match lists every group.
func (nb *Notebook) Groups(match string) ([]string, error) {
	re, err := regexp.Compile(match)
	if err != nil {
		return nil, fmt.Errorf("notebook: group filter %q: %w: %w", match, apperr.ErrInvalidName, err)
	}
	fsys, err := nb.groupFS()
	if err != nil {
		return nil, err
	}
	entries, err := fsys.ReadDir("")
	if errors.Is(err, fs.ErrNotExist) {
		return []string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notebook: list groups: %w", err)
	}
	out := []string{}
	for _, e := range entries {
		if e.IsDir() && re.MatchString(e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out, nil
}

// GroupContents maps every group matching match to the fullnames of its members.
func (nb *Notebook) GroupContents(match string) (map[string][]string, error) {
	names, err := nb.Groups(match)
	if err != nil {
		return nil, err
	}
	out := make(map[string][]string, len(names))
	for _, name := range names {
		g, err := nb.groupRef(name)
		if err != nil {
			return nil, err
		}
		members, err := g.Members()
		if err != nil {
			return nil, err
		}
		list := make([]string, len(members))
		for i, p := range members {
			list[i] = p.fullname
		}
		out[name] = list
	}
	return out, nil
}

func (g *Group) Name() string { return g.name }
func (g *Group) Path() string { return g.path }

// Add links every page into the group, replacing links of the same name. It
// stops at the first failure; links made before it are kept.
func (g *Group) Add(pages ...*Page) error {
	last := g.newestLink()
	for _, p := range pages {
		if err := g.fs.Symlink(p.path, filepath.Join(g.name, p.name)); err != nil {
			return fmt.Errorf("notebook: add %q to group %q: %w", p.fullname, g.name, err)
		}
		last = g.stampLink(filepath.Join(g.path, p.name), last)
		g.nb.logger.Debug("page grouped", slog.String("group", g.name), slog.String("page", p.fullname))
	}
	return nil
}

// newestLink returns the latest link mtime in the group directory.
func (g *Group) newestLink() time.Time {
	var newest time.Time
	entries, err := os.ReadDir(g.path)
	if err != nil {
		return newest
	}
	for _, e := range entries {
		if info, err := e.Info(); err == nil && info.ModTime().After(newest) {
			newest = info.ModTime()
		}
	}
	return newest
}

// stampLink makes the mtime of link strictly later than after, so that
// Members keeps insertion order even when the clock has not advanced
// between two links. It returns the mtime the link ends up with.
func (g *Group) stampLink(link string, after time.Time) time.Time {
	info, err := os.Lstat(link)
	if err != nil {
		return after
	}
	if info.ModTime().After(after) {
		return info.ModTime()
	}
	next := after.Add(time.Nanosecond)
	if err := setLinkTime(link, next); err != nil {
		g.nb.logger.Debug("cannot stamp group link",
			slog.String("path", link),
			slog.String("error", err.Error()),
		)
		return info.ModTime()
	}
	return next
}

// Remove unlinks the given pages from the group. Pages that are not members
// are reported as not found.
func (g *Group) Remove(pages ...*Page) error {
	for _, p := range pages {
		rel := filepath.Join(g.name, p.name)
		abs, err := g.fs.Abs(rel)
		if err != nil {
			return err
		}
		if _, err := os.Lstat(abs); err != nil {
			return apperr.NotFound("group member", g.name+"/"+p.name)
		}
		if err := g.fs.Delete(rel); err != nil {
			return fmt.Errorf("notebook: remove %q from group %q: %w", p.fullname, g.name, err)
		}
	}
	return nil
}

type member struct {
	target string
	name   string
	added  time.Time
}

// Members returns the pages the group links to, in the order they were added.
// Links whose target is gone or is not a regular file are skipped.
func (g *Group) Members() ([]*Page, error) {
	entries, err := g.fs.ReadDir(g.name)
	if errors.Is(err, fs.ErrNotExist) {
		return []*Page{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("notebook: group %q members: %w", g.name, err)
	}
	var found []member
	for _, e := range entries {
		link := filepath.Join(g.path, e.Name())
		info, err := os.Stat(link)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		target, err := resolveLink(link)
		if err != nil {
			continue
		}
		m := member{target: target, name: e.Name()}
		if li, err := e.Info(); err == nil {
			m.added = li.ModTime()
		}
		found = append(found, m)
	}
	sort.SliceStable(found, func(i, j int) bool {
		if !found[i].added.Equal(found[j].added) {
			return found[i].added.Before(found[j].added)
		}
		return found[i].name < found[j].name
	})
	out := make([]*Page, 0, len(found))
	for _, m := range found {
		p, err := g.nb.PageAt(m.target)
		if errors.Is(err, apperr.ErrInvalidName) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// resolveLink returns the absolute target of a symlink, or the path itself
// for a plain file.
func resolveLink(link string) (string, error) {
	target, err := os.Readlink(link)
	if err != nil {
		var pe *fs.PathError
		if errors.As(err, &pe) {
			return link, nil
		}
		return "", err
	}
	if !filepath.IsAbs(target) {
		target = filepath.Join(filepath.Dir(link), target)
	}
	return filepath.Clean(target), nil
}

// Rename moves the group directory. Member links keep their targets.
func (g *Group) Rename(newName string) error {
	next, err := g.nb.groupRef(newName)
	if err != nil {
		return err
	}
	if info, err := os.Stat(g.path); err != nil || !info.IsDir() {
		return apperr.NotFound("group", g.name)
	}
	if _, err := os.Stat(next.path); err == nil {
		return fmt.Errorf("notebook: rename group to %q: %w", next.name, apperr.ErrAlreadyExists)
	}
	if err := g.fs.Move(g.name, next.name); err != nil {
		return fmt.Errorf("notebook: rename group %q: %w", g.name, err)
	}
	g.name, g.path = next.name, next.path
	return nil
}

// Delete removes the group and its links. Member pages are untouched.
func (g *Group) Delete() error {
	if info, err := os.Stat(g.path); err != nil || !info.IsDir() {
		return apperr.NotFound("group", g.name)
	}
	if err := g.fs.RemoveAll(g.name); err != nil {
		return fmt.Errorf("notebook: delete group %q: %w", g.name, err)
	}
	return nil
}

package notebook

// Selection describes a command that acts on the pages named by Names. When
// Glob is set every name is expanded as a pattern; otherwise each name is one
// page, created first when Create is set and skipped when missing otherwise.
//
// Dispatch calls OnSingle for exactly one page and OnMany for more than one.
// When the matching handler is nil, or nothing matched, OnNone is called.
type Selection struct {
	Names  []string
	Glob   bool
	Create bool

	OnSingle func(*Page) error
	OnMany   func([]*Page) error
	OnNone   func() error
}

// Resolve expands the selection into pages without dispatching. Duplicates
// are dropped; order follows Names, then the glob order of each name.
func (nb *Notebook) Resolve(sel Selection) ([]*Page, error) {
	seen := make(map[string]bool)
	var out []*Page
	add := func(p *Page) {
		if !seen[p.path] {
			seen[p.path] = true
			out = append(out, p)
		}
	}
	for _, name := range sel.Names {
		if sel.Glob {
			found, err := nb.FindPages(name)
			if err != nil {
				return nil, err
			}
			for _, p := range found {
				add(p)
			}
			continue
		}
		var (
			p   *Page
			err error
		)
		if sel.Create {
			p, err = nb.CreatePage(name)
		} else {
			p, err = nb.PageRef(name)
		}
		if err != nil {
			return nil, err
		}
		if sel.Create || p.Exists() {
			add(p)
		}
	}
	return out, nil
}

// Dispatch resolves the selection and calls the handler matching the number
// of pages found. It returns the resolved pages.
func (nb *Notebook) Dispatch(sel Selection) ([]*Page, error) {
	pages, err := nb.Resolve(sel)
	if err != nil {
		return nil, err
	}
	switch {
	case len(pages) == 1 && sel.OnSingle != nil:
		err = sel.OnSingle(pages[0])
	case len(pages) > 1 && sel.OnMany != nil:
		err = sel.OnMany(pages)
	case sel.OnNone != nil:
		err = sel.OnNone()
	}
	return pages, err
}

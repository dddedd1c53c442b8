package mcpserver

// LayoutGuide explains how page names map onto the store, so that LLM
// consumers address pages the same way the CLI does.
const LayoutGuide = `# notecli store layout

Pages are plain text files. A page is addressed by its fullname, a
slash-separated path relative to the active book (the namespace):

    work/standup      page "standup" in book "work"
    todo              page "todo" in the root book

## Books

Books are directories. They nest: "work/2025/q1" is a valid book.
Listing a book returns the pages directly inside it; pass recursive=true
to include nested books.

## Groups

Groups are flat collections of links to pages. A page may belong to any
number of groups. Renaming a page drops it from its groups.

## Matching

- list_pages takes a shell glob (*, ?, [abc]) matched against page names.
- search_pages takes a regular expression matched line by line. Each hit
  reports the page, the 1-based line number and the full line.

## Writing

append_page adds text verbatim at the end of a page and creates the page
when it does not exist. No newline is added; include one when needed.
`

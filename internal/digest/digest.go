// Package digest selects, formats and chunks digest entries.
//
// Selection is a round-robin over sources in registry order: each pass takes
// the next eligible item from every source until the cap is reached. The
// result depends only on the input, never on timing or randomness.
package digest

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/deusflow/newsdigest/internal/feed"
)

const (
	Ellipsis  = "…"
	Untitled  = "(untitled)"
	separator = "\n\n"
)

// Entry is one formatted digest item.
type Entry struct {
	Title string
	Body  string
	Link  string
}

// Style selects how an entry is written for the destination chat.
type Style int

const (
	// Plain is readable as-is on any chat.
	Plain Style = iota
	// Markdown bolds the title and wraps the link in <> so Discord does
	// not unfurl an embed for every entry.
	Markdown
)

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"*", `\*`,
	"_", `\_`,
	"~", `\~`,
	"`", "\\`",
	"|", `\|`,
)

func (e Entry) Render(style Style) string {
	title, body, link := e.Title, e.Body, e.Link
	var b strings.Builder
	if style == Markdown {
		b.WriteString("**")
		b.WriteString(markdownEscaper.Replace(title))
		b.WriteString("**\n")
		body = markdownEscaper.Replace(body)
		link = "<" + link + ">"
	} else {
		b.WriteString("📰 ")
		b.WriteString(title)
		b.WriteString("\n")
	}
	if body != "" {
		b.WriteString(body)
		b.WriteString("\n")
	}
	b.WriteString("🔗 ")
	b.WriteString(link)
	return b.String()
}

type Composer struct {
	maxEntries   int
	summaryRunes int
}

// New caps digests at maxEntries and summaries at summaryRunes (ellipsis included).
func New(maxEntries, summaryRunes int) *Composer {
	return &Composer{maxEntries: maxEntries, summaryRunes: summaryRunes}
}

// Select interleaves perSource and returns at most MaxEntries items, skipping
// links for which seen is true and links repeated within the batch. It also
// reports how many items were skipped as duplicates.
func (c *Composer) Select(perSource [][]feed.Item, seen func(link string) bool) ([]feed.Item, int) {
	cursors := make([]int, len(perSource))
	taken := make(map[string]struct{})
	var out []feed.Item
	dups := 0

	for len(out) < c.maxEntries {
		progressed := false
		for i, items := range perSource {
			if len(out) >= c.maxEntries {
				break
			}
			for cursors[i] < len(items) {
				it := items[cursors[i]]
				cursors[i]++
				if _, dup := taken[it.Link]; dup || (seen != nil && seen(it.Link)) {
					dups++
					continue
				}
				taken[it.Link] = struct{}{}
				out = append(out, it)
				progressed = true
				break
			}
		}
		if !progressed {
			break
		}
	}
	return out, dups
}

// Entry formats one item.
func (c *Composer) Entry(it feed.Item) Entry {
	title := strings.TrimSpace(it.Title)
	if title == "" {
		title = Untitled
	}
	return Entry{
		Title: title,
		Body:  Truncate(strings.TrimSpace(it.Summary), c.summaryRunes),
		Link:  it.Link,
	}
}

// Truncate cuts s to limit runes, the last one being the ellipsis.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	rs := []rune(s)
	return strings.TrimRight(string(rs[:limit-1]), " ") + Ellipsis
}

// Chunk packs rendered blocks into message bodies of at most maxSize runes,
// separated by blank lines and in order. A block is never split; a block
// that alone exceeds maxSize is hard-truncated and ends with Ellipsis.
// maxSize <= 0 disables the limit.
func Chunk(blocks []string, maxSize int) []string {
	var (
		out    []string
		cur    strings.Builder
		curLen int
	)
	sepLen := utf8.RuneCountInString(separator)

	for _, block := range blocks {
		if block == "" {
			continue
		}
		if maxSize > 0 && utf8.RuneCountInString(block) > maxSize {
			block = hardTruncate(block, maxSize)
		}
		n := utf8.RuneCountInString(block)

		if curLen > 0 && maxSize > 0 && curLen+sepLen+n > maxSize {
			out = append(out, cur.String())
			cur.Reset()
			curLen = 0
		}
		if curLen > 0 {
			cur.WriteString(separator)
			curLen += sepLen
		}
		cur.WriteString(block)
		curLen += n
	}
	if curLen > 0 {
		out = append(out, cur.String())
	}
	return out
}

func hardTruncate(s string, maxSize int) string {
	rs := []rune(s)
	return string(rs[:maxSize-1]) + Ellipsis
}

// EmptyMessage is sent in place of a digest that has no entries.
func EmptyMessage(slot string) string {
	return fmt.Sprintf("📰 No news could be retrieved for the %s slot.", slot)
}

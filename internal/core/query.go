package core

import (
	"fmt"
	"iter"
	"strings"
	"unicode/utf8"

	"github.com/valter-silva-au/limbguide/pkg/models"
)

const (
	// DefaultOutlineDepth is the deepest level rendered by RenderOutline.
	DefaultOutlineDepth = 3
	// DefaultChunkSize is the largest message SplitMessage produces, in characters.
	DefaultChunkSize = 3500
)

// FindByID searches nodes depth-first in pre-order and returns the first
// topic with the given id, or nil.
func FindByID(nodes []*models.Topic, id string) *models.Topic {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			return n
		}
		if found := FindByID(n.Subthemes, id); found != nil {
			return found
		}
	}
	return nil
}

// FindByPath walks from a virtual root whose children are nodes, taking the
// child matching each path segment in turn. An empty path or any missing
// segment yields nil.
func FindByPath(nodes []*models.Topic, path []string) *models.Topic {
	if len(path) == 0 {
		return nil
	}
	var cur *models.Topic
	children := nodes
	for _, seg := range path {
		cur = nil
		for _, c := range children {
			if c != nil && c.ID == seg {
				cur = c
				break
			}
		}
		if cur == nil {
			return nil
		}
		children = cur.Subthemes
	}
	return cur
}

// FindPath returns the ids from a top-level node down to the topic with the
// given id, inclusive, or nil when absent. FindByPath(nodes, FindPath(nodes, id))
// is the same topic as FindByID(nodes, id).
func FindPath(nodes []*models.Topic, id string) []string {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if n.ID == id {
			return []string{n.ID}
		}
		if sub := FindPath(n.Subthemes, id); sub != nil {
			return append([]string{n.ID}, sub...)
		}
	}
	return nil
}

// FindParent returns the immediate parent of the topic with the given id.
// Top-level and absent ids have no parent.
func FindParent(nodes []*models.Topic, id string) *models.Topic {
	for _, n := range nodes {
		if n == nil {
			continue
		}
		for _, c := range n.Subthemes {
			if c != nil && c.ID == id {
				return n
			}
		}
		if p := FindParent(n.Subthemes, id); p != nil {
			return p
		}
	}
	return nil
}

// CountDescendants counts every topic below node, excluding node itself.
func CountDescendants(node *models.Topic) int {
	if node == nil {
		return 0
	}
	n := 0
	for _, c := range node.Subthemes {
		n += 1 + CountDescendants(c)
	}
	return n
}

// ContentCount is the number of per-level video links plus uploaded files.
func ContentCount(node *models.Topic) int {
	if node == nil {
		return 0
	}
	return len(node.VideosByLevel) + len(node.FilesByLevel)
}

var markdownEscaper = strings.NewReplacer(
	`_`, `\_`,
	`*`, `\*`,
	"`", "\\`",
	`[`, `\[`,
)

// EscapeMarkdown escapes the characters that open entities in Telegram's
// Markdown dialect.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}

// codeSpan makes s safe inside a `code` entity, where escapes are not honoured.
func codeSpan(s string) string {
	return "`" + strings.ReplaceAll(s, "`", "'") + "`"
}

// OutlineLines lazily renders nodes as an indented outline, two spaces per
// depth, descending no deeper than maxDepth. Each topic yields a title line
// and, when it carries content, a count line. The sequence is restartable.
func OutlineLines(nodes []*models.Topic, maxDepth int) iter.Seq[string] {
	return func(yield func(string) bool) {
		walkOutline(nodes, 0, maxDepth, yield)
	}
}

func walkOutline(nodes []*models.Topic, depth, maxDepth int, yield func(string) bool) bool {
	if depth > maxDepth {
		return true
	}
	indent := strings.Repeat("  ", depth)
	for _, n := range nodes {
		if n == nil {
			continue
		}
		if !yield(fmt.Sprintf("%s📁 %s %s", indent, EscapeMarkdown(n.Title), codeSpan(n.ID))) {
			return false
		}
		if c := ContentCount(n); c > 0 {
			if !yield(fmt.Sprintf("%s  🎬 Видео: %d", indent, c)) {
				return false
			}
		}
		if n.HasChildren() && depth < maxDepth {
			if !walkOutline(n.Subthemes, depth+1, maxDepth, yield) {
				return false
			}
		}
	}
	return true
}

// RenderOutline joins OutlineLines into one newline-terminated text.
func RenderOutline(nodes []*models.Topic, maxDepth int) string {
	var b strings.Builder
	for line := range OutlineLines(nodes, maxDepth) {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return b.String()
}

// SplitMessage breaks text into chunks of at most max characters by packing
// whole lines greedily. A single line longer than the limit is cut to
// max-3 characters plus "...". Chunks are trimmed and blank ones dropped.
func SplitMessage(text string, max int) []string {
	if max <= 3 {
		max = DefaultChunkSize
	}
	if utf8.RuneCountInString(text) <= max {
		return []string{text}
	}

	var parts []string
	var cur strings.Builder
	curLen := 0

	flush := func() {
		if s := strings.TrimSpace(cur.String()); s != "" {
			parts = append(parts, s)
		}
		cur.Reset()
		curLen = 0
	}

	for _, line := range strings.Split(text, "\n") {
		lineLen := utf8.RuneCountInString(line)
		if curLen+lineLen+1 <= max {
			cur.WriteString(line)
			cur.WriteByte('\n')
			curLen += lineLen + 1
			continue
		}
		flush()
		if lineLen+1 > max {
			parts = append(parts, truncateRunes(line, max-3)+"...")
			continue
		}
		cur.WriteString(line)
		cur.WriteByte('\n')
		curLen = lineLen + 1
	}
	flush()
	return parts
}

func truncateRunes(s string, n int) string {
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

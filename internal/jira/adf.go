package jira

import (
	"fmt"
	"strings"

	"github.com/ctreminiom/go-atlassian/v2/pkg/infra/models"
)

// ADFToMarkdown renders an Atlassian Document Format description as
// Markdown for the agent prompts. Unknown nodes keep their text content.
func ADFToMarkdown(doc *models.CommentNodeScheme) string {
	if doc == nil {
		return ""
	}
	var md markdown
	md.block(doc, "")
	return strings.TrimSpace(md.String())
}

type markdown struct {
	strings.Builder
}

// block renders a block-level node. indent prefixes nested list items.
func (m *markdown) block(n *models.CommentNodeScheme, indent string) {
	switch n.Type {
	case "doc":
		for _, c := range n.Content {
			m.block(c, indent)
		}
	case "paragraph":
		m.WriteString(m.inline(n.Content))
		m.WriteString("\n\n")
	case "heading":
		level := intAttr(n.Attrs, "level", 1)
		fmt.Fprintf(m, "%s %s\n\n", strings.Repeat("#", level), m.inline(n.Content))
	case "bulletList", "orderedList":
		for i, item := range n.Content {
			marker := "- "
			if n.Type == "orderedList" {
				marker = fmt.Sprintf("%d. ", i+1)
			}
			m.listItem(item, indent, marker)
		}
		if indent == "" {
			m.WriteString("\n")
		}
	case "codeBlock":
		fmt.Fprintf(m, "```%s\n%s\n```\n\n", stringAttr(n.Attrs, "language"), m.inline(n.Content))
	case "blockquote":
		var inner markdown
		for _, c := range n.Content {
			inner.block(c, "")
		}
		for _, line := range strings.Split(strings.TrimSpace(inner.String()), "\n") {
			m.WriteString(strings.TrimRight("> "+line, " ") + "\n")
		}
		m.WriteString("\n")
	case "rule":
		m.WriteString("---\n\n")
	case "table":
		m.table(n)
	case "mediaSingle", "mediaGroup":
		m.WriteString("[media]\n\n")
	default:
		if len(n.Content) == 0 {
			m.WriteString(m.inline([]*models.CommentNodeScheme{n}))
			return
		}
		for _, c := range n.Content {
			m.block(c, indent)
		}
	}
}

func (m *markdown) listItem(item *models.CommentNodeScheme, indent, marker string) {
	m.WriteString(indent + marker)
	first := true
	for _, c := range item.Content {
		switch {
		case c.Type == "bulletList" || c.Type == "orderedList":
			if first {
				m.WriteString("\n")
			}
			m.block(c, indent+"  ")
		case first:
			m.WriteString(m.inline(c.Content) + "\n")
		default:
			m.WriteString(indent + "  " + m.inline(c.Content) + "\n")
		}
		first = false
	}
	if first {
		m.WriteString("\n")
	}
}

func (m *markdown) table(n *models.CommentNodeScheme) {
	for i, row := range n.Content {
		cells := make([]string, 0, len(row.Content))
		for _, cell := range row.Content {
			var inner markdown
			for _, c := range cell.Content {
				inner.block(c, "")
			}
			cells = append(cells, strings.ReplaceAll(strings.TrimSpace(inner.String()), "\n", " "))
		}
		m.WriteString("| " + strings.Join(cells, " | ") + " |\n")
		if i == 0 {
			m.WriteString("|" + strings.Repeat(" --- |", len(cells)) + "\n")
		}
	}
	m.WriteString("\n")
}

// inline renders text-level nodes.
func (m *markdown) inline(nodes []*models.CommentNodeScheme) string {
	var b strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case "text":
			b.WriteString(withMarks(n.Text, n.Marks))
		case "hardBreak":
			b.WriteString("\n")
		case "mention":
			b.WriteString(stringAttr(n.Attrs, "text"))
		case "emoji":
			b.WriteString(stringAttr(n.Attrs, "shortName"))
		case "inlineCard":
			b.WriteString(stringAttr(n.Attrs, "url"))
		default:
			b.WriteString(m.inline(n.Content))
		}
	}
	return b.String()
}

func withMarks(text string, marks []*models.MarkScheme) string {
	for _, mark := range marks {
		switch mark.Type {
		case "strong":
			text = "**" + text + "**"
		case "em":
			text = "*" + text + "*"
		case "code":
			text = "`" + text + "`"
		case "strike":
			text = "~~" + text + "~~"
		case "link":
			if href := stringAttr(mark.Attrs, "href"); href != "" {
				text = "[" + text + "](" + href + ")"
			}
		}
	}
	return text
}

func stringAttr(attrs map[string]interface{}, key string) string {
	s, _ := attrs[key].(string)
	return s
}

func intAttr(attrs map[string]interface{}, key string, fallback int) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return fallback
}

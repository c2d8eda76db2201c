// Package render turns documents and cards into markdown and sanitized HTML
// for card previews and the published portfolio page.
package render

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/rcliao/cardfolio/internal/model"
)

// BlocksToMarkdown renders a block tree as markdown. Block types without a
// markdown form fall back to their plain text.
func BlocksToMarkdown(blocks []model.Block) string {
	var sb strings.Builder
	writeBlocks(&sb, blocks, 0)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

func writeBlocks(sb *strings.Builder, blocks []model.Block, depth int) {
	indent := strings.Repeat("  ", depth)
	for i, b := range blocks {
		text := escapeLineStart(inline(b.Content))
		switch b.Type {
		case "heading":
			level := 1
			fmt.Sscanf(b.Prop("level"), "%d", &level)
			if level < 1 || level > 6 {
				level = 1
			}
			fmt.Fprintf(sb, "%s%s %s\n\n", indent, strings.Repeat("#", level), text)
		case "bulletListItem":
			fmt.Fprintf(sb, "%s- %s\n", indent, text)
		case "numberedListItem":
			fmt.Fprintf(sb, "%s%d. %s\n", indent, i+1, text)
		case "checkListItem":
			mark := " "
			if b.Prop("checked") == "true" {
				mark = "x"
			}
			fmt.Fprintf(sb, "%s- [%s] %s\n", indent, mark, text)
		case "quote":
			fmt.Fprintf(sb, "%s> %s\n\n", indent, text)
		case "codeBlock":
			fmt.Fprintf(sb, "%s```%s\n%s\n%s```\n\n", indent, b.Prop("language"), b.PlainText(), indent)
		case model.TypeImage:
			img := b.Variant().(model.Image)
			if img.URL != "" {
				fmt.Fprintf(sb, "%s![%s](%s)\n\n", indent, escapeMD(img.Caption), img.URL)
			}
		case model.TypeProjectCard:
			fmt.Fprintf(sb, "%s### %s\n\n", indent, escapeMD(b.Prop("title")))
		default:
			if text != "" {
				fmt.Fprintf(sb, "%s%s\n\n", indent, text)
			}
		}
		if len(b.Children) > 0 {
			writeBlocks(sb, b.Children, depth+1)
		}
		if isListItem(b.Type) && (i == len(blocks)-1 || !isListItem(blocks[i+1].Type)) {
			sb.WriteString("\n")
		}
	}
}

func isListItem(t string) bool {
	return t == "bulletListItem" || t == "numberedListItem" || t == "checkListItem"
}

// inline renders inline nodes: styled text runs and links.
func inline(nodes []model.Block) string {
	var sb strings.Builder
	for _, n := range nodes {
		switch n.Type {
		case model.TypeText:
			sb.WriteString(styled(n))
		case model.TypeLink:
			var href string
			if raw, ok := n.Extra["href"]; ok {
				json.Unmarshal(raw, &href)
			}
			fmt.Fprintf(&sb, "[%s](%s)", inline(n.Content), href)
		default:
			sb.WriteString(escapeMD(n.PlainText()))
		}
	}
	return sb.String()
}

func styled(n model.Block) string {
	text := escapeMD(n.Text())
	if strings.TrimSpace(text) == "" {
		return text
	}
	var styles map[string]any
	if raw, ok := n.Extra["styles"]; ok {
		json.Unmarshal(raw, &styles)
	}
	on := func(k string) bool { v, _ := styles[k].(bool); return v }
	if on("code") {
		return "`" + n.Text() + "`"
	}
	if on("bold") {
		text = "**" + text + "**"
	}
	if on("italic") {
		text = "_" + text + "_"
	}
	if on("strike") {
		text = "~~" + text + "~~"
	}
	return text
}

var mdEscaper = strings.NewReplacer(
	`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;",
)

func escapeMD(s string) string {
	return mdEscaper.Replace(s)
}

var (
	markerStart  = regexp.MustCompile(`^(\s*)([#>+=-])`)
	orderedStart = regexp.MustCompile(`^(\s*)(\d+)([.)])`)
)

// escapeLineStart escapes characters that would open a heading, list, quote
// or setext underline at the start of a line.
func escapeLineStart(s string) string {
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		l = markerStart.ReplaceAllString(l, `$1\$2`)
		lines[i] = orderedStart.ReplaceAllString(l, `$1$2\$3`)
	}
	return strings.Join(lines, "\n")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/filechat/internal/attachment"
	"github.com/jeranaias/filechat/internal/model"
	"github.com/jeranaias/filechat/internal/util"
)

// =============================================================================
// MARKDOWN EXPORTER
// =============================================================================

// MarkdownExporter exports conversations to Markdown.
type MarkdownExporter struct {
	// IncludeTimestamps adds the send time to each message heading.
	IncludeTimestamps bool
}

// NewMarkdownExporter creates a Markdown exporter with timestamps on.
func NewMarkdownExporter() *MarkdownExporter {
	return &MarkdownExporter{IncludeTimestamps: true}
}

// Export converts a document to Markdown.
func (e *MarkdownExporter) Export(doc Document) ([]byte, error) {
	if doc.Conversation.IsEmpty() {
		return nil, ErrEmpty
	}
	msgs := doc.Conversation.Messages()
	title := doc.Title
	if title == "" {
		title = DefaultTitle(doc.Conversation)
	}

	var sb strings.Builder

	sb.WriteString("---\n")
	fmt.Fprintf(&sb, "title: %s\n", escapeYAML(title))
	if doc.Model != "" {
		fmt.Fprintf(&sb, "model: %s\n", escapeYAML(doc.Model))
	}
	fmt.Fprintf(&sb, "date: %s\n", msgs[0].CreatedAt.Format(time.RFC3339))
	fmt.Fprintf(&sb, "messages: %d\n", len(msgs))
	fmt.Fprintf(&sb, "files: %d\n", len(doc.Attachments))
	fmt.Fprintf(&sb, "exported: %s\n", doc.ExportedAt.Format(time.RFC3339))
	sb.WriteString("generator: filechat\n")
	sb.WriteString("---\n\n")

	fmt.Fprintf(&sb, "# %s\n\n", escapeMarkdown(util.SingleLine(title)))

	if len(doc.Attachments) > 0 {
		sb.WriteString("## Files\n\n")
		for _, att := range doc.Attachments {
			sb.WriteString("- ")
			sb.WriteString(attachmentLine(att))
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	sb.WriteString("## Conversation\n\n")
	for i, msg := range msgs {
		label := roleLabel(msg.Role)
		if e.IncludeTimestamps {
			fmt.Fprintf(&sb, "### %s <sub>%s</sub>\n\n", label, formatShortTimestamp(msg.CreatedAt))
		} else {
			fmt.Fprintf(&sb, "### %s\n\n", label)
		}

		if msg.IsFile() {
			sb.WriteString("Shared a file: ")
			sb.WriteString(attachmentLine(*msg.Attachment))
		} else {
			sb.WriteString(strings.TrimSpace(msg.Text))
		}
		sb.WriteString("\n\n")

		if i < len(msgs)-1 {
			sb.WriteString("---\n\n")
		}
	}

	fmt.Fprintf(&sb, "\n---\n\n*Exported from filechat on %s*\n", formatTimestamp(doc.ExportedAt))
	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for Markdown.
func (e *MarkdownExporter) FileExtension() string {
	return ".md"
}

// MimeType returns the MIME type for Markdown.
func (e *MarkdownExporter) MimeType() string {
	return "text/markdown"
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func roleLabel(role model.Role) string {
	switch role {
	case model.RoleUser:
		return "[You]"
	case model.RoleAssistant:
		return "[Assistant]"
	default:
		return "[Unknown]"
	}
}

func attachmentLine(att model.Attachment) string {
	return fmt.Sprintf("**%s** (%s, %s)",
		escapeMarkdown(att.DisplayName),
		attachment.FormatFileSize(att.ByteSize),
		att.TypeOrUnknown())
}

// =============================================================================
// ESCAPING HELPERS
// =============================================================================

// escapeMarkdown escapes characters that would break formatting in headings
// and inline labels.
func escapeMarkdown(s string) string {
	r := strings.NewReplacer(
		`\`, `\\`,
		"#", `\#`,
		"*", `\*`,
		"_", `\_`,
		"[", `\[`,
		"]", `\]`,
	)
	return r.Replace(s)
}

// escapeYAML quotes a scalar that contains YAML syntax. Newlines are escaped
// so a title cannot inject extra frontmatter keys.
func escapeYAML(s string) string {
	if strings.ContainsAny(s, ":#|>@`\"'[]{}!%&*\n\r\\") || strings.HasPrefix(s, " ") || strings.HasSuffix(s, " ") {
		s = strings.ReplaceAll(s, "\\", "\\\\")
		s = strings.ReplaceAll(s, "\"", "\\\"")
		s = strings.ReplaceAll(s, "\n", "\\n")
		s = strings.ReplaceAll(s, "\r", "\\r")
		return "\"" + s + "\""
	}
	return s
}

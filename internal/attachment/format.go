// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import (
	"strings"

	"github.com/jeranaias/filechat/internal/util"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatFileSize renders a byte count using 1024-based units with at most two
// decimals, e.g. "0 Bytes", "1.5 KB", "488.28 KB", "2 MB".
func FormatFileSize(bytes int64) string {
	if bytes <= 0 {
		return "0 Bytes"
	}
	value := float64(bytes)
	i := 0
	for value >= 1024 && i < len(sizeUnits)-1 {
		value /= 1024
		i++
	}
	return util.FormatTrimmed(value, 2) + " " + sizeUnits[i]
}

// Category is a coarse label for a MIME type.
type Category string

const (
	CategoryImage       Category = "Image"
	CategoryVideo       Category = "Video"
	CategoryAudio       Category = "Audio"
	CategoryPDF         Category = "PDF"
	CategoryDocument    Category = "Document"
	CategorySpreadsheet Category = "Spreadsheet"
	CategoryText        Category = "Text"
	CategoryArchive     Category = "Archive"
	CategoryFile        Category = "File"
)

// CategoryOf maps a MIME type to its category. Checks run in a fixed order,
// so "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet" is a
// Document, matching the label shown in the chat.
func CategoryOf(mimeType string) Category {
	m := strings.ToLower(mimeType)
	switch {
	case strings.HasPrefix(m, "image/"):
		return CategoryImage
	case strings.HasPrefix(m, "video/"):
		return CategoryVideo
	case strings.HasPrefix(m, "audio/"):
		return CategoryAudio
	case strings.Contains(m, "pdf"):
		return CategoryPDF
	case strings.Contains(m, "document"):
		return CategoryDocument
	case strings.Contains(m, "spreadsheet"):
		return CategorySpreadsheet
	case strings.Contains(m, "text"):
		return CategoryText
	case strings.Contains(m, "zip"), strings.Contains(m, "rar"), strings.Contains(m, "archive"):
		return CategoryArchive
	default:
		return CategoryFile
	}
}

// Icon returns a one-glyph badge for the category.
func (c Category) Icon() string {
	switch c {
	case CategoryImage:
		return "▣"
	case CategoryVideo:
		return "▶"
	case CategoryAudio:
		return "♪"
	case CategoryPDF, CategoryDocument, CategoryText, CategorySpreadsheet:
		return "≡"
	case CategoryArchive:
		return "▤"
	default:
		return "□"
	}
}

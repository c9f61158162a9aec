// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"
	"sync"

	"github.com/charmbracelet/glamour"
)

// Markdown renders assistant replies. Renderers are built lazily per width
// and cached; rendered output is cached per (width, text).
type Markdown struct {
	enabled bool
	style   string

	mu        sync.Mutex
	renderers map[int]*glamour.TermRenderer
	cache     map[cacheKey]string
}

type cacheKey struct {
	width int
	text  string
}

// maxCacheEntries bounds the render cache; it is reset when full.
const maxCacheEntries = 256

// NewMarkdown creates a renderer. With enabled=false, Render only wraps text.
// dark selects glamour's dark or light style.
func NewMarkdown(enabled, dark bool) *Markdown {
	style := "light"
	if dark {
		style = "dark"
	}
	return &Markdown{
		enabled:   enabled,
		style:     style,
		renderers: make(map[int]*glamour.TermRenderer),
		cache:     make(map[cacheKey]string),
	}
}

// Render formats text for width cells. Any glamour failure falls back to
// plain wrapping.
func (m *Markdown) Render(text string, width int) string {
	if !m.enabled || width <= 0 {
		return Wrap(text, width)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	key := cacheKey{width: width, text: text}
	if out, ok := m.cache[key]; ok {
		return out
	}

	r, ok := m.renderers[width]
	if !ok {
		var err error
		r, err = glamour.NewTermRenderer(
			glamour.WithStandardStyle(m.style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return Wrap(text, width)
		}
		m.renderers[width] = r
	}

	out, err := r.Render(text)
	if err != nil {
		return Wrap(text, width)
	}
	out = strings.Trim(out, "\n")

	if len(m.cache) >= maxCacheEntries {
		m.cache = make(map[cacheKey]string)
	}
	m.cache[key] = out
	return out
}

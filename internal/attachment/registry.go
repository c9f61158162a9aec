// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package attachment

import "github.com/jeranaias/filechat/internal/model"

// Registry is the newest-first list of attachments the user has shared.
// It is not safe for concurrent use; the chat controller owns it.
type Registry struct {
	items []model.Attachment
}

// NewRegistry creates a registry holding items in the given order.
// Later duplicates of an ID are ignored.
func NewRegistry(items ...model.Attachment) *Registry {
	r := &Registry{}
	for _, att := range items {
		if r.index(att.ID) < 0 {
			r.items = append(r.items, att)
		}
	}
	return r
}

// Add puts att at the front. An existing entry with the same ID is replaced.
func (r *Registry) Add(att model.Attachment) {
	if i := r.index(att.ID); i >= 0 {
		r.items = append(r.items[:i], r.items[i+1:]...)
	}
	r.items = append([]model.Attachment{att}, r.items...)
}

// Remove deletes the attachment with id and reports whether it was present.
func (r *Registry) Remove(id string) (model.Attachment, bool) {
	i := r.index(id)
	if i < 0 {
		return model.Attachment{}, false
	}
	att := r.items[i]
	r.items = append(r.items[:i], r.items[i+1:]...)
	return att, true
}

// Get returns the attachment with id.
func (r *Registry) Get(id string) (model.Attachment, bool) {
	if i := r.index(id); i >= 0 {
		return r.items[i], true
	}
	return model.Attachment{}, false
}

// List returns a copy of the attachments, newest first.
func (r *Registry) List() []model.Attachment {
	out := make([]model.Attachment, len(r.items))
	copy(out, r.items)
	return out
}

// Len returns the number of attachments.
func (r *Registry) Len() int {
	return len(r.items)
}

func (r *Registry) index(id string) int {
	for i, att := range r.items {
		if att.ID == id {
			return i
		}
	}
	return -1
}

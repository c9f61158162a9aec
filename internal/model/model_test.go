// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"errors"
	"sort"
	"strings"
	"testing"
	"time"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewTextMessage_Trims(t *testing.T) {
	msg := NewUserMessage("  hello world \n")
	if msg.Text != "hello world" {
		t.Errorf("Text = %q, want %q", msg.Text, "hello world")
	}
	if msg.Kind != KindText || msg.Role != RoleUser {
		t.Errorf("got kind=%s role=%s", msg.Kind, msg.Role)
	}
	if !strings.HasPrefix(msg.ID, "msg_") {
		t.Errorf("ID should start with 'msg_', got %q", msg.ID)
	}
	if err := msg.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestMessage_Validate(t *testing.T) {
	now := Now()
	att := Attachment{ID: "att_1", DisplayName: "a.txt", ByteSize: 3, MIMEType: "text/plain", PickedAt: now}

	tests := []struct {
		name string
		msg  Message
		want error
	}{
		{"valid text", Message{ID: "1", Role: RoleUser, Kind: KindText, Text: "hi", CreatedAt: now}, nil},
		{"valid file", Message{ID: "1", Role: RoleUser, Kind: KindFile, Attachment: &att, CreatedAt: now}, nil},
		{"missing id", Message{Role: RoleUser, Kind: KindText, Text: "hi", CreatedAt: now}, ErrMissingID},
		{"bad role", Message{ID: "1", Role: "system", Kind: KindText, Text: "hi", CreatedAt: now}, ErrInvalidRole},
		{"bad kind", Message{ID: "1", Role: RoleUser, Kind: "image", Text: "hi", CreatedAt: now}, ErrInvalidKind},
		{"blank text", Message{ID: "1", Role: RoleUser, Kind: KindText, Text: "   ", CreatedAt: now}, ErrEmptyText},
		{"text with attachment", Message{ID: "1", Role: RoleUser, Kind: KindText, Text: "hi", Attachment: &att, CreatedAt: now}, ErrMixedPayload},
		{"file with text", Message{ID: "1", Role: RoleUser, Kind: KindFile, Text: "hi", Attachment: &att, CreatedAt: now}, ErrMixedPayload},
		{"file without attachment", Message{ID: "1", Role: RoleUser, Kind: KindFile, CreatedAt: now}, ErrMissingFile},
		{"no timestamp", Message{ID: "1", Role: RoleUser, Kind: KindText, Text: "hi"}, ErrMissingTime},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Validate()
			if tc.want == nil {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Errorf("Validate() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestMessage_ContentForFile(t *testing.T) {
	msg := NewFileMessage(Attachment{ID: "a", DisplayName: "report.pdf", PickedAt: Now()}, Now())
	if got := msg.Content(); got != "[File uploaded: report.pdf]" {
		t.Errorf("Content() = %q", got)
	}
}

func TestMessage_Preview(t *testing.T) {
	msg := NewUserMessage("héllo wörld, this is long")
	if got := msg.Preview(8); got != "héllo..." {
		t.Errorf("Preview(8) = %q", got)
	}
	if got := msg.Preview(100); got != msg.Text {
		t.Errorf("Preview(100) = %q", got)
	}
}

func TestNewID_OrderedAndUnique(t *testing.T) {
	seen := make(map[string]bool)
	ids := make([]string, 0, 500)
	for i := 0; i < 500; i++ {
		id := NewID("msg")
		if seen[id] {
			t.Fatalf("duplicate id %s", id)
		}
		seen[id] = true
		ids = append(ids, id)
	}
	if !sort.StringsAreSorted(ids) {
		t.Error("IDs generated in sequence should sort in creation order")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_AppendDoesNotAliasSnapshots(t *testing.T) {
	base := NewConversation(NewUserMessage("one"))
	a := base.Append(NewAssistantMessage("two"))
	b := base.Append(NewAssistantMessage("three"))

	if base.Len() != 1 {
		t.Errorf("base.Len() = %d, want 1", base.Len())
	}
	if a.At(1).Text != "two" || b.At(1).Text != "three" {
		t.Errorf("snapshots share storage: a=%q b=%q", a.At(1).Text, b.At(1).Text)
	}
}

func TestConversation_Tail(t *testing.T) {
	conv := NewConversation()
	for i := 0; i < 15; i++ {
		conv = conv.Append(NewTextMessage(RoleUser, string(rune('a'+i)), time.Unix(int64(i), 0)))
	}

	tail := conv.Tail(10)
	if len(tail) != 10 {
		t.Fatalf("len(Tail(10)) = %d", len(tail))
	}
	if tail[0].Text != "f" || tail[9].Text != "o" {
		t.Errorf("Tail window = %q..%q, want f..o", tail[0].Text, tail[9].Text)
	}
	if got := conv.Tail(0); got != nil {
		t.Errorf("Tail(0) = %v, want nil", got)
	}
	if got := NewConversation().Tail(10); len(got) != 0 {
		t.Errorf("Tail on empty = %v", got)
	}
}

func TestConversation_ClearAndLast(t *testing.T) {
	conv := NewConversation(NewUserMessage("q"), NewAssistantMessage("a"))

	last, ok := conv.Last()
	if !ok || last.Text != "a" {
		t.Errorf("Last() = %+v, %v", last, ok)
	}
	reply, ok := conv.LastAssistantMessage()
	if !ok || reply.Text != "a" {
		t.Errorf("LastAssistantMessage() = %+v, %v", reply, ok)
	}

	cleared := conv.Clear()
	if !cleared.IsEmpty() {
		t.Error("Clear() should return an empty conversation")
	}
	if _, ok := cleared.Last(); ok {
		t.Error("Last() on empty conversation should report false")
	}
	if conv.Len() != 2 {
		t.Error("Clear() must not modify the receiver")
	}
}

func TestAttachment_Helpers(t *testing.T) {
	a := Attachment{ByteSize: 1536}
	if a.SizeKB() != 1.5 {
		t.Errorf("SizeKB() = %v", a.SizeKB())
	}
	if a.TypeOrUnknown() != UnknownMIMEType {
		t.Errorf("TypeOrUnknown() = %q", a.TypeOrUnknown())
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is the append-only ordered log of messages for the active
// session.
//
// A Conversation value is an immutable snapshot: Append and Clear return a new
// value and never touch the backing array of the receiver, so snapshots handed
// to observers stay stable while the owner keeps appending.
type Conversation struct {
	messages []Message
}

// NewConversation builds a conversation from an ordered list of messages.
func NewConversation(messages ...Message) Conversation {
	if len(messages) == 0 {
		return Conversation{}
	}
	out := make([]Message, len(messages))
	copy(out, messages)
	return Conversation{messages: out}
}

// Append returns a conversation with msg added to the end.
func (c Conversation) Append(msg Message) Conversation {
	next := make([]Message, len(c.messages), len(c.messages)+1)
	copy(next, c.messages)
	return Conversation{messages: append(next, msg)}
}

// Clear returns an empty conversation.
func (c Conversation) Clear() Conversation {
	return Conversation{}
}

// Messages returns a copy of the ordered messages.
func (c Conversation) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Len returns the number of messages.
func (c Conversation) Len() int {
	return len(c.messages)
}

// IsEmpty returns true if there are no messages.
func (c Conversation) IsEmpty() bool {
	return len(c.messages) == 0
}

// At returns the message at index i.
func (c Conversation) At(i int) Message {
	return c.messages[i]
}

// Last returns the most recent message and false if the conversation is empty.
func (c Conversation) Last() (Message, bool) {
	if len(c.messages) == 0 {
		return Message{}, false
	}
	return c.messages[len(c.messages)-1], true
}

// Tail returns a copy of at most n trailing messages, oldest first.
func (c Conversation) Tail(n int) []Message {
	if n <= 0 {
		return nil
	}
	start := len(c.messages) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(c.messages)-start)
	copy(out, c.messages[start:])
	return out
}

// LastAssistantMessage returns the most recent assistant reply.
func (c Conversation) LastAssistantMessage() (Message, bool) {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleAssistant {
			return c.messages[i], true
		}
	}
	return Message{}, false
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package storage

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jeranaias/filechat/internal/model"
)

// =============================================================================
// CONVERSATION CODEC
// =============================================================================

// Serialize encodes a conversation as a JSON array of messages.
// The output depends only on the messages, so equal conversations always
// produce identical bytes.
func Serialize(conv model.Conversation) ([]byte, error) {
	msgs := conv.Messages()
	if msgs == nil {
		msgs = []model.Message{}
	}
	return json.Marshal(msgs)
}

// Hydrate decodes a stored conversation.
//
// Each record is decoded and validated on its own. Records that fail, and
// records whose ID was already seen, are skipped and counted in dropped. An
// error is returned only when the outer document is not a JSON array; the
// returned conversation is then empty.
func Hydrate(data []byte) (conv model.Conversation, dropped int, err error) {
	if strings.TrimSpace(string(data)) == "" {
		return model.NewConversation(), 0, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return model.NewConversation(), 0, &PersistenceError{Op: "decode", Key: KeyChatHistory, Err: err}
	}

	seen := make(map[string]bool, len(records))
	msgs := make([]model.Message, 0, len(records))
	for _, raw := range records {
		msg, err := decodeMessage(raw)
		if err != nil || seen[msg.ID] {
			dropped++
			continue
		}
		seen[msg.ID] = true
		msgs = append(msgs, msg)
	}
	return model.NewConversation(msgs...), dropped, nil
}

func decodeMessage(raw json.RawMessage) (model.Message, error) {
	var msg model.Message
	if err := json.Unmarshal(raw, &msg); err != nil {
		return model.Message{}, err
	}
	if err := msg.Validate(); err != nil {
		return model.Message{}, fmt.Errorf("invalid message %q: %w", msg.ID, err)
	}
	msg.CreatedAt = msg.CreatedAt.UTC()
	if msg.Attachment != nil {
		msg.Attachment.PickedAt = msg.Attachment.PickedAt.UTC()
	}
	return msg, nil
}

// =============================================================================
// ATTACHMENT REGISTRY CODEC
// =============================================================================

// SerializeAttachments encodes the attachment registry.
func SerializeAttachments(atts []model.Attachment) ([]byte, error) {
	if atts == nil {
		atts = []model.Attachment{}
	}
	return json.Marshal(atts)
}

// HydrateAttachments decodes the attachment registry, skipping invalid records
// the same way Hydrate does.
func HydrateAttachments(data []byte) (atts []model.Attachment, dropped int, err error) {
	if strings.TrimSpace(string(data)) == "" {
		return nil, 0, nil
	}

	var records []json.RawMessage
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, 0, &PersistenceError{Op: "decode", Key: KeyUploadedFiles, Err: err}
	}

	seen := make(map[string]bool, len(records))
	for _, raw := range records {
		var att model.Attachment
		if err := json.Unmarshal(raw, &att); err != nil || att.Validate() != nil || seen[att.ID] {
			dropped++
			continue
		}
		seen[att.ID] = true
		att.PickedAt = att.PickedAt.UTC()
		atts = append(atts, att)
	}
	return atts, dropped, nil
}

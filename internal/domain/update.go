package domain

import (
	"bytes"
	"encoding/json"
)

// Update is the part of a Telegram webhook push the relay reads. Fields that
// are missing, null or of the wrong JSON type decode to their zero value
// instead of failing the whole update.
type Update struct {
	Message       *UpdateMessage
	EditedMessage *UpdateMessage
}

// UpdateMessage is a message or edited_message object.
type UpdateMessage struct {
	Chat *Chat
	Text string
}

// Chat identifies the conversation a message belongs to. ID is nil when the
// update did not carry a usable integer id.
type Chat struct {
	ID *int64
}

// NormalizedRequest is the request-scoped input to routing.
type NormalizedRequest struct {
	ChatID int64
	Text   string
}

// ParseUpdate decodes raw into an Update. Unparsable or empty input yields
// the empty Update.
func ParseUpdate(raw []byte) Update {
	var fields struct {
		Message       json.RawMessage `json:"message"`
		EditedMessage json.RawMessage `json:"edited_message"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return Update{}
	}
	return Update{
		Message:       parseMessage(fields.Message),
		EditedMessage: parseMessage(fields.EditedMessage),
	}
}

// Selected returns message when present, otherwise edited_message, otherwise
// an empty message.
func (u Update) Selected() UpdateMessage {
	if u.Message != nil {
		return *u.Message
	}
	if u.EditedMessage != nil {
		return *u.EditedMessage
	}
	return UpdateMessage{}
}

// ChatID returns the selected message's chat id, or false when absent.
func (m UpdateMessage) ChatID() (int64, bool) {
	if m.Chat == nil || m.Chat.ID == nil {
		return 0, false
	}
	return *m.Chat.ID, true
}

func parseMessage(raw json.RawMessage) *UpdateMessage {
	if !isObject(raw) {
		return nil
	}
	// An empty object counts as absent so edited_message can still be used.
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil || len(keys) == 0 {
		return nil
	}
	var fields struct {
		Chat json.RawMessage `json:"chat"`
		Text json.RawMessage `json:"text"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	msg := &UpdateMessage{Chat: parseChat(fields.Chat)}
	var text string
	if err := json.Unmarshal(fields.Text, &text); err == nil {
		msg.Text = text
	}
	return msg
}

func parseChat(raw json.RawMessage) *Chat {
	if !isObject(raw) {
		return nil
	}
	var fields struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	chat := &Chat{}
	var id int64
	if err := json.Unmarshal(fields.ID, &id); err == nil && id != 0 {
		chat.ID = &id
	}
	return chat
}

func isObject(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '{'
}

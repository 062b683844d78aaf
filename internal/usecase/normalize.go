package usecase

import (
	"bytes"
	"encoding/json"

	"campus-relay/internal/domain"
)

// Normalize extracts the chat id and text from a raw webhook body. The only
// failure is a missing chat id; a malformed body counts as an empty update
// and surfaces only as the wrapped cause of that failure.
func Normalize(raw []byte) (domain.NormalizedRequest, error) {
	msg := domain.ParseUpdate(raw).Selected()
	chatID, ok := msg.ChatID()
	if !ok {
		var cause error
		if len(bytes.TrimSpace(raw)) > 0 && !json.Valid(raw) {
			cause = newError(ErrorMalformedPayload, "invalid_json", nil)
		}
		return domain.NormalizedRequest{}, newError(ErrorNoChatID, "chat_id_missing", cause)
	}
	return domain.NormalizedRequest{ChatID: chatID, Text: msg.Text}, nil
}

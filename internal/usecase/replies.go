package usecase

import (
	"strings"

	"campus-relay/internal/domain"
)

const (
	greetingReply = "👋 Welcome to Campus AI!\n" +
		"I can chat, summarize notes, and share campus news.\n\n" +
		"Try:\n" +
		"• /note Photosynthesis is the process...\n" +
		"• /news\n" +
		"• Or just say hi."

	usageHintReply = "Send like: /note <your notes here>"
	summaryPrefix  = "📚 Summary:\n"

	disabledReply    = "AI mode is off right now. Add HF_API_KEY to enable smart replies."
	unavailableReply = "AI is a bit busy. Try again in a moment."
	networkReply     = "Network hiccup reaching the AI. Please try again."
	timeoutReply     = "The AI service is waking up. Please try again in a minute."
)

var newsItems = []string{
	"🎤 SU Press Night – Tue 5PM, Auditorium",
	"📚 Faculty of Science Seminar – Thu 12PM, LT1",
	"⚽ Inter-Faculty Final – Fri 4PM, Stadium",
}

func newsReply() string {
	var b strings.Builder
	b.WriteString("📰 Campus News:")
	for _, item := range newsItems {
		b.WriteString("\n• ")
		b.WriteString(item)
	}
	return b.String()
}

// FallbackText returns the fixed user-facing text for a degraded inference
// call. Every FailureKind maps to exactly one string.
func FallbackText(kind domain.FailureKind) string {
	switch kind {
	case domain.FailureDisabled:
		return disabledReply
	case domain.FailureUnavailable:
		return unavailableReply
	case domain.FailureTimeout:
		return timeoutReply
	default:
		return networkReply
	}
}

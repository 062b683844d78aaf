package usecase

import (
	"strings"
	"unicode"

	"campus-relay/internal/domain"
)

const (
	cmdStart = "/start"
	cmdNews  = "/news"
	cmdNote  = "/note "

	conversationFallbackText = "Hello"
)

var (
	staticInfoPhrases = []string{"campus news", "what's happening"}
	summarizePhrases  = []string{"summarize", "tl;dr"}

	apostrophes = strings.NewReplacer("’", "'", "‘", "'")
)

// Route classifies text. Commands are matched on the left-trimmed text,
// keywords anywhere in it; both case-insensitively. The first rule that
// matches wins: greeting, static info, summarize, conversation.
func Route(text string) domain.RouteDecision {
	lead := strings.TrimLeftFunc(text, unicode.IsSpace)
	low := apostrophes.Replace(strings.ToLower(text))

	if hasPrefixFold(lead, cmdStart) {
		return domain.RouteDecision{Kind: domain.RouteGreeting}
	}

	if hasPrefixFold(lead, cmdNews) || containsAny(low, staticInfoPhrases) {
		return domain.RouteDecision{Kind: domain.RouteStaticInfo}
	}

	if hasPrefixFold(lead, cmdNote) {
		raw := strings.TrimSpace(lead[len(cmdNote):])
		if raw == "" {
			return domain.RouteDecision{Kind: domain.RouteUsageHint}
		}
		return domain.RouteDecision{Kind: domain.RouteSummarize, Text: raw}
	}
	// A bare "/note" gets the usage hint too instead of being sent to the
	// model as conversation.
	if strings.EqualFold(strings.TrimSpace(lead), strings.TrimSpace(cmdNote)) {
		return domain.RouteDecision{Kind: domain.RouteUsageHint}
	}
	if containsAny(low, summarizePhrases) {
		return domain.RouteDecision{Kind: domain.RouteSummarize, Text: text}
	}

	if strings.TrimSpace(text) == "" {
		return domain.RouteDecision{Kind: domain.RouteConversation, Text: conversationFallbackText}
	}
	return domain.RouteDecision{Kind: domain.RouteConversation, Text: text}
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func containsAny(s string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(s, p) {
			return true
		}
	}
	return false
}

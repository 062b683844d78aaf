package domain

import "time"

// JournalEntry records the outcome of one processed update.
type JournalEntry struct {
	ChatID        int64
	CorrelationID string
	Route         RouteKind
	Failure       FailureKind
	Delivered     bool
	CreatedAt     time.Time
}

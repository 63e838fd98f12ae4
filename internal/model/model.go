// Package model defines the domain types used across the application.
package model

import "time"

// StoredTextLimit is the maximum number of runes of message text kept in a
// ForwardedMessage row. The dashboard applies its own, smaller display bound.
const StoredTextLimit = 1000

// ForwardedMessage records one message relayed from the source chat to the
// destination chat. Rows are written once and never updated.
type ForwardedMessage struct {
	ID              int64
	MessageID       int64 // platform-assigned message identifier
	SourceChat      string
	DestinationChat string
	MessageText     string
	HasMedia        bool
	MediaType       *string
	KeywordsMatched *string // comma-separated matched keywords
	ForwardedAt     time.Time
}

// Session records one run of the forwarder, from start to stop.
type Session struct {
	ID                int64
	SessionID         string
	SourceChat        string
	DestinationChat   string
	Keywords          *string // comma-separated configured keywords
	ForwardMedia      bool
	DelaySeconds      int
	StartedAt         time.Time
	StoppedAt         *time.Time
	IsActive          bool
	MessagesReceived  int64
	MessagesForwarded int64
	LastActivity      time.Time
}

// ErrorLog records one caught failure. The resolved flag is the only field
// an external actor is expected to change.
type ErrorLog struct {
	ID           int64
	SessionID    *string // nil for errors raised before a session exists
	ErrorType    string
	ErrorMessage string
	Detail       *string
	OccurredAt   time.Time
	Resolved     bool
}

// Stats holds the aggregate counts shown on the dashboard.
type Stats struct {
	TotalMessagesForwarded int64
	TotalSessions          int64
	ActiveSessions         int64
	TotalErrors            int64
	UnresolvedErrors       int64
	MessagesLast24h        int64
}

package domain

import "time"

// Snapshot is the persisted view of one host session.
type Snapshot struct {
	SessionID string    `json:"session_id"`
	URL       string    `json:"url"`
	Mounted   string    `json:"mounted,omitempty"`
	History   []string  `json:"history,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`

	// Sealed holds an encrypted copy of the snapshot. When set, URL, Mounted
	// and History are left empty.
	Sealed string `json:"sealed,omitempty"`
}

// NewSnapshot creates a snapshot for a session at the given URL.
func NewSnapshot(sessionID, url string) *Snapshot {
	return &Snapshot{
		SessionID: sessionID,
		URL:       url,
		History:   []string{url},
		UpdatedAt: time.Now(),
	}
}

// Outcome tells the caller what a navigation did.
type Outcome string

const (
	// OutcomeMounted means a different application is now mounted.
	OutcomeMounted Outcome = "mounted"
	// OutcomeDispatched means the mounted application kept the URL and received the event.
	OutcomeDispatched Outcome = "dispatched"
	// OutcomeUnchanged means the mounted application already owns the URL.
	OutcomeUnchanged Outcome = "unchanged"
	// OutcomeUnhandled means no application owns the URL; nothing changed.
	OutcomeUnhandled Outcome = "unhandled"
)

package model

import "time"

// PostingHistoryEntry is an append-only archive record written whenever a
// publish attempt reaches an outcome. Stored in MongoDB and used for
// per-platform statistics.
type PostingHistoryEntry struct {
	PostID       int64     `json:"post_id"       bson:"post_id"`
	OwnerID      string    `json:"owner_id"      bson:"owner_id"`
	Platform     string    `json:"platform"      bson:"platform"`
	Status       string    `json:"status"        bson:"status"`
	ErrorMessage *string   `json:"error_message,omitempty" bson:"error_message,omitempty"`
	Attempt      int       `json:"attempt"       bson:"attempt"`
	DurationMs   int64     `json:"duration_ms"   bson:"duration_ms"`
	PostedAt     time.Time `json:"posted_at"     bson:"posted_at"`
}

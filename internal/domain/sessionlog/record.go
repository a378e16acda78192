package sessionlog

import (
	"context"
	"time"
)

// SessionRecord is one completed workflow session in the append-only log.
type SessionRecord struct {
	ID          string    `gorm:"type:varchar(40);primaryKey" json:"sessionId"`
	StartedAt   time.Time `gorm:"not null" json:"startTime"`
	EndedAt     time.Time `json:"endTime"`
	Description string    `gorm:"type:varchar(200);not null" json:"description"`
	Reference   string    `gorm:"type:varchar(50);not null;index" json:"reference"`
	Price       int64     `gorm:"not null" json:"price"`
	Published   bool      `gorm:"not null;default:false" json:"submitSuccess"`

	// FinalResponses is the JSON-encoded per-branch response map at the time
	// the session ended.
	FinalResponses string `gorm:"type:text" json:"finalResponses"`

	History []ChatEntry `gorm:"foreignKey:SessionRecordID" json:"chatHistory"`
}

// TableName returns the table name for GORM
func (SessionRecord) TableName() string {
	return "session_records"
}

// ChatEntry is one inbound chat message captured while a session was open.
type ChatEntry struct {
	ID              uint      `gorm:"primaryKey;autoIncrement" json:"-"`
	SessionRecordID string    `gorm:"type:varchar(40);not null;index" json:"-"`
	AuthorID        string    `gorm:"type:varchar(100);not null" json:"authorId"`
	AuthorName      string    `gorm:"type:varchar(100);not null" json:"authorName"`
	Timestamp       time.Time `gorm:"not null" json:"timestamp"`
	Body            string    `gorm:"type:text" json:"body"`
}

// TableName returns the table name for GORM
func (ChatEntry) TableName() string {
	return "session_chat_entries"
}

// Repository is the append-only persistence port for session records.
type Repository interface {
	// Append stores a finished session record with its chat history.
	// Records are never updated or deleted afterwards.
	Append(ctx context.Context, record *SessionRecord) error
	// CountPublished returns how many already-published sessions used the
	// given raw reference. Drives the REFvN publish-time disambiguation.
	CountPublished(ctx context.Context, reference string) (int64, error)
	// Recent returns up to limit records, newest first, history included.
	Recent(ctx context.Context, limit int) ([]SessionRecord, error)
}

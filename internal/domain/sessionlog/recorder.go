package sessionlog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/vitrina/stockbot/internal/domain/intake"
)

// Recorder keeps the log record for the currently open session and persists
// it once the session ends. It is a passive observer: it never drives the
// workflow, and every method is a no-op when no session is open.
//
// The workflow service serializes all calls, so the Recorder needs no lock.
type Recorder struct {
	repo   Repository
	logger *zap.Logger

	open *SessionRecord
}

// NewRecorder creates a session recorder backed by the given repository.
func NewRecorder(repo Repository, logger *zap.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Start opens a new log record for a session initiated by the given host
// post. Only one record may be open; a second Start replaces the unfinished
// record, which matches the workflow's single-session invariant.
func (r *Recorder) Start(post intake.ParsedHostPost) {
	now := time.Now()
	r.open = &SessionRecord{
		ID:          fmt.Sprintf("product_%d", now.UnixMilli()),
		StartedAt:   now,
		Description: post.Description,
		Reference:   post.Reference,
		Price:       post.Price,
	}
	r.logger.Info("session log opened",
		zap.String("session_id", r.open.ID),
		zap.String("reference", post.Reference),
	)
}

// Append adds an inbound message to the open record's chat history.
func (r *Recorder) Append(authorID, authorName, body string) {
	if r.open == nil {
		return
	}
	r.open.History = append(r.open.History, ChatEntry{
		AuthorID:   authorID,
		AuthorName: authorName,
		Timestamp:  time.Now(),
		Body:       body,
	})
}

// End stamps the outcome on the open record, appends it to the persisted log
// and clears the open record. Calling End with no open session is a no-op, so
// a double End never writes a duplicate record.
func (r *Recorder) End(ctx context.Context, published bool, finalResponses map[string]intake.BranchResponse) {
	if r.open == nil {
		return
	}
	record := r.open
	r.open = nil

	record.EndedAt = time.Now()
	record.Published = published
	if encoded, err := json.Marshal(finalResponses); err == nil {
		record.FinalResponses = string(encoded)
	}

	if err := r.repo.Append(ctx, record); err != nil {
		r.logger.Error("failed to persist session record",
			zap.String("session_id", record.ID),
			zap.Error(err),
		)
		return
	}
	r.logger.Info("session log closed",
		zap.String("session_id", record.ID),
		zap.Bool("published", published),
	)
}

// OpenID returns the id of the open record, or "" when none is open.
func (r *Recorder) OpenID() string {
	if r.open == nil {
		return ""
	}
	return r.open.ID
}

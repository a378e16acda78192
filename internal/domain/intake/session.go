package intake

import (
	"time"

	"github.com/google/uuid"

	"github.com/vitrina/stockbot/internal/domain/integration"
	"github.com/vitrina/stockbot/internal/domain/shared"
)

// BranchResponse is one branch's current submission: either a list of variant
// tokens or the no-stock sentinel. Empty means the branch has not answered.
type BranchResponse struct {
	Variants []VariantToken
	NoStock  bool
}

// Answered reports whether the branch has submitted anything yet.
func (r BranchResponse) Answered() bool {
	return r.NoStock || len(r.Variants) > 0
}

// Session is the single in-flight product-intake workflow. At most one
// instance exists process-wide; the workflow service owns it and serializes
// all access.
type Session struct {
	ID            uuid.UUID
	Product       ParsedHostPost
	Category      string
	ValidVariants []string
	Media         integration.MediaPayload
	StartedAt     time.Time

	branches      []string
	responses     map[string]BranchResponse
	confirmations map[string]bool

	// SummaryMessageID is the chat id of the last posted summary, empty until
	// the first summary goes out.
	SummaryMessageID string
}

// NewSession creates a session for the given host post. branches is the fixed
// ordered set of target branch identities; responses and confirmations are
// keyed by exactly that set.
func NewSession(post ParsedHostPost, category string, validVariants []string, media integration.MediaPayload, branches []string) *Session {
	s := &Session{
		ID:            uuid.New(),
		Product:       post,
		Category:      category,
		ValidVariants: validVariants,
		Media:         media,
		StartedAt:     time.Now(),
		branches:      append([]string(nil), branches...),
		responses:     make(map[string]BranchResponse, len(branches)),
		confirmations: make(map[string]bool, len(branches)),
	}
	for _, b := range branches {
		s.responses[b] = BranchResponse{}
		s.confirmations[b] = false
	}
	return s
}

// Branches returns the fixed ordered target branch identities.
func (s *Session) Branches() []string {
	return s.branches
}

// IsBranch reports whether the identity is one of the target branches.
func (s *Session) IsBranch(id string) bool {
	_, ok := s.responses[id]
	return ok
}

// Response returns the branch's current submission.
func (s *Session) Response(branchID string) BranchResponse {
	return s.responses[branchID]
}

// SetResponse replaces the branch's submission with the given variants.
// Resubmission overwrites, it never appends.
func (s *Session) SetResponse(branchID string, variants []VariantToken) error {
	if !s.IsBranch(branchID) {
		return shared.ErrUnknownBranch
	}
	s.responses[branchID] = BranchResponse{Variants: append([]VariantToken(nil), variants...)}
	return nil
}

// SetNoStock records the no-stock sentinel for the branch.
func (s *Session) SetNoStock(branchID string) error {
	if !s.IsBranch(branchID) {
		return shared.ErrUnknownBranch
	}
	s.responses[branchID] = BranchResponse{NoStock: true}
	return nil
}

// AllResponded reports whether every branch has a non-empty entry.
func (s *Session) AllResponded() bool {
	for _, b := range s.branches {
		if !s.responses[b].Answered() {
			return false
		}
	}
	return true
}

// Confirm marks the branch as confirmed. Confirmation is only meaningful once
// a summary has been posted.
func (s *Session) Confirm(branchID string) error {
	if !s.IsBranch(branchID) {
		return shared.ErrUnknownBranch
	}
	if s.SummaryMessageID == "" {
		return shared.ErrNotConfirmable
	}
	s.confirmations[branchID] = true
	return nil
}

// Confirmed reports whether the branch has confirmed the current summary.
func (s *Session) Confirmed(branchID string) bool {
	return s.confirmations[branchID]
}

// AllConfirmed reports whether every branch has confirmed.
func (s *Session) AllConfirmed() bool {
	for _, b := range s.branches {
		if !s.confirmations[b] {
			return false
		}
	}
	return true
}

// ResetConfirmations clears every confirmation. Called when any branch's
// response changes after a summary exists, so stale approvals never carry
// over to data a branch has not seen.
func (s *Session) ResetConfirmations() {
	for _, b := range s.branches {
		s.confirmations[b] = false
	}
}

// CanFinalize reports whether the finalize transition is legal: every branch
// answered and every branch confirmed.
func (s *Session) CanFinalize() bool {
	return s.AllResponded() && s.AllConfirmed()
}

// PublishVariants flattens the responses into ordered (branch, size, stock)
// triples, skipping no-stock branches. Branch order follows the fixed target
// set, token order follows each submission.
func (s *Session) PublishVariants() []integration.VariantStock {
	var out []integration.VariantStock
	for _, b := range s.branches {
		resp := s.responses[b]
		if resp.NoStock {
			continue
		}
		for _, v := range resp.Variants {
			out = append(out, integration.VariantStock{BranchID: b, Size: v.Size, Stock: v.Stock})
		}
	}
	return out
}

// ResponseSnapshot returns a copy of the responses map for logging.
func (s *Session) ResponseSnapshot() map[string]BranchResponse {
	snap := make(map[string]BranchResponse, len(s.responses))
	for k, v := range s.responses {
		snap[k] = v
	}
	return snap
}

package intake

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/text/message"

	"github.com/vitrina/stockbot/internal/domain/intake"
	"github.com/vitrina/stockbot/internal/domain/integration"
	"github.com/vitrina/stockbot/internal/domain/sessionlog"
	"github.com/vitrina/stockbot/internal/infrastructure/telemetry"
)

// State is the workflow's externally visible state.
type State string

const (
	StateWaitingForHost       State = "WAITING_FOR_HOST"
	StateCollectingResponses  State = "COLLECTING_RESPONSES"
	StateAwaitingConfirmation State = "AWAITING_CONFIRMATION"
)

// Branch binds a chat identity to its display name.
type Branch struct {
	ID   string
	Name string
}

// Options configures the workflow service.
type Options struct {
	GroupID  string
	HostID   string
	Branches []Branch
}

// Service is the workflow state machine. It owns the single active session
// and serializes every inbound message: the mutex guarantees no two messages
// mutate the session concurrently, which the single-session invariant
// depends on. Handling runs to completion, outbound calls included, before
// the next message is processed.
type Service struct {
	mu sync.Mutex

	opts        Options
	branchIDs   []string
	branchNames map[string]string

	rules     *intake.Rules
	transport integration.ChatTransport
	publisher integration.Publisher
	recorder  *sessionlog.Recorder
	logRepo   sessionlog.Repository
	logger    *zap.Logger
	metrics   *telemetry.Metrics
	printer   *message.Printer

	session *intake.Session
}

// NewService creates the workflow service in the waiting state.
func NewService(
	opts Options,
	rules *intake.Rules,
	transport integration.ChatTransport,
	publisher integration.Publisher,
	recorder *sessionlog.Recorder,
	logRepo sessionlog.Repository,
	logger *zap.Logger,
	metrics *telemetry.Metrics,
) *Service {
	branchIDs := make([]string, len(opts.Branches))
	branchNames := make(map[string]string, len(opts.Branches))
	for i, b := range opts.Branches {
		branchIDs[i] = b.ID
		branchNames[b.ID] = b.Name
	}
	return &Service{
		opts:        opts,
		branchIDs:   branchIDs,
		branchNames: branchNames,
		rules:       rules,
		transport:   transport,
		publisher:   publisher,
		recorder:    recorder,
		logRepo:     logRepo,
		logger:      logger.Named("workflow"),
		metrics:     metrics,
		printer:     newPricePrinter(),
	}
}

// State returns the current workflow state.
func (s *Service) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Service) stateLocked() State {
	switch {
	case s.session == nil:
		return StateWaitingForHost
	case s.session.SummaryMessageID == "":
		return StateCollectingResponses
	default:
		return StateAwaitingConfirmation
	}
}

// Start announces the bot and enters the host wait loop.
func (s *Service) Start(ctx context.Context) error {
	if _, err := s.transport.SendMessage(ctx, s.opts.GroupID, listeningNotice); err != nil {
		return err
	}
	s.sendWaitLoop(ctx)
	return nil
}

// Stop announces shutdown. Best effort.
func (s *Service) Stop(ctx context.Context) {
	if _, err := s.transport.SendMessage(ctx, s.opts.GroupID, shutdownNotice); err != nil {
		s.logger.Warn("failed to send shutdown notice", zap.Error(err))
	}
}

// HandleMessage consumes one inbound chat message and runs it to completion.
// No transport or publisher failure escapes: every terminal outcome is logged
// and the machine always lands back in a well-defined state.
func (s *Service) HandleMessage(ctx context.Context, msg integration.IncomingMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if msg.ChatID() != s.opts.GroupID {
		return
	}
	if t := msg.Type(); t != integration.MessageTypeChat && t != integration.MessageTypeImage {
		return
	}

	if err := msg.React(ctx, "👍"); err != nil {
		s.logger.Debug("could not react to message", zap.Error(err))
	}

	author := msg.Author()
	if s.session != nil {
		s.recorder.Append(author, s.displayName(author), msg.Body())
	}

	if author == s.opts.HostID {
		s.handleHostMessage(ctx, msg)
		return
	}
	if s.session != nil && s.session.IsBranch(author) {
		s.handleBranchMessage(ctx, msg)
	}
}

func (s *Service) handleHostMessage(ctx context.Context, msg integration.IncomingMessage) {
	body := msg.Body()

	if intake.IsCancel(body) && s.session != nil {
		s.cancelSession(ctx, "El anfitrión canceló el proceso.")
		return
	}

	if s.session != nil {
		// A second product post while a session is live is ignored; the host
		// must cancel first.
		return
	}
	if !msg.HasMedia() {
		return
	}

	post, ok := intake.ParseHostPost(body)
	if !ok {
		s.send(ctx, formatErrorNotice)
		return
	}

	media, err := msg.DownloadMedia(ctx)
	if err != nil {
		s.logger.Warn("failed to download product image", zap.Error(err))
	}

	category := s.rules.DetectCategory(post.Description)
	validVariants := s.rules.ValidVariantsFor(category)
	s.session = intake.NewSession(post, category, validVariants, media, s.branchIDs)

	s.recorder.Start(post)
	s.recorder.Append(msg.Author(), "Host", body)
	s.metrics.SessionsStarted.Inc()

	s.logger.Info("session started",
		zap.String("session_id", s.session.ID.String()),
		zap.String("reference", post.Reference),
		zap.String("category", category),
	)

	s.send(ctx, s.instructionsMessage(post, s.rules.SyntaxExample(category)))
}

func (s *Service) handleBranchMessage(ctx context.Context, msg integration.IncomingMessage) {
	author := msg.Author()
	body := msg.Body()

	if intake.IsConfirmation(body) {
		if err := s.session.Confirm(author); err != nil {
			// Confirmation before any summary exists is silently ignored,
			// matching the reference behavior.
			return
		}
		s.logger.Info("branch confirmed", zap.String("branch", s.displayName(author)))
		if s.session.AllConfirmed() {
			s.finalize(ctx)
		}
		return
	}

	if intake.IsNoStock(body) {
		_ = s.session.SetNoStock(author)
	} else {
		accepted, rejected := intake.ParseVariantLine(body, s.session.ValidVariants)
		if len(rejected) > 0 {
			// All-or-nothing: the submission is discarded and the branch's
			// prior entry stays untouched.
			if err := msg.React(ctx, "😵"); err != nil {
				s.logger.Debug("could not react to message", zap.Error(err))
			}
			s.send(ctx, invalidTokensMessage(rejected))
			return
		}
		if len(accepted) == 0 {
			return
		}
		_ = s.session.SetResponse(author, accepted)
	}

	s.logger.Info("branch submitted stock", zap.String("branch", s.displayName(author)))

	// A correction after the summary was posted invalidates every prior
	// confirmation; all branches must approve the new summary.
	if s.session.SummaryMessageID != "" {
		s.session.ResetConfirmations()
	}

	if s.session.AllResponded() {
		s.postOrEditSummary(ctx)
	}
}

// postOrEditSummary renders the summary and edits the prior summary message
// in place. When no summary exists yet, or the edit fails because the message
// is too old or gone, it posts a fresh one and records its id.
func (s *Service) postOrEditSummary(ctx context.Context) {
	text := s.summaryMessage(s.session)

	if id := s.session.SummaryMessageID; id != "" {
		err := s.transport.EditMessage(ctx, id, text)
		if err == nil {
			return
		}
		s.logger.Warn("summary edit failed, posting a new one", zap.Error(err))
	}

	sent, err := s.transport.SendMessage(ctx, s.opts.GroupID, text)
	if err != nil {
		s.logger.Error("failed to post summary", zap.Error(err))
		return
	}
	s.session.SummaryMessageID = sent.ID
}

// finalize publishes the confirmed session. Either outcome closes the log
// record and returns the machine to the waiting state.
func (s *Service) finalize(ctx context.Context) {
	session := s.session
	pub := &integration.ProductPublication{
		Description: session.Product.Description,
		Reference:   s.versionedReference(ctx, session.Product.Reference),
		Price:       session.Product.Price,
		Category:    session.Category,
		Media:       session.Media,
		Variants:    session.PublishVariants(),
	}

	s.logger.Info("finalizing session",
		zap.String("session_id", session.ID.String()),
		zap.String("reference", pub.Reference),
		zap.Int("variants", len(pub.Variants)),
	)

	err := s.publisher.Publish(ctx, pub)
	published := err == nil

	s.recorder.End(ctx, published, session.ResponseSnapshot())

	if published {
		s.metrics.SessionsPublished.Inc()
		s.send(ctx, publishSuccessNotice(session.Product.Description, session.Product.Reference))
	} else {
		s.metrics.SessionsFailed.Inc()
		s.logger.Error("publish failed", zap.Error(err))
		s.send(ctx, publishFailureNotice)
	}

	s.session = nil
	s.sendWaitLoop(ctx)
}

// cancelSession destroys the session, logs it as unsuccessful and re-enters
// the wait state.
func (s *Service) cancelSession(ctx context.Context, reason string) {
	s.logger.Info("session cancelled",
		zap.String("session_id", s.session.ID.String()),
		zap.String("reason", reason),
	)
	s.recorder.End(ctx, false, s.session.ResponseSnapshot())
	s.metrics.SessionsCancelled.Inc()
	s.session = nil

	s.send(ctx, cancelNotice(reason))
	s.sendWaitLoop(ctx)
}

// versionedReference suffixes the raw reference with vN when N-1 published
// sessions already used it, so repeated references produce distinct SKUs.
func (s *Service) versionedReference(ctx context.Context, reference string) string {
	count, err := s.logRepo.CountPublished(ctx, reference)
	if err != nil {
		s.logger.Warn("could not count prior publishes, keeping raw reference", zap.Error(err))
		return reference
	}
	if count == 0 {
		return reference
	}
	return fmt.Sprintf("%sv%d", reference, count+1)
}

func (s *Service) sendWaitLoop(ctx context.Context) {
	text := waitLoopMessage(s.opts.HostID)
	if _, err := s.transport.SendMessageWithMention(ctx, s.opts.GroupID, text, s.opts.HostID); err != nil {
		s.logger.Error("failed to send wait message", zap.Error(err))
	}
}

func (s *Service) send(ctx context.Context, text string) {
	if _, err := s.transport.SendMessage(ctx, s.opts.GroupID, text); err != nil {
		s.logger.Error("failed to send message", zap.Error(err))
	}
}

func (s *Service) displayName(id string) string {
	if name, ok := s.branchNames[id]; ok {
		return name
	}
	if id == s.opts.HostID {
		return "Host"
	}
	return "Unknown"
}

// Snapshot is a read-only view of the workflow for the status server.
type Snapshot struct {
	State     State            `json:"state"`
	SessionID string           `json:"sessionId,omitempty"`
	Reference string           `json:"reference,omitempty"`
	Category  string           `json:"category,omitempty"`
	Branches  []BranchSnapshot `json:"branches,omitempty"`
}

// BranchSnapshot is one branch's progress in the active session.
type BranchSnapshot struct {
	Name      string `json:"name"`
	Answered  bool   `json:"answered"`
	NoStock   bool   `json:"noStock"`
	Confirmed bool   `json:"confirmed"`
}

// Snapshot returns the current workflow state and session progress.
func (s *Service) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{State: s.stateLocked()}
	if s.session == nil {
		return snap
	}

	snap.SessionID = s.session.ID.String()
	snap.Reference = s.session.Product.Reference
	snap.Category = s.session.Category
	for _, id := range s.session.Branches() {
		resp := s.session.Response(id)
		snap.Branches = append(snap.Branches, BranchSnapshot{
			Name:      s.branchNames[id],
			Answered:  resp.Answered(),
			NoStock:   resp.NoStock,
			Confirmed: s.session.Confirmed(id),
		})
	}
	return snap
}

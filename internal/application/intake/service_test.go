package intake

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vitrina/stockbot/internal/domain/intake"
	"github.com/vitrina/stockbot/internal/domain/integration"
	"github.com/vitrina/stockbot/internal/domain/sessionlog"
	"github.com/vitrina/stockbot/internal/infrastructure/telemetry"
)

const (
	testGroupID = "group-1"
	testHostID  = "host-1@c.us"
)

type sentText struct {
	ID   string
	Text string
}

type fakeTransport struct {
	sent     []sentText
	edits    []sentText
	failEdit bool
	nextID   int
}

func (f *fakeTransport) SendMessage(_ context.Context, _, text string) (integration.SentMessage, error) {
	f.nextID++
	msg := sentText{ID: fmt.Sprintf("sent-%d", f.nextID), Text: text}
	f.sent = append(f.sent, msg)
	return integration.SentMessage{ID: msg.ID}, nil
}

func (f *fakeTransport) SendMessageWithMention(ctx context.Context, chatID, text, _ string) (integration.SentMessage, error) {
	return f.SendMessage(ctx, chatID, text)
}

func (f *fakeTransport) EditMessage(_ context.Context, messageID, text string) error {
	if f.failEdit {
		return integration.ErrMessageNotEditable
	}
	f.edits = append(f.edits, sentText{ID: messageID, Text: text})
	return nil
}

func (f *fakeTransport) lastSent() string {
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

func (f *fakeTransport) sentContaining(substr string) []sentText {
	var out []sentText
	for _, m := range f.sent {
		if strings.Contains(m.Text, substr) {
			out = append(out, m)
		}
	}
	return out
}

type fakePublisher struct {
	publications []*integration.ProductPublication
	err          error
}

func (f *fakePublisher) Publish(_ context.Context, pub *integration.ProductPublication) error {
	f.publications = append(f.publications, pub)
	return f.err
}

type fakeLogRepo struct {
	records        []*sessionlog.SessionRecord
	publishedCount int64
}

func (f *fakeLogRepo) Append(_ context.Context, record *sessionlog.SessionRecord) error {
	f.records = append(f.records, record)
	return nil
}

func (f *fakeLogRepo) CountPublished(context.Context, string) (int64, error) {
	return f.publishedCount, nil
}

func (f *fakeLogRepo) Recent(context.Context, int) ([]sessionlog.SessionRecord, error) {
	return nil, nil
}

type fakeMessage struct {
	Sender    string
	Text      string
	Media     *integration.MediaPayload
	chat      string
	reactions []string
}

func (m *fakeMessage) ID() string     { return "msg-1" }
func (m *fakeMessage) ChatID() string { return m.chat }
func (m *fakeMessage) Author() string { return m.Sender }
func (m *fakeMessage) Body() string   { return m.Text }

func (m *fakeMessage) Type() integration.MessageType {
	if m.Media != nil {
		return integration.MessageTypeImage
	}
	return integration.MessageTypeChat
}

func (m *fakeMessage) HasMedia() bool { return m.Media != nil }

func (m *fakeMessage) React(_ context.Context, emoji string) error {
	m.reactions = append(m.reactions, emoji)
	return nil
}

func (m *fakeMessage) DownloadMedia(context.Context) (integration.MediaPayload, error) {
	if m.Media == nil {
		return integration.MediaPayload{}, integration.ErrMediaUnavailable
	}
	return *m.Media, nil
}

type testHarness struct {
	service   *Service
	transport *fakeTransport
	publisher *fakePublisher
	repo      *fakeLogRepo
}

func newTestHarness(t *testing.T) *testHarness {
	t.Helper()
	transport := &fakeTransport{}
	publisher := &fakePublisher{}
	repo := &fakeLogRepo{}

	service := NewService(
		Options{
			GroupID: testGroupID,
			HostID:  testHostID,
			Branches: []Branch{
				{ID: "branch-c1", Name: "Copacabana 1"},
				{ID: "branch-c2", Name: "Copacabana 2"},
				{ID: "branch-m3", Name: "Medellín 1"},
			},
		},
		intake.NewRules(intake.DefaultNumericBase),
		transport,
		publisher,
		sessionlog.NewRecorder(repo, zap.NewNop()),
		repo,
		zap.NewNop(),
		telemetry.NewNopMetrics(),
	)
	return &testHarness{service: service, transport: transport, publisher: publisher, repo: repo}
}

func (h *testHarness) deliver(author, text string) *fakeMessage {
	msg := &fakeMessage{Sender: author, Text: text, chat: testGroupID}
	h.service.HandleMessage(context.Background(), msg)
	return msg
}

func (h *testHarness) deliverHostPost(text string) *fakeMessage {
	msg := &fakeMessage{
		Sender: testHostID,
		Text:   text,
		chat:   testGroupID,
		Media:  &integration.MediaPayload{Data: []byte{0xff, 0xd8, 0xff}, MimeType: "image/jpeg"},
	}
	h.service.HandleMessage(context.Background(), msg)
	return msg
}

func TestHandleMessage_FullFlow(t *testing.T) {
	h := newTestHarness(t)

	h.deliverHostPost("Tenis urbanos #55 - 89.000")
	assert.Equal(t, StateCollectingResponses, h.service.State())
	assert.Contains(t, h.transport.lastSent(), "#55")

	h.deliver("branch-c1", "38 39:2")
	h.deliver("branch-c2", "referencia libre")
	assert.Equal(t, StateCollectingResponses, h.service.State())

	h.deliver("branch-m3", "40")
	require.Equal(t, StateAwaitingConfirmation, h.service.State())

	summaries := h.transport.sentContaining("Resumen de Producto")
	require.Len(t, summaries, 1)
	assert.Contains(t, summaries[0].Text, "Copacabana 1: 38(1), 39(2)")
	assert.Contains(t, summaries[0].Text, "Copacabana 2: Referencia Libre")
	assert.Contains(t, summaries[0].Text, "Medellín 1: 40(1)")

	h.deliver("branch-c1", "👍")
	h.deliver("branch-c2", "👍🏽")
	assert.Empty(t, h.publisher.publications)

	h.deliver("branch-m3", "👍🏿")
	require.Len(t, h.publisher.publications, 1)
	pub := h.publisher.publications[0]
	assert.Equal(t, "Tenis urbanos", pub.Description)
	assert.Equal(t, "55", pub.Reference)
	assert.Equal(t, int64(89000), pub.Price)
	assert.Equal(t, "teni", pub.Category)
	assert.Equal(t, []integration.VariantStock{
		{BranchID: "branch-c1", Size: "38", Stock: 1},
		{BranchID: "branch-c1", Size: "39", Stock: 2},
		{BranchID: "branch-m3", Size: "40", Stock: 1},
	}, pub.Variants)

	assert.Equal(t, StateWaitingForHost, h.service.State())
	assert.NotEmpty(t, h.transport.sentContaining("¡Todo confirmado!"))

	require.Len(t, h.repo.records, 1)
	assert.True(t, h.repo.records[0].Published)
	assert.Equal(t, "55", h.repo.records[0].Reference)
}

func TestHandleMessage_HostPostValidation(t *testing.T) {
	t.Run("malformed post with image gets a format notice", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliverHostPost("esto no es un producto")
		assert.Equal(t, StateWaitingForHost, h.service.State())
		assert.Contains(t, h.transport.lastSent(), "Formato de mensaje incorrecto")
	})

	t.Run("post without image is ignored", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliver(testHostID, "Tenis urbanos #55 - 89000")
		assert.Equal(t, StateWaitingForHost, h.service.State())
		assert.Empty(t, h.transport.sent)
	})

	t.Run("second post during an active session is ignored", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliverHostPost("Tenis urbanos #55 - 89000")
		h.deliverHostPost("Botines #678 - 150000")

		snap := h.service.Snapshot()
		assert.Equal(t, "55", snap.Reference)
	})

	t.Run("messages from another chat are ignored", func(t *testing.T) {
		h := newTestHarness(t)
		msg := &fakeMessage{Sender: testHostID, Text: "Tenis #55 - 89000", chat: "otro-grupo",
			Media: &integration.MediaPayload{Data: []byte{1}}}
		h.service.HandleMessage(context.Background(), msg)
		assert.Equal(t, StateWaitingForHost, h.service.State())
		assert.Empty(t, msg.reactions)
	})
}

func TestHandleMessage_BranchSubmissions(t *testing.T) {
	t.Run("invalid tokens discard the whole submission", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliverHostPost("Tenis urbanos #55 - 89000")

		msg := h.deliver("branch-c1", "38 99")
		assert.Contains(t, msg.reactions, "😵")
		assert.Contains(t, h.transport.lastSent(), "Entrada inválida: *99*")

		snap := h.service.Snapshot()
		assert.False(t, snap.Branches[0].Answered)
	})

	t.Run("resubmission overwrites before the summary", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliverHostPost("Tenis urbanos #55 - 89000")

		h.deliver("branch-c1", "38")
		h.deliver("branch-c1", "referencia libre")

		snap := h.service.Snapshot()
		assert.True(t, snap.Branches[0].NoStock)
	})

	t.Run("unknown senders are ignored", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliverHostPost("Tenis urbanos #55 - 89000")
		h.deliver("curioso", "38 39")

		snap := h.service.Snapshot()
		for _, b := range snap.Branches {
			assert.False(t, b.Answered)
		}
	})

	t.Run("confirmation before any summary is ignored", func(t *testing.T) {
		h := newTestHarness(t)
		h.deliverHostPost("Tenis urbanos #55 - 89000")
		h.deliver("branch-c1", "👍")

		snap := h.service.Snapshot()
		assert.False(t, snap.Branches[0].Confirmed)
		assert.Empty(t, h.publisher.publications)
	})
}

func TestHandleMessage_LateCorrectionResetsConfirmations(t *testing.T) {
	h := newTestHarness(t)
	h.deliverHostPost("Tenis urbanos #55 - 89000")
	h.deliver("branch-c1", "38")
	h.deliver("branch-c2", "39")
	h.deliver("branch-m3", "40")
	require.Equal(t, StateAwaitingConfirmation, h.service.State())

	h.deliver("branch-c1", "👍")
	h.deliver("branch-c2", "👍")

	// A correction arrives after two branches already approved.
	h.deliver("branch-m3", "41:2")
	require.Len(t, h.transport.edits, 1)
	assert.Contains(t, h.transport.edits[0].Text, "Medellín 1: 41(2)")

	snap := h.service.Snapshot()
	for _, b := range snap.Branches {
		assert.False(t, b.Confirmed, b.Name)
	}

	// The two stale approvals alone no longer finalize.
	h.deliver("branch-c1", "👍")
	h.deliver("branch-c2", "👍")
	assert.Empty(t, h.publisher.publications)

	h.deliver("branch-m3", "👍")
	require.Len(t, h.publisher.publications, 1)
	assert.Equal(t, []integration.VariantStock{
		{BranchID: "branch-c1", Size: "38", Stock: 1},
		{BranchID: "branch-c2", Size: "39", Stock: 1},
		{BranchID: "branch-m3", Size: "41", Stock: 2},
	}, h.publisher.publications[0].Variants)
}

func TestHandleMessage_SummaryEditFallback(t *testing.T) {
	h := newTestHarness(t)
	h.deliverHostPost("Tenis urbanos #55 - 89000")
	h.deliver("branch-c1", "38")
	h.deliver("branch-c2", "39")
	h.deliver("branch-m3", "40")

	h.transport.failEdit = true
	h.deliver("branch-c1", "37")

	summaries := h.transport.sentContaining("Resumen de Producto")
	require.Len(t, summaries, 2)
	assert.Contains(t, summaries[1].Text, "Copacabana 1: 37(1)")
	assert.Equal(t, StateAwaitingConfirmation, h.service.State())
}

func TestHandleMessage_Cancel(t *testing.T) {
	h := newTestHarness(t)
	h.deliverHostPost("Tenis urbanos #55 - 89000")
	h.deliver("branch-c1", "38")

	h.deliver(testHostID, "✖️")
	assert.Equal(t, StateWaitingForHost, h.service.State())
	assert.NotEmpty(t, h.transport.sentContaining("Proceso cancelado"))

	require.Len(t, h.repo.records, 1)
	assert.False(t, h.repo.records[0].Published)
	assert.Empty(t, h.publisher.publications)

	// Cancel outside a session does nothing.
	h.deliver(testHostID, "✖️")
	assert.Len(t, h.repo.records, 1)
}

func TestHandleMessage_PublishFailure(t *testing.T) {
	h := newTestHarness(t)
	h.publisher.err = errors.New("backend down")

	h.deliverHostPost("Tenis urbanos #55 - 89000")
	for _, branch := range []string{"branch-c1", "branch-c2", "branch-m3"} {
		h.deliver(branch, "38")
	}
	for _, branch := range []string{"branch-c1", "branch-c2", "branch-m3"} {
		h.deliver(branch, "👍")
	}

	assert.Equal(t, StateWaitingForHost, h.service.State())
	assert.NotEmpty(t, h.transport.sentContaining("Ocurrió un error"))
	require.Len(t, h.repo.records, 1)
	assert.False(t, h.repo.records[0].Published)
}

func TestHandleMessage_VersionedReference(t *testing.T) {
	h := newTestHarness(t)
	h.repo.publishedCount = 1

	h.deliverHostPost("Tenis urbanos #55 - 89000")
	for _, branch := range []string{"branch-c1", "branch-c2", "branch-m3"} {
		h.deliver(branch, "38")
	}
	for _, branch := range []string{"branch-c1", "branch-c2", "branch-m3"} {
		h.deliver(branch, "👍")
	}

	require.Len(t, h.publisher.publications, 1)
	assert.Equal(t, "55v2", h.publisher.publications[0].Reference)
	// The chat announcement keeps the reference the group knows.
	assert.NotEmpty(t, h.transport.sentContaining("#55\""))
}

func TestStartAndStop(t *testing.T) {
	h := newTestHarness(t)
	require.NoError(t, h.service.Start(context.Background()))
	assert.Contains(t, h.transport.sent[0].Text, "Bot escuchando")
	assert.Contains(t, h.transport.sent[1].Text, "Esperando al anfitrión")

	h.service.Stop(context.Background())
	assert.Contains(t, h.transport.lastSent(), "apagándose")
}

func TestSnapshot(t *testing.T) {
	h := newTestHarness(t)
	assert.Equal(t, Snapshot{State: StateWaitingForHost}, h.service.Snapshot())

	h.deliverHostPost("Tenis urbanos #55 - 89000")
	h.deliver("branch-c2", "referencia libre")

	snap := h.service.Snapshot()
	assert.Equal(t, StateCollectingResponses, snap.State)
	assert.Equal(t, "55", snap.Reference)
	assert.Equal(t, "teni", snap.Category)
	require.Len(t, snap.Branches, 3)
	assert.Equal(t, "Copacabana 2", snap.Branches[1].Name)
	assert.True(t, snap.Branches[1].NoStock)
	assert.False(t, snap.Branches[0].Answered)
}

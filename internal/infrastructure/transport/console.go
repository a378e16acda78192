// Package transport provides chat transport adapters. The production
// WhatsApp client lives outside this repository and is consumed through the
// integration.ChatTransport contract; the console transport here is a local
// stand-in that prints outbound traffic and replays scripted inbound events,
// used for development and manual end-to-end runs.
package transport

import (
	"context"
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/vitrina/stockbot/internal/domain/integration"
)

// ConsoleTransport logs every outbound message instead of delivering it.
type ConsoleTransport struct {
	logger *zap.Logger
	nextID atomic.Int64
}

// NewConsoleTransport creates a console transport
func NewConsoleTransport(logger *zap.Logger) *ConsoleTransport {
	return &ConsoleTransport{logger: logger.Named("console")}
}

// SendMessage implements integration.ChatTransport
func (t *ConsoleTransport) SendMessage(_ context.Context, chatID, text string) (integration.SentMessage, error) {
	id := fmt.Sprintf("console-%d", t.nextID.Add(1))
	t.logger.Info("outbound message",
		zap.String("chat_id", chatID),
		zap.String("message_id", id),
		zap.String("text", text),
	)
	return integration.SentMessage{ID: id}, nil
}

// SendMessageWithMention implements integration.ChatTransport
func (t *ConsoleTransport) SendMessageWithMention(ctx context.Context, chatID, text, mentionID string) (integration.SentMessage, error) {
	t.logger.Debug("mentioning", zap.String("mention_id", mentionID))
	return t.SendMessage(ctx, chatID, text)
}

// EditMessage implements integration.ChatTransport
func (t *ConsoleTransport) EditMessage(_ context.Context, messageID, text string) error {
	t.logger.Info("edit message",
		zap.String("message_id", messageID),
		zap.String("text", text),
	)
	return nil
}

var _ integration.ChatTransport = (*ConsoleTransport)(nil)

// ConsoleMessage is a scripted inbound message for local runs.
type ConsoleMessage struct {
	MessageID string
	Chat      string
	Sender    string
	Text      string
	Media     *integration.MediaPayload
}

// ID implements integration.IncomingMessage
func (m ConsoleMessage) ID() string { return m.MessageID }

// ChatID implements integration.IncomingMessage
func (m ConsoleMessage) ChatID() string { return m.Chat }

// Author implements integration.IncomingMessage
func (m ConsoleMessage) Author() string { return m.Sender }

// Body implements integration.IncomingMessage
func (m ConsoleMessage) Body() string { return m.Text }

// Type implements integration.IncomingMessage
func (m ConsoleMessage) Type() integration.MessageType {
	if m.Media != nil {
		return integration.MessageTypeImage
	}
	return integration.MessageTypeChat
}

// HasMedia implements integration.IncomingMessage
func (m ConsoleMessage) HasMedia() bool { return m.Media != nil }

// React implements integration.IncomingMessage
func (m ConsoleMessage) React(context.Context, string) error { return nil }

// DownloadMedia implements integration.IncomingMessage
func (m ConsoleMessage) DownloadMedia(context.Context) (integration.MediaPayload, error) {
	if m.Media == nil {
		return integration.MediaPayload{}, integration.ErrMediaUnavailable
	}
	return *m.Media, nil
}

var _ integration.IncomingMessage = ConsoleMessage{}

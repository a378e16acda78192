package integration

import (
	"context"
	"errors"
)

var (
	ErrTransportUnavailable = errors.New("integration: chat transport unavailable")
	ErrMessageNotEditable   = errors.New("integration: message can no longer be edited")
	ErrMediaUnavailable     = errors.New("integration: message media could not be downloaded")
)

// MessageType distinguishes the inbound payloads the workflow reacts to.
type MessageType string

const (
	MessageTypeChat  MessageType = "chat"
	MessageTypeImage MessageType = "image"
)

// MediaPayload is a raw binary asset captured from a chat message.
type MediaPayload struct {
	Data     []byte
	MimeType string
	Filename string
}

// IncomingMessage is the transport-neutral contract for an inbound chat event.
// The workflow depends only on this interface, never on a concrete client.
type IncomingMessage interface {
	// ID returns the transport identifier of the message.
	ID() string
	// ChatID returns the destination chat the message belongs to.
	ChatID() string
	// Author returns the identity that wrote the message.
	Author() string
	// Body returns the raw message text.
	Body() string
	// Type returns the message payload type.
	Type() MessageType
	// HasMedia reports whether the message carries a downloadable asset.
	HasMedia() bool
	// React attaches an emoji reaction to the message. Best effort.
	React(ctx context.Context, emoji string) error
	// DownloadMedia fetches the attached asset.
	DownloadMedia(ctx context.Context) (MediaPayload, error)
}

// SentMessage identifies an outbound message so it can be edited later.
type SentMessage struct {
	ID string
}

// ChatTransport is the outbound side of the chat boundary.
type ChatTransport interface {
	// SendMessage posts text to a chat and returns the sent message handle.
	SendMessage(ctx context.Context, chatID, text string) (SentMessage, error)
	// SendMessageWithMention posts text mentioning the given identity.
	SendMessageWithMention(ctx context.Context, chatID, text, mentionID string) (SentMessage, error)
	// EditMessage replaces the text of a previously sent message.
	// Returns ErrMessageNotEditable when the message is too old or gone.
	EditMessage(ctx context.Context, messageID, text string) error
}

// Package chat assembles direct-message threads and tracks read state.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/metrics"
	"gitea.jw6.us/james/teamtasks/internal/storage"
	"gitea.jw6.us/james/teamtasks/internal/store"
)

var (
	ErrEmptyMessage = errors.New("message is empty")
	ErrSelfMessage  = errors.New("cannot message yourself")
)

// Thread returns the messages exchanged between a and b, oldest first.
// Messages with equal timestamps keep their input order.
func Thread(msgs []store.ChatMessage, a, b uuid.UUID) []store.ChatMessage {
	out := make([]store.ChatMessage, 0, len(msgs))
	for _, m := range msgs {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

// Unread counts the messages in msgs that viewer received and has not read.
func Unread(msgs []store.ChatMessage, viewer uuid.UUID) int {
	n := 0
	for _, m := range msgs {
		if m.ReceiverID == viewer && !m.IsRead {
			n++
		}
	}
	return n
}

// Attachment is a file sent along with a message.
type Attachment struct {
	Name        string
	ContentType string
	Body        io.Reader
}

// Notifier is told about delivered messages.
type Notifier interface {
	ChatMessage(ctx context.Context, msg store.ChatMessage)
}

type Service struct {
	repo     store.ChatRepository
	objects  storage.ObjectStore
	notifier Notifier
}

func NewService(repo store.ChatRepository, objects storage.ObjectStore, notifier Notifier) *Service {
	return &Service{repo: repo, objects: objects, notifier: notifier}
}

// Open loads the thread between viewer and other and marks what other sent
// to viewer as read. The returned messages reflect the new read state.
func (s *Service) Open(ctx context.Context, viewer, other uuid.UUID) ([]store.ChatMessage, error) {
	msgs, err := s.repo.ListBetween(ctx, viewer, other)
	if err != nil {
		return nil, err
	}
	if Unread(msgs, viewer) == 0 {
		return Thread(msgs, viewer, other), nil
	}
	if _, err := s.repo.MarkRead(ctx, viewer, other); err != nil {
		return nil, err
	}
	for i := range msgs {
		if msgs[i].ReceiverID == viewer && msgs[i].SenderID == other {
			msgs[i].IsRead = true
		}
	}
	return Thread(msgs, viewer, other), nil
}

// Send stores a message from sender to receiver. A message needs text or an
// attachment.
func (s *Service) Send(ctx context.Context, sender, receiver uuid.UUID, text string, att *Attachment) (*store.ChatMessage, error) {
	if sender == receiver {
		return nil, ErrSelfMessage
	}
	text = strings.TrimSpace(text)
	if text == "" && att == nil {
		return nil, ErrEmptyMessage
	}

	msg := store.ChatMessage{SenderID: sender, ReceiverID: receiver, Message: text}
	if att != nil {
		key := storage.RandomKey("chat/"+sender.String(), att.Name)
		url, err := s.objects.Put(ctx, key, att.ContentType, att.Body)
		if err != nil {
			return nil, fmt.Errorf("upload chat attachment: %w", err)
		}
		name := att.Name
		msg.AttachmentURL = &url
		msg.AttachmentName = &name
		msg.HasAttachment = true
	}

	saved, err := s.repo.Create(ctx, msg)
	if err != nil {
		return nil, err
	}
	metrics.ObserveChatMessage()
	if s.notifier != nil {
		s.notifier.ChatMessage(ctx, *saved)
	}
	return saved, nil
}

// UnreadCounts returns unread message counts keyed by sender.
func (s *Service) UnreadCounts(ctx context.Context, viewer uuid.UUID) (map[uuid.UUID]int, error) {
	return s.repo.UnreadCounts(ctx, viewer)
}

package chat

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/store/memstore"
)

type memObjects struct {
	keys []string
}

func (m *memObjects) Put(ctx context.Context, key, contentType string, body io.Reader) (string, error) {
	if _, err := io.ReadAll(body); err != nil {
		return "", err
	}
	m.keys = append(m.keys, key)
	return "/files/" + key, nil
}

func (m *memObjects) Delete(ctx context.Context, key string) error { return nil }

type recordingNotifier struct {
	msgs []store.ChatMessage
}

func (n *recordingNotifier) ChatMessage(ctx context.Context, msg store.ChatMessage) {
	n.msgs = append(n.msgs, msg)
}

func TestThreadFiltersAndOrders(t *testing.T) {
	a, b, c := uuid.New(), uuid.New(), uuid.New()
	base := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	msgs := []store.ChatMessage{
		{Message: "third", SenderID: a, ReceiverID: b, CreatedAt: base.Add(2 * time.Minute)},
		{Message: "other pair", SenderID: a, ReceiverID: c, CreatedAt: base},
		{Message: "first", SenderID: b, ReceiverID: a, CreatedAt: base},
		{Message: "second", SenderID: a, ReceiverID: b, CreatedAt: base.Add(time.Minute)},
		{Message: "tie", SenderID: b, ReceiverID: a, CreatedAt: base.Add(2 * time.Minute)},
	}

	got := Thread(msgs, a, b)
	want := []string{"first", "second", "third", "tie"}
	if len(got) != len(want) {
		t.Fatalf("Thread() returned %d messages, want %d", len(got), len(want))
	}
	for i, m := range got {
		if m.Message != want[i] {
			t.Errorf("message %d = %q, want %q", i, m.Message, want[i])
		}
	}

	if len(Thread(msgs, b, a)) != len(want) {
		t.Error("Thread() should not depend on argument order")
	}
}

func TestOpenMarksOnlyIncomingAsRead(t *testing.T) {
	db, s := memstore.New()
	svc := NewService(s.Chat, &memObjects{}, nil)
	ctx := context.Background()
	viewer, other := uuid.New(), uuid.New()

	if _, err := svc.Send(ctx, other, viewer, "hello", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, other, viewer, "are you there?", nil); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Send(ctx, viewer, other, "yes", nil); err != nil {
		t.Fatal(err)
	}

	counts, err := svc.UnreadCounts(ctx, viewer)
	if err != nil {
		t.Fatal(err)
	}
	if counts[other] != 2 {
		t.Fatalf("unread before open = %d, want 2", counts[other])
	}

	thread, err := svc.Open(ctx, viewer, other)
	if err != nil {
		t.Fatal(err)
	}
	if len(thread) != 3 {
		t.Fatalf("thread has %d messages, want 3", len(thread))
	}
	for _, m := range thread {
		if m.ReceiverID == viewer && !m.IsRead {
			t.Errorf("returned message %q still unread", m.Message)
		}
	}

	for _, m := range db.Messages {
		switch m.SenderID {
		case other:
			if !m.IsRead {
				t.Errorf("stored message %q not marked read", m.Message)
			}
		case viewer:
			if m.IsRead {
				t.Errorf("viewer's own message %q was altered", m.Message)
			}
		}
	}

	counts, _ = svc.UnreadCounts(ctx, viewer)
	if counts[other] != 0 {
		t.Errorf("unread after open = %d, want 0", counts[other])
	}
	counts, _ = svc.UnreadCounts(ctx, other)
	if counts[viewer] != 1 {
		t.Errorf("other's unread = %d, want 1", counts[viewer])
	}
}

func TestSendWithAttachment(t *testing.T) {
	_, s := memstore.New()
	objects := &memObjects{}
	n := &recordingNotifier{}
	svc := NewService(s.Chat, objects, n)
	sender, receiver := uuid.New(), uuid.New()

	msg, err := svc.Send(context.Background(), sender, receiver, "", &Attachment{
		Name:        "diagram.PNG",
		ContentType: "image/png",
		Body:        strings.NewReader("png"),
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if !msg.HasAttachment || msg.AttachmentName == nil || *msg.AttachmentName != "diagram.PNG" {
		t.Errorf("attachment not recorded: %+v", msg)
	}
	if msg.IsRead {
		t.Error("new message should be unread")
	}
	if len(objects.keys) != 1 || !strings.HasPrefix(objects.keys[0], "chat/"+sender.String()+"/") || !strings.HasSuffix(objects.keys[0], ".png") {
		t.Errorf("object keys = %v", objects.keys)
	}
	if len(n.msgs) != 1 || n.msgs[0].ReceiverID != receiver {
		t.Errorf("notifications = %+v", n.msgs)
	}
}

func TestSendValidation(t *testing.T) {
	_, s := memstore.New()
	svc := NewService(s.Chat, &memObjects{}, nil)
	me := uuid.New()

	if _, err := svc.Send(context.Background(), me, uuid.New(), "  ", nil); !errors.Is(err, ErrEmptyMessage) {
		t.Errorf("blank Send() error = %v, want ErrEmptyMessage", err)
	}
	if _, err := svc.Send(context.Background(), me, me, "hi", nil); !errors.Is(err, ErrSelfMessage) {
		t.Errorf("self Send() error = %v, want ErrSelfMessage", err)
	}
}

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	Create(ctx context.Context, user User) (*User, error)
	UpsertOAuthUser(ctx context.Context, subject, email, fullName string) (*User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, fullName string) error
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
	TouchLogin(ctx context.Context, id uuid.UUID) error
}

// TaskRepository handles tasks. Every read and write is scoped by the acting
// user: creator or assignee may read and change status, only the creator may
// delete.
type TaskRepository interface {
	Create(ctx context.Context, task Task) (*Task, error)
	GetVisible(ctx context.Context, viewer, id uuid.UUID) (*Task, error)
	ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]Task, error)
	ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]Task, error)
	UpdateStatus(ctx context.Context, actor, id uuid.UUID, status Status) error
	Delete(ctx context.Context, actor, id uuid.UUID) error
}

// AttachmentRepository stores attachment records. Rows go away with their task.
type AttachmentRepository interface {
	Create(ctx context.Context, att TaskAttachment) (*TaskAttachment, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]TaskAttachment, error)
}

type CommentRepository interface {
	Create(ctx context.Context, comment TaskComment) (*TaskComment, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]TaskComment, error)
}

// PresenceRepository upserts and lists presence rows.
type PresenceRepository interface {
	Upsert(ctx context.Context, userID uuid.UUID, online bool, lastSeen time.Time) error
	List(ctx context.Context) ([]Presence, error)
}

// ChatRepository stores direct messages.
type ChatRepository interface {
	Create(ctx context.Context, msg ChatMessage) (*ChatMessage, error)
	ListBetween(ctx context.Context, a, b uuid.UUID) ([]ChatMessage, error)
	MarkRead(ctx context.Context, receiver, sender uuid.UUID) (int64, error)
	UnreadCounts(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int, error)
}

// CalendarRepository stores shared calendar events.
type CalendarRepository interface {
	Create(ctx context.Context, event CalendarEvent) (*CalendarEvent, error)
	ListRange(ctx context.Context, from, to string) ([]CalendarEvent, error)
	ListAll(ctx context.Context) ([]CalendarEvent, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
}

type SettingsRepository interface {
	Get(ctx context.Context, userID uuid.UUID) (*Settings, error)
	Insert(ctx context.Context, settings Settings) (*Settings, error)
	Update(ctx context.Context, settings Settings) (*Settings, error)
	SetProfilePhoto(ctx context.Context, userID uuid.UUID, url, key string) error
}

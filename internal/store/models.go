package store

import (
	"time"

	"github.com/google/uuid"
)

// User is an account that can sign in with a password or through OIDC.
type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	FullName     string     `json:"fullName"`
	PasswordHash *string    `json:"-"`
	OAuthSubject *string    `json:"-"`
	CreatedAt    time.Time  `json:"createdAt"`
	LastLoginAt  *time.Time `json:"lastLoginAt,omitempty"`
}

// DisplayName falls back to the email address when no name is set.
func (u User) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

type Priority string

const (
	PriorityLow    Priority = "Low"
	PriorityMedium Priority = "Medium"
	PriorityHigh   Priority = "High"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusNotStarted, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task is a unit of work created by one user and optionally assigned to another.
type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AssignedTo  *uuid.UUID `json:"assignedTo,omitempty"`
	CreatedBy   uuid.UUID  `json:"createdBy"`
	Priority    Priority   `json:"priority"`
	DueDate     time.Time  `json:"dueDate"`
	Status      Status     `json:"status"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// TaskAttachment references an uploaded object belonging to a task.
type TaskAttachment struct {
	ID         uuid.UUID  `json:"id"`
	TaskID     uuid.UUID  `json:"taskId"`
	FileName   string     `json:"fileName"`
	FileURL    string     `json:"fileUrl"`
	FileType   string     `json:"fileType"`
	FileSize   int64      `json:"fileSize"`
	ObjectKey  string     `json:"-"`
	UploadedBy *uuid.UUID `json:"uploadedBy,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type TaskComment struct {
	ID        uuid.UUID  `json:"id"`
	TaskID    uuid.UUID  `json:"taskId"`
	UserID    *uuid.UUID `json:"userId,omitempty"`
	Comment   string     `json:"comment"`
	CreatedAt time.Time  `json:"createdAt"`
}

// Presence is a best-effort liveness hint; nothing expires it server side.
type Presence struct {
	UserID   uuid.UUID `json:"userId"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
}

// ChatMessage is a directed message between two users.
type ChatMessage struct {
	ID             uuid.UUID `json:"id"`
	SenderID       uuid.UUID `json:"senderId"`
	ReceiverID     uuid.UUID `json:"receiverId"`
	Message        string    `json:"message"`
	HasAttachment  bool      `json:"hasAttachment"`
	AttachmentURL  *string   `json:"attachmentUrl,omitempty"`
	AttachmentName *string   `json:"attachmentName,omitempty"`
	IsRead         bool      `json:"isRead"`
	CreatedAt      time.Time `json:"createdAt"`
}

type EventType string

const (
	EventMeeting  EventType = "Meeting"
	EventLeave    EventType = "Leave"
	EventPersonal EventType = "Personal"
)

func (t EventType) Valid() bool {
	switch t {
	case EventMeeting, EventLeave, EventPersonal:
		return true
	}
	return false
}

// CalendarEvent is an entry on the shared calendar. EventDate is YYYY-MM-DD.
type CalendarEvent struct {
	ID          uuid.UUID `json:"id"`
	UserID      uuid.UUID `json:"userId"`
	Title       string    `json:"title"`
	EventType   EventType `json:"eventType"`
	EventDate   string    `json:"eventDate"`
	MeetingLink *string   `json:"meetingLink,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Settings holds per-user notification preferences.
type Settings struct {
	UserID             uuid.UUID `json:"userId"`
	EmailNotifications bool      `json:"emailNotifications"`
	PushNotifications  bool      `json:"pushNotifications"`
	TaskReminders      bool      `json:"taskReminders"`
	ChatNotifications  bool      `json:"chatNotifications"`
	NotificationSound  bool      `json:"notificationSound"`
	MessageSound       bool      `json:"messageSound"`
	ProfilePhotoURL    *string   `json:"profilePhotoUrl,omitempty"`
	ProfilePhotoKey    *string   `json:"-"`
	UpdatedAt          time.Time `json:"updatedAt"`
}

// DefaultSettings returns the settings a user starts with.
func DefaultSettings(userID uuid.UUID) Settings {
	return Settings{
		UserID:             userID,
		EmailNotifications: true,
		PushNotifications:  true,
		TaskReminders:      true,
		ChatNotifications:  true,
		NotificationSound:  true,
		MessageSound:       true,
	}
}

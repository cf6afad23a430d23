package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// rowScanner matches both pgx.Row and pgx.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func collect[T any](rows pgx.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	defer rows.Close()
	var out []T
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func affectedOrNotFound(rows int64) error {
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// userRepo implements UserRepository.
type userRepo struct {
	pool querier
}

const userColumns = `id, email, full_name, password_hash, oauth_subject, created_at, last_login_at`

func scanUser(row rowScanner) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.FullName, &u.PasswordHash, &u.OAuthSubject, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

func (r *userRepo) Create(ctx context.Context, user User) (*User, error) {
	defer observeDB(ctx, "users.create")()
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, full_name, password_hash)
VALUES ($1, $2, $3)
RETURNING `+userColumns, strings.TrimSpace(user.Email), user.FullName, user.PasswordHash)
	created, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", translate(err))
	}
	return &created, nil
}

func (r *userRepo) UpsertOAuthUser(ctx context.Context, subject, email, fullName string) (*User, error) {
	defer observeDB(ctx, "users.upsert_oauth")()
	row := r.pool.QueryRow(ctx, `INSERT INTO users (email, full_name, oauth_subject, last_login_at)
VALUES ($1, $2, $3, NOW())
ON CONFLICT (oauth_subject) DO UPDATE SET email = EXCLUDED.email, last_login_at = NOW()
RETURNING `+userColumns, email, fullName, subject)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("upsert oauth user: %w", translate(err))
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	defer observeDB(ctx, "users.get_by_id")()
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*User, error) {
	defer observeDB(ctx, "users.get_by_email")()
	u, err := scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER($1)`, strings.TrimSpace(email)))
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepo) List(ctx context.Context) ([]User, error) {
	defer observeDB(ctx, "users.list")()
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY full_name, email`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return collect(rows, scanUser)
}

func (r *userRepo) UpdateProfile(ctx context.Context, id uuid.UUID, fullName string) error {
	defer observeDB(ctx, "users.update_profile")()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET full_name = $2 WHERE id = $1`, id, fullName)
	if err != nil {
		return fmt.Errorf("update profile: %w", err)
	}
	return affectedOrNotFound(tag.RowsAffected())
}

func (r *userRepo) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	defer observeDB(ctx, "users.update_password")()
	tag, err := r.pool.Exec(ctx, `UPDATE users SET password_hash = $2 WHERE id = $1`, id, hash)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return affectedOrNotFound(tag.RowsAffected())
}

func (r *userRepo) TouchLogin(ctx context.Context, id uuid.UUID) error {
	defer observeDB(ctx, "users.touch_login")()
	_, err := r.pool.Exec(ctx, `UPDATE users SET last_login_at = NOW() WHERE id = $1`, id)
	return err
}

// taskRepo implements TaskRepository.
type taskRepo struct {
	pool querier
}

const taskColumns = `id, title, description, assigned_to, created_by, priority, due_date, status, created_at, updated_at`

func scanTask(row rowScanner) (Task, error) {
	var t Task
	var priority, status string
	err := row.Scan(&t.ID, &t.Title, &t.Description, &t.AssignedTo, &t.CreatedBy, &priority, &t.DueDate, &status, &t.CreatedAt, &t.UpdatedAt)
	t.Priority = Priority(priority)
	t.Status = Status(status)
	return t, err
}

func (r *taskRepo) Create(ctx context.Context, task Task) (*Task, error) {
	defer observeDB(ctx, "tasks.create")()
	row := r.pool.QueryRow(ctx, `INSERT INTO tasks (title, description, assigned_to, created_by, priority, due_date, status)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+taskColumns,
		task.Title, task.Description, task.AssignedTo, task.CreatedBy, string(task.Priority), task.DueDate, string(task.Status))
	created, err := scanTask(row)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", translate(err))
	}
	return &created, nil
}

func (r *taskRepo) GetVisible(ctx context.Context, viewer, id uuid.UUID) (*Task, error) {
	defer observeDB(ctx, "tasks.get")()
	t, err := scanTask(r.pool.QueryRow(ctx, `SELECT `+taskColumns+` FROM tasks
WHERE id = $1 AND (created_by = $2 OR assigned_to = $2)`, id, viewer))
	if err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *taskRepo) ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	defer observeDB(ctx, "tasks.list_created")()
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE created_by = $1 ORDER BY due_date, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list created tasks: %w", err)
	}
	return collect(rows, scanTask)
}

func (r *taskRepo) ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]Task, error) {
	defer observeDB(ctx, "tasks.list_assigned")()
	rows, err := r.pool.Query(ctx, `SELECT `+taskColumns+` FROM tasks WHERE assigned_to = $1 ORDER BY due_date, created_at`, userID)
	if err != nil {
		return nil, fmt.Errorf("list assigned tasks: %w", err)
	}
	return collect(rows, scanTask)
}

func (r *taskRepo) UpdateStatus(ctx context.Context, actor, id uuid.UUID, status Status) error {
	defer observeDB(ctx, "tasks.update_status")()
	tag, err := r.pool.Exec(ctx, `UPDATE tasks SET status = $3, updated_at = NOW()
WHERE id = $1 AND (created_by = $2 OR assigned_to = $2)`, id, actor, string(status))
	if err != nil {
		return fmt.Errorf("update task status: %w", err)
	}
	return affectedOrNotFound(tag.RowsAffected())
}

func (r *taskRepo) Delete(ctx context.Context, actor, id uuid.UUID) error {
	defer observeDB(ctx, "tasks.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM tasks WHERE id = $1 AND created_by = $2`, id, actor)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return affectedOrNotFound(tag.RowsAffected())
}

// attachmentRepo implements AttachmentRepository.
type attachmentRepo struct {
	pool querier
}

const attachmentColumns = `id, task_id, file_name, file_url, file_type, file_size, object_key, uploaded_by, created_at`

func scanAttachment(row rowScanner) (TaskAttachment, error) {
	var a TaskAttachment
	err := row.Scan(&a.ID, &a.TaskID, &a.FileName, &a.FileURL, &a.FileType, &a.FileSize, &a.ObjectKey, &a.UploadedBy, &a.CreatedAt)
	return a, err
}

func (r *attachmentRepo) Create(ctx context.Context, att TaskAttachment) (*TaskAttachment, error) {
	defer observeDB(ctx, "attachments.create")()
	row := r.pool.QueryRow(ctx, `INSERT INTO task_attachments (task_id, file_name, file_url, file_type, file_size, object_key, uploaded_by)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+attachmentColumns,
		att.TaskID, att.FileName, att.FileURL, att.FileType, att.FileSize, att.ObjectKey, att.UploadedBy)
	created, err := scanAttachment(row)
	if err != nil {
		return nil, fmt.Errorf("create attachment: %w", translate(err))
	}
	return &created, nil
}

func (r *attachmentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]TaskAttachment, error) {
	defer observeDB(ctx, "attachments.list")()
	rows, err := r.pool.Query(ctx, `SELECT `+attachmentColumns+` FROM task_attachments WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list attachments: %w", err)
	}
	return collect(rows, scanAttachment)
}

// commentRepo implements CommentRepository.
type commentRepo struct {
	pool querier
}

func scanComment(row rowScanner) (TaskComment, error) {
	var c TaskComment
	err := row.Scan(&c.ID, &c.TaskID, &c.UserID, &c.Comment, &c.CreatedAt)
	return c, err
}

func (r *commentRepo) Create(ctx context.Context, comment TaskComment) (*TaskComment, error) {
	defer observeDB(ctx, "comments.create")()
	row := r.pool.QueryRow(ctx, `INSERT INTO task_comments (task_id, user_id, comment)
VALUES ($1, $2, $3)
RETURNING id, task_id, user_id, comment, created_at`, comment.TaskID, comment.UserID, comment.Comment)
	created, err := scanComment(row)
	if err != nil {
		return nil, fmt.Errorf("create comment: %w", translate(err))
	}
	return &created, nil
}

func (r *commentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]TaskComment, error) {
	defer observeDB(ctx, "comments.list")()
	rows, err := r.pool.Query(ctx, `SELECT id, task_id, user_id, comment, created_at FROM task_comments
WHERE task_id = $1 ORDER BY created_at`, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	return collect(rows, scanComment)
}

// presenceRepo implements PresenceRepository.
type presenceRepo struct {
	pool querier
}

func (r *presenceRepo) Upsert(ctx context.Context, userID uuid.UUID, online bool, lastSeen time.Time) error {
	defer observeDB(ctx, "presence.upsert")()
	_, err := r.pool.Exec(ctx, `INSERT INTO user_presence (user_id, is_online, last_seen)
VALUES ($1, $2, $3)
ON CONFLICT (user_id) DO UPDATE SET is_online = EXCLUDED.is_online, last_seen = EXCLUDED.last_seen`, userID, online, lastSeen)
	if err != nil {
		return fmt.Errorf("upsert presence: %w", err)
	}
	return nil
}

func (r *presenceRepo) List(ctx context.Context) ([]Presence, error) {
	defer observeDB(ctx, "presence.list")()
	rows, err := r.pool.Query(ctx, `SELECT user_id, is_online, last_seen FROM user_presence`)
	if err != nil {
		return nil, fmt.Errorf("list presence: %w", err)
	}
	return collect(rows, func(row rowScanner) (Presence, error) {
		var p Presence
		err := row.Scan(&p.UserID, &p.IsOnline, &p.LastSeen)
		return p, err
	})
}

// chatRepo implements ChatRepository.
type chatRepo struct {
	pool querier
}

const chatColumns = `id, sender_id, receiver_id, message, has_attachment, attachment_url, attachment_name, is_read, created_at`

func scanChat(row rowScanner) (ChatMessage, error) {
	var m ChatMessage
	err := row.Scan(&m.ID, &m.SenderID, &m.ReceiverID, &m.Message, &m.HasAttachment, &m.AttachmentURL, &m.AttachmentName, &m.IsRead, &m.CreatedAt)
	return m, err
}

func (r *chatRepo) Create(ctx context.Context, msg ChatMessage) (*ChatMessage, error) {
	defer observeDB(ctx, "chat.create")()
	row := r.pool.QueryRow(ctx, `INSERT INTO chat_messages (sender_id, receiver_id, message, has_attachment, attachment_url, attachment_name, is_read)
VALUES ($1, $2, $3, $4, $5, $6, FALSE)
RETURNING `+chatColumns,
		msg.SenderID, msg.ReceiverID, msg.Message, msg.AttachmentURL != nil, msg.AttachmentURL, msg.AttachmentName)
	created, err := scanChat(row)
	if err != nil {
		return nil, fmt.Errorf("create chat message: %w", translate(err))
	}
	return &created, nil
}

func (r *chatRepo) ListBetween(ctx context.Context, a, b uuid.UUID) ([]ChatMessage, error) {
	defer observeDB(ctx, "chat.list_between")()
	rows, err := r.pool.Query(ctx, `SELECT `+chatColumns+` FROM chat_messages
WHERE (sender_id = $1 AND receiver_id = $2) OR (sender_id = $2 AND receiver_id = $1)
ORDER BY created_at, id`, a, b)
	if err != nil {
		return nil, fmt.Errorf("list chat thread: %w", err)
	}
	return collect(rows, scanChat)
}

func (r *chatRepo) MarkRead(ctx context.Context, receiver, sender uuid.UUID) (int64, error) {
	defer observeDB(ctx, "chat.mark_read")()
	tag, err := r.pool.Exec(ctx, `UPDATE chat_messages SET is_read = TRUE
WHERE receiver_id = $1 AND sender_id = $2 AND NOT is_read`, receiver, sender)
	if err != nil {
		return 0, fmt.Errorf("mark chat read: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *chatRepo) UnreadCounts(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int, error) {
	defer observeDB(ctx, "chat.unread_counts")()
	rows, err := r.pool.Query(ctx, `SELECT sender_id, COUNT(*) FROM chat_messages
WHERE receiver_id = $1 AND NOT is_read GROUP BY sender_id`, receiver)
	if err != nil {
		return nil, fmt.Errorf("count unread: %w", err)
	}
	defer rows.Close()
	counts := make(map[uuid.UUID]int)
	for rows.Next() {
		var sender uuid.UUID
		var n int
		if err := rows.Scan(&sender, &n); err != nil {
			return nil, err
		}
		counts[sender] = n
	}
	return counts, rows.Err()
}

// calendarRepo implements CalendarRepository.
type calendarRepo struct {
	pool querier
}

const calendarColumns = `id, user_id, title, event_type, to_char(event_date, 'YYYY-MM-DD'), meeting_link, notes, created_at`

func scanCalendarEvent(row rowScanner) (CalendarEvent, error) {
	var e CalendarEvent
	var eventType string
	err := row.Scan(&e.ID, &e.UserID, &e.Title, &eventType, &e.EventDate, &e.MeetingLink, &e.Notes, &e.CreatedAt)
	e.EventType = EventType(eventType)
	return e, err
}

func (r *calendarRepo) Create(ctx context.Context, event CalendarEvent) (*CalendarEvent, error) {
	defer observeDB(ctx, "calendar.create")()
	row := r.pool.QueryRow(ctx, `INSERT INTO calendar_events (user_id, title, event_type, event_date, meeting_link, notes)
VALUES ($1, $2, $3, $4::date, $5, $6)
RETURNING `+calendarColumns,
		event.UserID, event.Title, string(event.EventType), event.EventDate, event.MeetingLink, event.Notes)
	created, err := scanCalendarEvent(row)
	if err != nil {
		return nil, fmt.Errorf("create calendar event: %w", translate(err))
	}
	return &created, nil
}

// ListRange returns events whose date falls within [from, to], both YYYY-MM-DD.
func (r *calendarRepo) ListRange(ctx context.Context, from, to string) ([]CalendarEvent, error) {
	defer observeDB(ctx, "calendar.list_range")()
	rows, err := r.pool.Query(ctx, `SELECT `+calendarColumns+` FROM calendar_events
WHERE event_date BETWEEN $1::date AND $2::date ORDER BY event_date, created_at`, from, to)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return collect(rows, scanCalendarEvent)
}

func (r *calendarRepo) ListAll(ctx context.Context) ([]CalendarEvent, error) {
	defer observeDB(ctx, "calendar.list_all")()
	rows, err := r.pool.Query(ctx, `SELECT `+calendarColumns+` FROM calendar_events ORDER BY event_date, created_at`)
	if err != nil {
		return nil, fmt.Errorf("list calendar events: %w", err)
	}
	return collect(rows, scanCalendarEvent)
}

func (r *calendarRepo) Delete(ctx context.Context, owner, id uuid.UUID) error {
	defer observeDB(ctx, "calendar.delete")()
	tag, err := r.pool.Exec(ctx, `DELETE FROM calendar_events WHERE id = $1 AND user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("delete calendar event: %w", err)
	}
	return affectedOrNotFound(tag.RowsAffected())
}

// settingsRepo implements SettingsRepository.
type settingsRepo struct {
	pool querier
}

const settingsColumns = `user_id, email_notifications, push_notifications, task_reminders, chat_notifications,
notification_sound, message_sound, profile_photo_url, profile_photo_key, updated_at`

func scanSettings(row rowScanner) (Settings, error) {
	var s Settings
	err := row.Scan(&s.UserID, &s.EmailNotifications, &s.PushNotifications, &s.TaskReminders, &s.ChatNotifications,
		&s.NotificationSound, &s.MessageSound, &s.ProfilePhotoURL, &s.ProfilePhotoKey, &s.UpdatedAt)
	return s, err
}

func (r *settingsRepo) Get(ctx context.Context, userID uuid.UUID) (*Settings, error) {
	defer observeDB(ctx, "settings.get")()
	s, err := scanSettings(r.pool.QueryRow(ctx, `SELECT `+settingsColumns+` FROM user_settings WHERE user_id = $1`, userID))
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Insert creates the row if it is missing and returns whatever is stored.
func (r *settingsRepo) Insert(ctx context.Context, settings Settings) (*Settings, error) {
	defer observeDB(ctx, "settings.insert")()
	_, err := r.pool.Exec(ctx, `INSERT INTO user_settings (user_id, email_notifications, push_notifications, task_reminders,
chat_notifications, notification_sound, message_sound)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (user_id) DO NOTHING`,
		settings.UserID, settings.EmailNotifications, settings.PushNotifications, settings.TaskReminders,
		settings.ChatNotifications, settings.NotificationSound, settings.MessageSound)
	if err != nil {
		return nil, fmt.Errorf("insert settings: %w", err)
	}
	return r.Get(ctx, settings.UserID)
}

func (r *settingsRepo) Update(ctx context.Context, settings Settings) (*Settings, error) {
	defer observeDB(ctx, "settings.update")()
	row := r.pool.QueryRow(ctx, `UPDATE user_settings SET email_notifications = $2, push_notifications = $3,
task_reminders = $4, chat_notifications = $5, notification_sound = $6, message_sound = $7, updated_at = NOW()
WHERE user_id = $1
RETURNING `+settingsColumns,
		settings.UserID, settings.EmailNotifications, settings.PushNotifications, settings.TaskReminders,
		settings.ChatNotifications, settings.NotificationSound, settings.MessageSound)
	s, err := scanSettings(row)
	if err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

func (r *settingsRepo) SetProfilePhoto(ctx context.Context, userID uuid.UUID, url, key string) error {
	defer observeDB(ctx, "settings.set_photo")()
	tag, err := r.pool.Exec(ctx, `UPDATE user_settings SET profile_photo_url = $2, profile_photo_key = $3, updated_at = NOW()
WHERE user_id = $1`, userID, url, key)
	if err != nil {
		return fmt.Errorf("set profile photo: %w", err)
	}
	return affectedOrNotFound(tag.RowsAffected())
}

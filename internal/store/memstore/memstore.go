// Package memstore is an in-memory store.Store for tests. It applies the same
// row-level rules as the SQL repositories.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

// DB holds every table. Fields are exported so tests can seed and inspect.
type DB struct {
	mu sync.Mutex

	Users       map[uuid.UUID]store.User
	Tasks       map[uuid.UUID]store.Task
	Attachments []store.TaskAttachment
	Comments    []store.TaskComment
	Presence    map[uuid.UUID]store.Presence
	Messages    []store.ChatMessage
	Events      map[uuid.UUID]store.CalendarEvent
	Settings    map[uuid.UUID]store.Settings

	// Now stamps created rows. Defaults to time.Now.
	Now func() time.Time
}

// New returns an empty DB and a Store whose repositories read and write it.
func New() (*DB, *store.Store) {
	db := &DB{
		Users:    map[uuid.UUID]store.User{},
		Tasks:    map[uuid.UUID]store.Task{},
		Presence: map[uuid.UUID]store.Presence{},
		Events:   map[uuid.UUID]store.CalendarEvent{},
		Settings: map[uuid.UUID]store.Settings{},
		Now:      time.Now,
	}
	return db, &store.Store{
		Users:       users{db},
		Tasks:       tasks{db},
		Attachments: attachments{db},
		Comments:    comments{db},
		Presence:    presence{db},
		Chat:        chat{db},
		Calendar:    calendar{db},
		Settings:    settings{db},
	}
}

// AddUser seeds a user and returns it.
func (db *DB) AddUser(email, fullName string) store.User {
	db.mu.Lock()
	defer db.mu.Unlock()
	u := store.User{ID: uuid.New(), Email: email, FullName: fullName, CreatedAt: db.Now()}
	db.Users[u.ID] = u
	return u
}

type users struct{ db *DB }

func (r users) Create(ctx context.Context, u store.User) (*store.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, existing := range r.db.Users {
		if strings.EqualFold(existing.Email, u.Email) {
			return nil, store.ErrConflict
		}
	}
	u.ID = uuid.New()
	u.CreatedAt = r.db.Now()
	r.db.Users[u.ID] = u
	return &u, nil
}

func (r users) UpsertOAuthUser(ctx context.Context, subject, email, fullName string) (*store.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for id, u := range r.db.Users {
		if u.OAuthSubject != nil && *u.OAuthSubject == subject {
			u.Email = email
			if fullName != "" {
				u.FullName = fullName
			}
			r.db.Users[id] = u
			return &u, nil
		}
	}
	u := store.User{ID: uuid.New(), Email: email, FullName: fullName, OAuthSubject: &subject, CreatedAt: r.db.Now()}
	r.db.Users[u.ID] = u
	return &u, nil
}

func (r users) GetByID(ctx context.Context, id uuid.UUID) (*store.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.Users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (r users) GetByEmail(ctx context.Context, email string) (*store.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, u := range r.db.Users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (r users) List(ctx context.Context) ([]store.User, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]store.User, 0, len(r.db.Users))
	for _, u := range r.db.Users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FullName != out[j].FullName {
			return out[i].FullName < out[j].FullName
		}
		return out[i].Email < out[j].Email
	})
	return out, nil
}

func (r users) UpdateProfile(ctx context.Context, id uuid.UUID, fullName string) error {
	return r.update(id, func(u *store.User) { u.FullName = fullName })
}

func (r users) UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error {
	return r.update(id, func(u *store.User) { u.PasswordHash = &hash })
}

func (r users) TouchLogin(ctx context.Context, id uuid.UUID) error {
	return r.update(id, func(u *store.User) {
		now := r.db.Now()
		u.LastLoginAt = &now
	})
}

func (r users) update(id uuid.UUID, fn func(*store.User)) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	u, ok := r.db.Users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	r.db.Users[id] = u
	return nil
}

type tasks struct{ db *DB }

func participant(t store.Task, user uuid.UUID) bool {
	return t.CreatedBy == user || (t.AssignedTo != nil && *t.AssignedTo == user)
}

func (r tasks) Create(ctx context.Context, t store.Task) (*store.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t.ID = uuid.New()
	t.CreatedAt = r.db.Now()
	t.UpdatedAt = t.CreatedAt
	r.db.Tasks[t.ID] = t
	return &t, nil
}

func (r tasks) GetVisible(ctx context.Context, viewer, id uuid.UUID) (*store.Task, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.Tasks[id]
	if !ok || !participant(t, viewer) {
		return nil, store.ErrNotFound
	}
	return &t, nil
}

func (r tasks) ListCreatedBy(ctx context.Context, userID uuid.UUID) ([]store.Task, error) {
	return r.list(func(t store.Task) bool { return t.CreatedBy == userID }), nil
}

func (r tasks) ListAssignedTo(ctx context.Context, userID uuid.UUID) ([]store.Task, error) {
	return r.list(func(t store.Task) bool { return t.AssignedTo != nil && *t.AssignedTo == userID }), nil
}

// list orders by due date, then creation time.
func (r tasks) list(keep func(store.Task) bool) []store.Task {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []store.Task
	for _, t := range r.db.Tasks {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].DueDate.Equal(out[j].DueDate) {
			return out[i].DueDate.Before(out[j].DueDate)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r tasks) UpdateStatus(ctx context.Context, actor, id uuid.UUID, status store.Status) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.Tasks[id]
	if !ok || !participant(t, actor) {
		return store.ErrNotFound
	}
	t.Status = status
	t.UpdatedAt = r.db.Now()
	r.db.Tasks[id] = t
	return nil
}

func (r tasks) Delete(ctx context.Context, actor, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	t, ok := r.db.Tasks[id]
	if !ok || t.CreatedBy != actor {
		return store.ErrNotFound
	}
	delete(r.db.Tasks, id)

	atts := r.db.Attachments[:0]
	for _, a := range r.db.Attachments {
		if a.TaskID != id {
			atts = append(atts, a)
		}
	}
	r.db.Attachments = atts

	cs := r.db.Comments[:0]
	for _, c := range r.db.Comments {
		if c.TaskID != id {
			cs = append(cs, c)
		}
	}
	r.db.Comments = cs
	return nil
}

type attachments struct{ db *DB }

func (r attachments) Create(ctx context.Context, a store.TaskAttachment) (*store.TaskAttachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.Tasks[a.TaskID]; !ok {
		return nil, store.ErrNotFound
	}
	a.ID = uuid.New()
	a.CreatedAt = r.db.Now()
	r.db.Attachments = append(r.db.Attachments, a)
	return &a, nil
}

func (r attachments) ListByTask(ctx context.Context, taskID uuid.UUID) ([]store.TaskAttachment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []store.TaskAttachment
	for _, a := range r.db.Attachments {
		if a.TaskID == taskID {
			out = append(out, a)
		}
	}
	return out, nil
}

type comments struct{ db *DB }

func (r comments) Create(ctx context.Context, c store.TaskComment) (*store.TaskComment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.Tasks[c.TaskID]; !ok {
		return nil, store.ErrNotFound
	}
	c.ID = uuid.New()
	c.CreatedAt = r.db.Now()
	r.db.Comments = append(r.db.Comments, c)
	return &c, nil
}

func (r comments) ListByTask(ctx context.Context, taskID uuid.UUID) ([]store.TaskComment, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []store.TaskComment
	for _, c := range r.db.Comments {
		if c.TaskID == taskID {
			out = append(out, c)
		}
	}
	return out, nil
}

type presence struct{ db *DB }

func (r presence) Upsert(ctx context.Context, userID uuid.UUID, online bool, lastSeen time.Time) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	r.db.Presence[userID] = store.Presence{UserID: userID, IsOnline: online, LastSeen: lastSeen}
	return nil
}

func (r presence) List(ctx context.Context) ([]store.Presence, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := make([]store.Presence, 0, len(r.db.Presence))
	for _, p := range r.db.Presence {
		out = append(out, p)
	}
	return out, nil
}

type chat struct{ db *DB }

func (r chat) Create(ctx context.Context, m store.ChatMessage) (*store.ChatMessage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	m.ID = uuid.New()
	m.CreatedAt = r.db.Now()
	m.HasAttachment = m.AttachmentURL != nil
	r.db.Messages = append(r.db.Messages, m)
	return &m, nil
}

func (r chat) ListBetween(ctx context.Context, a, b uuid.UUID) ([]store.ChatMessage, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []store.ChatMessage
	for _, m := range r.db.Messages {
		if (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a) {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r chat) MarkRead(ctx context.Context, receiver, sender uuid.UUID) (int64, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var n int64
	for i, m := range r.db.Messages {
		if m.ReceiverID == receiver && m.SenderID == sender && !m.IsRead {
			r.db.Messages[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (r chat) UnreadCounts(ctx context.Context, receiver uuid.UUID) (map[uuid.UUID]int, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := map[uuid.UUID]int{}
	for _, m := range r.db.Messages {
		if m.ReceiverID == receiver && !m.IsRead {
			out[m.SenderID]++
		}
	}
	return out, nil
}

type calendar struct{ db *DB }

func (r calendar) Create(ctx context.Context, e store.CalendarEvent) (*store.CalendarEvent, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e.ID = uuid.New()
	e.CreatedAt = r.db.Now()
	r.db.Events[e.ID] = e
	return &e, nil
}

func (r calendar) ListRange(ctx context.Context, from, to string) ([]store.CalendarEvent, error) {
	return r.list(func(e store.CalendarEvent) bool { return e.EventDate >= from && e.EventDate <= to }), nil
}

func (r calendar) ListAll(ctx context.Context) ([]store.CalendarEvent, error) {
	return r.list(func(store.CalendarEvent) bool { return true }), nil
}

func (r calendar) list(keep func(store.CalendarEvent) bool) []store.CalendarEvent {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	var out []store.CalendarEvent
	for _, e := range r.db.Events {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EventDate != out[j].EventDate {
			return out[i].EventDate < out[j].EventDate
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r calendar) Delete(ctx context.Context, owner, id uuid.UUID) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	e, ok := r.db.Events[id]
	if !ok || e.UserID != owner {
		return store.ErrNotFound
	}
	delete(r.db.Events, id)
	return nil
}

type settings struct{ db *DB }

func (r settings) Get(ctx context.Context, userID uuid.UUID) (*store.Settings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.Settings[userID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &s, nil
}

func (r settings) Insert(ctx context.Context, s store.Settings) (*store.Settings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if existing, ok := r.db.Settings[s.UserID]; ok {
		return &existing, nil
	}
	s.UpdatedAt = r.db.Now()
	r.db.Settings[s.UserID] = s
	return &s, nil
}

func (r settings) Update(ctx context.Context, s store.Settings) (*store.Settings, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.Settings[s.UserID]
	if !ok {
		return nil, store.ErrNotFound
	}
	s.ProfilePhotoURL = existing.ProfilePhotoURL
	s.ProfilePhotoKey = existing.ProfilePhotoKey
	s.UpdatedAt = r.db.Now()
	r.db.Settings[s.UserID] = s
	return &s, nil
}

func (r settings) SetProfilePhoto(ctx context.Context, userID uuid.UUID, url, key string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	s, ok := r.db.Settings[userID]
	if !ok {
		return store.ErrNotFound
	}
	s.ProfilePhotoURL = &url
	s.ProfilePhotoKey = &key
	s.UpdatedAt = r.db.Now()
	r.db.Settings[userID] = s
	return nil
}

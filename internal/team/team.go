// Package team builds the employee roster shown on the Employees page.
package team

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

// Member is a user joined with their presence.
type Member struct {
	ID       uuid.UUID `json:"id"`
	Email    string    `json:"email"`
	FullName string    `json:"fullName"`
	IsOnline bool      `json:"isOnline"`
	LastSeen time.Time `json:"lastSeen"`
	Unread   int       `json:"unread,omitempty"`
}

func (m Member) DisplayName() string {
	if m.FullName != "" {
		return m.FullName
	}
	return m.Email
}

// Assemble joins users with presence rows. A user without a row is offline
// and was last seen when the account was created. Online members sort first,
// then by name.
func Assemble(users []store.User, presence []store.Presence) []Member {
	byUser := make(map[uuid.UUID]store.Presence, len(presence))
	for _, p := range presence {
		byUser[p.UserID] = p
	}

	out := make([]Member, 0, len(users))
	for _, u := range users {
		m := Member{ID: u.ID, Email: u.Email, FullName: u.FullName, LastSeen: u.CreatedAt}
		if p, ok := byUser[u.ID]; ok {
			m.IsOnline = p.IsOnline
			m.LastSeen = p.LastSeen
		}
		out = append(out, m)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsOnline != out[j].IsOnline {
			return out[i].IsOnline
		}
		return strings.ToLower(out[i].DisplayName()) < strings.ToLower(out[j].DisplayName())
	})
	return out
}

// WithUnread copies per-sender unread counts onto the roster.
func WithUnread(members []Member, unread map[uuid.UUID]int) []Member {
	for i := range members {
		members[i].Unread = unread[members[i].ID]
	}
	return members
}

// Without drops the member with the given id, typically the viewer.
func Without(members []Member, id uuid.UUID) []Member {
	out := members[:0:0]
	for _, m := range members {
		if m.ID != id {
			out = append(out, m)
		}
	}
	return out
}

// Online counts members currently marked online.
func Online(members []Member) int {
	n := 0
	for _, m := range members {
		if m.IsOnline {
			n++
		}
	}
	return n
}

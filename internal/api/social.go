package api

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/chat"
	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/metrics"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/team"
)

// TeamView is the body of GET /api/team. The caller is not listed.
type TeamView struct {
	Online  int           `json:"online"`
	Members []team.Member `json:"members"`
}

func (h *Handler) setPresence(w http.ResponseWriter, r *http.Request) {
	var in struct {
		IsOnline bool `json:"isOnline"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.Store.Presence.Upsert(r.Context(), currentUser(r).ID, in.IsOnline, h.now()); err != nil {
		writeError(w, r, err, "update presence")
		return
	}
	metrics.ObservePresence(in.IsOnline)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) team(w http.ResponseWriter, r *http.Request) {
	viewer := currentUser(r).ID
	members, err := h.loadTeam(r, viewer)
	if err != nil {
		writeError(w, r, err, "load team")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, TeamView{Online: team.Online(members), Members: members})
}

func (h *Handler) loadTeam(r *http.Request, viewer uuid.UUID) ([]team.Member, error) {
	users, err := h.Store.Users.List(r.Context())
	if err != nil {
		return nil, err
	}
	presence, err := h.Store.Presence.List(r.Context())
	if err != nil {
		return nil, err
	}
	unread, err := h.Chat.UnreadCounts(r.Context(), viewer)
	if err != nil {
		return nil, err
	}
	members := team.WithUnread(team.Assemble(users, presence), unread)
	members = team.Without(members, viewer)
	if members == nil {
		members = []team.Member{}
	}
	return members, nil
}

func (h *Handler) unread(w http.ResponseWriter, r *http.Request) {
	counts, err := h.Chat.UnreadCounts(r.Context(), currentUser(r).ID)
	if err != nil {
		writeError(w, r, err, "unread counts")
		return
	}
	out := make(map[string]int, len(counts))
	for id, n := range counts {
		out[id.String()] = n
	}
	httperrors.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) chatPeer(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	other, err := pathID(r, "userID")
	if err != nil {
		badRequest(w, r, err)
		return uuid.Nil, false
	}
	if _, err := h.Store.Users.GetByID(r.Context(), other); err != nil {
		writeError(w, r, err, "load chat peer")
		return uuid.Nil, false
	}
	return other, true
}

func (h *Handler) openThread(w http.ResponseWriter, r *http.Request) {
	other, ok := h.chatPeer(w, r)
	if !ok {
		return
	}
	msgs, err := h.Chat.Open(r.Context(), currentUser(r).ID, other)
	if err != nil {
		writeError(w, r, err, "open chat")
		return
	}
	if msgs == nil {
		msgs = []store.ChatMessage{}
	}
	httperrors.WriteJSON(w, http.StatusOK, msgs)
}

// sendMessage accepts {"message": "..."} or a multipart form with a
// "message" field and an optional "file" part.
func (h *Handler) sendMessage(w http.ResponseWriter, r *http.Request) {
	other, ok := h.chatPeer(w, r)
	if !ok {
		return
	}

	var (
		text string
		att  *chat.Attachment
	)
	if isMultipart(r) {
		form, err := h.parseMultipart(w, r)
		if err != nil {
			badRequest(w, r, err)
			return
		}
		defer form.RemoveAll()
		text = formValue(form, "message")
		if fhs := form.File["file"]; len(fhs) > 0 {
			f, err := fhs[0].Open()
			if err != nil {
				httperrors.JSONInternalError(w, r, err, "open upload")
				return
			}
			defer f.Close()
			att = &chat.Attachment{Name: fhs[0].Filename, ContentType: partType(fhs[0]), Body: f}
		}
	} else {
		var in struct {
			Message string `json:"message"`
		}
		if err := decodeJSON(w, r, &in); err != nil {
			badRequest(w, r, err)
			return
		}
		text = in.Message
	}

	msg, err := h.Chat.Send(r.Context(), currentUser(r).ID, other, text, att)
	if err != nil {
		if errors.Is(err, chat.ErrEmptyMessage) || errors.Is(err, chat.ErrSelfMessage) {
			badRequest(w, r, err)
			return
		}
		writeError(w, r, err, "send message")
		return
	}
	httperrors.WriteJSON(w, http.StatusCreated, msg)
}

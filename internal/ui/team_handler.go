package ui

import (
	stderrors "errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/chat"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/team"
)

// Refresh periods of the Employees page, in seconds: the roster alone, and
// the roster with an open thread.
const (
	rosterRefresh = 5
	threadRefresh = 3
)

// Employees shows the roster. With ?chat=<id> the thread with that user is
// opened next to it, which marks their messages read.
func (h *Handler) Employees(w http.ResponseWriter, r *http.Request) {
	var peerID uuid.UUID
	if v := r.URL.Query().Get("chat"); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			http.Error(w, "invalid chat peer", http.StatusBadRequest)
			return
		}
		peerID = id
	}
	nav := Nav{Screen: ScreenEmployees, Peer: peerID}
	user, data := h.page(r, nav)
	data["RefreshSeconds"] = rosterRefresh

	if peerID != uuid.Nil {
		peer, err := h.store.Users.GetByID(r.Context(), peerID)
		if stderrors.Is(err, store.ErrNotFound) || (err == nil && peer.ID == user.ID) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			errors.InternalError(w, r, err, "load chat peer")
			return
		}
		msgs, err := h.svc.Chat.Open(r.Context(), user.ID, peerID)
		if err != nil {
			errors.LogError(r, "open chat", err)
		}
		data["Peer"] = peer
		data["Messages"] = msgs
		data["RefreshSeconds"] = threadRefresh
	}

	// Load after opening the thread so the badge reflects the read marks.
	members := h.roster(r, user)
	links := make(map[uuid.UUID]string, len(members))
	for _, m := range members {
		links[m.ID] = nav.WithPeer(m.ID).URL()
	}
	data["Members"] = members
	data["ChatLinks"] = links
	data["OnlineCount"] = team.Online(members)
	h.render(w, r, "employees.html", data)
}

// SendMessage posts a chat message, optionally with one attachment.
func (h *Handler) SendMessage(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	peerID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid chat peer", http.StatusBadRequest)
		return
	}
	if _, err := h.store.Users.GetByID(r.Context(), peerID); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		errors.InternalError(w, r, err, "load chat peer")
		return
	}
	back := Nav{Screen: ScreenEmployees, Peer: peerID}.URL()
	if err := h.parseUpload(w, r); err != nil {
		if stderrors.Is(err, errUploadTooLarge) {
			h.redirect(w, r, back, map[string]string{"error": err.Error()})
			return
		}
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}

	var att *chat.Attachment
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
		if fhs := r.MultipartForm.File["attachment"]; len(fhs) > 0 {
			f, err := fhs[0].Open()
			if err != nil {
				errors.InternalError(w, r, err, "open attachment")
				return
			}
			defer f.Close()
			ct := fhs[0].Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			att = &chat.Attachment{Name: fhs[0].Filename, ContentType: ct, Body: f}
		}
	}

	_, err = h.svc.Chat.Send(r.Context(), user.ID, peerID, r.FormValue("message"), att)
	switch {
	case err == nil:
		http.Redirect(w, r, back, http.StatusFound)
	case stderrors.Is(err, chat.ErrEmptyMessage), stderrors.Is(err, chat.ErrSelfMessage):
		h.redirect(w, r, back, map[string]string{"error": err.Error()})
	default:
		errors.InternalError(w, r, err, "send message")
	}
}

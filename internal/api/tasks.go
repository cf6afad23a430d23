package api

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	httperrors "gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
)

// TaskList is the body of GET /api/tasks.
type TaskList struct {
	Scope  string       `json:"scope"`
	Filter string       `json:"filter"`
	Counts tasks.Counts `json:"counts"`
	Tasks  []store.Task `json:"tasks"`
}

type newTaskBody struct {
	Title       string         `json:"title"`
	Description string         `json:"description"`
	AssignedTo  string         `json:"assignedTo"`
	Priority    store.Priority `json:"priority"`
	DueDate     string         `json:"dueDate"`
}

// toNewTask converts the request body. Blank assignee or due date are passed
// through as missing so the service can decide.
func (b newTaskBody) toNewTask() (tasks.NewTask, error) {
	in := tasks.NewTask{Title: b.Title, Description: b.Description, Priority: b.Priority}
	if s := strings.TrimSpace(b.AssignedTo); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return in, fmt.Errorf("invalid assignedTo")
		}
		in.AssignedTo = &id
	}
	if s := strings.TrimSpace(b.DueDate); s != "" {
		due, err := time.Parse("2006-01-02", s)
		if err != nil {
			return in, fmt.Errorf("dueDate must be YYYY-MM-DD")
		}
		in.DueDate = due
	}
	return in, nil
}

func (h *Handler) listTasks(w http.ResponseWriter, r *http.Request) {
	user := currentUser(r)
	q := r.URL.Query()

	filter, err := tasks.ParseFilter(q.Get("filter"))
	if err != nil {
		badRequest(w, r, err)
		return
	}

	scope := q.Get("scope")
	var list []store.Task
	switch scope {
	case "", "assigned":
		scope = "assigned"
		list, err = h.Tasks.Assigned(r.Context(), user.ID)
	case "created":
		list, err = h.Tasks.Created(r.Context(), user.ID)
	default:
		badRequest(w, r, fmt.Errorf("unknown scope %q", scope))
		return
	}
	if err != nil {
		writeError(w, r, err, "list tasks")
		return
	}

	now := h.now()
	filtered := tasks.Apply(list, filter, now)
	if filtered == nil {
		filtered = []store.Task{}
	}
	httperrors.WriteJSON(w, http.StatusOK, TaskList{
		Scope:  scope,
		Filter: filter.String(),
		Counts: tasks.Count(list, now),
		Tasks:  filtered,
	})
}

// createTask accepts JSON or a multipart form whose "files" parts are staged
// as attachments. An incomplete form creates nothing and answers 204.
func (h *Handler) createTask(w http.ResponseWriter, r *http.Request) {
	var (
		body  newTaskBody
		files []tasks.Upload
	)
	if isMultipart(r) {
		form, err := h.parseMultipart(w, r)
		if err != nil {
			badRequest(w, r, err)
			return
		}
		defer form.RemoveAll()
		body = newTaskBody{
			Title:       formValue(form, "title"),
			Description: formValue(form, "description"),
			AssignedTo:  formValue(form, "assignedTo"),
			Priority:    store.Priority(formValue(form, "priority")),
			DueDate:     formValue(form, "dueDate"),
		}
		for _, fh := range form.File["files"] {
			f, err := fh.Open()
			if err != nil {
				httperrors.LogWarn(r, "open staged file", err)
				continue
			}
			defer f.Close()
			files = append(files, tasks.Upload{
				Name:        fh.Filename,
				ContentType: partType(fh),
				Size:        fh.Size,
				Body:        f,
			})
		}
	} else if err := decodeJSON(w, r, &body); err != nil {
		badRequest(w, r, err)
		return
	}

	in, err := body.toNewTask()
	if err != nil {
		badRequest(w, r, err)
		return
	}
	task, err := h.Tasks.Create(r.Context(), currentUser(r).ID, in, files)
	if err != nil {
		writeError(w, r, err, "create task")
		return
	}
	if task == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	httperrors.WriteJSON(w, http.StatusCreated, task)
}

func (h *Handler) getTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	detail, err := h.Tasks.Detail(r.Context(), currentUser(r).ID, id)
	if err != nil {
		writeError(w, r, err, "load task")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) updateTaskStatus(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var in struct {
		Status store.Status `json:"status"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	user := currentUser(r)
	if err := h.Tasks.UpdateStatus(r.Context(), user.ID, id, in.Status); err != nil {
		writeError(w, r, err, "update task status")
		return
	}
	detail, err := h.Tasks.Detail(r.Context(), user.ID, id)
	if err != nil {
		writeError(w, r, err, "load task")
		return
	}
	httperrors.WriteJSON(w, http.StatusOK, detail.Task)
}

func (h *Handler) deleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	if err := h.Tasks.Delete(r.Context(), currentUser(r).ID, id); err != nil {
		writeError(w, r, err, "delete task")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) addComment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	var in struct {
		Comment string `json:"comment"`
	}
	if err := decodeJSON(w, r, &in); err != nil {
		badRequest(w, r, err)
		return
	}
	c, err := h.Tasks.AddComment(r.Context(), currentUser(r).ID, id, in.Comment)
	if err != nil {
		writeError(w, r, err, "add comment")
		return
	}
	httperrors.WriteJSON(w, http.StatusCreated, c)
}

func (h *Handler) addAttachment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		badRequest(w, r, err)
		return
	}
	form, err := h.parseMultipart(w, r)
	if err != nil {
		badRequest(w, r, err)
		return
	}
	defer form.RemoveAll()

	fhs := form.File["file"]
	if len(fhs) == 0 {
		badRequest(w, r, errors.New("missing file"))
		return
	}
	fh := fhs[0]
	f, err := fh.Open()
	if err != nil {
		httperrors.JSONInternalError(w, r, err, "open upload")
		return
	}
	defer f.Close()

	att, err := h.Tasks.AddAttachment(r.Context(), currentUser(r).ID, id, tasks.Upload{
		Name:        fh.Filename,
		ContentType: partType(fh),
		Size:        fh.Size,
		Body:        f,
	})
	if err != nil {
		writeError(w, r, err, "add attachment")
		return
	}
	httperrors.WriteJSON(w, http.StatusCreated, att)
}

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data")
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		return nil, fmt.Errorf("invalid multipart body: %w", err)
	}
	return r.MultipartForm, nil
}

func formValue(form *multipart.Form, key string) string {
	if v := form.Value[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

func partType(fh *multipart.FileHeader) string {
	if ct := fh.Header.Get("Content-Type"); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

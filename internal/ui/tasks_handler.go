package ui

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/http/errors"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
)

var errMissingFile = stderrors.New("choose a file to upload")

type taskRow struct {
	store.Task
	Category tasks.Category
	Creator  string
	Assignee string
}

type tile struct {
	Category tasks.Category
	Count    int
	Active   bool
	URL      string
}

var tileLabels = map[tasks.Category]string{
	tasks.Overdue: "Overdue",
	tasks.Today:   "Due today",
	tasks.Next:    "Upcoming",
}

func (t tile) Label() string { return tileLabels[t.Category] }

func buildTiles(nav Nav, f tasks.Filter, counts tasks.Counts) []tile {
	out := make([]tile, 0, len(tasks.Categories))
	for _, cat := range tasks.Categories {
		out = append(out, tile{
			Category: cat,
			Count:    counts.Of(cat),
			Active:   f.Category() == cat,
			URL:      nav.WithFilter(f.Toggle(cat).String()).URL(),
		})
	}
	return out
}

func rows(list []store.Task, names map[uuid.UUID]string, now time.Time) []taskRow {
	out := make([]taskRow, 0, len(list))
	for _, t := range list {
		row := taskRow{Task: t, Category: tasks.Categorize(t.DueDate, now), Creator: names[t.CreatedBy]}
		if t.AssignedTo != nil {
			row.Assignee = names[*t.AssignedTo]
		}
		out = append(out, row)
	}
	return out
}

// Dashboard lists the tasks the user created, with the create form.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	h.taskList(w, r, ScreenDashboard, h.svc.Tasks.Created)
}

// MyTasks lists the tasks assigned to the user.
func (h *Handler) MyTasks(w http.ResponseWriter, r *http.Request) {
	h.taskList(w, r, ScreenMyTasks, h.svc.Tasks.Assigned)
}

func (h *Handler) taskList(w http.ResponseWriter, r *http.Request, screen Screen, load func(context.Context, uuid.UUID) ([]store.Task, error)) {
	filter, err := tasks.ParseFilter(r.URL.Query().Get("filter"))
	if err != nil {
		filter = tasks.FilterAll
	}
	nav := Nav{Screen: screen, Filter: filter.String()}
	user, data := h.page(r, nav)

	list, err := load(r.Context(), user.ID)
	if err != nil {
		errors.LogError(r, "load tasks", err)
	}
	names, users := h.names(r)

	now := h.now()
	data["Tiles"] = buildTiles(nav, filter, tasks.Count(list, now))
	data["ShowAllURL"] = nav.WithFilter("").URL()
	data["Filtered"] = !filter.All()
	data["Tasks"] = rows(tasks.Apply(list, filter, now), names, now)
	data["Users"] = users
	data["ShowCreate"] = screen == ScreenDashboard
	data["Priorities"] = []store.Priority{store.PriorityLow, store.PriorityMedium, store.PriorityHigh}
	data["Today"] = now.Format("2006-01-02")
	h.render(w, r, "tasks.html", data)
}

// ViewTask shows one task with its attachments and comments.
func (h *Handler) ViewTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	user, data := h.page(r, Nav{Screen: ScreenMyTasks, Task: id})

	detail, err := h.svc.Tasks.Detail(r.Context(), user.ID, id)
	if stderrors.Is(err, store.ErrNotFound) {
		http.Error(w, "not found", http.StatusNotFound)
		return
	}
	if err != nil {
		errors.InternalError(w, r, err, "load task")
		return
	}
	names, _ := h.names(r)
	now := h.now()

	data["Title"] = detail.Task.Title
	data["Task"] = rows([]store.Task{detail.Task}, names, now)[0]
	data["Attachments"] = detail.Attachments
	data["Comments"] = detail.Comments
	data["Names"] = names
	data["IsCreator"] = detail.Task.CreatedBy == user.ID
	data["Statuses"] = []store.Status{store.StatusNotStarted, store.StatusInProgress, store.StatusCompleted}
	h.render(w, r, "task_view.html", data)
}

// CreateTask handles the Dashboard form. An incomplete form is ignored.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	if err := h.parseUpload(w, r); err != nil {
		if stderrors.Is(err, errUploadTooLarge) {
			h.redirect(w, r, ScreenDashboard.Path(), map[string]string{"error": err.Error()})
			return
		}
		errors.BadRequestError(w, r, err, "invalid form")
		return
	}

	in := tasks.NewTask{
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Priority:    store.Priority(r.FormValue("priority")),
	}
	if v := strings.TrimSpace(r.FormValue("assigned_to")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			errors.BadRequestError(w, r, err, "invalid assignee")
			return
		}
		in.AssignedTo = &id
	}
	if v := strings.TrimSpace(r.FormValue("due_date")); v != "" {
		due, err := time.Parse("2006-01-02", v)
		if err != nil {
			errors.BadRequestError(w, r, err, "invalid due date")
			return
		}
		in.DueDate = due
	}

	var files []tasks.Upload
	if r.MultipartForm != nil {
		defer r.MultipartForm.RemoveAll()
		for _, fh := range r.MultipartForm.File["attachments"] {
			f, err := fh.Open()
			if err != nil {
				errors.LogWarn(r, "open attachment", err)
				continue
			}
			defer f.Close()
			ct := fh.Header.Get("Content-Type")
			if ct == "" {
				ct = "application/octet-stream"
			}
			files = append(files, tasks.Upload{Name: fh.Filename, ContentType: ct, Size: fh.Size, Body: f})
		}
	}

	task, err := h.svc.Tasks.Create(r.Context(), user.ID, in, files)
	if stderrors.Is(err, tasks.ErrInvalidPriority) {
		h.redirect(w, r, ScreenDashboard.Path(), map[string]string{"error": err.Error()})
		return
	}
	if err != nil {
		errors.InternalError(w, r, err, "create task")
		return
	}
	if task == nil {
		http.Redirect(w, r, ScreenDashboard.Path(), http.StatusFound)
		return
	}
	h.redirect(w, r, ScreenDashboard.Path(), map[string]string{"status": "Task created"})
}

func (h *Handler) taskAction(w http.ResponseWriter, r *http.Request, action func(user *store.User, id uuid.UUID) error, done string) {
	user, _ := auth.UserFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	back := "/tasks/" + id.String()
	err = action(user, id)
	switch {
	case err == nil:
		h.redirect(w, r, back, map[string]string{"status": done})
	case stderrors.Is(err, store.ErrNotFound):
		http.Error(w, "not found", http.StatusNotFound)
	case stderrors.Is(err, tasks.ErrInvalidStatus), stderrors.Is(err, tasks.ErrEmptyComment), stderrors.Is(err, errMissingFile), stderrors.Is(err, errUploadTooLarge):
		h.redirect(w, r, back, map[string]string{"error": err.Error()})
	default:
		errors.InternalError(w, r, err, done)
	}
}

func (h *Handler) UpdateTaskStatus(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, func(user *store.User, id uuid.UUID) error {
		return h.svc.Tasks.UpdateStatus(r.Context(), user.ID, id, store.Status(r.FormValue("status")))
	}, "Status updated")
}

func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, func(user *store.User, id uuid.UUID) error {
		_, err := h.svc.Tasks.AddComment(r.Context(), user.ID, id, r.FormValue("comment"))
		return err
	}, "Comment added")
}

// AddAttachment uploads one more file to an existing task.
func (h *Handler) AddAttachment(w http.ResponseWriter, r *http.Request) {
	h.taskAction(w, r, func(user *store.User, id uuid.UUID) error {
		if err := h.parseUpload(w, r); err != nil {
			return err
		}
		f, fh, err := r.FormFile("attachment")
		if err != nil {
			return errMissingFile
		}
		defer f.Close()
		ct := fh.Header.Get("Content-Type")
		if ct == "" {
			ct = "application/octet-stream"
		}
		_, err = h.svc.Tasks.AddAttachment(r.Context(), user.ID, id, tasks.Upload{Name: fh.Filename, ContentType: ct, Size: fh.Size, Body: f})
		return err
	}, "Attachment added")
}

// DeleteTask removes a task the user created and returns to the Dashboard.
func (h *Handler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.UserFromContext(r.Context())
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid task id", http.StatusBadRequest)
		return
	}
	if err := h.svc.Tasks.Delete(r.Context(), user.ID, id); err != nil {
		if stderrors.Is(err, store.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		errors.InternalError(w, r, err, "delete task")
		return
	}
	h.redirect(w, r, ScreenDashboard.Path(), map[string]string{"status": "Task deleted"})
}

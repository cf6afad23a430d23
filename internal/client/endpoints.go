package client

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
	"gitea.jw6.us/james/teamtasks/internal/team"
)

type TokenResponse struct {
	Token string     `json:"token"`
	User  store.User `json:"user"`
}

type TaskList struct {
	Scope  string       `json:"scope"`
	Filter string       `json:"filter"`
	Counts tasks.Counts `json:"counts"`
	Tasks  []store.Task `json:"tasks"`
}

type TeamView struct {
	Online  int           `json:"online"`
	Members []team.Member `json:"members"`
}

type MonthView struct {
	calendar.Month
	Prev string `json:"prev"`
	Next string `json:"next"`
}

// NewTask is the body of a task creation. DueDate is YYYY-MM-DD.
type NewTask struct {
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	AssignedTo  string         `json:"assignedTo"`
	Priority    store.Priority `json:"priority,omitempty"`
	DueDate     string         `json:"dueDate"`
}

type NewEvent struct {
	Title       string          `json:"title"`
	EventType   store.EventType `json:"eventType"`
	EventDate   string          `json:"eventDate"`
	MeetingLink string          `json:"meetingLink,omitempty"`
	Notes       string          `json:"notes,omitempty"`
}

func (c *Client) SignUp(ctx context.Context, email, fullName, password, confirm string) (*TokenResponse, error) {
	out, _, err := Post[TokenResponse](ctx, c, "/api/auth/signup", map[string]string{
		"email": email, "fullName": fullName, "password": password, "confirmPassword": confirm,
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Login exchanges credentials for a bearer token and starts using it.
func (c *Client) Login(ctx context.Context, email, password string) (*TokenResponse, error) {
	out, _, err := Post[TokenResponse](ctx, c, "/api/auth/token", map[string]string{
		"email": email, "password": password,
	})
	if err != nil {
		return nil, err
	}
	c.SetToken(out.Token)
	return &out, nil
}

func (c *Client) Me(ctx context.Context) (store.User, error) {
	return Get[store.User](ctx, c, "/api/me", nil)
}

func (c *Client) Users(ctx context.Context) ([]store.User, error) {
	return Get[[]store.User](ctx, c, "/api/users", nil)
}

// UserByEmail resolves a teammate from the user listing.
func (c *Client) UserByEmail(ctx context.Context, email string) (store.User, error) {
	users, err := c.Users(ctx)
	if err != nil {
		return store.User{}, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return store.User{}, &APIError{Status: http.StatusNotFound, Message: "no user with email " + email}
}

func (c *Client) UpdateProfile(ctx context.Context, fullName string) error {
	_, err := c.doJSON(ctx, http.MethodPut, "/api/me/profile", map[string]string{"fullName": fullName}, nil)
	return err
}

func (c *Client) ChangePassword(ctx context.Context, password, confirm string) error {
	_, err := c.doJSON(ctx, http.MethodPut, "/api/me/password", map[string]string{
		"password": password, "confirmPassword": confirm,
	}, nil)
	return err
}

// Tasks lists the caller's created or assigned tasks, narrowed by filter.
func (c *Client) Tasks(ctx context.Context, scope, filter string) (TaskList, error) {
	q := url.Values{}
	if scope != "" {
		q.Set("scope", scope)
	}
	if filter != "" {
		q.Set("filter", filter)
	}
	return Get[TaskList](ctx, c, "/api/tasks", q)
}

// CreateTask returns nil without error when the server skipped an
// incomplete task.
func (c *Client) CreateTask(ctx context.Context, in NewTask, files []Upload) (*store.Task, error) {
	var (
		task    store.Task
		created bool
		err     error
	)
	if len(files) == 0 {
		task, created, err = Post[store.Task](ctx, c, "/api/tasks", in)
	} else {
		fields := map[string]string{
			"title":       in.Title,
			"description": in.Description,
			"assignedTo":  in.AssignedTo,
			"priority":    string(in.Priority),
			"dueDate":     in.DueDate,
		}
		var status int
		status, err = c.upload(ctx, "/api/tasks", fields, "files", files, &task)
		created = status != http.StatusNoContent
	}
	if err != nil || !created {
		return nil, err
	}
	return &task, nil
}

func (c *Client) Task(ctx context.Context, id uuid.UUID) (tasks.Detail, error) {
	return Get[tasks.Detail](ctx, c, "/api/tasks/"+id.String(), nil)
}

func (c *Client) SetStatus(ctx context.Context, id uuid.UUID, status store.Status) (store.Task, error) {
	return Patch[store.Task](ctx, c, "/api/tasks/"+id.String(), map[string]store.Status{"status": status})
}

func (c *Client) DeleteTask(ctx context.Context, id uuid.UUID) error {
	return Delete(ctx, c, "/api/tasks/"+id.String())
}

func (c *Client) Comment(ctx context.Context, id uuid.UUID, text string) (store.TaskComment, error) {
	out, _, err := Post[store.TaskComment](ctx, c, "/api/tasks/"+id.String()+"/comments", map[string]string{"comment": text})
	return out, err
}

func (c *Client) Attach(ctx context.Context, id uuid.UUID, file Upload) (store.TaskAttachment, error) {
	var out store.TaskAttachment
	_, err := c.upload(ctx, "/api/tasks/"+id.String()+"/attachments", nil, "file", []Upload{file}, &out)
	return out, err
}

// SetPresence upserts the caller's online flag. It satisfies
// presence.Upserter.
func (c *Client) SetPresence(ctx context.Context, online bool) error {
	_, err := c.doJSON(ctx, http.MethodPut, "/api/presence", map[string]bool{"isOnline": online}, nil)
	return err
}

func (c *Client) Team(ctx context.Context) (TeamView, error) {
	return Get[TeamView](ctx, c, "/api/team", nil)
}

func (c *Client) Unread(ctx context.Context) (map[string]int, error) {
	return Get[map[string]int](ctx, c, "/api/chat/unread", nil)
}

// Thread opens the conversation with peer; the server marks the peer's
// messages read.
func (c *Client) Thread(ctx context.Context, peer uuid.UUID) ([]store.ChatMessage, error) {
	return Get[[]store.ChatMessage](ctx, c, "/api/chat/"+peer.String(), nil)
}

// Send posts a message, with an optional attachment.
func (c *Client) Send(ctx context.Context, peer uuid.UUID, text string, file *Upload) (store.ChatMessage, error) {
	path := "/api/chat/" + peer.String()
	if file == nil {
		out, _, err := Post[store.ChatMessage](ctx, c, path, map[string]string{"message": text})
		return out, err
	}
	var out store.ChatMessage
	_, err := c.upload(ctx, path, map[string]string{"message": text}, "file", []Upload{*file}, &out)
	return out, err
}

// Month loads the grid and events for month (YYYY-MM); "" is the current
// month.
func (c *Client) Month(ctx context.Context, month string) (MonthView, error) {
	q := url.Values{}
	if month != "" {
		q.Set("month", month)
	}
	return Get[MonthView](ctx, c, "/api/calendar", q)
}

func (c *Client) CreateEvent(ctx context.Context, in NewEvent) (store.CalendarEvent, error) {
	out, _, err := Post[store.CalendarEvent](ctx, c, "/api/calendar/events", in)
	return out, err
}

func (c *Client) DeleteEvent(ctx context.Context, id uuid.UUID) error {
	return Delete(ctx, c, "/api/calendar/events/"+id.String())
}

// ExportICal streams the iCalendar export into w.
func (c *Client) ExportICal(ctx context.Context, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/calendar.ics", nil)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &APIError{Status: resp.StatusCode}
	}
	_, err = io.Copy(w, resp.Body)
	return err
}

func (c *Client) Settings(ctx context.Context) (store.Settings, error) {
	return Get[store.Settings](ctx, c, "/api/settings", nil)
}

func (c *Client) UpdateSettings(ctx context.Context, s store.Settings) (store.Settings, error) {
	return Put[store.Settings](ctx, c, "/api/settings", s)
}

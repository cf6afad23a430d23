package ui

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/textproto"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/auth"
	"gitea.jw6.us/james/teamtasks/internal/calendar"
	"gitea.jw6.us/james/teamtasks/internal/chat"
	"gitea.jw6.us/james/teamtasks/internal/config"
	"gitea.jw6.us/james/teamtasks/internal/storage"
	"gitea.jw6.us/james/teamtasks/internal/store"
	"gitea.jw6.us/james/teamtasks/internal/store/memstore"
	"gitea.jw6.us/james/teamtasks/internal/tasks"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T) (*Handler, *memstore.DB) {
	t.Helper()
	db, s := memstore.New()
	db.Now = func() time.Time { return testNow }

	cfg := &config.Config{BaseURL: "http://localhost:8080", MaxUploadBytes: 1 << 20}
	cfg.Session.Secret = strings.Repeat("s", 32)
	cfg.JWT.Secret = strings.Repeat("j", 32)

	objects, err := storage.NewLocal(t.TempDir(), "http://localhost:8080/files")
	if err != nil {
		t.Fatalf("NewLocal() error = %v", err)
	}
	h := NewHandler(cfg, s, Services{
		Auth:     auth.NewService(cfg, s, auth.NewSessionManager(cfg), auth.NewTokens(cfg.JWT.Secret)),
		Profiles: auth.NewProfiles(s, objects),
		Tasks:    tasks.NewService(s, objects, nil),
		Chat:     chat.NewService(s.Chat, objects, nil),
		Calendar: calendar.NewService(s.Calendar),
	})
	h.now = func() time.Time { return testNow }
	return h, db
}

func asUser(req *http.Request, u store.User, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	return req.WithContext(auth.WithUser(ctx, &u))
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

// postFile builds a multipart POST with the given fields and one file of
// size bytes.
func postFile(target string, fields map[string]string, field, name, contentType string, size int) *http.Request {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = mw.WriteField(k, v)
	}
	hdr := textproto.MIMEHeader{}
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, name))
	hdr.Set("Content-Type", contentType)
	part, _ := mw.CreatePart(hdr)
	_, _ = part.Write(bytes.Repeat([]byte("x"), size))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func addTask(db *memstore.DB, title string, creator, assignee uuid.UUID, due string) store.Task {
	d, _ := time.Parse("2006-01-02", due)
	t := store.Task{
		ID: uuid.New(), Title: title, CreatedBy: creator, AssignedTo: &assignee,
		Priority: store.PriorityMedium, Status: store.StatusNotStarted, DueDate: d, CreatedAt: testNow,
	}
	db.Tasks[t.ID] = t
	return t
}

func TestTaskListFilters(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")
	bob := db.AddUser("bob@example.com", "Bob")
	addTask(db, "Late report", alice.ID, bob.ID, "2026-03-09")
	addTask(db, "Standup notes", alice.ID, bob.ID, "2026-03-10")
	addTask(db, "Quarterly plan", alice.ID, bob.ID, "2026-04-01")

	testCases := []struct {
		name     string
		handler  http.HandlerFunc
		target   string
		user     store.User
		want     []string
		dontWant []string
	}{
		{name: "dashboard all", handler: h.Dashboard, target: "/dashboard", user: alice, want: []string{"Late report", "Standup notes", "Quarterly plan", "New task"}},
		{name: "dashboard overdue", handler: h.Dashboard, target: "/dashboard?filter=overdue", user: alice, want: []string{"Late report", "Show all"}, dontWant: []string{"Standup notes", "Quarterly plan"}},
		{name: "my tasks today", handler: h.MyTasks, target: "/tasks?filter=today", user: bob, want: []string{"Standup notes"}, dontWant: []string{"Late report", "New task"}},
		{name: "my tasks of creator is empty", handler: h.MyTasks, target: "/tasks", user: alice, want: []string{"No tasks."}},
		{name: "unknown filter shows all", handler: h.MyTasks, target: "/tasks?filter=bogus", user: bob, want: []string{"Late report", "Quarterly plan"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tc.handler(w, asUser(httptest.NewRequest(http.MethodGet, tc.target, nil), tc.user, nil))
			if w.Code != http.StatusOK {
				t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
			}
			body := w.Body.String()
			for _, s := range tc.want {
				if !strings.Contains(body, s) {
					t.Errorf("body missing %q", s)
				}
			}
			for _, s := range tc.dontWant {
				if strings.Contains(body, s) {
					t.Errorf("body unexpectedly contains %q", s)
				}
			}
		})
	}

	if p, ok := db.Presence[alice.ID]; !ok || !p.IsOnline {
		t.Error("page render did not record presence")
	}
}

func TestTilesToggle(t *testing.T) {
	nav := Nav{Screen: ScreenDashboard, Filter: "overdue"}
	tiles := buildTiles(nav, tasks.FilterOf(tasks.Overdue), tasks.Counts{Overdue: 2, Today: 1})
	if len(tiles) != 3 {
		t.Fatalf("tiles = %d", len(tiles))
	}
	if !tiles[0].Active || tiles[0].URL != "/dashboard" || tiles[0].Count != 2 {
		t.Errorf("active tile = %+v, want toggle back to all", tiles[0])
	}
	if tiles[1].URL != "/dashboard?filter=today" || tiles[1].Active {
		t.Errorf("today tile = %+v", tiles[1])
	}
}

func TestCreateTask(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")
	bob := db.AddUser("bob@example.com", "Bob")

	w := httptest.NewRecorder()
	h.CreateTask(w, asUser(postForm("/tasks", url.Values{"title": {"Only a title"}}), alice, nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Errorf("incomplete form: status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if len(db.Tasks) != 0 {
		t.Fatal("incomplete form created a task")
	}

	w = httptest.NewRecorder()
	h.CreateTask(w, asUser(postForm("/tasks", url.Values{
		"title":       {"Ship it"},
		"assigned_to": {bob.ID.String()},
		"due_date":    {"2026-03-12"},
		"priority":    {"High"},
	}), alice, nil))
	if w.Code != http.StatusFound || !strings.Contains(w.Header().Get("Location"), "status=") {
		t.Errorf("complete form: status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if len(db.Tasks) != 1 {
		t.Fatalf("tasks = %d, want 1", len(db.Tasks))
	}
	for _, task := range db.Tasks {
		if task.Priority != store.PriorityHigh || *task.AssignedTo != bob.ID {
			t.Errorf("task = %+v", task)
		}
	}
}

func TestViewTaskAccess(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")
	bob := db.AddUser("bob@example.com", "Bob")
	eve := db.AddUser("eve@example.com", "Eve")
	task := addTask(db, "Private work", alice.ID, bob.ID, "2026-03-11")

	testCases := []struct {
		name   string
		user   store.User
		id     string
		status int
	}{
		{name: "creator", user: alice, id: task.ID.String(), status: http.StatusOK},
		{name: "assignee", user: bob, id: task.ID.String(), status: http.StatusOK},
		{name: "outsider", user: eve, id: task.ID.String(), status: http.StatusNotFound},
		{name: "bad id", user: alice, id: "nope", status: http.StatusBadRequest},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := asUser(httptest.NewRequest(http.MethodGet, "/tasks/"+tc.id, nil), tc.user, map[string]string{"id": tc.id})
			h.ViewTask(w, req)
			if w.Code != tc.status {
				t.Errorf("status = %d, want %d", w.Code, tc.status)
			}
		})
	}

	w := httptest.NewRecorder()
	h.ViewTask(w, asUser(httptest.NewRequest(http.MethodGet, "/", nil), bob, map[string]string{"id": task.ID.String()}))
	if strings.Contains(w.Body.String(), "Delete task") {
		t.Error("assignee was offered the delete button")
	}
}

func TestEmployeesOpensThread(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")
	bob := db.AddUser("bob@example.com", "Bob")
	db.Messages = append(db.Messages,
		store.ChatMessage{ID: uuid.New(), SenderID: bob.ID, ReceiverID: alice.ID, Message: "ping", CreatedAt: testNow},
		store.ChatMessage{ID: uuid.New(), SenderID: alice.ID, ReceiverID: bob.ID, Message: "pong", CreatedAt: testNow.Add(time.Minute)},
	)

	w := httptest.NewRecorder()
	h.Employees(w, asUser(httptest.NewRequest(http.MethodGet, "/employees", nil), alice, nil))
	if !strings.Contains(w.Body.String(), `class="badge">1<`) {
		t.Errorf("roster missing unread badge:\n%s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `data-refresh="5"`) {
		t.Error("roster page does not refresh every 5 seconds")
	}

	w = httptest.NewRecorder()
	h.Employees(w, asUser(httptest.NewRequest(http.MethodGet, "/employees?chat="+bob.ID.String(), nil), alice, nil))
	body := w.Body.String()
	if !strings.Contains(body, "Chat with Bob") || strings.Index(body, "ping") > strings.Index(body, "pong") {
		t.Errorf("thread not rendered in order:\n%s", body)
	}
	if !strings.Contains(body, `data-refresh="3"`) {
		t.Error("open thread does not refresh every 3 seconds")
	}
	for _, want := range []string{`name="csrf-token"`, "visibilitychange", "pagehide", "/api/presence", "keepalive: true"} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing presence hook %q", want)
		}
	}
	for _, m := range db.Messages {
		if m.ReceiverID == alice.ID && !m.IsRead {
			t.Error("opening the thread did not mark it read")
		}
		if m.SenderID == alice.ID && m.IsRead {
			t.Error("opening the thread altered the viewer's own message")
		}
	}

	w = httptest.NewRecorder()
	h.Employees(w, asUser(httptest.NewRequest(http.MethodGet, "/employees?chat="+alice.ID.String(), nil), alice, nil))
	if w.Code != http.StatusNotFound {
		t.Errorf("chat with self status = %d, want 404", w.Code)
	}
}

func TestSendMessage(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")
	bob := db.AddUser("bob@example.com", "Bob")

	params := map[string]string{"id": bob.ID.String()}
	w := httptest.NewRecorder()
	h.SendMessage(w, asUser(postForm("/employees/"+bob.ID.String()+"/messages", url.Values{"message": {"hello"}}), alice, params))
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	if len(db.Messages) != 1 || db.Messages[0].IsRead || db.Messages[0].ReceiverID != bob.ID {
		t.Errorf("messages = %+v", db.Messages)
	}

	w = httptest.NewRecorder()
	h.SendMessage(w, asUser(postForm("/", url.Values{"message": {"   "}}), alice, params))
	if loc := w.Header().Get("Location"); !strings.Contains(loc, "error=") {
		t.Errorf("blank message location = %q", loc)
	}
}

func TestCalendarPage(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")
	id := uuid.New()
	db.Events[id] = store.CalendarEvent{ID: id, UserID: alice.ID, Title: "Offsite", EventType: store.EventLeave, EventDate: "2026-03-20"}

	w := httptest.NewRecorder()
	h.Calendar(w, asUser(httptest.NewRequest(http.MethodGet, "/calendar?day=2026-03-20", nil), alice, nil))
	body := w.Body.String()
	for _, s := range []string{"March 2026", "Offsite", "month=2026-02", "month=2026-04", `name="_method" value="DELETE"`} {
		if !strings.Contains(body, s) {
			t.Errorf("calendar missing %q", s)
		}
	}

	w = httptest.NewRecorder()
	h.CreateEvent(w, asUser(postForm("/calendar/events", url.Values{"title": {""}, "event_type": {"Meeting"}, "event_date": {"2026-03-21"}}), alice, nil))
	if loc := w.Header().Get("Location"); !strings.HasPrefix(loc, "/calendar?month=2026-03") || !strings.Contains(loc, "error=") {
		t.Errorf("invalid event location = %q", loc)
	}

	other := db.AddUser("bob@example.com", "Bob")
	w = httptest.NewRecorder()
	h.DeleteEvent(w, asUser(postForm("/", nil), other, map[string]string{"id": id.String()}))
	if w.Code != http.StatusNotFound {
		t.Errorf("non-owner delete status = %d", w.Code)
	}
}

func TestChangePasswordErrors(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")

	testCases := []struct {
		password, confirm, want string
	}{
		{"short", "short", "password+too+short"},
		{"longenough", "different", "passwords+do+not+match"},
	}
	for _, tc := range testCases {
		w := httptest.NewRecorder()
		h.ChangePassword(w, asUser(postForm("/settings/password", url.Values{"password": {tc.password}, "confirm_password": {tc.confirm}}), alice, nil))
		if loc := w.Header().Get("Location"); !strings.Contains(loc, "error="+tc.want) {
			t.Errorf("location = %q, want error %q", loc, tc.want)
		}
	}
}

func TestUpdateSettingsReadsCheckboxes(t *testing.T) {
	h, db := newTestHandler(t)
	alice := db.AddUser("alice@example.com", "Alice")

	w := httptest.NewRecorder()
	h.UpdateSettings(w, asUser(postForm("/settings", url.Values{"task_reminders": {"on"}}), alice, nil))
	if w.Code != http.StatusFound {
		t.Fatalf("status = %d", w.Code)
	}
	s := db.Settings[alice.ID]
	if !s.TaskReminders || s.EmailNotifications || s.NotificationSound {
		t.Errorf("settings = %+v", s)
	}
}

func TestLoginAndLogout(t *testing.T) {
	h, db := newTestHandler(t)
	if _, err := h.svc.Auth.SignUp(context.Background(), "ada@example.com", "Ada", "analytical", "analytical"); err != nil {
		t.Fatal(err)
	}

	w := httptest.NewRecorder()
	h.Login(w, postForm("/login", url.Values{"email": {"ada@example.com"}, "password": {"wrong-password"}}))
	if w.Code != http.StatusUnauthorized || !strings.Contains(w.Body.String(), "invalid email or password") {
		t.Errorf("bad login: status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	h.Login(w, postForm("/login", url.Values{"email": {"ada@example.com"}, "password": {"analytical"}}))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/dashboard" {
		t.Fatalf("login: status = %d, location = %q", w.Code, w.Header().Get("Location"))
	}
	if len(w.Result().Cookies()) == 0 {
		t.Fatal("login did not set a session cookie")
	}

	var user store.User
	for _, u := range db.Users {
		user = u
	}
	if !db.Presence[user.ID].IsOnline {
		t.Error("login did not mark the user online")
	}

	w = httptest.NewRecorder()
	h.Logout(w, asUser(postForm("/logout", nil), user, nil))
	if w.Header().Get("Location") != "/login" {
		t.Errorf("logout location = %q", w.Header().Get("Location"))
	}
	if db.Presence[user.ID].IsOnline {
		t.Error("logout did not mark the user offline")
	}
}

func TestUploadsRespectLimit(t *testing.T) {
	const tooBig = 2 << 20 // newTestHandler allows 1 MiB

	tests := []struct {
		name    string
		handler func(h *Handler) http.HandlerFunc
		request func(alice, bob store.User, task store.Task) *http.Request
		stored  func(db *memstore.DB, alice store.User) bool
	}{
		{
			name:    "chat attachment",
			handler: func(h *Handler) http.HandlerFunc { return h.SendMessage },
			request: func(alice, bob store.User, _ store.Task) *http.Request {
				req := postFile("/employees/"+bob.ID.String()+"/messages", map[string]string{"message": "see file"}, "attachment", "big.bin", "application/octet-stream", tooBig)
				return asUser(req, alice, map[string]string{"id": bob.ID.String()})
			},
			stored: func(db *memstore.DB, _ store.User) bool { return len(db.Messages) > 0 },
		},
		{
			name:    "task create",
			handler: func(h *Handler) http.HandlerFunc { return h.CreateTask },
			request: func(alice, bob store.User, _ store.Task) *http.Request {
				fields := map[string]string{"title": "Report", "due_date": "2026-03-12", "assigned_to": bob.ID.String()}
				return asUser(postFile("/tasks", fields, "attachments", "big.pdf", "application/pdf", tooBig), alice, nil)
			},
			stored: func(db *memstore.DB, _ store.User) bool { return len(db.Tasks) > 1 || len(db.Attachments) > 0 },
		},
		{
			name:    "task attachment",
			handler: func(h *Handler) http.HandlerFunc { return h.AddAttachment },
			request: func(alice, _ store.User, task store.Task) *http.Request {
				req := postFile("/tasks/"+task.ID.String()+"/attachments", nil, "attachment", "big.pdf", "application/pdf", tooBig)
				return asUser(req, alice, map[string]string{"id": task.ID.String()})
			},
			stored: func(db *memstore.DB, _ store.User) bool { return len(db.Attachments) > 0 },
		},
		{
			name:    "profile photo",
			handler: func(h *Handler) http.HandlerFunc { return h.UploadPhoto },
			request: func(alice, _ store.User, _ store.Task) *http.Request {
				return asUser(postFile("/settings/photo", nil, "photo", "me.png", "image/png", tooBig), alice, nil)
			},
			stored: func(db *memstore.DB, alice store.User) bool {
				s, ok := db.Settings[alice.ID]
				return ok && s.ProfilePhotoURL != nil
			},
		},
	}

	for _, tt := range tests {
		for _, chunked := range []bool{false, true} {
			t.Run(fmt.Sprintf("%s/chunked=%t", tt.name, chunked), func(t *testing.T) {
				h, db := newTestHandler(t)
				alice := db.AddUser("alice@example.com", "Alice")
				bob := db.AddUser("bob@example.com", "Bob")
				task := addTask(db, "Existing", alice.ID, bob.ID, "2026-03-11")

				req := tt.request(alice, bob, task)
				if chunked {
					req.ContentLength = -1
				}
				w := httptest.NewRecorder()
				tt.handler(h)(w, req)

				if tt.stored(db, alice) {
					t.Fatalf("over-limit upload was stored (status %d)", w.Code)
				}
				if !chunked && !strings.Contains(w.Header().Get("Location"), "error=file+is+too+large") {
					t.Errorf("location = %q, want too-large error", w.Header().Get("Location"))
				}
			})
		}
	}

	t.Run("within limit", func(t *testing.T) {
		h, db := newTestHandler(t)
		alice := db.AddUser("alice@example.com", "Alice")
		bob := db.AddUser("bob@example.com", "Bob")

		req := postFile("/employees/"+bob.ID.String()+"/messages", map[string]string{"message": "small"}, "attachment", "notes.txt", "text/plain", 512)
		h.SendMessage(httptest.NewRecorder(), asUser(req, alice, map[string]string{"id": bob.ID.String()}))
		if len(db.Messages) != 1 || !db.Messages[0].HasAttachment {
			t.Fatalf("messages = %+v", db.Messages)
		}
	})
}

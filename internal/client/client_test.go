package client

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"gitea.jw6.us/james/teamtasks/internal/store"
)

func TestGetSendsBearerAndDecodes(t *testing.T) {
	var gotAuth, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotQuery = r.URL.RawQuery
		_ = json.NewEncoder(w).Encode(TaskList{Scope: "created", Filter: "today", Tasks: []store.Task{{Title: "A"}}})
	}))
	defer srv.Close()

	c := New(srv.URL+"/", "tok")
	list, err := c.Tasks(context.Background(), "created", "today")
	if err != nil {
		t.Fatalf("Tasks() error = %v", err)
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotQuery != "filter=today&scope=created" {
		t.Errorf("query = %q", gotQuery)
	}
	if len(list.Tasks) != 1 || list.Tasks[0].Title != "A" {
		t.Errorf("list = %+v", list)
	}
}

func TestErrorsCarryStatusAndMessage(t *testing.T) {
	testCases := []struct {
		name         string
		status       int
		body         string
		notFound     bool
		unauthorized bool
		message      string
	}{
		{name: "not found", status: http.StatusNotFound, body: `{"error":"not found"}`, notFound: true, message: "not found"},
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":"authentication required"}`, unauthorized: true, message: "authentication required"},
		{name: "non-json body", status: http.StatusBadGateway, body: "<html>", message: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				_, _ = io.WriteString(w, tc.body)
			}))
			defer srv.Close()

			_, err := New(srv.URL, "").Me(context.Background())
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *APIError", err)
			}
			if apiErr.Status != tc.status || apiErr.Message != tc.message {
				t.Errorf("APIError = %+v", apiErr)
			}
			if IsNotFound(err) != tc.notFound {
				t.Errorf("IsNotFound = %v", IsNotFound(err))
			}
			if errors.Is(err, ErrUnauthorized) != tc.unauthorized {
				t.Errorf("errors.Is(ErrUnauthorized) = %v", errors.Is(err, ErrUnauthorized))
			}
		})
	}
}

func TestLoginStoresToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/auth/token":
			var in map[string]string
			_ = json.NewDecoder(r.Body).Decode(&in)
			if in["password"] != "secret123" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(TokenResponse{Token: "issued"})
		case "/api/me":
			if r.Header.Get("Authorization") != "Bearer issued" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			_ = json.NewEncoder(w).Encode(store.User{Email: "ada@example.com"})
		}
	}))
	defer srv.Close()

	c := New(srv.URL, "")
	if _, err := c.Login(context.Background(), "ada@example.com", "wrong"); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("bad login error = %v", err)
	}
	if _, err := c.Login(context.Background(), "ada@example.com", "secret123"); err != nil {
		t.Fatal(err)
	}
	me, err := c.Me(context.Background())
	if err != nil || me.Email != "ada@example.com" {
		t.Errorf("Me() = %+v, %v", me, err)
	}
}

func TestCreateTaskSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	task, err := New(srv.URL, "t").CreateTask(context.Background(), NewTask{Title: "only title"}, nil)
	if err != nil || task != nil {
		t.Errorf("CreateTask() = %v, %v; want nil, nil", task, err)
	}
}

func TestCreateTaskMultipart(t *testing.T) {
	assignee := uuid.New()
	var (
		fields map[string]string
		files  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		fields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			fields[k] = v[0]
		}
		for _, fh := range r.MultipartForm.File["files"] {
			f, _ := fh.Open()
			body, _ := io.ReadAll(f)
			f.Close()
			files = append(files, fh.Filename+":"+string(body))
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(store.Task{Title: fields["title"]})
	}))
	defer srv.Close()

	task, err := New(srv.URL, "t").CreateTask(context.Background(), NewTask{
		Title: "Report", AssignedTo: assignee.String(), DueDate: "2026-03-12",
	}, []Upload{
		{Name: "a.txt", Body: strings.NewReader("alpha")},
		{Name: "b.txt", ContentType: "text/plain", Body: strings.NewReader("beta")},
	})
	if err != nil {
		t.Fatalf("CreateTask() error = %v", err)
	}
	if task == nil || task.Title != "Report" {
		t.Fatalf("task = %+v", task)
	}
	if fields["assignedTo"] != assignee.String() || fields["dueDate"] != "2026-03-12" {
		t.Errorf("fields = %v", fields)
	}
	if _, ok := fields["priority"]; ok {
		t.Error("empty priority should not be sent")
	}
	if strings.Join(files, ",") != "a.txt:alpha,b.txt:beta" {
		t.Errorf("files = %v", files)
	}
}

func TestPoll(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var calls atomic.Int32
	done := make(chan struct{})
	go func() {
		Poll(ctx, 10*time.Millisecond, func(context.Context) error {
			if calls.Add(1) == 3 {
				cancel()
			}
			return errors.New("transient")
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Poll did not stop after cancel")
	}
	if n := calls.Load(); n < 3 {
		t.Errorf("calls = %d, want at least 3", n)
	}
}

func TestPollRunsImmediately(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan struct{}, 1)
	go Poll(ctx, time.Hour, func(context.Context) error {
		first <- struct{}{}
		return nil
	})
	defer cancel()

	select {
	case <-first:
	case <-time.After(time.Second):
		t.Fatal("Poll did not call fn before the first tick")
	}
}

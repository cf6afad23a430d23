package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// recordingQuerier captures statements and returns a fixed affected-row count.
type recordingQuerier struct {
	sql      []string
	args     [][]any
	affected int64
	rowErr   error
}

func (q *recordingQuerier) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, arguments)
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", q.affected)), nil
}

func (q *recordingQuerier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return nil, errors.New("query not supported by recordingQuerier")
}

func (q *recordingQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	q.sql = append(q.sql, sql)
	q.args = append(q.args, args)
	return fakeRow{err: q.rowErr}
}

func (q *recordingQuerier) Ping(ctx context.Context) error { return nil }

func TestTaskDeleteScopedToCreator(t *testing.T) {
	q := &recordingQuerier{affected: 0}
	s := newWithQuerier(q)
	actor, id := uuid.New(), uuid.New()

	err := s.Tasks.Delete(context.Background(), actor, id)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Delete() error = %v, want ErrNotFound when no row matched", err)
	}
	if !regexp.MustCompile(`DELETE FROM tasks WHERE id = \$1 AND created_by = \$2`).MatchString(q.sql[0]) {
		t.Errorf("unexpected delete statement: %s", q.sql[0])
	}
	if q.args[0][0] != id || q.args[0][1] != actor {
		t.Errorf("unexpected args: %v", q.args[0])
	}
}

func TestTaskUpdateStatusAllowsCreatorOrAssignee(t *testing.T) {
	q := &recordingQuerier{affected: 1}
	s := newWithQuerier(q)

	if err := s.Tasks.UpdateStatus(context.Background(), uuid.New(), uuid.New(), StatusCompleted); err != nil {
		t.Fatalf("UpdateStatus() error = %v", err)
	}
	if !regexp.MustCompile(`created_by = \$2 OR assigned_to = \$2`).MatchString(q.sql[0]) {
		t.Errorf("status update is not scoped to participants: %s", q.sql[0])
	}
	if q.args[0][2] != "Completed" {
		t.Errorf("status arg = %v, want Completed", q.args[0][2])
	}
}

func TestChatMarkReadOnlyTouchesReceiverRows(t *testing.T) {
	q := &recordingQuerier{affected: 3}
	s := newWithQuerier(q)
	viewer, peer := uuid.New(), uuid.New()

	n, err := s.Chat.MarkRead(context.Background(), viewer, peer)
	if err != nil {
		t.Fatalf("MarkRead() error = %v", err)
	}
	if n != 3 {
		t.Errorf("MarkRead() = %d, want 3", n)
	}
	if !regexp.MustCompile(`WHERE receiver_id = \$1 AND sender_id = \$2 AND NOT is_read`).MatchString(q.sql[0]) {
		t.Errorf("unexpected mark read statement: %s", q.sql[0])
	}
	if q.args[0][0] != viewer || q.args[0][1] != peer {
		t.Errorf("unexpected args: %v", q.args[0])
	}
}

func TestGetTranslatesNoRows(t *testing.T) {
	q := &recordingQuerier{rowErr: pgx.ErrNoRows}
	s := newWithQuerier(q)

	if _, err := s.Users.GetByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByEmail() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Tasks.GetVisible(context.Background(), uuid.New(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetVisible() error = %v, want ErrNotFound", err)
	}
	if _, err := s.Settings.Get(context.Background(), uuid.New()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Settings.Get() error = %v, want ErrNotFound", err)
	}
}

func TestTranslateUniqueViolation(t *testing.T) {
	err := translate(&pgconn.PgError{Code: "23505"})
	if !errors.Is(err, ErrConflict) {
		t.Errorf("translate() = %v, want ErrConflict", err)
	}
	other := errors.New("boom")
	if translate(other) != other {
		t.Error("translate() should pass unknown errors through")
	}
}

func TestCalendarDeleteScopedToOwner(t *testing.T) {
	q := &recordingQuerier{affected: 1}
	s := newWithQuerier(q)

	if err := s.Calendar.Delete(context.Background(), uuid.New(), uuid.New()); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if !regexp.MustCompile(`DELETE FROM calendar_events WHERE id = \$1 AND user_id = \$2`).MatchString(q.sql[0]) {
		t.Errorf("unexpected delete statement: %s", q.sql[0])
	}
}

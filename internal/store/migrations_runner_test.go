package store

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"gitea.jw6.us/james/teamtasks/internal/migrations"
)

func TestApplyMigrations(t *testing.T) {
	tests := []struct {
		name      string
		tracked   bool
		tables    int
		applied   []string
		failOn    string
		wantRan   []string
		wantState []string
		wantErr   bool
	}{
		{
			name:      "fresh database",
			wantRan:   []string{"001_init.sql", "002_profile_photo_key.sql"},
			wantState: []string{"001_init.sql", "002_profile_photo_key.sql"},
		},
		{
			name:      "existing tables without tracking",
			tables:    5,
			wantRan:   []string{"002_profile_photo_key.sql"},
			wantState: []string{"001_init.sql", "002_profile_photo_key.sql"},
		},
		{
			name:      "partially migrated",
			tracked:   true,
			applied:   []string{"001_init.sql"},
			wantRan:   []string{"002_profile_photo_key.sql"},
			wantState: []string{"001_init.sql", "002_profile_photo_key.sql"},
		},
		{
			name:      "up to date",
			tracked:   true,
			applied:   []string{"001_init.sql", "002_profile_photo_key.sql"},
			wantState: []string{"001_init.sql", "002_profile_photo_key.sql"},
		},
		{
			name:      "failing migration is not recorded",
			tracked:   true,
			applied:   []string{"001_init.sql"},
			failOn:    "002_profile_photo_key.sql",
			wantState: []string{"001_init.sql"},
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := newFakeMigrationDB(t, tt.tracked, tt.tables, tt.applied...)
			db.failOn = tt.failOn

			err := ApplyMigrations(context.Background(), db)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ApplyMigrations() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !db.tracked {
				t.Error("schema_migrations was not created")
			}
			if !reflect.DeepEqual(db.ran, tt.wantRan) {
				t.Errorf("ran %v, want %v", db.ran, tt.wantRan)
			}
			if got := db.versions(); !reflect.DeepEqual(got, tt.wantState) {
				t.Errorf("recorded %v, want %v", got, tt.wantState)
			}
			if tt.wantErr && db.rollbacks != 1 {
				t.Errorf("rollbacks = %d, want 1", db.rollbacks)
			}
			if !tt.wantErr && db.rollbacks != 0 {
				t.Errorf("unexpected rollback")
			}
		})
	}
}

func TestApplyMigrationsQueryError(t *testing.T) {
	db := newFakeMigrationDB(t, false, 0)
	db.queryErr = errors.New("connection reset")

	err := ApplyMigrations(context.Background(), db)
	if !errors.Is(err, db.queryErr) {
		t.Fatalf("expected wrapped query error, got %v", err)
	}
	if len(db.ran) != 0 {
		t.Fatalf("nothing should run, ran %v", db.ran)
	}
}

// fakeMigrationDB models just enough of Postgres to drive ApplyMigrations:
// whether schema_migrations exists, how many tables there are, and which
// versions are recorded.
type fakeMigrationDB struct {
	t        *testing.T
	tracked  bool
	tables   int
	applied  map[string]bool
	bodies   map[string]string
	failOn   string
	queryErr error

	ran       []string
	rollbacks int
}

func newFakeMigrationDB(t *testing.T, tracked bool, tables int, applied ...string) *fakeMigrationDB {
	t.Helper()
	names, err := listMigrationFiles()
	if err != nil {
		t.Fatalf("list migrations: %v", err)
	}
	db := &fakeMigrationDB{
		t:       t,
		tracked: tracked,
		tables:  tables,
		applied: map[string]bool{},
		bodies:  map[string]string{},
	}
	for _, name := range names {
		b, err := migrations.Files.ReadFile(name)
		if err != nil {
			t.Fatalf("read %s: %v", name, err)
		}
		db.bodies[string(b)] = name
	}
	for _, v := range applied {
		db.applied[v] = true
	}
	return db
}

func (db *fakeMigrationDB) versions() []string {
	var out []string
	for _, name := range []string{"001_init.sql", "002_profile_photo_key.sql"} {
		if db.applied[name] {
			out = append(out, name)
		}
	}
	return out
}

func (db *fakeMigrationDB) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if db.queryErr != nil {
		return fakeRow{err: db.queryErr}
	}
	switch sql {
	case qMigrationTableExists:
		return fakeRow{val: db.tracked}
	case qCountTables:
		return fakeRow{val: db.tables}
	case qMigrationApplied:
		return fakeRow{val: db.applied[args[0].(string)]}
	}
	db.t.Fatalf("unexpected query %q", sql)
	return nil
}

func (db *fakeMigrationDB) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	switch sql {
	case qCreateMigrationTable:
		db.tracked = true
	case qRecordMigration:
		if !db.tracked {
			return pgconn.CommandTag{}, errors.New(`relation "schema_migrations" does not exist`)
		}
		db.applied[args[0].(string)] = true
	default:
		db.t.Fatalf("unexpected exec %q", sql)
	}
	return pgconn.NewCommandTag("OK"), nil
}

func (db *fakeMigrationDB) BeginTx(ctx context.Context, _ pgx.TxOptions) (pgx.Tx, error) {
	return &fakeMigrationTx{db: db}, nil
}

// fakeMigrationTx buffers recorded versions until Commit. Methods the runner
// never calls fall through to the nil embedded interface.
type fakeMigrationTx struct {
	pgx.Tx
	db     *fakeMigrationDB
	ran    []string
	record []string
}

func (tx *fakeMigrationTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	if sql == qRecordMigration {
		tx.record = append(tx.record, args[0].(string))
		return pgconn.NewCommandTag("INSERT 0 1"), nil
	}
	name, ok := tx.db.bodies[sql]
	if !ok {
		tx.db.t.Fatalf("unexpected statement in transaction: %.40q", sql)
	}
	if name == tx.db.failOn {
		return pgconn.CommandTag{}, fmt.Errorf("syntax error in %s", name)
	}
	tx.ran = append(tx.ran, name)
	return pgconn.NewCommandTag("OK"), nil
}

func (tx *fakeMigrationTx) Commit(ctx context.Context) error {
	tx.db.ran = append(tx.db.ran, tx.ran...)
	for _, v := range tx.record {
		tx.db.applied[v] = true
	}
	return nil
}

func (tx *fakeMigrationTx) Rollback(ctx context.Context) error {
	tx.db.rollbacks++
	return nil
}

type fakeRow struct {
	val any
	err error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	switch d := dest[0].(type) {
	case *bool:
		*d = r.val.(bool)
	case *int:
		*d = r.val.(int)
	default:
		return fmt.Errorf("fakeRow: unsupported destination %T", d)
	}
	return nil
}

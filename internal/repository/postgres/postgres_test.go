package postgres

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"testing"
)

// stubDriver answers every query with the number of single-column rows named
// by the DSN ("0" or "1").
type stubDriver struct{}

func (stubDriver) Open(dsn string) (driver.Conn, error) { return stubConn{rows: dsn == "1"}, nil }

type stubConn struct{ rows bool }

func (c stubConn) Prepare(string) (driver.Stmt, error) { return stubStmt(c), nil }
func (stubConn) Close() error                            { return nil }
func (stubConn) Begin() (driver.Tx, error)               { return nil, errors.New("not supported") }

type stubStmt struct{ rows bool }

func (stubStmt) Close() error                                { return nil }
func (stubStmt) NumInput() int                               { return -1 }
func (stubStmt) Exec([]driver.Value) (driver.Result, error) { return nil, errors.New("not supported") }
func (s stubStmt) Query([]driver.Value) (driver.Rows, error) { return &stubRows{left: s.rows}, nil }

type stubRows struct{ left bool }

func (*stubRows) Columns() []string { return []string{"id"} }
func (*stubRows) Close() error      { return nil }
func (r *stubRows) Next(dest []driver.Value) error {
	if !r.left {
		return io.EOF
	}
	r.left = false
	dest[0] = int64(7)
	return nil
}

func init() {
	sql.Register("pgstub", stubDriver{})
}

func newStubRepo(t *testing.T, rows string) *Repository {
	t.Helper()
	db, err := sql.Open("pgstub", rows)
	if err != nil {
		t.Fatalf("open stub: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return &Repository{db: db}
}

func TestNewOpenError(t *testing.T) {
	orig := sqlOpen
	t.Cleanup(func() { sqlOpen = orig })

	var gotDriver, gotDSN string
	sqlOpen = func(driver, dsn string) (*sql.DB, error) {
		gotDriver, gotDSN = driver, dsn
		return nil, errors.New("boom")
	}

	_, err := New(context.Background(), "  ")
	if err == nil {
		t.Fatal("expected error")
	}
	if gotDriver != "pgx" {
		t.Errorf("expected pgx driver, got %q", gotDriver)
	}
	if gotDSN != defaultDSN {
		t.Errorf("expected default DSN, got %q", gotDSN)
	}
}

func TestNewPingError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Unreachable port and a cancelled context fail the ping without a server
	_, err := New(ctx, "postgres://127.0.0.1:1/none?sslmode=disable&connect_timeout=1")
	if err == nil {
		t.Fatal("expected ping error")
	}
}

func TestNullable(t *testing.T) {
	if nullable("").Valid {
		t.Error("empty string should be NULL")
	}
	if ns := nullable("x"); !ns.Valid || ns.String != "x" {
		t.Errorf("unexpected %v", ns)
	}
}

func TestHasWhitelistMAC(t *testing.T) {
	tests := []struct {
		name string
		rows string
		want bool
	}{
		{"no rows", "0", false},
		{"match", "1", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := newStubRepo(t, tt.rows).HasWhitelistMAC(context.Background(), "aa:bb:cc:dd:ee:01")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

package sqlite

import (
	"context"
	"database/sql"
	"reflect"
	"testing"
	"time"

	"anchorwatch/internal/domain"
)

// ============================================================================
// Test Helpers
// ============================================================================

// newTestRepo creates an in-memory SQLite repository for testing
func newTestRepo(t *testing.T) *Repository {
	t.Helper()
	repo, err := New(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	t.Cleanup(func() {
		repo.Close()
	})
	return repo
}

// assertNoError fails the test if err is not nil
func assertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// assertEqual fails the test if expected != actual
func assertEqual(t *testing.T, expected, actual interface{}) {
	t.Helper()
	if !reflect.DeepEqual(expected, actual) {
		t.Fatalf("expected %v, got %v", expected, actual)
	}
}

// ============================================================================
// Helper Function Tests
// ============================================================================

func TestNullConversions(t *testing.T) {
	assertEqual(t, "", nullToString(sql.NullString{}))
	assertEqual(t, "x", nullToString(sql.NullString{String: "x", Valid: true}))
	assertEqual(t, sql.NullString{}, stringToNull(""))
	assertEqual(t, sql.NullString{String: "x", Valid: true}, stringToNull("x"))
}

func TestTimeRoundTrip(t *testing.T) {
	ts := time.Date(2025, 3, 4, 5, 6, 7, 0, time.UTC)
	assertEqual(t, ts, parseTime(formatTime(ts)))
	assertEqual(t, time.Time{}, parseTime("garbage"))
}

// ============================================================================
// Detection Tests
// ============================================================================

func TestInsertAndListDetections(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	d := &domain.Detection{AnchorID: "Anchor_1", SSID: "Router_X", MAC: "AA:BB:CC:DD:EE:FF", RSSI: -61, Block: 4}
	assertNoError(t, repo.InsertDetection(ctx, d))
	if d.ID == 0 {
		t.Fatal("expected ID to be set")
	}

	got, err := repo.ListDetections(ctx, 50)
	assertNoError(t, err)
	assertEqual(t, []domain.Detection{*d}, got)
}

func TestListDetectionsNullColumns(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	assertNoError(t, repo.InsertDetection(ctx, &domain.Detection{AnchorID: "Anchor_2", RSSI: -80}))

	got, err := repo.ListDetections(ctx, 10)
	assertNoError(t, err)
	if len(got) != 1 {
		t.Fatalf("expected 1 detection, got %d", len(got))
	}
	assertEqual(t, "", got[0].SSID)
	assertEqual(t, "", got[0].MAC)

	var nulls int
	err = repo.db.QueryRow(`SELECT COUNT(*) FROM espData WHERE ssid IS NULL AND mac IS NULL`).Scan(&nulls)
	assertNoError(t, err)
	assertEqual(t, 1, nulls)
}

func TestListDetectionsBounded(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 60; i++ {
		assertNoError(t, repo.InsertDetection(ctx, &domain.Detection{AnchorID: "Anchor_1", RSSI: -40 - i}))
	}

	got, err := repo.ListDetections(ctx, 50)
	assertNoError(t, err)
	assertEqual(t, 50, len(got))

	// Most recent slice, oldest first
	assertEqual(t, -50, got[0].RSSI)
	assertEqual(t, -99, got[49].RSSI)
}

func TestListDetectionsDefaultLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 55; i++ {
		assertNoError(t, repo.InsertDetection(ctx, &domain.Detection{AnchorID: "a", RSSI: -50}))
	}

	got, err := repo.ListDetections(ctx, 0)
	assertNoError(t, err)
	assertEqual(t, 50, len(got))
}

// ============================================================================
// Whitelist Tests
// ============================================================================

func TestWhitelist(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	t.Run("empty whitelist", func(t *testing.T) {
		entries, err := repo.ListWhitelist(ctx)
		assertNoError(t, err)
		assertEqual(t, 0, len(entries))
	})

	t.Run("insert and list", func(t *testing.T) {
		entry := &domain.WhitelistEntry{MAC: "aa:bb:cc:dd:ee:ff"}
		assertNoError(t, repo.InsertWhitelist(ctx, entry))
		if entry.ID == 0 || entry.CreatedAt.IsZero() {
			t.Fatalf("expected ID and CreatedAt to be set, got %+v", entry)
		}

		entries, err := repo.ListWhitelist(ctx)
		assertNoError(t, err)
		assertEqual(t, 1, len(entries))
		assertEqual(t, "aa:bb:cc:dd:ee:ff", entries[0].MAC)
		assertEqual(t, entry.CreatedAt, entries[0].CreatedAt)
	})

	t.Run("exact match lookup", func(t *testing.T) {
		found, err := repo.HasWhitelistMAC(ctx, "aa:bb:cc:dd:ee:ff")
		assertNoError(t, err)
		assertEqual(t, true, found)

		found, err = repo.HasWhitelistMAC(ctx, "AA:BB:CC:DD:EE:FF")
		assertNoError(t, err)
		assertEqual(t, false, found)
	})

	t.Run("rejects empty mac", func(t *testing.T) {
		if err := repo.InsertWhitelist(ctx, &domain.WhitelistEntry{MAC: " "}); err == nil {
			t.Error("expected error for empty mac")
		}
	})
}

func TestClosedRepositoryFails(t *testing.T) {
	repo, err := New(":memory:")
	assertNoError(t, err)
	assertNoError(t, repo.Close())

	if _, err := repo.ListDetections(context.Background(), 10); err == nil {
		t.Error("expected error from closed repository")
	}
	if _, err := repo.ListWhitelist(context.Background()); err == nil {
		t.Error("expected error from closed repository")
	}
}

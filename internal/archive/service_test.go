package archive

import (
	"reflect"
	"testing"
)

func testGrid(cell string) [][]string {
	return [][]string{
		{"Date", "Habits"},
		{"Date", "Read"},
		{"2024-01-01", cell},
	}
}

func TestCommitGridLifecycle(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.CommitGrid("usr_1", testGrid("1/3"), "write state")
	if err != nil {
		t.Fatalf("CommitGrid() error = %v", err)
	}
	if first.Hash == "" {
		t.Fatal("expected commit hash")
	}

	second, err := svc.CommitGrid("usr_1", testGrid("2/3"), "write state")
	if err != nil {
		t.Fatalf("CommitGrid() error = %v", err)
	}
	if second.Hash == first.Hash {
		t.Fatal("distinct grids must produce distinct commits")
	}

	versions, err := svc.Versions("usr_1", 10)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("version count = %d, want 2", len(versions))
	}
	if versions[0].Hash != second.Hash {
		t.Errorf("newest first: got %s", versions[0].Hash)
	}

	grid, err := svc.GridAt("usr_1", first.Hash)
	if err != nil {
		t.Fatalf("GridAt() error = %v", err)
	}
	if !reflect.DeepEqual(grid, testGrid("1/3")) {
		t.Errorf("archived grid = %v", grid)
	}
}

func TestCommitGridUnchangedIsNoOp(t *testing.T) {
	svc := New(t.TempDir())

	first, err := svc.CommitGrid("usr_1", testGrid("1/3"), "write state")
	if err != nil {
		t.Fatal(err)
	}
	again, err := svc.CommitGrid("usr_1", testGrid("1/3"), "write state")
	if err != nil {
		t.Fatalf("unchanged commit error = %v", err)
	}
	if again.Hash != first.Hash {
		t.Errorf("unchanged grid produced new commit %s", again.Hash)
	}

	versions, err := svc.Versions("usr_1", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(versions) != 1 {
		t.Errorf("version count = %d, want 1", len(versions))
	}
}

func TestVersionsUnknownUser(t *testing.T) {
	svc := New(t.TempDir())
	versions, err := svc.Versions("usr_missing", 10)
	if err != nil {
		t.Fatalf("Versions() error = %v", err)
	}
	if len(versions) != 0 {
		t.Errorf("expected no versions, got %d", len(versions))
	}
}

func TestGridAtBadHash(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.CommitGrid("usr_1", testGrid("1/1"), "write state"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GridAt("usr_1", "not-a-hash"); err == nil {
		t.Error("expected error for invalid hash")
	}
}

func TestUsersHaveSeparateHistories(t *testing.T) {
	svc := New(t.TempDir())
	if _, err := svc.CommitGrid("usr_a", testGrid("1/1"), "write state"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.CommitGrid("usr_b", testGrid("0/1"), "write state"); err != nil {
		t.Fatal(err)
	}

	a, err := svc.Versions("usr_a", 0)
	if err != nil {
		t.Fatal(err)
	}
	b, err := svc.Versions("usr_b", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(a) != 1 || len(b) != 1 {
		t.Fatalf("counts = %d, %d", len(a), len(b))
	}
	if a[0].Hash == b[0].Hash {
		t.Error("histories must be independent")
	}
}

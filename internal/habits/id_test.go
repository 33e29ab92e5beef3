package habits

import (
	"strings"
	"testing"
)

func TestDeriveIDDeterministic(t *testing.T) {
	first := DeriveID(KindHabit, "Read")
	second := DeriveID(KindHabit, "Read")
	if first != second {
		t.Fatalf("expected stable id, got %q then %q", first, second)
	}
}

func TestDeriveIDKindTag(t *testing.T) {
	habitID := DeriveID(KindHabit, "Walk")
	noteID := DeriveID(KindNote, "Walk")
	if !strings.HasPrefix(habitID, "h-") {
		t.Errorf("habit id %q missing h- prefix", habitID)
	}
	if !strings.HasPrefix(noteID, "n-") {
		t.Errorf("note id %q missing n- prefix", noteID)
	}
	if habitID == noteID {
		t.Errorf("same name must derive different ids per kind")
	}
}

func TestDeriveIDDistinctNames(t *testing.T) {
	names := []string{"Read", "Run", "Meditate", "Drink water", "a", "b", ""}
	seen := make(map[string]string)
	for _, name := range names {
		id := DeriveID(KindHabit, name)
		if other, ok := seen[id]; ok {
			t.Fatalf("collision: %q and %q both derive %s", name, other, id)
		}
		seen[id] = name
	}
}

func TestDeriveIDEncodesByteLength(t *testing.T) {
	// "é" is one rune but two UTF-8 bytes.
	id := DeriveID(KindNote, "é")
	if !strings.HasSuffix(id, "-0002") {
		t.Errorf("expected byte-length suffix 0002, got %q", id)
	}
}

func TestNewIDUnique(t *testing.T) {
	a := NewID(KindHabit)
	b := NewID(KindHabit)
	if a == b {
		t.Fatal("random ids collided")
	}
	if !strings.HasPrefix(a, "h-") {
		t.Errorf("unexpected prefix on %q", a)
	}
}

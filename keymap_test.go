package engine

import (
	"strings"
	"testing"
)

func TestBindKeyRejectsUnknownPhysicalName(t *testing.T) {
	b := NewKeyBinder()
	if err := b.BindKey("not-a-real-key", "left"); err == nil {
		t.Fatal("expected an error for an unknown physical key name")
	}
}

func TestBindKeyIsCaseInsensitiveAndDeduplicates(t *testing.T) {
	b := NewKeyBinder()
	if err := b.BindKey("left", "move-left"); err != nil {
		t.Fatalf("BindKey: %v", err)
	}
	if err := b.BindKey("LEFT", "move-left"); err != nil {
		t.Fatalf("BindKey: %v", err)
	}
	if len(b.bound["move-left"]) != 1 {
		t.Fatalf("expected binding the same key twice to be a no-op, got %d entries", len(b.bound["move-left"]))
	}
}

func TestUnbindKeyRemovesFromEveryVirtualName(t *testing.T) {
	b := NewKeyBinder()
	b.BindKey("z", "a")
	b.BindKey("z", "confirm")
	b.UnbindKey("z")

	if len(b.bound["a"]) != 0 || len(b.bound["confirm"]) != 0 {
		t.Fatalf("expected z to be removed from all bindings, got a=%v confirm=%v", b.bound["a"], b.bound["confirm"])
	}
}

func TestBindDefaultsSetsArrowsAndWASD(t *testing.T) {
	b := NewKeyBinder()
	b.BindDefaults()

	upKeys := b.bound["up"]
	if len(upKeys) == 0 {
		t.Fatal("expected default bindings for 'up'")
	}
	found := false
	for _, k := range upKeys {
		if k == b.keysForName["W"][0] {
			found = true
		}
	}
	if !found {
		t.Error("expected 'w' to be bound to 'up' by default")
	}
}

func TestLoadKeymapFileOverwritesExistingBindings(t *testing.T) {
	b := NewKeyBinder()
	b.BindDefaults()

	data := "# comment\nup = w, up\ndown=s\n"
	if err := b.LoadKeymapFile(strings.NewReader(data)); err != nil {
		t.Fatalf("LoadKeymapFile: %v", err)
	}

	if len(b.bound["up"]) != 2 {
		t.Fatalf("expected exactly 2 keys bound to 'up', got %d", len(b.bound["up"]))
	}
	if len(b.bound["down"]) != 1 {
		t.Fatalf("expected exactly 1 key bound to 'down', got %d", len(b.bound["down"]))
	}
	// Untouched virtual names from BindDefaults should survive.
	if len(b.bound["left"]) == 0 {
		t.Error("expected 'left' binding from defaults to remain untouched")
	}
}

func TestSaveKeymapFileRoundTripsThroughLoad(t *testing.T) {
	b := NewKeyBinder()
	b.BindKey("w", "up")
	b.BindKey("up", "up")

	var sb strings.Builder
	if err := b.SaveKeymapFile(&sb); err != nil {
		t.Fatalf("SaveKeymapFile: %v", err)
	}

	b2 := NewKeyBinder()
	if err := b2.LoadKeymapFile(strings.NewReader(sb.String())); err != nil {
		t.Fatalf("LoadKeymapFile: %v", err)
	}
	if len(b2.bound["up"]) != 2 {
		t.Fatalf("round-tripped file has %d keys bound to 'up', want 2", len(b2.bound["up"]))
	}
}

func TestSaveKeymapFileMarksSaved(t *testing.T) {
	b := NewKeyBinder()
	b.BindKey("z", "a")
	if !b.ChangedSinceSave() {
		t.Fatal("expected ChangedSinceSave to be true after a bind")
	}
	var sb strings.Builder
	b.SaveKeymapFile(&sb)
	if b.ChangedSinceSave() {
		t.Fatal("expected ChangedSinceSave to be false after a save")
	}
}

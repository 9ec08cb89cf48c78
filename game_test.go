package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hajimehoshi/ebiten/v2"
)

const gameTestTMX = `<?xml version="1.0" encoding="UTF-8"?>
<map version="1.10" orientation="orthogonal" width="2" height="2" tilewidth="16" tileheight="16">
 <tileset firstgid="1" name="ground" tilewidth="16" tileheight="16">
  <image source="ground.png" width="16" height="16"/>
 </tileset>
 <layer id="1" name="ground" width="2" height="2">
  <data encoding="base64">AQAAAAEAAAABAAAAAQAAAA==</data>
 </layer>
</map>`

func newTestGame(t *testing.T) *Game {
	t.Helper()
	assets := NewAssetCache(func(path string) (*ebiten.Image, error) {
		return ebiten.NewImage(16, 16), nil
	})
	cfg := NewConfig()
	g := NewGame(GameConfig{
		Scene:   NewScene(),
		Assets:  assets,
		Config:  cfg,
		SaveDir: t.TempDir(),
	})
	return g
}

func writeTestMap(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "start.tmx")
	if err := os.WriteFile(path, []byte(gameTestTMX), 0o644); err != nil {
		t.Fatalf("failed to write fixture map: %v", err)
	}
	return path
}

func TestNewGameAppliesConfiguredViewport(t *testing.T) {
	g := newTestGame(t)
	if g.Camera() == nil {
		t.Fatal("expected NewGame to create a camera")
	}
	if g.Camera().Viewport.Width != 640 || g.Camera().Viewport.Height != 480 {
		t.Errorf("Viewport = %v, want default 640x480", g.Camera().Viewport)
	}
}

func TestLoadMapPositionsPlayerAndCamera(t *testing.T) {
	g := newTestGame(t)
	path := writeTestMap(t)

	if err := g.LoadMap(path, 5, 7, DirDown); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}
	if g.Map() == nil {
		t.Fatal("expected a map to be loaded")
	}
	if g.Player() == nil {
		t.Fatal("expected a player object to exist after LoadMap")
	}
	if g.Player().Position != (Vec2{X: 5, Y: 7}) {
		t.Errorf("player position = %v, want (5,7)", g.Player().Position)
	}
	if g.Camera().X != 5 || g.Camera().Y != 7 {
		t.Errorf("camera position = (%v,%v), want (5,7)", g.Camera().X, g.Camera().Y)
	}
	if g.Map().GetObjectByName("PLAYER") == nil {
		t.Error("expected the player object to be registered on the map")
	}
}

func TestLoadMapTwicePreservesSamePlayerObject(t *testing.T) {
	g := newTestGame(t)
	path := writeTestMap(t)

	if err := g.LoadMap(path, 0, 0, DirUp); err != nil {
		t.Fatalf("first LoadMap failed: %v", err)
	}
	first := g.Player()

	if err := g.LoadMap(path, 3, 4, DirRight); err != nil {
		t.Fatalf("second LoadMap failed: %v", err)
	}
	if g.Player() != first {
		t.Error("expected LoadMap to reuse the same player object across map switches")
	}
	if g.Player().Position != (Vec2{X: 3, Y: 4}) {
		t.Errorf("player position after second LoadMap = %v, want (3,4)", g.Player().Position)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	g := newTestGame(t)
	if err := g.Save("slot1.sav", "hello world"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	got, err := g.Load("slot1.sav")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if got != "hello world" {
		t.Errorf("Load returned %q, want %q", got, "hello world")
	}
}

func TestCreateObjectAttachesToMap(t *testing.T) {
	g := newTestGame(t)
	path := writeTestMap(t)
	if err := g.LoadMap(path, 0, 0, DirDown); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	obj := g.CreateObject("VILLAGER", "", Vec2{X: 2, Y: 2})
	if obj.Name != "VILLAGER" {
		t.Errorf("Name = %q, want VILLAGER", obj.Name)
	}
	if g.Map().GetObjectByName("villager") != obj {
		t.Error("expected CreateObject's result to be registered on the map")
	}
}

func TestSetPlayerPassthroughTogglesObjectField(t *testing.T) {
	g := newTestGame(t)
	path := writeTestMap(t)
	if err := g.LoadMap(path, 0, 0, DirDown); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	g.SetPlayerPassthrough(true)
	if !g.PlayerPassthrough() || !g.Player().Passthrough {
		t.Error("expected passthrough to be enabled on both Game and the player object")
	}
	g.SetPlayerPassthrough(false)
	if g.PlayerPassthrough() || g.Player().Passthrough {
		t.Error("expected passthrough to be disabled again")
	}
}

func TestUpdateAdvancesClockAndRunsNPCs(t *testing.T) {
	g := newTestGame(t)
	path := writeTestMap(t)
	if err := g.LoadMap(path, 0, 0, DirDown); err != nil {
		t.Fatalf("LoadMap failed: %v", err)
	}

	npc := NewNPC(g, NPCScheduleConfig{TimeMultiplier: 1, FrameTimeMillis: 16}, "GUARD", "Guard", "")
	g.AddNPC(npc)

	before := g.Clock().WindowTicks()
	g.Update(16)
	if g.Clock().WindowTicks() != before+16 {
		t.Errorf("WindowTicks = %d, want %d", g.Clock().WindowTicks(), before+16)
	}
	if len(g.NPCs()) != 1 {
		t.Errorf("NPCs() = %d, want 1", len(g.NPCs()))
	}
}

package engine

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// GameConfig bundles the dependencies Game needs to construct its play
// surface: rendering scene, asset cache, persisted settings, logging,
// and platform capabilities. Tests substitute a stub AssetCache loader
// and an empty Config to avoid touching the filesystem or GPU.
type GameConfig struct {
	Scene       *Scene
	Assets      *AssetCache
	Config      *Config
	Logger      *Logger
	Environment Environment
	SaveDir     string
}

// Game is the concrete type tying the map/camera/player/NPC/scripting
// surfaces together: it implements PlayerWorld, NPCWorld, and ScriptWorld
// so PlayerController, NPC, and ScriptEngine never depend on it directly.
type Game struct {
	scene  *Scene
	assets *AssetCache
	config *Config
	logger *Logger
	env    Environment

	saveDir string

	mapData  *Map
	viewport *TileMapViewport
	camera   *Camera
	mapRoot  *Canvas

	player     *MapObject
	playerCtl  *PlayerController
	clock      *Clock
	keys       *KeyBinder
	scheduler  *Scheduler
	font       Font
	music      *MusicSystem
	sound      *SoundSystem
	script     *ScriptEngine
	npcs       []*NPC

	playerPassthrough bool
}

// NewGame wires a Game from cfg. The returned Game has no map loaded yet;
// call LoadMap to populate one (typically from Config's "startup.map"
// key, at the position named by "startup.player-position-x/y").
func NewGame(cfg GameConfig) *Game {
	g := &Game{
		scene:   cfg.Scene,
		assets:  cfg.Assets,
		config:  cfg.Config,
		logger:  cfg.Logger,
		env:     cfg.Environment,
		saveDir: cfg.SaveDir,

		clock:     NewClock(0),
		keys:      NewKeyBinder(),
		scheduler: NewScheduler(),
		music:     NewMusicSystem(),
	}
	g.sound = NewSoundSystem(g.music.Context())
	g.keys.BindDefaults()
	if g.env == nil {
		g.env = DefaultEnvironment{}
	}
	if g.saveDir == "" {
		g.saveDir = "saves"
	}

	viewport := Rect{Width: float64(g.config.GetInt("graphics.game-width")), Height: float64(g.config.GetInt("graphics.game-height"))}
	g.camera = g.scene.NewCamera(viewport)

	actionButton := g.config.GetString("controls.action-button")
	g.playerCtl = NewPlayerController(g, PlayerControllerConfig{ActionButton: actionButton})
	g.script = NewScriptEngine(g, actionButton)
	return g
}

// --- PlayerWorld, NPCWorld, ScriptWorld accessors ---

// Map returns the currently loaded map.
func (g *Game) Map() *Map { return g.mapData }

// Camera returns the single camera following the player.
func (g *Game) Camera() *Camera { return g.camera }

// Player returns the player's MapObject, or nil before the first LoadMap.
func (g *Game) Player() *MapObject { return g.player }

// Clock returns the shared game clock.
func (g *Game) Clock() *Clock { return g.clock }

// Keys returns the virtual-action key binder.
func (g *Game) Keys() *KeyBinder { return g.keys }

// Scheduler returns the command scheduler every timed effect runs under.
func (g *Game) Scheduler() *Scheduler { return g.scheduler }

// RootCanvas returns the scene's root node, the parent for prompt/choice
// Canvas nodes scripts create.
func (g *Game) RootCanvas() *Canvas { return g.scene.Root() }

// Font returns the font used for in-game text prompts.
func (g *Game) Font() Font { return g.font }

// SetFont sets the font text commands render with.
func (g *Game) SetFont(f Font) { g.font = f }

// Music returns the currently playing track's volume-control handle.
func (g *Game) Music() MusicPlayer { return g.music.Current() }

// RunScript starts script in the script engine, satisfying PlayerWorld.
func (g *Game) RunScript(script ObjectScript) { g.script.RunScript(script) }

// PlayerPassthrough reports whether the player currently ignores
// object/tile collision, used by NPCs that need to walk through the
// player's tile while executing a keypoint command.
func (g *Game) PlayerPassthrough() bool { return g.playerPassthrough }

// SetPlayerPassthrough toggles player collision on or off.
func (g *Game) SetPlayerPassthrough(v bool) {
	g.playerPassthrough = v
	if g.player != nil {
		g.player.Passthrough = v
	}
}

// CreateObject adds a new object to the current map's first object
// layer (creating one named "npcs" if none exists yet) and attaches
// sprite, used by NPC to materialize itself the first time it arrives
// on the player's current map.
func (g *Game) CreateObject(name, sprite string, pos Vec2) *MapObject {
	layer := g.npcObjectLayer()
	obj := &MapObject{
		Name: name, Position: pos, Visible: true, PlayerFacing: true,
		Color: ColorWhite, Magnification: Vec2{1, 1}, Opacity: 1,
		Layer: layer,
	}
	if sprite != "" {
		if data, err := g.assets.SpriteData(sprite); err == nil {
			obj.SetSprite(data, "")
			g.wireSound(obj)
		} else if g.logger != nil {
			g.logger.Warningf("failed to load npc sprite %q: %v", sprite, err)
		}
	}
	layer.Objects = append(layer.Objects, obj)
	return g.mapData.AddObject(obj)
}

// wireSound hooks obj's Sprite.PlaySound to the shared SoundSystem,
// applying spec §4.6 distance attenuation when obj.SoundAttenuationEnabled:
// volume = frame.sound_volume × sprite.SfxVolume × min(1, factor/distance),
// distance measured between obj's and the player's centered positions.
func (g *Game) wireSound(obj *MapObject) {
	sprite := obj.Sprite()
	if sprite == nil {
		return
	}
	sprite.PlaySound = func(file string, volume float64) {
		vol := volume * sprite.SfxVolume
		if obj.SoundAttenuationEnabled && g.player != nil && obj != g.player {
			factor := g.config.GetFloat("audio.sound-attenuation-factor")
			distance := obj.CenteredPosition().Distance(g.player.CenteredPosition())
			vol *= math.Min(1, factor/distance)
		}
		if err := g.sound.Play(file, vol); err != nil && g.logger != nil {
			g.logger.Warningf("failed to play sound %q: %v", file, err)
		}
	}
}

// npcObjectLayer returns the map's "npcs" object layer, creating an
// empty one if none of the loaded layers are named that.
func (g *Game) npcObjectLayer() *ObjectLayer {
	for _, l := range g.mapData.ObjectLayers {
		if NormalizedName(l.Name) == NormalizedName("npcs") {
			return l
		}
	}
	if len(g.mapData.ObjectLayers) > 0 {
		return g.mapData.ObjectLayers[0]
	}
	layer := &ObjectLayer{Layer: Layer{Name: "npcs", Visible: true, Opacity: 1}, Color: ColorWhite}
	g.mapData.ObjectLayers = append(g.mapData.ObjectLayers, layer)
	g.mapData.Layers = append(g.mapData.Layers, layer)
	return layer
}

// --- Map loading ---

// LoadMap reads filename as a TMX document, replaces the active map,
// positions the player at (x, y) facing dir, and runs the new map's
// StartScripts (spec §4.8's map-transition contract).
func (g *Game) LoadMap(filename string, x, y float64, dir Direction) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetLoading, filename, err)
	}
	m, err := LoadTMX(data)
	if err != nil {
		return err
	}
	m.Filename = filename
	g.attachMap(m, x, y, dir)
	return nil
}

// loadTilesetImages resolves each tileset's ImageSource through the
// shared AssetCache, relative to the map's own directory.
func (g *Game) loadTilesetImages(m *Map) {
	base := filepath.Dir(m.Filename)
	for _, ts := range m.Tilesets {
		if ts.ImageSource == "" || ts.Image != nil {
			continue
		}
		path := ts.ImageSource
		if !filepath.IsAbs(path) {
			path = filepath.Join(base, path)
		}
		img, err := g.assets.Image(path)
		if err != nil {
			if g.logger != nil {
				g.logger.Warningf("failed to load tileset image %q: %v", path, err)
			}
			continue
		}
		ts.Image = img
	}
}

// renderTileset picks the tileset tile layers render from: the first
// one that isn't the map's dedicated (invisible) collision tileset.
func (g *Game) renderTileset(m *Map) *Tileset {
	for _, ts := range m.Tilesets {
		if ts != m.CollisionTileset {
			return ts
		}
	}
	if len(m.Tilesets) > 0 {
		return m.Tilesets[0]
	}
	return nil
}

// attachMap installs m as the active map, rebuilds its tile rendering
// under a fresh TileMapViewport, and (re)places the player object.
func (g *Game) attachMap(m *Map, x, y float64, dir Direction) {
	if g.mapRoot != nil {
		g.mapRoot.RemoveFromParent()
	}

	g.mapData = m
	g.loadTilesetImages(m)
	g.viewport = NewTileMapViewport(m.Name(), m.TileWidth, m.TileHeight)
	g.viewport.SetCamera(g.camera)
	g.mapRoot = g.viewport.Canvas()
	g.scene.Root().AddChild(g.mapRoot)

	renderTileset := g.renderTileset(m)
	if renderTileset != nil && renderTileset.Image != nil {
		for _, layer := range m.Layers {
			if tl, ok := layer.(*TileLayer); ok {
				tl.NewTileLayerCanvas(g.viewport, renderTileset)
			}
		}
	}

	if g.player == nil {
		g.player = &MapObject{
			Name: "PLAYER", PlayerFacing: true, Visible: true,
			Color: ColorWhite, Magnification: Vec2{1, 1}, Opacity: 1,
		}
	}
	g.player.Position = Vec2{X: x, Y: y}
	g.player.Facing = dir
	g.player.UpdateState(g.player.FaceState)
	if layer := g.npcObjectLayer(); layer != nil {
		layer.Objects = append(layer.Objects, g.player)
	}
	g.mapData.AddObject(g.player)

	g.camera.X, g.camera.Y = x, y
	g.camera.MarkDirty()

	for _, src := range m.StartScripts {
		g.script.RunScript(ObjectScript{Source: src, IsGlobal: false})
	}
	if m.BackgroundMusic != "" {
		if err := g.music.Play(m.BackgroundMusic); err != nil && g.logger != nil {
			g.logger.Warningf("failed to start map music: %v", err)
		}
	}
}

// --- Save / Load ---

// Save writes data to filename under the game's save directory,
// creating the directory on first use.
func (g *Game) Save(filename, data string) error {
	if err := os.MkdirAll(g.saveDir, 0o755); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetLoading, g.saveDir, err)
	}
	path := filepath.Join(g.saveDir, filename)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetLoading, path, err)
	}
	return nil
}

// Load reads and returns the contents of filename under the game's save
// directory.
func (g *Game) Load(filename string) (string, error) {
	path := filepath.Join(g.saveDir, filename)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrAssetLoading, path, err)
	}
	return string(data), nil
}

// --- Per-frame update ---

// Update advances every subsystem by one logic tick: input-driven player
// movement, NPC schedules, queued commands, the script VM's suspended
// coroutines, and image-layer scrolling. Call once per tick before the
// scene's own Update (which advances transforms/tweens/particles).
func (g *Game) Update(deltaMillis int64) {
	g.clock.Advance(deltaMillis)

	if !g.clock.IsPaused() {
		if g.player != nil {
			g.playerCtl.Update(g.player)
		}
		for _, npc := range g.npcs {
			npc.Update()
		}
		g.scheduler.Update()
		g.script.Update()
	}

	if g.mapData != nil {
		for _, layer := range g.mapData.Layers {
			if il, ok := layer.(*ImageLayer); ok {
				il.Update(float64(deltaMillis))
			}
		}
	}

	if g.player != nil {
		g.camera.X, g.camera.Y = g.player.Position.X, g.player.Position.Y
		g.camera.MarkDirty()
	}
}

// AddNPC registers npc so Update drives its schedule every tick,
// regardless of which map is currently active.
func (g *Game) AddNPC(npc *NPC) { g.npcs = append(g.npcs, npc) }

// NPCs returns every registered NPC, in no particular order.
func (g *Game) NPCs() []*NPC { return g.npcs }

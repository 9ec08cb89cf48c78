// Package engine is a retained-mode 2D tile-adventure engine built on
// [Ebitengine].
//
// It provides the scene graph, transform hierarchy, sprite batching, input
// handling, camera viewports, and particle systems a rendering backend
// needs, plus the adventure-game layer built on top of it: tile maps
// loaded from TMX, collision and pathfinding, scripted NPCs with daily
// schedules, a Lua scripting VM for trigger/touch/leave behavior, and the
// configuration/logging/save surface a shipped game needs around all of
// it.
//
// # Quick start
//
// [NewGame] wires a playable map/camera/player/NPC/scripting surface
// around a [Scene]:
//
//	scene := engine.NewScene()
//	assets := engine.NewAssetCache(nil)
//	cfg := engine.NewConfig()
//	game := engine.NewGame(engine.GameConfig{Scene: scene, Assets: assets, Config: cfg})
//	if err := game.LoadMap(cfg.GetString("startup.map"), 0, 0, engine.DirDown); err != nil {
//		log.Fatal(err)
//	}
//	scene.SetUpdateFunc(func() error { game.Update(int64(1000 / ebiten.TPS())); return nil })
//	engine.Run(scene, engine.RunConfig{Title: "My Game", Width: 640, Height: 480})
//
// # Scene graph
//
// Every visual element is a [Canvas]. Nodes form a tree rooted at
// [Scene.Root]. Children inherit their parent's transform and alpha.
// Create nodes with typed constructors: [NewContainer], [NewSprite],
// [NewText], [NewParticleEmitter], [NewMesh], and others.
//
// # Maps and objects
//
// A [Map] owns a grid of [Tileset]-backed tile layers plus every
// [MapObject] on it: the player, NPCs, trigger/touch areas, and
// decorative props. [LoadTMX] and [SaveTMX] round-trip Tiled's TMX
// format. Movement and collision go through [Map.Passable];
// [NewPathfinder] runs A* over the same tile grid for NPC routing.
//
// # Scripting
//
// [ScriptEngine] runs Lua trigger/touch/leave scripts against a
// [ScriptWorld] (implemented by [Game]), suspending a script's coroutine
// at a wait/choice boundary and resuming it once the awaited [Command]
// resolves.
//
// # NPCs
//
// An [NPC] walks a day's [Keypoint] schedule, simulating the moves and
// waits it missed while off the player's current map so it reappears in
// a believable position when the player returns.
//
// # Configuration and logging
//
// [Config] parses a flat, section-prefixed `key = value` file (spec's
// ambient settings surface); [Logger] wraps [go.uber.org/zap] for
// leveled, optionally file-rotated logging.
//
// [Ebitengine]: https://ebitengine.org
// [gween]: https://github.com/tanema/gween
// [go.uber.org/zap]: https://pkg.go.dev/go.uber.org/zap
package engine

package engine

import (
	"fmt"

	lua "github.com/yuin/gopher-lua"
)

// ScriptWorld is the slice of game state the script runtime needs: the
// active map/camera/player, the command scheduler they queue against, the
// key bindings text prompts read, a root Canvas to parent prompt nodes
// under, and the save/load/map-switch surface Game exposes to scripts.
// Implemented by Game in game.go; like PlayerWorld and NPCWorld, it keeps
// this file decoupled from game.go.
type ScriptWorld interface {
	Map() *Map
	Camera() *Camera
	Player() *MapObject
	Clock() *Clock
	Keys() *KeyBinder
	Scheduler() *Scheduler
	RootCanvas() *Canvas
	Font() Font
	Music() MusicPlayer
	LoadMap(filename string, x, y float64, dir Direction) error
	Save(filename, data string) error
	Load(filename string) (string, error)
}

// scriptTask is one Lua coroutine suspended at a command-scheduler
// boundary (spec §5 Concurrency model): cond reports whether the
// awaited command (or key press) has resolved, at which point Update
// resumes co. A task with a nil cond hasn't yielded yet and is resumed
// unconditionally on its first Update pass.
type scriptTask struct {
	co       *lua.LState
	cancel   func()
	fn       *lua.LFunction
	cond     func() bool
	finished bool
}

// ScriptEngine embeds a single persistent Lua VM and round-robins every
// script coroutine currently awaiting a command (spec §4.7, §6 Scripting
// surface). Scripts here are long-lived relative to a request/response
// script call: a touch script can span many frames behind wait()/
// wait_press()/Command_Result:wait(), so unlike a pooled one-shot VM the
// state is never recycled mid-script.
type ScriptEngine struct {
	world        ScriptWorld
	actionButton string
	L            *lua.LState
	tasks        []*scriptTask
	running      *scriptTask

	// OnError receives any error a coroutine raises or fails to compile
	// with; the offending coroutine is dropped but the engine continues
	// (spec §4.7 "script errors... terminate only the offending
	// coroutine"). Left nil until game.go wires it to the log.
	OnError func(error)
}

// NewScriptEngine creates the VM and installs every global the scripting
// surface exposes. actionButton names the virtual key choices() uses to
// confirm a selection, matching player.go's action button.
func NewScriptEngine(world ScriptWorld, actionButton string) *ScriptEngine {
	if actionButton == "" {
		actionButton = "a"
	}
	e := &ScriptEngine{world: world, actionButton: actionButton, L: lua.NewState()}
	e.registerConstants()
	e.registerFunctions()
	return e
}

func (e *ScriptEngine) registerConstants() {
	L := e.L
	L.SetGlobal("UP", lua.LNumber(DirUp))
	L.SetGlobal("RIGHT", lua.LNumber(DirRight))
	L.SetGlobal("DOWN", lua.LNumber(DirDown))
	L.SetGlobal("LEFT", lua.LNumber(DirLeft))
	L.SetGlobal("FORWARD", lua.LNumber(DirForward))
	L.SetGlobal("BACKWARD", lua.LNumber(DirBackward))

	L.SetGlobal("DRAW_BELOW", lua.LNumber(DrawBelow))
	L.SetGlobal("DRAW_NORMAL", lua.LNumber(DrawNormal))
	L.SetGlobal("DRAW_ABOVE", lua.LNumber(DrawAbove))
}

func (e *ScriptEngine) registerFunctions() {
	L := e.L
	register := func(name string, fn lua.LGFunction) { L.SetGlobal(name, L.NewFunction(fn)) }

	register("Vec2", e.luaVec2)
	register("Vec3", e.luaVec3)
	register("Vec4", e.luaVec4)
	register("Color", e.luaColor)
	register("Rect", e.luaRect)

	register("wait", e.luaWait)
	register("wait_press", e.luaWaitPress)

	register("time_to_days", func(L *lua.LState) int {
		L.Push(lua.LNumber(npcDayNumber(int64(L.CheckNumber(1)))))
		return 1
	})
	register("time_to_hours", func(L *lua.LState) int {
		secs := int64(L.CheckNumber(1))
		L.Push(lua.LNumber((secs % npcDayLengthSeconds) / 3600))
		return 1
	})
	register("time_to_minutes", func(L *lua.LState) int {
		secs := int64(L.CheckNumber(1))
		L.Push(lua.LNumber((secs % 3600) / 60))
		return 1
	})
	register("time_to_seconds", func(L *lua.LState) int {
		secs := int64(L.CheckNumber(1))
		L.Push(lua.LNumber(secs % 60))
		return 1
	})
	register("time_without_days", func(L *lua.LState) int {
		L.Push(lua.LNumber(npcTimeOfDay(int64(L.CheckNumber(1)))))
		return 1
	})
	register("text_width", func(L *lua.LState) int {
		s := L.CheckString(1)
		w, _ := e.world.Font().MeasureString(s)
		L.Push(lua.LNumber(w))
		return 1
	})

	register("opposite_direction", func(L *lua.LState) int {
		L.Push(lua.LNumber(Direction(L.CheckNumber(1)).Opposite()))
		return 1
	})
	register("is_diagonal", func(L *lua.LState) int {
		L.Push(lua.LBool(Direction(L.CheckNumber(1)).IsDiagonal()))
		return 1
	})
	register("direction_to_string", func(L *lua.LState) int {
		L.Push(lua.LString(Direction(L.CheckNumber(1)).String()))
		return 1
	})
	register("string_to_direction", func(L *lua.LState) int {
		dir, _ := ParseDirection(L.CheckString(1))
		L.Push(lua.LNumber(dir))
		return 1
	})
	register("direction_to_vector", func(L *lua.LState) int {
		v := Direction(L.CheckNumber(1)).ToVector()
		L.Push(e.tableVec2(v))
		return 1
	})
	register("facing_direction", func(L *lua.LState) int {
		from := e.checkVec2(L, 1)
		to := e.checkVec2(L, 2)
		diagonal := L.OptBool(3, false)
		L.Push(lua.LNumber(FacingDirection(from, to, diagonal)))
		return 1
	})

	register("text", e.luaText)
	register("centered_text", e.luaCenteredText)
	register("choices", e.luaChoices)
	register("Canvas", e.luaCanvas)

	e.refreshGlobals()
}

// refreshGlobals rebinds game/current_map/camera/player to the world's
// current values. Call it whenever the active map or player changes, in
// addition to once at construction.
func (e *ScriptEngine) refreshGlobals() {
	L := e.L
	L.SetGlobal("game", e.gameTable())
	L.SetGlobal("current_map", e.mapTable(e.world.Map()))
	L.SetGlobal("camera", e.cameraTable(e.world.Camera()))
	L.SetGlobal("player", e.objectTable(e.world.Player()))
}

// --- value types ---

func (e *ScriptEngine) luaVec2(L *lua.LState) int {
	L.Push(e.tableVec2(Vec2{X: float64(L.CheckNumber(1)), Y: float64(L.CheckNumber(2))}))
	return 1
}

func (e *ScriptEngine) tableVec2(v Vec2) *lua.LTable {
	t := e.L.NewTable()
	t.RawSetString("x", lua.LNumber(v.X))
	t.RawSetString("y", lua.LNumber(v.Y))
	return t
}

func (e *ScriptEngine) checkVec2(L *lua.LState, n int) Vec2 {
	t := L.CheckTable(n)
	return Vec2{X: float64(lua.LVAsNumber(t.RawGetString("x"))), Y: float64(lua.LVAsNumber(t.RawGetString("y")))}
}

// luaVec3 and luaVec4 are kept for parity with the scripting surface's
// Vec3/Vec4 types; nothing in this 2D engine consumes them yet, so they
// are plain {x,y,z[,w]} tables rather than a dedicated Go type.
func (e *ScriptEngine) luaVec3(L *lua.LState) int {
	t := e.L.NewTable()
	t.RawSetString("x", L.CheckNumber(1))
	t.RawSetString("y", L.CheckNumber(2))
	t.RawSetString("z", L.CheckNumber(3))
	L.Push(t)
	return 1
}

func (e *ScriptEngine) luaVec4(L *lua.LState) int {
	t := e.L.NewTable()
	t.RawSetString("x", L.CheckNumber(1))
	t.RawSetString("y", L.CheckNumber(2))
	t.RawSetString("z", L.CheckNumber(3))
	t.RawSetString("w", L.CheckNumber(4))
	L.Push(t)
	return 1
}

// luaColor builds a Color(r, g, b[, a]) table; components are in [0, 1],
// matching Color's own convention rather than the original's 0-255 byte
// components (spec silent on scale; chosen to match engine.Color).
func (e *ScriptEngine) luaColor(L *lua.LState) int {
	c := Color{R: float64(L.CheckNumber(1)), G: float64(L.CheckNumber(2)), B: float64(L.CheckNumber(3)), A: float64(L.OptNumber(4, 1))}
	L.Push(e.tableColor(c))
	return 1
}

func (e *ScriptEngine) tableColor(c Color) *lua.LTable {
	t := e.L.NewTable()
	t.RawSetString("r", lua.LNumber(c.R))
	t.RawSetString("g", lua.LNumber(c.G))
	t.RawSetString("b", lua.LNumber(c.B))
	t.RawSetString("a", lua.LNumber(c.A))
	return t
}

func (e *ScriptEngine) checkColor(L *lua.LState, n int) Color {
	t := L.CheckTable(n)
	return Color{
		R: float64(lua.LVAsNumber(t.RawGetString("r"))),
		G: float64(lua.LVAsNumber(t.RawGetString("g"))),
		B: float64(lua.LVAsNumber(t.RawGetString("b"))),
		A: float64(lua.LVAsNumber(t.RawGetString("a"))),
	}
}

func (e *ScriptEngine) luaRect(L *lua.LState) int {
	r := Rect{X: float64(L.CheckNumber(1)), Y: float64(L.CheckNumber(2)), Width: float64(L.CheckNumber(3)), Height: float64(L.CheckNumber(4))}
	L.Push(e.tableRect(r))
	return 1
}

func (e *ScriptEngine) tableRect(r Rect) *lua.LTable {
	t := e.L.NewTable()
	t.RawSetString("x", lua.LNumber(r.X))
	t.RawSetString("y", lua.LNumber(r.Y))
	t.RawSetString("w", lua.LNumber(r.Width))
	t.RawSetString("h", lua.LNumber(r.Height))
	return t
}

// --- coroutine suspension ---

// commandResult wraps cmd in a table exposing :wait(), the scheduler
// boundary a script coroutine suspends on until cmd.IsComplete() (spec
// §4.7, §5). The completion condition is recorded on the running task;
// when no task is running, none is recorded before the yield.
func (e *ScriptEngine) commandResult(cmd Command) *lua.LTable {
	t := e.L.NewTable()
	t.RawSetString("wait", e.L.NewFunction(func(L *lua.LState) int {
		if e.running != nil {
			e.running.cond = cmd.IsComplete
		}
		return L.Yield()
	}))
	return t
}

// choiceResult wraps a ShowTextCommand offering choices; :wait() yields
// until an option is confirmed, and :choice() then returns its index.
func (e *ScriptEngine) choiceResult(cmd *ShowTextCommand) *lua.LTable {
	t := e.commandResult(cmd)
	t.RawSetString("choice", e.L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LNumber(cmd.SelectedChoice()))
		return 1
	}))
	return t
}

// luaWait implements wait(milliseconds): yields the running coroutine
// until that many game-clock milliseconds have elapsed.
func (e *ScriptEngine) luaWait(L *lua.LState) int {
	durationMillis := int64(L.CheckNumber(1))
	cmd := NewWaitCommand(e.world.Clock(), durationMillis)
	e.world.Scheduler().Add(cmd)
	if e.running != nil {
		e.running.cond = cmd.IsComplete
	}
	return L.Yield()
}

// luaWaitPress implements wait_press(virtual_key_name): yields until the
// named virtual key is next triggered (edge-detected).
func (e *ScriptEngine) luaWaitPress(L *lua.LState) int {
	name := L.CheckString(1)
	keys := e.world.Keys()
	if e.running != nil {
		e.running.cond = func() bool { return keys.Triggered(name) }
	}
	return L.Yield()
}

// --- game / map / camera / object tables ---

func (e *ScriptEngine) gameTable() *lua.LTable {
	L := e.L
	t := L.NewTable()
	t.RawSetString("load_map", L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(2)
		x := float64(L.CheckNumber(3))
		y := float64(L.CheckNumber(4))
		dir := Direction(L.OptNumber(5, float64(DirDown)))
		if err := e.world.LoadMap(filename, x, y, dir); err != nil {
			L.RaiseError("load_map %q: %v", filename, err)
		}
		e.refreshGlobals()
		return 0
	}))
	t.RawSetString("save", L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(2)
		data := L.CheckString(3)
		if err := e.world.Save(filename, data); err != nil {
			L.RaiseError("save %q: %v", filename, err)
		}
		return 0
	}))
	t.RawSetString("load", L.NewFunction(func(L *lua.LState) int {
		filename := L.CheckString(2)
		data, err := e.world.Load(filename)
		if err != nil {
			L.RaiseError("load %q: %v", filename, err)
		}
		L.Push(lua.LString(data))
		return 1
	}))
	return t
}

func (e *ScriptEngine) mapTable(m *Map) *lua.LTable {
	L := e.L
	t := L.NewTable()
	if m == nil {
		return t
	}
	t.RawSetString("name", lua.LString(m.Name()))
	t.RawSetString("get_object", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		L.Push(e.objectTable(m.GetObjectByName(name)))
		return 1
	}))
	t.RawSetString("width", lua.LNumber(m.Width))
	t.RawSetString("height", lua.LNumber(m.Height))
	t.RawSetString("update_layer_opacity", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(2)
		opacity := float64(L.CheckNumber(3))
		duration := float32(L.OptNumber(4, 0))
		layer := e.findLayer(m, name)
		if layer == nil {
			L.RaiseError("update_layer_opacity: no such layer %q", name)
		}
		cmd := NewLayerOpacityUpdateCommand(layer, opacity, duration)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	return t
}

func (e *ScriptEngine) findLayer(m *Map, name string) *Layer {
	for _, l := range m.Layers {
		switch v := l.(type) {
		case *TileLayer:
			if v.Name == name {
				return &v.Layer
			}
		case *ImageLayer:
			if v.Name == name {
				return &v.Layer
			}
		case *ObjectLayer:
			if v.Name == name {
				return &v.Layer
			}
		}
	}
	return nil
}

func (e *ScriptEngine) cameraTable(cam *Camera) *lua.LTable {
	L := e.L
	t := L.NewTable()
	if cam == nil {
		return t
	}
	t.RawSetString("move_to", L.NewFunction(func(L *lua.LState) int {
		x := float64(L.CheckNumber(2))
		y := float64(L.CheckNumber(3))
		speed := float64(L.OptNumber(4, 4))
		cmd := NewMoveCameraToCommand(cam, x, y, speed)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	t.RawSetString("tint_screen", L.NewFunction(func(L *lua.LState) int {
		color := e.checkColor(L, 2)
		duration := float32(L.OptNumber(3, 0))
		cmd := NewTintScreenCommand(cam, color, duration)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	t.RawSetString("shake_screen", L.NewFunction(func(L *lua.LState) int {
		strength := float64(L.CheckNumber(2))
		speed := float64(L.CheckNumber(3))
		durationMillis := int64(L.CheckNumber(4))
		cmd := NewShakeScreenCommand(cam, e.world.Clock(), strength, speed, durationMillis)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	// track_object centers the camera on obj's position once and drops any
	// Camera.Follow target; it does not keep following obj on later frames.
	t.RawSetString("track_object", L.NewFunction(func(L *lua.LState) int {
		obj := e.checkObject(L, 2)
		if obj == nil {
			return 0
		}
		cam.Unfollow()
		cam.X, cam.Y = obj.Position.X, obj.Position.Y
		cam.MarkDirty()
		return 0
	}))
	return t
}

// objectTable wraps obj as a Lua table of methods/fields. The object
// pointer itself rides along in a hidden userdata field so later calls
// (camera:track_object, etc.) can recover it with checkObject.
func (e *ScriptEngine) objectTable(obj *MapObject) *lua.LTable {
	L := e.L
	t := L.NewTable()
	if obj == nil {
		return t
	}
	ud := L.NewUserData()
	ud.Value = obj
	t.RawSetString("__object", ud)

	t.RawSetString("name", lua.LString(obj.Name))
	t.RawSetString("x", lua.LNumber(obj.Position.X))
	t.RawSetString("y", lua.LNumber(obj.Position.Y))
	t.RawSetString("facing", lua.LNumber(obj.Facing))

	t.RawSetString("move", L.NewFunction(func(L *lua.LState) int {
		dir := Direction(L.CheckNumber(2))
		pixels := float64(L.OptNumber(3, obj.Speed))
		cmd := NewMoveObjectCommand(e.world.Map(), obj, dir, pixels, false, true)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	t.RawSetString("move_to", L.NewFunction(func(L *lua.LState) int {
		x := float64(L.CheckNumber(2))
		y := float64(L.CheckNumber(3))
		cmd := NewMoveObjectToCommand(e.world.Map(), obj, e.world.Clock(), Vec2{X: x, Y: y}, CheckBoth, true)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	t.RawSetString("face", L.NewFunction(func(L *lua.LState) int {
		obj.Face(Direction(L.CheckNumber(2)))
		return 0
	}))
	t.RawSetString("show_pose", L.NewFunction(func(L *lua.LState) int {
		pose := L.CheckString(2)
		state := L.OptString(3, obj.State)
		dir := obj.Facing
		if L.GetTop() >= 4 {
			dir = Direction(L.CheckNumber(4))
		}
		cmd := NewShowPoseCommand(obj, pose, state, dir)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	t.RawSetString("run_script", L.NewFunction(func(L *lua.LState) int {
		src := L.CheckString(2)
		global := L.OptBool(3, false)
		e.RunScript(ObjectScript{Source: src, IsGlobal: global})
		return 0
	}))
	return t
}

// checkObject recovers the *MapObject an objectTable wraps, or nil if n
// isn't one (a bare Vec2-shaped table, for instance).
func (e *ScriptEngine) checkObject(L *lua.LState, n int) *MapObject {
	v := L.Get(n)
	tbl, ok := v.(*lua.LTable)
	if !ok {
		return nil
	}
	ud, ok := tbl.RawGetString("__object").(*lua.LUserData)
	if !ok {
		return nil
	}
	obj, _ := ud.Value.(*MapObject)
	return obj
}

// checkPosition reads an x/y pair from either an objectTable or a bare
// Vec2 table, matching text()'s "object|vec2" first argument.
func (e *ScriptEngine) checkPosition(L *lua.LState, n int) Vec2 {
	if obj := e.checkObject(L, n); obj != nil {
		return obj.Position
	}
	return e.checkVec2(L, n)
}

// --- text / canvas ---

func (e *ScriptEngine) textInput() TextInput {
	keys := e.world.Keys()
	return TextInput{
		ActionPressed: func() bool { return keys.Triggered(e.actionButton) },
		DownPressed:   func() bool { return keys.Triggered("down") },
		UpPressed:     func() bool { return keys.Triggered("up") },
	}
}

// luaText implements text(target, text): shows a dialogue prompt
// positioned at target (an object or a Vec2) that stays until the action
// button confirms it. A third (duration) argument is not read, so the
// prompt never auto-confirms.
func (e *ScriptEngine) luaText(L *lua.LState) int {
	pos := e.checkPosition(L, 1)
	body := L.CheckString(2)
	cmd := NewShowTextCommand(e.world.RootCanvas(), e.world.Font(), body, nil, e.textInput(), nil, false)
	cmd.Canvas().X, cmd.Canvas().Y = pos.X, pos.Y
	e.world.Scheduler().Add(cmd)
	L.Push(e.commandResult(cmd))
	return 1
}

// luaCenteredText implements centered_text(text): a prompt centered on
// the camera's viewport rather than anchored to a target. Like text(), it
// reads no duration argument and waits on the action button.
func (e *ScriptEngine) luaCenteredText(L *lua.LState) int {
	body := L.CheckString(1)
	cmd := NewShowTextCommand(e.world.RootCanvas(), e.world.Font(), body, nil, e.textInput(), nil, false)
	viewport := e.world.Camera().Viewport
	cmd.Canvas().X = viewport.X + viewport.Width/2
	cmd.Canvas().Y = viewport.Y + viewport.Height/2
	e.world.Scheduler().Add(cmd)
	L.Push(e.commandResult(cmd))
	return 1
}

// luaChoices implements choices(target, text, options): a prompt with a
// selectable list; the returned result's :wait() resolves once the
// action button confirms a highlighted option, and :choice() reports
// its index.
func (e *ScriptEngine) luaChoices(L *lua.LState) int {
	pos := e.checkPosition(L, 1)
	body := L.CheckString(2)
	optsTable := L.CheckTable(3)
	var options []string
	optsTable.ForEach(func(_, v lua.LValue) { options = append(options, v.String()) })

	cmd := NewShowTextCommand(e.world.RootCanvas(), e.world.Font(), body, options, e.textInput(), nil, false)
	cmd.Canvas().X, cmd.Canvas().Y = pos.X, pos.Y
	e.world.Scheduler().Add(cmd)
	L.Push(e.choiceResult(cmd))
	return 1
}

// luaCanvas implements Canvas(x, y[, text]): a freestanding text Canvas
// a script can reposition/resize/fade directly, distinct from the
// transient prompts text()/choices() create.
func (e *ScriptEngine) luaCanvas(L *lua.LState) int {
	x := float64(L.CheckNumber(1))
	y := float64(L.CheckNumber(2))
	body := L.OptString(3, "")
	node := NewText("script-canvas", body, e.world.Font())
	node.X, node.Y = x, y
	node.Visible = true
	e.world.RootCanvas().AddChild(node)

	t := L.NewTable()
	t.RawSetString("update", L.NewFunction(func(L *lua.LState) int {
		duration := float32(L.OptNumber(2, 0))
		posX := float64(L.OptNumber(3, node.X))
		posY := float64(L.OptNumber(4, node.Y))
		magX := float64(L.OptNumber(5, node.ScaleX))
		magY := float64(L.OptNumber(6, node.ScaleY))
		angle := float64(L.OptNumber(7, node.Rotation))
		opacity := float64(L.OptNumber(8, node.Alpha))
		cmd := NewCanvasUpdateCommand(node, duration, Vec2{X: posX, Y: posY}, Vec2{X: magX, Y: magY}, angle, opacity)
		e.world.Scheduler().Add(cmd)
		L.Push(e.commandResult(cmd))
		return 1
	}))
	t.RawSetString("move", L.NewFunction(func(L *lua.LState) int {
		node.X = float64(L.CheckNumber(2))
		node.Y = float64(L.CheckNumber(3))
		return 0
	}))
	t.RawSetString("resize", L.NewFunction(func(L *lua.LState) int {
		node.ScaleX = float64(L.CheckNumber(2))
		node.ScaleY = float64(L.CheckNumber(3))
		return 0
	}))
	t.RawSetString("rotate", L.NewFunction(func(L *lua.LState) int {
		node.Rotation = float64(L.CheckNumber(2))
		return 0
	}))
	t.RawSetString("update_opacity", L.NewFunction(func(L *lua.LState) int {
		node.Alpha = float64(L.CheckNumber(2))
		return 0
	}))
	t.RawSetString("remove", L.NewFunction(func(L *lua.LState) int {
		node.RemoveFromParent()
		return 0
	}))
	L.Push(t)
	return 1
}

// --- coroutine scheduling ---

// RunScript compiles and starts script as a new coroutine. Compile
// errors are reported via OnError and the script never starts.
func (e *ScriptEngine) RunScript(script ObjectScript) {
	fn, err := e.L.LoadString(script.Source)
	if err != nil {
		e.reportError(fmt.Errorf("%w: %v", ErrScripting, err))
		return
	}
	co, cancel := e.L.NewThread()
	e.tasks = append(e.tasks, &scriptTask{co: co, cancel: cancel, fn: fn})
}

func (e *ScriptEngine) reportError(err error) {
	if e.OnError != nil {
		e.OnError(err)
	}
}

// Update resumes every task whose suspension condition has resolved (or
// that hasn't started yet), draining finished tasks from the list. Only
// one task is ever mid-resume at a time, so native functions can record
// their yield condition on e.running rather than looking the calling
// thread up by pointer.
func (e *ScriptEngine) Update() {
	live := e.tasks[:0]
	for _, task := range e.tasks {
		if task.finished {
			continue
		}
		ready := task.cond == nil || task.cond()
		if !ready {
			live = append(live, task)
			continue
		}
		task.cond = nil
		e.running = task
		state, err, _ := e.L.Resume(task.co, task.fn)
		e.running = nil
		switch state {
		case lua.ResumeYield:
			live = append(live, task)
		case lua.ResumeOK:
			task.finished = true
			task.cancel()
		case lua.ResumeError:
			task.finished = true
			task.cancel()
			if err != nil {
				e.reportError(fmt.Errorf("%w: %v", ErrScripting, err))
			}
		}
	}
	e.tasks = live
}

// StopAll force-terminates every running coroutine, e.g. when the active
// map changes (spec §5 Cancellation): "map.load marks every pending
// command as stopped... currently-suspended coroutines are resumed with
// a stopped status". Lua coroutines have no resumable cancellation
// signal, so this simply discards them; their Commands were already
// force-stopped by the Scheduler that owns them.
func (e *ScriptEngine) StopAll() {
	for _, task := range e.tasks {
		task.cancel()
	}
	e.tasks = nil
	e.running = nil
}

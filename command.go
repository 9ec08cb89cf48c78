package engine

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Command is one scheduled unit of script-driven side effect: moving an
// object, scrolling the camera, tweening a canvas or layer property,
// fading music, waiting, or prompting text. A Scheduler drives a set of
// these independently so a script can queue several without blocking the
// frame loop (spec §4.7, §5 Concurrency model).
type Command interface {
	Execute()
	IsComplete() bool
	Stop()
	IsStopped() bool
	Pause()
	Resume()
	IsPaused() bool
}

// baseCommand implements the stop/pause bookkeeping every Command shares.
type baseCommand struct {
	stopped bool
	paused  bool
}

func (b *baseCommand) Stop()          { b.stopped = true }
func (b *baseCommand) IsStopped() bool { return b.stopped }
func (b *baseCommand) Pause()          { b.paused = true }
func (b *baseCommand) Resume()         { b.paused = false }
func (b *baseCommand) IsPaused() bool  { return b.paused }

// commandDT returns one tick's delta time, the same way Scene.Update
// derives dt for Camera.update and every gween.Tween in command.go.
func commandDT() float32 {
	return float32(1.0 / float64(ebiten.TPS()))
}

func lerpf(a, b, t float64) float64 { return a + (b-a)*t }

// Scheduler runs a set of independent Commands to completion, executing
// each active one once per Update and dropping it once IsComplete.
type Scheduler struct {
	commands []Command
}

// NewScheduler creates an empty command scheduler.
func NewScheduler() *Scheduler { return &Scheduler{} }

// Add enqueues cmd for execution starting on the next Update.
func (s *Scheduler) Add(cmd Command) {
	s.commands = append(s.commands, cmd)
}

// Update executes every active command once and removes finished ones.
func (s *Scheduler) Update() {
	live := s.commands[:0]
	for _, cmd := range s.commands {
		if cmd.IsStopped() {
			continue
		}
		if !cmd.IsPaused() {
			cmd.Execute()
		}
		if !cmd.IsComplete() {
			live = append(live, cmd)
		}
	}
	s.commands = live
}

// Len reports how many commands are still active.
func (s *Scheduler) Len() int { return len(s.commands) }

// StopAll force-completes every active command.
func (s *Scheduler) StopAll() {
	for _, cmd := range s.commands {
		cmd.Stop()
	}
}

// --- Move_Object ---

// MoveObjectCommand walks an object a fixed number of pixels along dir,
// one object-speed step per Execute, restoring its prior state once
// moved the full distance, blocked (unless skipBlocking), or stopped.
type MoveObjectCommand struct {
	baseCommand
	m            *Map
	object       *MapObject
	direction    Direction
	pixels       float64
	skipBlocking bool
	changeFacing bool
	oldState     string
	complete     bool
}

// NewMoveObjectCommand creates a Move_Object command. Forward/Backward
// are fixed against the object's current facing once, here, matching
// the original's one-time resolution at construction; Backward also
// forces changeFacing off since the object is walking away from what
// it's facing.
func NewMoveObjectCommand(m *Map, object *MapObject, dir Direction, pixels float64, skipBlocking, changeFacing bool) *MoveObjectCommand {
	if dir == DirForward {
		dir = object.Facing
	} else if dir == DirBackward {
		dir = object.Facing.Opposite()
		changeFacing = false
	}
	return &MoveObjectCommand{
		m: m, object: object, direction: dir, pixels: pixels,
		skipBlocking: skipBlocking, changeFacing: changeFacing,
		oldState: object.State,
	}
}

func (c *MoveObjectCommand) Execute() {
	rec := c.object.Move(c.m, c.direction, c.object.Speed, CheckBoth, c.changeFacing, true)
	if rec.Passable() {
		c.pixels -= c.object.Speed
	} else if c.skipBlocking {
		c.pixels = 0
	}
	c.complete = c.stopped || c.object.Stopped || c.pixels <= 0.01
	if c.complete {
		c.object.UpdateState(c.oldState)
	}
}

func (c *MoveObjectCommand) IsComplete() bool { return c.complete }

// --- Move_Object_To ---

// maxPathfinderSteps bounds a single path search so a destination with
// no route (and getClose disabled) can't stall a frame.
const maxPathfinderSteps = 4000

// MoveObjectToCommand walks an object toward a destination tile by tile
// along an A*-computed path, recomputing the path if blocked (spec
// §4.7 Move_Object_To, §4.4 Pathfinder).
type MoveObjectToCommand struct {
	baseCommand
	m           *Map
	object      *MapObject
	clock       *Clock
	destination Vec2
	checkType   CollisionCheckType
	keepTrying  bool

	path        []Direction
	pathFound   bool
	pixels      float64
	lastAttempt int64
	blocked     bool

	hasNearest bool
	nearestH   int
}

// NewMoveObjectToCommand creates a Move_Object_To command and runs the
// initial path search synchronously.
func NewMoveObjectToCommand(m *Map, object *MapObject, clock *Clock, destination Vec2, checkType CollisionCheckType, keepTrying bool) *MoveObjectToCommand {
	c := &MoveObjectToCommand{m: m, object: object, clock: clock, destination: destination, checkType: checkType, keepTrying: keepTrying}
	c.init()
	return c
}

func (c *MoveObjectToCommand) init() {
	finder := NewPathfinder(c.m, c.object, c.destination, 0, true, c.checkType)
	finder.Run(maxPathfinderSteps)
	if finder.nearest != nil && finder.nearest.h > 0 && (!c.hasNearest || finder.nearest.h < c.nearestH) {
		c.hasNearest = true
		c.nearestH = finder.nearest.h
	}
	c.path = finder.GeneratePath()
	c.pathFound = finder.IsFound()
	c.pixels = 0
	c.lastAttempt = c.clock.Ticks()
}

func (c *MoveObjectToCommand) Execute() {
	if (c.blocked || !c.pathFound) && c.keepTrying {
		c.object.UpdateState("FACE")
		elapsed := c.clock.Ticks() - c.lastAttempt
		if (c.m.ObjectsMoved && elapsed > pathRetryAfterMove) || elapsed > pathRetryAlways {
			c.init()
			c.m.ObjectsMoved = false
			c.blocked = false
		}
		return
	}
	if !c.pathFound {
		return
	}

	index := int(c.pixels) / c.m.TileWidth
	maxIndex := len(c.path) - 1
	if index <= maxIndex {
		rec := c.moveObject(c.path[index])
		if rec.Passable() {
			c.pixels += c.object.Speed
		} else {
			c.blocked = true
		}
		return
	}

	if !c.IsComplete() {
		pos := c.object.RealPosition()
		tw, th := float64(c.m.TileWidth), float64(c.m.TileHeight)
		within := absf(pos.X-c.destination.X) <= tw && absf(pos.Y-c.destination.Y) <= th
		if within {
			c.moveObject(FacingDirection(pos, c.destination, true))
		} else {
			c.blocked = true
		}
	}
}

func (c *MoveObjectToCommand) moveObject(dir Direction) Collision_Record {
	if c.checkType == CheckTile {
		c.object.Passthrough = true
	}
	rec := c.object.Move(c.m, dir, c.object.Speed, c.checkType, true, true)
	if c.checkType == CheckTile {
		c.object.Passthrough = false
	}
	return rec
}

func (c *MoveObjectToCommand) IsComplete() bool {
	pos := c.object.RealPosition()
	complete := c.stopped || c.object.Stopped || (!c.pathFound && !c.keepTrying) ||
		(absf(pos.X-c.destination.X) < 8 && absf(pos.Y-c.destination.Y) < 8)
	if complete {
		c.object.UpdateState("FACE")
	}
	return complete
}

// --- Show_Pose ---

// SpriteHolder is anything that owns a Sprite and can switch its pose;
// *MapObject satisfies it.
type SpriteHolder interface {
	SetPose(poseName, state string, dir Direction)
	Sprite() *Sprite
}

// ShowPoseCommand switches holder's pose immediately and completes once
// the pose's animation has played through (repeating poses complete
// right away, matching the original's "repeats == -1" check).
type ShowPoseCommand struct {
	baseCommand
	holder SpriteHolder
}

// NewShowPoseCommand sets the pose on holder and returns the command
// tracking its completion.
func NewShowPoseCommand(holder SpriteHolder, poseName, state string, dir Direction) *ShowPoseCommand {
	holder.SetPose(poseName, state, dir)
	return &ShowPoseCommand{holder: holder}
}

func (c *ShowPoseCommand) Execute() {}

func (c *ShowPoseCommand) IsComplete() bool {
	if c.stopped {
		return true
	}
	sprite := c.holder.Sprite()
	if sprite == nil {
		return true
	}
	if pose := sprite.currentPose(); pose != nil && pose.Repeats == -1 {
		return true
	}
	return sprite.IsStopped()
}

// --- Move_Camera ---

// MoveCameraCommand slides the camera in a straight line at a fixed
// pixels-per-tick speed, either toward an absolute point or along a
// Direction for a fixed distance. Starting the command detaches any
// Camera.Follow target, matching the original's set_object(nullptr).
type MoveCameraCommand struct {
	baseCommand
	camera    *Camera
	direction Vec2
	pixels    float64
	speed     float64
}

// NewMoveCameraToCommand moves the camera toward the absolute point
// (x, y) at speed pixels per tick.
func NewMoveCameraToCommand(camera *Camera, x, y, speed float64) *MoveCameraCommand {
	camera.Unfollow()
	dx, dy := x-camera.X, y-camera.Y
	dist := math.Hypot(dx, dy)
	dir := Vec2{}
	if dist > 0 {
		dir = Vec2{X: dx / dist, Y: dy / dist}
	}
	return &MoveCameraCommand{camera: camera, direction: dir, pixels: dist, speed: speed}
}

// NewMoveCameraCommand moves the camera pixels along dir at speed pixels
// per tick.
func NewMoveCameraCommand(camera *Camera, dir Direction, pixels, speed float64) *MoveCameraCommand {
	camera.Unfollow()
	return &MoveCameraCommand{camera: camera, direction: dir.ToVector(), pixels: pixels, speed: speed}
}

func (c *MoveCameraCommand) Execute() {
	c.camera.X += c.direction.X * c.speed
	c.camera.Y += c.direction.Y * c.speed
	c.camera.MarkDirty()
	c.pixels -= c.speed
}

func (c *MoveCameraCommand) IsComplete() bool {
	return c.stopped || c.pixels < 0.01
}

// --- Tint_Screen ---

// TintScreenCommand lerps the camera's screen tint from its current
// color to a target color over a duration.
type TintScreenCommand struct {
	baseCommand
	camera   *Camera
	oldColor Color
	newColor Color
	tween    *gween.Tween
	done     bool
}

// NewTintScreenCommand starts tinting camera toward color over duration
// (seconds).
func NewTintScreenCommand(camera *Camera, color Color, duration float32) *TintScreenCommand {
	return &TintScreenCommand{
		camera: camera, oldColor: camera.TintColor, newColor: color,
		tween: gween.New(0, 1, duration, ease.Linear),
	}
}

func (c *TintScreenCommand) Execute() {
	alpha, done := c.tween.Update(commandDT())
	c.camera.SetTintColor(c.oldColor.Lerp(c.newColor, float64(alpha)))
	c.done = done
}

func (c *TintScreenCommand) IsComplete() bool { return c.stopped || c.done }

// --- Canvas_Update ---

// CanvasUpdateCommand lerps a canvas's position, scale, rotation, and
// opacity toward new target values over a duration.
type CanvasUpdateCommand struct {
	baseCommand
	canvas                             *Canvas
	oldX, oldY                         float64
	oldScaleX, oldScaleY               float64
	oldRotation, oldAlpha              float64
	newX, newY                         float64
	newScaleX, newScaleY               float64
	newRotation, newAlpha              float64
	tween                              *gween.Tween
	done                               bool
}

// NewCanvasUpdateCommand tweens canvas toward pos/mag/angle/opacity over
// duration (seconds).
func NewCanvasUpdateCommand(canvas *Canvas, duration float32, pos, mag Vec2, angle, opacity float64) *CanvasUpdateCommand {
	return &CanvasUpdateCommand{
		canvas:      canvas,
		oldX:        canvas.X, oldY: canvas.Y,
		oldScaleX:   canvas.ScaleX, oldScaleY: canvas.ScaleY,
		oldRotation: canvas.Rotation, oldAlpha: canvas.Alpha,
		newX:        pos.X, newY: pos.Y,
		newScaleX:   mag.X, newScaleY: mag.Y,
		newRotation: angle, newAlpha: opacity,
		tween:       gween.New(0, 1, duration, ease.Linear),
	}
}

func (c *CanvasUpdateCommand) Execute() {
	alpha, done := c.tween.Update(commandDT())
	a := float64(alpha)
	c.canvas.X = lerpf(c.oldX, c.newX, a)
	c.canvas.Y = lerpf(c.oldY, c.newY, a)
	c.canvas.ScaleX = lerpf(c.oldScaleX, c.newScaleX, a)
	c.canvas.ScaleY = lerpf(c.oldScaleY, c.newScaleY, a)
	c.canvas.Rotation = lerpf(c.oldRotation, c.newRotation, a)
	c.canvas.Alpha = lerpf(c.oldAlpha, c.newAlpha, a)
	c.done = done
}

func (c *CanvasUpdateCommand) IsComplete() bool { return c.stopped || c.done }

// --- Layer_Opacity_Update ---

// LayerOpacityUpdateCommand lerps a layer's opacity toward a target
// value over a duration.
type LayerOpacityUpdateCommand struct {
	baseCommand
	layer      *Layer
	oldOpacity float64
	newOpacity float64
	tween      *gween.Tween
	done       bool
}

// NewLayerOpacityUpdateCommand tweens layer.Opacity toward opacity over
// duration (seconds).
func NewLayerOpacityUpdateCommand(layer *Layer, opacity float64, duration float32) *LayerOpacityUpdateCommand {
	return &LayerOpacityUpdateCommand{
		layer: layer, oldOpacity: layer.Opacity, newOpacity: opacity,
		tween: gween.New(0, 1, duration, ease.Linear),
	}
}

func (c *LayerOpacityUpdateCommand) Execute() {
	alpha, done := c.tween.Update(commandDT())
	c.layer.Opacity = lerpf(c.oldOpacity, c.newOpacity, float64(alpha))
	c.done = done
}

func (c *LayerOpacityUpdateCommand) IsComplete() bool { return c.stopped || c.done }

// --- Music_Fade ---

// MusicPlayer is the volume control surface Music_Fade needs;
// *ebiten/v2/audio.Player satisfies it without adaptation.
type MusicPlayer interface {
	Volume() float64
	SetVolume(volume float64)
}

// MusicFadeCommand lerps a music player's volume toward a target value
// over a duration.
type MusicFadeCommand struct {
	baseCommand
	player     MusicPlayer
	oldVolume  float64
	newVolume  float64
	tween      *gween.Tween
	done       bool
}

// NewMusicFadeCommand tweens player's volume toward volume over
// duration (seconds).
func NewMusicFadeCommand(player MusicPlayer, volume float64, duration float32) *MusicFadeCommand {
	return &MusicFadeCommand{
		player: player, oldVolume: player.Volume(), newVolume: volume,
		tween: gween.New(0, 1, duration, ease.Linear),
	}
}

func (c *MusicFadeCommand) Execute() {
	alpha, done := c.tween.Update(commandDT())
	c.player.SetVolume(lerpf(c.oldVolume, c.newVolume, float64(alpha)))
	c.done = done
}

func (c *MusicFadeCommand) IsComplete() bool { return c.stopped || c.done }

// --- Shake_Screen ---

// ShakeScreenCommand starts a camera shake and ceases it once its
// duration has elapsed.
type ShakeScreenCommand struct {
	baseCommand
	camera         *Camera
	clock          *Clock
	startTick      int64
	durationMillis int64
}

// NewShakeScreenCommand starts shaking camera and schedules CeaseShaking
// after durationMillis of game time.
func NewShakeScreenCommand(camera *Camera, clock *Clock, strength, speed float64, durationMillis int64) *ShakeScreenCommand {
	camera.StartShaking(strength, speed)
	return &ShakeScreenCommand{camera: camera, clock: clock, startTick: clock.Ticks(), durationMillis: durationMillis}
}

func (c *ShakeScreenCommand) Execute() {}

func (c *ShakeScreenCommand) IsComplete() bool {
	complete := c.stopped || c.clock.Ticks()-c.startTick > c.durationMillis
	if complete {
		c.camera.CeaseShaking()
	}
	return complete
}

// --- Wait ---

// WaitCommand completes once durationMillis of game time has passed
// since it was created.
type WaitCommand struct {
	baseCommand
	clock          *Clock
	startTick      int64
	durationMillis int64
}

// NewWaitCommand creates a Wait command for durationMillis of game time.
func NewWaitCommand(clock *Clock, durationMillis int64) *WaitCommand {
	return &WaitCommand{clock: clock, startTick: clock.Ticks(), durationMillis: durationMillis}
}

func (c *WaitCommand) Execute() {}

func (c *WaitCommand) IsComplete() bool {
	return c.stopped || c.clock.Ticks() > c.startTick+c.durationMillis
}

// --- Show_Text ---

// TextInput supplies the input polling a ShowTextCommand needs to
// confirm a prompt or navigate a choice list, decoupling it from a
// concrete player/keymap implementation.
type TextInput struct {
	ActionPressed func() bool // edge-triggered: true once per press
	DownPressed   func() bool
	UpPressed     func() bool
}

// ShowTextCommand displays a dialogue or choice prompt as a text Canvas,
// disables player input while visible, and resolves once the action
// button confirms a choice (spec §4.7 Show_Text, §4.12).
type ShowTextCommand struct {
	baseCommand
	header         string
	choices        []string
	currentChoice  int
	selectedChoice int
	complete       bool
	resolved       bool
	canvas         *Canvas
	input          TextInput
	setDisabled    func(bool)
	wasDisabled    bool
}

// NewShowTextCommand creates and shows the prompt, parenting its Canvas
// under parent and disabling player input via setDisabled (nil if the
// caller doesn't want input disabled).
func NewShowTextCommand(parent *Canvas, font Font, header string, choices []string, input TextInput, setDisabled func(bool), wasDisabled bool) *ShowTextCommand {
	c := &ShowTextCommand{
		header: header, choices: choices, input: input,
		setDisabled: setDisabled, wasDisabled: wasDisabled,
	}
	c.canvas = NewText("prompt", c.fullText(), font)
	c.canvas.Visible = true
	if parent != nil {
		parent.AddChild(c.canvas)
	}
	if setDisabled != nil {
		setDisabled(true)
	}
	return c
}

// Canvas returns the prompt's backing text node, for positioning by the
// caller (layout/placement is owned by textdecor.go's layout helpers).
func (c *ShowTextCommand) Canvas() *Canvas { return c.canvas }

// SelectedChoice returns the index chosen once the command completes
// with choices, or -1 if there were none.
func (c *ShowTextCommand) SelectedChoice() int {
	if len(c.choices) == 0 {
		return -1
	}
	return c.selectedChoice
}

func (c *ShowTextCommand) Execute() {
	if c.complete {
		return
	}
	if c.input.ActionPressed != nil && c.input.ActionPressed() {
		c.complete = true
		c.selectedChoice = c.currentChoice
		return
	}
	if len(c.choices) > 0 {
		c.updateChoice()
	}
}

func (c *ShowTextCommand) updateChoice() {
	old := c.currentChoice
	if c.input.DownPressed != nil && c.input.DownPressed() {
		c.currentChoice = (c.currentChoice + 1) % len(c.choices)
	}
	if c.input.UpPressed != nil && c.input.UpPressed() {
		c.currentChoice = (c.currentChoice - 1 + len(c.choices)) % len(c.choices)
	}
	if old != c.currentChoice {
		c.canvas.TextBlock.Content = c.fullText()
		c.canvas.TextBlock.layoutDirty = true
	}
}

// fullText renders the header followed by one "- choice" line per
// choice, marking the currently-highlighted choice with a color tag
// (full tag parsing is textdecor.go's job; this just emits the markup).
func (c *ShowTextCommand) fullText() string {
	result := c.header
	for i, choice := range c.choices {
		if result != "" {
			result += "\n"
		}
		if i == c.currentChoice {
			result += "{color=green}- " + choice + "{/color}"
		} else {
			result += "- " + choice
		}
	}
	return result
}

func (c *ShowTextCommand) IsComplete() bool {
	if c.stopped {
		c.complete = true
	}
	if c.complete && !c.resolved {
		c.resolved = true
		c.canvas.Visible = false
		c.canvas.RemoveFromParent()
		if c.setDisabled != nil {
			c.setDisabled(c.wasDisabled)
		}
	}
	return c.complete
}

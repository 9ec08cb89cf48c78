package engine

import "strings"

// DrawOrder controls where an object's sprite layers relative to its
// siblings on the same object layer.
type DrawOrder uint8

const (
	DrawBelow DrawOrder = iota
	DrawNormal
	DrawAbove
)

// PassthroughType controls whether a passthrough object still reports
// the collision on its own side (INITIATOR), the other side (RECEIVER),
// or both.
type PassthroughType uint8

const (
	PassthroughInitiator PassthroughType = iota
	PassthroughReceiver
	PassthroughBoth
)

// OutlineCondition controls when an object renders an outline.
type OutlineCondition uint8

const (
	OutlineNever OutlineCondition = 1 << iota
	OutlineTouched
	OutlineProximate
	OutlineSolid
	OutlineScript
)

// ObjectScript is a trigger/touch/leave script body plus whether it
// should run in the global Lua environment or the owning map's.
type ObjectScript struct {
	Source   string
	IsGlobal bool
}

// MapObject is a single entity on a Map: the player, an NPC, a trigger
// area, or a decorative tile-backed prop. A Map exclusively owns its
// objects; every pointer field below is a non-owning back reference,
// cleared by Map.eraseObjectReferences when the referent is deleted.
type MapObject struct {
	Layer *ObjectLayer

	ID   int
	Name string // stored upper-cased, per spec §3 Data Model
	Type string

	Position      Vec2
	Size          Vec2
	Color         Color
	Magnification Vec2
	GID           uint32
	Opacity       float64

	Visible                  bool
	Disabled                 bool
	Stopped                  bool
	Frozen                   bool
	Passthrough              bool
	OverrideTileCollision    bool
	StrictMultidirectional   bool
	UseLayerColor            bool
	SoundAttenuationEnabled  bool

	Facing   Direction
	PoseName string
	State    string
	// FaceState/WalkState name the sprite states used for "standing
	// still facing a direction" and "walking", respectively (spec §3).
	FaceState string
	WalkState string

	TriggerScript ObjectScript
	TouchScript   ObjectScript
	LeaveScript   ObjectScript

	OutlineConditions OutlineCondition
	OutlinedObjectID  int
	PassthroughType   PassthroughType
	DrawOrder         DrawOrder

	Speed float64

	LinkedObjects   []*MapObject
	CollisionArea   *MapObject
	CollisionObject *MapObject
	TriggeredObject *MapObject
	// PlayerFacing controls whether this object turns to face the player on
	// touch/trigger (spec §4.11); defaults to true, matching the original's
	// "player-facing" object property.
	PlayerFacing bool

	BoundingCircle *Circle

	Properties map[string]string

	sprite *Sprite
}

// BoundingBox returns the object's collision box: the current sprite
// pose's box if a sprite is attached, else a box the size of Size.
func (o *MapObject) BoundingBox() Rect {
	if o.sprite != nil {
		return o.sprite.BoundingBox()
	}
	return Rect{0, 0, o.Size.X, o.Size.Y}
}

// RealPosition returns Position offset by the bounding box's origin.
func (o *MapObject) RealPosition() Vec2 {
	box := o.BoundingBox()
	return Vec2{o.Position.X + box.X, o.Position.Y + box.Y}
}

// CenteredPosition returns RealPosition offset to the bounding box's
// center, used for facing another object and for sound attenuation
// distance (spec §4.6).
func (o *MapObject) CenteredPosition() Vec2 {
	box := o.BoundingBox()
	real := o.RealPosition()
	return Vec2{real.X + box.Width/2, real.Y + box.Height/2}
}

// SetDisabled disables/enables player input processing for this object.
// Disabling an object mid-walk forces its state to FaceState — the
// original engine's quirk of freezing a walking sprite into its facing
// pose rather than an arbitrary animation frame (kept verbatim, spec §9).
func (o *MapObject) SetDisabled(disabled bool) {
	o.Disabled = disabled
	if o.State == "WALK" {
		o.UpdateState(o.FaceState)
	}
}

// UpdateState sets the object's animation state unless it is frozen.
func (o *MapObject) UpdateState(state string) {
	if o.Frozen {
		return
	}
	o.State = state
	o.updatePose()
}

// SetSprite attaches sprite data to this object and resets its sprite
// state machine.
func (o *MapObject) SetSprite(data *SpriteData, poseName string) {
	o.sprite = NewSpriteInstance(data)
	if poseName != "" {
		o.PoseName = poseName
	}
	o.updatePose()
}

// Sprite returns the object's attached sprite instance, or nil.
func (o *MapObject) Sprite() *Sprite { return o.sprite }

// SetPose sets pose name/state/direction (any empty/DirNone argument
// leaves the corresponding field unchanged) and re-resolves the pose.
func (o *MapObject) SetPose(poseName, state string, dir Direction) {
	if poseName != "" {
		o.PoseName = poseName
	}
	if state != "" {
		o.State = state
	}
	if dir != DirNone {
		o.Facing = dir
	}
	o.updatePose()
}

func (o *MapObject) updatePose() {
	if o.sprite == nil {
		return
	}
	o.sprite.SetPose(o.PoseName, o.State, o.Facing.String(), true)
}

// Face turns the object to face dir.
func (o *MapObject) Face(dir Direction) {
	o.Facing = dir
	o.updatePose()
}

// FaceObject turns o to face other's position.
func (o *MapObject) FaceObject(other *MapObject) {
	o.FacePoint(other.Position.X, other.Position.Y)
}

// FacePoint turns o to face the point (x, y).
func (o *MapObject) FacePoint(x, y float64) {
	o.Face(FacingDirection(o.Position, Vec2{x, y}, false))
}

// RunTriggerScript runs the object's activation script, if any.
func (o *MapObject) RunTriggerScript(run func(ObjectScript)) {
	if o.TriggerScript.Source != "" {
		run(o.TriggerScript)
	}
}

// RunTouchScript runs the object's touch script, if any.
func (o *MapObject) RunTouchScript(run func(ObjectScript)) {
	if o.TouchScript.Source != "" {
		run(o.TouchScript)
	}
}

// RunLeaveScript runs the object's area-exit script, if any.
func (o *MapObject) RunLeaveScript(run func(ObjectScript)) {
	if o.LeaveScript.Source != "" {
		run(o.LeaveScript)
	}
}

// NormalizedName upper-cases a raw object name for lookups, matching
// spec §3's invariant that Map_Object names are stored upper-cased.
func NormalizedName(name string) string {
	return strings.ToUpper(name)
}

// Move moves o by pixels along dir, resolving FORWARD/BACKWARD relative
// sentinels against o.Facing, and returns the resulting Collision_Record
// (spec §4.2).
func (o *MapObject) Move(m *Map, dir Direction, pixels float64, checkType CollisionCheckType, changeFacing, animated bool) Collision_Record {
	resolved := dir.ResolveRelative(o.Facing)
	change := resolved.ToVector().Scale(pixels)

	if change.X == 0 && change.Y == 0 {
		if animated {
			o.UpdateState(o.FaceState)
		}
		if checkType&CheckObject != 0 {
			checkType = CheckObject
		} else {
			return Collision_Record{Type: CollisionNoMove, ThisObject: o}
		}
	}

	rec := m.Passable(o, resolved, o.Position.Add(change), pixels, checkType)
	suppressFacing := false
	if rec.Passable() {
		o.Position = o.Position.Add(change)
	} else if change.X != 0 && change.Y != 0 && !o.StrictMultidirectional {
		vertical := Vec2{0, change.Y}
		vDir := VectorToDirection(vertical)
		if r := m.Passable(o, vDir, o.Position.Add(vertical), pixels, checkType); r.Passable() {
			o.Position = o.Position.Add(vertical)
			rec = r
			change = vertical
		} else {
			horizontal := Vec2{change.X, 0}
			hDir := VectorToDirection(horizontal)
			if r := m.Passable(o, hDir, o.Position.Add(horizontal), pixels, checkType); r.Passable() {
				o.Position = o.Position.Add(horizontal)
				rec = r
				change = horizontal
			}
		}
		if rec.OtherObject != nil && rec.OtherObject.BoundingCircle != nil {
			suppressFacing = true
		}
	}

	if changeFacing && !suppressFacing {
		dir := VectorToDirection(change)
		if o.sprite != nil && o.sprite.IsEightDirectional() {
			o.Face(dir)
		} else {
			o.Face(dir.DiagonalToCardinal())
		}
	}

	if animated {
		o.UpdateState(o.WalkState)
	}
	m.ObjectsMoved = true

	for _, linked := range o.LinkedObjects {
		linked.Move(m, dir, pixels, checkType, changeFacing, animated)
	}

	return rec
}

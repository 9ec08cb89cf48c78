package engine

// PlayerWorld supplies a Player_Controller with the pieces owned by the
// game loop (Game in game.go): the active map, the key bindings, and a way
// to run an object's Lua scripts. Mirrors NPCWorld's decoupling from game.go.
type PlayerWorld interface {
	Map() *Map
	Keys() *KeyBinder
	RunScript(ObjectScript)
}

// PlayerControllerConfig names the virtual key that confirms/activates a
// trigger script, matching the original's configurable "controls.action-
// button" setting.
type PlayerControllerConfig struct {
	ActionButton string
}

// PlayerController reads directional input and drives the player's
// Map_Object each frame: movement, object/area collision, and touch/
// trigger/leave script firing (spec §4.11).
type PlayerController struct {
	world        PlayerWorld
	actionButton string
}

// NewPlayerController builds a controller bound to world. An empty
// config.ActionButton defaults to "a".
func NewPlayerController(world PlayerWorld, config PlayerControllerConfig) *PlayerController {
	actionButton := config.ActionButton
	if actionButton == "" {
		actionButton = "a"
	}
	return &PlayerController{world: world, actionButton: actionButton}
}

// probeDirections lists the four cardinal bits in the same order the
// original's all-sides check walks them (1, 2, 4, 8).
var probeDirections = [4]Direction{DirUp, DirRight, DirDown, DirLeft}

// Update moves object according to the currently pressed direction keys,
// fires touch/trigger/leave scripts against whatever it collides with, and
// resets it to its facing pose when idle.
func (p *PlayerController) Update(object *MapObject) {
	if object.Disabled {
		return
	}

	keys := p.world.Keys()
	var dir Direction
	if keys.Pressed("up") {
		dir |= DirUp
	}
	if keys.Pressed("down") {
		dir |= DirDown
	}
	if keys.Pressed("right") {
		dir |= DirRight
	}
	if keys.Pressed("left") {
		dir |= DirLeft
	}

	actionPressed := keys.Triggered(p.actionButton)
	moved := dir != DirNone
	if !moved && !actionPressed {
		if object.State == object.WalkState {
			object.UpdateState(object.FaceState)
		}
		return
	}

	m := p.world.Map()
	collision := object.Move(m, dir, object.Speed, CheckBoth, true, true)

	// If blocked by an object, check whether every other direction is also
	// blocked by that same object (i.e. it's surrounding us). If so, retry
	// ignoring object collision so we don't get permanently stuck.
	if moved && collision.Type == CollisionObject {
		surrounded := true
		for _, probe := range probeDirections {
			if probe == dir {
				continue
			}
			candidate := object.Position.Add(probe.ToVector().Scale(object.Speed))
			rec := m.Passable(object, probe, candidate, object.Speed, CheckObject)
			if _, stillBlocked := rec.OtherObjects[NormalizedName(collision.OtherObject.Name)]; !stillBlocked {
				surrounded = false
				break
			}
		}
		if surrounded {
			collision = object.Move(m, dir, object.Speed, CheckTile, true, true)
		}
	}

	p.processCollision(object, collision, CollisionObject, actionPressed)
	p.processCollision(object, collision, CollisionArea, actionPressed)

	// Re-check at the new position so a touch script fires (and the object
	// is outlined) even when the move itself wasn't blocked by it.
	if object.CollisionObject != nil {
		return
	}
	touching := m.Passable(object, object.Facing, object.Position, 0, CheckObject)
	if touching.Type == CollisionObject {
		p.processCollision(object, touching, CollisionObject, false)
	}
}

// processCollision fires touch/trigger/leave scripts on whatever object
// (kind == CollisionObject) or area (kind == CollisionArea) collision
// names, and tracks it as object's current collision partner of that kind.
func (p *PlayerController) processCollision(object *MapObject, collision Collision_Record, kind CollisionType, actionPressed bool) {
	var old, other *MapObject
	if kind == CollisionObject {
		old = object.CollisionObject
		other = collision.OtherObject
		if other != nil {
			object.CollisionObject = other
		}
	} else {
		old = object.CollisionArea
		other = collision.OtherArea
		if other != nil {
			object.CollisionArea = other
		}
	}

	touched := other != nil && other.TouchScript.Source != "" && other != old
	triggered := other != nil && actionPressed && other.TriggerScript.Source != ""

	switch {
	case touched || triggered:
		object.TriggeredObject = other
		if other.PlayerFacing {
			other.FaceObject(object)
		}
		if touched {
			other.RunTouchScript(p.world.RunScript)
		}
		if triggered {
			other.RunTriggerScript(p.world.RunScript)
		}
	case other == nil:
		if old != nil {
			old.RunLeaveScript(p.world.RunScript)
		}
		if kind == CollisionObject {
			object.CollisionObject = nil
		} else {
			object.CollisionArea = nil
		}
	}
}

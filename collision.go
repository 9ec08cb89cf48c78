package engine

// CollisionType classifies what stopped (or didn't stop) a move.
type CollisionType uint8

const (
	CollisionNone    CollisionType = iota // no collision found
	CollisionNoMove                       // no collision because the object didn't move
	CollisionTile                         // blocked by map tile collision
	CollisionObject                       // blocked by (or triggered) an object
	CollisionArea                         // passed through a scripted area
)

// CollisionCheckType is a bitset selecting which collision sources a
// Map.Passable query consults.
type CollisionCheckType uint8

const (
	CheckNone         CollisionCheckType = 0
	CheckTile         CollisionCheckType = 1
	CheckObject       CollisionCheckType = 2
	CheckBoth         CollisionCheckType = 3
	CheckProximity    CollisionCheckType = 4
	CheckMultiObjects CollisionCheckType = 6
)

// Collision_Record is returned by Map.Passable and MapObject.Move,
// naming what blocked (or let through) a movement attempt.
type Collision_Record struct {
	Type        CollisionType
	ThisObject  *MapObject
	OtherObject *MapObject
	OtherArea   *MapObject
	OtherObjects map[string]*MapObject
	OtherAreas   map[string]*MapObject
	// EdgeDirection is advisory: it names which edge of a tile the
	// collision occurred against. Map.Passable does not set it and no code
	// reads it, so it is always DirNone; there is no doorway-correction
	// path.
	EdgeDirection Direction
}

// Passable reports whether this collision type allows movement through.
func (r Collision_Record) Passable() bool {
	return r.Type == CollisionNone || r.Type == CollisionArea
}

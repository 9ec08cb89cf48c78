package engine

import "strings"

// Map owns every object, layer, and tileset for one play area. It is the
// sole owner of MapObjects: every cross-object pointer elsewhere
// (CollisionArea, TriggeredObject, LinkedObjects) is a non-owning back
// reference that Map.DeleteObject scrubs via eraseObjectReferences.
type Map struct {
	Width, Height         int
	TileWidth, TileHeight int
	Filename              string

	Properties map[string]string

	nextObjectID int
	objects      map[int]*MapObject
	nameToID     map[string][]int

	Tilesets         []*Tileset
	CollisionTileset *Tileset
	CollisionLayer   *TileLayer

	ObjectLayers []*ObjectLayer
	Layers       []any // Layer-bearing entries: *TileLayer, *ObjectLayer, *ImageLayer

	Canvases []*Canvas

	BackgroundMusic string
	StartScripts    []string

	NeedsRedraw  bool
	ObjectsMoved bool

	// ProximityDistance expands the candidate AABB for CheckProximity
	// queries (spec §4.3's "proximity mode").
	ProximityDistance float64
}

// NewMap creates an empty map with the given tile grid dimensions.
func NewMap(width, height, tileWidth, tileHeight int) *Map {
	return &Map{
		Width: width, Height: height,
		TileWidth: tileWidth, TileHeight: tileHeight,
		Properties: make(map[string]string),
		objects:    make(map[int]*MapObject),
		nameToID:   make(map[string][]int),
	}
}

// Name returns the map's "name" property, defaulting to "unnamed map".
func (m *Map) Name() string {
	if n, ok := m.Properties["name"]; ok {
		return n
	}
	return "unnamed map"
}

// ObjectCount returns the number of live objects on the map.
func (m *Map) ObjectCount() int { return len(m.objects) }

// AddObject assigns obj an ID (if it doesn't have one) and registers it
// by ID and upper-cased name.
func (m *Map) AddObject(obj *MapObject) *MapObject {
	if obj.ID == 0 {
		m.nextObjectID++
		obj.ID = m.nextObjectID
	} else if obj.ID > m.nextObjectID {
		m.nextObjectID = obj.ID
	}
	m.objects[obj.ID] = obj
	key := NormalizedName(obj.Name)
	m.nameToID[key] = append(m.nameToID[key], obj.ID)
	return obj
}

// GetObjectByName returns the first object registered under name
// (case-insensitive), or nil.
func (m *Map) GetObjectByName(name string) *MapObject {
	ids := m.nameToID[NormalizedName(name)]
	if len(ids) == 0 {
		return nil
	}
	return m.objects[ids[0]]
}

// GetObjectByID returns the object with the given ID, or nil.
func (m *Map) GetObjectByID(id int) *MapObject {
	return m.objects[id]
}

// Objects returns every live object, in no particular order.
func (m *Map) Objects() []*MapObject {
	out := make([]*MapObject, 0, len(m.objects))
	for _, o := range m.objects {
		out = append(out, o)
	}
	return out
}

// DeleteObject removes obj from the map and scrubs every back reference
// to it held by other objects (collision area, triggered object, linked
// objects), matching erase_object_references.
func (m *Map) DeleteObject(obj *MapObject) {
	delete(m.objects, obj.ID)
	key := NormalizedName(obj.Name)
	ids := m.nameToID[key]
	for i, id := range ids {
		if id == obj.ID {
			m.nameToID[key] = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	m.eraseObjectReferences(obj)
}

func (m *Map) eraseObjectReferences(obj *MapObject) {
	for _, o := range m.objects {
		if o.CollisionArea == obj {
			o.CollisionArea = nil
		}
		if o.TriggeredObject == obj {
			o.TriggeredObject = nil
		}
		for i, linked := range o.LinkedObjects {
			if linked == obj {
				o.LinkedObjects = append(o.LinkedObjects[:i], o.LinkedObjects[i+1:]...)
				break
			}
		}
	}
}

// TilePassable reports whether the map tile at (x, y) is passable
// according to the collision layer/tileset, treating out-of-bounds as
// impassable.
func (m *Map) TilePassable(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	if m.CollisionLayer == nil || m.CollisionTileset == nil {
		return true
	}
	gid := m.CollisionLayer.TileAt(x, y) &^ tileFlagMask
	if gid == 0 {
		return true
	}
	idx := int(gid) - m.CollisionTileset.FirstID
	return idx < 1 // index 0 = passable marker tile, >=1 = obstruction (spec §4.3 step 4)
}

// Passable implements spec §4.3: it tests whether obj can occupy the
// AABB at position, honoring tile collision and other objects/areas.
func (m *Map) Passable(obj *MapObject, direction Direction, position Vec2, speed float64, checkType CollisionCheckType) Collision_Record {
	rec := Collision_Record{Type: CollisionNone, ThisObject: obj}

	if obj.Passthrough && obj.PassthroughType != PassthroughReceiver {
		return rec
	}
	box := obj.BoundingBox()
	if box.Width <= 0 || box.Height <= 0 {
		return rec
	}

	candidate := Rect{position.X + box.X, position.Y + box.Y, box.Width, box.Height}
	if checkType&CheckProximity != 0 {
		candidate = expandRect(candidate, m.ProximityDistance)
	}

	skipTileCheck := false
	if checkType&CheckObject != 0 {
		rec.OtherObjects = make(map[string]*MapObject)
		rec.OtherAreas = make(map[string]*MapObject)
		for _, other := range m.objects {
			if other == obj || !other.Visible {
				continue
			}
			obox := other.BoundingBox()
			if obox.Width <= 0 || obox.Height <= 0 {
				continue
			}
			otherRect := Rect{other.Position.X + obox.X, other.Position.Y + obox.Y, obox.Width, obox.Height}
			if !candidate.Intersects(otherRect) {
				continue
			}

			if other.OverrideTileCollision && other.Visible && other.Passthrough {
				skipTileCheck = true
			}

			isArea := other.Passthrough && (other.TriggerScript.Source != "" || other.TouchScript.Source != "" || other.LeaveScript.Source != "")
			if !other.Passthrough || isArea {
				if isArea {
					if rec.Type != CollisionObject {
						rec.Type = CollisionArea
					}
					if rec.OtherArea == nil {
						rec.OtherArea = other
					}
					rec.OtherAreas[NormalizedName(other.Name)] = other
				} else {
					rec.Type = CollisionObject
					if rec.OtherObject == nil || other.TriggerScript.Source != "" {
						rec.OtherObject = other
					}
					rec.OtherObjects[NormalizedName(other.Name)] = other
					skipTileCheck = true
				}
			}
		}
	}

	if checkType&CheckTile != 0 && !skipTileCheck && rec.Type != CollisionObject {
		if m.tileCollision(candidate) {
			rec.Type = CollisionTile
		}
	}

	return rec
}

func (m *Map) tileCollision(box Rect) bool {
	if m.TileWidth == 0 || m.TileHeight == 0 {
		return false
	}
	left := int(box.X) / m.TileWidth
	top := int(box.Y) / m.TileHeight
	right := int(box.X+box.Width) / m.TileWidth
	bottom := int(box.Y+box.Height) / m.TileHeight

	for _, cx := range []int{left, right} {
		for _, cy := range []int{top, bottom} {
			if cx < 0 || cy < 0 || cx >= m.Width || cy >= m.Height {
				return true
			}
		}
	}
	for y := top; y <= bottom; y++ {
		for x := left; x <= right; x++ {
			if !m.TilePassable(x, y) {
				return true
			}
		}
	}
	return false
}

func expandRect(r Rect, by float64) Rect {
	return Rect{r.X - by, r.Y - by, r.Width + 2*by, r.Height + 2*by}
}

// GetLayerByName returns the first layer (of any kind) whose Name
// matches, case-insensitively.
func (m *Map) GetLayerByName(name string) any {
	for _, l := range m.Layers {
		switch t := l.(type) {
		case *TileLayer:
			if strings.EqualFold(t.Name, name) {
				return t
			}
		case *ObjectLayer:
			if strings.EqualFold(t.Name, name) {
				return t
			}
		case *ImageLayer:
			if strings.EqualFold(t.Name, name) {
				return t
			}
		}
	}
	return nil
}

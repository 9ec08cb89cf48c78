package engine

import "github.com/hajimehoshi/ebiten/v2"

// TilesetTile holds per-tile metadata (e.g. collision/animation
// properties) for a single tile index within a Tileset.
type TilesetTile struct {
	ID         int
	Properties map[string]string
}

// Tileset is one <tileset> entry of a TMX map: the source image plus
// the first GID it covers (FirstID). No tile count is stored, so the GID
// range has no recorded upper end.
type Tileset struct {
	FirstID   int
	Name      string
	Filename  string
	TileWidth int
	TileHeight int
	Properties map[string]string
	ImageSource string
	ImageTransparentColor Color
	Image       *ebiten.Image
	Tiles       []TilesetTile

	columns int
}

// TileSourceRect returns the source rectangle within Image for the
// given tile index (0-based, relative to FirstID).
func (t *Tileset) TileSourceRect(tileIndex int) Rect {
	if t.columns == 0 {
		if t.Image != nil && t.TileWidth > 0 {
			t.columns = t.Image.Bounds().Dx() / t.TileWidth
		}
		if t.columns == 0 {
			t.columns = 1
		}
	}
	col := tileIndex % t.columns
	row := tileIndex / t.columns
	return Rect{
		X:      float64(col * t.TileWidth),
		Y:      float64(row * t.TileHeight),
		Width:  float64(t.TileWidth),
		Height: float64(t.TileHeight),
	}
}

// Contains reports whether gid (with flip bits already masked off) is at
// or above this tileset's FirstID; no upper bound is checked.
func (t *Tileset) Contains(gid uint32) bool {
	return int(gid) >= t.FirstID
}

// TilePropertiesFor returns the property bag for the tile at the given
// GID (flip bits masked off), or nil if the tile has no properties.
func (t *Tileset) TilePropertiesFor(gid uint32) map[string]string {
	idx := int(gid) - t.FirstID
	for i := range t.Tiles {
		if t.Tiles[i].ID == idx {
			return t.Tiles[i].Properties
		}
	}
	return nil
}

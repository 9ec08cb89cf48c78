package engine

import "github.com/hajimehoshi/ebiten/v2"

// Layer is the data shared by every map layer kind (tile, object, image).
// Rendering for tile layers is delegated to a TileMapLayer (see
// tilemap.go); Layer itself only carries the map-editor-facing fields.
type Layer struct {
	ID     int
	Name   string
	Width  int
	Height int

	Opacity float64
	Visible bool

	VertexShader   string
	FragmentShader string

	Properties map[string]string
}

// TileLayer is a grid of tile GIDs. Canvas is the rendering backend: a
// TileMapLayer built over the same tile data via NewTileLayerCanvas.
type TileLayer struct {
	Layer
	Tiles  []uint32 // row-major GIDs, len == Width*Height
	canvas *TileMapLayer
}

// NewTileLayerCanvas constructs the TileMapLayer that renders t inside
// viewport, sharing t.Tiles as the backing tile grid.
func (t *TileLayer) NewTileLayerCanvas(viewport *TileMapViewport, tileset *Tileset) *TileMapLayer {
	tl := viewport.AddTileLayer(t.Name, t.Width, t.Height, t.Tiles, nil, tileset.Image)
	t.canvas = tl
	return tl
}

// TileAt returns the raw GID (flip bits included) at tile coordinate
// (x, y), or 0 if out of range.
func (t *TileLayer) TileAt(x, y int) uint32 {
	if x < 0 || y < 0 || x >= t.Width || y >= t.Height {
		return 0
	}
	return t.Tiles[x+y*t.Width]
}

// ObjectLayer groups MapObjects that share a display tint and z-order.
type ObjectLayer struct {
	Layer
	Color   Color
	Objects []*MapObject
}

// ImageLayer is a single repeating/scrolling background or foreground
// image, optionally sprite-animated (e.g. an animated cloud layer).
type ImageLayer struct {
	Layer
	Repeat   bool
	Fixed    bool // true: does not scroll with the camera
	Velocity Vec2
	Position Vec2

	ImageSource            string
	ImageTransparentColor  Color
	Image                  *ebiten.Image
	sprite                 *Sprite
}

// SetSprite attaches an animated sprite to the image layer in place of
// a static Image.
func (l *ImageLayer) SetSprite(data *SpriteData) {
	l.sprite = NewSpriteInstance(data)
}

// Sprite returns the image layer's animated sprite, if any.
func (l *ImageLayer) Sprite() *Sprite { return l.sprite }

// Update advances the image layer's scroll position and, if animated,
// its sprite.
func (l *ImageLayer) Update(dtMillis float64) {
	l.Position = l.Position.Add(l.Velocity.Scale(dtMillis / 1000))
	if l.sprite != nil {
		l.sprite.Update(dtMillis)
	}
}

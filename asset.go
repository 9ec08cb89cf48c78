package engine

import (
	"fmt"
	"image"
	_ "image/png"
	"os"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
)

// AssetKind distinguishes the kind of resource an AssetCache entry holds.
type AssetKind uint8

const (
	AssetImage AssetKind = iota
	AssetSprite
	AssetSound
	AssetMusic
)

// assetEntry is a refcounted cache slot. Content is loaded once per unique
// filename and shared across every Map_Object/Sprite that references it;
// Release decrements the refcount and frees the underlying resource when
// it reaches zero, mirroring the teacher's atlas page interning but
// generalized to every resource kind the engine loads from disk.
type assetEntry struct {
	kind  AssetKind
	value any
	refs  int
}

// AssetCache is a filename-keyed, refcounted cache of textures and parsed
// sprite data. It has no sound or music loader: no entry is ever created
// with AssetSound or AssetMusic. It is safe to share a single AssetCache
// across every Map loaded during a session so that the same tileset image
// or sprite sheet is decoded from disk only once.
type AssetCache struct {
	mu      sync.Mutex
	entries map[string]*assetEntry
	loadImg func(path string) (*ebiten.Image, error)
}

// NewAssetCache creates an empty cache. loadImg may be nil to use the
// default os.ReadFile + image/png decode path; tests substitute a fake
// loader to avoid touching the filesystem.
func NewAssetCache(loadImg func(path string) (*ebiten.Image, error)) *AssetCache {
	if loadImg == nil {
		loadImg = loadImageFile
	}
	return &AssetCache{
		entries: make(map[string]*assetEntry),
		loadImg: loadImg,
	}
}

func loadImageFile(path string) (*ebiten.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetLoading, path, err)
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetLoading, path, err)
	}
	return ebiten.NewImageFromImage(img), nil
}

// Image returns the cached *ebiten.Image for path, loading and caching it
// on first use. Each call increments the entry's refcount; pair it with
// Release when the caller no longer needs the asset.
func (c *AssetCache) Image(path string) (*ebiten.Image, error) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok {
		e.refs++
		c.mu.Unlock()
		return e.value.(*ebiten.Image), nil
	}
	c.mu.Unlock()

	img, err := c.loadImg(path)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok {
		// Another goroutine loaded it first; keep theirs, drop ours.
		e.refs++
		return e.value.(*ebiten.Image), nil
	}
	c.entries[path] = &assetEntry{kind: AssetImage, value: img, refs: 1}
	return img, nil
}

// SpriteData returns the cached *SpriteData for path, parsing and caching
// it on first use via parseSpriteData.
func (c *AssetCache) SpriteData(path string) (*SpriteData, error) {
	c.mu.Lock()
	if e, ok := c.entries[path]; ok && e.kind == AssetSprite {
		e.refs++
		c.mu.Unlock()
		return e.value.(*SpriteData), nil
	}
	c.mu.Unlock()

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrAssetLoading, path, err)
	}
	sd, err := parseSpriteData(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFormatParse, path, err)
	}
	// Resolve the sprite sheet image through this same cache so it's
	// shared with any other sprite referencing the same sheet file.
	sd.Image, err = c.Image(sd.ImagePath)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[path]; ok {
		e.refs++
		return e.value.(*SpriteData), nil
	}
	c.entries[path] = &assetEntry{kind: AssetSprite, value: sd, refs: 1}
	return sd, nil
}

// Release decrements path's refcount, freeing the underlying GPU texture
// when it reaches zero. No-op for paths not present in the cache.
func (c *AssetCache) Release(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[path]
	if !ok {
		return
	}
	e.refs--
	if e.refs > 0 {
		return
	}
	if img, ok := e.value.(*ebiten.Image); ok {
		img.Deallocate()
	}
	delete(c.entries, path)
}

// Count returns the number of distinct cached entries, for tests and
// debug overlays.
func (c *AssetCache) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

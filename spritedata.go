package engine

import (
	"encoding/xml"
	"fmt"

	"github.com/hajimehoshi/ebiten/v2"
)

// Frame is a single animation frame within a Pose.
type Frame struct {
	// Duration is the frame's hold time in milliseconds. -1 means "use
	// the owning Pose's Duration instead".
	Duration int
	// MaxDuration, when greater than Duration, makes the sampled frame
	// duration uniformly random in [Duration, MaxDuration].
	MaxDuration int
	// Rectangle is the source rect within the sprite sheet image.
	Rectangle Rect
	// Magnification is the per-axis scale applied when drawing the frame.
	Magnification Vec2
	// Angle is the rotation in degrees (not radians, matching the
	// original format's authoring convention).
	Angle int
	// Opacity is the frame's alpha in [0, 1].
	Opacity float64
	// TweenFrame marks a frame whose properties are linearly
	// interpolated from the previous frame rather than held fixed.
	TweenFrame bool
	// SoundFile, when non-empty, is played when this frame is entered.
	SoundFile   string
	SoundVolume float64
	// Marker is an arbitrary tag recorded in Sprite.PassedMarkers when
	// this frame is entered (e.g. footstep sync points for scripts).
	Marker string
}

// Pose is a named animation sequence (e.g. "walk" facing "down").
type Pose struct {
	BoundingBox Rect
	// Duration is the default per-frame duration in milliseconds, used
	// when a Frame's own Duration is -1.
	Duration int
	// Repeats is the number of times the pose cycles before it stops
	// updating; -1 means loop forever.
	Repeats int
	Origin  Vec2
	Image   *ebiten.Image
	// Tags identify which name/state/direction this pose matches,
	// keyed by "name", "state", "direction".
	Tags   map[string]string
	Frames []Frame
	// RequiresCompletion holds the animation on a CompletionFrames frame
	// for one extra Update once its duration has elapsed: that Update sets
	// Sprite.Completed and returns, and the next one advances as usual.
	RequiresCompletion bool
	CompletionFrames   map[int]bool
}

// SpriteData is the parsed, shared contents of a sprite sheet file: the
// decoded image plus every pose/frame definition. Multiple Sprite
// instances reference the same *SpriteData through an AssetCache.
type SpriteData struct {
	Filename  string
	ImagePath string
	Image     *ebiten.Image
	Poses     []Pose
	// DefaultPoseIndex is preferred when tag matching ties, mirroring
	// the original's "favour the sprite's default pose" rule.
	DefaultPoseIndex int
	// HasDiagonalDirections is true if any pose tags a diagonal direction
	// (e.g. "Up|Left"), meaning the sheet draws all eight facings rather
	// than just the four cardinals.
	HasDiagonalDirections bool
}

// xmlSprite mirrors the on-disk <sprite> XML schema (see spec §6 Sprite XML).
type xmlSprite struct {
	XMLName xml.Name  `xml:"sprite"`
	Image   string    `xml:"image,attr"`
	Poses   []xmlPose `xml:"pose"`
}

type xmlPose struct {
	Name        string     `xml:"name,attr"`
	Duration    int        `xml:"duration,attr"`
	Repeats     int        `xml:"repeats,attr"`
	OriginX     float64    `xml:"origin-x,attr"`
	OriginY     float64    `xml:"origin-y,attr"`
	Tags        string     `xml:"tags,attr"`
	RequireDone bool       `xml:"requires-completion,attr"`
	Frames      []xmlFrame `xml:"frame"`
}

type xmlFrame struct {
	Duration  int     `xml:"duration,attr"`
	MaxDur    int     `xml:"max-duration,attr"`
	X         float64 `xml:"x,attr"`
	Y         float64 `xml:"y,attr"`
	Width     float64 `xml:"width,attr"`
	Height    float64 `xml:"height,attr"`
	MagX      float64 `xml:"mag-x,attr"`
	MagY      float64 `xml:"mag-y,attr"`
	Angle     int     `xml:"angle,attr"`
	Opacity   float64 `xml:"opacity,attr"`
	Tween     bool    `xml:"tween,attr"`
	Sound     string  `xml:"sound,attr"`
	SoundVol  float64 `xml:"sound-volume,attr"`
	Marker    string  `xml:"marker,attr"`
	Completes bool    `xml:"completes,attr"`
}

// parseSpriteData decodes a <sprite> XML document into a SpriteData.
// Image decoding is deferred to the caller (AssetCache.SpriteData) so the
// sheet image is loaded through the shared image cache.
func parseSpriteData(raw []byte) (*SpriteData, error) {
	var x xmlSprite
	if err := xml.Unmarshal(raw, &x); err != nil {
		return nil, fmt.Errorf("decode sprite xml: %w", err)
	}
	sd := &SpriteData{ImagePath: x.Image}
	for _, xp := range x.Poses {
		p := Pose{
			Duration: 100,
			Repeats:  -1,
			Origin:   Vec2{xp.OriginX, xp.OriginY},
			Tags:     parsePoseTags(xp.Tags),
		}
		if xp.Duration > 0 {
			p.Duration = xp.Duration
		}
		if xp.Repeats != 0 {
			p.Repeats = xp.Repeats
		}
		p.RequiresCompletion = xp.RequireDone
		p.CompletionFrames = make(map[int]bool)
		for i, xf := range xp.Frames {
			f := Frame{
				Duration:      xf.Duration,
				MaxDuration:   xf.MaxDur,
				Rectangle:     Rect{xf.X, xf.Y, xf.Width, xf.Height},
				Magnification: Vec2{X: orDefault(xf.MagX, 1), Y: orDefault(xf.MagY, 1)},
				Angle:         xf.Angle,
				Opacity:       orDefault(xf.Opacity, 1),
				TweenFrame:    xf.Tween,
				SoundFile:     xf.Sound,
				SoundVolume:   orDefault(xf.SoundVol, 1),
				Marker:        xf.Marker,
			}
			if f.Duration == 0 {
				f.Duration = -1
			}
			p.Frames = append(p.Frames, f)
			if xf.Completes {
				p.CompletionFrames[i] = true
			}
		}
		if d, _ := ParseDirection(p.Tags["direction"]); d.IsDiagonal() {
			sd.HasDiagonalDirections = true
		}
		sd.Poses = append(sd.Poses, p)
	}
	return sd, nil
}

func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// parsePoseTags splits a "name=walk;state=normal;direction=Down" tag
// string into a map, the format used by the sprite XML's tags attribute.
func parsePoseTags(s string) map[string]string {
	tags := make(map[string]string)
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ';' {
			if i > start {
				part := s[start:i]
				for j := 0; j < len(part); j++ {
					if part[j] == '=' {
						tags[part[:j]] = part[j+1:]
						break
					}
				}
			}
			start = i + 1
		}
	}
	return tags
}

package engine

import (
	"math/rand"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Sprite is a per-object animation instance over a shared *SpriteData.
// Multiple Sprites reference the same SpriteData (and therefore the same
// decoded sheet image); only the playback state below is per-instance.
type Sprite struct {
	data *SpriteData

	poseIndex  int
	poseKey    string
	frameIndex int

	// frameDuration is the sampled duration (ms) for the current frame,
	// re-sampled whenever it goes negative (spec §4.1 step 2).
	frameDuration float64
	elapsed       float64
	lastSoundFrame int
	repeatCount    int

	completed     bool
	stopUpdating  bool
	PassedMarkers []string

	speed float64

	tween *gween.Tween // drives magnification/angle/opacity LERP on tween frames

	// SfxVolume is the per-instance SFX volume multiplier (spec §4.1 step
	// 3, §4.6: final volume = frame.sound_volume × sfx_volume ×
	// attenuation). Defaults to 1.
	SfxVolume float64

	// PlaySound is invoked when a frame's sound effect should play; nil
	// disables audio (used by headless tests). volume is the frame's raw
	// sound_volume — callers (the object/game wiring that sets this field)
	// multiply in SfxVolume and §4.6 distance attenuation before playing.
	PlaySound func(file string, volume float64)
}

// NewSpriteInstance creates a Sprite bound to data, defaulting to pose 0.
func NewSpriteInstance(data *SpriteData) *Sprite {
	s := &Sprite{data: data, speed: 1, lastSoundFrame: -1, SfxVolume: 1}
	s.reset()
	return s
}

// reset restores default playback state on the current pose.
func (s *Sprite) reset() {
	s.frameIndex = 0
	s.frameDuration = -1
	s.elapsed = 0
	s.lastSoundFrame = -1
	s.repeatCount = 0
	s.completed = false
	s.stopUpdating = false
	s.PassedMarkers = nil
	s.tween = nil
}

// currentPose returns the Pose the sprite is currently playing.
func (s *Sprite) currentPose() *Pose {
	if len(s.data.Poses) == 0 {
		return nil
	}
	if s.poseIndex < 0 || s.poseIndex >= len(s.data.Poses) {
		return &s.data.Poses[0]
	}
	return &s.data.Poses[s.poseIndex]
}

// Frame returns the currently displayed frame.
func (s *Sprite) Frame() *Frame {
	p := s.currentPose()
	if p == nil || len(p.Frames) == 0 {
		return nil
	}
	return &p.Frames[s.frameIndex]
}

// Completed reports whether the pose reached a completion checkpoint (or,
// for non-required poses, whether its repeat count was exhausted).
func (s *Sprite) Completed() bool { return s.completed }

// IsStopped reports whether the sprite has stopped updating entirely.
func (s *Sprite) IsStopped() bool { return s.stopUpdating }

// Stop freezes the sprite on its current frame.
func (s *Sprite) Stop() { s.stopUpdating = true }

// Speed returns the animation speed multiplier.
func (s *Sprite) Speed() float64 { return s.speed }

// SetSpeed sets the animation speed multiplier; frame durations are
// divided by speed, so 2.0 plays twice as fast.
func (s *Sprite) SetSpeed(speed float64) { s.speed = speed }

// SetPose selects the best-matching pose for (name, state, direction),
// caching the match by the exact "P:NAME|S:STATE|D:DIR" key (spec §4.1)
// so repeated calls with the same arguments skip the tag scan. Replacing
// the pose resets playback state; resetFrame=false preserves the current
// frame index modulo the new pose's frame count.
func (s *Sprite) SetPose(name, state, direction string, resetFrame bool) {
	key := "P:" + name + "|S:" + state + "|D:" + direction
	if key == s.poseKey {
		return
	}
	s.poseKey = key

	best := -1
	bestScore := -1
	for i := range s.data.Poses {
		score := 0
		tags := s.data.Poses[i].Tags
		if tags["name"] == name {
			score++
		}
		if tags["state"] == state {
			score++
		}
		if tags["direction"] == direction {
			score++
		}
		if score > bestScore {
			bestScore = score
			best = i
		} else if score == bestScore && best != s.data.DefaultPoseIndex && i == s.data.DefaultPoseIndex {
			best = i
		}
	}
	if best < 0 {
		best = s.data.DefaultPoseIndex
	}
	if best < 0 || best >= len(s.data.Poses) {
		best = 0
	}

	prevFrame := s.frameIndex
	s.poseIndex = best
	s.reset()
	if !resetFrame {
		if p := s.currentPose(); p != nil && len(p.Frames) > 0 {
			s.frameIndex = prevFrame % len(p.Frames)
		}
	}
}

// Update advances playback by dtMillis milliseconds, per spec §4.1.
func (s *Sprite) Update(dtMillis float64) {
	p := s.currentPose()
	if s.stopUpdating || p == nil || len(p.Frames) == 0 {
		return
	}

	if s.frameDuration < 0 {
		f := &p.Frames[s.frameIndex]
		base := float64(f.Duration)
		if f.Duration < 0 {
			base = float64(p.Duration)
		}
		dur := base
		if float64(f.MaxDuration) > base {
			dur += rand.Float64() * (float64(f.MaxDuration) - base)
		}
		s.frameDuration = dur / s.speed
	}

	f := &p.Frames[s.frameIndex]
	if f.SoundFile != "" && s.lastSoundFrame != s.frameIndex && s.PlaySound != nil {
		s.PlaySound(f.SoundFile, f.SoundVolume)
		s.lastSoundFrame = s.frameIndex
	}

	s.elapsed += dtMillis
	if s.updateTween(f); s.elapsed > s.frameDuration {
		if p.RequiresCompletion && p.CompletionFrames[s.frameIndex] && !s.completed {
			s.completed = true
			return
		}

		wrapped := s.frameIndex+1 >= len(p.Frames)
		s.frameIndex = (s.frameIndex + 1) % len(p.Frames)
		s.elapsed = 0
		s.frameDuration = -1
		if wrapped {
			s.lastSoundFrame = -1
			s.repeatCount++
			s.PassedMarkers = nil
		}

		if p.Repeats >= 0 && s.repeatCount >= p.Repeats {
			s.completed = true
			s.stopUpdating = true
		} else if len(p.CompletionFrames) > 0 {
			s.completed = false
		}

		if nf := &p.Frames[s.frameIndex]; nf.Marker != "" {
			s.PassedMarkers = append(s.PassedMarkers, nf.Marker)
		}
		if nf := &p.Frames[s.frameIndex]; nf.TweenFrame && s.frameIndex > 0 {
			prev := p.Frames[s.frameIndex-1]
			nf.Rectangle = prev.Rectangle
			s.tween = gween.New(0, 1, float32(s.frameDurationOrDefault(p)/1000), ease.Linear)
		}
	}
}

func (s *Sprite) frameDurationOrDefault(p *Pose) float64 {
	if s.frameDuration > 0 {
		return s.frameDuration
	}
	return float64(p.Duration)
}

// updateTween applies the in-progress magnification/angle/opacity LERP
// for a tween frame, reading the previous frame as the interpolation start.
func (s *Sprite) updateTween(f *Frame) {
	if !f.TweenFrame || s.tween == nil || s.frameIndex == 0 {
		return
	}
	p := s.currentPose()
	prev := p.Frames[s.frameIndex-1]
	alpha, finished := s.tween.Update(1.0 / 60.0)
	f.Magnification = prev.Magnification.Lerp(f.Magnification, float64(alpha))
	f.Angle = int(float64(prev.Angle) + (float64(f.Angle)-float64(prev.Angle))*float64(alpha))
	f.Opacity = prev.Opacity + (f.Opacity-prev.Opacity)*float64(alpha)
	if finished {
		s.tween = nil
	}
}

// BoundingBox returns the current pose's collision bounding box.
func (s *Sprite) BoundingBox() Rect {
	if p := s.currentPose(); p != nil {
		return p.BoundingBox
	}
	return Rect{}
}

// IsEightDirectional reports whether this sprite's sheet draws distinct
// diagonal poses, so movement facing should track the exact move
// direction instead of collapsing to the nearest cardinal.
func (s *Sprite) IsEightDirectional() bool {
	return s.data.HasDiagonalDirections
}

// Size returns the dimensions of the first frame of the current pose,
// used as the default object footprint when no explicit size is set.
func (s *Sprite) Size() Vec2 {
	p := s.currentPose()
	if p == nil || len(p.Frames) == 0 {
		return Vec2{}
	}
	r := p.Frames[0].Rectangle
	return Vec2{r.Width, r.Height}
}

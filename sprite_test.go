package engine

import "testing"

func testSpriteData() *SpriteData {
	return &SpriteData{
		Poses: []Pose{
			{
				Duration: 100,
				Repeats:  -1,
				Tags:     map[string]string{"name": "idle", "state": "normal", "direction": "Down"},
				Frames: []Frame{
					{Duration: 100, Rectangle: Rect{0, 0, 16, 16}, Magnification: Vec2{1, 1}, Opacity: 1},
					{Duration: 100, Rectangle: Rect{16, 0, 16, 16}, Magnification: Vec2{1, 1}, Opacity: 1},
				},
			},
			{
				Duration: 100,
				Repeats:  2,
				Tags:     map[string]string{"name": "walk", "state": "normal", "direction": "Down"},
				Frames: []Frame{
					{Duration: 50, Rectangle: Rect{0, 16, 16, 16}},
					{Duration: 50, Rectangle: Rect{16, 16, 16, 16}, Marker: "step"},
				},
			},
		},
	}
}

func TestSpriteSetPoseCachesKey(t *testing.T) {
	s := NewSpriteInstance(testSpriteData())
	s.SetPose("walk", "normal", "Down", true)
	if s.poseIndex != 1 {
		t.Fatalf("poseIndex = %d, want 1", s.poseIndex)
	}
	s.frameIndex = 1
	s.SetPose("walk", "normal", "Down", true)
	if s.frameIndex != 1 {
		t.Fatalf("calling SetPose with identical key should be a no-op; frameIndex = %d", s.frameIndex)
	}
}

func TestSpriteAdvancesAndWraps(t *testing.T) {
	s := NewSpriteInstance(testSpriteData())
	s.SetPose("idle", "normal", "Down", true)
	s.Update(150) // exceeds the 100ms frame duration
	if s.frameIndex != 1 {
		t.Fatalf("frameIndex = %d, want 1 after advancing past duration", s.frameIndex)
	}
	s.Update(150) // exceeds the last frame's 100ms too
	if s.frameIndex != 0 {
		t.Fatalf("frameIndex = %d, want 0 after wrapping past the last frame", s.frameIndex)
	}
}

func TestSpriteRepeatsStopUpdating(t *testing.T) {
	s := NewSpriteInstance(testSpriteData())
	s.SetPose("walk", "normal", "Down", true)
	for i := 0; i < 10; i++ {
		s.Update(60)
	}
	if !s.IsStopped() {
		t.Fatalf("sprite should stop updating after repeats exhausted")
	}
}

func TestSpriteMarkerRecorded(t *testing.T) {
	s := NewSpriteInstance(testSpriteData())
	s.SetPose("walk", "normal", "Down", true)
	s.Update(60) // advance to frame 1 (marker "step")
	found := false
	for _, m := range s.PassedMarkers {
		if m == "step" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected marker 'step' in PassedMarkers, got %v", s.PassedMarkers)
	}
}

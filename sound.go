package engine

import (
	"bytes"
	"fmt"
	"os"

	"github.com/hajimehoshi/ebiten/v2/audio"
	"github.com/hajimehoshi/ebiten/v2/audio/wav"
)

// audioSampleRate is the shared context sample rate every decoded track
// is resampled to.
const audioSampleRate = 44100

// MusicSystem owns the single shared ebiten audio.Context and the
// currently playing background track. command.go's MusicFadeCommand
// already documents that "*ebiten/v2/audio.Player satisfies [MusicPlayer]
// without adaptation" — Current returns that *audio.Player directly, no
// wrapper type needed.
type MusicSystem struct {
	ctx     *audio.Context
	current *audio.Player
	path    string
}

// NewMusicSystem creates a MusicSystem with its own audio context. Only
// one audio.Context may exist per process; callers embedding Game as the
// sole audio consumer can rely on that.
func NewMusicSystem() *MusicSystem {
	return &MusicSystem{ctx: audio.NewContext(audioSampleRate)}
}

// Play decodes filename as a looping WAV track and starts playback,
// stopping whatever track was previously playing. No-op if filename is
// already playing.
func (s *MusicSystem) Play(filename string) error {
	if s.path == filename && s.current != nil {
		return nil
	}
	s.Stop()

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAssetLoading, filename, err)
	}
	stream, err := wav.DecodeWithSampleRate(audioSampleRate, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAudioBackend, filename, err)
	}
	loop := audio.NewInfiniteLoop(stream, stream.Length())
	player, err := s.ctx.NewPlayer(loop)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAudioBackend, filename, err)
	}
	player.Play()
	s.current = player
	s.path = filename
	return nil
}

// Stop halts and releases the current track, if any.
func (s *MusicSystem) Stop() {
	if s.current == nil {
		return
	}
	s.current.Close()
	s.current = nil
	s.path = ""
}

// Current returns the active track's volume-control handle, or a no-op
// stand-in if nothing is playing, so Music_Fade always has a target.
func (s *MusicSystem) Current() MusicPlayer {
	if s.current == nil {
		return noopMusicPlayer{}
	}
	return s.current
}

// Path returns the filename of the currently playing track, or "".
func (s *MusicSystem) Path() string { return s.path }

// Context returns the shared audio.Context so a SoundSystem can play
// one-shot effects on the same context instead of opening a second one.
func (s *MusicSystem) Context() *audio.Context { return s.ctx }

// noopMusicPlayer satisfies MusicPlayer when no track is loaded.
type noopMusicPlayer struct{}

func (noopMusicPlayer) Volume() float64   { return 0 }
func (noopMusicPlayer) SetVolume(float64) {}

// SoundSystem plays one-shot sprite-frame sound effects (spec §4.1 step
// 3, §4.6) on the same audio.Context a MusicSystem uses, caching each
// file's decoded PCM so repeat plays (footsteps, idle barks) don't
// re-read and re-decode the WAV from disk every frame.
type SoundSystem struct {
	ctx   *audio.Context
	cache map[string][]byte
}

// NewSoundSystem creates a SoundSystem sharing ctx with the process's
// MusicSystem (only one audio.Context may exist per process).
func NewSoundSystem(ctx *audio.Context) *SoundSystem {
	return &SoundSystem{ctx: ctx, cache: make(map[string][]byte)}
}

// Play decodes filename (caching the raw PCM across calls) and starts an
// independent one-shot player at volume. Errors are non-fatal: a missing
// or malformed sound file shouldn't interrupt gameplay, so callers
// typically log and discard them.
func (s *SoundSystem) Play(filename string, volume float64) error {
	pcm, ok := s.cache[filename]
	if !ok {
		data, err := os.ReadFile(filename)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAssetLoading, filename, err)
		}
		stream, err := wav.DecodeWithSampleRate(audioSampleRate, bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAudioBackend, filename, err)
		}
		pcm = make([]byte, stream.Length())
		if _, err := stream.Read(pcm); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrAudioBackend, filename, err)
		}
		s.cache[filename] = pcm
	}

	player, err := s.ctx.NewPlayer(bytes.NewReader(pcm))
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrAudioBackend, filename, err)
	}
	player.SetVolume(clampVolume(volume))
	player.Play()
	return nil
}

func clampVolume(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package engine

import "errors"

// Sentinel error kinds wrapped by every fallible subsystem. Callers use
// errors.Is to branch on kind without depending on message text.
var (
	// ErrAssetLoading covers image/sound decode failures and missing files.
	ErrAssetLoading = errors.New("engine: asset loading error")
	// ErrFormatParse covers malformed TMX/sprite/NPC XML and sprite data.
	ErrFormatParse = errors.New("engine: format parse error")
	// ErrCollisionMisconfig covers a map/object collision setup that
	// cannot be resolved (missing collision layer, degenerate geometry).
	ErrCollisionMisconfig = errors.New("engine: collision misconfiguration")
	// ErrScripting covers Lua compile/runtime errors surfaced from the
	// embedded script VM.
	ErrScripting = errors.New("engine: scripting error")
	// ErrAudioBackend covers failures from the underlying audio device.
	ErrAudioBackend = errors.New("engine: audio backend error")
	// ErrConfigParse covers malformed configuration files.
	ErrConfigParse = errors.New("engine: config parse error")
)

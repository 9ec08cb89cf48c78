package engine

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// physicalKeyKind distinguishes a keyboard key from a gamepad button, since
// ebiten models them as unrelated types.
type physicalKeyKind uint8

const (
	physicalKeyboard physicalKeyKind = iota
	physicalGamepad
)

// physicalKey is either a keyboard key or a standard-layout gamepad button,
// the two kinds of input a keymap entry can bind to.
type physicalKey struct {
	kind   physicalKeyKind
	key    ebiten.Key
	button ebiten.StandardGamepadButton
}

// KeyBinder maps virtual action names ("up", "down", "a", "pause", ...) to
// one or more physical keys, and answers pressed/triggered queries against
// whichever physical keys are currently bound to a name. Action scripts and
// Player_Controller consult it exclusively by virtual name, never by
// physical key, so a keymap file can freely remap controls (spec §4.11).
type KeyBinder struct {
	keysForName map[string][]physicalKey
	nameForKey  map[physicalKey]string

	bound            map[string][]physicalKey
	changedSinceSave bool
}

// NewKeyBinder builds a binder with the full physical-key name table
// populated but no virtual bindings. Call BindDefaults or LoadKeymapFile to
// populate bindings.
func NewKeyBinder() *KeyBinder {
	b := &KeyBinder{
		keysForName: make(map[string][]physicalKey),
		nameForKey:  make(map[physicalKey]string),
		bound:       make(map[string][]physicalKey),
	}
	b.registerPhysicalKeys()
	return b
}

func (b *KeyBinder) addPhysical(name string, keys ...physicalKey) {
	b.keysForName[name] = keys
	for _, k := range keys {
		b.nameForKey[k] = name
	}
}

func kbKey(k ebiten.Key) physicalKey { return physicalKey{kind: physicalKeyboard, key: k} }
func gpKey(b ebiten.StandardGamepadButton) physicalKey {
	return physicalKey{kind: physicalGamepad, button: b}
}

// registerPhysicalKeys builds the physical key name table.
func (b *KeyBinder) registerPhysicalKeys() {
	b.addPhysical("LEFT", kbKey(ebiten.KeyArrowLeft))
	b.addPhysical("RIGHT", kbKey(ebiten.KeyArrowRight))
	b.addPhysical("UP", kbKey(ebiten.KeyArrowUp))
	b.addPhysical("DOWN", kbKey(ebiten.KeyArrowDown))
	b.addPhysical("ENTER", kbKey(ebiten.KeyEnter))
	b.addPhysical("SPACE", kbKey(ebiten.KeySpace))
	b.addPhysical("ESC", kbKey(ebiten.KeyEscape))
	b.addPhysical("LEFT_CTRL", kbKey(ebiten.KeyControlLeft))
	b.addPhysical("RIGHT_CTRL", kbKey(ebiten.KeyControlRight))
	b.addPhysical("CTRL", kbKey(ebiten.KeyControlLeft), kbKey(ebiten.KeyControlRight))
	b.addPhysical("LEFT_ALT", kbKey(ebiten.KeyAltLeft))
	b.addPhysical("RIGHT_ALT", kbKey(ebiten.KeyAltRight))
	b.addPhysical("ALT", kbKey(ebiten.KeyAltLeft), kbKey(ebiten.KeyAltRight))
	b.addPhysical("LEFT_SHIFT", kbKey(ebiten.KeyShiftLeft))
	b.addPhysical("RIGHT_SHIFT", kbKey(ebiten.KeyShiftRight))
	b.addPhysical("SHIFT", kbKey(ebiten.KeyShiftLeft), kbKey(ebiten.KeyShiftRight))
	b.addPhysical("APOSTROPHE", kbKey(ebiten.KeyApostrophe))
	b.addPhysical("BACKSLASH", kbKey(ebiten.KeyBackslash))
	b.addPhysical("BACKSPACE", kbKey(ebiten.KeyBackspace))
	b.addPhysical("CAPSLOCK", kbKey(ebiten.KeyCapsLock))
	b.addPhysical("COMMA", kbKey(ebiten.KeyComma))
	b.addPhysical("DELETE", kbKey(ebiten.KeyDelete))
	b.addPhysical("END", kbKey(ebiten.KeyEnd))
	b.addPhysical("EQUAL", kbKey(ebiten.KeyEqual))
	b.addPhysical("F1", kbKey(ebiten.KeyF1))
	b.addPhysical("F2", kbKey(ebiten.KeyF2))
	b.addPhysical("F3", kbKey(ebiten.KeyF3))
	b.addPhysical("F4", kbKey(ebiten.KeyF4))
	b.addPhysical("F5", kbKey(ebiten.KeyF5))
	b.addPhysical("F6", kbKey(ebiten.KeyF6))
	b.addPhysical("F7", kbKey(ebiten.KeyF7))
	b.addPhysical("F8", kbKey(ebiten.KeyF8))
	b.addPhysical("F9", kbKey(ebiten.KeyF9))
	b.addPhysical("F10", kbKey(ebiten.KeyF10))
	b.addPhysical("F11", kbKey(ebiten.KeyF11))
	b.addPhysical("F12", kbKey(ebiten.KeyF12))
	b.addPhysical("GRAVEACCENT", kbKey(ebiten.KeyGraveAccent))
	b.addPhysical("HOME", kbKey(ebiten.KeyHome))
	b.addPhysical("INSERT", kbKey(ebiten.KeyInsert))
	b.addPhysical("NUMPAD0", kbKey(ebiten.KeyKP0))
	b.addPhysical("NUMPAD1", kbKey(ebiten.KeyKP1))
	b.addPhysical("NUMPAD2", kbKey(ebiten.KeyKP2))
	b.addPhysical("NUMPAD3", kbKey(ebiten.KeyKP3))
	b.addPhysical("NUMPAD4", kbKey(ebiten.KeyKP4))
	b.addPhysical("NUMPAD5", kbKey(ebiten.KeyKP5))
	b.addPhysical("NUMPAD6", kbKey(ebiten.KeyKP6))
	b.addPhysical("NUMPAD7", kbKey(ebiten.KeyKP7))
	b.addPhysical("NUMPAD8", kbKey(ebiten.KeyKP8))
	b.addPhysical("NUMPAD9", kbKey(ebiten.KeyKP9))
	b.addPhysical("NUMPADPLUS", kbKey(ebiten.KeyKPAdd))
	b.addPhysical("NUMPADDECIMAL", kbKey(ebiten.KeyKPDecimal))
	b.addPhysical("NUMPADDIVIDE", kbKey(ebiten.KeyKPDivide))
	b.addPhysical("NUMPADENTER", kbKey(ebiten.KeyKPEnter))
	b.addPhysical("NUMPADEQUAL", kbKey(ebiten.KeyKPEqual))
	b.addPhysical("NUMPADTIMES", kbKey(ebiten.KeyKPMultiply))
	b.addPhysical("NUMPADMINUS", kbKey(ebiten.KeyKPSubtract))
	b.addPhysical("LBRACKET", kbKey(ebiten.KeyLeftBracket))
	b.addPhysical("RBRACKET", kbKey(ebiten.KeyRightBracket))
	b.addPhysical("LSUPER", kbKey(ebiten.KeyMetaLeft))
	b.addPhysical("RSUPER", kbKey(ebiten.KeyMetaRight))
	b.addPhysical("MENU", kbKey(ebiten.KeyContextMenu))
	b.addPhysical("MINUS", kbKey(ebiten.KeyMinus))
	b.addPhysical("NUMLOCK", kbKey(ebiten.KeyNumLock))
	b.addPhysical("PAGEDOWN", kbKey(ebiten.KeyPageDown))
	b.addPhysical("PAGEUP", kbKey(ebiten.KeyPageUp))
	b.addPhysical("PAUSE", kbKey(ebiten.KeyPause))
	b.addPhysical("PERIOD", kbKey(ebiten.KeyPeriod))
	b.addPhysical("PRTSCN", kbKey(ebiten.KeyPrintScreen))
	b.addPhysical("SCROLLLOCK", kbKey(ebiten.KeyScrollLock))
	b.addPhysical("SEMICOLON", kbKey(ebiten.KeySemicolon))
	b.addPhysical("SLASH", kbKey(ebiten.KeySlash))
	b.addPhysical("TAB", kbKey(ebiten.KeyTab))

	for r := 'A'; r <= 'Z'; r++ {
		name := string(r)
		key := ebiten.KeyA + ebiten.Key(r-'A')
		b.addPhysical(name, kbKey(key))
	}
	for r := '0'; r <= '9'; r++ {
		name := string(r)
		key := ebiten.Key0 + ebiten.Key(r-'0')
		b.addPhysical(name, kbKey(key))
	}

	b.addPhysical("GAMEPAD-A", gpKey(ebiten.StandardGamepadButtonRightBottom))
	b.addPhysical("GAMEPAD-B", gpKey(ebiten.StandardGamepadButtonRightRight))
	b.addPhysical("GAMEPAD-X", gpKey(ebiten.StandardGamepadButtonRightLeft))
	b.addPhysical("GAMEPAD-Y", gpKey(ebiten.StandardGamepadButtonRightTop))
	b.addPhysical("GAMEPAD-LB", gpKey(ebiten.StandardGamepadButtonFrontTopLeft))
	b.addPhysical("GAMEPAD-RB", gpKey(ebiten.StandardGamepadButtonFrontTopRight))
	b.addPhysical("GAMEPAD-BACK", gpKey(ebiten.StandardGamepadButtonCenterLeft))
	b.addPhysical("GAMEPAD-START", gpKey(ebiten.StandardGamepadButtonCenterRight))
	b.addPhysical("GAMEPAD-GUIDE", gpKey(ebiten.StandardGamepadButtonHome))
	b.addPhysical("GAMEPAD-LSB", gpKey(ebiten.StandardGamepadButtonLeftStick))
	b.addPhysical("GAMEPAD-RSB", gpKey(ebiten.StandardGamepadButtonRightStick))
	b.addPhysical("GAMEPAD-UP", gpKey(ebiten.StandardGamepadButtonLeftTop))
	b.addPhysical("GAMEPAD-RIGHT", gpKey(ebiten.StandardGamepadButtonLeftRight))
	b.addPhysical("GAMEPAD-DOWN", gpKey(ebiten.StandardGamepadButtonLeftBottom))
	b.addPhysical("GAMEPAD-LEFT", gpKey(ebiten.StandardGamepadButtonLeftLeft))
	b.addPhysical("GAMEPAD-LT", gpKey(ebiten.StandardGamepadButtonFrontBottomLeft))
	b.addPhysical("GAMEPAD-RT", gpKey(ebiten.StandardGamepadButtonFrontBottomRight))
}

// BindKey binds a physical key name (case-insensitive) to a virtual action
// name. The same virtual name may have several physical keys bound to it.
func (b *KeyBinder) BindKey(physicalName, virtualName string) error {
	key := strings.ToUpper(strings.TrimSpace(physicalName))
	keys, ok := b.keysForName[key]
	if !ok {
		return fmt.Errorf("keymap: unknown physical key %q", physicalName)
	}
	for _, k := range keys {
		isNew := true
		for _, already := range b.bound[virtualName] {
			if already == k {
				isNew = false
				break
			}
		}
		if isNew {
			b.bound[virtualName] = append(b.bound[virtualName], k)
			b.changedSinceSave = true
		}
	}
	return nil
}

// UnbindKey removes a physical key from every virtual name it's bound to.
func (b *KeyBinder) UnbindKey(physicalName string) error {
	key := strings.ToUpper(strings.TrimSpace(physicalName))
	keys, ok := b.keysForName[key]
	if !ok {
		return fmt.Errorf("keymap: unknown physical key %q", physicalName)
	}
	for virtual, bound := range b.bound {
		b.bound[virtual] = removePhysicalKeys(bound, keys)
	}
	b.changedSinceSave = true
	return nil
}

func removePhysicalKeys(bound []physicalKey, remove []physicalKey) []physicalKey {
	out := bound[:0]
	for _, k := range bound {
		skip := false
		for _, r := range remove {
			if k == r {
				skip = true
				break
			}
		}
		if !skip {
			out = append(out, k)
		}
	}
	return out
}

// BindDefaults resets every binding to the engine's default control scheme:
// arrow keys and WASD for movement, Z/Enter/Space for the action button, and
// a matching gamepad layout (spec §4.11).
func (b *KeyBinder) BindDefaults() {
	b.bound = make(map[string][]physicalKey)
	mustBind := func(physical, virtual string) {
		if err := b.BindKey(physical, virtual); err != nil {
			panic(err)
		}
	}
	mustBind("ESC", "pause")
	mustBind("LEFT", "left")
	mustBind("A", "left")
	mustBind("RIGHT", "right")
	mustBind("D", "right")
	mustBind("UP", "up")
	mustBind("W", "up")
	mustBind("DOWN", "down")
	mustBind("S", "down")
	mustBind("ENTER", "a")
	mustBind("SPACE", "a")
	mustBind("Z", "a")
	mustBind("J", "a")
	mustBind("X", "b")
	mustBind("K", "b")
	mustBind("C", "x")
	mustBind("L", "x")
	mustBind("V", "y")
	mustBind("I", "y")
	mustBind("GAMEPAD-UP", "up")
	mustBind("GAMEPAD-DOWN", "down")
	mustBind("GAMEPAD-LEFT", "left")
	mustBind("GAMEPAD-RIGHT", "right")
	mustBind("GAMEPAD-A", "a")
	mustBind("GAMEPAD-B", "b")
	mustBind("GAMEPAD-X", "x")
	mustBind("GAMEPAD-Y", "y")
	mustBind("GAMEPAD-START", "pause")
	b.changedSinceSave = false
}

// LoadKeymapFile reads a keymap file, one binding per line in the format
// "virtual_name = key1, key2, ..."; blank lines and lines starting with '#'
// are ignored. Each line overwrites any existing bindings for that virtual
// name (spec §4.11, §6 Data files).
func (b *KeyBinder) LoadKeymapFile(r io.Reader) error {
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" || strings.HasPrefix(text, "#") {
			continue
		}
		parts := strings.SplitN(text, "=", 2)
		if len(parts) < 2 {
			continue
		}
		virtual := strings.TrimSpace(parts[0])
		if virtual == "" {
			continue
		}
		delete(b.bound, virtual)
		for _, physical := range strings.Split(parts[1], ",") {
			physical = strings.TrimSpace(physical)
			if physical == "" {
				continue
			}
			if err := b.BindKey(physical, virtual); err != nil {
				continue
			}
		}
	}
	b.changedSinceSave = true
	return scanner.Err()
}

// SaveKeymapFile writes out the current bindings in LoadKeymapFile's format.
func (b *KeyBinder) SaveKeymapFile(w io.Writer) error {
	if _, err := io.WriteString(w, "# virtual_name = key1, key2, gamepad-key1, etc.\n"); err != nil {
		return err
	}

	names := make([]string, 0, len(b.bound))
	for name := range b.bound {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, virtual := range names {
		var physicalNames []string
		seen := make(map[string]bool)
		for _, k := range b.bound[virtual] {
			name := b.nameForKey[k]
			if name != "" && !seen[name] {
				seen[name] = true
				physicalNames = append(physicalNames, name)
			}
		}
		if len(physicalNames) == 0 {
			continue
		}
		if _, err := fmt.Fprintf(w, "%s = %s\n", virtual, strings.Join(physicalNames, ", ")); err != nil {
			return err
		}
	}
	b.changedSinceSave = false
	return nil
}

// ChangedSinceSave reports whether bindings changed since the last save.
func (b *KeyBinder) ChangedSinceSave() bool { return b.changedSinceSave }

// GetKeys returns the physical key names bound to physicalName's own entry
// (i.e. the canonical name lookup), mainly useful for validating config.
func (b *KeyBinder) GetKeys(physicalName string) []string {
	key := strings.ToUpper(strings.TrimSpace(physicalName))
	if _, ok := b.keysForName[key]; ok {
		return []string{key}
	}
	return nil
}

// Pressed reports whether any physical key bound to virtualName is
// currently held down.
func (b *KeyBinder) Pressed(virtualName string) bool {
	for _, k := range b.bound[virtualName] {
		if physicalKeyPressed(k) {
			return true
		}
	}
	return false
}

// Triggered reports whether any physical key bound to virtualName was
// pressed down on this exact frame (edge-triggered, for menu/action input).
func (b *KeyBinder) Triggered(virtualName string) bool {
	for _, k := range b.bound[virtualName] {
		if physicalKeyTriggered(k) {
			return true
		}
	}
	return false
}

func physicalKeyPressed(k physicalKey) bool {
	switch k.kind {
	case physicalKeyboard:
		return ebiten.IsKeyPressed(k.key)
	case physicalGamepad:
		for _, id := range ebiten.AppendGamepadIDs(nil) {
			if ebiten.IsStandardGamepadButtonPressed(id, k.button) {
				return true
			}
		}
	}
	return false
}

func physicalKeyTriggered(k physicalKey) bool {
	switch k.kind {
	case physicalKeyboard:
		return inpututil.IsKeyJustPressed(k.key)
	case physicalGamepad:
		for _, id := range ebiten.AppendGamepadIDs(nil) {
			if inpututil.IsStandardGamepadButtonJustPressed(id, k.button) {
				return true
			}
		}
	}
	return false
}

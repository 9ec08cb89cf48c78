package engine

import (
	"bufio"
	"bytes"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// configDefault pairs a key's value and whether operators are allowed to
// override it from a config file (spec §6 Configuration).
type configDefault struct {
	value      string
	modifiable bool
}

// configSectionOrder names the section groups in the order they're written
// back out by Save, matching the original's "preserve authoring order"
// behavior without needing to track raw file lines.
var configSectionOrder = []string{
	"graphics", "audio", "text", "controls", "debug", "player", "startup", "logging",
}

// configDefaults holds the built-in values for every key recognized by
// spec §6's Configuration grammar (graphics/audio/text/controls/debug/
// player/startup/logging). Keys outside this set are still accepted and
// stored verbatim, read back only via GetString.
var configDefaults = map[string]configDefault{
	"graphics.game-width":  {"320", false},
	"graphics.game-height": {"240", false},
	"graphics.logic-fps":   {"60", true},
	"graphics.canvas-fps":  {"40", true},
	"graphics.fullscreen":  {"0", true},
	"graphics.scale-mode":  {"default", true},
	"graphics.brightness":  {"1", true},
	"graphics.contrast":    {"1", true},
	"graphics.gamma":       {"1", true},

	"audio.music-volume":             {"1", true},
	"audio.sound-volume":             {"1", true},
	"audio.sound-attenuation-factor": {"50", true},
	"audio.mute-on-pause":            {"1", true},

	"text.fade-in-duration":      {"250", true},
	"text.fade-out-duration":     {"250", true},
	"text.choice-selected-color": {"#FF00FF00", true},
	"text.background-color":      {"#7F000000", true},
	"text.canvas-priority":       {"1000", false},
	"text.screen-edge-margin-x":  {"20", true},
	"text.screen-edge-margin-y":  {"20", true},

	"controls.action-button":   {"a", true},
	"controls.cancel-button":   {"b", true},
	"controls.pause-button":    {"pause", true},
	"controls.gamepad-enabled": {"1", true},
	"controls.stick-sensitivity": {"0.5", true},
	"controls.mapping-file":    {"keymap.ini", false},

	"debug.use-fbo":              {"1", true},
	"debug.pathfinding-sprite":   {"", false},
	"debug.update-config-files":  {"1", true},

	"player.collision-check-delay": {"50", true},
	"player.edge-tolerance-pixels": {"8", true},
	"player.proximity-distance":    {"8", true},

	"startup.map":            {"", true},
	"startup.player-sprite":  {"", true},
	"startup.player-position-x": {"70", true},
	"startup.player-position-y": {"50", true},
	"startup.tint-color":     {"00000000", true},
	"startup.clear-color":    {"00000000", true},

	"logging.enabled":          {"1", true},
	"logging.filename":         {"game.log", true},
	"logging.level":            {"debug", true},
	"logging.mode":             {"truncate", true},
	"logging.file-count":       {"-1", true},
	"logging.max-file-size-kb": {"-1", true},
}

// Config is a flat dotted-key configuration store, loaded from an
// INI-style `[section]` / `key = value` file (spec §6 Configuration).
type Config struct {
	values  map[string]string
	changed bool
}

// NewConfig returns a Config seeded with built-in defaults and no
// explicitly set values, matching a fresh install with no config file.
func NewConfig() *Config {
	return &Config{values: make(map[string]string)}
}

// LoadConfig parses an INI-style document into a Config, returning the
// parse errors it hit (malformed lines are skipped, not fatal, matching
// the original parser's tolerant behavior).
func LoadConfig(data []byte) (*Config, []error) {
	cfg := NewConfig()
	var errs []error
	section := ""
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(bytes.NewReader(data))
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") {
			end := strings.IndexByte(line, ']')
			if end < 0 {
				errs = append(errs, fmt.Errorf("%w: line %d: section missing closing ]: %q", ErrConfigParse, lineNo, line))
				continue
			}
			section = strings.TrimSpace(line[1:end])
			continue
		}
		eq := strings.IndexByte(line, '=')
		if eq < 0 {
			errs = append(errs, fmt.Errorf("%w: line %d: missing '=': %q", ErrConfigParse, lineNo, line))
			continue
		}
		key := strings.TrimSpace(line[:eq])
		if key == "" {
			errs = append(errs, fmt.Errorf("%w: line %d: missing key: %q", ErrConfigParse, lineNo, line))
			continue
		}
		if section != "" {
			key = section + "." + key
		}
		if seen[key] {
			errs = append(errs, fmt.Errorf("%w: line %d: duplicate key %q", ErrConfigParse, lineNo, key))
		}
		seen[key] = true

		value := strings.TrimSpace(line[eq+1:])
		if def, ok := configDefaults[key]; ok && !def.modifiable {
			continue
		}
		cfg.values[key] = value
	}
	cfg.changed = false
	return cfg, errs
}

// GetString returns key's current value, falling back to its default, or
// "" if the key is unknown and unset.
func (c *Config) GetString(key string) string {
	if v, ok := c.values[key]; ok {
		return v
	}
	if def, ok := configDefaults[key]; ok {
		return def.value
	}
	return ""
}

// GetInt parses GetString(key) as an integer, returning 0 on a
// malformed/missing value.
func (c *Config) GetInt(key string) int {
	n, _ := strconv.Atoi(c.GetString(key))
	return n
}

// GetFloat parses GetString(key) as a float64, returning 0 on a
// malformed/missing value.
func (c *Config) GetFloat(key string) float64 {
	f, _ := strconv.ParseFloat(c.GetString(key), 64)
	return f
}

// GetBool treats "1"/"true" (case-insensitive) as true and everything
// else as false, matching the original's true/false -> 1/0 normalization.
func (c *Config) GetBool(key string) bool {
	v := strings.ToLower(c.GetString(key))
	return v == "1" || v == "true"
}

// Set overrides key's value. Setting a non-modifiable key (e.g.
// controls.mapping-file) is a no-op, matching the original's "locked"
// defaults.
func (c *Config) Set(key, value string) {
	if def, ok := configDefaults[key]; ok && !def.modifiable {
		return
	}
	if c.values[key] == value {
		return
	}
	c.values[key] = value
	c.changed = true
}

// Changed reports whether any value has been Set since the last Save.
func (c *Config) Changed() bool { return c.changed }

// Save re-serializes every explicitly set key, grouped by section in
// configSectionOrder followed by any unrecognized sections in
// alphabetical order, marking the config clean afterward.
func (c *Config) Save() []byte {
	bySection := make(map[string]map[string]string)
	order := append([]string{}, configSectionOrder...)
	seenSection := make(map[string]bool, len(order))
	for _, s := range order {
		seenSection[s] = true
	}

	for key, value := range c.values {
		section, name := "", key
		if dot := strings.IndexByte(key, '.'); dot >= 0 {
			section, name = key[:dot], key[dot+1:]
		}
		if bySection[section] == nil {
			bySection[section] = make(map[string]string)
		}
		bySection[section][name] = value
		if !seenSection[section] {
			seenSection[section] = true
			order = append(order, section)
		}
	}
	sort.Strings(order[len(configSectionOrder):])

	var buf bytes.Buffer
	for _, section := range order {
		keys := bySection[section]
		if len(keys) == 0 {
			continue
		}
		names := make([]string, 0, len(keys))
		for name := range keys {
			names = append(names, name)
		}
		sort.Strings(names)

		if section != "" {
			fmt.Fprintf(&buf, "[%s]\n", section)
		}
		for _, name := range names {
			fmt.Fprintf(&buf, "%s = %s\n", name, keys[name])
		}
	}
	c.changed = false
	return buf.Bytes()
}

package engine

import "strings"

// TagRun is one span of a parsed `{color=name}...{/color}` string: plain
// text, carrying the color in effect for that span (spec §4.12's prompt
// markup; emitted today only by ShowTextCommand.fullText's choice
// highlight).
type TagRun struct {
	Text     string
	Color    Color
	HasColor bool
}

// NamedColors are the color names the `{color=...}` tag accepts besides a
// literal "#RRGGBB"/"#RRGGBBAA" hex string.
var NamedColors = map[string]Color{
	"white":  {1, 1, 1, 1},
	"black":  {0, 0, 0, 1},
	"red":    {1, 0, 0, 1},
	"green":  {0, 1, 0, 1},
	"blue":   {0, 0, 1, 1},
	"yellow": {1, 1, 0, 1},
	"gray":   {0.5, 0.5, 0.5, 1},
	"grey":   {0.5, 0.5, 0.5, 1},
}

// ResolveNamedColor resolves a `{color=...}` tag argument: a name from
// NamedColors, or a "#RRGGBB"/"#RRGGBBAA" literal.
func ResolveNamedColor(name string) (Color, bool) {
	if strings.HasPrefix(name, "#") {
		c, err := ParseHexColor(name)
		return c, err == nil
	}
	c, ok := NamedColors[strings.ToLower(name)]
	return c, ok
}

// ParseTags splits s into runs of plain text separated by
// `{color=name}...{/color}` spans. Tags don't nest. A stray `{/color}` is
// kept as literal text; a span with an unknown color name keeps its text
// but is left uncolored (HasColor false); an opening tag with no closing
// `}` or `{/color}` ends parsing, dropping the tag and everything after
// it.
func ParseTags(s string) []TagRun {
	var runs []TagRun
	plain := strings.Builder{}
	flushPlain := func() {
		if plain.Len() > 0 {
			runs = append(runs, TagRun{Text: plain.String()})
			plain.Reset()
		}
	}

	for i := 0; i < len(s); {
		if strings.HasPrefix(s[i:], "{color=") {
			end := strings.IndexByte(s[i:], '}')
			if end < 0 {
				break
			}
			name := s[i+len("{color=") : i+end]
			closeIdx := strings.Index(s[i+end+1:], "{/color}")
			if closeIdx < 0 {
				break
			}
			body := s[i+end+1 : i+end+1+closeIdx]
			color, ok := ResolveNamedColor(name)
			flushPlain()
			runs = append(runs, TagRun{Text: body, Color: color, HasColor: ok})
			i = i + end + 1 + closeIdx + len("{/color}")
			continue
		}
		plain.WriteByte(s[i])
		i++
	}
	flushPlain()
	return runs
}

// PlainText concatenates the text of every run, stripping all tags.
func PlainText(runs []TagRun) string {
	var sb strings.Builder
	for _, r := range runs {
		sb.WriteString(r.Text)
	}
	return sb.String()
}

// --- Typewriter ---

// Typewriter reveals runs a fixed number of characters per second,
// matching the original's letter-by-letter dialogue reveal. Tag markup
// doesn't count against the character budget: revealing "{color=red}hi
// {/color}" one character at a time still only takes two ticks.
type Typewriter struct {
	runs           []TagRun
	charsPerSecond float64
	revealed       float64
	total          int
}

// NewTypewriter parses source and prepares to reveal it at
// charsPerSecond. A non-positive rate reveals everything immediately.
func NewTypewriter(source string, charsPerSecond float64) *Typewriter {
	runs := ParseTags(source)
	total := 0
	for _, r := range runs {
		total += len([]rune(r.Text))
	}
	tw := &Typewriter{runs: runs, charsPerSecond: charsPerSecond, total: total}
	if charsPerSecond <= 0 {
		tw.revealed = float64(total)
	}
	return tw
}

// Update advances the reveal by dt seconds.
func (tw *Typewriter) Update(dt float64) {
	if tw.Done() {
		return
	}
	tw.revealed += tw.charsPerSecond * dt
	if tw.revealed > float64(tw.total) {
		tw.revealed = float64(tw.total)
	}
}

// Done reports whether every character has been revealed.
func (tw *Typewriter) Done() bool { return int(tw.revealed) >= tw.total }

// Skip reveals every character immediately, for a player-triggered
// "skip typing" input.
func (tw *Typewriter) Skip() { tw.revealed = float64(tw.total) }

// Runs returns the runs revealed so far, truncating the run straddling
// the reveal boundary.
func (tw *Typewriter) Runs() []TagRun {
	remaining := int(tw.revealed)
	out := make([]TagRun, 0, len(tw.runs))
	for _, r := range tw.runs {
		n := len([]rune(r.Text))
		if remaining <= 0 {
			break
		}
		if n <= remaining {
			out = append(out, r)
			remaining -= n
			continue
		}
		truncated := []rune(r.Text)[:remaining]
		out = append(out, TagRun{Text: string(truncated), Color: r.Color, HasColor: r.HasColor})
		break
	}
	return out
}

// Text returns the plain-text reveal so far, for feeding a single
// uncolored TextBlock.
func (tw *Typewriter) Text() string { return PlainText(tw.Runs()) }

// --- Choice menu ---

// ChoiceMenu lays out one Canvas text node per option stacked vertically
// under parent, recoloring the highlighted option rather than relying on
// inline color tags inside a single TextBlock (TextBlock carries one
// Color for its whole Content, so per-line highlight needs per-line
// nodes; spec §4.12 choice highlight).
type ChoiceMenu struct {
	root      *Canvas
	options   []*Canvas
	selected  int
	highlight Color
	plain     Color
}

// NewChoiceMenu creates a container under parent with one text child per
// option, spaced by font's line height.
func NewChoiceMenu(parent *Canvas, font Font, options []string) *ChoiceMenu {
	m := &ChoiceMenu{
		root:      NewContainer("choice-menu"),
		highlight: NamedColors["green"],
		plain:     ColorWhite,
	}
	lh := font.LineHeight()
	for i, opt := range options {
		node := NewText("choice", "- "+opt, font)
		node.Y = float64(i) * lh
		m.root.AddChild(node)
		m.options = append(m.options, node)
	}
	if parent != nil {
		parent.AddChild(m.root)
	}
	m.Highlight(0)
	return m
}

// Canvas returns the menu's root container.
func (m *ChoiceMenu) Canvas() *Canvas { return m.root }

// Highlight recolors option index and resets every other option to
// plain. An out-of-range index wraps: below 0 selects the last option,
// past the end selects the first.
func (m *ChoiceMenu) Highlight(index int) {
	if len(m.options) == 0 {
		return
	}
	if index < 0 {
		index = len(m.options) - 1
	}
	if index >= len(m.options) {
		index = 0
	}
	m.selected = index
	for i, node := range m.options {
		if i == index {
			node.TextBlock.Color = m.highlight
		} else {
			node.TextBlock.Color = m.plain
		}
	}
}

// Selected returns the currently highlighted option index.
func (m *ChoiceMenu) Selected() int { return m.selected }

// Remove detaches the menu from its parent.
func (m *ChoiceMenu) Remove() { m.root.RemoveFromParent() }

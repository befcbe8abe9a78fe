package subtitle

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// Position is the vertical subtitle placement.
type Position int

const (
	PositionBottom Position = iota
	PositionCenter
	PositionTop
)

// ParsePosition accepts "bottom", "center" or "top".
func ParsePosition(s string) (Position, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bottom", "":
		return PositionBottom, nil
	case "center":
		return PositionCenter, nil
	case "top":
		return PositionTop, nil
	}
	return PositionBottom, fmt.Errorf("unknown subtitle position %q", s)
}

// Style configures subtitle appearance. Outline nil disables the outline.
//
// Face is used by the renderer it is handed to. Opentype faces mutate an
// internal buffer on every glyph call, so a renderer must not be shared
// across goroutines when Face is one; set NewFace so Clone can hand each
// goroutine its own face. Stateless faces like basicfont need neither.
type Style struct {
	Face      font.Face
	NewFace   func() (font.Face, error)
	Color     color.Color
	Highlight color.Color
	Outline   color.Color
	Position  Position
}

// Renderer burns subtitle states into frames.
type Renderer struct {
	style Style
}

// NewRenderer creates a renderer for the given style. Missing colors
// default to white text with a yellow highlight.
func NewRenderer(style Style) *Renderer {
	if style.Color == nil {
		style.Color = color.RGBA{255, 255, 255, 255}
	}
	if style.Highlight == nil {
		style.Highlight = color.RGBA{255, 255, 0, 255}
	}
	return &Renderer{style: style}
}

// Clone returns a renderer that can draw concurrently with the receiver.
// With a face factory the clone gets its own face; without one the
// receiver's face is assumed stateless and the receiver is returned as is.
func (r *Renderer) Clone() (*Renderer, error) {
	if r.style.NewFace == nil {
		return r, nil
	}
	face, err := r.style.NewFace()
	if err != nil {
		return nil, fmt.Errorf("failed to build font face: %w", err)
	}
	clone := *r
	clone.style.Face = face
	return &clone, nil
}

// Draw renders the active subtitle state onto dst. Block states draw the
// full narration line with the outline; karaoke states draw revealed words
// with the active word in the highlight color. An empty state draws
// nothing.
func (r *Renderer) Draw(dst *image.RGBA, st State) {
	words := st.Words
	outlined := false
	if words == nil {
		for _, w := range strings.Fields(st.Text) {
			words = append(words, WordState{Text: w, Spoken: true})
		}
		outlined = r.style.Outline != nil
	}
	if len(words) == 0 {
		return
	}

	bounds := dst.Bounds()
	maxWidth := fixed.I(bounds.Dx() * 9 / 10)
	lines := r.layout(words, maxWidth)

	metrics := r.style.Face.Metrics()
	lineHeight := metrics.Height.Ceil()
	blockHeight := lineHeight * len(lines)

	var top int
	switch r.style.Position {
	case PositionTop:
		top = bounds.Dy() / 10
	case PositionCenter:
		top = (bounds.Dy() - blockHeight) / 2
	default:
		top = bounds.Dy()*8/10 - blockHeight/2
	}

	y := bounds.Min.Y + top + metrics.Ascent.Ceil()
	space := font.MeasureString(r.style.Face, " ")

	for _, ln := range lines {
		x := fixed.I(bounds.Min.X) + (fixed.I(bounds.Dx())-ln.width)/2
		for _, w := range ln.words {
			col := r.style.Color
			if w.Highlight {
				col = r.style.Highlight
			}
			r.drawWord(dst, w.Text, x, fixed.I(y), col, outlined)
			x += font.MeasureString(r.style.Face, w.Text) + space
		}
		y += lineHeight
	}
}

type renderLine struct {
	words []WordState
	width fixed.Int26_6
}

// layout wraps words into lines no wider than maxWidth. A single word
// wider than the limit still gets its own line.
func (r *Renderer) layout(words []WordState, maxWidth fixed.Int26_6) []renderLine {
	space := font.MeasureString(r.style.Face, " ")

	var lines []renderLine
	var cur renderLine
	for _, w := range words {
		width := font.MeasureString(r.style.Face, w.Text)
		candidate := cur.width
		if len(cur.words) > 0 {
			candidate += space
		}
		candidate += width

		if len(cur.words) > 0 && candidate > maxWidth {
			lines = append(lines, cur)
			cur = renderLine{}
			candidate = width
		}
		cur.words = append(cur.words, w)
		cur.width = candidate
	}
	if len(cur.words) > 0 {
		lines = append(lines, cur)
	}
	return lines
}

// drawWord draws one word at the baseline dot, with an offset outline pass
// first when enabled.
func (r *Renderer) drawWord(dst *image.RGBA, text string, x, y fixed.Int26_6, col color.Color, outlined bool) {
	if outlined {
		outline := &font.Drawer{
			Dst:  dst,
			Src:  image.NewUniform(r.style.Outline),
			Face: r.style.Face,
		}
		offsets := [8][2]fixed.Int26_6{
			{-fixed.I(1), 0}, {fixed.I(1), 0}, {0, -fixed.I(1)}, {0, fixed.I(1)},
			{-fixed.I(1), -fixed.I(1)}, {fixed.I(1), -fixed.I(1)},
			{-fixed.I(1), fixed.I(1)}, {fixed.I(1), fixed.I(1)},
		}
		for _, off := range offsets {
			outline.Dot = fixed.Point26_6{X: x + off[0], Y: y + off[1]}
			outline.DrawString(text)
		}
	}

	d := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(col),
		Face: r.style.Face,
		Dot:  fixed.Point26_6{X: x, Y: y},
	}
	d.DrawString(text)
}

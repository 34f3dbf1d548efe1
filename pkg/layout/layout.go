// Package layout turns portable text layout requests into realized galleys
// using fonts available on the local machine.
//
// The host lays text out to size its widgets; a viewer lays the same
// LayoutJob out again when an update arrives, because a Galley references
// local glyph ids and metrics and never crosses the wire. Both sides may use
// different fonts, so galleys are not guaranteed to match pixel for pixel.
//
// Shaping is done with go-text/typesetting (HarfBuzz port). Wrapping is
// greedy at whitespace; a word wider than the wrap width gets a row of its
// own and overflows.
package layout

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"unicode"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"

	"github.com/vango-dev/remoteui/pkg/frame"
)

const (
	// DefaultFontSize applies to text not covered by any section.
	DefaultFontSize = 14

	// LineSpacing is the row height as a multiple of the largest font size on the row.
	LineSpacing = 1.25

	// baselineRatio places the baseline within a row.
	baselineRatio = 0.8
)

// Layout errors.
var (
	ErrNilJob         = errors.New("layout: nil layout job")
	ErrInvalidSection = errors.New("layout: section out of range")
	ErrInvalidFont    = errors.New("layout: invalid font data")
)

// Layouter realizes a LayoutJob into a Galley.
type Layouter interface {
	Layout(job *frame.LayoutJob) (*frame.Galley, error)
}

// Shaper lays text out with a proportional and a monospace font.
// Shaper is safe for concurrent use.
type Shaper struct {
	proportional *font.Font
	monospace    *font.Font

	// HarfbuzzShaper keeps internal buffers and is not safe for concurrent
	// use; instances are pooled.
	pool sync.Pool
}

// NewShaper parses the given TrueType/OpenType font data. mono may be nil,
// in which case monospace sections use the proportional font.
func NewShaper(proportional, mono []byte) (*Shaper, error) {
	p, err := parseFont(proportional)
	if err != nil {
		return nil, err
	}
	m := p
	if mono != nil {
		if m, err = parseFont(mono); err != nil {
			return nil, err
		}
	}
	return &Shaper{
		proportional: p,
		monospace:    m,
		pool: sync.Pool{
			New: func() any { return &shaping.HarfbuzzShaper{} },
		},
	}, nil
}

func parseFont(data []byte) (*font.Font, error) {
	if len(data) == 0 {
		return nil, ErrInvalidFont
	}
	face, err := font.ParseTTF(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFont, err)
	}
	return face.Font, nil
}

var (
	defaultShaper    *Shaper
	defaultShaperErr error
	defaultOnce      sync.Once
)

// Default returns a shared Shaper backed by the Go fonts.
func Default() (*Shaper, error) {
	defaultOnce.Do(func() {
		defaultShaper, defaultShaperErr = NewShaper(goregular.TTF, gomono.TTF)
	})
	return defaultShaper, defaultShaperErr
}

// segment is a run of runes sharing one section, shaped in one call.
type segment struct {
	start   int // rune index of the first rune
	runes   []rune
	section int
	format  frame.TextFormat
	newline bool // hard break after this segment
}

// positioned is a shaped glyph before row placement.
type positioned struct {
	glyph frame.Glyph
	size  float32
	space bool
}

// Layout implements Layouter.
func (s *Shaper) Layout(job *frame.LayoutJob) (*frame.Galley, error) {
	if job == nil {
		return nil, ErrNilJob
	}
	for _, sec := range job.Sections {
		if sec.ByteStart < 0 || sec.ByteEnd > len(job.Text) || sec.ByteStart > sec.ByteEnd {
			return nil, fmt.Errorf("%w: [%d, %d) of %d bytes", ErrInvalidSection, sec.ByteStart, sec.ByteEnd, len(job.Text))
		}
	}

	var lines [][]positioned
	var line []positioned
	for _, seg := range segments(job) {
		line = append(line, s.shape(seg)...)
		if seg.newline {
			lines = append(lines, line)
			line = nil
		}
	}
	lines = append(lines, line)

	g := &frame.Galley{Job: job}
	var y float32
	for _, l := range lines {
		for _, row := range wrap(l, job.WrapWidth) {
			r := placeRow(row, y)
			g.Rows = append(g.Rows, r)
			y = r.Rect.Max.Y
			g.Size.X = max(g.Size.X, r.Rect.Width())
		}
	}
	g.Size.Y = y

	align(g, job)
	return g, nil
}

func segments(job *frame.LayoutJob) []segment {
	def := frame.TextFormat{FontSize: DefaultFontSize, Color: frame.Black}
	var out []segment
	var cur *segment

	runeIdx := 0
	for byteIdx, r := range job.Text {
		sec, format := -1, def
		for i, s := range job.Sections {
			if byteIdx >= s.ByteStart && byteIdx < s.ByteEnd {
				sec, format = i, s.Format
				break
			}
		}
		if format.FontSize <= 0 {
			format.FontSize = DefaultFontSize
		}

		if r == '\n' {
			if cur == nil {
				out = append(out, segment{start: runeIdx, section: sec, format: format})
				cur = &out[len(out)-1]
			}
			cur.newline = true
			cur = nil
			runeIdx++
			continue
		}
		if cur == nil || cur.section != sec {
			out = append(out, segment{start: runeIdx, section: sec, format: format})
			cur = &out[len(out)-1]
		}
		cur.runes = append(cur.runes, r)
		runeIdx++
	}
	return out
}

func (s *Shaper) shape(seg segment) []positioned {
	if len(seg.runes) == 0 {
		return nil
	}
	f := s.proportional
	if seg.format.Monospace {
		f = s.monospace
	}

	input := shaping.Input{
		Text:      seg.runes,
		RunStart:  0,
		RunEnd:    len(seg.runes),
		Direction: di.DirectionLTR,
		Face:      font.NewFace(f),
		Size:      fixed.Int26_6(seg.format.FontSize * 64),
		Script:    detectScript(seg.runes),
		Language:  language.NewLanguage("en"),
	}

	hb := s.pool.Get().(*shaping.HarfbuzzShaper)
	output := hb.Shape(input)
	s.pool.Put(hb)

	out := make([]positioned, 0, len(output.Glyphs))
	for _, g := range output.Glyphs {
		idx := g.TextIndex()
		space := idx >= 0 && idx < len(seg.runes) && unicode.IsSpace(seg.runes[idx])
		out = append(out, positioned{
			glyph: frame.Glyph{
				ID:      uint32(g.GlyphID),
				X:       fixedToFloat(g.XOffset),
				Y:       -fixedToFloat(g.YOffset),
				Advance: fixedToFloat(g.Advance),
				Cluster: seg.start + idx,
				Section: seg.section,
			},
			size:  seg.format.FontSize,
			space: space,
		})
	}
	return out
}

// wrap splits one hard line into rows no wider than width, breaking after
// whitespace. width <= 0 disables wrapping.
func wrap(line []positioned, width float32) [][]positioned {
	if width <= 0 || len(line) == 0 {
		return [][]positioned{line}
	}

	var rows [][]positioned
	var row []positioned
	var rowWidth float32
	start := 0
	for start < len(line) {
		end := start
		var w float32
		for end < len(line) {
			w += line[end].glyph.Advance
			end++
			if line[end-1].space {
				break
			}
		}
		word := line[start:end]
		if len(row) > 0 && rowWidth+trimmedWidth(word) > width {
			rows = append(rows, row)
			row, rowWidth = nil, 0
		}
		row = append(row, word...)
		rowWidth += w
		start = end
	}
	return append(rows, row)
}

// trimmedWidth is the width of word without trailing whitespace, which may
// hang past the wrap width.
func trimmedWidth(word []positioned) float32 {
	var w float32
	end := len(word)
	for end > 0 && word[end-1].space {
		end--
	}
	for _, p := range word[:end] {
		w += p.glyph.Advance
	}
	return w
}

func placeRow(row []positioned, top float32) frame.Row {
	size := float32(DefaultFontSize)
	if len(row) > 0 {
		size = 0
		for _, p := range row {
			size = max(size, p.size)
		}
	}
	height := size * LineSpacing
	baseline := top + size*baselineRatio

	out := frame.Row{Glyphs: make([]frame.Glyph, len(row))}
	var x float32
	for i, p := range row {
		g := p.glyph
		g.X += x
		g.Y += baseline
		out.Glyphs[i] = g
		x += g.Advance
	}
	out.Rect = frame.Rect{
		Min: frame.Pos2{X: 0, Y: top},
		Max: frame.Pos2{X: x, Y: top + height},
	}
	return out
}

func align(g *frame.Galley, job *frame.LayoutJob) {
	if job.Halign == frame.AlignLeft {
		return
	}
	width := g.Size.X
	if job.WrapWidth > 0 {
		width = max(width, job.WrapWidth)
	}
	for i := range g.Rows {
		r := &g.Rows[i]
		shift := width - r.Rect.Width()
		if job.Halign == frame.AlignCenter {
			shift /= 2
		}
		for j := range r.Glyphs {
			r.Glyphs[j].X += shift
		}
		r.Rect.Min.X += shift
		r.Rect.Max.X += shift
	}
}

func detectScript(runes []rune) language.Script {
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		return language.LookupScript(r)
	}
	return language.Latin
}

func fixedToFloat(v fixed.Int26_6) float32 {
	return float32(v) / 64
}

// Package tui implements a retained-mode element tree for the SSH/
// Telnet text interface: word-wrapped text, horizontal/vertical
// centering, nested rectangles (used to model both layout and
// vertical scrolling via a negative Top), formatted (SGR) spans,
// internal links (driven by Tab/Shift-Tab/Enter) and external OSC-8
// hyperlinks.
package tui

import (
	"fmt"
	"unicode/utf8"
)

// Reset and link styling escape codes, ported from the renderer this
// package's layout algorithm is grounded on.
const (
	reset     = "\x1b[m"
	linkColor = "\x1b[38;2;13;199;249m"
	linkFocus = "\x1b[7m" // reverse video, used for the tab-focused link
)

// Pos is a zero-indexed screen cell coordinate.
type Pos struct {
	X, Y int
}

// Rect is a layout rectangle. Top may be negative: a Container
// scrolled upward is modeled by rendering its content into a Rect
// whose Top is negative, so rows above the screen are computed (for
// correct wrapping) but never actually written.
type Rect struct {
	Left, Top, Width, Height int
}

func moveCursor(p Pos) string {
	return fmt.Sprintf("\x1b[%d;%dH", p.Y+1, p.X+1)
}

// LinkHit records the screen cells occupied by one rendered internal
// Link, for both Tab-cycle highlighting and mouse hit-testing.
type LinkHit struct {
	Target Location
	Cells  map[Pos]bool
}

// Ctx carries render state through a single tree walk: the current
// rectangle, cursor position, output buffer, visible screen height
// (for scroll clipping) and the link list being built.
type Ctx struct {
	Rect         Rect
	ScreenHeight int
	Pos          Pos

	out          []byte
	discard      bool // measuring pass: track extents only, write nothing
	measuredMaxX int
	measuredMaxY int

	links        *[]LinkHit
	currentLink  *LinkHit
	focusedIndex int
	linkCounter  *int
}

// NewCtx returns a fresh render context for a top-level rectangle.
func NewCtx(rect Rect, screenHeight int, focusedIndex int) *Ctx {
	var links []LinkHit
	counter := 0
	return &Ctx{
		Rect:         rect,
		ScreenHeight: screenHeight,
		Pos:          Pos{X: rect.Left, Y: rect.Top},
		links:        &links,
		focusedIndex: focusedIndex,
		linkCounter:  &counter,
	}
}

// Output returns the accumulated ANSI output.
func (c *Ctx) Output() string { return string(c.out) }

// Links returns every internal link rendered, in document order.
func (c *Ctx) Links() []LinkHit { return *c.links }

func (c *Ctx) writeAt(pos Pos, s string) {
	width := utf8.RuneCountInString(s)
	if c.discard {
		if end := pos.X + width; end > c.measuredMaxX {
			c.measuredMaxX = end
		}
		if pos.Y+1 > c.measuredMaxY {
			c.measuredMaxY = pos.Y + 1
		}
		return
	}
	if pos.Y < 0 || pos.Y >= c.ScreenHeight || pos.X < 0 {
		return
	}
	c.out = append(c.out, moveCursor(pos)...)
	c.out = append(c.out, s...)
	if c.currentLink != nil {
		for i := 0; i < width; i++ {
			c.currentLink.Cells[Pos{X: pos.X + i, Y: pos.Y}] = true
		}
	}
}

func (c *Ctx) writeRaw(s string) {
	if c.discard {
		return
	}
	c.out = append(c.out, s...)
}

// sub returns a copy of ctx scoped to a new rectangle and position,
// sharing the same output/link-collection state.
func (c *Ctx) sub(rect Rect, pos Pos) *Ctx {
	cp := *c
	cp.Rect = rect
	cp.Pos = pos
	return &cp
}

// measure renders e into a fully isolated discard-mode copy of ctx
// and returns the width/height it used. It must not affect the real
// render's link list or link counter, since a measuring pass over a
// subtree containing Links would otherwise double-count them.
func (c *Ctx) measure(e Element, rect Rect) (width, height int) {
	cp := c.sub(rect, Pos{X: rect.Left, Y: rect.Top})
	cp.discard = true
	var isolatedLinks []LinkHit
	isolatedCounter := *c.linkCounter
	cp.links = &isolatedLinks
	cp.linkCounter = &isolatedCounter
	e.Render(cp)
	return cp.measuredMaxX - rect.Left, cp.measuredMaxY - rect.Top
}

// Element is one node of the retained-mode tree.
type Element interface {
	// Render draws the element starting at ctx.Pos within ctx.Rect,
	// advancing ctx.Pos to just past the content it wrote.
	Render(ctx *Ctx)
}

// Text renders word-wrapped plain text.
type Text string

func (t Text) Render(ctx *Ctx) {
	rect := ctx.Rect
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		if rect.Width > 0 && ctx.Pos.X+len(word) > rect.Left+rect.Width {
			ctx.Pos.Y++
			ctx.Pos.X = rect.Left
		}
		ctx.writeAt(ctx.Pos, string(word))
		ctx.Pos.X += len(word)
		word = word[:0]
	}
	for _, r := range string(t) {
		switch r {
		case '\n':
			flush()
			ctx.Pos.Y++
			ctx.Pos.X = rect.Left
		case ' ':
			flush()
			ctx.Pos.X++
		case '\t':
			flush()
			ctx.Pos.X += 4
		default:
			word = append(word, r)
		}
	}
	flush()
}

// Formatted wraps Inner in an SGR escape (e.g. "1" for bold).
type Formatted struct {
	Inner Element
	Code  string
}

func Bold(s string) Element   { return Formatted{Inner: Text(s), Code: "1"} }
func Italic(s string) Element { return Formatted{Inner: Text(s), Code: "3"} }
func Gray(s string) Element   { return Formatted{Inner: Text(s), Code: "90"} }

func (f Formatted) Render(ctx *Ctx) {
	ctx.writeRaw("\x1b[" + f.Code + "m")
	f.Inner.Render(ctx)
	ctx.writeRaw(reset)
}

// Container lays out children sequentially, each continuing from
// wherever the previous one left the cursor.
type Container []Element

func (c Container) Render(ctx *Ctx) {
	for _, e := range c {
		e.Render(ctx)
	}
}

// Rectangle establishes a new layout rectangle for its children,
// relative to the parent rectangle's origin, then advances the
// parent cursor past its height.
type Rectangle struct {
	Inner []Element
	Rect  Rect
}

func (r Rectangle) Render(ctx *Ctx) {
	rect := Rect{
		Left:   ctx.Rect.Left + r.Rect.Left,
		Top:    ctx.Rect.Top + r.Rect.Top,
		Width:  r.Rect.Width,
		Height: r.Rect.Height,
	}
	sub := ctx.sub(rect, Pos{X: rect.Left, Y: rect.Top})
	sub.currentLink = ctx.currentLink
	Container(r.Inner).Render(sub)
	if !ctx.discard {
		ctx.out = sub.out
	}
	ctx.Pos = Pos{X: ctx.Rect.Left, Y: rect.Top + r.Rect.Height}
}

// Centered centers Inner within the current rectangle, horizontally,
// vertically, or both.
type Centered struct {
	Inner      Element
	Horizontal bool
	Vertical   bool
}

func CenteredHorizontal(e Element) Element { return Centered{Inner: e, Horizontal: true} }
func CenteredVertical(e Element) Element   { return Centered{Inner: e, Vertical: true} }
func CenteredBoth(e Element) Element       { return Centered{Inner: e, Horizontal: true, Vertical: true} }

func (c Centered) Render(ctx *Ctx) {
	rect := ctx.Rect
	w, h := ctx.measure(c.Inner, rect)

	left := rect.Left
	if c.Horizontal && rect.Width > w {
		left = rect.Left + (rect.Width-w)/2
	}
	top := ctx.Pos.Y
	if c.Vertical && rect.Height > h {
		top = rect.Top + (rect.Height-h)/2
	}

	inner := ctx.sub(Rect{Left: left, Top: top, Width: rect.Width - (left - rect.Left), Height: rect.Height}, Pos{X: left, Y: top})
	inner.currentLink = ctx.currentLink
	c.Inner.Render(inner)
	if !ctx.discard {
		ctx.out = inner.out
	}
	ctx.Pos = inner.Pos
}

// Location identifies the page a Link navigates the session to.
type Location struct {
	Page string // "index", "blog", "projects", "blog_post"
	Slug string // set only when Page == "blog_post"
}

var (
	LocationIndex    = Location{Page: "index"}
	LocationBlog     = Location{Page: "blog"}
	LocationProjects = Location{Page: "projects"}
)

func LocationBlogPost(slug string) Location {
	return Location{Page: "blog_post", Slug: slug}
}

// Link renders Inner in the link color (or reverse video, if it's the
// currently tab-focused link) and registers it for hit-testing and
// Tab/Shift-Tab cycling.
type Link struct {
	Inner  Element
	Target Location
}

func NewLink(text string, target Location) Element {
	return Link{Inner: Text(text), Target: target}
}

func (l Link) Render(ctx *Ctx) {
	index := *ctx.linkCounter
	*ctx.linkCounter++

	color := linkColor
	if index == ctx.focusedIndex {
		color = linkFocus
	}
	ctx.writeRaw(color)

	hit := LinkHit{Target: l.Target, Cells: map[Pos]bool{}}
	prevLink := ctx.currentLink
	ctx.currentLink = &hit
	l.Inner.Render(ctx)
	ctx.currentLink = prevLink

	ctx.writeRaw(reset)
	*ctx.links = append(*ctx.links, hit)
}

// ExternalLink wraps Inner in an OSC-8 hyperlink escape to url. It is
// not part of the Tab-cycled link list — the terminal itself handles
// clicking it.
type ExternalLink struct {
	Inner Element
	URL   string
}

func NewExternalLink(text, url string) Element {
	return ExternalLink{Inner: Text(text), URL: url}
}

func (e ExternalLink) Render(ctx *Ctx) {
	ctx.writeRaw("\x1b]8;;" + e.URL + "\x1b\\")
	e.Inner.Render(ctx)
	ctx.writeRaw("\x1b]8;;\x1b\\")
}

// LinkCount returns how many internal Link elements a tree contains,
// by running a discard-mode measuring pass.
func LinkCount(root Element, rect Rect, screenHeight int) int {
	ctx := NewCtx(rect, screenHeight, -1)
	ctx.discard = true
	root.Render(ctx)
	return len(*ctx.links)
}

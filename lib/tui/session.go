package tui

import (
	"strings"

	"github.com/mat-1/protocols/lib/sitedata"
)

// maxContentWidth bounds how wide the centered content column ever
// gets, even on a very wide terminal.
const maxContentWidth = 80

// Session holds the retained state of one interactive SSH/Telnet
// session: which page is showing, the terminal size last reported by
// the client, which link (if any) has keyboard focus, and how far the
// current page has been scrolled.
type Session struct {
	Location     Location
	Width        int
	Height       int
	SiteData     *sitedata.SiteData
	FocusedLink  int // -1 means no link focused
	ScrollOffset int

	linkCount int
}

// NewSession returns a session showing the index page, sized to a
// sane default until the client's first window-size report arrives.
func NewSession(data *sitedata.SiteData) *Session {
	return &Session{
		Location:    LocationIndex,
		Width:       80,
		Height:      24,
		SiteData:    data,
		FocusedLink: -1,
	}
}

// Resize updates the terminal dimensions and re-renders, clamping
// scroll and focus state to the new page's extents.
func (s *Session) Resize(width, height int) string {
	s.Width, s.Height = width, height
	s.scrollBy(0)
	return s.render()
}

// enableSequences hide the cursor, disable line wrap, and turn on SGR
// mouse reporting; disableSequences are their exact inverse, sent on
// close so the client's terminal is left the way OnOpen found it.
const (
	enableSequences  = "\x1b[?25l\x1b[?7l\x1b[?1003h\x1b[?1006h"
	disableSequences = "\x1b[?1006l\x1b[?1003l\x1b[?7h\x1b[?25h"
	goodbyeLine      = "\r\ngoodbye\r\n"
)

// OnOpen enables cursor-hide/no-wrap/mouse-reporting and renders the
// initial screen.
func (s *Session) OnOpen() string {
	return enableSequences + s.render()
}

// OnClose reverses OnOpen's terminal mode changes and emits a goodbye
// line. Callers write this just before tearing down the connection.
func (s *Session) OnClose() string {
	return disableSequences + goodbyeLine
}

// OnKeystroke decodes and applies one input event, returning
// whatever should be written back to the client (often just the
// re-rendered screen, sometimes nothing).
func (s *Session) OnKeystroke(key Key) string {
	switch key.Kind {
	case KeyTab:
		s.FocusedLink = nextLinkIndex(s.FocusedLink, s.linkCount, 1)
	case KeyShiftTab:
		s.FocusedLink = nextLinkIndex(s.FocusedLink, s.linkCount, -1)
	case KeyEnter:
		if s.FocusedLink >= 0 {
			if target, ok := s.focusedTarget(); ok {
				s.navigate(target)
			}
		}
	case KeyArrowDown:
		s.scrollBy(1)
	case KeyArrowUp:
		s.scrollBy(-1)
	case KeyPageDown:
		s.scrollBy(s.Height - 1)
	case KeyPageUp:
		s.scrollBy(-(s.Height - 1))
	case KeyMouseClick:
		s.handleClick(key.X, key.Y)
	default:
		return ""
	}
	return s.render()
}

func nextLinkIndex(current, count, delta int) int {
	if count == 0 {
		return -1
	}
	if current < 0 {
		if delta > 0 {
			return 0
		}
		return count - 1
	}
	next := (current + delta) % count
	if next < 0 {
		next += count
	}
	return next
}

func (s *Session) navigate(target Location) {
	s.Location = target
	s.FocusedLink = -1
	s.ScrollOffset = 0
}

func (s *Session) scrollBy(delta int) {
	s.ScrollOffset += delta
	if s.ScrollOffset < 0 {
		s.ScrollOffset = 0
	}
	maxScroll := s.maxScroll()
	if s.ScrollOffset > maxScroll {
		s.ScrollOffset = maxScroll
	}
}

func (s *Session) maxScroll() int {
	_, contentHeight := s.buildPage()
	if contentHeight <= s.Height {
		return 0
	}
	return contentHeight - s.Height
}

func (s *Session) focusedTarget() (Location, bool) {
	root, _ := s.buildPage()
	rect := s.contentRect()
	ctx := NewCtx(rect, s.Height, s.FocusedLink)
	ctx.discard = true
	root.Render(ctx)
	links := ctx.Links()
	if s.FocusedLink < 0 || s.FocusedLink >= len(links) {
		return Location{}, false
	}
	return links[s.FocusedLink].Target, true
}

func (s *Session) handleClick(x, y int) {
	root, _ := s.buildPage()
	rect := s.contentRect()
	ctx := NewCtx(rect, s.Height, s.FocusedLink)
	root.Render(ctx)
	for i, link := range ctx.Links() {
		if link.Cells[Pos{X: x, Y: y}] {
			s.FocusedLink = i
			s.navigate(link.Target)
			return
		}
	}
}

func (s *Session) contentRect() Rect {
	width := s.Width
	if width > maxContentWidth {
		width = maxContentWidth
	}
	left := (s.Width - width) / 2
	return Rect{Left: left, Top: -s.ScrollOffset, Width: width, Height: s.Height}
}

func (s *Session) buildPage() (Element, int) {
	var root Element
	switch s.Location.Page {
	case "blog":
		root = s.blogPage()
	case "projects":
		root = s.projectsPage()
	case "blog_post":
		root = s.blogPostPage(s.Location.Slug)
	default:
		root = s.indexPage()
	}
	rect := s.contentRect()
	rect.Top = 0 // measure unscrolled height
	_, height := measureStandalone(root, rect)
	return root, height
}

// unboundedHeight is used when measuring a page's full content height:
// large enough that no realistic blog post or page gets clipped.
const unboundedHeight = 1 << 20

// measureStandalone measures an element tree's rendered height from
// scratch, independent of any enclosing Ctx.
func measureStandalone(e Element, rect Rect) (int, int) {
	ctx := NewCtx(rect, unboundedHeight, -1)
	ctx.discard = true
	e.Render(ctx)
	return ctx.measuredMaxX - rect.Left, ctx.measuredMaxY - rect.Top
}

func (s *Session) render() string {
	root, _ := s.buildPage()
	rect := s.contentRect()
	s.linkCount = LinkCount(root, rect, s.Height)
	if s.FocusedLink >= s.linkCount {
		s.FocusedLink = s.linkCount - 1
	}

	ctx := NewCtx(rect, s.Height, s.FocusedLink)
	root.Render(ctx)

	var out strings.Builder
	out.WriteString("\x1b[2J\x1b[H")
	out.WriteString(ctx.Output())
	out.WriteString("\x1b[H")
	return out.String()
}

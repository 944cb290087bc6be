package tui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func renderRoot(e Element, width, height int) (*Ctx, string) {
	ctx := NewCtx(Rect{Left: 0, Top: 0, Width: width, Height: height}, height, -1)
	e.Render(ctx)
	return ctx, ctx.Output()
}

func TestTextWordWrap(t *testing.T) {
	_, out := renderRoot(Text("one two three"), 7, 5)
	// "one two" fits on line 1 at x=0..6 (width 7), "three" wraps to line 2.
	require.Contains(t, out, "\x1b[1;1H")
	require.Contains(t, out, "three")
	require.Contains(t, out, "\x1b[2;1H")
}

func TestCenteredHorizontal(t *testing.T) {
	_, out := renderRoot(CenteredHorizontal(Text("hi")), 10, 1)
	// width 10, text width 2 -> left offset (10-2)/2 = 4 -> column 5 (1-indexed)
	require.Contains(t, out, "\x1b[1;5H")
}

func TestCenteredVertical(t *testing.T) {
	_, out := renderRoot(CenteredVertical(Text("hi")), 10, 5)
	// height 5, text height 1 -> top offset (5-1)/2 = 2 -> row 3 (1-indexed)
	require.Contains(t, out, "\x1b[3;1H")
}

func TestScrollClampingHidesOffscreenRows(t *testing.T) {
	ctx := NewCtx(Rect{Left: 0, Top: -3, Width: 20, Height: 5}, 5, -1)
	Text("line one\nline two\nline three").Render(ctx)
	out := ctx.Output()
	// "line one" is logically at row -3 and must never be written.
	require.NotContains(t, out, "\x1b[-2;1H")
}

func TestLinkHitTestingAndFocus(t *testing.T) {
	tree := Container{
		NewLink("first", LocationBlog),
		Text(" "),
		NewLink("second", LocationProjects),
	}
	ctx := NewCtx(Rect{Left: 0, Top: 0, Width: 40, Height: 1}, 1, 1)
	tree.Render(ctx)
	links := ctx.Links()
	require.Len(t, links, 2)
	require.Equal(t, LocationBlog, links[0].Target)
	require.Equal(t, LocationProjects, links[1].Target)

	// the focused (index 1) link should render in reverse video.
	require.Contains(t, ctx.Output(), linkFocus)
}

func TestLinkCountDoesNotDoubleCountThroughCentering(t *testing.T) {
	tree := CenteredHorizontal(Container{
		NewLink("a", LocationBlog),
		NewLink("b", LocationProjects),
	})
	n := LinkCount(tree, Rect{Left: 0, Top: 0, Width: 40, Height: 5}, 5)
	require.Equal(t, 2, n)

	ctx := NewCtx(Rect{Left: 0, Top: 0, Width: 40, Height: 5}, 5, -1)
	tree.Render(ctx)
	require.Len(t, ctx.Links(), 2)
}

func TestExternalLinkOSC8(t *testing.T) {
	_, out := renderRoot(NewExternalLink("click me", "https://example.com"), 40, 1)
	require.True(t, strings.Contains(out, "\x1b]8;;https://example.com\x1b\\"))
	require.True(t, strings.Contains(out, "click me"))
}

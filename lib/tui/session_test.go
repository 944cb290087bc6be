package tui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
)

func testSiteData() *sitedata.SiteData {
	href := "https://example.com/proj"
	source := "https://github.com/mat-1/proj"
	return &sitedata.SiteData{
		Projects: []sitedata.Project{
			{Name: "proj", Href: &href, Source: &source, Languages: []sitedata.Language{sitedata.LanguageRust}, Description: "a project"},
		},
		Blog: []sitedata.Post{
			{
				Title:     "Hello world",
				Slug:      "hello-world",
				Published: time.Date(2022, 9, 28, 2, 17, 25, 0, time.UTC),
				Content: []sitedata.PostPart{
					{Kind: sitedata.PartText, Text: "hi there"},
					{Kind: sitedata.PartLineBreak},
					{Kind: sitedata.PartHeading, Level: 2, Text: "a heading"},
				},
			},
		},
	}
}

func TestSessionNavigatesBetweenPages(t *testing.T) {
	s := NewSession(testSiteData())
	out := s.OnOpen()
	require.Contains(t, out, "matdoes.dev")

	s.Location = LocationBlog
	out = s.render()
	require.Contains(t, out, "Hello\x1b[5;7Hworld")

	s.Location = LocationBlogPost("hello-world")
	out = s.render()
	require.Contains(t, out, "a\x1b[8;3Hheading")
}

func TestSessionTabCyclesLinks(t *testing.T) {
	s := NewSession(testSiteData())
	s.OnOpen()
	require.Equal(t, -1, s.FocusedLink)

	s.OnKeystroke(Key{Kind: KeyTab})
	require.Equal(t, 0, s.FocusedLink)

	s.OnKeystroke(Key{Kind: KeyTab})
	require.Equal(t, 1, s.FocusedLink)

	s.OnKeystroke(Key{Kind: KeyShiftTab})
	require.Equal(t, 0, s.FocusedLink)
}

func TestSessionEnterFollowsFocusedLink(t *testing.T) {
	s := NewSession(testSiteData())
	s.OnOpen()
	s.OnKeystroke(Key{Kind: KeyTab}) // focuses "Blog"
	s.OnKeystroke(Key{Kind: KeyEnter})
	require.Equal(t, LocationBlog, s.Location)
	require.Equal(t, -1, s.FocusedLink)
}

func TestSessionResizeRerenders(t *testing.T) {
	s := NewSession(testSiteData())
	out := s.Resize(100, 40)
	require.Equal(t, 100, s.Width)
	require.Contains(t, out, "\x1b[2J\x1b[H")
}

func TestBlogPostNotFound(t *testing.T) {
	s := NewSession(testSiteData())
	s.Location = LocationBlogPost("nope")
	out := s.render()
	require.Contains(t, out, "Not\x1b[3;5Hfound.")
}

func TestDecodeKeysMixedSequence(t *testing.T) {
	data := append([]byte{0x09}, []byte("\x1b[Z")...)
	data = append(data, 0x0d)
	keys := DecodeKeys(data)
	require.Equal(t, []Key{{Kind: KeyTab}, {Kind: KeyShiftTab}, {Kind: KeyEnter}}, keys)
}

func TestDecodeSGRMouseClick(t *testing.T) {
	keys := DecodeKeys([]byte("\x1b[<0;5;3M"))
	require.Equal(t, []Key{{Kind: KeyMouseClick, X: 4, Y: 2}}, keys)
}

func TestDecodeSGRMouseReleaseIgnored(t *testing.T) {
	keys := DecodeKeys([]byte("\x1b[<0;5;3m"))
	require.Empty(t, keys)
}

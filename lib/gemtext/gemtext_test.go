package gemtext

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
)

func TestIndex(t *testing.T) {
	out := Index("matdoes.dev")
	require.Contains(t, out, "=> /blog Blog")
	require.Contains(t, out, "=> /projects Projects")
}

func TestBlogIndex(t *testing.T) {
	data := &sitedata.SiteData{
		Blog: []sitedata.Post{
			{Title: "Hello", Slug: "hello", Published: time.Date(2022, 9, 28, 0, 0, 0, 0, time.UTC)},
		},
	}
	out := BlogIndex(data)
	require.Contains(t, out, "=> /hello 2022-09-28 - Hello")
}

func TestProjectsDistinctHrefAndSource(t *testing.T) {
	href := "https://example.com/proj"
	source := "https://github.com/mat-1/proj"
	data := &sitedata.SiteData{
		Projects: []sitedata.Project{
			{Name: "proj", Href: &href, Source: &source, Languages: []sitedata.Language{sitedata.LanguageRust, sitedata.LanguageTypeScript}, Description: "a project"},
		},
	}
	out := Projects(data)
	require.Contains(t, out, "## proj")
	require.Contains(t, out, "=> https://example.com/proj example.com/proj")
	require.Contains(t, out, "=> https://github.com/mat-1/proj Source code (Rust, TypeScript)")
}

func TestProjectsSameHrefAndSourceOnlyListedOnce(t *testing.T) {
	source := "https://github.com/mat-1/proj"
	data := &sitedata.SiteData{
		Projects: []sitedata.Project{
			{Name: "proj", Href: &source, Source: &source, Description: "a project"},
		},
	}
	out := Projects(data)
	require.Equal(t, 1, countOccurrences(out, "github.com/mat-1/proj"))
}

func TestPostRendersHeadingsAndQuotes(t *testing.T) {
	post := sitedata.Post{
		Title:     "A post",
		Published: time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		Content: []sitedata.PostPart{
			{Kind: sitedata.PartHeading, Level: 2, Text: "Section"},
			{Kind: sitedata.PartLineBreak},
			{Kind: sitedata.PartQuote, Text: "wise words"},
		},
	}
	out := Post(post)
	require.Contains(t, out, "## Section")
	require.Contains(t, out, "> wise words")
	require.Contains(t, out, "=> /blog ⬅ Back")
}

func TestPostQueuesStandaloneLinkBetweenLineBreaks(t *testing.T) {
	post := sitedata.Post{
		Title: "A post",
		Content: []sitedata.PostPart{
			{Kind: sitedata.PartText, Text: "intro"},
			{Kind: sitedata.PartLineBreak},
			{Kind: sitedata.PartLink, Text: "a link", Href: "https://example.com"},
			{Kind: sitedata.PartLineBreak},
		},
	}
	out := Post(post)
	require.Contains(t, out, "=> https://example.com a link")
	// a link flanked by line breaks on both sides must not leave an
	// extra blank line where its text would otherwise have gone.
	require.NotContains(t, out, "\n\n\n=> https://example.com a link")
	require.Equal(t, 1, countOccurrences(out, "\n\n=> https://example.com a link"))
}

func TestPostLinkInlinedWhenNotFlankedByLineBreaks(t *testing.T) {
	post := sitedata.Post{
		Title: "A post",
		Content: []sitedata.PostPart{
			{Kind: sitedata.PartText, Text: "see "},
			{Kind: sitedata.PartLink, Text: "this", Href: "https://example.com"},
			{Kind: sitedata.PartText, Text: " for more"},
		},
	}
	out := Post(post)
	require.Contains(t, out, "see this for more")
	require.Contains(t, out, "=> https://example.com this")
}

func TestRewriteHrefGemini(t *testing.T) {
	require.Equal(t, "gemini://gemini.circumlunar.space/docs/", rewriteHref("https://gemini.circumlunar.space/docs/"))
	require.Equal(t, "gemini://skyjake.fi/x", rewriteHref("https://gmi.skyjake.fi/x"))
	require.Equal(t, "https://example.com", rewriteHref("https://example.com"))
}

func countOccurrences(haystack, needle string) int {
	count := 0
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			count++
			i += len(needle) - 1
		}
	}
	return count
}

package gophertext

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
)

func TestIndexEndsWithDotLine(t *testing.T) {
	out := Index("matdoes.dev", 70)
	require.True(t, strings.HasSuffix(out, ".\r\n"))
	require.Contains(t, out, "1Blog\t/blog\tmatdoes.dev\t70\r\n")
}

func TestBlogIndexListsPosts(t *testing.T) {
	data := &sitedata.SiteData{
		Blog: []sitedata.Post{
			{Title: "Hello", Slug: "hello", Published: time.Date(2022, 9, 28, 0, 0, 0, 0, time.UTC)},
		},
	}
	out := BlogIndex(data, "matdoes.dev", 70)
	require.Contains(t, out, "12022-09-28 - Hello\t/hello\tmatdoes.dev\t70\r\n")
}

func TestProjectsUsesHTMLItemForURLs(t *testing.T) {
	source := "https://github.com/mat-1/proj"
	data := &sitedata.SiteData{
		Projects: []sitedata.Project{
			{Name: "proj", Source: &source, Languages: []sitedata.Language{sitedata.LanguagePython}, Description: "a project"},
		},
	}
	out := Projects(data, "matdoes.dev", 70)
	require.Contains(t, out, "hSource code (Python)\tURL:https://github.com/mat-1/proj\tmatdoes.dev\t70\r\n")
}

func TestPostRendersHeadings(t *testing.T) {
	post := sitedata.Post{
		Title: "A post",
		Content: []sitedata.PostPart{
			{Kind: sitedata.PartHeading, Text: "Section"},
			{Kind: sitedata.PartLineBreak},
			{Kind: sitedata.PartText, Text: "body text"},
		},
	}
	out := Post(post)
	require.Contains(t, out, "SECTION")
	require.Contains(t, out, "body text")
}

func TestSafeSelectorPathRejectsTraversal(t *testing.T) {
	require.True(t, SafeSelectorPath("photo.png"))
	require.True(t, SafeSelectorPath("sub/photo.png"))
	require.False(t, SafeSelectorPath("../../etc/passwd"))
	require.False(t, SafeSelectorPath("..") )
	require.False(t, SafeSelectorPath("."))
	require.False(t, SafeSelectorPath(""))
}

func TestSafeSelectorPathAllComponentsMustBeNormal(t *testing.T) {
	// Regression test: a selector with one safe component and one ".."
	// component must be rejected, even though "passwd" alone is a
	// Normal component.
	require.False(t, SafeSelectorPath("foo/../../passwd"))
}

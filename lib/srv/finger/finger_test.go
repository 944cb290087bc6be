package finger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
)

func TestResponseEmptyQueryReturnsIndex(t *testing.T) {
	out := response("", &sitedata.SiteData{}, "matdoes.dev")
	require.Contains(t, out, "matdoesdev")
	require.Contains(t, out, "Blog: blog@matdoes.dev")
}

func TestResponseBlogToken(t *testing.T) {
	data := &sitedata.SiteData{Blog: []sitedata.Post{
		{Title: "T", Slug: "p", Published: time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)},
	}}
	out := response("blog", data, "matdoes.dev")
	require.Contains(t, out, "# Blog")
	require.Contains(t, out, "2024-05-06 - T\np@matdoes.dev")
}

func TestResponseProjectsToken(t *testing.T) {
	data := &sitedata.SiteData{Projects: []sitedata.Project{
		{Name: "thing", Description: "a thing"},
	}}
	out := response("projects", data, "matdoes.dev")
	require.Contains(t, out, "## thing")
	require.Contains(t, out, "a thing")
}

func TestResponsePostSlug(t *testing.T) {
	data := &sitedata.SiteData{Blog: []sitedata.Post{
		{
			Title:     "Hi",
			Slug:      "hello",
			Published: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC),
			Content: []sitedata.PostPart{
				{Kind: sitedata.PartText, Text: "Body"},
				{Kind: sitedata.PartLineBreak},
			},
		},
	}}
	out := response("hello", data, "matdoes.dev")
	require.Equal(t, "# Hi\n2023-01-02\n\nBody\n", out)
}

func TestResponseUnknownSlug(t *testing.T) {
	out := response("nobody", &sitedata.SiteData{}, "matdoes.dev")
	require.Equal(t, "Not found\n", out)
}

func TestResponseTrimsWhitespace(t *testing.T) {
	data := &sitedata.SiteData{Blog: []sitedata.Post{
		{Title: "Hi", Slug: "hello", Published: time.Date(2023, 1, 2, 0, 0, 0, 0, time.UTC)},
	}}
	out := response("  hello  ", data, "matdoes.dev")
	require.Contains(t, out, "# Hi")
}

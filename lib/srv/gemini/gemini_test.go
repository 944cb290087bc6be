package gemini

import (
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
)

func TestRouteIndex(t *testing.T) {
	status, meta, body := route("", &sitedata.SiteData{}, "matdoes.dev")
	require.Equal(t, statusSuccess, status)
	require.Equal(t, "text/gemini", meta)
	b, _ := io.ReadAll(body)
	require.Contains(t, string(b), "matdoes.dev")
}

func TestRouteBlogPostNotFound(t *testing.T) {
	status, _, _ := route("nonexistent", &sitedata.SiteData{}, "matdoes.dev")
	require.Equal(t, statusNotFound, status)
}

func TestRouteBlogPostFound(t *testing.T) {
	data := &sitedata.SiteData{Blog: []sitedata.Post{{Title: "Hi", Slug: "hi"}}}
	status, meta, body := route("hi", data, "matdoes.dev")
	require.Equal(t, statusSuccess, status)
	require.Equal(t, "text/gemini", meta)
	b, _ := io.ReadAll(body)
	require.Contains(t, string(b), "Hi")
}

func TestSafeRelativePathRejectsTraversal(t *testing.T) {
	require.True(t, safeRelativePath("photo.png"))
	require.False(t, safeRelativePath("../secret"))
	require.False(t, safeRelativePath(""))
}

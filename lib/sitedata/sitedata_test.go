package sitedata

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "cache.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"projects": [
			{"name": "foo", "description": "a thing", "languages": ["rust"]}
		],
		"blog": [
			{"title": "Hello", "slug": "hello", "published": "2022-09-28T02:17:25Z", "content": [
				{"kind": "text", "text": "hi there"},
				{"kind": "line_break"}
			]}
		]
	}`), 0o600))

	data, err := Load(path)
	require.NoError(t, err)
	require.Len(t, data.Projects, 1)
	require.Equal(t, "foo", data.Projects[0].Name)
	require.Equal(t, LanguageRust, data.Projects[0].Languages[0])
	require.Equal(t, "Rust", data.Projects[0].Languages[0].String())

	post, ok := data.FindPost("hello")
	require.True(t, ok)
	require.Equal(t, "Hello", post.Title)
	require.Equal(t, PartText, post.Content[0].Kind)

	_, ok = data.FindPost("nope")
	require.False(t, ok)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/cache.json")
	require.Error(t, err)
}

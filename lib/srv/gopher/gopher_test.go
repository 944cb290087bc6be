package gopher

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mat-1/protocols/lib/sitedata"
)

func TestRouteIndex(t *testing.T) {
	out := route("", &sitedata.SiteData{}, "matdoes.dev", 70)
	require.True(t, strings.HasSuffix(out, ".\r\n"))
}

func TestRouteBlogPostNotFound(t *testing.T) {
	out := route("nope", &sitedata.SiteData{}, "matdoes.dev", 70)
	require.Equal(t, "Not found.\r\n", out)
}

func TestRouteMediaRejectsTraversal(t *testing.T) {
	out := serveMedia("../../etc/passwd")
	require.Equal(t, "Not found.\r\n", out)
}

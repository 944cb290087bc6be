// Package fingertext renders SiteData into the plain-text bodies a
// Finger (RFC 1288) query gets back: an index, a blog listing, a
// projects listing, or a single post.
package fingertext

import (
	"fmt"
	"strings"

	"github.com/mat-1/protocols/lib/sitedata"
)

// Index renders the response to an empty finger request.
func Index(hostname string) string {
	return fmt.Sprintf(`                                   matdoesdev

I'm mat, I do full-stack software development.
This portfolio contains my blog posts and links to some of the projects I've made.

Blog: blog@%s
Projects: projects@%s

GitHub: https://github.com/mat-1
Matrix: https://matrix.to/#/@mat:matdoes.dev
Ko-fi (donate): https://ko-fi.com/matdoesdev
`, hostname, hostname)
}

// BlogIndex renders the response to a "blog" finger request.
func BlogIndex(data *sitedata.SiteData, hostname string) string {
	var b strings.Builder
	b.WriteString("# Blog\n\n")
	for _, post := range data.Blog {
		fmt.Fprintf(&b, "%s - %s\n%s@%s\n\n", post.Published.Format("2006-01-02"), post.Title, post.Slug, hostname)
	}
	return b.String()
}

// Projects renders the response to a "projects" finger request.
func Projects(data *sitedata.SiteData, hostname string) string {
	var b strings.Builder
	b.WriteString("# Projects\n\n")
	for _, p := range data.Projects {
		fmt.Fprintf(&b, "## %s\n%s\n", p.Name, p.Description)

		if p.Href != nil && (p.Source == nil || *p.Href != *p.Source) {
			fmt.Fprintf(&b, "%s\n", fingerLink(*p.Href, hostname))
		}

		switch {
		case p.Source != nil && len(p.Languages) > 0:
			fmt.Fprintf(&b, "Source code (%s): %s\n", joinLanguages(p.Languages), *p.Source)
		case p.Source != nil:
			fmt.Fprintf(&b, "Source code: %s\n", *p.Source)
		case len(p.Languages) > 0:
			fmt.Fprintf(&b, "Languages: %s\n", joinLanguages(p.Languages))
		}

		b.WriteString("\n")
	}
	return b.String()
}

// Post renders a single blog post's body: a "# Title\ndate\n\n" header
// followed by its content translated to plain text.
func Post(post sitedata.Post, hostname string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n%s\n\n", post.Title, post.Published.Format("2006-01-02"))

	for _, part := range post.Content {
		switch part.Kind {
		case sitedata.PartText:
			b.WriteString(part.Text)
		case sitedata.PartCodeBlock:
			fmt.Fprintf(&b, "\n```\n%s\n```\n", part.Text)
		case sitedata.PartInlineCode:
			fmt.Fprintf(&b, "`%s`", part.Text)
		case sitedata.PartImage:
			alt := ""
			if part.Alt != nil {
				alt = *part.Alt
			}
			if part.Src.IsRemote() {
				fmt.Fprintf(&b, "![%s](%s)", alt, part.Src.Remote)
			} else {
				fmt.Fprintf(&b, "![%s](%s)", alt, part.Src.Local)
			}
		case sitedata.PartLink:
			fmt.Fprintf(&b, "[%s](%s)", part.Text, fingerLink(part.Href, hostname))
		case sitedata.PartLineBreak:
			b.WriteString("\n")
		case sitedata.PartHeading:
			switch part.Level {
			case 1:
				fmt.Fprintf(&b, "\n# %s\n", part.Text)
			case 2:
				fmt.Fprintf(&b, "\n## %s\n", part.Text)
			case 3:
				fmt.Fprintf(&b, "\n### %s\n", part.Text)
			default:
				fmt.Fprintf(&b, "\n%s\n", part.Text)
			}
		case sitedata.PartItalic:
			fmt.Fprintf(&b, "*%s*", part.Text)
		case sitedata.PartBold:
			fmt.Fprintf(&b, "**%s**", part.Text)
		case sitedata.PartQuote:
			for _, line := range strings.Split(part.Text, "\n") {
				fmt.Fprintf(&b, "\n> %s\n", line)
			}
		}
	}
	return b.String()
}

// NotFound is the body a finger request for an unknown slug gets back.
const NotFound = "Not found\n"

// fingerLink qualifies a site-relative href with "@hostname" the way
// an internal blog/project link is addressed over finger; an already
// absolute href is left untouched.
func fingerLink(href, hostname string) string {
	if rest, ok := strings.CutPrefix(href, "/"); ok {
		return fmt.Sprintf("%s@%s", rest, hostname)
	}
	return href
}

func joinLanguages(langs []sitedata.Language) string {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

// Package gemtext renders SiteData into gemtext, the markup Gemini
// responses are served as. See gemini://gemini.circumlunar.space/docs/.
package gemtext

import (
	"fmt"
	"strings"

	"github.com/mat-1/protocols/lib/sitedata"
)

// Index renders the top-level gemtext index page.
func Index(hostname string) string {
	var b strings.Builder
	b.WriteString("# matdoes.dev\n\n")
	b.WriteString("Hi, I'm mat. I write Rust, Go, TypeScript and whatever else gets the job done.\n\n")
	b.WriteString("=> /blog Blog\n")
	b.WriteString("=> /projects Projects\n\n")
	b.WriteString("=> https://github.com/mat-1 GitHub\n")
	b.WriteString("Matrix: @mat:matdoes.dev\n")
	b.WriteString("=> https://ko-fi.com/matdoesdev Ko-fi (donate)\n")
	return b.String()
}

// BlogIndex renders the gemtext "=> /slug date - title" blog listing.
func BlogIndex(data *sitedata.SiteData) string {
	var b strings.Builder
	b.WriteString("# Blog\n\n")
	for _, post := range data.Blog {
		fmt.Fprintf(&b, "=> /%s %s - %s\n", post.Slug, post.Published.Format("2006-01-02"), post.Title)
	}
	return b.String()
}

// Projects renders the gemtext projects page.
func Projects(data *sitedata.SiteData) string {
	var b strings.Builder
	b.WriteString("# Projects\n\n")
	for _, p := range data.Projects {
		fmt.Fprintf(&b, "## %s\n%s\n", p.Name, p.Description)
		if p.Href != nil && (p.Source == nil || *p.Href != *p.Source) {
			fmt.Fprintf(&b, "=> %s %s\n", rewriteHref(*p.Href), prettyHref(*p.Href))
		}
		if p.Source != nil {
			if len(p.Languages) > 0 {
				fmt.Fprintf(&b, "=> %s Source code (%s)\n", rewriteHref(*p.Source), joinLanguages(p.Languages))
			} else {
				fmt.Fprintf(&b, "=> %s Source code\n", rewriteHref(*p.Source))
			}
		} else if len(p.Languages) > 0 {
			fmt.Fprintf(&b, "Languages: %s\n", joinLanguages(p.Languages))
		}
		b.WriteString("\n")
	}
	return b.String()
}

// link is a queued "=> href text" line awaiting a LineBreak to flush
// it, the way paragraph-level links are collected before being
// rendered as their own block below the prose that mentioned them.
type link struct {
	href, text string
}

// Post renders a single blog post as gemtext.
//
// content is built as a plain byte slice rather than a
// strings.Builder because PartLink, when flanked by PartLineBreak on
// both sides, needs to pop the single trailing newline the preceding
// LineBreak just wrote instead of writing its own text inline -
// strings.Builder has no way to undo a write.
func Post(post sitedata.Post) string {
	var content []byte
	content = append(content, fmt.Sprintf("# %s\n%s\n\n", post.Title, post.Published.Format("2006-01-02"))...)

	var queuedLinks []link
	lastWasLineBreak := false

	n := len(post.Content)
	for i, part := range post.Content {
		switch part.Kind {
		case sitedata.PartText:
			content = append(content, part.Text...)
		case sitedata.PartInlineCode:
			content = append(content, fmt.Sprintf("`%s`", part.Text)...)
		case sitedata.PartCodeBlock:
			content = append(content, fmt.Sprintf("```\n%s\n```\n", part.Text)...)
		case sitedata.PartItalic:
			content = append(content, fmt.Sprintf("*%s*", part.Text)...)
		case sitedata.PartBold:
			content = append(content, fmt.Sprintf("**%s**", part.Text)...)
		case sitedata.PartHeading:
			if part.Level >= 1 && part.Level <= 3 {
				content = append(content, strings.Repeat("#", part.Level)+" "+part.Text+"\n"...)
			}
		case sitedata.PartQuote:
			for _, line := range strings.Split(part.Text, "\n") {
				content = append(content, fmt.Sprintf("> %s\n", line)...)
			}
		case sitedata.PartImage:
			href, alt := imageHrefAlt(part)
			if alt != "" {
				content = append(content, fmt.Sprintf("=> %s %s\n", href, alt)...)
			} else {
				content = append(content, fmt.Sprintf("=> %s\n", href)...)
			}
		case sitedata.PartLink:
			href := rewriteHref(part.Href)
			queuedLinks = append(queuedLinks, link{href: href, text: part.Text})

			beforeIsLineBreak := i == 0 || post.Content[i-1].Kind == sitedata.PartLineBreak
			afterIsLineBreak := i == n-1 || post.Content[i+1].Kind == sitedata.PartLineBreak
			if beforeIsLineBreak && afterIsLineBreak {
				// standalone link between two line breaks: drop the
				// blank line the preceding LineBreak just wrote rather
				// than inlining the link text a second time.
				content = content[:len(content)-1]
			} else {
				content = append(content, part.Text...)
			}
		case sitedata.PartLineBreak:
			if !lastWasLineBreak {
				content = append(content, '\n')
			}
			for _, l := range queuedLinks {
				content = append(content, fmt.Sprintf("=> %s %s\n", l.href, l.text)...)
			}
			queuedLinks = nil
			content = append(content, '\n')
			lastWasLineBreak = true
			continue
		}
		lastWasLineBreak = false
	}
	for _, l := range queuedLinks {
		content = append(content, fmt.Sprintf("=> %s %s\n", l.href, l.text)...)
	}
	content = append(content, "=> /blog ⬅ Back\n"...)
	return string(content)
}

func imageHrefAlt(part sitedata.PostPart) (href, alt string) {
	if part.Src.IsRemote() {
		href = part.Src.Remote
	} else {
		href = "/" + strings.TrimPrefix(part.Src.Local, "media/")
	}
	if part.Alt != nil {
		alt = *part.Alt
	}
	return href, alt
}

// rewriteHref rewrites a couple of well-known https mirrors to their
// native gemini:// counterparts, matching the original site's link
// rewriting so readers land on a gemini capsule instead of bouncing
// back out to the web.
func rewriteHref(href string) string {
	switch {
	case strings.HasPrefix(href, "https://gemini.circumlunar.space/"):
		return "gemini://" + strings.TrimPrefix(href, "https://")
	case strings.HasPrefix(href, "https://gmi.skyjake.fi/"):
		return "gemini://" + strings.TrimPrefix(href, "https://gmi.")
	default:
		return href
	}
}

func prettyHref(href string) string {
	s := href
	for _, prefix := range []string{"https://", "http://"} {
		if strings.HasPrefix(s, prefix) {
			s = strings.TrimPrefix(s, prefix)
			break
		}
	}
	return strings.TrimSuffix(s, "/")
}

func joinLanguages(langs []sitedata.Language) string {
	names := make([]string, len(langs))
	for i, l := range langs {
		names[i] = l.String()
	}
	return strings.Join(names, ", ")
}

// Package gophertext renders SiteData into Gopher menus (RFC 1436).
package gophertext

import (
	"fmt"
	"strings"

	"github.com/mat-1/protocols/lib/sitedata"
)

// itemType is a Gopher menu item type character.
type itemType byte

const (
	itemFile      itemType = '0'
	itemDirectory itemType = '1'
	itemError     itemType = '3'
	itemHTML      itemType = 'h'
	itemImage     itemType = 'I'
	itemInfo      itemType = 'i'
)

// menu accumulates gopher menu lines and renders the trailing ".\r\n"
// terminator required by the protocol.
type menu struct {
	b strings.Builder
}

func (m *menu) line(t itemType, text, selector, host string, port int) {
	fmt.Fprintf(&m.b, "%c%s\t%s\t%s\t%d\r\n", t, text, selector, host, port)
}

func (m *menu) info(text string) {
	m.line(itemInfo, text, "", "", 0)
}

func (m *menu) String() string {
	return m.b.String() + ".\r\n"
}

// Index renders the top-level gopher menu.
func Index(hostname string, port int) string {
	var m menu
	m.info("matdoes.dev")
	m.info("")
	m.info("Hi, I'm mat. I write Rust, Go, TypeScript and whatever else")
	m.info("gets the job done.")
	m.info("")
	m.line(itemDirectory, "Blog", "/blog", hostname, port)
	m.line(itemDirectory, "Projects", "/projects", hostname, port)
	return m.String()
}

// BlogIndex renders the gopher blog listing menu.
func BlogIndex(data *sitedata.SiteData, hostname string, port int) string {
	var m menu
	m.info("Blog")
	m.info("")
	for _, post := range data.Blog {
		text := fmt.Sprintf("%s - %s", post.Published.Format("2006-01-02"), post.Title)
		m.line(itemDirectory, text, "/"+post.Slug, hostname, port)
	}
	return m.String()
}

// Projects renders the gopher projects menu.
func Projects(data *sitedata.SiteData, hostname string, port int) string {
	var m menu
	m.info("Projects")
	m.info("")
	for _, p := range data.Projects {
		m.info(p.Name)
		for _, line := range wrapInfo(p.Description, 70) {
			m.info(line)
		}
		if p.Href != nil && (p.Source == nil || *p.Href != *p.Source) {
			m.line(itemHTML, "Website: "+prettyHref(*p.Href), "URL:"+*p.Href, hostname, port)
		}
		if p.Source != nil {
			label := "Source code"
			if len(p.Languages) > 0 {
				label += " (" + joinLanguages(p.Languages) + ")"
			}
			m.line(itemHTML, label, "URL:"+*p.Source, hostname, port)
		} else if len(p.Languages) > 0 {
			m.info("Languages: " + joinLanguages(p.Languages))
		}
		m.info("")
	}
	return m.String()
}

// Post renders a single blog post as a plain text body rather than
// menu lines. It carries no trailing "." end marker, and the gopher
// server sends it as-is.
func Post(post sitedata.Post) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n%s\n\n", post.Title, post.Published.Format("2006-01-02"))
	for _, part := range post.Content {
		switch part.Kind {
		case sitedata.PartText, sitedata.PartInlineCode, sitedata.PartBold, sitedata.PartItalic:
			b.WriteString(part.Text)
		case sitedata.PartCodeBlock:
			fmt.Fprintf(&b, "\n    %s\n", strings.ReplaceAll(part.Text, "\n", "\n    "))
		case sitedata.PartHeading:
			b.WriteString("\n" + strings.ToUpper(part.Text) + "\n")
		case sitedata.PartQuote:
			for _, line := range strings.Split(part.Text, "\n") {
				fmt.Fprintf(&b, "> %s\n", line)
			}
		case sitedata.PartLink:
			fmt.Fprintf(&b, "%s [%s]", part.Text, part.Href)
		case sitedata.PartImage:
			alt := ""
			if part.Alt != nil {
				alt = *part.Alt
			}
			fmt.Fprintf(&b, "\n[image: %s]\n", alt)
		case sitedata.PartLineBreak:
			b.WriteString("\n\n")
		}
	}
	return b.String()
}

func wrapInfo(text string, width int) []string {
	words := strings.Fields(text)
	var lines []string
	var cur strings.Builder
	for _, w := range words {
		if cur.Len() > 0 && cur.Len()+1+len(w) > width {
			lines = append(lines, cur.String())
			cur.Reset()
		}
		if cur.Len() > 0 {
			cur.WriteByte(' ')
		}
		cur.WriteString(w)
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
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

// SafeSelectorPath reports whether a gopher selector path (after the
// leading "/" is stripped) resolves to somewhere inside the media
// directory without escaping it via ".." components.
//
// The original implementation this was ported from used path.any(..)
// to check this, which is true as soon as a single path component is
// "normal" - so a selector like "../../etc/passwd" passed the check
// because it also contains the final "passwd" component, which is
// Normal. The correct predicate requires every component to be
// Normal.
func SafeSelectorPath(selector string) bool {
	selector = strings.TrimPrefix(selector, "/")
	if selector == "" {
		return false
	}
	for _, part := range strings.Split(selector, "/") {
		switch part {
		case "", ".", "..":
			return false
		}
	}
	return true
}

package tui

import (
	"github.com/mat-1/protocols/lib/sitedata"
)

func (s *Session) indexPage() Element {
	return Container{
		CenteredHorizontal(Bold("matdoes.dev")),
		Text("\n\n"),
		Text("Hi, I'm mat. I write Rust, Go, TypeScript and whatever else\n"),
		Text("gets the job done.\n\n"),
		NewLink("Blog", LocationBlog),
		Text("\n"),
		NewLink("Projects", LocationProjects),
		Text("\n\n"),
		NewExternalLink("GitHub", "https://github.com/mat-1"),
		Text("\n"),
		Gray("Matrix: @mat:matdoes.dev"),
		Text("\n"),
		NewExternalLink("Ko-fi (donate)", "https://ko-fi.com/matdoesdev"),
		Text("\n\n"),
		Gray("Tab/Shift-Tab to move between links, Enter to follow, Ctrl-C to quit."),
	}
}

func (s *Session) blogPage() Element {
	elements := Container{
		NewLink("<- Home", LocationIndex),
		Text("\n\n"),
		Bold("Blog"),
		Text("\n\n"),
	}
	for _, post := range s.SiteData.Blog {
		elements = append(elements,
			NewLink(post.Title, LocationBlogPost(post.Slug)),
			Text("  "),
			Gray(post.Published.Format("01/02/2006")),
			Text("\n"),
		)
	}
	return elements
}

func (s *Session) projectsPage() Element {
	elements := Container{
		NewLink("<- Home", LocationIndex),
		Text("\n\n"),
		Bold("Projects"),
		Text("\n\n"),
	}
	for _, p := range s.SiteData.Projects {
		elements = append(elements, Bold(p.Name), Text("\n"), Text(p.Description), Text("\n"))
		if p.Href != nil && (p.Source == nil || *p.Href != *p.Source) {
			elements = append(elements, NewExternalLink(prettyHref(*p.Href), *p.Href), Text("\n"))
		}
		if p.Source != nil {
			label := "Source code"
			if len(p.Languages) > 0 {
				label += " (" + joinLanguages(p.Languages) + ")"
			}
			elements = append(elements, NewExternalLink(label, *p.Source), Text("\n"))
		} else if len(p.Languages) > 0 {
			elements = append(elements, Gray("Languages: "+joinLanguages(p.Languages)), Text("\n"))
		}
		elements = append(elements, Text("\n"))
	}
	return elements
}

func (s *Session) blogPostPage(slug string) Element {
	post, ok := s.SiteData.FindPost(slug)
	if !ok {
		return Container{
			NewLink("<- Back", LocationBlog),
			Text("\n\n"),
			Text("Not found.\n"),
		}
	}

	elements := Container{
		NewLink("<- Back", LocationBlog),
		Text("\n\n"),
		Bold(post.Title),
		Text("\n"),
		Gray(post.Published.Format("01/02/2006")),
		Text("\n\n"),
	}
	lastWasLineBreak := true
	for _, part := range post.Content {
		switch part.Kind {
		case sitedata.PartText:
			elements = append(elements, Text(part.Text))
			lastWasLineBreak = false
		case sitedata.PartInlineCode:
			elements = append(elements, Italic("`"+part.Text+"`"))
			lastWasLineBreak = false
		case sitedata.PartCodeBlock:
			elements = append(elements, Italic("```\n"+part.Text+"\n```\n"))
			lastWasLineBreak = false
		case sitedata.PartItalic:
			elements = append(elements, Italic(part.Text))
			lastWasLineBreak = false
		case sitedata.PartBold:
			elements = append(elements, Bold(part.Text))
			lastWasLineBreak = false
		case sitedata.PartImage:
			alt := ""
			if part.Alt != nil {
				alt = *part.Alt
			}
			path := part.Src.Remote
			if !part.Src.IsRemote() {
				path = part.Src.Local
			}
			elements = append(elements, Formatted{Code: "3", Inner: Formatted{
				Code: "90", Inner: Text("\nImage: " + alt + " (" + path + ")\n"),
			}})
			lastWasLineBreak = false
		case sitedata.PartLink:
			elements = append(elements, NewExternalLink(part.Text, part.Href))
			lastWasLineBreak = false
		case sitedata.PartLineBreak:
			elements = append(elements, Text("\n\n"))
			lastWasLineBreak = true
			continue
		case sitedata.PartHeading:
			if !lastWasLineBreak {
				elements = append(elements, Text("\n"))
			}
			elements = append(elements, Bold(part.Text), Text("\n"))
			lastWasLineBreak = false
		case sitedata.PartQuote:
			elements = append(elements, Italic("> "+part.Text+"\n"))
			lastWasLineBreak = false
		}
	}
	return elements
}

func prettyHref(href string) string {
	s := href
	for _, prefix := range []string{"https://", "http://"} {
		if len(s) >= len(prefix) && s[:len(prefix)] == prefix {
			s = s[len(prefix):]
			break
		}
	}
	for len(s) > 0 && s[len(s)-1] == '/' {
		s = s[:len(s)-1]
	}
	return s
}

func joinLanguages(langs []sitedata.Language) string {
	out := ""
	for i, l := range langs {
		if i > 0 {
			out += ", "
		}
		out += l.String()
	}
	return out
}

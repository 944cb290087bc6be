// Package sitedata holds the blog/project data model republished over
// every protocol, and the loader that reads it from a pre-built
// cache.json. Producing cache.json (crawling the live site) is out of
// scope for this repository.
package sitedata

import (
	"encoding/json"
	"os"
	"time"

	"github.com/gravitational/trace"
)

// SiteData is the full, read-only snapshot shared by every protocol
// handler. Nothing after Load mutates it.
type SiteData struct {
	Projects []Project `json:"projects"`
	Blog     []Post    `json:"blog"`
}

// Project is a single portfolio entry.
type Project struct {
	Name        string     `json:"name"`
	Href        *string    `json:"href"`
	Source      *string    `json:"source"`
	Languages   []Language `json:"languages"`
	Description string     `json:"description"`
}

// Language is one of the closed set of languages a Project can be
// tagged with.
type Language string

const (
	LanguagePython     Language = "python"
	LanguageSvelte     Language = "svelte"
	LanguageRust       Language = "rust"
	LanguageTypeScript Language = "typescript"
	LanguageJavaScript Language = "javascript"
)

// String returns the display name used in every formatter's
// "Source code (...)" line.
func (l Language) String() string {
	switch l {
	case LanguagePython:
		return "Python"
	case LanguageSvelte:
		return "Svelte"
	case LanguageRust:
		return "Rust"
	case LanguageTypeScript:
		return "TypeScript"
	case LanguageJavaScript:
		return "JavaScript"
	default:
		return string(l)
	}
}

// Post is a single blog entry.
type Post struct {
	Title     string     `json:"title"`
	Slug      string     `json:"slug"`
	Published time.Time  `json:"published"`
	Content   []PostPart `json:"content"`
}

// PartKind discriminates the PostPart tagged union.
type PartKind string

const (
	PartText       PartKind = "text"
	PartInlineCode PartKind = "inline_code"
	PartCodeBlock  PartKind = "code_block"
	PartItalic     PartKind = "italic"
	PartBold       PartKind = "bold"
	PartImage      PartKind = "image"
	PartLink       PartKind = "link"
	PartLineBreak  PartKind = "line_break"
	PartHeading    PartKind = "heading"
	PartQuote      PartKind = "quote"
)

// PostPart is one element of a post's body: a closed tagged union
// flattened into a single struct for straightforward JSON decoding.
// Which fields are meaningful depends on Kind; see the Part*
// constants.
type PostPart struct {
	Kind  PartKind    `json:"kind"`
	Text  string      `json:"text,omitempty"`
	Src   ImageSource `json:"src,omitempty"`
	Alt   *string     `json:"alt,omitempty"`
	Href  string      `json:"href,omitempty"`
	Level int         `json:"level,omitempty"`
}

// ImageSource is a closed union: either a path under the media
// directory, or a remote absolute URL.
type ImageSource struct {
	Local  string `json:"local,omitempty"`
	Remote string `json:"remote,omitempty"`
}

// IsRemote reports whether this source is an external URL rather than
// a path under the media directory.
func (s ImageSource) IsRemote() bool {
	return s.Remote != ""
}

// Load reads and decodes a SiteData snapshot from the cache file at
// path. Unknown JSON fields are ignored, matching the crawler's
// forward-compatible cache format.
func Load(path string) (*SiteData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, trace.Wrap(err, "opening site data cache")
	}
	defer f.Close()

	var data SiteData
	if err := json.NewDecoder(f).Decode(&data); err != nil {
		return nil, trace.Wrap(err, "decoding site data cache")
	}
	return &data, nil
}

// FindPost returns the post with the given slug, or false if none
// exists.
func (d *SiteData) FindPost(slug string) (Post, bool) {
	for _, p := range d.Blog {
		if p.Slug == slug {
			return p, true
		}
	}
	return Post{}, false
}

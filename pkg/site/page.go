package site

import (
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const frontMatterFence = "---"

// FrontMatter is the optional YAML header of a page source, delimited
// by "---" lines.
type FrontMatter struct {
	Title       string    `yaml:"title"`
	Description string    `yaml:"description,omitempty"`
	Date        time.Time `yaml:"date,omitempty"`
	Template    string    `yaml:"template,omitempty"`
	Draft       bool      `yaml:"draft,omitempty"`
}

// Page is one content page: parsed front matter, the HTML body below
// it, and adjacency links filled in once the whole set is loaded.
type Page struct {
	// Source is the path of the page file relative to the pages root.
	Source string
	// Slug is the output directory name, derived from Source.
	Slug string
	Meta FrontMatter
	// Content is the raw body below the front matter. It reaches
	// templates pre-rendered and trusted.
	Content string

	// Earlier and Later point at the chronologically adjacent dated
	// pages, oldest to newest. Nil at either end, and for undated pages.
	Earlier *Page
	Later   *Page
}

// Permalink returns the page's canonical URL under base.
func (p *Page) Permalink(base string) string {
	return base + "/" + p.Slug + "/"
}

// Template returns the leaf template rendering this page.
func (p *Page) Template() string {
	if p.Meta.Template != "" {
		return p.Meta.Template
	}
	return "page.html"
}

// ParsePage splits a page source into front matter and body. A file
// without a leading fence is all body.
func ParsePage(source string, data []byte) (*Page, error) {
	page := &Page{
		Source: source,
		Slug:   slugFromSource(source),
	}

	text := string(data)
	if !strings.HasPrefix(text, frontMatterFence+"\n") && text != frontMatterFence {
		page.Content = text
		return page, nil
	}

	rest := text[len(frontMatterFence)+1:]
	end := strings.Index(rest, "\n"+frontMatterFence)
	if end == -1 {
		return nil, fmt.Errorf("page %s: unterminated front matter", source)
	}
	header := rest[:end]
	body := rest[end+1+len(frontMatterFence):]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &page.Meta); err != nil {
		return nil, fmt.Errorf("page %s: front matter: %w", source, err)
	}
	page.Content = body
	return page, nil
}

func slugFromSource(source string) string {
	slug := strings.TrimSuffix(source, path.Ext(source))
	return strings.Trim(slug, "/")
}

// LoadPages reads every .html and .md page under fsys, in name order.
func LoadPages(fsys fs.FS) ([]*Page, error) {
	var pages []*Page
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		ext := path.Ext(p)
		if ext != ".html" && ext != ".md" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		page, err := ParsePage(p, data)
		if err != nil {
			return err
		}
		pages = append(pages, page)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].Source < pages[j].Source })
	return pages, nil
}

// LinkAdjacent wires Earlier/Later between dated pages, ordered by
// publication date. Undated pages take no part in the sequence.
func LinkAdjacent(pages []*Page) {
	dated := make([]*Page, 0, len(pages))
	for _, p := range pages {
		p.Earlier, p.Later = nil, nil
		if !p.Meta.Date.IsZero() {
			dated = append(dated, p)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Meta.Date.Before(dated[j].Meta.Date)
	})
	for i, p := range dated {
		if i > 0 {
			p.Earlier = dated[i-1]
		}
		if i < len(dated)-1 {
			p.Later = dated[i+1]
		}
	}
}

// ByDateDesc returns the dated pages newest first, for listing views.
func ByDateDesc(pages []*Page) []*Page {
	dated := make([]*Page, 0, len(pages))
	for _, p := range pages {
		if !p.Meta.Date.IsZero() {
			dated = append(dated, p)
		}
	}
	sort.SliceStable(dated, func(i, j int) bool {
		return dated[i].Meta.Date.After(dated[j].Meta.Date)
	})
	return dated
}

package site

import (
	"github.com/akarlsen/tessera/pkg/tessera"
)

// configContext exposes the site configuration to templates as plain
// maps. Optional fields are omitted entirely rather than set empty, so
// templates can guard on existence.
func configContext(c *Config) map[string]interface{} {
	config := map[string]interface{}{
		"title":       c.Title,
		"description": c.Description,
		"base_url":    c.BaseURL,
	}
	if c.Author != "" {
		config["author"] = c.Author
	}
	if c.Image != "" {
		config["image"] = c.Image
	}
	if c.GeneratorNotice != "" {
		config["generator_notice"] = c.GeneratorNotice
	}
	if len(c.FooterLinks) > 0 {
		links := make([]map[string]interface{}, len(c.FooterLinks))
		for i, link := range c.FooterLinks {
			links[i] = map[string]interface{}{
				"name": link.Name,
				"url":  link.URL,
			}
		}
		config["footer_links"] = links
	}
	for k, v := range c.Extra {
		config[k] = v
	}
	return config
}

// pageSummary is the reduced shape adjacency links and listing views
// see: enough to build a link, nothing that could recurse.
func pageSummary(c *Config, p *Page) map[string]interface{} {
	summary := map[string]interface{}{
		"title":     p.Meta.Title,
		"permalink": p.Permalink(c.BaseURL),
	}
	if p.Meta.Description != "" {
		summary["description"] = p.Meta.Description
	}
	if !p.Meta.Date.IsZero() {
		summary["date"] = p.Meta.Date
	}
	return summary
}

// PageContext assembles the render context for a single content page.
func PageContext(c *Config, p *Page) tessera.Context {
	page := map[string]interface{}{
		"title":     p.Meta.Title,
		"permalink": p.Permalink(c.BaseURL),
		"content":   tessera.Safe(p.Content),
	}
	if p.Meta.Description != "" {
		page["description"] = p.Meta.Description
	}
	if !p.Meta.Date.IsZero() {
		page["date"] = p.Meta.Date
	}
	if p.Meta.Draft {
		page["draft"] = true
	}
	if p.Earlier != nil {
		page["earlier"] = pageSummary(c, p.Earlier)
	}
	if p.Later != nil {
		page["later"] = pageSummary(c, p.Later)
	}
	return tessera.Context{
		"config": configContext(c),
		"page":   page,
	}
}

// IndexContext assembles the render context for the listing page:
// dated pages, newest first, under page.pages.
func IndexContext(c *Config, pages []*Page) tessera.Context {
	listed := ByDateDesc(pages)
	children := make([]map[string]interface{}, len(listed))
	for i, p := range listed {
		children[i] = pageSummary(c, p)
	}
	page := map[string]interface{}{
		"permalink": c.BaseURL + "/",
		"pages":     children,
	}
	return tessera.Context{
		"config": configContext(c),
		"page":   page,
	}
}

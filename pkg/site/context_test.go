package site

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akarlsen/tessera/pkg/tessera"
)

func testConfig() *Config {
	return &Config{
		Title:       "A quiet corner",
		Description: "notes",
		BaseURL:     "https://example.org",
		FooterLinks: []Link{{Name: "RSS", URL: "$BASE_URL/atom.xml"}},
	}
}

func TestPageContext(t *testing.T) {
	date := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	page := &Page{
		Source:  "posts/first.html",
		Slug:    "posts/first",
		Meta:    FrontMatter{Title: "First", Description: "intro", Date: date},
		Content: "<p>hi</p>",
	}
	earlier := &Page{
		Slug: "posts/zeroth",
		Meta: FrontMatter{Title: "Zeroth", Date: date.AddDate(0, -1, 0)},
	}
	page.Earlier = earlier

	ctx := PageContext(testConfig(), page)

	pageCtx, ok := ctx["page"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "First", pageCtx["title"])
	assert.Equal(t, "https://example.org/posts/first/", pageCtx["permalink"])
	assert.Equal(t, tessera.Safe("<p>hi</p>"), pageCtx["content"])
	assert.Equal(t, date, pageCtx["date"])

	wantEarlier := map[string]interface{}{
		"title":     "Zeroth",
		"permalink": "https://example.org/posts/zeroth/",
		"date":      date.AddDate(0, -1, 0),
	}
	if diff := cmp.Diff(wantEarlier, pageCtx["earlier"]); diff != "" {
		t.Errorf("earlier mismatch (-want +got):\n%s", diff)
	}

	_, hasLater := pageCtx["later"]
	assert.False(t, hasLater, "later must be absent, not nil, so templates can guard on existence")
}

func TestPageContextOmitsEmptyOptionals(t *testing.T) {
	page := &Page{Slug: "about", Meta: FrontMatter{Title: "About"}, Content: "x"}

	ctx := PageContext(testConfig(), page)
	pageCtx := ctx["page"].(map[string]interface{})

	for _, key := range []string{"date", "description", "draft", "earlier", "later"} {
		_, present := pageCtx[key]
		assert.False(t, present, "key %q must be absent for a bare page", key)
	}
}

func TestIndexContext(t *testing.T) {
	newest := pageDated(t, "b.html", "2024-01-01T00:00:00Z")
	oldest := pageDated(t, "a.html", "2023-01-01T00:00:00Z")

	ctx := IndexContext(testConfig(), []*Page{oldest, newest})
	pageCtx := ctx["page"].(map[string]interface{})

	children, ok := pageCtx["pages"].([]map[string]interface{})
	require.True(t, ok)
	require.Len(t, children, 2)
	assert.Equal(t, "b.html", children[0]["title"])
	assert.Equal(t, "a.html", children[1]["title"])
}

func TestConfigContextExtras(t *testing.T) {
	config := testConfig()
	config.Extra = map[string]interface{}{"show_webring": true}

	ctx := configContext(config)
	assert.Equal(t, true, ctx["show_webring"])
	assert.Equal(t, "https://example.org", ctx["base_url"])

	_, hasAuthor := ctx["author"]
	assert.False(t, hasAuthor, "unset author must be absent")
}

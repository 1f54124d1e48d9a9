package tessera

import (
	"strings"
	"testing"
)

func TestParseTemplateStructure(t *testing.T) {
	source := `{% extends "base.html" %}
{% block title %}Home{% endblock %}
{% block content %}
{% if page.draft %}draft{% else %}live{% endif %}
{% for item in items %}{{ item }}{% endfor %}
{% endblock content %}`

	tpl, err := parseTemplate("index.html", source)
	if err != nil {
		t.Fatalf("parseTemplate() error = %v", err)
	}
	if tpl.Parent() != "base.html" {
		t.Errorf("parent = %q, want %q", tpl.Parent(), "base.html")
	}
	if tpl.Name() != "index.html" {
		t.Errorf("name = %q, want %q", tpl.Name(), "index.html")
	}
	if len(tpl.blocks) != 2 {
		t.Fatalf("blocks = %d, want 2", len(tpl.blocks))
	}
	for _, name := range []string{"title", "content"} {
		if _, ok := tpl.blocks[name]; !ok {
			t.Errorf("missing block %q", name)
		}
	}
}

func TestParseTemplateMacro(t *testing.T) {
	source := `{% macro summary(page, base_url) %}<a href="{{ page.url }}">{{ page.title }}</a>{% endmacro %}`

	tpl, err := parseTemplate("summary.html", source)
	if err != nil {
		t.Fatalf("parseTemplate() error = %v", err)
	}
	m, ok := tpl.macros["summary"]
	if !ok {
		t.Fatal("macro summary not declared")
	}
	if len(m.params) != 2 || m.params[0] != "page" || m.params[1] != "base_url" {
		t.Errorf("params = %v, want [page base_url]", m.params)
	}
}

func TestParseTemplateErrors(t *testing.T) {
	tests := []struct {
		name    string
		source  string
		wantMsg string
	}{
		{
			name:    "double extends",
			source:  `{% extends "a.html" %}{% extends "b.html" %}`,
			wantMsg: "more than one parent",
		},
		{
			name:    "extends inside block",
			source:  `{% block body %}{% extends "a.html" %}{% endblock %}`,
			wantMsg: "top level",
		},
		{
			name:    "duplicate block",
			source:  `{% block x %}{% endblock %}{% block x %}{% endblock %}`,
			wantMsg: `duplicate block "x"`,
		},
		{
			name:    "unclosed block",
			source:  `{% block x %}body`,
			wantMsg: "endblock",
		},
		{
			name:    "unclosed if",
			source:  `{% if ok %}yes`,
			wantMsg: "endif",
		},
		{
			name:    "for without in",
			source:  `{% for item of items %}{% endfor %}`,
			wantMsg: `"in"`,
		},
		{
			name:    "unknown tag",
			source:  `{% loop x %}`,
			wantMsg: "unknown tag",
		},
		{
			name:    "stray endif",
			source:  `text{% endif %}`,
			wantMsg: "endif",
		},
		{
			name:    "mismatched endblock name",
			source:  `{% block head %}x{% endblock tail %}`,
			wantMsg: "mismatched",
		},
		{
			name:    "stray name on endfor",
			source:  `{% for x in items %}{{ x }}{% endfor x %}`,
			wantMsg: `unexpected "x" after endfor`,
		},
		{
			name:    "stray name on endmacro",
			source:  `{% macro m() %}body{% endmacro junk %}`,
			wantMsg: `unexpected "junk" after endmacro`,
		},
		{
			name:    "unquoted include",
			source:  `{% include partial.html %}`,
			wantMsg: "quoted",
		},
		{
			name:    "super with arguments",
			source:  `{% block x %}{{ super(extra=1) }}{% endblock %}`,
			wantMsg: "no arguments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseTemplate("bad.html", tt.source)
			if err == nil {
				t.Fatal("parseTemplate() expected error, got nil")
			}
			if !IsParseError(err) {
				t.Errorf("error %T is not a ParseError", err)
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantMsg)
			}
		})
	}
}

func TestParseErrorIsPermanent(t *testing.T) {
	loader := MapLoader{"broken.html": "{% block x %}never closed"}
	set := newTemplateSet(loader)

	_, first := set.resolve("broken.html")
	if first == nil {
		t.Fatal("resolve() expected error, got nil")
	}
	_, second := set.resolve("broken.html")
	if second == nil {
		t.Fatal("resolve() expected cached error, got nil")
	}
	if first.Error() != second.Error() {
		t.Errorf("cached error differs: %q vs %q", first, second)
	}
}

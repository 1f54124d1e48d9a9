package tessera

import (
	"testing"
	"time"
)

func TestFilterReplace(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		args    map[string]interface{}
		want    string
		wantErr bool
	}{
		{
			name:  "base url substitution",
			value: "$BASE_URL/posts/first/",
			args:  map[string]interface{}{"from": "$BASE_URL", "to": "https://example.org"},
			want:  "https://example.org/posts/first/",
		},
		{
			name:  "every occurrence",
			value: "a-b-c",
			args:  map[string]interface{}{"from": "-", "to": "+"},
			want:  "a+b+c",
		},
		{
			name:  "no match is identity",
			value: "untouched",
			args:  map[string]interface{}{"from": "$BASE_URL", "to": "x"},
			want:  "untouched",
		},
		{
			name:    "empty from",
			value:   "x",
			args:    map[string]interface{}{"from": "", "to": "y"},
			wantErr: true,
		},
		{
			name:    "missing to",
			value:   "x",
			args:    map[string]interface{}{"from": "a"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterReplace(tt.value, tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected error, got nil")
				}
				if !IsFilterError(err) {
					t.Errorf("error %T is not a FilterError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("filterReplace() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("filterReplace() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterDate(t *testing.T) {
	ts := time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		name  string
		value interface{}
		args  map[string]interface{}
		want  string
	}{
		{
			name:  "default format",
			value: ts,
			want:  "2024-03-09",
		},
		{
			name:  "custom format",
			value: ts,
			args:  map[string]interface{}{"format": "%d %B %Y"},
			want:  "09 March 2024",
		},
		{
			name:  "rfc3339 via plus",
			value: ts,
			args:  map[string]interface{}{"format": "%+"},
			want:  "2024-03-09T14:30:00Z",
		},
		{
			name:  "string date input",
			value: "2024-03-09",
			want:  "2024-03-09",
		},
		{
			name:  "string datetime input",
			value: "2024-03-09T14:30:00Z",
			args:  map[string]interface{}{"format": "%Y"},
			want:  "2024",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := filterDate(tt.value, tt.args)
			if err != nil {
				t.Fatalf("filterDate() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("filterDate() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestFilterDateRejectsNonDates(t *testing.T) {
	_, err := filterDate(42, nil)
	if err == nil {
		t.Fatal("expected error for non-date value, got nil")
	}
	if !IsFilterError(err) {
		t.Errorf("error %T is not a FilterError", err)
	}
}

func TestFilterSafeAndEscape(t *testing.T) {
	raw := `<a href="/">home & away</a>`

	safe, err := filterSafe(raw, nil)
	if err != nil {
		t.Fatalf("filterSafe() error = %v", err)
	}
	if _, ok := safe.(Safe); !ok {
		t.Fatalf("filterSafe() returned %T, want Safe", safe)
	}
	if string(safe.(Safe)) != raw {
		t.Errorf("filterSafe() altered content: %q", safe)
	}

	escaped, err := filterEscape(raw, nil)
	if err != nil {
		t.Fatalf("filterEscape() error = %v", err)
	}
	want := "&lt;a href=&#34;/&#34;&gt;home &amp; away&lt;/a&gt;"
	if string(escaped.(Safe)) != want {
		t.Errorf("filterEscape() = %q, want %q", escaped, want)
	}
}

func TestStringFilters(t *testing.T) {
	tests := []struct {
		name   string
		filter FilterFunc
		value  interface{}
		want   interface{}
	}{
		{"upper", filterUpper, "abc", "ABC"},
		{"lower", filterLower, "AbC", "abc"},
		{"trim", filterTrim, "  x  ", "x"},
		{"length of string", filterLength, "abcd", 4},
		{"length of slice", filterLength, []string{"a", "b"}, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.filter(tt.value, nil)
			if err != nil {
				t.Fatalf("filter error = %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v (%T), want %v", got, got, tt.want)
			}
		})
	}
}

func TestFilterJoin(t *testing.T) {
	got, err := filterJoin([]string{"go", "web", "blog"}, map[string]interface{}{"sep": ", "})
	if err != nil {
		t.Fatalf("filterJoin() error = %v", err)
	}
	if got != "go, web, blog" {
		t.Errorf("filterJoin() = %q", got)
	}
}

func TestFilterRegistryRegisterAndNames(t *testing.T) {
	r := NewFilterRegistry()

	if _, ok := r.get("replace"); !ok {
		t.Fatal("builtin replace missing")
	}

	err := r.Register("shout", func(value interface{}, args map[string]interface{}) (interface{}, error) {
		return FormatValue(value) + "!", nil
	})
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, ok := r.get("shout"); !ok {
		t.Fatal("registered filter not retrievable")
	}

	names := r.Names()
	found := false
	for _, name := range names {
		if name == "shout" {
			found = true
		}
	}
	if !found {
		t.Errorf("Names() = %v, want to include shout", names)
	}
}

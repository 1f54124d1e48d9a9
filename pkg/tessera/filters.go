package tessera

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ncruces/go-strftime"
)

// FilterFunc transforms a value during expression evaluation. Arguments
// are the named arguments from the template, already evaluated.
type FilterFunc func(value interface{}, args map[string]interface{}) (interface{}, error)

// FilterRegistry holds the filters available to an engine. The zero
// value is not usable; NewFilterRegistry installs the built-in set.
type FilterRegistry struct {
	mu      sync.RWMutex
	filters map[string]FilterFunc
}

// NewFilterRegistry creates a registry preloaded with the built-in
// filters.
func NewFilterRegistry() *FilterRegistry {
	r := &FilterRegistry{filters: make(map[string]FilterFunc)}
	registerBuiltinFilters(r)
	return r
}

// Register adds or replaces a filter.
func (r *FilterRegistry) Register(name string, fn FilterFunc) error {
	if name == "" {
		return fmt.Errorf("filter name cannot be empty")
	}
	if fn == nil {
		return fmt.Errorf("filter %q: function cannot be nil", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.filters[name] = fn
	return nil
}

// Names returns the registered filter names.
func (r *FilterRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.filters))
	for name := range r.filters {
		names = append(names, name)
	}
	return names
}

func (r *FilterRegistry) get(name string) (FilterFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.filters[name]
	return fn, ok
}

func registerBuiltinFilters(r *FilterRegistry) {
	r.filters["default"] = filterDefault
	r.filters["replace"] = filterReplace
	r.filters["date"] = filterDate
	r.filters["safe"] = filterSafe
	r.filters["escape"] = filterEscape
	r.filters["upper"] = filterUpper
	r.filters["lower"] = filterLower
	r.filters["trim"] = filterTrim
	r.filters["length"] = filterLength
	r.filters["join"] = filterJoin
}

func stringArg(filter string, args map[string]interface{}, name string) (string, error) {
	raw, ok := args[name]
	if !ok {
		return "", NewFilterError(filter, fmt.Sprintf("missing required argument %q", name))
	}
	s, ok := raw.(string)
	if !ok {
		return "", NewFilterError(filter, fmt.Sprintf("argument %q must be a string, got %T", name, raw))
	}
	return s, nil
}

// filterDefault substitutes its "value" argument for an undefined
// input. Defined inputs pass through unchanged, falsy or not.
func filterDefault(value interface{}, args map[string]interface{}) (interface{}, error) {
	fallback, ok := args["value"]
	if !ok {
		return nil, NewFilterError("default", "missing required argument \"value\"")
	}
	if value == nil || isUndefined(value) {
		return fallback, nil
	}
	return value, nil
}

// filterReplace substitutes every occurrence of a literal placeholder.
// The canonical use is rewriting a $BASE_URL token into the configured
// base URL before output.
func filterReplace(value interface{}, args map[string]interface{}) (interface{}, error) {
	from, err := stringArg("replace", args, "from")
	if err != nil {
		return nil, err
	}
	if from == "" {
		return nil, NewFilterError("replace", "argument \"from\" cannot be empty")
	}
	to, err := stringArg("replace", args, "to")
	if err != nil {
		return nil, err
	}
	return strings.ReplaceAll(FormatValue(value), from, to), nil
}

// filterDate formats a timestamp with a strftime pattern. The "%+"
// specifier produces RFC 3339, matching the fixed-width locale-free
// form used in article metadata.
func filterDate(value interface{}, args map[string]interface{}) (interface{}, error) {
	t, err := coerceTime(value)
	if err != nil {
		return nil, &FilterError{Filter: "date", Message: "value is not a date", Cause: err}
	}
	format := "%Y-%m-%d"
	if raw, ok := args["format"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, NewFilterError("date", fmt.Sprintf("argument \"format\" must be a string, got %T", raw))
		}
		format = s
	}
	if format == "%+" {
		return t.Format(time.RFC3339), nil
	}
	return strftime.Format(format, t), nil
}

// coerceTime accepts the timestamp shapes that occur in page contexts.
func coerceTime(value interface{}) (time.Time, error) {
	switch v := value.(type) {
	case time.Time:
		return v, nil
	case *time.Time:
		if v == nil {
			return time.Time{}, fmt.Errorf("nil time")
		}
		return *v, nil
	case string:
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("unparseable date string %q", v)
	default:
		return time.Time{}, fmt.Errorf("cannot interpret %T as a date", value)
	}
}

// filterSafe marks a value as pre-escaped, exempting it from HTML
// escaping on output.
func filterSafe(value interface{}, args map[string]interface{}) (interface{}, error) {
	if s, ok := value.(Safe); ok {
		return s, nil
	}
	return Safe(FormatValue(value)), nil
}

// filterEscape forces HTML escaping and marks the result safe so it is
// not escaped a second time on output.
func filterEscape(value interface{}, args map[string]interface{}) (interface{}, error) {
	return Safe(escapeHTML(FormatValue(value))), nil
}

func filterUpper(value interface{}, args map[string]interface{}) (interface{}, error) {
	return strings.ToUpper(FormatValue(value)), nil
}

func filterLower(value interface{}, args map[string]interface{}) (interface{}, error) {
	return strings.ToLower(FormatValue(value)), nil
}

func filterTrim(value interface{}, args map[string]interface{}) (interface{}, error) {
	return strings.TrimSpace(FormatValue(value)), nil
}

func filterLength(value interface{}, args map[string]interface{}) (interface{}, error) {
	switch v := value.(type) {
	case string:
		return len(v), nil
	case Safe:
		return len(v), nil
	case map[string]interface{}:
		return len(v), nil
	case Context:
		return len(v), nil
	}
	items, err := toSlice(value)
	if err != nil {
		return nil, NewFilterError("length", fmt.Sprintf("value of type %T has no length", value))
	}
	return len(items), nil
}

func filterJoin(value interface{}, args map[string]interface{}) (interface{}, error) {
	sep := ""
	if raw, ok := args["sep"]; ok {
		s, ok := raw.(string)
		if !ok {
			return nil, NewFilterError("join", fmt.Sprintf("argument \"sep\" must be a string, got %T", raw))
		}
		sep = s
	}
	items, err := toSlice(value)
	if err != nil {
		return nil, NewFilterError("join", fmt.Sprintf("value of type %T is not iterable", value))
	}
	parts := make([]string, len(items))
	for i, item := range items {
		parts[i] = FormatValue(item)
	}
	return strings.Join(parts, sep), nil
}

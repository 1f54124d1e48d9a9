package tessera

import (
	"errors"
	"io/fs"
	"sort"
	"sync"

	"github.com/sahilm/fuzzy"
)

// Loader supplies template source by name. Load returns fs.ErrNotExist
// (possibly wrapped) when no template has the given name.
type Loader interface {
	Load(name string) (string, error)
	Names() []string
}

// FSLoader reads templates from a file system, typically os.DirFS over
// a template directory or an embed.FS.
type FSLoader struct {
	fsys fs.FS
}

// NewFSLoader returns a loader over fsys. Template names are
// slash-separated paths relative to its root.
func NewFSLoader(fsys fs.FS) *FSLoader {
	return &FSLoader{fsys: fsys}
}

func (l *FSLoader) Load(name string) (string, error) {
	data, err := fs.ReadFile(l.fsys, name)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func (l *FSLoader) Names() []string {
	var names []string
	fs.WalkDir(l.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		names = append(names, path)
		return nil
	})
	sort.Strings(names)
	return names
}

// MapLoader serves templates from an in-memory map, mainly for tests
// and for programmatic use.
type MapLoader map[string]string

func (l MapLoader) Load(name string) (string, error) {
	source, ok := l[name]
	if !ok {
		return "", fs.ErrNotExist
	}
	return source, nil
}

func (l MapLoader) Names() []string {
	names := make([]string, 0, len(l))
	for name := range l {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type parseEntry struct {
	tpl *Template
	err error
}

type resolveEntry struct {
	res *resolvedTemplate
	err error
}

// templateSet caches parse and resolution results per template name.
// Failures are cached alongside successes, so a template that failed
// to parse fails identically on every subsequent request.
type templateSet struct {
	loader   Loader
	mu       sync.Mutex
	parsed   map[string]parseEntry
	resolved map[string]resolveEntry
}

func newTemplateSet(loader Loader) *templateSet {
	return &templateSet{
		loader:   loader,
		parsed:   make(map[string]parseEntry),
		resolved: make(map[string]resolveEntry),
	}
}

// parse returns the cached parse of name, loading and parsing on first
// use. Callers must hold s.mu.
func (s *templateSet) parse(name string) (*Template, error) {
	if entry, ok := s.parsed[name]; ok {
		return entry.tpl, entry.err
	}
	tpl, err := s.parseFresh(name)
	s.parsed[name] = parseEntry{tpl: tpl, err: err}
	return tpl, err
}

func (s *templateSet) parseFresh(name string) (*Template, error) {
	source, err := s.loader.Load(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, NewTemplateNotFoundError(name, s.suggest(name))
		}
		return nil, err
	}
	return parseTemplate(name, source)
}

// resolve returns name's template with inheritance flattened, caching
// the result.
func (s *templateSet) resolve(name string) (*resolvedTemplate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.resolved[name]; ok {
		return entry.res, entry.err
	}
	res, err := s.resolveLocked(name)
	s.resolved[name] = resolveEntry{res: res, err: err}
	return res, err
}

func (s *templateSet) resolveLocked(name string) (*resolvedTemplate, error) {
	tpl, err := s.parse(name)
	if err != nil {
		return nil, err
	}
	return resolveInheritance(tpl, s.parse)
}

// suggest ranks known template names by fuzzy similarity to the missing
// one, for the not-found error message.
func (s *templateSet) suggest(name string) []string {
	matches := fuzzy.Find(name, s.loader.Names())
	var suggestions []string
	for i, m := range matches {
		if i == 3 {
			break
		}
		suggestions = append(suggestions, m.Str)
	}
	return suggestions
}

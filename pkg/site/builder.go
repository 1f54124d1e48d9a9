package site

import (
	"bytes"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/natefinch/atomic"

	"github.com/akarlsen/tessera/pkg/tessera"
)

// Builder renders a page set into an output directory. The template
// set is shared and immutable across workers; each page renders
// against its own context, so per-page failures stay local and the
// batch reports every failing page.
type Builder struct {
	config *Config
	engine *tessera.Engine
	logger *slog.Logger
	outDir string
	jobs   int
	drafts bool
}

// BuilderOption configures a Builder.
type BuilderOption func(*Builder)

// WithJobs sets the number of render workers.
func WithJobs(n int) BuilderOption {
	return func(b *Builder) {
		if n > 0 {
			b.jobs = n
		}
	}
}

// WithDrafts includes pages marked draft in the build.
func WithDrafts(include bool) BuilderOption {
	return func(b *Builder) {
		b.drafts = include
	}
}

// WithLogger sets the builder's logger.
func WithLogger(logger *slog.Logger) BuilderOption {
	return func(b *Builder) {
		if logger != nil {
			b.logger = logger
		}
	}
}

// NewBuilder creates a Builder writing rendered pages under outDir.
func NewBuilder(config *Config, engine *tessera.Engine, outDir string, opts ...BuilderOption) *Builder {
	b := &Builder{
		config: config,
		engine: engine,
		logger: slog.Default(),
		outDir: outDir,
		jobs:   runtime.NumCPU(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build renders the index and every included page. It returns nil only
// when every page rendered and was written; otherwise the error lists
// each failing page.
func (b *Builder) Build(pages []*Page) error {
	LinkAdjacent(pages)

	included := make([]*Page, 0, len(pages))
	for _, p := range pages {
		if p.Meta.Draft && !b.drafts {
			b.logger.Debug("skipping draft", "page", p.Source)
			continue
		}
		included = append(included, p)
	}

	b.logger.Info("building site",
		"pages", len(included),
		"out", b.outDir,
		"jobs", b.jobs)

	merr := tessera.NewMultiError()
	var mu sync.Mutex
	fail := func(err error) {
		mu.Lock()
		merr.Add(err)
		mu.Unlock()
	}

	work := make(chan *Page)
	var wg sync.WaitGroup
	for i := 0; i < b.jobs; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for p := range work {
				if err := b.buildPage(p); err != nil {
					fail(fmt.Errorf("page %s: %w", p.Source, err))
				}
			}
		}()
	}
	for _, p := range included {
		work <- p
	}
	close(work)
	wg.Wait()

	// The listing only exists when the build produced something to list.
	if err := b.buildIndex(included); err != nil {
		fail(fmt.Errorf("index: %w", err))
	}

	if err := merr.Err(); err != nil {
		b.logger.Error("build failed", "failures", merr.Len())
		return err
	}
	b.logger.Info("build complete", "pages", len(included)+1)
	return nil
}

func (b *Builder) buildPage(p *Page) error {
	var buf bytes.Buffer
	if err := b.engine.RenderTo(&buf, p.Template(), PageContext(b.config, p)); err != nil {
		return err
	}
	out := filepath.Join(b.outDir, filepath.FromSlash(p.Slug), "index.html")
	b.logger.Debug("rendered page", "page", p.Source, "out", out)
	return writeFile(out, &buf)
}

func (b *Builder) buildIndex(pages []*Page) error {
	var buf bytes.Buffer
	if err := b.engine.RenderTo(&buf, "index.html", IndexContext(b.config, pages)); err != nil {
		return err
	}
	return writeFile(filepath.Join(b.outDir, "index.html"), &buf)
}

// writeFile writes atomically so an interrupted build never leaves a
// truncated page behind.
func writeFile(path string, buf *bytes.Buffer) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return atomic.WriteFile(path, buf)
}

// CopyAssets copies every non-template file (stylesheets, images) from
// fsys into the output directory.
func (b *Builder) CopyAssets(fsys fs.FS) error {
	return fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		if filepath.Ext(p) == ".html" {
			return nil
		}
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		out := filepath.Join(b.outDir, filepath.FromSlash(p))
		b.logger.Debug("copied asset", "asset", p, "out", out)
		return writeFile(out, bytes.NewBuffer(data))
	})
}

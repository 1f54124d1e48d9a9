package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/alecthomas/kong"

	"github.com/akarlsen/tessera/pkg/site"
	"github.com/akarlsen/tessera/pkg/tessera"
)

var version = "dev"

type cli struct {
	LogLevel string `help:"Log level." default:"info" enum:"debug,info,warn,error"`

	Build   buildCmd   `cmd:"" help:"Render the whole site into the output directory."`
	Render  renderCmd  `cmd:"" help:"Render a single template to stdout."`
	Version versionCmd `cmd:"" help:"Print the version."`
}

type appContext struct {
	logger *slog.Logger
}

type buildCmd struct {
	Root   string `help:"Site root directory." default:"." type:"existingdir"`
	Out    string `help:"Output directory." default:"public"`
	Jobs   int    `help:"Render workers. Defaults to the CPU count."`
	Drafts bool   `help:"Include pages marked draft."`
}

func (c *buildCmd) Run(app *appContext) error {
	config, err := site.LoadConfig(filepath.Join(c.Root, "config.yaml"))
	if err != nil {
		return err
	}

	templates := siteTemplates(c.Root, app.logger)
	engine, err := tessera.New(tessera.NewFSLoader(templates))
	if err != nil {
		return err
	}

	pagesDir := filepath.Join(c.Root, "pages")
	if _, err := os.Stat(pagesDir); err != nil {
		return fmt.Errorf("no pages directory at %s", pagesDir)
	}
	pages, err := site.LoadPages(os.DirFS(pagesDir))
	if err != nil {
		return err
	}

	builder := site.NewBuilder(config, engine, c.Out,
		site.WithJobs(c.Jobs),
		site.WithDrafts(c.Drafts),
		site.WithLogger(app.logger))
	if err := builder.Build(pages); err != nil {
		return err
	}
	return builder.CopyAssets(templates)
}

type renderCmd struct {
	Template string `arg:"" help:"Template name, e.g. index.html."`
	Root     string `help:"Site root directory." default:"." type:"existingdir"`
}

func (c *renderCmd) Run(app *appContext) error {
	config, err := site.LoadConfig(filepath.Join(c.Root, "config.yaml"))
	if err != nil {
		return err
	}
	engine, err := tessera.New(tessera.NewFSLoader(siteTemplates(c.Root, app.logger)))
	if err != nil {
		return err
	}
	return engine.RenderTo(os.Stdout, c.Template, site.IndexContext(config, nil))
}

type versionCmd struct{}

func (c *versionCmd) Run(app *appContext) error {
	fmt.Println("tessera " + version)
	return nil
}

// siteTemplates prefers the site's own templates directory and falls
// back to the embedded default set.
func siteTemplates(root string, logger *slog.Logger) fs.FS {
	dir := filepath.Join(root, "templates")
	if info, err := os.Stat(dir); err == nil && info.IsDir() {
		logger.Debug("using site templates", "dir", dir)
		return os.DirFS(dir)
	}
	logger.Debug("using embedded templates")
	return site.DefaultTemplates()
}

func logLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	var args cli
	ctx := kong.Parse(&args,
		kong.Name("tessera"),
		kong.Description("A small static-site template renderer."),
		kong.UsageOnError())

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel(args.LogLevel),
	}))

	err := ctx.Run(&appContext{logger: logger})
	ctx.FatalIfErrorf(err)
}

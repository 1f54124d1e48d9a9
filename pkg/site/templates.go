package site

import (
	"embed"
	"io/fs"
)

//go:embed templates
var templatesFS embed.FS

// DefaultTemplates returns the built-in template set. Sites without a
// templates directory of their own render with these.
func DefaultTemplates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		// The subtree is embedded at compile time.
		panic(err)
	}
	return sub
}

// Package site turns a directory of content pages plus a YAML site
// configuration into a rendered static site, using the tessera template
// engine. It supplies the embedded default template set, per-page
// context assembly, and a concurrent batch builder with atomic output
// writes.
package site

// Package tessera implements a small HTML template engine with
// single-parent inheritance, in the style of Tera and Jinja.
//
// Templates mix literal markup with three kinds of directives:
//
//	{{ expression }}    output, HTML-escaped unless the value is Safe
//	{% tag ... %}       control flow: extends, block, if, for, include, macro
//	{# comment #}       dropped from output
//
// A child template names its parent with {% extends "base.html" %} and
// overrides the parent's blocks; {{ super() }} inside an override
// splices the parent's body. Values reach templates through a Context,
// and a missing variable is an error only when its value would actually
// be written.
//
// Basic usage:
//
//	engine, err := tessera.New(tessera.NewFSLoader(os.DirFS("templates")))
//	if err != nil {
//		log.Fatal(err)
//	}
//	out, err := engine.Render("page.html", tessera.Context{
//		"title": "Hello",
//	})
package tessera

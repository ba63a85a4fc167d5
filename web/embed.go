// Package web embeds the HTML templates and static assets served by the
// movie watchlist.
package web

import (
	"embed"
	"io/fs"
)

//go:embed all:templates
var templatesFS embed.FS

//go:embed all:static
var staticFS embed.FS

// Templates returns the template tree rooted at its layouts, pages and
// partials directories.
func Templates() fs.FS {
	return mustSub(templatesFS, "templates")
}

// Static returns the static asset tree served under /static/.
func Static() fs.FS {
	return mustSub(staticFS, "static")
}

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

// Package web embeds the built coaching frontend (dist/) and serves it as a
// single-page application. During development dist/ holds only a placeholder
// page; the real build is produced by the frontend toolchain.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"
)

//go:embed all:dist
var distFS embed.FS

// SPAHandler serves the embedded frontend. Paths that match an embedded file
// are served directly; everything else falls back to index.html so client-side
// routing keeps working on refresh.
func SPAHandler() http.Handler {
	subFS, err := fs.Sub(distFS, "dist")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}

	fileServer := http.FileServer(http.FS(subFS))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, "/")
		if path == "" {
			path = "index.html"
		}

		if _, err := fs.Stat(subFS, path); err != nil {
			// SPA fallback.
			r.URL.Path = "/"
		}
		fileServer.ServeHTTP(w, r)
	})
}

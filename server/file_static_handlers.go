package server

import (
	"embed"
	"io/fs"
	"net/http"
	"path"
)

//go:embed static
var staticFiles embed.FS

var staticFS = mustSub(staticFiles, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic("static files: " + err.Error())
	}
	return sub
}

// StaticFileHandler serves embedded assets below dir, taking the file name
// from the {file} path value. Conditional requests are honoured.
func (s *Server) StaticFileHandler(dir string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := path.Join(dir, r.PathValue("file"))
		if info, err := fs.Stat(staticFS, name); err != nil || info.IsDir() {
			if s.env == "DEV" {
				logError(r.Method, name, "not found")
			}
			http.NotFound(w, r)
			return
		}
		http.ServeFileFS(w, r, staticFS, name)
	}
}

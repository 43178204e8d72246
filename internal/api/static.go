package api

import (
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// handleIndex serves the page shell, or a placeholder message when no shell
// has been built.
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	index := filepath.Join(s.cfg.Server.WebDir, "index.html")
	if s.cfg.Server.WebDir == "" || !isFile(index) {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Frontend not built yet"})
		return
	}
	http.ServeFile(w, r, index)
}

// mountDir serves files under dir at prefix when dir exists. Directory
// listings are not served.
func (s *Server) mountDir(r chi.Router, prefix, dir string) {
	if dir == "" {
		return
	}
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		s.logger.Debug("static directory not mounted", "prefix", prefix, "dir", dir)
		return
	}
	fs := http.StripPrefix(prefix, http.FileServer(http.Dir(dir)))
	r.Handle(prefix+"/*", http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if strings.HasSuffix(req.URL.Path, "/") {
			writeDetail(w, http.StatusNotFound, "Not Found")
			return
		}
		fs.ServeHTTP(w, req)
	}))
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func chiRequestID(r *http.Request) string {
	return chimw.GetReqID(r.Context())
}

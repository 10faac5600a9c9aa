package handlers

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/camden-git/genealogybackend/media"
)

const assetCacheDuration = 24 * time.Hour

// AssetServer serves files of one store sub directory. The route prefix must
// match the sub directory:
//
//	r.Get("/api/portraits/*", AssetServer(store, "portraits"))
//	r.Get("/api/thumbnails/*", AssetServer(store, "thumbnails"))
func AssetServer(store media.Store, subDir string) http.HandlerFunc {
	routePrefix := "/api/" + subDir + "/"
	log.Printf("Serving assets for '%s*' from store directory '%s'", routePrefix, subDir)

	return func(w http.ResponseWriter, r *http.Request) {
		// e.g. /api/portraits/7/abc.jpg -> 7/abc.jpg
		relativePath := strings.TrimPrefix(r.URL.Path, routePrefix)
		if relativePath == "" || strings.Contains(relativePath, "..") {
			WriteAPIError(w, http.StatusBadRequest, "invalid_path", "Invalid asset path")
			return
		}

		fullPath, err := store.GetFullPath(path.Join(subDir, relativePath))
		if err != nil {
			log.Printf("SECURITY: Rejected asset request '%s': %v", r.URL.Path, err)
			WriteAPIError(w, http.StatusForbidden, "forbidden", "Forbidden")
			return
		}

		info, err := os.Stat(fullPath)
		if os.IsNotExist(err) || (err == nil && info.IsDir()) {
			http.NotFound(w, r)
			return
		} else if err != nil {
			log.Printf("Error stating asset file %s: %v", fullPath, err)
			WriteAPIError(w, http.StatusInternalServerError, "internal_error", "Internal Server Error")
			return
		}

		w.Header().Set("Cache-Control", fmt.Sprintf("public, max-age=%d", int(assetCacheDuration.Seconds())))
		w.Header().Set("Expires", time.Now().Add(assetCacheDuration).Format(http.TimeFormat))
		http.ServeFile(w, r, fullPath)
	}
}

// Package web embeds the registration page.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/everweb-bridge/backend/pkg/response"
)

//go:embed public
var publicFS embed.FS

// Assets returns the embedded front end rooted at public/.
func Assets() fs.FS {
	sub, err := fs.Sub(publicFS, "public")
	if err != nil {
		panic(err)
	}
	return sub
}

// Handler serves static assets for any path outside /api.
func Handler(assets fs.FS) gin.HandlerFunc {
	files := http.FileServer(http.FS(assets))
	return func(c *gin.Context) {
		if strings.HasPrefix(c.Request.URL.Path, "/api/") {
			response.NotFound(c, "not found")
			return
		}
		if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
			c.Status(http.StatusMethodNotAllowed)
			return
		}
		files.ServeHTTP(c.Writer, c.Request)
	}
}

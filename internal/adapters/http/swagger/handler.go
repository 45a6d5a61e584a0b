// Package swagger serves the API description and a ReDoc page for it.
package swagger

import (
	"context"
	"io/fs"
	"net/http"
	"strings"
)

const (
	redocFile  = "redoc.standalone.js"
	redocLocal = "/api-docs/" + redocFile
	redocCDN   = "https://cdn.redoc.ly/redoc/v2.1.5/bundles/" + redocFile
)

type options struct {
	assets fs.FS
}

// Option configures Register.
type Option func(*options)

// WithAssets replaces the embedded assets served under /api-docs/.
func WithAssets(assets fs.FS) Option {
	return func(o *options) {
		if assets != nil {
			o.assets = assets
		}
	}
}

// Register attaches the API docs routes to mux.
// Routes:
//
//	GET /api-docs                       -> ReDoc HTML
//	GET /api-docs/redoc.standalone.js   -> Embedded ReDoc JavaScript
//	GET /openapi.yaml                   -> Embedded OpenAPI document
func Register(_ context.Context, mux *http.ServeMux, opts ...Option) {
	if mux == nil {
		panic("mux is nil")
	}
	o := options{assets: Assets}
	for _, opt := range opts {
		opt(&o)
	}

	// Offline installs get the embedded bundle; the CDN is only used when none was vendored.
	script := redocCDN
	redocJS, err := fs.ReadFile(o.assets, redocFile)
	if err == nil {
		script = redocLocal
	}
	page := strings.Replace(indexHTML, "{{script}}", script, 1)

	mux.HandleFunc("GET /api-docs", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(page))
	})

	if redocJS != nil {
		mux.HandleFunc("GET "+redocLocal, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
			_, _ = w.Write(redocJS)
		})
	}

	mux.HandleFunc("GET /openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
		_, _ = w.Write(OpenAPI)
	})
}

// Minimal HTML that loads ReDoc and points it at /openapi.yaml.
const indexHTML = `<!doctype html>
<html>
  <head>
    <meta charset="utf-8">
    <title>Scoreboard API Docs</title>
    <style>body{margin:0;padding:0}</style>
  </head>
  <body>
    <redoc id="redoc-container"></redoc>
    <script src="{{script}}"></script>
    <script>Redoc.init('/openapi.yaml', { suppressWarnings: true }, document.getElementById('redoc-container'));</script>
  </body>
</html>`

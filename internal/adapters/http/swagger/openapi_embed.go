package swagger

import (
	"embed"
	"io/fs"
)

//go:generate curl -fsSL -o static/redoc.standalone.js https://cdn.redoc.ly/redoc/v2.1.5/bundles/redoc.standalone.js

// OpenAPI contains the embedded OpenAPI YAML document.
//
//go:embed openapi.yaml
var OpenAPI []byte

//go:embed static
var static embed.FS

// Assets holds the files served under /api-docs/, including redoc.standalone.js when vendored.
var Assets = mustSub(static, "static")

func mustSub(fsys fs.FS, dir string) fs.FS {
	sub, err := fs.Sub(fsys, dir)
	if err != nil {
		panic(err)
	}
	return sub
}

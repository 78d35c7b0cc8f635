package store

import (
	"embed"
	"io/fs"
)

//go:embed defaults/*.json
var defaultsFS embed.FS

// Defaults is the bundled starter data set, keyed like the collections.
func Defaults() fs.FS {
	sub, err := fs.Sub(defaultsFS, "defaults")
	if err != nil {
		panic(err)
	}
	return sub
}

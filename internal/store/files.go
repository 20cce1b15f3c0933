package store

import (
	"errors"
	"mime"
	"path/filepath"
	"strings"
)

var errBadFileName = errors.New("invalid file name")

// validFileName accepts plain names only; anything that could address a
// path outside the storage root is rejected.
func validFileName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`) && filepath.Base(name) == name
}

func contentTypeOf(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

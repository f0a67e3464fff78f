// Package fsutil provides file system utility functions.
package fsutil

import (
	"io/fs"
	"path/filepath"
	"slices"
	"strings"
)

// FindFilesByExtension recursively searches root for files ending with any
// of the given extensions. Paths are returned in lexical walk order. A root
// that is itself a matching file is returned as is.
func FindFilesByExtension(root string, extensions ...string) ([]string, error) {
	if len(extensions) == 0 || slices.Contains(extensions, "") {
		panic("extension must not be empty")
	}
	return find(root, func(name string) bool {
		return slices.ContainsFunc(extensions, func(ext string) bool {
			return strings.HasSuffix(name, ext)
		})
	})
}

// FindFilesByName recursively searches root for files whose base name is one
// of names, compared case-insensitively.
func FindFilesByName(root string, names ...string) ([]string, error) {
	return find(root, func(name string) bool {
		return slices.ContainsFunc(names, func(n string) bool {
			return strings.EqualFold(name, n)
		})
	})
}

func find(root string, match func(name string) bool) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && match(d.Name()) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// FindFilesFS walks fsys from its root and returns the slash-separated paths
// of the files for which match reports true. A nil match accepts every file.
func FindFilesFS(fsys fs.FS, match func(path string) bool) ([]string, error) {
	var files []string
	err := fs.WalkDir(fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && (match == nil || match(path)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

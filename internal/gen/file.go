// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package gen

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// checkQueryPath checks that the path of a query file can be resolved the
// same way on every machine.
func checkQueryPath(path string) error {
	if filepath.IsAbs(path) || filepath.VolumeName(path) != "" {
		return errors.New("absolute paths will only work on the current machine")
	}
	if dir := filepath.Dir(filepath.Clean(path)); dir == "." || dir == "" {
		return errors.New("paths relative to the current file's directory are not currently supported")
	}
	return nil
}

// readQueryFile returns the content of the query file at path, relative to
// root.
func readQueryFile(root, path string) (string, error) {
	if err := checkQueryPath(path); err != nil {
		return "", err
	}
	full := filepath.Join(root, filepath.FromSlash(path))
	b, err := os.ReadFile(full)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read query file at %s", full)
	}
	return string(b), nil
}

// FindRoot returns the closest directory holding a go.mod file, starting at
// dir and going up.
func FindRoot(dir string) (string, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return "", errors.WithStack(err)
	}
	for d := dir; ; {
		if _, err := os.Stat(filepath.Join(d, "go.mod")); err == nil {
			return d, nil
		} else if !os.IsNotExist(err) {
			return "", errors.Wrapf(err, "cannot look for go.mod in %s", d)
		}
		parent := filepath.Dir(d)
		if parent == d {
			return "", errors.Errorf("cannot find go.mod in %s or its parents", dir)
		}
		d = parent
	}
}

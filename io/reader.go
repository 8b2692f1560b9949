// Package io reads and writes point files that the octree builder consumes.
package io

import (
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"point-viewer/octree"
)

// ReadPoints reads a point file, picking the format by extension.
func ReadPoints(path string) ([]octree.Point, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".las":
		return ReadLAS(path)
	case ".xyz", ".txt", ".pts":
		return ReadXYZ(path)
	default:
		return nil, errors.Errorf("do not know how to read file %q", path)
	}
}

// WritePoints writes a point file, picking the format by extension.
func WritePoints(path string, points []octree.Point) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".las":
		return WriteLAS(path, points)
	case ".xyz", ".txt", ".pts":
		return WriteXYZ(path, points)
	default:
		return errors.Errorf("do not know how to write file %q", path)
	}
}

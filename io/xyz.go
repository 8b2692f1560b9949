package io

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"point-viewer/octree"
)

// ReadXYZ parses an ASCII point file with one "x y z [r g b]" record per line.
// Blank lines and lines starting with # are ignored. Colors are 0-255;
// points without color are white.
func ReadXYZ(path string) ([]octree.Point, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open XYZ file")
	}
	defer f.Close()

	var points []octree.Point
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		pt, err := parseXYZLine(strings.Fields(line))
		if err != nil {
			return nil, errors.Wrapf(err, "%s:%d", path, lineNo)
		}
		points = append(points, pt)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", path)
	}
	return points, nil
}

func parseXYZLine(fields []string) (octree.Point, error) {
	pt := octree.Point{Color: [3]uint8{255, 255, 255}}
	if len(fields) != 3 && len(fields) != 6 {
		return pt, fmt.Errorf("expected 3 or 6 fields, got %d", len(fields))
	}
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 32)
		if err != nil {
			return pt, errors.Wrapf(err, "bad coordinate %q", fields[i])
		}
		pt.Position[i] = float32(v)
	}
	if len(fields) == 6 {
		for i := 0; i < 3; i++ {
			c, err := strconv.ParseUint(fields[3+i], 10, 8)
			if err != nil {
				return pt, errors.Wrapf(err, "bad color %q", fields[3+i])
			}
			pt.Color[i] = uint8(c)
		}
	}
	return pt, nil
}

// WriteXYZ writes points in the format ReadXYZ reads.
func WriteXYZ(path string, points []octree.Point) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create XYZ file")
	}
	w := bufio.NewWriter(f)
	for _, p := range points {
		fmt.Fprintf(w, "%g %g %g %d %d %d\n", p.Position.X(), p.Position.Y(), p.Position.Z(), p.Color[0], p.Color[1], p.Color[2])
	}
	return errors.Wrapf(multierr.Combine(w.Flush(), f.Close()), "failed to write %s", path)
}

package io

import (
	"github.com/edaniels/lidario"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"point-viewer/octree"
)

// LAS point format 2 carries 16-bit RGB.
const lasFormatRGB = 2

// ReadLAS reads every point of a LAS file. Points without color are white.
func ReadLAS(path string) (_ []octree.Point, err error) {
	lf, err := lidario.NewLasFile(path, "r")
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open LAS file %s", path)
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	points := make([]octree.Point, 0, lf.Header.NumberPoints)
	for i := 0; i < lf.Header.NumberPoints; i++ {
		p, err := lf.LasPoint(i)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to read LAS point %d", i)
		}
		data := p.PointData()
		pt := octree.Point{
			Position: mgl32.Vec3{float32(data.X), float32(data.Y), float32(data.Z)},
			Color:    [3]uint8{255, 255, 255},
		}
		if lf.Header.PointFormatID == lasFormatRGB && p.RgbData() != nil {
			rgb := p.RgbData()
			pt.Color = [3]uint8{uint8(rgb.Red / 256), uint8(rgb.Green / 256), uint8(rgb.Blue / 256)}
		}
		points = append(points, pt)
	}
	return points, nil
}

// WriteLAS writes points as LAS point format 2.
func WriteLAS(path string, points []octree.Point) (err error) {
	lf, err := lidario.NewLasFile(path, "w")
	if err != nil {
		return errors.Wrapf(err, "failed to create LAS file %s", path)
	}
	defer func() {
		err = multierr.Combine(err, lf.Close())
	}()

	if err := lf.AddHeader(lidario.LasHeader{PointFormatID: lasFormatRGB}); err != nil {
		return errors.Wrap(err, "failed to write LAS header")
	}
	for i, pt := range points {
		rec := &lidario.PointRecord2{
			PointRecord0: &lidario.PointRecord0{
				X: float64(pt.Position.X()),
				Y: float64(pt.Position.Y()),
				Z: float64(pt.Position.Z()),
				BitField: lidario.PointBitField{
					Value: (1) | (1 << 3),
				},
				PointSourceID: 1,
			},
			RGB: &lidario.RgbData{
				Red:   uint16(pt.Color[0]) * 256,
				Green: uint16(pt.Color[1]) * 256,
				Blue:  uint16(pt.Color[2]) * 256,
			},
		}
		if err := lf.AddLasPoint(rec); err != nil {
			return errors.Wrapf(err, "failed to write LAS point %d", i)
		}
	}
	return nil
}

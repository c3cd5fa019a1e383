//go:build withcv
// +build withcv

/*
DESCRIPTION
  mat.go provides an Image adapter over gocv matrices and file loading using
  Open CV.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package raster

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// matImage reads pixels from a gocv.Mat. Open CV stores colour pixels in BGR
// order.
type matImage struct {
	m    gocv.Mat
	grey bool
}

// FromMat wraps an 8 bit BGR or single channel gocv.Mat.
func FromMat(m gocv.Mat) (Image, error) {
	if m.Empty() {
		return nil, errors.New("mat is empty")
	}
	switch m.Type() {
	case gocv.MatTypeCV8UC3:
		return &matImage{m: m}, nil
	case gocv.MatTypeCV8UC1:
		return &matImage{m: m, grey: true}, nil
	}
	return nil, fmt.Errorf("unsupported mat type: %v", m.Type())
}

func (i *matImage) Width() int  { return i.m.Cols() }
func (i *matImage) Height() int { return i.m.Rows() }

func (i *matImage) RGB(x, y int) (uint8, uint8, uint8) {
	if i.grey {
		v := i.m.GetUCharAt(y, x)
		return v, v, v
	}
	p := i.m.GetVecbAt(y, x)
	return p[2], p[1], p[0]
}

// Load reads the image file at path with Open CV.
func Load(path string) (Image, error) {
	m := gocv.IMRead(path, gocv.IMReadColor)
	if m.Empty() {
		return nil, fmt.Errorf("could not read image %s", path)
	}
	return FromMat(m)
}

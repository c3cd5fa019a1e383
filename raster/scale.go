/*
DESCRIPTION
  scale.go resamples images for multi-scale detection.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package raster

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"golang.org/x/image/draw"
)

// Scale returns img resampled by factor f with bilinear interpolation.
func Scale(img Image, f float64) (Image, error) {
	if f <= 0 || math.IsInf(f, 0) || math.IsNaN(f) {
		return nil, fmt.Errorf("invalid scale factor %v", f)
	}
	if f == 1 {
		return img, nil
	}
	w := int(math.Round(float64(img.Width()) * f))
	h := int(math.Round(float64(img.Height()) * f))
	if w < 1 || h < 1 {
		return nil, fmt.Errorf("scale factor %v leaves no pixels", f)
	}
	src := ToImage(img)
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return FromImage(dst), nil
}

// ToImage returns an image.Image view of img.
func ToImage(img Image) image.Image {
	if g, ok := img.(*genericImage); ok && g.min == (image.Point{}) {
		return g.im
	}
	return imageView{img}
}

type imageView struct{ Image }

func (v imageView) ColorModel() color.Model { return color.NRGBAModel }

func (v imageView) Bounds() image.Rectangle { return image.Rect(0, 0, v.Width(), v.Height()) }

func (v imageView) At(x, y int) color.Color {
	r, g, b := v.RGB(x, y)
	return color.NRGBA{r, g, b, 0xff}
}

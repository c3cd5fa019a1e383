/*
DESCRIPTION
  raster.go provides the pixel access interface used by the patch extractor
  and an adapter over image.Image values.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package raster provides read access to in-memory images for the patch
// feature pipeline.
package raster

import (
	"image"
	"image/color"
)

// Image is read-only access to an RGB raster. Coordinates are zero based with
// the origin at the top left pixel.
type Image interface {
	Width() int
	Height() int
	RGB(x, y int) (r, g, b uint8)
}

// Luminosity returns the Rec. 601 luminosity of an RGB triple in the range
// [0,255].
func Luminosity(r, g, b uint8) float64 {
	return 0.299*float64(r) + 0.587*float64(g) + 0.114*float64(b)
}

// FromImage wraps an image.Image so it satisfies Image. Pixel (0,0) of the
// returned Image is the min point of img's bounds.
func FromImage(img image.Image) Image {
	b := img.Bounds()
	switch im := img.(type) {
	case *image.RGBA:
		return &rgbaImage{im: im, min: b.Min, w: b.Dx(), h: b.Dy()}
	case *image.NRGBA:
		return &nrgbaImage{im: im, min: b.Min, w: b.Dx(), h: b.Dy()}
	case *image.Gray:
		return &grayImage{im: im, min: b.Min, w: b.Dx(), h: b.Dy()}
	}
	return &genericImage{im: img, min: b.Min, w: b.Dx(), h: b.Dy()}
}

type genericImage struct {
	im   image.Image
	min  image.Point
	w, h int
}

func (g *genericImage) Width() int  { return g.w }
func (g *genericImage) Height() int { return g.h }

func (g *genericImage) RGB(x, y int) (uint8, uint8, uint8) {
	c := color.NRGBAModel.Convert(g.im.At(g.min.X+x, g.min.Y+y)).(color.NRGBA)
	return c.R, c.G, c.B
}

type rgbaImage struct {
	im   *image.RGBA
	min  image.Point
	w, h int
}

func (i *rgbaImage) Width() int  { return i.w }
func (i *rgbaImage) Height() int { return i.h }

func (i *rgbaImage) RGB(x, y int) (uint8, uint8, uint8) {
	o := i.im.PixOffset(i.min.X+x, i.min.Y+y)
	p := i.im.Pix[o : o+3 : o+3]
	return p[0], p[1], p[2]
}

type nrgbaImage struct {
	im   *image.NRGBA
	min  image.Point
	w, h int
}

func (i *nrgbaImage) Width() int  { return i.w }
func (i *nrgbaImage) Height() int { return i.h }

func (i *nrgbaImage) RGB(x, y int) (uint8, uint8, uint8) {
	o := i.im.PixOffset(i.min.X+x, i.min.Y+y)
	p := i.im.Pix[o : o+3 : o+3]
	return p[0], p[1], p[2]
}

type grayImage struct {
	im   *image.Gray
	min  image.Point
	w, h int
}

func (i *grayImage) Width() int  { return i.w }
func (i *grayImage) Height() int { return i.h }

func (i *grayImage) RGB(x, y int) (uint8, uint8, uint8) {
	v := i.im.Pix[i.im.PixOffset(i.min.X+x, i.min.Y+y)]
	return v, v, v
}

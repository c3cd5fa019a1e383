/*
DESCRIPTION
  patch.go provides extraction of raw square patch descriptors from a raster
  and their contrast normalisation.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package patch implements the descriptor preprocessing stages of the patch
// feature pipeline: extraction, contrast normalisation and whitening.
//
// See "Learning feature representations with K-means", Coates and Ng, 2012.
package patch

import (
	"fmt"
	"math"

	"github.com/ausocean/textdetect/raster"
)

// Mode selects how pixels are turned into descriptor components.
type Mode int

// Patch modes.
const (
	Grey Mode = iota // One normalised luminosity per pixel.
	RGB              // Normalised R, G and B per pixel.
)

func (m Mode) String() string {
	switch m {
	case Grey:
		return "grey"
	case RGB:
		return "rgb"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// Channels returns the number of descriptor components per pixel.
func (m Mode) Channels() int {
	if m == RGB {
		return 3
	}
	return 1
}

// NormEpsilon is the contrast normalisation regulariser for intensities in
// [0,1]. It is equivalent to 10 for intensities in [0,255].
const NormEpsilon = 10.0 / (255.0 * 255.0)

// Extractor reads square patches of Side x Side pixels into D dimensional
// descriptors.
type Extractor struct {
	Mode Mode
	D    int
	Side int
}

// NewExtractor returns an Extractor for descriptors of dimension d. d must be
// a square number of pixels times the mode's channel count.
func NewExtractor(mode Mode, d int) (*Extractor, error) {
	c := mode.Channels()
	if d <= 0 || d%c != 0 {
		return nil, fmt.Errorf("descriptor dimension %d not valid for %v patches", d, mode)
	}
	s := int(math.Ceil(math.Sqrt(float64(d / c))))
	if s*s*c != d {
		return nil, fmt.Errorf("descriptor dimension %d is not a square %v patch", d, mode)
	}
	return &Extractor{Mode: mode, D: d, Side: s}, nil
}

// Extract writes the patch with top left pixel (px, py) into dst in row major
// pixel order. The patch must lie inside img.
func (e *Extractor) Extract(dst []float32, img raster.Image, px, py int) {
	if len(dst) != e.D {
		panic(fmt.Sprintf("patch buffer has length %d, want %d", len(dst), e.D))
	}
	i := 0
	for y := py; y < py+e.Side; y++ {
		for x := px; x < px+e.Side; x++ {
			r, g, b := img.RGB(x, y)
			if e.Mode == RGB {
				dst[i] = float32(r) / 255
				dst[i+1] = float32(g) / 255
				dst[i+2] = float32(b) / 255
				i += 3
				continue
			}
			dst[i] = float32(raster.Luminosity(r, g, b) / 255)
			i++
		}
	}
}

// ContrastNormalize removes the mean of x and divides by its regularised
// standard deviation, in place.
func ContrastNormalize(x []float32) {
	if len(x) == 0 {
		return
	}
	var mean, meanSqr float64
	for _, v := range x {
		mean += float64(v)
		meanSqr += float64(v) * float64(v)
	}
	n := float64(len(x))
	mean /= n
	meanSqr /= n

	variance := meanSqr - mean*mean
	if variance < 0 {
		variance = 0
	}
	denom := math.Sqrt(variance + NormEpsilon)
	for i, v := range x {
		x[i] = float32((float64(v) - mean) / denom)
	}
}

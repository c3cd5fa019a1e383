/*
DESCRIPTION
  tiles.go renders dictionary atoms as a mosaic of image tiles.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package vis provides diagnostic renderings of learnt dictionaries.
package vis

import (
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/ausocean/textdetect/dictionary"
	"github.com/ausocean/textdetect/patch"
)

// Tiles renders each atom of dict as a side x side tile, laid out in rows
// of cols tiles separated by a one pixel black border. Each tile is
// rescaled so that its smallest value is black and its largest white.
func Tiles(dict *dictionary.Dictionary, mode patch.Mode, cols int) (*image.NRGBA, error) {
	ext, err := patch.NewExtractor(mode, dict.D)
	if err != nil {
		return nil, err
	}
	if cols <= 0 {
		cols = int(math.Ceil(math.Sqrt(float64(dict.K))))
	}
	rows := (dict.K + cols - 1) / cols
	side := ext.Side
	pitch := side + 1

	img := image.NewNRGBA(image.Rect(0, 0, cols*pitch+1, rows*pitch+1))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}

	atom := make([]float32, dict.D)
	ch := mode.Channels()
	for k := 0; k < dict.K; k++ {
		dict.Column(atom, k)
		lo, hi := minMax(atom)
		scale := float32(0)
		if hi > lo {
			scale = 255 / (hi - lo)
		}
		x0 := 1 + (k%cols)*pitch
		y0 := 1 + (k/cols)*pitch
		for y := 0; y < side; y++ {
			for x := 0; x < side; x++ {
				v := atom[(y*side+x)*ch : (y*side+x+1)*ch]
				c := color.NRGBA{A: 0xff}
				c.R = toByte((v[0] - lo) * scale)
				if ch == 3 {
					c.G = toByte((v[1] - lo) * scale)
					c.B = toByte((v[2] - lo) * scale)
				} else {
					c.G, c.B = c.R, c.R
				}
				img.SetNRGBA(x0+x, y0+y, c)
			}
		}
	}
	return img, nil
}

// SaveTiles writes the tile mosaic of dict to a PNG file at path.
func SaveTiles(path string, dict *dictionary.Dictionary, mode patch.Mode, cols int) error {
	img, err := Tiles(dict, mode, cols)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create tile file: %w", err)
	}
	err = png.Encode(f, img)
	if err != nil {
		f.Close()
		return fmt.Errorf("could not encode tiles: %w", err)
	}
	return f.Close()
}

// IterPlaceholder marks where an iteration label goes in a tile path.
const IterPlaceholder = "%d"

// TilePath returns pattern with its first IterPlaceholder replaced by label.
// A pattern without a placeholder is returned unchanged.
func TilePath(pattern, label string) string {
	return strings.Replace(pattern, IterPlaceholder, label, 1)
}

// IterTilePath returns the tile path for iteration i of pattern, and false if
// pattern has no IterPlaceholder.
func IterTilePath(pattern string, i int) (string, bool) {
	if !strings.Contains(pattern, IterPlaceholder) {
		return "", false
	}
	return TilePath(pattern, strconv.Itoa(i)), true
}

func minMax(v []float32) (lo, hi float32) {
	lo, hi = v[0], v[0]
	for _, f := range v[1:] {
		if f < lo {
			lo = f
		}
		if f > hi {
			hi = f
		}
	}
	return lo, hi
}

func toByte(f float32) uint8 {
	switch {
	case f <= 0:
		return 0
	case f >= 255:
		return 255
	}
	return uint8(f + 0.5)
}

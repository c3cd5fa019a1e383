/*
DESCRIPTION
  linear.go provides a logistic linear classifier over window descriptors.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detector

import (
	"fmt"
	"math"

	"github.com/ausocean/textdetect/patch"
	"github.com/ausocean/textdetect/raster"
)

// Linear is a logistic classifier whose weights are laid out like the window
// descriptor.
type Linear struct {
	Weights []float32
	Bias    float64
}

// LoadLinear reads classifier weights for k atoms from the text file at path,
// one number per line. The file holds 9k weights optionally followed by the
// bias.
func LoadLinear(path string, k int) (*Linear, error) {
	v, err := patch.ReadValuesFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read classifier weights: %w", err)
	}
	n := Buckets * k
	switch len(v) {
	case n:
		return &Linear{Weights: v}, nil
	case n + 1:
		return &Linear{Weights: v[:n], Bias: float64(v[n])}, nil
	default:
		return nil, fmt.Errorf("got %d classifier weights, want %d or %d", len(v), n, n+1)
	}
}

// Prob returns the probability that the window with top left corner (px, py)
// holds the target class. false is returned if the window cannot be
// evaluated.
func (l *Linear) Prob(d *Detector, img raster.Image, px, py int) (float64, bool) {
	s, ok := d.Score(img, px, py, l.Weights)
	if !ok {
		return 0, false
	}
	return Sigmoid(s + l.Bias), true
}

// Sigmoid returns the logistic function of x.
func Sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

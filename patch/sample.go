/*
DESCRIPTION
  sample.go draws contrast normalized patch descriptors from random image
  positions for whitening estimation and dictionary training.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package patch

import (
	"math/rand"

	"github.com/ausocean/textdetect/raster"
)

// Sample appends n contrast normalized descriptors of patches at uniformly
// random positions inside img to dst and returns the extended slice. dst is
// unchanged if img is smaller than a patch.
func (e *Extractor) Sample(dst [][]float32, img raster.Image, n int, rng *rand.Rand) [][]float32 {
	mx := img.Width() - e.Side
	my := img.Height() - e.Side
	if mx < 0 || my < 0 {
		return dst
	}
	for i := 0; i < n; i++ {
		x := make([]float32, e.D)
		e.Extract(x, img, rng.Intn(mx+1), rng.Intn(my+1))
		ContrastNormalize(x)
		dst = append(dst, x)
	}
	return dst
}

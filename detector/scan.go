/*
DESCRIPTION
  scan.go slides a detection window over an image, scoring windows in
  parallel.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package detector

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"sync"

	"github.com/ausocean/textdetect/raster"
)

// ScanOptions configures Scan.
type ScanOptions struct {
	Classifier *Linear
	Stride     int     // Pixels between window origins.
	Threshold  float64 // Minimum probability reported.
	Workers    int     // Goroutines used, NumCPU if zero.
}

// Detection is a window whose probability reached the scan threshold.
type Detection struct {
	X, Y int
	Prob float64
}

// Scan evaluates every window of det's size with origin on a grid of
// o.Stride pixels inside img and returns those with probability at least
// o.Threshold, ordered by Y then X. Rows are shared between goroutines, each
// with its own clone of det. Scan returns ctx.Err() if ctx is cancelled.
func Scan(ctx context.Context, img raster.Image, det *Detector, o ScanOptions) ([]Detection, error) {
	if o.Classifier == nil {
		return nil, fmt.Errorf("no classifier")
	}
	if o.Stride <= 0 {
		return nil, fmt.Errorf("invalid stride %d", o.Stride)
	}
	if len(o.Classifier.Weights) != Buckets*det.Model().K() {
		return nil, fmt.Errorf("classifier has %d weights, model needs %d", len(o.Classifier.Weights), Buckets*det.Model().K())
	}
	workers := o.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	ww, wh := det.Window()
	var rows []int
	for y := 0; y+wh <= img.Height(); y += o.Stride {
		rows = append(rows, y)
	}
	if workers > len(rows) {
		workers = len(rows)
	}

	found := make([][]Detection, workers)
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			d := det.Clone()
			for r := w; r < len(rows); r += workers {
				if ctx.Err() != nil {
					return
				}
				y := rows[r]
				for x := 0; x+ww <= img.Width(); x += o.Stride {
					p, ok := o.Classifier.Prob(d, img, x, y)
					if ok && p >= o.Threshold {
						found[w] = append(found[w], Detection{X: x, Y: y, Prob: p})
					}
				}
			}
		}(w)
	}
	wg.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var all []Detection
	for _, f := range found {
		all = append(all, f...)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].Y != all[j].Y {
			return all[i].Y < all[j].Y
		}
		return all[i].X < all[j].X
	})
	return all, nil
}

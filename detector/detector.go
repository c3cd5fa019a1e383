/*
DESCRIPTION
  detector.go provides Detector, which builds pooled 9K window descriptors
  from the patch encodings of a detection window.

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
	"io"
	"math"

	"github.com/ausocean/utils/logging"

	"github.com/ausocean/textdetect/patch"
	"github.com/ausocean/textdetect/raster"
)

// Default detection window size in pixels.
const (
	DefaultWindowWidth  = 32
	DefaultWindowHeight = 32
)

// Buckets is the number of pooling sectors in a window.
const Buckets = Sectors * Sectors

// Detector evaluates detection windows against a Model. A Detector owns
// mutable scratch buffers and must not be used by more than one goroutine;
// use Clone to obtain a detector for another goroutine.
type Detector struct {
	model *Model
	ext   *patch.Extractor
	log   logging.Logger

	windowW, windowH int

	desc []float32 // Patch descriptor, length D.
	enc  []float32 // Patch encoding, length K.
	avg  []float32 // Sector accumulators, bucket b at b*K.
}

// New returns a Detector for the finalized model m with the default window
// size. If log is nil, logging is discarded.
func New(m *Model, log logging.Logger) (*Detector, error) {
	if log == nil {
		log = logging.New(logging.Error, io.Discard, true)
	}
	d := &Detector{log: log, windowW: DefaultWindowWidth, windowH: DefaultWindowHeight}
	err := d.SetModel(m)
	if err != nil {
		return nil, err
	}
	return d, nil
}

// SetModel replaces the detector's model. m must be finalized; its
// dimensions may differ from the current model's.
func (d *Detector) SetModel(m *Model) error {
	if m == nil || !m.Finalized() {
		return fmt.Errorf("model is not finalized")
	}
	ext, err := patch.NewExtractor(m.Mode(), m.D())
	if err != nil {
		return err
	}
	d.model = m
	d.ext = ext
	d.desc = make([]float32, m.D())
	d.enc = make([]float32, m.K())
	d.avg = make([]float32, Buckets*m.K())
	d.log.Debug("detector model set", "D", m.D(), "K", m.K(), "mode", m.Mode().String())
	return nil
}

// Model returns the detector's current model.
func (d *Detector) Model() *Model { return d.model }

// SetWindow sets the detection window size.
func (d *Detector) SetWindow(w, h int) {
	d.windowW, d.windowH = w, h
}

// Window returns the detection window size.
func (d *Detector) Window() (w, h int) { return d.windowW, d.windowH }

// Clone returns a Detector sharing d's model with its own scratch buffers.
func (d *Detector) Clone() *Detector {
	c := &Detector{log: d.log, windowW: d.windowW, windowH: d.windowH}
	err := c.SetModel(d.model)
	if err != nil {
		panic(fmt.Sprintf("detector: could not clone: %v", err))
	}
	return c
}

// EncodePatch extracts, contrast normalizes and encodes the patch with top
// left corner (px, py), returning the detector's encoding buffer.
func (d *Detector) EncodePatch(img raster.Image, px, py int) []float32 {
	d.ext.Extract(d.desc, img, px, py)
	patch.ContrastNormalize(d.desc)
	d.model.Encode(d.enc, d.desc)
	return d.enc
}

// pool calls f with the sector bucket, encoding and weight of every patch in
// the window with top left corner (px, py). It returns false if the window is
// too small to partition or does not lie inside img.
func (d *Detector) pool(img raster.Image, px, py int, f func(bucket int, enc []float32, weight float32)) bool {
	if px < 0 || py < 0 || px+d.windowW > img.Width() || py+d.windowH > img.Height() {
		return false
	}
	hs := SectorSpans(d.windowH, d.ext.Side)
	if hs == nil {
		return false
	}
	ws := SectorSpans(d.windowW, d.ext.Side)
	if ws == nil {
		return false
	}

	// Every patch is weighted by the total number of positions, not the
	// number in its sector.
	weight := float32(1 / float64(len(ws)*len(hs)))
	for _, h := range hs {
		for _, w := range ws {
			enc := d.EncodePatch(img, px+w.Start, py+h.Start)
			f(Sectors*h.Sector+w.Sector, enc, weight)
		}
	}
	return true
}

// AverageWindowFeatures pools the patch encodings of the window with top left
// corner (px, py) into the sector accumulators. It returns false, leaving the
// accumulators cleared, if the window is too small to partition or does not
// lie inside img.
func (d *Detector) AverageWindowFeatures(img raster.Image, px, py int) bool {
	for i := range d.avg {
		d.avg[i] = 0
	}
	k := d.model.K()
	return d.pool(img, px, py, func(b int, enc []float32, weight float32) {
		acc := d.avg[b*k : (b+1)*k]
		for i, v := range enc {
			acc[i] += v * weight
		}
	})
}

// NineKDescriptor returns the window descriptor built by the last successful
// call to AverageWindowFeatures: the nine sector accumulators in bucket
// order, bucket 3*row+col for height sector row and width sector col. The
// returned slice is owned by d and is overwritten by the next evaluation.
func (d *Detector) NineKDescriptor() []float32 {
	for i, v := range d.avg {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			d.log.Error("non-finite window feature", "index", i, "value", v)
			break
		}
	}
	return d.avg
}

// Score returns the dot product of weights, laid out like NineKDescriptor,
// with the descriptor of the window with top left corner (px, py). The
// accumulators are not modified. false is returned if the window cannot be
// evaluated.
func (d *Detector) Score(img raster.Image, px, py int, weights []float32) (float64, bool) {
	k := d.model.K()
	if len(weights) != Buckets*k {
		panic(fmt.Sprintf("detector: got %d weights, want %d", len(weights), Buckets*k))
	}
	var dot float64
	ok := d.pool(img, px, py, func(b int, enc []float32, weight float32) {
		w := weights[b*k : (b+1)*k]
		for i, v := range enc {
			dot += float64(w[i] * (v * weight))
		}
	})
	return dot, ok
}

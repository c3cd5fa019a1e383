/*
DESCRIPTION
  model.go provides Model, which pairs a learnt dictionary with the whitening
  statistics it was trained under, and the soft threshold patch encoder.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package detector encodes image patches against a learnt dictionary and
// pools the encodings over a 3x3 grid of window sectors to describe
// detection windows.
package detector

import (
	"fmt"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"

	"github.com/ausocean/textdetect/dictionary"
	"github.com/ausocean/textdetect/patch"
)

// Alpha is the encoder activation threshold.
const Alpha = 0.5

// Model holds a dictionary, the whitening statistics it was trained under and
// their precomposed product. A finalized Model is immutable and may be shared
// between goroutines. A Model for a different dictionary is made with
// NewModel and Finalize.
type Model struct {
	dict     *dictionary.Dictionary
	whitener *patch.Whitener
	mode     patch.Mode

	// pre is the K x D product of the transposed dictionary and the inverse
	// square root covariance of preDict and preWhitener. It is nil until
	// Finalize is called.
	pre         []float32
	preDict     *dictionary.Dictionary
	preWhitener *patch.Whitener
}

// NewModel returns an unfinalized Model after checking that dict, w and mode
// agree on the descriptor dimension.
func NewModel(dict *dictionary.Dictionary, w *patch.Whitener, mode patch.Mode) (*Model, error) {
	switch {
	case dict == nil:
		return nil, fmt.Errorf("nil dictionary")
	case w == nil:
		return nil, fmt.Errorf("nil whitener")
	case dict.D != w.D:
		return nil, fmt.Errorf("dictionary dimension %d does not match whitening dimension %d", dict.D, w.D)
	}
	_, err := patch.NewExtractor(mode, dict.D)
	if err != nil {
		return nil, fmt.Errorf("dictionary does not suit %v patches: %w", mode, err)
	}
	return &Model{dict: dict, whitener: w, mode: mode}, nil
}

// Finalize computes the precomposed encoding matrix.
func (m *Model) Finalize() {
	d, k := m.dict.D, m.dict.K
	pre := make([]float32, k*d)
	blas32.Gemm(
		blas.Trans, blas.NoTrans, 1,
		blas32.General{Rows: d, Cols: k, Stride: k, Data: m.dict.Data},
		m.whitener.General(),
		0,
		blas32.General{Rows: k, Cols: d, Stride: d, Data: pre},
	)
	m.pre, m.preDict, m.preWhitener = pre, m.dict, m.whitener
}

// Finalized returns true if the precomposed matrix has been computed from the
// model's current dictionary and whitener.
func (m *Model) Finalized() bool {
	return m.pre != nil && m.preDict == m.dict && m.preWhitener == m.whitener
}

// Dict returns the model's dictionary. It must not be modified.
func (m *Model) Dict() *dictionary.Dictionary { return m.dict }

// Whitener returns the model's whitening statistics. They must not be
// modified.
func (m *Model) Whitener() *patch.Whitener { return m.whitener }

// Mode returns the patch mode the dictionary was learnt for.
func (m *Model) Mode() patch.Mode { return m.mode }

// D returns the descriptor dimension.
func (m *Model) D() int { return m.dict.D }

// K returns the number of dictionary atoms.
func (m *Model) K() int { return m.dict.K }

// Encode writes the K dimensional encoding of the contrast normalized
// descriptor x to dst. Each component is max(0, |c|-Alpha) where c is the
// projection of the whitened descriptor onto an atom.
func (m *Model) Encode(dst, x []float32) {
	if !m.Finalized() {
		panic("detector: encode with unfinalized or stale model")
	}
	d, k := m.dict.D, m.dict.K
	if len(x) != d || len(dst) != k {
		panic(fmt.Sprintf("detector: encode shape mismatch: got %d -> %d, want %d -> %d", len(x), len(dst), d, k))
	}
	blas32.Gemv(
		blas.NoTrans, 1,
		blas32.General{Rows: k, Cols: d, Stride: d, Data: m.pre},
		blas32.Vector{N: d, Data: x, Inc: 1},
		0,
		blas32.Vector{N: k, Data: dst, Inc: 1},
	)
	for i, c := range dst {
		if c < 0 {
			c = -c
		}
		c -= Alpha
		if c < 0 {
			c = 0
		}
		dst[i] = c
	}
}

// LoadModel loads a dictionary file and whitening statistics and returns the
// finalized Model. meanPath may be empty for a zero mean.
func LoadModel(dictPath, covarPath, meanPath string, mode patch.Mode) (*Model, error) {
	dict, err := dictionary.LoadFile(dictPath)
	if err != nil {
		return nil, fmt.Errorf("could not load dictionary: %w", err)
	}
	w, err := patch.LoadWhitener(covarPath, meanPath, dict.D)
	if err != nil {
		return nil, fmt.Errorf("could not load whitening statistics: %w", err)
	}
	m, err := NewModel(dict, w, mode)
	if err != nil {
		return nil, err
	}
	m.Finalize()
	return m, nil
}

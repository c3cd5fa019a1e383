/*
DESCRIPTION
  whiten.go provides the whitening transform applied to contrast normalised
  patch descriptors, and estimation of its statistics from samples.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package patch

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/blas"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Whitener holds the inverse square root covariance matrix and mean of the
// whitening statistics. A Whitener is immutable once created and may be
// shared between goroutines.
type Whitener struct {
	D int

	// InvSqrtCovar is D x D, row major.
	InvSqrtCovar []float32
	Mean         []float32

	// wMean is InvSqrtCovar * Mean.
	wMean []float32
}

// NewWhitener returns a Whitener for the d x d row major matrix invSqrtCovar.
// A nil mean is treated as the zero vector.
func NewWhitener(invSqrtCovar, mean []float32, d int) (*Whitener, error) {
	if d <= 0 {
		return nil, fmt.Errorf("invalid whitening dimension %d", d)
	}
	if len(invSqrtCovar) != d*d {
		return nil, fmt.Errorf("inverse sqrt covariance has %d elements, want %d", len(invSqrtCovar), d*d)
	}
	if mean == nil {
		mean = make([]float32, d)
	}
	if len(mean) != d {
		return nil, fmt.Errorf("mean has %d elements, want %d", len(mean), d)
	}

	w := &Whitener{
		D:            d,
		InvSqrtCovar: append([]float32(nil), invSqrtCovar...),
		Mean:         append([]float32(nil), mean...),
		wMean:        make([]float32, d),
	}
	blas32.Gemv(blas.NoTrans, 1, w.General(), vec(w.Mean), 0, vec(w.wMean))
	return w, nil
}

// Identity returns a Whitener that leaves descriptors unchanged.
func Identity(d int) *Whitener {
	m := make([]float32, d*d)
	for i := 0; i < d; i++ {
		m[i*d+i] = 1
	}
	w, err := NewWhitener(m, nil, d)
	if err != nil {
		panic(err)
	}
	return w
}

// General returns InvSqrtCovar as a blas32 matrix sharing its storage.
func (w *Whitener) General() blas32.General {
	return blas32.General{Rows: w.D, Cols: w.D, Stride: w.D, Data: w.InvSqrtCovar}
}

// Whiten computes dst = InvSqrtCovar * (x - Mean). dst and x must have length
// D and must not overlap.
func (w *Whitener) Whiten(dst, x []float32) {
	if w == nil {
		panic("whitening statistics not loaded")
	}
	if len(dst) != w.D || len(x) != w.D {
		panic(fmt.Sprintf("whiten: got lengths %d and %d, want %d", len(dst), len(x), w.D))
	}
	blas32.Gemv(blas.NoTrans, 1, w.General(), vec(x), 0, vec(dst))
	for i, v := range w.wMean {
		dst[i] -= v
	}
}

// EstimateWhitening computes ZCA whitening statistics from the rows of
// samples, which should be contrast normalised descriptors. eps regularises
// the eigenvalues of the covariance before the inverse square root is taken.
func EstimateWhitening(samples *mat.Dense, eps float64) (*Whitener, error) {
	n, d := samples.Dims()
	if n < 2 {
		return nil, fmt.Errorf("need at least 2 samples to estimate covariance, got %d", n)
	}
	if eps < 0 {
		return nil, fmt.Errorf("negative eigenvalue regulariser %v", eps)
	}

	mean := make([]float32, d)
	col := make([]float64, n)
	for j := 0; j < d; j++ {
		mat.Col(col, j, samples)
		mean[j] = float32(stat.Mean(col, nil))
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, samples, nil)

	var eig mat.EigenSym
	if !eig.Factorize(&cov, true) {
		return nil, errors.New("eigen decomposition of covariance failed")
	}
	vals := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)

	scale := make([]float64, d)
	for i, l := range vals {
		if l < 0 {
			l = 0
		}
		if l+eps == 0 {
			return nil, errors.New("singular covariance, use a positive regulariser")
		}
		scale[i] = 1 / math.Sqrt(l+eps)
	}

	var vs mat.Dense
	vs.Apply(func(_, j int, v float64) float64 { return v * scale[j] }, &vecs)
	var w mat.Dense
	w.Mul(&vs, vecs.T())

	m := make([]float32, d*d)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			m[i*d+j] = float32(w.At(i, j))
		}
	}
	return NewWhitener(m, mean, d)
}

func vec(x []float32) blas32.Vector {
	return blas32.Vector{N: len(x), Data: x, Inc: 1}
}

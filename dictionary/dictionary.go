/*
DESCRIPTION
  dictionary.go provides the Dictionary type, a D x K codebook of unit norm
  patch descriptor atoms.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package dictionary provides learning, storage and retrieval of visual
// dictionaries (codebooks) of whitened patch descriptors.
package dictionary

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Dictionary is a D x K matrix whose K columns are unit norm dictionary atoms.
// Data is row major, so element (d, k) is Data[d*K+k].
type Dictionary struct {
	D, K int
	Data []float32
}

// New returns a zeroed d x k Dictionary.
func New(d, k int) *Dictionary {
	if d <= 0 || k <= 0 {
		panic(fmt.Sprintf("invalid dictionary shape %dx%d", d, k))
	}
	return &Dictionary{D: d, K: k, Data: make([]float32, d*k)}
}

// At returns element (d, k).
func (dict *Dictionary) At(d, k int) float32 { return dict.Data[d*dict.K+k] }

// Set sets element (d, k).
func (dict *Dictionary) Set(d, k int, v float32) { dict.Data[d*dict.K+k] = v }

// Column copies column k into dst, allocating if dst is nil, and returns it.
func (dict *Dictionary) Column(dst []float32, k int) []float32 {
	if dst == nil {
		dst = make([]float32, dict.D)
	}
	if len(dst) != dict.D {
		panic("dictionary: column length mismatch")
	}
	for d := range dst {
		dst[d] = dict.Data[d*dict.K+k]
	}
	return dst
}

// SetColumn sets column k from src.
func (dict *Dictionary) SetColumn(k int, src []float32) {
	if len(src) != dict.D {
		panic("dictionary: column length mismatch")
	}
	for d, v := range src {
		dict.Data[d*dict.K+k] = v
	}
}

// Clone returns a deep copy of dict.
func (dict *Dictionary) Clone() *Dictionary {
	return &Dictionary{D: dict.D, K: dict.K, Data: append([]float32(nil), dict.Data...)}
}

// CheckUnitNorm returns an error if any column's L2 norm differs from one by
// more than tol.
func (dict *Dictionary) CheckUnitNorm(tol float64) error {
	for k := 0; k < dict.K; k++ {
		var ss float64
		for d := 0; d < dict.D; d++ {
			v := float64(dict.At(d, k))
			ss += v * v
		}
		n := math.Sqrt(ss)
		if math.Abs(n-1) > tol || math.IsNaN(n) {
			return fmt.Errorf("column %d has norm %v", k, n)
		}
	}
	return nil
}

// Select returns a new Dictionary holding the columns of dict given by
// order, in that order.
func (dict *Dictionary) Select(order []int) *Dictionary {
	dst := New(dict.D, len(order))
	for i, k := range order {
		for d := 0; d < dict.D; d++ {
			dst.Set(d, i, dict.At(d, k))
		}
	}
	return dst
}

// Dense returns dict as a gonum matrix.
func (dict *Dictionary) Dense() *mat.Dense {
	data := make([]float64, len(dict.Data))
	for i, v := range dict.Data {
		data[i] = float64(v)
	}
	return mat.NewDense(dict.D, dict.K, data)
}

// FromDense returns a Dictionary holding the values of m.
func FromDense(m mat.Matrix) *Dictionary {
	r, c := m.Dims()
	dict := New(r, c)
	for d := 0; d < r; d++ {
		for k := 0; k < c; k++ {
			dict.Set(d, k, float32(m.At(d, k)))
		}
	}
	return dict
}

// atoms returns dict as a K x D gonum matrix with one atom per row.
func (dict *Dictionary) atoms() *mat.Dense {
	m := mat.NewDense(dict.K, dict.D, nil)
	for d := 0; d < dict.D; d++ {
		for k := 0; k < dict.K; k++ {
			m.Set(k, d, float64(dict.At(d, k)))
		}
	}
	return m
}

// fromAtoms returns the Dictionary whose columns are the rows of m.
func fromAtoms(m *mat.Dense) *Dictionary {
	return FromDense(m.T())
}

// normalizeRows scales each row of m to unit L2 norm. A row that is exactly
// zero is reseeded with a random standard normal unit vector drawn from rng.
// The number of reseeded rows is returned.
func normalizeRows(m *mat.Dense, rng *rand.Rand) int {
	r, _ := m.Dims()
	var reseeded int
	for k := 0; k < r; k++ {
		row := m.RawRowView(k)
		n := floats.Norm(row, 2)
		if n == 0 {
			reseeded++
		}
		for n == 0 {
			randomNormal(row, rng)
			n = floats.Norm(row, 2)
		}
		floats.Scale(1/n, row)
	}
	return reseeded
}

// randomNormal fills x with standard normal samples.
func randomNormal(x []float64, rng *rand.Rand) {
	for i := range x {
		x[i] = rng.NormFloat64()
	}
}

// Normalize scales every column of dict to unit norm, reseeding zero columns
// from rng, and returns the number of reseeded columns.
func (dict *Dictionary) Normalize(rng *rand.Rand) int {
	m := dict.atoms()
	n := normalizeRows(m, rng)
	*dict = *fromAtoms(m)
	return n
}

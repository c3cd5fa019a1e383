/*
DESCRIPTION
  whiten_test.go tests the whitening transform, its statistics file format and
  estimation of statistics from samples.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package patch

import (
	"bytes"
	"math"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

func randomWhitener(t *testing.T, rng *rand.Rand, d int) *Whitener {
	m := make([]float32, d*d)
	for i := range m {
		m[i] = rng.Float32() - 0.5
	}
	mean := make([]float32, d)
	for i := range mean {
		mean[i] = rng.Float32()
	}
	w, err := NewWhitener(m, mean, d)
	if err != nil {
		t.Fatalf("could not create whitener: %v", err)
	}
	return w
}

func TestWhiten(t *testing.T) {
	w, err := NewWhitener([]float32{1, 2, 0, 3}, []float32{1, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	got := make([]float32, 2)
	w.Whiten(got, []float32{2, 4})
	want := []float32{1*1 + 2*3, 3 * 3}
	if !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestWhitenIdentity(t *testing.T) {
	w := Identity(4)
	x := []float32{1, -2, 3, -4}
	got := make([]float32, 4)
	w.Whiten(got, x)
	if !cmp.Equal(got, x) {
		t.Errorf("got %v, want %v", got, x)
	}
}

// whiten(a*p) = a*whiten(p) + (a-1)*W*Mean.
func TestWhitenLinearity(t *testing.T) {
	const d = 16
	rng := rand.New(rand.NewSource(2))
	w := randomWhitener(t, rng, d)

	p := make([]float32, d)
	for i := range p {
		p[i] = rng.Float32()*2 - 1
	}
	const a = 2.5
	ap := make([]float32, d)
	for i, v := range p {
		ap[i] = a * v
	}

	wp := make([]float32, d)
	wap := make([]float32, d)
	w.Whiten(wp, p)
	w.Whiten(wap, ap)

	zero := make([]float32, d)
	wz := make([]float32, d) // -W*Mean
	w.Whiten(wz, zero)

	for i := range wap {
		want := a*wp[i] - (a-1)*wz[i]
		if math.Abs(float64(wap[i]-want)) > 1e-4 {
			t.Errorf("component %d: got %v, want %v", i, wap[i], want)
		}
	}
}

func TestWhitenNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for nil whitener")
		}
	}()
	var w *Whitener
	w.Whiten(make([]float32, 4), make([]float32, 4))
}

func TestNewWhitenerErrors(t *testing.T) {
	_, err := NewWhitener(make([]float32, 8), nil, 3)
	if err == nil {
		t.Error("expected error for wrong covariance size")
	}
	_, err = NewWhitener(make([]float32, 9), make([]float32, 2), 3)
	if err == nil {
		t.Error("expected error for wrong mean size")
	}
}

func TestReadVector(t *testing.T) {
	tests := []struct {
		in      string
		n       int
		want    []float32
		wantErr bool
	}{
		{in: "1\n2.5\n-3e-2\n", n: 3, want: []float32{1, 2.5, -3e-2}},
		{in: "1\n\n 2 \n", n: 2, want: []float32{1, 2}},
		{in: "1\n2\n", n: 3, wantErr: true},
		{in: "1\n2\n3\n", n: 2, wantErr: true},
		{in: "1\nx\n", n: 2, wantErr: true},
	}

	for i, test := range tests {
		got, err := ReadVector(strings.NewReader(test.in), test.n)
		if test.wantErr {
			if err == nil {
				t.Errorf("did not get expected error for test %d", i)
			}
			continue
		}
		if err != nil {
			t.Errorf("unexpected error for test %d: %v", i, err)
			continue
		}
		if !cmp.Equal(got, test.want) {
			t.Errorf("test %d: got %v, want %v", i, got, test.want)
		}
	}
}

func TestWhitenerSaveLoad(t *testing.T) {
	const d = 8
	w := randomWhitener(t, rand.New(rand.NewSource(3)), d)

	dir := t.TempDir()
	covar := filepath.Join(dir, "inverse_sqrt_covar_matrix.dat")
	mean := filepath.Join(dir, "mean_vector.dat")
	err := w.Save(covar, mean)
	if err != nil {
		t.Fatalf("could not save whitener: %v", err)
	}

	got, err := LoadWhitener(covar, mean, d)
	if err != nil {
		t.Fatalf("could not load whitener: %v", err)
	}
	if !cmp.Equal(got.InvSqrtCovar, w.InvSqrtCovar) || !cmp.Equal(got.Mean, w.Mean) {
		t.Error("loaded whitener does not match saved whitener")
	}

	var buf bytes.Buffer
	err = WriteVector(&buf, w.Mean)
	if err != nil {
		t.Fatal(err)
	}
	if n := strings.Count(buf.String(), "\n"); n != d {
		t.Errorf("got %d lines, want %d", n, d)
	}
}

// Whitened samples should have close to identity covariance.
func TestEstimateWhitening(t *testing.T) {
	const (
		n = 4000
		d = 4
	)
	rng := rand.New(rand.NewSource(4))
	mix := mat.NewDense(d, d, []float64{
		2, 0.5, 0, 0,
		0, 1, 0.3, 0,
		0, 0, 0.5, 0.2,
		0.1, 0, 0, 3,
	})
	raw := mat.NewDense(n, d, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < d; j++ {
			raw.Set(i, j, rng.NormFloat64())
		}
	}
	var samples mat.Dense
	samples.Mul(raw, mix)
	for i := 0; i < n; i++ {
		samples.Set(i, 0, samples.At(i, 0)+5)
	}

	w, err := EstimateWhitening(&samples, 0)
	if err != nil {
		t.Fatalf("could not estimate whitening: %v", err)
	}
	if math.Abs(float64(w.Mean[0])-5) > 0.5 {
		t.Errorf("unexpected mean: %v", w.Mean)
	}

	white := mat.NewDense(n, d, nil)
	x := make([]float32, d)
	y := make([]float32, d)
	for i := 0; i < n; i++ {
		for j := range x {
			x[j] = float32(samples.At(i, j))
		}
		w.Whiten(y, x)
		for j, v := range y {
			white.Set(i, j, float64(v))
		}
	}

	var cov mat.SymDense
	stat.CovarianceMatrix(&cov, white, nil)
	id := mat.NewDiagDense(d, []float64{1, 1, 1, 1})
	if !mat.EqualApprox(&cov, id, 1e-2) {
		t.Errorf("whitened covariance not identity:\n%v", mat.Formatted(&cov))
	}

	got := mat.NewDense(d, d, nil)
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			got.Set(i, j, float64(w.InvSqrtCovar[i*d+j]))
		}
	}
	if !cmp.Equal(mat.DenseCopyOf(got.T()).RawMatrix().Data, got.RawMatrix().Data, cmpopts.EquateApprox(0, 1e-4)) {
		t.Error("inverse sqrt covariance not symmetric")
	}
}

func TestEstimateWhiteningErrors(t *testing.T) {
	_, err := EstimateWhitening(mat.NewDense(1, 3, nil), 0.1)
	if err == nil {
		t.Error("expected error for single sample")
	}
	_, err = EstimateWhitening(mat.NewDense(3, 3, nil), -1)
	if err == nil {
		t.Error("expected error for negative regulariser")
	}
}

/*
DESCRIPTION
  detector_test.go tests patch encoding, sector partitioning and window
  pooling.

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
	"errors"
	"image"
	"image/color"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/ausocean/utils/logging"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/ausocean/textdetect/dictionary"
	"github.com/ausocean/textdetect/patch"
	"github.com/ausocean/textdetect/raster"
)

// randomModel returns a finalized model with a random unit norm dictionary
// and random whitening matrix.
func randomModel(t testing.TB, rng *rand.Rand, mode patch.Mode, d, k int) *Model {
	dict := dictionary.New(d, k)
	for i := range dict.Data {
		dict.Data[i] = float32(rng.NormFloat64())
	}
	dict.Normalize(rng)

	w := make([]float32, d*d)
	for i := range w {
		w[i] = float32(rng.NormFloat64() / 4)
	}
	wh, err := patch.NewWhitener(w, nil, d)
	if err != nil {
		t.Fatalf("could not create whitener: %v", err)
	}
	m, err := NewModel(dict, wh, mode)
	if err != nil {
		t.Fatalf("could not create model: %v", err)
	}
	m.Finalize()
	return m
}

func randomImage(rng *rand.Rand, w, h int) raster.Image {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	rng.Read(img.Pix)
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 0xff
	}
	return raster.FromImage(img)
}

func TestSectorSpans(t *testing.T) {
	s := func(sector, start int) Span { return Span{Sector: sector, Start: start, Stop: start + 7} }
	tests := []struct {
		w    int
		want []Span
	}{
		{w: 7, want: nil},
		{w: 8, want: []Span{s(0, 0), s(1, 0), s(2, 0)}},
		{w: 9, want: []Span{s(0, 0), s(1, 1), s(2, 1)}},
		{w: 10, want: []Span{s(0, 0), s(1, 1), s(2, 2)}},
		{w: 11, want: []Span{s(0, 0), s(1, 1), s(1, 2), s(2, 3)}},
		{w: 13, want: []Span{s(0, 0), s(0, 1), s(1, 2), s(1, 3), s(1, 4), s(2, 5)}},
	}
	for _, test := range tests {
		got := SectorSpans(test.w, 8)
		if !cmp.Equal(got, test.want) {
			t.Errorf("w=%d: got %v, want %v", test.w, got, test.want)
		}
	}

	got := SectorSpans(32, 8)
	count := [Sectors]int{}
	for _, sp := range got {
		count[sp.Sector]++
	}
	if len(got) != 25 || count != [Sectors]int{8, 9, 8} {
		t.Errorf("w=32: got %d spans with sector counts %v, want 25 with [8 9 8]", len(got), count)
	}
}

// Every sector is populated and every patch position used for all window
// sizes from the patch side upwards.
func TestSectorSpansTotal(t *testing.T) {
	for _, side := range []int{2, 8} {
		for w := side; w <= 64; w++ {
			spans := SectorSpans(w, side)
			var count [Sectors]int
			seen := map[int]bool{}
			for _, sp := range spans {
				if sp.Start < 0 || sp.Stop > w-1 || sp.Stop-sp.Start != side-1 {
					t.Errorf("side=%d w=%d: bad span %v", side, w, sp)
				}
				count[sp.Sector]++
				seen[sp.Start] = true
			}
			for s, c := range count {
				if c == 0 {
					t.Errorf("side=%d w=%d: sector %d empty", side, w, s)
				}
			}
			if len(seen) != w-side+1 {
				t.Errorf("side=%d w=%d: %d positions covered, want %d", side, w, len(seen), w-side+1)
			}
		}
	}
}

func TestEncode(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	const d, k = 12, 5
	m := randomModel(t, rng, patch.RGB, d, k)

	x := make([]float32, d)
	got := make([]float32, k)
	for n := 0; n < 50; n++ {
		for i := range x {
			x[i] = float32(rng.NormFloat64())
		}
		m.Encode(got, x)

		// Whiten then project, without the precomposed matrix.
		wx := make([]float64, d)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				wx[i] += float64(m.Whitener().InvSqrtCovar[i*d+j]) * float64(x[j])
			}
		}
		for a := 0; a < k; a++ {
			var c float64
			for i := 0; i < d; i++ {
				c += float64(m.Dict().At(i, a)) * wx[i]
			}
			want := math.Max(0, math.Abs(c)-Alpha)
			if got[a] < 0 {
				t.Fatalf("negative encoding %v", got[a])
			}
			if math.Abs(float64(got[a])-want) > 1e-4 {
				t.Fatalf("atom %d: got %v, want %v", a, got[a], want)
			}
		}
	}
}

func TestEncodeThreshold(t *testing.T) {
	// Columns e0 and (e1+e2)/sqrt(2), identity whitening.
	dict := dictionary.New(4, 2)
	dict.Set(0, 0, 1)
	dict.Set(1, 1, 1/math.Sqrt2)
	dict.Set(2, 1, 1/math.Sqrt2)
	m, err := NewModel(dict, patch.Identity(4), patch.Grey)
	if err != nil {
		t.Fatal(err)
	}
	m.Finalize()

	got := make([]float32, 2)
	m.Encode(got, []float32{-2, 1, 1, 1})
	want := []float32{1.5, float32(math.Sqrt2 - 0.5)}
	if !cmp.Equal(got, want, cmpopts.EquateApprox(0, 1e-6)) {
		t.Errorf("got %v, want %v", got, want)
	}

	m.Encode(got, []float32{0.25, 0.1, 0.1, 0})
	if !cmp.Equal(got, []float32{0, 0}) {
		t.Errorf("got %v, want zeros below threshold", got)
	}
}

func TestEncodeUnfinalized(t *testing.T) {
	m, err := NewModel(dictionary.New(4, 2), patch.Identity(4), patch.Grey)
	if err != nil {
		t.Fatal(err)
	}
	defer func() {
		if recover() == nil {
			t.Error("expected panic encoding with unfinalized model")
		}
	}()
	m.Encode(make([]float32, 2), make([]float32, 4))
}

// Replacing the dictionary or whitener of a finalized model invalidates the
// precomposed matrix until Finalize is called again.
func TestEncodeStale(t *testing.T) {
	rng := rand.New(rand.NewSource(9))
	m := randomModel(t, rng, patch.Grey, 64, 4)
	other := randomModel(t, rng, patch.Grey, 64, 4)
	x := make([]float32, 64)
	for i := range x {
		x[i] = float32(rng.NormFloat64())
	}
	want := make([]float32, 4)
	other.Encode(want, x)

	tests := []struct {
		name string
		swap func(m *Model)
	}{
		{name: "dictionary", swap: func(m *Model) { m.dict = other.dict }},
		{name: "whitener", swap: func(m *Model) { m.whitener = other.whitener }},
		{name: "both", swap: func(m *Model) { m.dict, m.whitener = other.dict, other.whitener }},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			stale := *m
			test.swap(&stale)
			if stale.Finalized() {
				t.Fatal("model reports finalized after replacement")
			}
			func() {
				defer func() {
					if recover() == nil {
						t.Error("expected panic encoding with stale model")
					}
				}()
				stale.Encode(make([]float32, 4), x)
			}()

			stale.Finalize()
			if test.name != "both" {
				return
			}
			got := make([]float32, 4)
			stale.Encode(got, x)
			if !cmp.Equal(got, want, cmpopts.EquateApprox(0, 1e-5)) {
				t.Errorf("got %v after refinalizing, want %v", got, want)
			}
		})
	}
}

func TestNewModelErrors(t *testing.T) {
	tests := []struct {
		dict *dictionary.Dictionary
		w    *patch.Whitener
		mode patch.Mode
	}{
		{dict: dictionary.New(64, 4), w: patch.Identity(63), mode: patch.Grey},
		{dict: dictionary.New(64, 4), w: patch.Identity(64), mode: patch.RGB},
		{dict: dictionary.New(60, 4), w: patch.Identity(60), mode: patch.Grey},
		{dict: nil, w: patch.Identity(64), mode: patch.Grey},
		{dict: dictionary.New(64, 4), w: nil, mode: patch.Grey},
	}
	for i, test := range tests {
		_, err := NewModel(test.dict, test.w, test.mode)
		if err == nil {
			t.Errorf("did not get expected error for test %d", i)
		}
	}
}

// A constant window contrast normalizes to zero patches, which encode to
// zero under identity whitening.
func TestConstantWindow(t *testing.T) {
	dict := dictionary.New(64, 4)
	for k := 0; k < 4; k++ {
		dict.Set(k, k, 1)
	}
	m, err := NewModel(dict, patch.Identity(64), patch.Grey)
	if err != nil {
		t.Fatal(err)
	}
	m.Finalize()

	img := image.NewRGBA(image.Rect(0, 0, 32, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 32; x++ {
			img.Set(x, y, color.RGBA{128, 128, 128, 255})
		}
	}

	d, err := New(m, (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	if !d.AverageWindowFeatures(raster.FromImage(img), 0, 0) {
		t.Fatal("window evaluation failed")
	}
	got := d.NineKDescriptor()
	if !cmp.Equal(got, make([]float32, 36)) {
		t.Errorf("got %v, want 36 zeros", got)
	}
}

func TestAverageWindowFeaturesBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	d, err := New(randomModel(t, rng, patch.Grey, 64, 3), (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	img := randomImage(rng, 40, 32)
	tests := []struct {
		x, y int
		ok   bool
	}{
		{0, 0, true},
		{8, 0, true},
		{9, 0, false},
		{0, 1, false},
		{-1, 0, false},
	}
	for _, test := range tests {
		if got := d.AverageWindowFeatures(img, test.x, test.y); got != test.ok {
			t.Errorf("(%d,%d): got %v, want %v", test.x, test.y, got, test.ok)
		}
	}

	d.SetWindow(7, 32)
	if d.AverageWindowFeatures(img, 0, 0) {
		t.Error("window narrower than a patch evaluated")
	}
}

// Pooling matches a direct computation over the sector spans.
func TestAverageWindowFeatures(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	const k = 5
	m := randomModel(t, rng, patch.RGB, 192, k)
	d, err := New(m, (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	d.SetWindow(20, 14)
	img := randomImage(rng, 30, 30)
	const px, py = 3, 7
	if !d.AverageWindowFeatures(img, px, py) {
		t.Fatal("window evaluation failed")
	}
	got := append([]float32(nil), d.NineKDescriptor()...)

	ext, err := patch.NewExtractor(patch.RGB, 192)
	if err != nil {
		t.Fatal(err)
	}
	hs, ws := SectorSpans(14, 8), SectorSpans(20, 8)
	want := make([]float64, Buckets*k)
	x := make([]float32, 192)
	enc := make([]float32, k)
	for _, h := range hs {
		for _, w := range ws {
			ext.Extract(x, img, px+w.Start, py+h.Start)
			patch.ContrastNormalize(x)
			m.Encode(enc, x)
			b := 3*h.Sector + w.Sector
			for i, v := range enc {
				want[b*k+i] += float64(v) / float64(len(hs)*len(ws))
			}
		}
	}
	for i := range want {
		if math.Abs(float64(got[i])-want[i]) > 1e-5 {
			t.Fatalf("feature %d: got %v, want %v", i, got[i], want[i])
		}
	}
}

// An 11x8 window with a bright column at x = 3 and one atom picking out the
// first patch column. Every patch holds 8 bright and 56 dark pixels; only the
// patch at x = 3 has its bright column under the atom. Width offsets 0..3 fall
// in sectors 0, 1, 1 and 2, and all three height sectors start at offset 0.
func TestAverageWindowFeaturesBuckets(t *testing.T) {
	dict := dictionary.New(64, 1)
	for y := 0; y < 8; y++ {
		dict.Set(y*8, 0, float32(1/math.Sqrt(8)))
	}
	m, err := NewModel(dict, patch.Identity(64), patch.Grey)
	if err != nil {
		t.Fatal(err)
	}
	m.Finalize()
	d, err := New(m, (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	d.SetWindow(11, 8)

	img := image.NewGray(image.Rect(0, 0, 11, 8))
	for y := 0; y < 8; y++ {
		img.SetGray(3, y, color.Gray{Y: 0xff})
	}
	if !d.AverageWindowFeatures(raster.FromImage(img), 0, 0) {
		t.Fatal("window evaluation failed")
	}

	denom := math.Sqrt(7.0/64 + patch.NormEpsilon)
	dark := float32(math.Sqrt(8)*0.125/denom - Alpha)
	bright := float32(math.Sqrt(8)*0.875/denom - Alpha)
	row := []float32{dark / 12, 2 * dark / 12, bright / 12}
	want := append(append(append([]float32(nil), row...), row...), row...)
	got := d.NineKDescriptor()
	if !cmp.Equal(got, want, cmpopts.EquateApprox(0, 1e-4)) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestSetModel(t *testing.T) {
	rng := rand.New(rand.NewSource(4))
	img := randomImage(rng, 32, 32)
	d, err := New(randomModel(t, rng, patch.Grey, 64, 4), (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	d.AverageWindowFeatures(img, 0, 0)
	first := append([]float32(nil), d.NineKDescriptor()...)

	m := randomModel(t, rng, patch.Grey, 64, 6)
	err = d.SetModel(m)
	if err != nil {
		t.Fatal(err)
	}
	d.AverageWindowFeatures(img, 0, 0)
	second := d.NineKDescriptor()
	if len(first) != 36 || len(second) != 54 {
		t.Fatalf("got descriptor lengths %d and %d, want 36 and 54", len(first), len(second))
	}

	fresh, err := New(m, nil)
	if err != nil {
		t.Fatal(err)
	}
	fresh.AverageWindowFeatures(img, 0, 0)
	if !cmp.Equal(second, fresh.NineKDescriptor()) {
		t.Error("descriptor after SetModel differs from a new detector's")
	}

	unfinished, err := NewModel(m.Dict(), m.Whitener(), m.Mode())
	if err != nil {
		t.Fatal(err)
	}
	if d.SetModel(unfinished) == nil {
		t.Error("unfinalized model accepted")
	}
}

func TestScore(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	const k = 7
	d, err := New(randomModel(t, rng, patch.Grey, 64, k), (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	img := randomImage(rng, 48, 40)
	weights := make([]float32, Buckets*k)
	for i := range weights {
		weights[i] = float32(rng.NormFloat64())
	}

	got, ok := d.Score(img, 10, 5, weights)
	if !ok {
		t.Fatal("window evaluation failed")
	}
	d.AverageWindowFeatures(img, 10, 5)
	var want float64
	for i, v := range d.NineKDescriptor() {
		want += float64(weights[i] * v)
	}
	if math.Abs(got-want) > 1e-4*math.Max(1, math.Abs(want)) {
		t.Errorf("got score %v, want %v", got, want)
	}

	_, ok = d.Score(img, 20, 5, weights)
	if ok {
		t.Error("out of bounds window scored")
	}
}

func TestLoadLinear(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, n int) string {
		var b strings.Builder
		for i := 0; i < n; i++ {
			b.WriteString(strconv.Itoa(i) + "\n")
		}
		p := filepath.Join(dir, name)
		err := os.WriteFile(p, []byte(b.String()), 0644)
		if err != nil {
			t.Fatal(err)
		}
		return p
	}

	l, err := LoadLinear(write("nobias", 18), 2)
	if err != nil || len(l.Weights) != 18 || l.Bias != 0 {
		t.Errorf("unexpected result without bias: %v %v", l, err)
	}
	l, err = LoadLinear(write("bias", 19), 2)
	if err != nil || len(l.Weights) != 18 || l.Bias != 18 {
		t.Errorf("unexpected result with bias: %v %v", l, err)
	}
	_, err = LoadLinear(write("short", 17), 2)
	if err == nil {
		t.Error("short weights accepted")
	}
}

func TestSigmoid(t *testing.T) {
	if Sigmoid(0) != 0.5 {
		t.Errorf("got %v, want 0.5", Sigmoid(0))
	}
	if s := Sigmoid(3) + Sigmoid(-3); math.Abs(s-1) > 1e-12 {
		t.Errorf("sigmoid not symmetric: %v", s)
	}
}

func TestScan(t *testing.T) {
	rng := rand.New(rand.NewSource(6))
	const k = 4
	d, err := New(randomModel(t, rng, patch.Grey, 64, k), (*logging.TestLogger)(t))
	if err != nil {
		t.Fatal(err)
	}
	img := randomImage(rng, 48, 40)
	l := &Linear{Weights: make([]float32, Buckets*k), Bias: -0.1}
	for i := range l.Weights {
		l.Weights[i] = float32(rng.NormFloat64())
	}

	serial, err := Scan(context.Background(), img, d, ScanOptions{Classifier: l, Stride: 4, Workers: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(serial) != 15 {
		t.Fatalf("got %d detections, want 15", len(serial))
	}
	parallel, err := Scan(context.Background(), img, d, ScanOptions{Classifier: l, Stride: 4, Workers: 3})
	if err != nil {
		t.Fatal(err)
	}
	if !cmp.Equal(serial, parallel) {
		t.Errorf("parallel scan differs from serial: %v %v", serial, parallel)
	}

	p, _ := l.Prob(d, img, 16, 8)
	want := Detection{X: 16, Y: 8, Prob: p}
	if serial[14] != want {
		t.Errorf("got last detection %v, want %v", serial[14], want)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = Scan(ctx, img, d, ScanOptions{Classifier: l, Stride: 4})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("got error %v, want context.Canceled", err)
	}
}

func BenchmarkEncode(b *testing.B) {
	rng := rand.New(rand.NewSource(7))
	m := randomModel(b, rng, patch.Grey, 64, 500)
	x := make([]float32, 64)
	for i := range x {
		x[i] = float32(rng.NormFloat64())
	}
	dst := make([]float32, 500)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		m.Encode(dst, x)
	}
}

func BenchmarkAverageWindowFeatures(b *testing.B) {
	rng := rand.New(rand.NewSource(8))
	d, err := New(randomModel(b, rng, patch.RGB, 192, 256), nil)
	if err != nil {
		b.Fatal(err)
	}
	img := randomImage(rng, 64, 64)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		d.AverageWindowFeatures(img, i%32, 0)
	}
}

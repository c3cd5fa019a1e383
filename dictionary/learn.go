/*
DESCRIPTION
  learn.go provides the shared parts of the dictionary learners: options,
  per iteration diagnostics and the competitive assignment of samples to
  dictionary atoms.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dictionary

import (
	"fmt"
	"io"
	"runtime"
	"sort"
	"sync"

	"github.com/ausocean/utils/logging"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Default learner parameters.
const (
	DefaultIterations = 15
	assignBlock       = 512 // Samples per block product during assignment.
)

// Trainer learns a Dictionary from whitened sample descriptors held one per
// row of x.
type Trainer interface {
	Train(x *mat.Dense) (*Result, error)
}

// Options configures a dictionary learner.
type Options struct {
	D int // Descriptor dimension.
	K int // Number of atoms learned.

	// KBest is the number of most frequently assigned atoms kept in the
	// result. Zero keeps all K.
	KBest int

	Iterations int   // Fixed number of iterations run.
	Workers    int   // Goroutines used for assignment, NumCPU if zero.
	Seed       int64 // Random seed for initialisation and reseeding.

	// Observer, if not nil, is called after every iteration. It is used for
	// diagnostics only and cannot affect training.
	Observer func(Iteration)

	Logger logging.Logger
}

// Iteration holds diagnostics for one training iteration.
type Iteration struct {
	Index     int
	Histogram []int // Samples assigned to each atom.
	Changed   int   // Samples whose assignment differs from the previous iteration.
	Reseeded  int   // Zero atoms reseeded during renormalisation.

	// Median and QuartileWidth summarise Histogram.
	Median        float64
	QuartileWidth float64

	// Dict is a snapshot of the full K atom dictionary after this iteration.
	Dict *Dictionary
}

// Result is the output of a Trainer.
type Result struct {
	// Dict holds the KBest most frequently assigned atoms, most frequent
	// first.
	Dict *Dictionary

	Histogram []int // Final assignment histogram over all K atoms.
	Order     []int // Atom indices sorted by descending Histogram.
	Assign    []int // Final atom assigned to each sample.
	History   []Iteration
}

func (o *Options) validate(x *mat.Dense) error {
	n, d := x.Dims()
	switch {
	case o.D <= 0:
		return fmt.Errorf("invalid descriptor dimension %d", o.D)
	case d != o.D:
		return fmt.Errorf("samples have dimension %d, want %d", d, o.D)
	case n == 0:
		return fmt.Errorf("no samples")
	case o.K <= 0:
		return fmt.Errorf("invalid number of atoms %d", o.K)
	case o.KBest < 0 || o.KBest > o.K:
		return fmt.Errorf("cannot keep %d of %d atoms", o.KBest, o.K)
	case o.Iterations <= 0:
		return fmt.Errorf("invalid number of iterations %d", o.Iterations)
	}
	return nil
}

func (o *Options) logger() logging.Logger {
	if o.Logger == nil {
		return logging.New(logging.Error, io.Discard, true)
	}
	return o.Logger
}

func (o *Options) workers() int {
	if o.Workers <= 0 {
		return runtime.NumCPU()
	}
	return o.Workers
}

func (o *Options) kBest() int {
	if o.KBest == 0 {
		return o.K
	}
	return o.KBest
}

// assign sets best[i] to the atom (row of atoms) with the largest dot product
// with sample i and score[i] to that dot product. Ties go to the lowest atom
// index. Blocks of samples are shared between workers goroutines.
func assign(x, atoms *mat.Dense, best []int, score []float64, workers int) {
	n, d := x.Dims()
	blocks := (n + assignBlock - 1) / assignBlock
	if workers > blocks {
		workers = blocks
	}

	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			defer wg.Done()
			var prod mat.Dense
			for b := w; b < blocks; b += workers {
				i0 := b * assignBlock
				i1 := i0 + assignBlock
				if i1 > n {
					i1 = n
				}
				prod.Reset()
				prod.Mul(x.Slice(i0, i1, 0, d), atoms.T())
				for i := i0; i < i1; i++ {
					row := prod.RawRowView(i - i0)
					k := floats.MaxIdx(row)
					best[i] = k
					score[i] = row[k]
				}
			}
		}(w)
	}
	wg.Wait()
}

// histogram counts the samples assigned to each of k atoms.
func histogram(best []int, k int) []int {
	h := make([]int, k)
	for _, b := range best {
		h[b]++
	}
	return h
}

// changed counts the assignments differing between prev and best.
func changed(prev, best []int) int {
	var c int
	for i := range best {
		if prev[i] != best[i] {
			c++
		}
	}
	return c
}

// summarise returns the median and interquartile width of h.
func summarise(h []int) (median, width float64) {
	s := make([]float64, len(h))
	for i, v := range h {
		s[i] = float64(v)
	}
	sort.Float64s(s)
	median = stat.Quantile(0.5, stat.Empirical, s, nil)
	width = stat.Quantile(0.75, stat.Empirical, s, nil) - stat.Quantile(0.25, stat.Empirical, s, nil)
	return median, width
}

// rank returns atom indices ordered by descending h, ties by index.
func rank(h []int) []int {
	order := make([]int, len(h))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return h[order[i]] > h[order[j]] })
	return order
}

// iteration builds the diagnostics for iteration i and hands them to the
// observer and logger.
func (o *Options) iteration(i int, atoms *mat.Dense, best, prev []int, reseeded int) Iteration {
	h := histogram(best, o.K)
	med, width := summarise(h)
	it := Iteration{
		Index:         i,
		Histogram:     h,
		Changed:       changed(prev, best),
		Reseeded:      reseeded,
		Median:        med,
		QuartileWidth: width,
		Dict:          fromAtoms(atoms),
	}

	log := o.logger()
	if reseeded > 0 {
		log.Warning("reseeded zero dictionary atoms", "iteration", i, "atoms", reseeded)
	}
	log.Info("dictionary iteration complete", "iteration", i, "of", o.Iterations, "changed", it.Changed, "median", med, "quartileWidth", width)
	if o.Observer != nil {
		o.Observer(it)
	}
	return it
}

// result assembles the Result from the final assignment and atoms.
func (o *Options) result(atoms *mat.Dense, best []int, history []Iteration) *Result {
	h := histogram(best, o.K)
	order := rank(h)
	return &Result{
		Dict:      fromAtoms(atoms).Select(order[:o.kBest()]),
		Histogram: h,
		Order:     order,
		Assign:    append([]int(nil), best...),
		History:   history,
	}
}

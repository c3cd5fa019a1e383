/*
DESCRIPTION
  accumulate.go provides the accumulating dictionary learner. Samples start in
  random clusters; each iteration rebuilds the dictionary from the outer
  products of samples and their scores, renormalises it and then reassigns
  every sample to its best matching atom.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

package dictionary

import (
	"math/rand"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Accumulate learns a dictionary by D = sum_n x_n s_n^T / sum_n |s_n|^2
// followed by column renormalisation, where each score vector s_n has a single
// non-zero entry.
type Accumulate struct {
	Options
}

// NewAccumulate returns an Accumulate learner.
func NewAccumulate(o Options) *Accumulate { return &Accumulate{Options: o} }

// Train implements Trainer.
func (a *Accumulate) Train(x *mat.Dense) (*Result, error) {
	err := a.validate(x)
	if err != nil {
		return nil, err
	}
	n, d := x.Dims()
	log := a.logger()
	rng := rand.New(rand.NewSource(a.Seed))

	// Each sample starts in a uniformly random cluster with unit score.
	best := make([]int, n)
	score := make([]float64, n)
	for i := range best {
		best[i] = rng.Intn(a.K)
		score[i] = 1
	}
	prev := make([]int, n)
	atoms := mat.NewDense(a.K, d, nil)
	history := make([]Iteration, 0, a.Iterations)

	log.Info("training accumulated dictionary", "N", n, "D", d, "K", a.K, "iterations", a.Iterations)
	start := time.Now()
	for i := 0; i < a.Iterations; i++ {
		atoms.Zero()
		var sumSq float64
		for j := 0; j < n; j++ {
			floats.AddScaled(atoms.RawRowView(best[j]), score[j], x.RawRowView(j))
			sumSq += score[j] * score[j]
		}
		// sumSq scales every atom equally, so renormalisation removes it.
		if sumSq > 0 {
			atoms.Scale(1/sumSq, atoms)
		}
		reseeded := normalizeRows(atoms, rng)

		copy(prev, best)
		assign(x, atoms, best, score, a.workers())

		history = append(history, a.iteration(i, atoms, best, prev, reseeded))
		log.Debug("elapsed", "seconds", time.Since(start).Seconds())
	}
	return a.result(atoms, best, history), nil
}

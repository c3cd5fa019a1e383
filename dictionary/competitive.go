/*
DESCRIPTION
  competitive.go provides the competitive dictionary learner. Atoms start as
  random unit vectors; each iteration assigns every sample to its best
  matching atom and adds the score weighted sample to that atom before
  renormalising.

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

// Competitive learns a dictionary by the update D += X S^T, where S holds a
// single non-zero score per sample: its dot product with the best matching
// atom.
type Competitive struct {
	Options
}

// NewCompetitive returns a Competitive learner.
func NewCompetitive(o Options) *Competitive { return &Competitive{Options: o} }

// Train implements Trainer.
func (c *Competitive) Train(x *mat.Dense) (*Result, error) {
	err := c.validate(x)
	if err != nil {
		return nil, err
	}
	n, d := x.Dims()
	log := c.logger()
	rng := rand.New(rand.NewSource(c.Seed))

	// Standard normal atoms, normalised to unit length.
	atoms := mat.NewDense(c.K, d, nil)
	for k := 0; k < c.K; k++ {
		randomNormal(atoms.RawRowView(k), rng)
	}
	normalizeRows(atoms, rng)

	best := make([]int, n)
	prev := make([]int, n)
	for i := range prev {
		prev[i] = -1
	}
	score := make([]float64, n)
	history := make([]Iteration, 0, c.Iterations)

	log.Info("training competitive dictionary", "N", n, "D", d, "K", c.K, "iterations", c.Iterations)
	start := time.Now()
	for i := 0; i < c.Iterations; i++ {
		assign(x, atoms, best, score, c.workers())

		for j := 0; j < n; j++ {
			floats.AddScaled(atoms.RawRowView(best[j]), score[j], x.RawRowView(j))
		}
		reseeded := normalizeRows(atoms, rng)

		history = append(history, c.iteration(i, atoms, best, prev, reseeded))
		copy(prev, best)
		log.Debug("elapsed", "seconds", time.Since(start).Seconds())
	}
	return c.result(atoms, best, history), nil
}

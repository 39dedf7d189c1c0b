// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package propagate implements the direct graph-form steady-state
// propagator (§4.C): one pass over the topological order, accumulating
// upstream mass and applying first-order exponential decay.
package propagate

import "math"

// Predecessors resolves the upstream neighbours of a node. Callers
// typically pass graph.Graph.Predecessors.
type Predecessors func(pixelID int64) []int64

// Inputs bundles the per-node attributes the recurrence reads.
type Inputs struct {
	Order        []int64           // topological order, parents before children
	Parents      Predecessors      // upstream neighbours
	Loads        map[int64]float64 // per-pixel initial load; 0 if absent
	ResidenceHR  map[int64]float64
	DischargeCMH map[int64]float64
}

// Result is the per-node output of one propagation run.
type Result struct {
	C    map[int64]float64 // absolute mass flux
	RelC map[int64]float64 // C / discharge
}

// Run executes the recurrence of §4.C at attenuation rate k.
//
// When legacyOrder is false (the default, and the behaviour that matches
// the matrix form of §4.E exactly), decay is applied exactly once to the
// combined local-plus-upstream load, per node. When legacyOrder is true,
// the literal per-parent loop order of the original implementation is
// reproduced bit-for-bit: a node with two parents is attenuated twice,
// and a node with zero parents is not attenuated at all. This is a
// documented latent bug in the source (§4.C, §9) kept only for
// bit-compatible replication; new work should use legacyOrder=false.
func Run(in Inputs, k float64, legacyOrder bool) Result {
	c := make(map[int64]float64, len(in.Order))
	relC := make(map[int64]float64, len(in.Order))

	for _, n := range in.Order {
		val := in.Loads[n]
		parents := in.Parents(n)
		decay := math.Exp(-k * in.ResidenceHR[n])

		if legacyOrder {
			for _, p := range parents {
				val += c[p]
				val *= decay
			}
		} else {
			for _, p := range parents {
				val += c[p]
			}
			val *= decay
		}

		c[n] = val
		d := in.DischargeCMH[n]
		if d != 0 {
			relC[n] = val / d
		}
	}
	return Result{C: c, RelC: relC}
}

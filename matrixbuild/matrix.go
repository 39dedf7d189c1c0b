// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package matrixbuild implements the transfer-matrix builder (§4.E): for
// each mini-basin it builds the lower-triangular cumulative residence-time
// matrix R, from which the attenuation matrix at rate k is the elementwise
// exp(-k*R) masked to R's nonzero pattern.
//
// Mini-basins at or below CutMinimum stay dense; larger ones are built
// through gosl's la.Triplet (the same sparse-assembly entry point the
// teacher uses for its global Jacobian, fem/domain.go) and converted to
// compressed-column storage, since R's attenuated copy gets a fresh data
// array recomputed from R's every calibration iteration while sharing R's
// column pointers and row indices (§4.F), and la.Triplet's coordinate
// form isn't the structure that supports that.
package matrixbuild

import (
	"math"

	"github.com/cpmech/gosl/la"
	"github.com/icra/riverfate"
	"github.com/icra/riverfate/partition"
	"github.com/icra/riverfate/rerr"
)

// CellInfo resolves the two attributes the builder needs per node.
type CellInfo interface {
	ResidenceHR(pixelID int64) float64
	BasinID(pixelID int64) int64
	Child(pixelID int64) (int64, bool) // single downstream neighbour, if any
}

// BasinMatrix is the quadruple of §3: R, the optional bridge node, the
// node order, and the set of full basin ids that contributed nodes.
type BasinMatrix struct {
	Nodes    []int64
	Index    map[int64]int // pixel -> local row/col index
	Bridge   *int64
	BasinIDs map[int64]bool

	// Dense holds R for mini-basins at or below CutMinimum.
	Dense [][]float64

	// Sparse holds R in compressed-column form (la.CCMatrix: Ap column
	// pointers, Ai row indices, Ax values) for larger mini-basins. RTData
	// mirrors Ax at build time; Attenuate never mutates it, only derives
	// fresh Ax arrays from it, so concurrent evaluations at different k
	// can each hold their own attenuated copy (§5).
	Sparse *la.CCMatrix
	RTData []float64
}

// N returns the matrix dimension (number of nodes, bridge included).
func (bm *BasinMatrix) N() int { return len(bm.Nodes) }

// IsSparse reports whether this mini-basin was built in compressed form.
func (bm *BasinMatrix) IsSparse() bool { return bm.Sparse != nil }

// ToDense returns R as an n*n dense slice regardless of storage form,
// for callers (subset.Subset) that need to slice or stitch R directly
// rather than re-derive it from the graph.
func (bm *BasinMatrix) ToDense() [][]float64 {
	n := bm.N()
	if bm.Dense != nil {
		out := make([][]float64, n)
		for i := range bm.Dense {
			out[i] = append([]float64(nil), bm.Dense[i]...)
		}
		return out
	}
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	cc := bm.Sparse
	for j := 0; j < n; j++ {
		for p := cc.Ap[j]; p < cc.Ap[j+1]; p++ {
			out[cc.Ai[p]][j] = cc.Ax[p]
		}
	}
	return out
}

// FromDense rebuilds a BasinMatrix around an already-assembled dense R,
// sparsifying past cutMinimum exactly as Build does. Used by
// subset.Subset after it slices or stitches R outside this package.
func FromDense(nodes []int64, bridge *int64, basinIDs map[int64]bool, dense [][]float64, cutMinimum int) (*BasinMatrix, error) {
	n := len(nodes)
	if n == 0 {
		return nil, rerr.Wrap("matrixbuild.FromDense", rerr.ErrAttributeMissing, "empty mini-basin")
	}
	index := make(map[int64]int, n)
	for i, id := range nodes {
		index[id] = i
	}
	bm := &BasinMatrix{Nodes: nodes, Index: index, Bridge: bridge, BasinIDs: basinIDs}
	if n <= cutMinimum {
		bm.Dense = dense
		return bm, nil
	}
	if err := sparsify(bm, dense); err != nil {
		return nil, err
	}
	return bm, nil
}

// Build constructs the BasinMatrix for one mini-basin (§4.E): walking rows
// bottom-up, each column is the child's column shifted by the row's own
// residence time, save for the diagonal which holds max(rt, epsilon).
func Build(mb partition.MiniBasin, info CellInfo, cutMinimum int) (*BasinMatrix, error) {
	n := len(mb.Nodes)
	if n == 0 {
		return nil, rerr.Wrap("matrixbuild.Build", rerr.ErrAttributeMissing, "empty mini-basin")
	}
	index := make(map[int64]int, n)
	for i, id := range mb.Nodes {
		index[id] = i
	}

	dense := make([][]float64, n)
	for i := range dense {
		dense[i] = make([]float64, n)
	}

	for j := n - 1; j >= 0; j-- {
		id := mb.Nodes[j]
		rt := info.ResidenceHR(id)
		if child, ok := info.Child(id); ok {
			if cIdx, within := index[child]; within && cIdx > j {
				for i := 0; i < n; i++ {
					v := dense[i][cIdx]
					if v > 0 {
						dense[i][j] = v + rt
					}
				}
			}
		}
		dense[j][j] = math.Max(rt, riverfate.EpsilonResidence)
	}

	basinIDs := make(map[int64]bool)
	for _, id := range mb.Nodes {
		basinIDs[info.BasinID(id)] = true
	}

	bm := &BasinMatrix{
		Nodes:    mb.Nodes,
		Index:    index,
		Bridge:   mb.Bridge,
		BasinIDs: basinIDs,
	}

	if n <= cutMinimum {
		bm.Dense = dense
		return bm, nil
	}

	if err := sparsify(bm, dense); err != nil {
		return nil, err
	}
	return bm, nil
}

// sparsify converts a dense R into compressed-column form through
// gosl's la.Triplet, the teacher's own sparse-assembly entry point
// (fem/domain.go: o.Kb = new(la.Triplet); o.Kb.Init(...); Kb.Put(i,j,v)).
func sparsify(bm *BasinMatrix, dense [][]float64) error {
	n := len(dense)
	nnz := 0
	for i := range dense {
		for j := range dense[i] {
			if dense[i][j] > 0 {
				nnz++
			}
		}
	}
	t := new(la.Triplet)
	t.Init(n, n, nnz)
	for j := 0; j < n; j++ {
		for i := 0; i < n; i++ {
			if dense[i][j] > 0 {
				t.Put(i, j, dense[i][j])
			}
		}
	}
	cc := t.ToMatrix()
	bm.Sparse = cc
	bm.RTData = append([]float64(nil), cc.Ax...)
	return nil
}

// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matrixbuild

import (
	"math"
	"testing"

	"github.com/icra/riverfate/partition"
	"github.com/stretchr/testify/require"
)

type fakeInfo struct {
	rt       map[int64]float64
	basin    map[int64]int64
	children map[int64]int64
}

func (f fakeInfo) ResidenceHR(id int64) float64 { return f.rt[id] }
func (f fakeInfo) BasinID(id int64) int64       { return f.basin[id] }
func (f fakeInfo) Child(id int64) (int64, bool) {
	c, ok := f.children[id]
	return c, ok
}

// Scenario from §8: linear chain a(1)->b(2)->c(3), single mini-basin.
func chainInfo() fakeInfo {
	return fakeInfo{
		rt:       map[int64]float64{1: 2, 2: 3, 3: 5},
		basin:    map[int64]int64{1: 1, 2: 1, 3: 1},
		children: map[int64]int64{1: 2, 2: 3},
	}
}

func TestChainConsistency(t *testing.T) {
	info := chainInfo()
	mb := partition.MiniBasin{Nodes: []int64{1, 2, 3}}
	bm, err := Build(mb, info, 0) // force sparse path
	require.NoError(t, err)

	RT := info.rt
	require.InDelta(t, RT[3], valueAt(bm, 3, 3), 1e-12)
	require.InDelta(t, RT[3]+RT[2], valueAt(bm, 3, 2), 1e-12)
	require.InDelta(t, RT[3]+RT[2]+RT[1], valueAt(bm, 3, 1), 1e-12)
	require.InDelta(t, RT[2]+RT[1], valueAt(bm, 2, 1), 1e-12)
	require.InDelta(t, RT[2], valueAt(bm, 2, 2), 1e-12)
	require.InDelta(t, RT[1], valueAt(bm, 1, 1), 1e-12)
	require.Zero(t, valueAt(bm, 1, 2)) // ancestor/descendant reversed: zero
}

func TestTriangularity(t *testing.T) {
	info := chainInfo()
	mb := partition.MiniBasin{Nodes: []int64{1, 2, 3}}
	bm, err := Build(mb, info, 1000) // dense path
	require.NoError(t, err)
	for i := 0; i < bm.N(); i++ {
		for j := 0; j < bm.N(); j++ {
			if bm.Dense[i][j] > 0 {
				require.LessOrEqual(t, j, i, "R[%d,%d] should be zero above the diagonal", i, j)
			}
		}
	}
}

func TestDiagonalPositivity(t *testing.T) {
	info := fakeInfo{
		rt:       map[int64]float64{1: 0, 2: 4}, // lake cell with zero residence time
		basin:    map[int64]int64{1: 1, 2: 1},
		children: map[int64]int64{1: 2},
	}
	mb := partition.MiniBasin{Nodes: []int64{1, 2}}
	bm, err := Build(mb, info, 1000)
	require.NoError(t, err)
	require.Greater(t, bm.Dense[0][0], 0.0)
	require.InDelta(t, 1e-6, bm.Dense[0][0], 1e-15)
}

func TestAttenuationLawMatchesExpOfCumulativeResidence(t *testing.T) {
	info := chainInfo()
	mb := partition.MiniBasin{Nodes: []int64{1, 2, 3}}
	bm, err := Build(mb, info, 1000)
	require.NoError(t, err)
	k := 0.2
	a := bm.Attenuate(k)
	tau := valueAt(bm, 3, 1) // R[c,a]
	require.InDelta(t, math.Exp(-k*tau), a.Dense[2][0], 1e-12)
}

func TestSparseAndDenseBuildAgree(t *testing.T) {
	info := chainInfo()
	mb := partition.MiniBasin{Nodes: []int64{1, 2, 3}}
	dense, err := Build(mb, info, 1000)
	require.NoError(t, err)
	sparse, err := Build(mb, info, 0)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			require.InDelta(t, dense.Dense[i][j], valueAt(sparse, mb.Nodes[i], mb.Nodes[j]), 1e-12)
		}
	}
}

func valueAt(bm *BasinMatrix, rowPixel, colPixel int64) float64 {
	i := bm.Index[rowPixel]
	j := bm.Index[colPixel]
	if bm.Dense != nil {
		return bm.Dense[i][j]
	}
	cc := bm.Sparse
	for p := cc.Ap[j]; p < cc.Ap[j+1]; p++ {
		if cc.Ai[p] == i {
			return cc.Ax[p]
		}
	}
	return 0
}

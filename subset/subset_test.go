// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package subset

import (
	"testing"

	"github.com/icra/riverfate/matrixbuild"
	"github.com/icra/riverfate/partition"
	"github.com/stretchr/testify/require"
)

type chainInfo struct {
	rt    map[int64]float64
	basin map[int64]int64
}

func (c chainInfo) ResidenceHR(id int64) float64 { return c.rt[id] }
func (c chainInfo) BasinID(id int64) int64       { return c.basin[id] }
func (c chainInfo) Child(id int64) (int64, bool) {
	if int(id) == len(c.rt) {
		return 0, false
	}
	return id + 1, true
}

func buildChain(t *testing.T, n int) (full *matrixbuild.BasinMatrix, split []*matrixbuild.BasinMatrix, info chainInfo) {
	order := make([]int64, n)
	rt := make(map[int64]float64, n)
	basin := make(map[int64]int64, n)
	for i := 0; i < n; i++ {
		order[i] = int64(i + 1)
		rt[int64(i+1)] = 1.0
		basin[int64(i+1)] = 1
	}
	info = chainInfo{rt: rt, basin: basin}
	parents, children := chainParentsChildren(n)

	fullMB := partition.Split(order, parents, children, 1000)
	require.Len(t, fullMB, 1)
	var err error
	full, err = matrixbuild.Build(fullMB[0], info, 1000)
	require.NoError(t, err)

	minis := partition.Split(order, parents, children, 3)
	require.Greater(t, len(minis), 1)
	split = make([]*matrixbuild.BasinMatrix, len(minis))
	for i, mb := range minis {
		bm, err := matrixbuild.Build(mb, info, 1000)
		require.NoError(t, err)
		split[i] = bm
	}
	return
}

func chainParentsChildren(n int) (partition.Parents, partition.Children) {
	parents := func(id int64) []int64 {
		if id == 1 {
			return nil
		}
		return []int64{id - 1}
	}
	children := func(id int64) []int64 {
		if int(id) == n {
			return nil
		}
		return []int64{id + 1}
	}
	return parents, children
}

// TestSubsetFullReassemblyMatchesDirectBuild re-merges every split
// mini-basin back into one, with every basin id chosen: Subset must
// reproduce exactly the R a single direct Build over the whole chain
// would have produced.
func TestSubsetFullReassemblyMatchesDirectBuild(t *testing.T) {
	full, split, info := buildChain(t, 10)

	nodeBasin := func(id int64) int64 { return info.BasinID(id) }
	out, err := Subset(split, nodeBasin, map[int64]bool{1: true}, 1000, 1000)
	require.NoError(t, err)
	require.Len(t, out, 1)

	wantDense := full.ToDense()
	gotDense := out[0].ToDense()
	require.Equal(t, full.Nodes, out[0].Nodes)
	for i := range wantDense {
		for j := range wantDense[i] {
			require.InDelta(t, wantDense[i][j], gotDense[i][j], 1e-9, "R[%d,%d]", i, j)
		}
	}
}

// TestSubsetDropsBasinsOutsideChosenSet confirms step (a): no id chosen
// means nothing survives.
func TestSubsetDropsBasinsOutsideChosenSet(t *testing.T) {
	_, split, info := buildChain(t, 10)
	nodeBasin := func(id int64) int64 { return info.BasinID(id) }
	out, err := Subset(split, nodeBasin, map[int64]bool{99: true}, 1000, 1000)
	require.NoError(t, err)
	require.Empty(t, out)
}

// TestSubsetPartialNodeDropPreservesSurvivingPairs checks step (b): when
// only some nodes of a basin survive, R between surviving pairs is
// unchanged from the original.
func TestSubsetPartialNodeDropPreservesSurvivingPairs(t *testing.T) {
	full, _, info := buildChain(t, 5)

	nodeBasin := func(id int64) int64 {
		if id == 3 {
			return 99 // excluded
		}
		return info.BasinID(id)
	}

	out, err := reduceToSurviving(full, nodeBasin, map[int64]bool{1: true}, 1000)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 4, 5}, out.Nodes)

	full1to2 := valueAt(full, 2, 1)
	got1to2 := valueAt(out, 2, 1)
	require.InDelta(t, full1to2, got1to2, 1e-9)
}

func valueAt(bm *matrixbuild.BasinMatrix, rowPixel, colPixel int64) float64 {
	dense := bm.ToDense()
	return dense[bm.Index[rowPixel]][bm.Index[colPixel]]
}

// confluenceInfo backs a chain 1->2->3->4->5 cut at node 4 (bridge=5)
// alongside an independent, never-cut root 9->5.
type confluenceInfo struct {
	rt    map[int64]float64
	child map[int64]int64
}

func (c confluenceInfo) ResidenceHR(id int64) float64 { return c.rt[id] }
func (c confluenceInfo) BasinID(id int64) int64       { return 1 }
func (c confluenceInfo) Child(id int64) (int64, bool) {
	child, ok := c.child[id]
	return child, ok
}

// TestAdjacentAndStitchHandleBridgeNotAtFrontOfNext reproduces the
// confluence shape that breaks a "bridge is always local index 0"
// assumption: the downstream mini-basin's nodes are [9, 5] because the
// independent root 9 sorts ahead of the bridge target 5 in topological
// order, so the bridge occupies local index 1, not 0.
func TestAdjacentAndStitchHandleBridgeNotAtFrontOfNext(t *testing.T) {
	info := confluenceInfo{
		rt:    map[int64]float64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 9: 1},
		child: map[int64]int64{1: 2, 2: 3, 3: 4, 4: 5, 9: 5},
	}
	bridge := int64(5)
	a, err := matrixbuild.Build(partition.MiniBasin{Nodes: []int64{1, 2, 3, 4, 5}, Bridge: &bridge}, info, 1000)
	require.NoError(t, err)
	b, err := matrixbuild.Build(partition.MiniBasin{Nodes: []int64{9, 5}}, info, 1000)
	require.NoError(t, err)

	require.True(t, adjacent(a, b))

	merged, err := stitch(a, b, 1000)
	require.NoError(t, err)
	require.Equal(t, []int64{1, 2, 3, 4, 5, 9}, merged.Nodes)

	seen := map[int64]bool{}
	for _, id := range merged.Nodes {
		require.False(t, seen[id], "duplicate node %d in stitched basin", id)
		seen[id] = true
	}

	// node 9 is an independent root feeding the bridge, not a descendant
	// of the upstream basin's nodes: it must come out with zero residence
	// time to them rather than being spuriously cross-wired.
	require.Equal(t, 0.0, valueAt(merged, 9, 1))
	require.Equal(t, 0.0, valueAt(merged, 9, 4))
	require.Greater(t, valueAt(merged, 5, 1), 0.0)
}

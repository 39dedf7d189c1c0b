// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package runner

import (
	"context"
	"testing"

	"github.com/icra/riverfate/matrixbuild"
	"github.com/icra/riverfate/partition"
	"github.com/stretchr/testify/require"
)

type chainInfo struct {
	rt map[int64]float64
}

func (c chainInfo) ResidenceHR(id int64) float64 { return c.rt[id] }
func (c chainInfo) BasinID(id int64) int64       { return 1 }
func (c chainInfo) Child(id int64) (int64, bool) {
	if int(id) == len(c.rt) {
		return 0, false
	}
	return id + 1, true
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

func buildBasins(t *testing.T, n, cutSize int) []*matrixbuild.BasinMatrix {
	order := make([]int64, n)
	rt := make(map[int64]float64, n)
	for i := 0; i < n; i++ {
		order[i] = int64(i + 1)
		rt[int64(i+1)] = 1.0
	}
	parents, children := chainParentsChildren(n)
	minis := partition.Split(order, parents, children, cutSize)

	info := chainInfo{rt: rt}
	out := make([]*matrixbuild.BasinMatrix, len(minis))
	for i, mb := range minis {
		bm, err := matrixbuild.Build(mb, info, 0)
		require.NoError(t, err)
		out[i] = bm
	}
	return out
}

// TestRunMatchesSingleBasinRegardlessOfPartitioning is the "bridge
// consistency" property (§8): splitting a chain into mini-basins must not
// change any pixel's computed concentration.
func TestRunMatchesSingleBasinRegardlessOfPartitioning(t *testing.T) {
	whole := buildBasins(t, 10, 1000)
	require.Len(t, whole, 1)
	split := buildBasins(t, 10, 3)
	require.Greater(t, len(split), 1)

	loads := map[int64]float64{1: 100.0, 5: 40.0}
	k := 0.15

	wantC := Run(whole, k, loads)
	gotC := Run(split, k, loads)

	for id := int64(1); id <= 10; id++ {
		require.InDelta(t, wantC[id], gotC[id], 1e-9, "pixel %d", id)
	}
}

func TestRunParallelMatchesSequentialRun(t *testing.T) {
	split := buildBasins(t, 10, 3)
	loads := map[int64]float64{1: 100.0, 5: 40.0}
	k := 0.15

	want := Run(split, k, loads)
	got, err := RunParallel(context.Background(), split, k, loads)
	require.NoError(t, err)

	for id := int64(1); id <= 10; id++ {
		require.InDelta(t, want[id], got[id], 1e-9, "pixel %d", id)
	}
}

// TestExtractColumnMatchesSingleSourceRun confirms extract_column's
// per-source fingerprint equals Run with every other load zeroed out.
func TestExtractColumnMatchesSingleSourceRun(t *testing.T) {
	split := buildBasins(t, 10, 3)
	k := 0.15

	col, err := ExtractColumn(split, k, 3)
	require.NoError(t, err)

	refC := Run(split, k, map[int64]float64{3: 1.0})
	for id := int64(3); id <= 10; id++ {
		require.InDelta(t, refC[id], col[id], 1e-9, "pixel %d", id)
	}
	for id := int64(1); id < 3; id++ {
		require.Zero(t, col[id])
	}
}

func TestExtractColumnUnknownPixel(t *testing.T) {
	split := buildBasins(t, 10, 3)
	_, err := ExtractColumn(split, 0.1, 999)
	require.Error(t, err)
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

func confluenceGraph() (order []int64, parents partition.Parents, children partition.Children, info confluenceInfo) {
	order = []int64{1, 2, 3, 4, 9, 5}
	parentsMap := map[int64][]int64{2: {1}, 3: {2}, 4: {3}, 5: {4, 9}}
	childrenMap := map[int64][]int64{1: {2}, 2: {3}, 3: {4}, 4: {5}, 9: {5}}
	parents = func(id int64) []int64 { return parentsMap[id] }
	children = func(id int64) []int64 { return childrenMap[id] }
	info = confluenceInfo{
		rt:    map[int64]float64{1: 1, 2: 1, 3: 1, 4: 1, 5: 1, 9: 1},
		child: map[int64]int64{1: 2, 2: 3, 3: 4, 4: 5, 9: 5},
	}
	return
}

func buildConfluenceBasins(t *testing.T, order []int64, parents partition.Parents, children partition.Children, info confluenceInfo, cutSize int) []*matrixbuild.BasinMatrix {
	minis := partition.Split(order, parents, children, cutSize)
	out := make([]*matrixbuild.BasinMatrix, len(minis))
	for i, mb := range minis {
		bm, err := matrixbuild.Build(mb, info, 0)
		require.NoError(t, err)
		out[i] = bm
	}
	return out
}

// TestRunCarriesConcentrationThroughConfluenceWithOneCutBranch reproduces
// the topology that breaks a "bridge is always at local index 0"
// assumption: node 9 feeds the bridge target 5 without ever being cut, so
// it sorts into the downstream mini-basin ahead of 5, giving Nodes =
// [9, 5]. Run and RunParallel must still carry the concentration reaching
// 5 from the upstream basin rather than discard it.
func TestRunCarriesConcentrationThroughConfluenceWithOneCutBranch(t *testing.T) {
	order, parents, children, info := confluenceGraph()

	whole := buildConfluenceBasins(t, order, parents, children, info, 1000)
	require.Len(t, whole, 1)

	split := partition.Split(order, parents, children, 3)
	require.Len(t, split, 2)
	require.Equal(t, []int64{9, 5}, split[1].Nodes, "bridge target must land at local index 1, not 0")
	splitBM := buildConfluenceBasins(t, order, parents, children, info, 3)

	loads := map[int64]float64{1: 100.0}
	k := 0.1

	want := Run(whole, k, loads)
	got := Run(splitBM, k, loads)
	require.Greater(t, got[5], 0.0, "concentration carried from pixel 1 must not vanish at the confluence")
	for _, id := range order {
		require.InDelta(t, want[id], got[id], 1e-9, "pixel %d", id)
	}

	gotParallel, err := RunParallel(context.Background(), splitBM, k, loads)
	require.NoError(t, err)
	for _, id := range order {
		require.InDelta(t, want[id], gotParallel[id], 1e-9, "pixel %d", id)
	}
}

// TestExtractColumnHandlesConfluenceWithOneCutBranch exercises the same
// topology through ExtractColumn: the bridge re-entry point must be
// resolved by pixel id in each new basin, not assumed at local index 0.
func TestExtractColumnHandlesConfluenceWithOneCutBranch(t *testing.T) {
	order, parents, children, info := confluenceGraph()
	splitBM := buildConfluenceBasins(t, order, parents, children, info, 3)

	k := 0.1
	col, err := ExtractColumn(splitBM, k, 1)
	require.NoError(t, err)

	refC := Run(splitBM, k, map[int64]float64{1: 1.0})
	for _, id := range []int64{1, 2, 3, 4, 5} {
		require.InDelta(t, refC[id], col[id], 1e-9, "pixel %d", id)
	}
	require.Zero(t, col[9], "pixel 1 never reaches the independent root 9")
}

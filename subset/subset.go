// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package subset implements the subset/reshape operation (§4.H): given a
// prebuilt set of basin matrices and a chosen set of basin ids, it drops
// mini-basins that touch none of them, boolean-indexes the partial ones
// down to their surviving nodes, and re-merges adjacent mini-basins that
// now fit within a size budget.
package subset

import (
	"github.com/icra/riverfate/matrixbuild"
	"github.com/icra/riverfate/rerr"
)

// NodeBasinID resolves the full basin id a node belongs to, so Subset can
// decide which individual nodes of a partial mini-basin survive.
type NodeBasinID func(pixelID int64) int64

// Subset rebuilds basins into a new ordered list covering only the full
// basins named in chosen, merging adjacent survivors back together when
// their combined size fits cutSize (§4.H steps a-d).
func Subset(basins []*matrixbuild.BasinMatrix, nodeBasin NodeBasinID, chosen map[int64]bool, cutSize, cutMinimum int) ([]*matrixbuild.BasinMatrix, error) {
	kept := make([]*matrixbuild.BasinMatrix, 0, len(basins))
	for _, bm := range basins {
		if !touchesChosen(bm, chosen) {
			continue
		}
		reduced, err := reduceToSurviving(bm, nodeBasin, chosen, cutMinimum)
		if err != nil {
			return nil, err
		}
		if reduced != nil {
			kept = append(kept, reduced)
		}
	}
	return mergeAdjacent(kept, cutSize, cutMinimum)
}

// touchesChosen implements §4.H step (a): drop mini-basins sharing no
// basin id with the chosen set.
func touchesChosen(bm *matrixbuild.BasinMatrix, chosen map[int64]bool) bool {
	for id := range bm.BasinIDs {
		if chosen[id] {
			return true
		}
	}
	return false
}

// reduceToSurviving implements §4.H step (b): boolean-index R down to the
// nodes whose basin id is in chosen. R already holds the full pairwise
// cumulative residence time for every node pair in bm, so slicing its
// rows/columns (rather than re-deriving from the graph) preserves every
// surviving ancestor/descendant relationship exactly.
func reduceToSurviving(bm *matrixbuild.BasinMatrix, nodeBasin NodeBasinID, chosen map[int64]bool, cutMinimum int) (*matrixbuild.BasinMatrix, error) {
	survivors := make([]int64, 0, len(bm.Nodes))
	keepIdx := make([]int, 0, len(bm.Nodes))
	for i, id := range bm.Nodes {
		if chosen[nodeBasin(id)] {
			survivors = append(survivors, id)
			keepIdx = append(keepIdx, i)
		}
	}
	if len(survivors) == 0 {
		return nil, nil
	}
	if len(survivors) == len(bm.Nodes) {
		return bm, nil
	}

	dense := bm.ToDense()
	n := len(survivors)
	sub := make([][]float64, n)
	for i := range sub {
		sub[i] = make([]float64, n)
		for j := range sub[i] {
			sub[i][j] = dense[keepIdx[i]][keepIdx[j]]
		}
	}

	var bridge *int64
	if bm.Bridge != nil {
		for _, id := range survivors {
			if id == *bm.Bridge {
				b := *bm.Bridge
				bridge = &b
				break
			}
		}
	}

	basinIDs := make(map[int64]bool)
	for _, id := range survivors {
		basinIDs[nodeBasin(id)] = true
	}

	return matrixbuild.FromDense(survivors, bridge, basinIDs, sub, cutMinimum)
}

// mergeAdjacent implements §4.H steps (c)-(d): repeatedly stitches
// adjacent mini-basins (current's bridge node appears somewhere in next,
// found via next.Index rather than assumed at a fixed position) whenever
// their combined size fits cutSize, until no merge applies. The same loop
// folds in leftover tiny leaf mini-basins since a tiny basin is simply
// another case of "combined size fits".
func mergeAdjacent(basins []*matrixbuild.BasinMatrix, cutSize, cutMinimum int) ([]*matrixbuild.BasinMatrix, error) {
	for {
		out := make([]*matrixbuild.BasinMatrix, 0, len(basins))
		merged := false
		i := 0
		for i < len(basins) {
			if i+1 < len(basins) && adjacent(basins[i], basins[i+1]) &&
				combinedSize(basins[i], basins[i+1]) <= cutSize {
				m, err := stitch(basins[i], basins[i+1], cutMinimum)
				if err != nil {
					return nil, err
				}
				out = append(out, m)
				i += 2
				merged = true
				continue
			}
			out = append(out, basins[i])
			i++
		}
		basins = out
		if !merged {
			break
		}
	}
	return basins, nil
}

func adjacent(cur, next *matrixbuild.BasinMatrix) bool {
	if cur.Bridge == nil {
		return false
	}
	_, ok := next.Index[*cur.Bridge]
	return ok
}

func combinedSize(cur, next *matrixbuild.BasinMatrix) int {
	return cur.N() + next.N() - 1
}

// stitch implements §4.H's cross-block merge: current's own R is kept
// as-is, next's R is kept for its nodes excluding the duplicate bridge
// row/column, and the cross block gives every surviving node of next that
// is a descendant of the bridge its correct cumulative residence back
// through current. The literal spec formula adds the bridge's own
// residence time twice (once from each side's copy of the bridge row); it
// is subtracted back out once here so the merged R matches what Build
// would have produced directly over the concatenated node list (see
// DESIGN.md).
func stitch(cur, next *matrixbuild.BasinMatrix, cutMinimum int) (*matrixbuild.BasinMatrix, error) {
	if !adjacent(cur, next) {
		return nil, rerr.Wrap("subset.stitch", rerr.ErrAttributeMissing, "basins are not bridge-adjacent")
	}
	bridgeLocalNext := next.Index[*cur.Bridge]

	curDense := cur.ToDense()
	nextDense := next.ToDense()
	m := cur.N()
	last := m - 1
	rtBridge := curDense[last][last]

	nextNodes := make([]int64, 0, next.N()-1)
	nextKeepIdx := make([]int, 0, next.N()-1)
	for i, id := range next.Nodes {
		if i == bridgeLocalNext {
			continue
		}
		nextNodes = append(nextNodes, id)
		nextKeepIdx = append(nextKeepIdx, i)
	}

	n := m + len(nextNodes)
	merged := make([][]float64, n)
	for i := range merged {
		merged[i] = make([]float64, n)
	}
	for i := 0; i < m; i++ {
		copy(merged[i][:m], curDense[i])
	}
	for i, ni := range nextKeepIdx {
		row := m + i
		for j, nj := range nextKeepIdx {
			merged[row][m+j] = nextDense[ni][nj]
		}
		if nextDense[ni][bridgeLocalNext] > 0 {
			for j := 0; j < m; j++ {
				if curDense[last][j] > 0 {
					merged[row][j] = curDense[last][j] + nextDense[ni][bridgeLocalNext] - rtBridge
				}
			}
		}
	}

	nodes := make([]int64, 0, n)
	nodes = append(nodes, cur.Nodes...)
	nodes = append(nodes, nextNodes...)

	basinIDs := make(map[int64]bool, len(cur.BasinIDs)+len(next.BasinIDs))
	for id := range cur.BasinIDs {
		basinIDs[id] = true
	}
	for id := range next.BasinIDs {
		basinIDs[id] = true
	}

	return matrixbuild.FromDense(nodes, next.Bridge, basinIDs, merged, cutMinimum)
}

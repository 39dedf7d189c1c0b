// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package partition implements the basin partitioner (§4.D): it splits a
// topologically ordered DAG into size-bounded mini-basins terminated by a
// single downstream bridge node, following the parent-count / reverse-walk
// / post-merge algorithm of the reference implementation exactly,
// including its tie-break rule that a node is only ever a cut point when
// it has exactly one parent (so confluences are never split).
package partition

// MiniBasin is a contiguous, topologically ordered subset of nodes,
// optionally terminated by a bridge node: the first downstream cell that
// belongs to the next mini-basin (§3). When Bridge is non-nil it equals
// the last element of Nodes.
type MiniBasin struct {
	Nodes  []int64
	Bridge *int64
}

// Parents and Children resolve upstream/downstream neighbours. Children
// returns at most one id for a river cell (§3: exactly one outgoing edge
// per non-terminal cell); a longer slice is tolerated by taking the first
// element, matching the reference implementation's "first_child" rule.
type Parents func(pixelID int64) []int64
type Children func(pixelID int64) []int64

// Split partitions order (a topological order over one or more full
// basins) into mini-basins bounded by cutSize.
func Split(order []int64, parentsOf Parents, childrenOf Children, cutSize int) []MiniBasin {
	parentCount := computeParentCount(order, parentsOf, cutSize)

	miniBasinID := make(map[int64]int, len(order))
	bridgeForID := make(map[int]*int64)
	var creationOrder []int
	nextID := 0

	for i := len(order) - 1; i >= 0; i-- {
		n := order[i]
		var child *int64
		if kids := childrenOf(n); len(kids) > 0 {
			c := kids[0]
			child = &c
		}
		if child != nil && parentCount[n] != -1 {
			miniBasinID[n] = miniBasinID[*child]
			continue
		}
		id := nextID
		nextID++
		miniBasinID[n] = id
		creationOrder = append(creationOrder, id)
		bridgeForID[id] = child
	}

	buckets := make(map[int][]int64, nextID)
	for _, n := range order {
		id := miniBasinID[n]
		buckets[id] = append(buckets[id], n)
	}
	for id, bridge := range bridgeForID {
		if bridge != nil {
			buckets[id] = append(buckets[id], *bridge)
		}
	}

	// output order: most-upstream basin first, sink-containing basin last,
	// i.e. the reverse of creation order (ids are created sink-first
	// during the reverse walk above).
	result := make([]MiniBasin, 0, len(creationOrder))
	for i := len(creationOrder) - 1; i >= 0; i-- {
		id := creationOrder[i]
		nodes := append([]int64(nil), buckets[id]...)
		result = append(result, MiniBasin{Nodes: nodes, Bridge: bridgeForID[id]})
	}

	return postMerge(result, cutSize)
}

// computeParentCount implements step 1 of §4.D: a running upstream-size
// counter that is reset to -1 (flagging a cut point) once it exceeds
// cutSize, but only at nodes with exactly one parent.
func computeParentCount(order []int64, parentsOf Parents, cutSize int) map[int64]int {
	parentCount := make(map[int64]int, len(order))
	for _, n := range order {
		parents := parentsOf(n)
		sum := 0
		for _, p := range parents {
			sum += parentCount[p]
		}
		pc := 1 + sum
		if pc > cutSize && len(parents) == 1 {
			pc = -1
		}
		parentCount[n] = pc
	}
	return parentCount
}

// postMerge implements step 4 of §4.D: repeatedly concatenate consecutive
// mini-basins whose combined size is within budget, until no more merges
// apply. "Consecutive" is adjacency in the upstream-to-downstream output
// order produced by Split.
func postMerge(basins []MiniBasin, cutSize int) []MiniBasin {
	merged := true
	for merged {
		merged = false
		out := make([]MiniBasin, 0, len(basins))
		i := 0
		for i < len(basins) {
			if i+1 < len(basins) && combinedSize(basins[i], basins[i+1]) <= cutSize {
				out = append(out, mergeTwo(basins[i], basins[i+1]))
				i += 2
				merged = true
				continue
			}
			out = append(out, basins[i])
			i++
		}
		basins = out
	}
	return basins
}

// indexOf returns the position of id within nodes, searching the whole
// slice rather than assuming a fixed position: a shared bridge node can
// land anywhere in a downstream mini-basin's Nodes once that basin also
// covers an uncut sibling branch that sorts ahead of it topologically.
func indexOf(nodes []int64, id int64) (int, bool) {
	for i, n := range nodes {
		if n == id {
			return i, true
		}
	}
	return 0, false
}

// combinedSize counts distinct nodes across two adjacent mini-basins,
// accounting for the shared bridge node (a's bridge reappears somewhere
// in b.Nodes) so it is not double-counted.
func combinedSize(a, b MiniBasin) int {
	if a.Bridge != nil {
		if _, ok := indexOf(b.Nodes, *a.Bridge); ok {
			return len(a.Nodes) + len(b.Nodes) - 1
		}
	}
	return len(a.Nodes) + len(b.Nodes)
}

func mergeTwo(a, b MiniBasin) MiniBasin {
	if a.Bridge != nil {
		if _, ok := indexOf(b.Nodes, *a.Bridge); ok {
			// Drop a's copy of the bridge and keep b's, so any of b's nodes
			// that feed the bridge still precede it.
			nodes := make([]int64, 0, len(a.Nodes)+len(b.Nodes)-1)
			for _, n := range a.Nodes {
				if n != *a.Bridge {
					nodes = append(nodes, n)
				}
			}
			nodes = append(nodes, b.Nodes...)
			return MiniBasin{Nodes: nodes, Bridge: b.Bridge}
		}
	}
	nodes := append(append([]int64(nil), a.Nodes...), b.Nodes...)
	return MiniBasin{Nodes: nodes, Bridge: b.Bridge}
}

// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package graph implements the directed-acyclic river graph store (§4.A):
// adjacency held by a gonum simple.DirectedGraph keyed by pixel id, with
// per-node attributes in a parallel Cell record. Iteration is never done
// by parent-pointer chasing on the hot path (§9) — callers precompute a
// topological order once and walk that slice.
package graph

import (
	"fmt"

	"github.com/icra/riverfate/rerr"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// Graph is the DAG of river cells.
type Graph struct {
	g     *simple.DirectedGraph
	cells map[int64]*Cell

	order      []int64 // cached topological order; nil until TopologicalOrder is called
	orderValid bool
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		g:     simple.NewDirectedGraph(),
		cells: make(map[int64]*Cell),
	}
}

// AddCell inserts or replaces the attribute record for a pixel, adding the
// corresponding node to the underlying graph if absent.
func (gr *Graph) AddCell(c Cell) {
	if _, ok := gr.cells[c.PixelID]; !ok {
		gr.g.AddNode(cellNode(c.PixelID))
	}
	cc := c
	gr.cells[c.PixelID] = &cc
	gr.orderValid = false
}

// AddEdge adds a directed downstream edge from one pixel to another. Both
// endpoints must already have been added via AddCell.
func (gr *Graph) AddEdge(from, to int64) error {
	if _, ok := gr.cells[from]; !ok {
		return rerr.Wrap("graph.AddEdge", rerr.ErrAttributeMissing, "unknown source pixel %d", from)
	}
	if _, ok := gr.cells[to]; !ok {
		return rerr.Wrap("graph.AddEdge", rerr.ErrAttributeMissing, "unknown target pixel %d", to)
	}
	gr.g.SetEdge(gr.g.NewEdge(cellNode(from), cellNode(to)))
	gr.orderValid = false
	return nil
}

// Cell returns the attribute record for a pixel.
func (gr *Graph) Cell(id int64) (*Cell, bool) {
	c, ok := gr.cells[id]
	return c, ok
}

// NumNodes returns the number of cells currently in the graph.
func (gr *Graph) NumNodes() int { return len(gr.cells) }

// Predecessors returns the upstream neighbours of a node (lazy in the
// sense that it is computed on demand from the adjacency structure, not
// cached): the nodes with an edge into id.
func (gr *Graph) Predecessors(id int64) []int64 {
	it := gr.g.To(id)
	var out []int64
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	return out
}

// Successors returns the downstream neighbours of a node: the nodes with
// an edge out of id. Exactly one, for a non-terminal river cell.
func (gr *Graph) Successors(id int64) []int64 {
	it := gr.g.From(id)
	var out []int64
	for it.Next() {
		out = append(out, it.Node().ID())
	}
	return out
}

// TopologicalOrder returns pixel ids ordered so that every parent precedes
// its children, parents before children. The order is cached and is
// stable between calls on an unmodified graph: ties are broken by pixel
// id via topo.SortStabilized, since gonum's plain topo.Sort iterates a
// graph whose underlying node set is a map and offers no such guarantee.
func (gr *Graph) TopologicalOrder() ([]int64, error) {
	if gr.orderValid {
		return gr.order, nil
	}
	sorted, err := topo.SortStabilized(gr.g, func(a, b graph.Node) bool {
		return a.ID() < b.ID()
	})
	if err != nil {
		return nil, rerr.Wrap("graph.TopologicalOrder", rerr.ErrGraphNotAcyclic, "%v", err)
	}
	order := make([]int64, len(sorted))
	for i, n := range sorted {
		order[i] = n.ID()
	}
	gr.order = order
	gr.orderValid = true
	return order, nil
}

// Subgraph returns a restricted view containing only the given node ids
// and the edges between them, preserving topological order (§4.A).
func (gr *Graph) Subgraph(nodeSet map[int64]bool) (*Graph, error) {
	out := New()
	for id := range nodeSet {
		c, ok := gr.cells[id]
		if !ok {
			return nil, rerr.Wrap("graph.Subgraph", rerr.ErrAttributeMissing, "pixel %d not in graph", id)
		}
		out.AddCell(*c)
	}
	for id := range nodeSet {
		for _, s := range gr.Successors(id) {
			if nodeSet[s] {
				if err := out.AddEdge(id, s); err != nil {
					return nil, err
				}
			}
		}
	}
	return out, nil
}

// Projection is a narrow parallel-array view over selected attributes,
// returned by Project so a full-graph load does not have to pull every
// field when only a few are needed (§4.A).
type Projection struct {
	PixelID      []int64
	ResidenceHR  []float64
	DischargeCMH []float64
	BasinID      []int64
}

// AttrKey names one of the fields Project can load.
type AttrKey string

const (
	AttrResidence AttrKey = "residence_time_h"
	AttrDischarge AttrKey = "discharge_cmh"
	AttrBasin     AttrKey = "basin_id"
)

// Project returns a Projection populated only for the requested keys,
// walking the graph in topological order. AttributeMissing is returned if
// a requested key is not one Project knows how to serve.
func (gr *Graph) Project(keys ...AttrKey) (*Projection, error) {
	order, err := gr.TopologicalOrder()
	if err != nil {
		return nil, err
	}
	want := make(map[AttrKey]bool, len(keys))
	for _, k := range keys {
		switch k {
		case AttrResidence, AttrDischarge, AttrBasin:
			want[k] = true
		default:
			return nil, rerr.Wrap("graph.Project", rerr.ErrAttributeMissing, "unknown attribute key %q", k)
		}
	}
	p := &Projection{PixelID: make([]int64, len(order))}
	if want[AttrResidence] {
		p.ResidenceHR = make([]float64, len(order))
	}
	if want[AttrDischarge] {
		p.DischargeCMH = make([]float64, len(order))
	}
	if want[AttrBasin] {
		p.BasinID = make([]int64, len(order))
	}
	for i, id := range order {
		c := gr.cells[id]
		p.PixelID[i] = id
		if want[AttrResidence] {
			p.ResidenceHR[i] = c.ResidenceHR
		}
		if want[AttrDischarge] {
			p.DischargeCMH[i] = c.DischargeCMH
		}
		if want[AttrBasin] {
			p.BasinID[i] = c.BasinID
		}
	}
	return p, nil
}

// String implements fmt.Stringer for debugging.
func (gr *Graph) String() string {
	return fmt.Sprintf("graph.Graph{nodes=%d}", gr.NumNodes())
}

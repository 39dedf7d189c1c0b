// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package runner applies a stack of matrixbuild.BasinMatrix blocks, in
// upstream-to-downstream order, to a map of pixel loads, carrying
// concentration across each bridge node exactly as §4.F describes: the
// value handed to the downstream basin is the upstream basin's bridge
// output divided back out of its own diagonal decay, so the downstream
// basin's row for that same pixel reapplies the decay once, not twice.
package runner

import (
	"context"
	"sync"

	"github.com/icra/riverfate/matrixbuild"
	"github.com/icra/riverfate/rerr"
	"golang.org/x/sync/errgroup"
)

// Run evaluates every basin in basins (must already be in upstream-first
// order, as partition.Split produces) at rate k against loads, a sparse
// map of source-pixel id to source strength, and returns the resulting
// concentration at every pixel the basins cover.
func Run(basins []*matrixbuild.BasinMatrix, k float64, loads map[int64]float64) map[int64]float64 {
	C := make(map[int64]float64)
	carry := make(map[int64]float64)

	for _, bm := range basins {
		n := bm.N()
		x := make([]float64, n)
		for i, id := range bm.Nodes {
			if v, ok := carry[id]; ok {
				x[i] = v
				continue
			}
			x[i] = loads[id]
		}

		a := bm.Attenuate(k)
		out := bm.ApplyVec(a, x)
		for i, id := range bm.Nodes {
			C[id] = out[i]
		}

		if bm.Bridge != nil {
			last := n - 1
			if diag := a.Diag(last); diag != 0 {
				carry[*bm.Bridge] = out[last] / diag
			}
		}
	}
	return C
}

// RunParallel evaluates mini-basins concurrently (§5): a basin with no
// node waiting on anyone's bridge starts immediately, every other basin
// blocks, node by node, on a per-bridge channel until its upstream
// producer finishes. Each goroutine calls bm.Attenuate itself, so no two
// goroutines ever share an attenuated data array (§5's "no shared A.data
// across concurrent evaluations").
func RunParallel(ctx context.Context, basins []*matrixbuild.BasinMatrix, k float64, loads map[int64]float64) (map[int64]float64, error) {
	bridgeChan := make(map[int64]chan float64, len(basins))
	for _, bm := range basins {
		if bm.Bridge != nil {
			bridgeChan[*bm.Bridge] = make(chan float64, 1)
		}
	}

	var mu sync.Mutex
	C := make(map[int64]float64)

	g, gctx := errgroup.WithContext(ctx)
	for _, bm := range basins {
		bm := bm
		g.Go(func() error {
			n := bm.N()
			x := make([]float64, n)
			for i, id := range bm.Nodes {
				ch, waiting := bridgeChan[id]
				if !waiting || (bm.Bridge != nil && id == *bm.Bridge) {
					x[i] = loads[id]
					continue
				}
				select {
				case v := <-ch:
					x[i] = v
				case <-gctx.Done():
					return gctx.Err()
				}
			}

			a := bm.Attenuate(k)
			out := bm.ApplyVec(a, x)

			mu.Lock()
			for i, id := range bm.Nodes {
				C[id] = out[i]
			}
			mu.Unlock()

			if bm.Bridge != nil {
				last := n - 1
				diag := a.Diag(last)
				if diag != 0 {
					bridgeChan[*bm.Bridge] <- out[last] / diag
				} else {
					bridgeChan[*bm.Bridge] <- 0
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, rerr.Wrap("runner.RunParallel", err, "mini-basin evaluation failed")
	}
	return C, nil
}

// ExtractColumn isolates one source pixel's downstream fingerprint: the
// response at every reachable pixel to a unit load placed at sourcePixel
// alone, attenuated at rate k (§4.F). It walks basin-by-basin downstream
// from the basin containing sourcePixel, carrying the column's bridge
// entry divided by the bridge's own diagonal forward, exactly as Run
// carries concentration.
func ExtractColumn(basins []*matrixbuild.BasinMatrix, k float64, sourcePixel int64) (map[int64]float64, error) {
	start := -1
	localIdx := 0
	for i, bm := range basins {
		if li, ok := bm.Index[sourcePixel]; ok {
			start = i
			localIdx = li
			break
		}
	}
	if start == -1 {
		return nil, rerr.Wrap("runner.ExtractColumn", rerr.ErrSourcePixelNotInGraph, "source pixel not found in any basin")
	}

	resp := make(map[int64]float64)
	carry := 1.0
	entryID := sourcePixel
	curLocal := localIdx

	for i := start; i < len(basins); i++ {
		bm := basins[i]
		if i > start {
			li, ok := bm.Index[entryID]
			if !ok {
				break
			}
			curLocal = li
		}

		a := bm.Attenuate(k)
		col := a.Column(curLocal, bm.N())

		for j, id := range bm.Nodes {
			resp[id] = col[j] * carry
		}

		if bm.Bridge == nil {
			break
		}
		last := bm.N() - 1
		denom := a.Diag(last)
		if denom == 0 {
			break
		}
		carry *= col[last] / denom
		entryID = *bm.Bridge
	}
	return resp, nil
}

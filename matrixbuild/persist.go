// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matrixbuild

import (
	"encoding/gob"
	"io"

	"github.com/cpmech/gosl/la"
	"github.com/icra/riverfate/rerr"
)

// bundleRecord is the on-disk shape of one BasinMatrix: R's cumulative
// residence times in the node order it was built with, recorded so that
// exp(-k*R.data) can be recomputed after reload without rebuilding R from
// the graph. Data is stored as float32 (§6: "data is 32-bit float");
// Attenuate always works in float64, so LoadBundle widens it back on the
// way in.
type bundleRecord struct {
	Nodes    []int64
	Index    map[int64]int
	Bridge   *int64
	BasinIDs map[int64]bool

	Dense []float32 // row-major n*n, empty if built sparse
	N     int

	SparseM, SparseN int
	Ap, Ai           []int
	Data             []float32 // empty if built dense
}

// SaveBundle writes one gob-encoded record per basin, in order, to w.
func SaveBundle(w io.Writer, basins []*BasinMatrix) error {
	enc := gob.NewEncoder(w)
	for _, bm := range basins {
		rec := bundleRecord{
			Nodes:    bm.Nodes,
			Index:    bm.Index,
			Bridge:   bm.Bridge,
			BasinIDs: bm.BasinIDs,
			N:        bm.N(),
		}
		if bm.Dense != nil {
			n := bm.N()
			rec.Dense = make([]float32, n*n)
			for i := 0; i < n; i++ {
				for j := 0; j < n; j++ {
					rec.Dense[i*n+j] = float32(bm.Dense[i][j])
				}
			}
		} else {
			rec.SparseM, rec.SparseN = bm.Sparse.M, bm.Sparse.N
			rec.Ap = bm.Sparse.Ap
			rec.Ai = bm.Sparse.Ai
			rec.Data = make([]float32, len(bm.RTData))
			for i, v := range bm.RTData {
				rec.Data[i] = float32(v)
			}
		}
		if err := enc.Encode(&rec); err != nil {
			return rerr.Wrap("matrixbuild.SaveBundle", rerr.ErrAttributeMissing, "%v", err)
		}
	}
	return nil
}

// LoadBundle reads back every record SaveBundle wrote, reconstructing each
// BasinMatrix with float64 data ready for Attenuate.
func LoadBundle(r io.Reader) ([]*BasinMatrix, error) {
	dec := gob.NewDecoder(r)
	var out []*BasinMatrix
	for {
		var rec bundleRecord
		err := dec.Decode(&rec)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerr.Wrap("matrixbuild.LoadBundle", rerr.ErrMatrixBundleStale, "%v", err)
		}

		bm := &BasinMatrix{
			Nodes:    rec.Nodes,
			Index:    rec.Index,
			Bridge:   rec.Bridge,
			BasinIDs: rec.BasinIDs,
		}
		if rec.Dense != nil {
			n := rec.N
			dense := make([][]float64, n)
			for i := 0; i < n; i++ {
				dense[i] = make([]float64, n)
				for j := 0; j < n; j++ {
					dense[i][j] = float64(rec.Dense[i*n+j])
				}
			}
			bm.Dense = dense
		} else {
			rt := make([]float64, len(rec.Data))
			for i, v := range rec.Data {
				rt[i] = float64(v)
			}
			bm.RTData = rt
			bm.Sparse = &la.CCMatrix{
				M: rec.SparseM, N: rec.SparseN,
				Ap: rec.Ap, Ai: rec.Ai, Ax: append([]float64(nil), rt...),
			}
		}
		out = append(out, bm)
	}
	return out, nil
}

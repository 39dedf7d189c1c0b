// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matrixbuild

import (
	"math"

	"github.com/cpmech/gosl/la"
)

// Attenuation is A := exp(-k*R) masked to R's nonzero pattern (§4.E),
// sharing the sparsity pattern of its BasinMatrix but holding an
// independently-owned data array, so two evaluations at different k
// never race over the same underlying slice (§5).
type Attenuation struct {
	Dense  [][]float64  // mirrors BasinMatrix.Dense's shape, nil if sparse
	Sparse *la.CCMatrix // same Ap/Ai as the owning BasinMatrix.Sparse, fresh Ax
}

// Attenuate rewrites only the data array, never the sparsity structure
// (§4.E: "A.data = exp(-k * R.data)").
func (bm *BasinMatrix) Attenuate(k float64) *Attenuation {
	if bm.Dense != nil {
		n := len(bm.Dense)
		out := make([][]float64, n)
		for i := 0; i < n; i++ {
			out[i] = make([]float64, n)
			for j := 0; j < n; j++ {
				if bm.Dense[i][j] > 0 {
					out[i][j] = math.Exp(-k * bm.Dense[i][j])
				}
			}
		}
		return &Attenuation{Dense: out}
	}
	ax := make([]float64, len(bm.RTData))
	for i, rt := range bm.RTData {
		ax[i] = math.Exp(-k * rt)
	}
	cc := &la.CCMatrix{
		M: bm.Sparse.M, N: bm.Sparse.N,
		Ap: bm.Sparse.Ap, Ai: bm.Sparse.Ai, Ax: ax,
	}
	return &Attenuation{Sparse: cc}
}

// ApplyVec computes out = A*x for x indexed by this BasinMatrix's local node
// order (length N).
func (bm *BasinMatrix) ApplyVec(a *Attenuation, x []float64) []float64 {
	n := bm.N()
	out := make([]float64, n)
	if a.Dense != nil {
		for i := 0; i < n; i++ {
			var sum float64
			for j := 0; j < n; j++ {
				sum += a.Dense[i][j] * x[j]
			}
			out[i] = sum
		}
		return out
	}
	cc := a.Sparse
	for j := 0; j < n; j++ {
		xj := x[j]
		if xj == 0 {
			continue
		}
		for p := cc.Ap[j]; p < cc.Ap[j+1]; p++ {
			out[cc.Ai[p]] += cc.Ax[p] * xj
		}
	}
	return out
}

// Diag returns A[i,i], the self-decay factor of the i-th node in local
// order (always present: the builder guarantees a positive diagonal).
func (a *Attenuation) Diag(i int) float64 {
	if a.Dense != nil {
		return a.Dense[i][i]
	}
	cc := a.Sparse
	for p := cc.Ap[i]; p < cc.Ap[i+1]; p++ {
		if cc.Ai[p] == i {
			return cc.Ax[p]
		}
	}
	return 0
}

// Column returns column j of A (length N), the downstream response to a
// unit load placed at local index j — used by extract_column (§4.F).
func (a *Attenuation) Column(j, n int) []float64 {
	out := make([]float64, n)
	if a.Dense != nil {
		for i := 0; i < n; i++ {
			out[i] = a.Dense[i][j]
		}
		return out
	}
	cc := a.Sparse
	for p := cc.Ap[j]; p < cc.Ap[j+1]; p++ {
		out[cc.Ai[p]] = cc.Ax[p]
	}
	return out
}

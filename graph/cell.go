// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

// Cell holds the per-node attributes of one river pixel. It replaces the
// reference implementation's string-keyed attribute bag with a compact
// typed record (§9 design note): ancillary or scenario-specific fields
// that do not belong on the hot path live in parallel arrays keyed by
// node index instead of on this struct.
type Cell struct {
	PixelID      int64   // row*ncols + col in the reference raster
	Row, Col     int     // grid coordinates
	Lat, Lon     float64 // geographic coordinates
	ResidenceHR  float64 // hours of water transit through this cell
	DischargeCMH float64 // cubic metres per hour, floored at MinDischarge
	BasinID      int64   // weakly-connected component id

	HasLake    bool
	LakeID     int64
	LakeVolume float64
}

// cellNode adapts a PixelID to gonum's graph.Node interface.
type cellNode int64

func (n cellNode) ID() int64 { return int64(n) }

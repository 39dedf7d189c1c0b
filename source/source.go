// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package source implements the discharge-point load model (§4.B):
// converting a table of treatment-plant and un-sewered-population records
// into a per-node initial load vector, given per-source treatment
// efficacies and an excretion multiplier.
package source

import (
	"log/slog"

	"github.com/icra/riverfate"
)

// Treatment level tags (§3).
const (
	TreatmentNone = iota
	TreatmentPrimary
	TreatmentSecondary
	TreatmentTertiary
)

// Record is one discharge point from the source table.
type Record struct {
	PixelID    int64
	Treatment  int // 0..3
	TreatA     float64
	FiltA      float64
	UnfiltA    float64
	Pollution  float64 // multiplier, default 1
	CountryID  int
	Lat, Lon   float64
}

// Params collects the parameters the load formula depends on, beyond the
// treatment efficacy table carried by riverfate.Config.
type Params struct {
	K         float64 // attenuation rate; unused by the load formula itself but threaded for API symmetry with propagate/calib
	Excretion float64
}

// BuildLoadVector computes the sparse per-pixel load vector of §4.B:
//
//	load_i = pollution_i * excretion * [
//	    (1-eff[level_i])*treat_a_i + (1-filt_eff)*filt_a_i + unfilt_a_i ]
//
// Loads sharing a pixel id are summed. Records whose pixel is absent from
// validPixels (when non-nil) are dropped and counted, not treated as
// fatal (§7 SourcePixelNotInGraph is non-fatal).
func BuildLoadVector(records []Record, cfg riverfate.Config, p Params, validPixels map[int64]bool) (loads map[int64]float64, dropped int) {
	eff := cfg.EfficacyTable()
	loads = make(map[int64]float64, len(records))
	for _, r := range records {
		if validPixels != nil && !validPixels[r.PixelID] {
			dropped++
			continue
		}
		level := r.Treatment
		if level < 0 || level > 3 {
			level = 0
		}
		routed := (1 - eff[level]) * r.TreatA
		filtered := (1 - cfg.FilterEfficacy) * r.FiltA
		unfiltered := r.UnfiltA
		pollution := r.Pollution
		if pollution == 0 {
			pollution = 1
		}
		load := pollution * p.Excretion * (routed + filtered + unfiltered)
		loads[r.PixelID] += load
	}
	if dropped > 0 {
		slog.Warn("dropped source rows referencing pixels not present in graph", "count", dropped)
	}
	return loads, dropped
}

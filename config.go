// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package riverfate holds the configuration shared across the core
// packages (§6 Configuration) and the thin wiring used by cmd/riverfate.
// Scenario-file ingestion, raster/shapefile I/O and CLI orchestration
// proper stay external collaborators (§1) — this package only carries
// the enumerated knobs the core packages read.
package riverfate

// WeightedLoss selects how the calibrator's objective weights residuals.
type WeightedLoss int

const (
	// LossUnweighted sums squared errors with no weighting.
	LossUnweighted WeightedLoss = iota
	// LossSqrtDischarge weights both predictions and observations by
	// sqrt(discharge / mean(discharge)) before computing squared error.
	LossSqrtDischarge
)

// Config enumerates the model parameters of §6.
type Config struct {
	PrimaryEfficacy   float64 // default 0.33
	SecondaryEfficacy float64 // default 0.70
	TertiaryEfficacy  float64 // default 0.92
	FilterEfficacy    float64 // default 1.0

	CutSize    int // mini-basin size budget, e.g. 5000
	CutMinimum int // sparsification threshold, e.g. 0-5000

	MinDischargeCMH float64 // floor for discharge_cmh, e.g. 0.01 m3/s converted to m3/h by caller

	WeightedLoss WeightedLoss
}

// DefaultConfig returns the configuration defaults enumerated in §6.
func DefaultConfig() Config {
	return Config{
		PrimaryEfficacy:   0.33,
		SecondaryEfficacy: 0.70,
		TertiaryEfficacy:  0.92,
		FilterEfficacy:    1.0,
		CutSize:           5000,
		CutMinimum:        0,
		MinDischargeCMH:   0.01 * 3600, // 0.01 m3/s -> m3/h
		WeightedLoss:      LossUnweighted,
	}
}

// EfficacyTable returns efficacy indexed by treatment level 0..3.
func (c Config) EfficacyTable() [4]float64 {
	return [4]float64{0, c.PrimaryEfficacy, c.SecondaryEfficacy, c.TertiaryEfficacy}
}

// EpsilonResidence is the ε floor applied to a zero residence time so the
// "connection present" predicate R>0 stays distinguishable from zero
// (§3, §4.E).
const EpsilonResidence = 1e-6

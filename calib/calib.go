// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package calib implements the calibrator (§4.G): a bounded Nelder-Mead
// fit of the in-stream attenuation rate against observed concentrations,
// with a closed-form excretion multiplier folded into each evaluation.
package calib

import (
	"context"
	"math"

	"github.com/icra/riverfate"
	"github.com/icra/riverfate/propagate"
	"github.com/icra/riverfate/rerr"
	"github.com/icra/riverfate/source"
	"gonum.org/v1/gonum/optimize"
)

// KBounds are the hard bounds on the attenuation rate (§6, §4.G).
var KBounds = [2]float64{0, 0.05}

// Dataset is the calibrator's fixed state (§4.G): the graph already
// restricted to basins touching any observation pixel, its topological
// order computed once, and the observed concentrations to fit against.
type Dataset struct {
	Order        []int64
	Parents      propagate.Predecessors
	ResidenceHR  map[int64]float64
	DischargeCMH map[int64]float64
	ValidPixels  map[int64]bool

	Records []source.Record

	ObsPixels []int64
	Observed  map[int64]float64 // pixel -> observed concentration
}

// Evaluation is one objective-function outcome, the §4.G step-4 record
// ("persist (L/L_null, [k, excretion*], predictions, discharges) to disk
// for post-hoc use"). Report and Snapshot both build on it.
type Evaluation struct {
	K           float64
	Excretion   float64
	Loss        float64
	LossNull    float64
	Predictions map[int64]float64
	Discharges  map[int64]float64
}

// RSquared returns 1 - L/L_null, or 1 when L_null is zero (perfect,
// constant observations).
func (e Evaluation) RSquared() float64 {
	if e.LossNull == 0 {
		return 1
	}
	return 1 - e.Loss/e.LossNull
}

// weight returns the discharge weighting factor for a pixel with the given
// discharge under cfg's
// WeightedLoss selection (§4.G step 3).
func weight(cfg riverfate.Config, discharge, meanDischarge float64) float64 {
	if cfg.WeightedLoss != riverfate.LossSqrtDischarge || meanDischarge == 0 {
		return 1
	}
	return math.Sqrt(discharge / meanDischarge)
}

// Evaluate runs the objective of §4.G at attenuation rate k: propagate at
// excretion=1, fit the closed-form excretion multiplier, and score the
// result against ds.Observed.
func Evaluate(ds Dataset, cfg riverfate.Config, k float64) (Evaluation, error) {
	loads, _ := source.BuildLoadVector(ds.Records, cfg, source.Params{K: k, Excretion: 1}, ds.ValidPixels)

	result := propagate.Run(propagate.Inputs{
		Order:        ds.Order,
		Parents:      ds.Parents,
		Loads:        loads,
		ResidenceHR:  ds.ResidenceHR,
		DischargeCMH: ds.DischargeCMH,
	}, k, false)

	n := len(ds.ObsPixels)
	if n == 0 {
		return Evaluation{}, rerr.Wrap("calib.Evaluate", rerr.ErrAttributeMissing, "no observation pixels")
	}

	pred := make([]float64, n)
	obs := make([]float64, n)
	discharge := make([]float64, n)
	var sumPredObs, sumPredSq, sumDischarge, sumObs float64
	for i, px := range ds.ObsPixels {
		pred[i] = result.RelC[px]
		obs[i] = ds.Observed[px]
		discharge[i] = ds.DischargeCMH[px]
		sumPredObs += pred[i] * obs[i]
		sumPredSq += pred[i] * pred[i]
		sumDischarge += discharge[i]
		sumObs += obs[i]
	}

	excretion := 0.0
	if sumPredSq != 0 {
		excretion = sumPredObs / sumPredSq
	}
	meanDischarge := sumDischarge / float64(n)
	meanObs := sumObs / float64(n)

	predictions := make(map[int64]float64, n)
	discharges := make(map[int64]float64, n)
	var loss, lossNull float64
	for i, px := range ds.ObsPixels {
		p := pred[i] * excretion
		w := weight(cfg, discharge[i], meanDischarge)
		d := w*p - w*obs[i]
		loss += d * d
		dn := w*meanObs - w*obs[i]
		lossNull += dn * dn

		predictions[px] = p
		discharges[px] = discharge[i]
	}

	return Evaluation{
		K:           k,
		Excretion:   excretion,
		Loss:        loss,
		LossNull:    lossNull,
		Predictions: predictions,
		Discharges:  discharges,
	}, nil
}

// Result is the terminal report of §4.G: fitted parameters, goodness of
// fit, and whether the Nelder-Mead driver hit its iteration cap.
type Result struct {
	FittedK         float64
	FittedExcretion float64
	RSquared        float64
	Nonconverged    bool
	Best            Evaluation
}

// clamp projects x into [lo, hi], implementing §4.G's box bounds without
// relying on the optimizer itself to enforce them (gonum's NelderMead has
// no native bound support).
func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// Calibrate drives a bounded Nelder-Mead search over (k, _) against ds,
// invoking snapshot after every objective evaluation with the
// lowest-loss evaluation so far, so the caller can persist the
// best-so-far state (§5: atomic per-iteration persistence).
// The second parameter of the objective is inert (§9 open question): it
// starts at 0, is not clamped, and plays no role in Evaluate.
func Calibrate(ctx context.Context, ds Dataset, cfg riverfate.Config, initialK float64, maxIterations int, snapshot func(Evaluation)) (Result, error) {
	var best Evaluation
	haveBest := false
	var evalErr error

	obj := func(x []float64) float64 {
		k := clamp(x[0], KBounds[0], KBounds[1])
		ev, err := Evaluate(ds, cfg, k)
		if err != nil {
			evalErr = err
			return math.Inf(1)
		}
		if !haveBest || ev.Loss < best.Loss {
			best = ev
			haveBest = true
		}
		if snapshot != nil {
			snapshot(best)
		}
		return ev.Loss
	}

	p := optimize.Problem{Func: obj}
	settings := &optimize.Settings{
		MajorIterations: maxIterations,
		Recorder:        &cancelRecorder{ctx: ctx},
	}
	x0 := []float64{clamp(initialK, KBounds[0], KBounds[1]), 0}

	res, err := optimize.Minimize(p, x0, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return Result{}, rerr.Wrap("calib.Calibrate", evalErr, "objective evaluation failed")
	}
	if err != nil {
		if ctx.Err() != nil {
			return Result{Best: best}, rerr.Wrap("calib.Calibrate", ctx.Err(), "calibration cancelled")
		}
		return Result{}, rerr.Wrap("calib.Calibrate", rerr.ErrCalibrationNonconverge, "%v", err)
	}

	nonconverged := res != nil && (res.Status == optimize.IterationLimit || res.Status == optimize.FuncEvaluationLimit)

	return Result{
		FittedK:         best.K,
		FittedExcretion: best.Excretion,
		RSquared:        best.RSquared(),
		Nonconverged:    nonconverged,
		Best:            best,
	}, nil
}

// cancelRecorder aborts the optimizer between evaluations once ctx is
// done (§5: "expose a cancellation check between objective evaluations").
type cancelRecorder struct {
	ctx context.Context
}

func (c *cancelRecorder) Init() error { return nil }

func (c *cancelRecorder) Record(loc *optimize.Location, op optimize.Operation, stats *optimize.Stats) error {
	select {
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		return nil
	}
}

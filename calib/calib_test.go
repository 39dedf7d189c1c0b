// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import (
	"context"
	"testing"

	"github.com/icra/riverfate"
	"github.com/icra/riverfate/propagate"
	"github.com/icra/riverfate/source"
	"github.com/stretchr/testify/require"
)

func chainDataset(n int) Dataset {
	order := make([]int64, n)
	rt := make(map[int64]float64, n)
	discharge := make(map[int64]float64, n)
	for i := 0; i < n; i++ {
		order[i] = int64(i + 1)
		rt[int64(i+1)] = 2.0
		discharge[int64(i+1)] = 1000.0
	}
	parents := func(id int64) []int64 {
		if id == 1 {
			return nil
		}
		return []int64{id - 1}
	}
	records := []source.Record{{PixelID: 1, Treatment: 0, TreatA: 100.0, Pollution: 1}}

	obsPixels := make([]int64, 0, n-1)
	for i := 2; i <= n; i++ {
		obsPixels = append(obsPixels, int64(i))
	}

	return Dataset{
		Order:        order,
		Parents:      parents,
		ResidenceHR:  rt,
		DischargeCMH: discharge,
		Records:      records,
		ObsPixels:    obsPixels,
	}
}

// TestCalibrateRecoversSyntheticParameters is the scenario of §8 "5.
// Calibration on synthetic data": predictions generated under k*=0.01,
// excretion*=1.7, zero noise, must be recovered from a deliberately
// off-initial k.
func TestCalibrateRecoversSyntheticParameters(t *testing.T) {
	const trueK = 0.01
	const trueExcretion = 1.7

	ds := chainDataset(5)
	cfg := riverfate.DefaultConfig()

	loads, _ := source.BuildLoadVector(ds.Records, cfg, source.Params{Excretion: 1}, nil)
	truth := propagate.Run(propagate.Inputs{
		Order:        ds.Order,
		Parents:      ds.Parents,
		Loads:        loads,
		ResidenceHR:  ds.ResidenceHR,
		DischargeCMH: ds.DischargeCMH,
	}, trueK, false)

	ds.Observed = make(map[int64]float64, len(ds.ObsPixels))
	for _, px := range ds.ObsPixels {
		ds.Observed[px] = truth.RelC[px] * trueExcretion
	}

	res, err := Calibrate(context.Background(), ds, cfg, 0.005, 500, nil)
	require.NoError(t, err)

	require.InDelta(t, trueK, res.FittedK, 1e-4)
	require.InDelta(t, trueExcretion, res.FittedExcretion, 1e-3)
	require.GreaterOrEqual(t, res.RSquared, 1-1e-6)
	require.False(t, res.Nonconverged)
}

func TestEvaluateRejectsEmptyObsPixels(t *testing.T) {
	ds := chainDataset(5)
	ds.ObsPixels = nil
	_, err := Evaluate(ds, riverfate.DefaultConfig(), 0.01)
	require.Error(t, err)
}

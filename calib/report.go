// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"

	"github.com/icra/riverfate/rerr"
)

// WriteReport writes the summary CSV of §6: one row each for R², excretion,
// and attenuation, one column per calibrated contaminant.
func WriteReport(w io.Writer, results map[string]Result) error {
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	cw := csv.NewWriter(w)
	header := append([]string{""}, names...)
	if err := cw.Write(header); err != nil {
		return rerr.Wrap("calib.WriteReport", rerr.ErrAttributeMissing, "%v", err)
	}

	rows := []struct {
		label string
		get   func(Result) float64
	}{
		{"R2", func(r Result) float64 { return r.RSquared }},
		{"excretion", func(r Result) float64 { return r.FittedExcretion }},
		{"attenuation", func(r Result) float64 { return r.FittedK }},
	}
	for _, row := range rows {
		rec := make([]string, 0, len(names)+1)
		rec = append(rec, row.label)
		for _, name := range names {
			rec = append(rec, fmt.Sprintf("%g", row.get(results[name])))
		}
		if err := cw.Write(rec); err != nil {
			return rerr.Wrap("calib.WriteReport", rerr.ErrAttributeMissing, "%v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// PointRow is one gauged-location record for the per-contaminant
// prediction table of §6 ({Prediction, Observations, discharge, lat, lon,
// Error, weighted_error}).
type PointRow struct {
	PixelID       int64
	Prediction    float64
	Observation   float64
	DischargeCMH  float64
	Lat, Lon      float64
	Error         float64
	WeightedError float64
}

// WritePredictionTable writes the per-point CSV backing the shapefile
// output of §6 (shapefile encoding itself stays an external collaborator,
// §1); the row assembly here is the part that belongs to the core.
func WritePredictionTable(w io.Writer, rows []PointRow) error {
	cw := csv.NewWriter(w)
	header := []string{"pixel_id", "prediction", "observation", "discharge_cmh", "lat", "lon", "error", "weighted_error"}
	if err := cw.Write(header); err != nil {
		return rerr.Wrap("calib.WritePredictionTable", rerr.ErrAttributeMissing, "%v", err)
	}
	for _, r := range rows {
		rec := []string{
			fmt.Sprintf("%d", r.PixelID),
			fmt.Sprintf("%g", r.Prediction),
			fmt.Sprintf("%g", r.Observation),
			fmt.Sprintf("%g", r.DischargeCMH),
			fmt.Sprintf("%g", r.Lat),
			fmt.Sprintf("%g", r.Lon),
			fmt.Sprintf("%g", r.Error),
			fmt.Sprintf("%g", r.WeightedError),
		}
		if err := cw.Write(rec); err != nil {
			return rerr.Wrap("calib.WritePredictionTable", rerr.ErrAttributeMissing, "%v", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package source

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/icra/riverfate/rerr"
)

// LoadRecords reads the source table of §6: columns
// pixel_number,Treatment_level,treat_a,filt_a,unfilt_a,pollution,country_id,lat,lon.
// encoding/csv is the stdlib parser: no example repo in the retrieval pack
// ships a delimited-table reader, so this boundary stays on the standard
// library (see DESIGN.md).
func LoadRecords(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.Wrap("source.LoadRecords", rerr.ErrAttributeMissing, "cannot open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, rerr.Wrap("source.LoadRecords", rerr.ErrAttributeMissing, "empty source table %s", path)
	}
	col := indexHeader(header)
	for _, rq := range []string{"pixel_number", "Treatment_level", "treat_a", "filt_a", "unfilt_a"} {
		if _, ok := col[rq]; !ok {
			return nil, rerr.Wrap("source.LoadRecords", rerr.ErrAttributeMissing, "column %q missing from %s", rq, path)
		}
	}

	var out []Record
	for rowNum := 2; ; rowNum++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerr.Wrap("source.LoadRecords", rerr.ErrAttributeMissing, "malformed row in %s: %v", path, err)
		}

		var rrow Record
		if rrow.PixelID, err = field(path, rowNum, "pixel_number", mustInt64(rec[col["pixel_number"]])); err != nil {
			return nil, err
		}
		if rrow.Treatment, err = field(path, rowNum, "Treatment_level", mustInt(rec[col["Treatment_level"]])); err != nil {
			return nil, err
		}
		if rrow.TreatA, err = field(path, rowNum, "treat_a", mustFloat(rec[col["treat_a"]])); err != nil {
			return nil, err
		}
		if rrow.FiltA, err = field(path, rowNum, "filt_a", mustFloat(rec[col["filt_a"]])); err != nil {
			return nil, err
		}
		if rrow.UnfiltA, err = field(path, rowNum, "unfilt_a", mustFloat(rec[col["unfilt_a"]])); err != nil {
			return nil, err
		}
		rrow.Pollution = 1
		if i, ok := col["pollution"]; ok && rec[i] != "" {
			if rrow.Pollution, err = field(path, rowNum, "pollution", mustFloat(rec[i])); err != nil {
				return nil, err
			}
		}
		if i, ok := col["country_id"]; ok && rec[i] != "" {
			if rrow.CountryID, err = field(path, rowNum, "country_id", mustInt(rec[i])); err != nil {
				return nil, err
			}
		}
		if i, ok := col["lat"]; ok && rec[i] != "" {
			if rrow.Lat, err = field(path, rowNum, "lat", mustFloat(rec[i])); err != nil {
				return nil, err
			}
		}
		if i, ok := col["lon"]; ok && rec[i] != "" {
			if rrow.Lon, err = field(path, rowNum, "lon", mustFloat(rec[i])); err != nil {
				return nil, err
			}
		}
		out = append(out, rrow)
	}
	return out, nil
}

// Observation is one row of the observation table keyed by pixel and
// contaminant name, already snapped to the river graph by preprocessing.
type Observation struct {
	PixelID       int64
	Concentration float64
}

// LoadObservations reads an observation table with columns
// pixel_number,<contaminant column>, selecting a single named column.
func LoadObservations(path, contaminantColumn string) ([]Observation, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, rerr.Wrap("source.LoadObservations", rerr.ErrAttributeMissing, "cannot open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, rerr.Wrap("source.LoadObservations", rerr.ErrAttributeMissing, "empty observation table %s", path)
	}
	col := indexHeader(header)
	if _, ok := col["pixel_number"]; !ok {
		return nil, rerr.Wrap("source.LoadObservations", rerr.ErrAttributeMissing, "column %q missing from %s", "pixel_number", path)
	}
	ci, ok := col[contaminantColumn]
	if !ok {
		return nil, rerr.Wrap("source.LoadObservations", rerr.ErrAttributeMissing, "column %q missing from %s", contaminantColumn, path)
	}

	var out []Observation
	for rowNum := 2; ; rowNum++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, rerr.Wrap("source.LoadObservations", rerr.ErrAttributeMissing, "malformed row in %s: %v", path, err)
		}
		if rec[ci] == "" {
			continue // no observation for this contaminant at this pixel
		}
		pixelID, err := field(path, rowNum, "pixel_number", mustInt64(rec[col["pixel_number"]]))
		if err != nil {
			return nil, err
		}
		conc, err := field(path, rowNum, contaminantColumn, mustFloat(rec[ci]))
		if err != nil {
			return nil, err
		}
		out = append(out, Observation{
			PixelID:       pixelID,
			Concentration: conc,
		})
	}
	return out, nil
}

func indexHeader(header []string) map[string]int {
	m := make(map[string]int, len(header))
	for i, h := range header {
		m[h] = i
	}
	return m
}

// field surfaces a malformed-number parse failure as AttributeMissing
// rather than letting it pass through as a silent zero value, tagging it
// with the file, 1-indexed data row, and column that failed.
func field[T any](path string, rowNum int, column string, v T, err error) (T, error) {
	if err != nil {
		return v, rerr.Wrap("source.field", rerr.ErrAttributeMissing, "%s:%d: column %q: %v", path, rowNum, column, err)
	}
	return v, nil
}

func mustInt64(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func mustInt(s string) (int, error) {
	return strconv.Atoi(s)
}

func mustFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package graph

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/icra/riverfate/rerr"
)

// LoadCSV builds a Graph from a nodes table and an edges table. This is
// the loader API of §4.A; the preprocessing that produces these CSVs from
// raster hydrography (slope, flow direction, lake handling) is an external
// collaborator per §1 and is not part of this package.
//
// nodes columns: pixel_id,row,col,lat,lon,residence_time_h,discharge_cmh,basin_id,lake_id,lake_volume
// edges columns: from,to
func LoadCSV(nodesPath, edgesPath string, minDischarge float64) (*Graph, error) {
	gr := New()
	if err := loadNodes(gr, nodesPath, minDischarge); err != nil {
		return nil, err
	}
	if err := loadEdges(gr, edgesPath); err != nil {
		return nil, err
	}
	return gr, nil
}

func loadNodes(gr *Graph, path string, minDischarge float64) error {
	f, err := os.Open(path)
	if err != nil {
		return rerr.Wrap("graph.loadNodes", rerr.ErrAttributeMissing, "cannot open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return rerr.Wrap("graph.loadNodes", rerr.ErrAttributeMissing, "empty nodes file %s", path)
	}
	col := indexHeader(header)
	required := []string{"pixel_id", "row", "col", "lat", "lon", "residence_time_h", "discharge_cmh", "basin_id"}
	for _, rq := range required {
		if _, ok := col[rq]; !ok {
			return rerr.Wrap("graph.loadNodes", rerr.ErrAttributeMissing, "column %q missing from %s", rq, path)
		}
	}
	for rowNum := 2; ; rowNum++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rerr.Wrap("graph.loadNodes", rerr.ErrAttributeMissing, "malformed row in %s: %v", path, err)
		}

		var c Cell
		if c.PixelID, err = field(path, rowNum, "pixel_id", mustInt64(rec[col["pixel_id"]])); err != nil {
			return err
		}
		if c.Row, err = field(path, rowNum, "row", mustInt(rec[col["row"]])); err != nil {
			return err
		}
		if c.Col, err = field(path, rowNum, "col", mustInt(rec[col["col"]])); err != nil {
			return err
		}
		if c.Lat, err = field(path, rowNum, "lat", mustFloat(rec[col["lat"]])); err != nil {
			return err
		}
		if c.Lon, err = field(path, rowNum, "lon", mustFloat(rec[col["lon"]])); err != nil {
			return err
		}
		if c.ResidenceHR, err = field(path, rowNum, "residence_time_h", mustFloat(rec[col["residence_time_h"]])); err != nil {
			return err
		}
		if c.DischargeCMH, err = field(path, rowNum, "discharge_cmh", mustFloat(rec[col["discharge_cmh"]])); err != nil {
			return err
		}
		if c.BasinID, err = field(path, rowNum, "basin_id", mustInt64(rec[col["basin_id"]])); err != nil {
			return err
		}
		if c.DischargeCMH < minDischarge {
			c.DischargeCMH = minDischarge
		}
		if li, ok := col["lake_id"]; ok && rec[li] != "" {
			c.HasLake = true
			if c.LakeID, err = field(path, rowNum, "lake_id", mustInt64(rec[li])); err != nil {
				return err
			}
			if lv, ok := col["lake_volume"]; ok && rec[lv] != "" {
				if c.LakeVolume, err = field(path, rowNum, "lake_volume", mustFloat(rec[lv])); err != nil {
					return err
				}
			}
		}
		gr.AddCell(c)
	}
	return nil
}

func loadEdges(gr *Graph, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return rerr.Wrap("graph.loadEdges", rerr.ErrAttributeMissing, "cannot open %s: %v", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return rerr.Wrap("graph.loadEdges", rerr.ErrAttributeMissing, "empty edges file %s", path)
	}
	col := indexHeader(header)
	for _, rq := range []string{"from", "to"} {
		if _, ok := col[rq]; !ok {
			return rerr.Wrap("graph.loadEdges", rerr.ErrAttributeMissing, "column %q missing from %s", rq, path)
		}
	}
	for rowNum := 2; ; rowNum++ {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return rerr.Wrap("graph.loadEdges", rerr.ErrAttributeMissing, "malformed row in %s: %v", path, err)
		}
		from, err := field(path, rowNum, "from", mustInt64(rec[col["from"]]))
		if err != nil {
			return err
		}
		to, err := field(path, rowNum, "to", mustInt64(rec[col["to"]]))
		if err != nil {
			return err
		}
		if err := gr.AddEdge(from, to); err != nil {
			return err
		}
	}
	return nil
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
		return v, rerr.Wrap("graph.field", rerr.ErrAttributeMissing, "%s:%d: column %q: %v", path, rowNum, column, err)
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

// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command riverfate runs a single steady-state propagation over a river
// graph and source table and prints the resulting concentrations. Batch
// orchestration, scenario files, and raster/shapefile I/O stay external
// collaborators (§1); this binary is the thin demonstration entrypoint
// over the core packages, in the spirit of the teacher's own main.go.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"

	"github.com/icra/riverfate"
	"github.com/icra/riverfate/graph"
	"github.com/icra/riverfate/propagate"
	"github.com/icra/riverfate/source"
)

func main() {
	nodesPath := flag.String("nodes", "", "river graph nodes CSV")
	edgesPath := flag.String("edges", "", "river graph edges CSV")
	sourcesPath := flag.String("sources", "", "discharge-point source table CSV")
	k := flag.Float64("k", 0.01, "first-order attenuation rate (1/hour)")
	excretion := flag.Float64("excretion", 1.0, "excretion multiplier")
	flag.Parse()

	if *nodesPath == "" || *edgesPath == "" || *sourcesPath == "" {
		fmt.Fprintln(os.Stderr, "usage: riverfate -nodes nodes.csv -edges edges.csv -sources sources.csv [-k 0.01] [-excretion 1.0]")
		os.Exit(2)
	}

	if err := run(*nodesPath, *edgesPath, *sourcesPath, *k, *excretion); err != nil {
		slog.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(nodesPath, edgesPath, sourcesPath string, k, excretion float64) error {
	cfg := riverfate.DefaultConfig()

	gr, err := graph.LoadCSV(nodesPath, edgesPath, cfg.MinDischargeCMH)
	if err != nil {
		return err
	}
	slog.Info("graph loaded", "nodes", gr.NumNodes())

	order, err := gr.TopologicalOrder()
	if err != nil {
		return err
	}
	proj, err := gr.Project(graph.AttrResidence, graph.AttrDischarge)
	if err != nil {
		return err
	}
	residence := make(map[int64]float64, len(proj.PixelID))
	discharge := make(map[int64]float64, len(proj.PixelID))
	for i, id := range proj.PixelID {
		residence[id] = proj.ResidenceHR[i]
		discharge[id] = proj.DischargeCMH[i]
	}

	records, err := source.LoadRecords(sourcesPath)
	if err != nil {
		return err
	}
	loads, dropped := source.BuildLoadVector(records, cfg, source.Params{K: k, Excretion: excretion}, nil)
	slog.Info("loads built", "sources", len(records), "dropped", dropped)

	result := propagate.Run(propagate.Inputs{
		Order:        order,
		Parents:      gr.Predecessors,
		Loads:        loads,
		ResidenceHR:  residence,
		DischargeCMH: discharge,
	}, k, false)

	printTop(result, 20)
	return nil
}

// printTop prints the n pixels with the highest relative concentration,
// a quick sanity view rather than a full output writer (§6's raster and
// attribute writers are external collaborators).
func printTop(result propagate.Result, n int) {
	ids := make([]int64, 0, len(result.RelC))
	for id := range result.RelC {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return result.RelC[ids[i]] > result.RelC[ids[j]] })
	if len(ids) > n {
		ids = ids[:n]
	}
	for _, id := range ids {
		fmt.Printf("%d\tC=%.6g\trelC=%.6g\n", id, result.C[id], result.RelC[id])
	}
}

// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package calib

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/icra/riverfate/rerr"
)

// snapshot is the on-disk shape of one Evaluation, kept deliberately plain
// (§9: "no library-specific serialisation") so any later reader, in any
// language, can pick it up.
type snapshot struct {
	K         float64 `json:"k"`
	Excretion float64 `json:"excretion"`
	RSquared  float64 `json:"r_squared"`
}

// WriteSnapshot persists ev's k, excretion and R² to path as a single
// atomic write: encode to a temp file in the same directory, then rename
// over path, so a cancelled or crashed run never leaves a half-written
// file in its place (§5). ev's per-pixel predictions and discharges are
// not written.
func WriteSnapshot(path string, ev Evaluation) error {
	data, err := json.MarshalIndent(snapshot{K: ev.K, Excretion: ev.Excretion, RSquared: ev.RSquared()}, "", "  ")
	if err != nil {
		return rerr.Wrap("calib.WriteSnapshot", rerr.ErrAttributeMissing, "%v", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return rerr.Wrap("calib.WriteSnapshot", rerr.ErrAttributeMissing, "%v", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return rerr.Wrap("calib.WriteSnapshot", rerr.ErrAttributeMissing, "%v", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return rerr.Wrap("calib.WriteSnapshot", rerr.ErrAttributeMissing, "%v", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return rerr.Wrap("calib.WriteSnapshot", rerr.ErrAttributeMissing, "%v", err)
	}
	return nil
}

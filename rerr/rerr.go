// Copyright 2026 The Riverfate Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package rerr implements the error kinds and wrapping convention shared
// by every core package: a sentinel error per failure mode (§7 of the
// design) plus a Wrap helper that attaches the stage that raised it.
package rerr

import (
	"errors"
	"fmt"
)

// Sentinel error kinds. Callers compare with errors.Is.
var (
	ErrGraphNotAcyclic        = errors.New("graph is not acyclic")
	ErrAttributeMissing       = errors.New("required attribute missing")
	ErrMatrixBundleStale      = errors.New("matrix bundle does not cover requested basins")
	ErrSourcePixelNotInGraph  = errors.New("source pixel not present in graph")
	ErrCalibrationNonconverge = errors.New("calibration did not converge within iteration cap")
	ErrNumericalOverflow      = errors.New("numerical overflow in attenuation evaluation")
)

// Error carries the stage (package/operation) that raised a sentinel kind,
// in the spirit of the teacher's chk.Err(format, args...) calls, which are
// not vendored into this module (see DESIGN.md) and are reproduced as a
// plain wrapping type instead.
type Error struct {
	Stage string
	Kind  error
	Msg   string
}

func (e *Error) Error() string {
	if e.Msg == "" {
		return fmt.Sprintf("%s: %v", e.Stage, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %s", e.Stage, e.Kind, e.Msg)
}

func (e *Error) Unwrap() error { return e.Kind }

// Wrap builds an *Error tagging kind with the stage that observed it.
func Wrap(stage string, kind error, format string, args ...any) error {
	return &Error{Stage: stage, Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

package model

import (
	"time"

	"github.com/networmix/ee500-wifi/internal/export"
	"github.com/networmix/ee500-wifi/internal/metrics"
	"github.com/networmix/ee500-wifi/internal/stats"
)

// Result is everything a run produces: the flattened statistics and the
// metrics derived from them.
type Result struct {
	RunID     string             `json:"run"`
	Timestamp time.Time          `json:"timestamp"`
	Export    *export.FlatExport `json:"export"`
	Report    *metrics.Report    `json:"metrics"`
}

// NewResult wraps a stored export, deriving the report from the run
// parameters recorded in its metadata.
func NewResult(fe *export.FlatExport, at time.Time) *Result {
	run, _ := fe.Metadata(stats.MetaRun)
	return &Result{
		RunID:     run,
		Timestamp: at,
		Export:    fe,
		Report:    metrics.Derive(fe, metrics.ConfigFromExport(fe)),
	}
}

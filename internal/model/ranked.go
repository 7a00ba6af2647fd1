package model

import "time"

// RankedRow is one derived row of the published view. Metric pointers are
// nil when the value is not available this cycle.
type RankedRow struct {
	Code              string     `json:"code"`
	Name              string     `json:"name"`
	Quote             Quote      `json:"quote"`
	Momentum1         float64    `json:"momentum_1"`
	Momentum5         float64    `json:"momentum_5"`
	MA5               *float64   `json:"ma5"`
	MA5Distance       *float64   `json:"ma5_distance"`
	MaxVolumeRatio10d *float64   `json:"max_volume_ratio_10d"`
	Amplitude10d      *float64   `json:"amplitude_10d"`
	Annotation        Annotation `json:"annotation"`
}

// CycleStats summarises one fetch-compute-rank pass.
type CycleStats struct {
	Block           string        `json:"block"`
	Symbols         int           `json:"symbols"`
	Quotes          int           `json:"quotes"`
	Histories       int           `json:"histories"`
	HistoryFailures int           `json:"history_failures"`
	Rows            int           `json:"rows"`
	StartedAt       time.Time     `json:"started_at"`
	Elapsed         time.Duration `json:"elapsed"`
}

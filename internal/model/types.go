package model

import "channelflow/internal/flowgen"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// RunRecord describes one generated series. Samples are stored separately.
type RunRecord struct {
	VersionedRecord
	ID           string         `json:"id"`
	ParamSet     string         `json:"param_set,omitempty"`
	Seed         uint64         `json:"seed"`
	Params       flowgen.Params `json:"params"`
	SampleCount  int            `json:"sample_count"`
	Summary      SeriesSummary  `json:"summary"`
	CreatedAtUTC string         `json:"created_at_utc"`
}

// FieldSummary holds descriptive statistics for one sample field.
type FieldSummary struct {
	Mean float64 `json:"mean"`
	Std  float64 `json:"std"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
}

type SeriesSummary struct {
	Count int          `json:"count"`
	Depth FieldSummary `json:"depth"`
	Width FieldSummary `json:"width"`
	Speed FieldSummary `json:"speed"`
	// MinDepthTime is the time of the shallowest sample.
	MinDepthTime float64 `json:"min_depth_time"`
}

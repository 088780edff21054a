package model

import "time"

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// WeightRecord is a fitted log-linear model: the weight vector together with
// everything needed to score with it again.
type WeightRecord struct {
	VersionedRecord
	ID         string          `json:"id"`
	Features   FeatureFunction `json:"features"`
	Weights    []float64       `json:"weights"`
	Impliable  []string        `json:"impliable"`
	Localities map[string]int  `json:"localities,omitempty"`
	Fit        *FitReport      `json:"fit,omitempty"`
	CreatedAt  time.Time       `json:"created_at"`
}

// FeatureFunction identifies the feature function the weights were fitted
// against.
type FeatureFunction struct {
	Name string `json:"name"`
	Dim  int    `json:"dim"`
}

type FitReport struct {
	RegConst        float64 `json:"reg_const"`
	Rules           int     `json:"rules"`
	Candidates      int     `json:"candidates"`
	MaxCandidates   int     `json:"max_candidates"`
	LogLikelihood   float64 `json:"log_likelihood"`
	Objective       float64 `json:"objective"`
	WeightNorm      float64 `json:"weight_norm"`
	Iterations      int     `json:"iterations"`
	FuncEvaluations int     `json:"func_evaluations"`
	Status          string  `json:"status"`
	DurationMillis  int64   `json:"duration_ms"`
}

// WeightSummary is the listing view of a stored record.
type WeightSummary struct {
	ID        string    `json:"id"`
	Features  string    `json:"features"`
	Dim       int       `json:"dim"`
	CreatedAt time.Time `json:"created_at"`
}

func (r WeightRecord) Summary() WeightSummary {
	return WeightSummary{
		ID:        r.ID,
		Features:  r.Features.Name,
		Dim:       r.Features.Dim,
		CreatedAt: r.CreatedAt,
	}
}

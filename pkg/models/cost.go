package models

import "time"

// Pricing defines USD cost per 1M tokens.
type Pricing struct {
	InputPerMillion  float64 `json:"input_per_1m" yaml:"input_per_1m"`
	OutputPerMillion float64 `json:"output_per_1m" yaml:"output_per_1m"`
}

// TypePercentile is the cost percentile of a single flow type.
type TypePercentile struct {
	FlowType string  `json:"flow_type"`
	Cost     float64 `json:"cost"`
	Count    int     `json:"count"`
}

// Bucket is the total token throughput inside one reporting interval.
type Bucket struct {
	Start  time.Time `json:"start"`
	Tokens float64   `json:"tokens"`
}

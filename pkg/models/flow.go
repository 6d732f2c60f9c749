package models

import (
	"database/sql"
	"math"
	"time"
)

// FlowRecord is one LLM request/response cycle after type coercion.
type FlowRecord struct {
	FlowID     string       `json:"flow_id"`
	CreatedAt  sql.NullTime `json:"created_at"`
	FinishedAt sql.NullTime `json:"finished_at"`
	Status     string       `json:"status"`
	Type       string       `json:"type"`
	Region     string       `json:"region"`
	UserID     string       `json:"user_id"`
	OrgID      string       `json:"org_id"`
	TokensIn   int64        `json:"tokens_in"`
	TokensOut  int64        `json:"tokens_out"`
	LLMCalls   int64        `json:"llm_calls"`
	LLMCost    float64      `json:"llm_cost"`

	// Missing lists categorical columns whose raw cell was empty.
	Missing []string `json:"missing,omitempty"`
}

// TotalTokens returns tokens_in + tokens_out, clamped to the int64 range.
func (f FlowRecord) TotalTokens() int64 {
	return addTokens(f.TokensIn, f.TokensOut)
}

// IsMissing reports whether the named categorical column was empty.
func (f FlowRecord) IsMissing(column string) bool {
	for _, m := range f.Missing {
		if m == column {
			return true
		}
	}
	return false
}

// RoundedFlow is a flow whose timestamps have been snapped to a granularity.
// Both timestamps are always set.
type RoundedFlow struct {
	FlowID     string
	Type       string
	CreatedAt  time.Time
	FinishedAt time.Time
	TokensIn   int64
	TokensOut  int64
}

// TotalTokens returns tokens_in + tokens_out, clamped to the int64 range.
func (f RoundedFlow) TotalTokens() int64 {
	return addTokens(f.TokensIn, f.TokensOut)
}

func addTokens(a, b int64) int64 {
	sum := a + b
	switch {
	case a > 0 && b > 0 && sum < 0:
		return math.MaxInt64
	case a < 0 && b < 0 && sum >= 0:
		return math.MinInt64
	}
	return sum
}

// Sample is one instant of a flow's expanded token-rate timeline.
type Sample struct {
	At   time.Time
	Rate float64
}

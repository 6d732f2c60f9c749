// Package timeline snaps flow timestamps to a fixed granularity and expands
// each flow into a uniform per-unit token-rate timeline.
package timeline

import (
	"fmt"
	"strings"
	"time"
)

// Granularity is the discrete time unit used for rounding and expansion.
type Granularity int

const (
	Second Granularity = iota + 1
	Minute
)

// ParseGranularity parses "second" or "minute" (case-insensitive).
func ParseGranularity(s string) (Granularity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "second", "sec", "s":
		return Second, nil
	case "minute", "min", "m":
		return Minute, nil
	default:
		return 0, fmt.Errorf("unknown granularity %q", s)
	}
}

// Duration returns the length of one unit.
func (g Granularity) Duration() time.Duration {
	switch g {
	case Minute:
		return time.Minute
	default:
		return time.Second
	}
}

func (g Granularity) String() string {
	switch g {
	case Second:
		return "second"
	case Minute:
		return "minute"
	default:
		return fmt.Sprintf("Granularity(%d)", int(g))
	}
}

// Endpoint selects whether a flow's finished instant emits a sample.
type Endpoint int

const (
	// Exclusive emits one sample per unit in [created, finished).
	Exclusive Endpoint = iota
	// Inclusive emits one sample per unit in [created, finished].
	Inclusive
)

// ParseEndpoint parses "exclusive" or "inclusive".
func ParseEndpoint(s string) (Endpoint, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "exclusive":
		return Exclusive, nil
	case "inclusive":
		return Inclusive, nil
	default:
		return 0, fmt.Errorf("unknown endpoint mode %q", s)
	}
}

func (e Endpoint) String() string {
	if e == Inclusive {
		return "inclusive"
	}
	return "exclusive"
}

package timeline

import (
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/pario-ai/flowstat/pkg/models"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		panic(err)
	}
	return t
}

func nullTime(s string) sql.NullTime {
	if s == "" {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: at(s), Valid: true}
}

func TestRound(t *testing.T) {
	tests := []struct {
		in   string
		g    Granularity
		want string
	}{
		{"2024-05-01T00:00:30Z", Minute, "2024-05-01T00:01:00Z"},
		{"2024-05-01T00:00:29.999Z", Minute, "2024-05-01T00:00:00Z"},
		{"2024-05-01T00:00:00.5Z", Second, "2024-05-01T00:00:01Z"},
		{"2024-05-01T00:00:00.499999Z", Second, "2024-05-01T00:00:00Z"},
		{"2024-05-01T00:00:01.5Z", Second, "2024-05-01T00:00:02Z"},
		{"2024-05-01T00:00:07Z", Second, "2024-05-01T00:00:07Z"},
		{"2024-05-01T23:59:45Z", Minute, "2024-05-02T00:00:00Z"},
	}
	for _, tt := range tests {
		got := Round(at(tt.in), tt.g)
		if !got.Equal(at(tt.want)) {
			t.Errorf("Round(%s, %s): expected %s, got %s", tt.in, tt.g, tt.want, got.Format(time.RFC3339Nano))
		}
	}
}

func TestFloor(t *testing.T) {
	got := Floor(at("2024-05-01T09:03:59.9Z"), Minute)
	if !got.Equal(at("2024-05-01T09:03:00Z")) {
		t.Errorf("expected 09:03:00, got %s", got)
	}
}

func TestParseGranularity(t *testing.T) {
	g, err := ParseGranularity("Minute")
	if err != nil || g != Minute {
		t.Errorf("expected Minute, got %v (%v)", g, err)
	}
	g, err = ParseGranularity("second")
	if err != nil || g != Second {
		t.Errorf("expected Second, got %v (%v)", g, err)
	}
	if _, err := ParseGranularity("hour"); err == nil {
		t.Error("expected error for unsupported granularity")
	}
}

func TestParseEndpoint(t *testing.T) {
	e, err := ParseEndpoint("inclusive")
	if err != nil || e != Inclusive {
		t.Errorf("expected Inclusive, got %v (%v)", e, err)
	}
	if _, err := ParseEndpoint("half-open"); err == nil {
		t.Error("expected error for unknown endpoint")
	}
}

func TestRoundFlowsDropsNullTimestamps(t *testing.T) {
	records := []models.FlowRecord{
		{FlowID: "ok", CreatedAt: nullTime("2024-05-01T09:00:00.6Z"), FinishedAt: nullTime("2024-05-01T09:00:02Z"), TokensIn: 10},
		{FlowID: "no-created", FinishedAt: nullTime("2024-05-01T09:00:02Z"), TokensIn: 10},
		{FlowID: "no-finished", CreatedAt: nullTime("2024-05-01T09:00:00Z"), TokensIn: 10},
	}

	kept, dropped := RoundFlows(records, Second, DropPolicy{})
	if dropped != 2 {
		t.Errorf("expected 2 dropped, got %d", dropped)
	}
	if len(kept) != 1 || kept[0].FlowID != "ok" {
		t.Fatalf("expected only flow ok to survive, got %+v", kept)
	}
	if !kept[0].CreatedAt.Equal(at("2024-05-01T09:00:01Z")) {
		t.Errorf("expected created rounded up to 09:00:01, got %s", kept[0].CreatedAt)
	}
}

func TestRoundFlowsRequireCategorical(t *testing.T) {
	records := []models.FlowRecord{
		{FlowID: "a", CreatedAt: nullTime("2024-05-01T09:00:00Z"), FinishedAt: nullTime("2024-05-01T09:00:02Z"), Missing: []string{"region"}},
		{FlowID: "b", CreatedAt: nullTime("2024-05-01T09:00:00Z"), FinishedAt: nullTime("2024-05-01T09:00:02Z")},
	}

	kept, dropped := RoundFlows(records, Second, DropPolicy{RequireCategorical: true})
	if dropped != 1 || len(kept) != 1 || kept[0].FlowID != "b" {
		t.Errorf("expected flow a dropped, got kept=%+v dropped=%d", kept, dropped)
	}

	kept, dropped = RoundFlows(records, Second, DropPolicy{})
	if dropped != 0 || len(kept) != 2 {
		t.Errorf("expected both kept without categorical policy, got kept=%d dropped=%d", len(kept), dropped)
	}
}

func TestDurationUnitsFloor(t *testing.T) {
	same := models.RoundedFlow{CreatedAt: at("2024-05-01T09:00:00Z"), FinishedAt: at("2024-05-01T09:00:00Z")}
	if got := DurationUnits(same, Second); got != 1 {
		t.Errorf("expected zero-length flow floored to 1, got %d", got)
	}
	reversed := models.RoundedFlow{CreatedAt: at("2024-05-01T09:00:05Z"), FinishedAt: at("2024-05-01T09:00:00Z")}
	if got := DurationUnits(reversed, Second); got != 1 {
		t.Errorf("expected reversed flow floored to 1, got %d", got)
	}
	long := models.RoundedFlow{CreatedAt: at("2024-05-01T09:00:00Z"), FinishedAt: at("2024-05-01T09:03:00Z")}
	if got := DurationUnits(long, Minute); got != 3 {
		t.Errorf("expected 3 minutes, got %d", got)
	}
}

func TestExpandTokenConservation(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:00:10Z"),
		TokensIn:   100,
	}
	samples := NewExpander(Second, Exclusive).Expand([]models.RoundedFlow{f})
	if len(samples) != 10 {
		t.Fatalf("expected 10 samples, got %d", len(samples))
	}
	var sum float64
	for i, s := range samples {
		if s.Rate != 10.0 {
			t.Errorf("sample %d: expected rate 10.0, got %v", i, s.Rate)
		}
		want := f.CreatedAt.Add(time.Duration(i) * time.Second)
		if !s.At.Equal(want) {
			t.Errorf("sample %d: expected %s, got %s", i, want, s.At)
		}
		sum += s.Rate
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("expected samples to sum to 100, got %v", sum)
	}
}

func TestExpandConservationUnevenRate(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:00:07Z"),
		TokensIn:   33,
		TokensOut:  67,
	}
	var sum float64
	NewExpander(Second, Exclusive).Each([]models.RoundedFlow{f}, func(s models.Sample) {
		sum += s.Rate
	})
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("expected 100, got %v", sum)
	}
}

func TestRateHugeTokensDoesNotWrap(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:00:02Z"),
		TokensIn:   math.MaxInt64,
		TokensOut:  math.MaxInt64,
	}
	want := float64(math.MaxInt64)
	if got := Rate(f, Second); got != want {
		t.Errorf("expected rate %v, got %v", want, got)
	}
}

func TestExpandZeroLengthFlow(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:00:00Z"),
		TokensOut:  42,
	}
	samples := NewExpander(Second, Exclusive).Expand([]models.RoundedFlow{f})
	if len(samples) != 1 || samples[0].Rate != 42 {
		t.Fatalf("expected one sample of 42, got %+v", samples)
	}

	samples = NewExpander(Second, Inclusive).Expand([]models.RoundedFlow{f})
	if len(samples) != 1 || samples[0].Rate != 42 {
		t.Fatalf("expected one inclusive sample of 42, got %+v", samples)
	}
}

func TestExpandZeroTokensStillOccupiesTime(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:00:03Z"),
	}
	samples := NewExpander(Second, Exclusive).Expand([]models.RoundedFlow{f})
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	for _, s := range samples {
		if s.Rate != 0 {
			t.Errorf("expected rate 0, got %v", s.Rate)
		}
	}
}

func TestExpandInclusive(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:00:02Z"),
		TokensIn:   60,
	}
	samples := NewExpander(Second, Inclusive).Expand([]models.RoundedFlow{f})
	if len(samples) != 3 {
		t.Fatalf("expected 3 samples, got %d", len(samples))
	}
	if !samples[2].At.Equal(f.FinishedAt) {
		t.Errorf("expected last sample at finished instant, got %s", samples[2].At)
	}
	for _, s := range samples {
		if s.Rate != 30 {
			t.Errorf("expected rate 30, got %v", s.Rate)
		}
	}

	reversed := models.RoundedFlow{CreatedAt: f.FinishedAt, FinishedAt: f.CreatedAt, TokensIn: 60}
	if n := len(NewExpander(Second, Inclusive).Expand([]models.RoundedFlow{reversed})); n != 0 {
		t.Errorf("expected no inclusive samples for reversed flow, got %d", n)
	}
}

func TestExpandMinuteGranularity(t *testing.T) {
	f := models.RoundedFlow{
		CreatedAt:  at("2024-05-01T09:00:00Z"),
		FinishedAt: at("2024-05-01T09:04:00Z"),
		TokensIn:   400,
	}
	samples := NewExpander(Minute, Exclusive).Expand([]models.RoundedFlow{f})
	if len(samples) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(samples))
	}
	if !samples[3].At.Equal(at("2024-05-01T09:03:00Z")) {
		t.Errorf("expected last sample at 09:03, got %s", samples[3].At)
	}
	if samples[0].Rate != 100 {
		t.Errorf("expected rate 100, got %v", samples[0].Rate)
	}
}

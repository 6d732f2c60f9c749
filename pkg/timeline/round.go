package timeline

import (
	"time"

	"github.com/pario-ai/flowstat/pkg/models"
)

// Round snaps t to the nearest unit boundary of g. A remainder of at least
// half a unit rounds up; anything less truncates.
func Round(t time.Time, g Granularity) time.Time {
	unit := g.Duration()
	down := t.Truncate(unit)
	if t.Sub(down) >= unit/2 {
		return down.Add(unit)
	}
	return down
}

// Floor truncates t to the unit boundary of g.
func Floor(t time.Time, g Granularity) time.Time {
	return t.Truncate(g.Duration())
}

// DropPolicy controls which records the incomplete-records filter removes.
// Records with a null timestamp are always removed.
type DropPolicy struct {
	// RequireCategorical also removes records with an empty categorical cell.
	RequireCategorical bool
}

// RoundFlows rounds both timestamps of every record and drops incomplete
// records. It returns the surviving flows in input order and the number of
// records dropped.
func RoundFlows(records []models.FlowRecord, g Granularity, policy DropPolicy) ([]models.RoundedFlow, int) {
	kept := make([]models.RoundedFlow, 0, len(records))
	dropped := 0
	for _, r := range records {
		if !r.CreatedAt.Valid || !r.FinishedAt.Valid {
			dropped++
			continue
		}
		if policy.RequireCategorical && len(r.Missing) > 0 {
			dropped++
			continue
		}
		kept = append(kept, models.RoundedFlow{
			FlowID:     r.FlowID,
			Type:       r.Type,
			CreatedAt:  Round(r.CreatedAt.Time.UTC(), g),
			FinishedAt: Round(r.FinishedAt.Time.UTC(), g),
			TokensIn:   r.TokensIn,
			TokensOut:  r.TokensOut,
		})
	}
	return kept, dropped
}

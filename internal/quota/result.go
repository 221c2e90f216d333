package quota

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"reelsim/internal/game"
	"reelsim/internal/outcome"
	"reelsim/internal/profile"
)

// Result is one finished run.
type Result struct {
	Profile   *profile.Profile
	Table     *outcome.Table // weighted by criterion mass
	Criteria  []CriterionSummary
	Draws     uint64
	Fallbacks int64
	Elapsed   time.Duration
}

// CriterionSummary is the per-criterion line of a run report.
type CriterionSummary struct {
	Name     string  `json:"name"`
	Quota    int     `json:"quota"`
	Accepted int     `json:"accepted"`
	Draws    uint64  `json:"draws"`
	Mass     float64 `json:"mass"`
	AvgWin   float64 `json:"avgWin"` // base bet multiples
	RTP      float64 `json:"rtp"`    // contribution to the mode RTP
}

func (r *run) result(counts []int, elapsed time.Duration) *Result {
	masses := make(map[string]float64, len(r.p.Rules))
	var massSum float64
	for i, rule := range r.p.Rules {
		if counts[i] > 0 {
			masses[rule.Name] = rule.Mass
			massSum += rule.Mass
		}
	}

	wins := make(map[string]int64, len(r.p.Rules))
	accepted := make(map[string]int, len(r.p.Rules))
	for _, rec := range r.table.Records() {
		wins[rec.Criterion] += rec.Payout
		accepted[rec.Criterion]++
	}

	res := &Result{
		Profile:   r.p,
		Table:     r.table.Reweight(masses),
		Fallbacks: r.fallbacks.Load(),
		Elapsed:   elapsed,
	}
	stake := float64(r.p.Stake)
	for i, rule := range r.p.Rules {
		s := CriterionSummary{
			Name:     rule.Name,
			Quota:    counts[i],
			Accepted: accepted[rule.Name],
			Draws:    r.attempts[i].Load(),
			Mass:     rule.Mass,
		}
		if s.Accepted > 0 {
			avg := float64(wins[rule.Name]) / float64(s.Accepted)
			s.AvgWin = avg / game.MinorUnits
			if massSum > 0 {
				s.RTP = rule.Mass / massSum * avg / stake
			}
		}
		res.Draws += s.Draws
		res.Criteria = append(res.Criteria, s)
	}
	return res
}

// RTP is the sum of the criterion contributions.
func (res *Result) RTP() float64 {
	var v float64
	for _, c := range res.Criteria {
		v += c.RTP
	}
	return v
}

// Print writes the per-criterion report as an aligned table.
func (res *Result) Print(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "mode %s\trounds %d\tdraws %d\trtp %.6f\n", res.Profile.Name, res.Table.Len(), res.Draws, res.RTP())
	fmt.Fprintln(tw, "criterion\tquota\taccepted\tdraws\tmass\tavg win\trtp")
	for _, c := range res.Criteria {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%.6f\t%.4f\t%.6f\n", c.Name, c.Quota, c.Accepted, c.Draws, c.Mass, c.AvgWin, c.RTP)
	}
	return tw.Flush()
}

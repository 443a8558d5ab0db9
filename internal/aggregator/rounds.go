// Package aggregator turns raw scraped profile data into the records the store
// keeps: one TournamentResult per (tournament, date) and one SkillSnapshot per
// player.
package aggregator

import (
	"math"
	"strings"
	"time"

	"github.com/pable/pgaweekly/internal/model"
)

const (
	// SentinelSG is the source's "no data" marker for strokes gained. Values
	// at or below it are treated as absent.
	SentinelSG = -9000.0

	// FinishSentinel marks finish positions that do not represent a placing.
	FinishSentinel = 900.0

	// sourceDateLayout is how the profile page prints round dates.
	sourceDateLayout = "Jan 2, 2006"
	storeDateLayout  = "2006-01-02"
)

// missedCutCodes are finish texts for players who did not complete the event.
var missedCutCodes = map[string]bool{
	"CUT": true,
	"WD":  true,
	"DQ":  true,
	"MDF": true,
}

// meanAcc accumulates the mean of the non-null values of one component.
type meanAcc struct {
	sum float64
	n   int
}

func (a *meanAcc) add(v *float64) {
	if v == nil || math.IsNaN(*v) || math.IsInf(*v, 0) || *v <= SentinelSG {
		return
	}
	a.sum += *v
	a.n++
}

func (a *meanAcc) value() *float64 {
	if a.n == 0 {
		return nil
	}
	return round3(a.sum / float64(a.n))
}

// roundGroup is the running state for one (event, date) pair.
type roundGroup struct {
	event, date string
	first       model.RawRoundRow // course and finish come from the first round

	total, ott, app, arg, putt meanAcc

	score    float64
	scoreSet bool
}

// AggregateRounds collapses per-round rows into one TournamentResult per
// distinct (event name, scraped date). Strokes-gained components are averaged
// over rounds with data; round scores are summed. Groups whose date does not
// parse are dropped. Output order follows first appearance in rows.
func AggregateRounds(rows []model.RawRoundRow, playerID string) []model.TournamentResult {
	if len(rows) == 0 {
		return nil
	}

	type groupKey struct{ event, date string }
	groups := make(map[groupKey]*roundGroup)
	var order []*roundGroup

	for _, r := range rows {
		k := groupKey{r.EventName, r.Date}
		g, ok := groups[k]
		if !ok {
			g = &roundGroup{event: r.EventName, date: r.Date, first: r}
			groups[k] = g
			order = append(order, g)
		}
		g.total.add(r.Total)
		g.ott.add(r.OTT)
		g.app.add(r.App)
		g.arg.add(r.Arg)
		g.putt.add(r.Putt)
		if r.RoundScore != nil && !math.IsNaN(*r.RoundScore) {
			g.score += *r.RoundScore
			g.scoreSet = true
		}
	}

	out := make([]model.TournamentResult, 0, len(order))
	for _, g := range order {
		date, ok := parseSourceDate(g.date)
		if !ok {
			continue
		}
		res := model.TournamentResult{
			PlayerID:       playerID,
			TournamentName: g.event,
			CourseName:     g.first.CourseName,
			TournamentDate: date,
			FinishPosition: finishPosition(g.first.FinNumeric),
			IsMadeCut:      MadeCut(g.first.FinText),
			SGTotal:        g.total.value(),
			SGPutting:      g.putt.value(),
			SGApproach:     g.app.value(),
			SGAroundGreen:  g.arg.value(),
			SGOffTee:       g.ott.value(),
		}
		if g.scoreSet {
			s := int(math.Round(g.score))
			res.TotalScore = &s
		}
		out = append(out, res)
	}
	return out
}

// MadeCut reports whether a finish text represents a completed event.
func MadeCut(finText string) bool {
	return !missedCutCodes[strings.TrimSpace(finText)]
}

func finishPosition(fin *float64) *int {
	if fin == nil || math.IsNaN(*fin) || *fin >= FinishSentinel || *fin < 1 {
		return nil
	}
	p := int(*fin)
	return &p
}

func parseSourceDate(s string) (string, bool) {
	t, err := time.Parse(sourceDateLayout, strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return t.Format(storeDateLayout), true
}

func round3(v float64) *float64 {
	r := math.Round(v*1000) / 1000
	return &r
}

package aggregator

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pable/pgaweekly/internal/model"
)

// skillField binds a snapshot field to the source category ("bin") it is read from.
type skillField struct {
	bin string
	dst func(s *model.SkillSnapshot) **float64
}

// percentileFields is the fixed mapping from snapshot percentile fields to
// source bins.
var percentileFields = []skillField{
	{"driving", func(s *model.SkillSnapshot) **float64 { return &s.DrivingOverall }},
	{"ott_1", func(s *model.SkillSnapshot) **float64 { return &s.DrivingDistance }},
	{"ott_2", func(s *model.SkillSnapshot) **float64 { return &s.DrivingAccuracy }},
	{"approach", func(s *model.SkillSnapshot) **float64 { return &s.ApproachOverall }},
	{"app_1", func(s *model.SkillSnapshot) **float64 { return &s.Approach50To100 }},
	{"app_2", func(s *model.SkillSnapshot) **float64 { return &s.Approach100To150 }},
	{"app_3", func(s *model.SkillSnapshot) **float64 { return &s.Approach150To200 }},
	{"app_4", func(s *model.SkillSnapshot) **float64 { return &s.Approach200Plus }},
	{"around", func(s *model.SkillSnapshot) **float64 { return &s.AroundGreenOverall }},
	{"arg_1", func(s *model.SkillSnapshot) **float64 { return &s.AroundGreenFairway }},
	{"arg_2", func(s *model.SkillSnapshot) **float64 { return &s.AroundGreenRough }},
	{"arg_3", func(s *model.SkillSnapshot) **float64 { return &s.AroundGreenBunker }},
	{"putting", func(s *model.SkillSnapshot) **float64 { return &s.PuttingOverall }},
	{"putt_1", func(s *model.SkillSnapshot) **float64 { return &s.Putting2To5 }},
	{"putt_2", func(s *model.SkillSnapshot) **float64 { return &s.Putting5To30 }},
	{"putt_3", func(s *model.SkillSnapshot) **float64 { return &s.Putting30Plus }},
}

// valueFields maps the absolute strokes-gained-per-round fields.
var valueFields = []skillField{
	{"driving", func(s *model.SkillSnapshot) **float64 { return &s.SGDriving }},
	{"approach", func(s *model.SkillSnapshot) **float64 { return &s.SGApproach }},
	{"around", func(s *model.SkillSnapshot) **float64 { return &s.SGAroundGreen }},
	{"putting", func(s *model.SkillSnapshot) **float64 { return &s.SGPutting }},
}

// BuildSkillSnapshot flattens a skill payload into a snapshot for playerID.
// It returns nil when the payload is absent or carries no categories. Fields
// whose category is missing or whose value does not parse are left nil.
func BuildSkillSnapshot(payload *model.SkillPayload, playerID string, now time.Time) *model.SkillSnapshot {
	if payload == nil || len(payload.BreakSkills) == 0 {
		return nil
	}

	perc := make(map[string]any, len(payload.BreakSkills))
	val := make(map[string]any, len(payload.BreakSkills))
	for _, c := range payload.BreakSkills {
		perc[c.Bin] = c.Perc
		val[c.Bin] = c.Val
	}

	snap := &model.SkillSnapshot{
		PlayerID:  playerID,
		DGID:      payload.DGID,
		UpdatedAt: now.UTC(),
	}
	for _, f := range percentileFields {
		*f.dst(snap) = decimal(perc[f.bin])
	}
	for _, f := range valueFields {
		*f.dst(snap) = decimal(val[f.bin])
	}
	return snap
}

// decimal converts a JSON scalar into a finite value rounded to three places.
// Strings may carry a leading "+" sign.
func decimal(v any) *float64 {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case interface{ Float64() (float64, error) }: // json.Number
		p, err := x.Float64()
		if err != nil {
			return nil
		}
		f = p
	case string:
		s := strings.TrimPrefix(strings.TrimSpace(x), "+")
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		f = p
	default:
		return nil
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	return round3(f)
}

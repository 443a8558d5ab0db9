package datagolf

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pable/pgaweekly/internal/model"
	"github.com/pable/pgaweekly/internal/names"
)

const (
	pastResultsPath = "/past-results/pga-tour"

	minEventYear  = 2024
	maxCandidates = 15
)

var eventLinkRe = regexp.MustCompile(`/past-results/pga-tour/(\d+)/(\d{4})`)

// eventPage is the reload_data payload of a past-results page.
type eventPage struct {
	LB []struct {
		PlayerName string `json:"player_name"`
	} `json:"lb"`
	Info any `json:"info"` // object, or a one-element array of it
}

func (p *eventPage) info() map[string]any {
	switch v := p.Info.(type) {
	case map[string]any:
		return v
	case []any:
		if len(v) > 0 {
			if m, ok := v[0].(map[string]any); ok {
				return m
			}
		}
	}
	return nil
}

func (c *Client) eventPage(ctx context.Context, eventID, year int) (*eventPage, error) {
	page, err := c.page(ctx, eventPath(eventID, year))
	if err != nil {
		return nil, err
	}
	var ep eventPage
	if err := page.decode("reload_data", &ep); err != nil {
		return nil, err
	}
	return &ep, nil
}

// FetchField returns the normalized player names of an event's leaderboard
// and the event's name and date. ErrNoData means the event has no results yet.
func (c *Client) FetchField(ctx context.Context, eventID, year int) ([]string, model.TournamentInfo, error) {
	ep, err := c.eventPage(ctx, eventID, year)
	if err != nil {
		return nil, model.TournamentInfo{}, errors.Wrapf(err, "event %d/%d", eventID, year)
	}
	if len(ep.LB) == 0 {
		return nil, model.TournamentInfo{}, errors.Wrapf(ErrNoData, "event %d/%d has no leaderboard", eventID, year)
	}

	players := make([]string, 0, len(ep.LB))
	for _, row := range ep.LB {
		if n := names.Normalize(row.PlayerName); n != "" {
			players = append(players, n)
		}
	}

	info := model.TournamentInfo{
		Name: fmt.Sprintf("Event %d", eventID),
		Date: fmt.Sprintf("%d-01-01", year),
	}
	if m := ep.info(); m != nil {
		if s := firstString(m, "event_name", "display_name"); s != "" {
			info.Name = s
		}
		if s := firstString(m, "date"); s != "" {
			info.Date = s
		}
	}
	return players, info, nil
}

// LatestEvent finds the most recent completed event linked from the
// past-results index. Candidates are checked in link order; those without a
// leaderboard are skipped.
func (c *Client) LatestEvent(ctx context.Context) (model.EventRef, error) {
	body, err := c.get(ctx, pastResultsPath)
	if err != nil {
		return model.EventRef{}, errors.Wrap(err, "past results index")
	}

	type dated struct {
		ref  model.EventRef
		date string
	}
	var found []dated
	for _, ref := range eventCandidates(string(body)) {
		ep, err := c.eventPage(ctx, ref.EventID, ref.Year)
		if err != nil {
			if ctx.Err() != nil {
				return model.EventRef{}, ctx.Err()
			}
			c.log.Debug("skip candidate event", zap.Int("event", ref.EventID), zap.Int("year", ref.Year), zap.Error(err))
			continue
		}
		if len(ep.LB) == 0 {
			continue
		}
		m := ep.info()
		if m == nil {
			continue
		}
		if d := firstString(m, "date"); d != "" {
			found = append(found, dated{ref, d})
		}
	}
	if len(found) == 0 {
		return model.EventRef{}, errors.Wrap(ErrNoData, "no completed event found")
	}

	sort.SliceStable(found, func(i, j int) bool { return found[i].date > found[j].date })
	return found[0].ref, nil
}

// eventCandidates extracts distinct (event, year) links with year >= 2024,
// in page order, capped at maxCandidates.
func eventCandidates(html string) []model.EventRef {
	seen := make(map[model.EventRef]bool)
	var out []model.EventRef
	for _, m := range eventLinkRe.FindAllStringSubmatch(html, -1) {
		ev, err1 := strconv.Atoi(m[1])
		yr, err2 := strconv.Atoi(m[2])
		if err1 != nil || err2 != nil || yr < minEventYear {
			continue
		}
		ref := model.EventRef{EventID: ev, Year: yr}
		if seen[ref] {
			continue
		}
		seen[ref] = true
		out = append(out, ref)
		if len(out) == maxCandidates {
			break
		}
	}
	return out
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

package datagolf

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pable/pgaweekly/internal/model"
	"github.com/pable/pgaweekly/internal/names"
)

const playerIndexPath = "/player-profiles"

// indexEntry is one row of the site's player search index.
type indexEntry struct {
	PlayerName string `json:"player_name"` // "Last, First"
	DGID       int64  `json:"dg_id"`
}

// FetchPlayer loads the profile of the player called name. It returns nil
// with no error when the index has no such player.
func (c *Client) FetchPlayer(ctx context.Context, name string) (*model.PlayerData, error) {
	idx, err := c.playerIndex(ctx)
	if err != nil {
		return nil, err
	}
	entry, ok := locate(idx, name)
	if !ok {
		c.log.Debug("player not in index", zap.String("name", name))
		return nil, nil
	}

	page, err := c.page(ctx, fmt.Sprintf("%s?dg_id=%d", playerIndexPath, entry.DGID))
	if err != nil {
		return nil, errors.Wrapf(err, "profile %s", name)
	}

	data := &model.PlayerData{}
	var roundsErr error
	if page.has("new_data") {
		if roundsErr = page.decode("new_data", &data.Rounds); roundsErr != nil {
			data.Rounds = nil
			c.log.Warn("profile rounds unreadable", zap.String("name", name), zap.Error(roundsErr))
		}
	}
	if page.has("reload_data") {
		skills, err := decodeSkills(page)
		if err != nil {
			c.log.Warn("profile skills unreadable", zap.String("name", name), zap.Error(err))
		} else if skills != nil {
			if skills.DGID == nil {
				skills.DGID = &entry.DGID
			}
			data.Skills = skills
		}
	}
	if roundsErr != nil && data.Skills == nil {
		return nil, errors.Wrapf(roundsErr, "profile %s", name)
	}
	return data, nil
}

// skillsWire is reload_data as sent. dg_id arrives as a number or a string.
type skillsWire struct {
	DGID        any                   `json:"dg_id"`
	BreakSkills []model.SkillCategory `json:"break_skills"`
}

// decodeSkills returns nil without error when the payload has no categories.
func decodeSkills(page embedded) (*model.SkillPayload, error) {
	var w skillsWire
	if err := page.decode("reload_data", &w); err != nil {
		return nil, err
	}
	if len(w.BreakSkills) == 0 {
		return nil, nil
	}
	return &model.SkillPayload{DGID: dgID(w.DGID), BreakSkills: w.BreakSkills}, nil
}

func dgID(v any) *int64 {
	var id int64
	switch x := v.(type) {
	case float64:
		if x != math.Trunc(x) {
			return nil
		}
		id = int64(x)
	case int64:
		id = x
	case interface{ Int64() (int64, error) }: // json.Number
		n, err := x.Int64()
		if err != nil {
			return nil
		}
		id = n
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64)
		if err != nil {
			return nil
		}
		id = n
	default:
		return nil
	}
	return &id
}

func (c *Client) playerIndex(ctx context.Context) ([]indexEntry, error) {
	c.indexMu.Lock()
	defer c.indexMu.Unlock()
	if c.index != nil {
		return c.index, nil
	}

	page, err := c.page(ctx, playerIndexPath)
	if err != nil {
		return nil, errors.Wrap(err, "player index")
	}
	var idx []indexEntry
	if err := page.decode("player_list", &idx); err != nil {
		return nil, errors.Wrap(err, "player index")
	}
	c.index = idx
	return idx, nil
}

// locate picks the index entry for name: an exact match on the normalized
// name, else the first entry whose name contains the surname.
func locate(idx []indexEntry, name string) (indexEntry, bool) {
	want := strings.ToLower(names.Normalize(name))
	for _, e := range idx {
		if strings.ToLower(names.Normalize(e.PlayerName)) == want {
			return e, true
		}
	}
	last := strings.ToLower(names.Surname(name))
	if last == "" {
		return indexEntry{}, false
	}
	for _, e := range idx {
		if strings.Contains(strings.ToLower(e.PlayerName), last) {
			return e, true
		}
	}
	return indexEntry{}, false
}

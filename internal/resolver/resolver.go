// Package resolver maps a scraped display name to a registry player.
package resolver

import (
	"context"
	"sort"
	"strings"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/pable/pgaweekly/internal/logging"
	"github.com/pable/pgaweekly/internal/model"
	"github.com/pable/pgaweekly/internal/names"
)

// ErrNotFound means no registry player matches a name.
var ErrNotFound = errors.New("player not in registry")

// Registry is the read side of the player registry.
type Registry interface {
	// PlayersByName returns players whose name equals name exactly.
	PlayersByName(ctx context.Context, name string) ([]model.Player, error)
	// PlayersLike returns players whose name contains fragment, case-insensitively.
	PlayersLike(ctx context.Context, fragment string) ([]model.Player, error)
}

// Resolver maps names to registry players.
type Resolver struct {
	reg Registry
	log *zap.Logger
}

// New returns a Resolver over reg. A nil logger discards ambiguity warnings.
func New(reg Registry, log *zap.Logger) *Resolver {
	return &Resolver{reg: reg, log: logging.OrNop(log)}
}

// Resolve returns the registry player for name. An exact, unique name match
// wins; otherwise the surname candidates are ranked and the first is taken.
// ErrNotFound is returned when nothing matches; registry failures are
// returned wrapped and are never ErrNotFound.
func (r *Resolver) Resolve(ctx context.Context, name string) (model.Player, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return model.Player{}, ErrNotFound
	}

	exact, err := r.reg.PlayersByName(ctx, name)
	if err != nil {
		return model.Player{}, errors.Wrapf(err, "exact lookup %q", name)
	}
	if len(exact) == 1 {
		return exact[0], nil
	}

	key := names.Surname(name)
	if key == "" {
		return model.Player{}, ErrNotFound
	}
	cands, err := r.reg.PlayersLike(ctx, key)
	if err != nil {
		return model.Player{}, errors.Wrapf(err, "surname lookup %q", key)
	}

	ranked := Rank(name, cands)
	if len(ranked) == 0 {
		return model.Player{}, ErrNotFound
	}
	if len(ranked) > 1 {
		r.log.Warn("ambiguous surname match",
			zap.String("name", name),
			zap.String("chosen", ranked[0].Name),
			zap.Strings("candidates", playerNames(ranked)),
		)
	}
	return ranked[0], nil
}

// Rank filters candidates to those sharing name's surname (case-insensitive)
// and orders them: exact full-name match first, then shorter name, then
// lexical name, then id. The input slice is not modified.
func Rank(name string, candidates []model.Player) []model.Player {
	key := strings.ToLower(names.Surname(name))
	if key == "" {
		return nil
	}
	full := strings.ToLower(strings.TrimSpace(name))

	out := make([]model.Player, 0, len(candidates))
	for _, c := range candidates {
		if strings.ToLower(names.Surname(c.Name)) == key {
			out = append(out, c)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		ae, be := strings.ToLower(a.Name) == full, strings.ToLower(b.Name) == full
		if ae != be {
			return ae
		}
		if len(a.Name) != len(b.Name) {
			return len(a.Name) < len(b.Name)
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.ID < b.ID
	})
	return out
}

func playerNames(ps []model.Player) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name + " (" + p.ID + ")"
	}
	return out
}

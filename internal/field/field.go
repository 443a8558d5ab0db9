// Package field produces the list of players a run processes. Exactly one
// source is used, chosen by priority: tournament id, field file, explicit
// event, then the latest completed event.
package field

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/pable/pgaweekly/internal/model"
)

// ErrNoField marks every failure to obtain a field for a run.
var ErrNoField = errors.New("no field")

// Store is the registry side of a tournament field.
type Store interface {
	FieldNames(ctx context.Context, tournamentID string) ([]string, error)
}

// Events is the external source of event leaderboards.
type Events interface {
	FetchField(ctx context.Context, eventID, year int) ([]string, model.TournamentInfo, error)
	LatestEvent(ctx context.Context) (model.EventRef, error)
}

// Options selects the field source. The first non-empty option wins.
type Options struct {
	TournamentID string
	File         string
	Event        int // 0 means unset
	Year         int
}

// Field is the resolved player list.
type Field struct {
	Players    []string // registry spellings for stored and file fields
	Tournament model.TournamentInfo
	Source     string // short label recorded with the run
}

// Load picks a source from opts and returns its field. Any failure is fatal
// for the run and matches ErrNoField; hints name the remedy.
func Load(ctx context.Context, opts Options, store Store, events Events) (*Field, error) {
	switch {
	case opts.TournamentID != "":
		return fromTournament(ctx, store, opts.TournamentID)
	case opts.File != "":
		return fromFile(opts.File)
	case opts.Event != 0:
		year := opts.Year
		if year == 0 {
			year = time.Now().Year()
		}
		return fromEvent(ctx, events, model.EventRef{EventID: opts.Event, Year: year}, "event")
	default:
		ref, err := events.LatestEvent(ctx)
		if err != nil {
			return nil, noField(err, "could not detect a completed tournament",
				"use --event and --year, or --field-file")
		}
		return fromEvent(ctx, events, ref, "latest")
	}
}

func fromTournament(ctx context.Context, store Store, id string) (*Field, error) {
	stored, err := store.FieldNames(ctx, id)
	if err != nil {
		return nil, noField(err, "load field for tournament "+id,
			"check the --db setting and that the tournament id exists")
	}
	if len(stored) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(ErrNoField, "no players found for tournament %s", id),
			"import the field first: pgaweekly field import "+id+" <players.csv>")
	}

	return &Field{
		Players:    stored,
		Tournament: model.TournamentInfo{Name: "Tournament Field"},
		Source:     "tournament:" + id,
	}, nil
}

func fromFile(path string) (*Field, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, noField(err, "field file", "check the --field-file path")
	}
	defer f.Close()

	players, err := ReadNames(f)
	if err != nil {
		return nil, noField(err, "read field file "+path, "the first column must hold player names")
	}
	if len(players) == 0 {
		return nil, errors.WithHint(errors.Wrapf(ErrNoField, "field file %s has no players", path),
			"the first column must hold player names")
	}
	return &Field{
		Players:    players,
		Tournament: model.TournamentInfo{Name: "Field List"},
		Source:     "file:" + path,
	}, nil
}

func fromEvent(ctx context.Context, events Events, ref model.EventRef, label string) (*Field, error) {
	players, info, err := events.FetchField(ctx, ref.EventID, ref.Year)
	if err != nil {
		return nil, noField(err, fmt.Sprintf("fetch field for event %d/%d", ref.EventID, ref.Year),
			"the tournament may not be completed yet; try --event with an earlier event or --field-file")
	}
	if len(players) == 0 {
		return nil, errors.WithHint(
			errors.Wrapf(ErrNoField, "event %d/%d has an empty field", ref.EventID, ref.Year),
			"the tournament may not be completed yet")
	}
	return &Field{
		Players:    players,
		Tournament: info,
		Source:     fmt.Sprintf("%s:%d/%d", label, ref.EventID, ref.Year),
	}, nil
}

// ReadNames returns the trimmed first column of a CSV stream. A first row
// whose first column is "player" or "name" (any case) is a header and is
// skipped, as are blank names.
func ReadNames(r io.Reader) ([]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true

	var out []string
	first := true
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		name := ""
		if len(rec) > 0 {
			name = strings.TrimSpace(rec[0])
		}
		if first {
			first = false
			if l := strings.ToLower(name); l == "player" || l == "name" {
				continue
			}
		}
		if name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

func noField(cause error, msg, hint string) error {
	return errors.WithHint(errors.Mark(errors.Wrap(cause, msg), ErrNoField), hint)
}

package field

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pable/pgaweekly/internal/model"
)

type stubStore struct {
	names map[string][]string
	err   error
}

func (s stubStore) FieldNames(_ context.Context, id string) ([]string, error) {
	return s.names[id], s.err
}

type stubEvents struct {
	latest    model.EventRef
	latestErr error
	fields    map[model.EventRef][]string
	asked     []model.EventRef
}

func (s *stubEvents) FetchField(_ context.Context, ev, yr int) ([]string, model.TournamentInfo, error) {
	ref := model.EventRef{EventID: ev, Year: yr}
	s.asked = append(s.asked, ref)
	players, ok := s.fields[ref]
	if !ok {
		return nil, model.TournamentInfo{}, errors.New("HTTP 404")
	}
	return players, model.TournamentInfo{Name: "The Memorial", Date: "2024-06-09"}, nil
}

func (s *stubEvents) LatestEvent(context.Context) (model.EventRef, error) {
	return s.latest, s.latestErr
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "field.csv")
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestLoadFromTournament(t *testing.T) {
	store := stubStore{names: map[string][]string{
		"t-1": {"Matthias Schmid", "Sahith Theegala"},
	}}

	f, err := Load(context.Background(), Options{TournamentID: "t-1", File: "ignored.csv"}, store, &stubEvents{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Matthias Schmid", "Sahith Theegala"}, f.Players, "registry names kept")
	assert.Equal(t, "Tournament Field", f.Tournament.Name)
	assert.Equal(t, "tournament:t-1", f.Source)
}

func TestLoadFromTournamentEmpty(t *testing.T) {
	_, err := Load(context.Background(), Options{TournamentID: "t-2"}, stubStore{}, &stubEvents{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoField))
	hints := strings.Join(errors.GetAllHints(err), " ")
	assert.Contains(t, hints, "field import")
}

func TestLoadFromTournamentStoreError(t *testing.T) {
	boom := errors.New("relation does not exist")
	_, err := Load(context.Background(), Options{TournamentID: "t-3"}, stubStore{err: boom}, &stubEvents{})
	assert.True(t, errors.Is(err, ErrNoField))
	assert.True(t, errors.Is(err, boom))
}

func TestLoadFromFile(t *testing.T) {
	path := writeFile(t, "Player,Odds\nErik Van Rooyen,+4000\n\n  Tom Kim ,+2500\n,+9000\n")

	f, err := Load(context.Background(), Options{File: path, Event: 9}, stubStore{}, &stubEvents{})
	require.NoError(t, err)
	assert.Equal(t, []string{"Erik Van Rooyen", "Tom Kim"}, f.Players)
	assert.Equal(t, "Field List", f.Tournament.Name)
	assert.Equal(t, "file:"+path, f.Source)
}

func TestLoadFromMissingFile(t *testing.T) {
	_, err := Load(context.Background(), Options{File: "/nonexistent/field.csv"}, stubStore{}, &stubEvents{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoField))
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestLoadFromEventDefaultsYear(t *testing.T) {
	year := time.Now().Year()
	ev := &stubEvents{fields: map[model.EventRef][]string{
		{EventID: 23, Year: year}: {"Scottie Scheffler"},
	}}

	f, err := Load(context.Background(), Options{Event: 23}, stubStore{}, ev)
	require.NoError(t, err)
	assert.Equal(t, []string{"Scottie Scheffler"}, f.Players)
	assert.Equal(t, "The Memorial", f.Tournament.Name)
	require.Len(t, ev.asked, 1)
	assert.Equal(t, year, ev.asked[0].Year)
}

func TestLoadLatest(t *testing.T) {
	ref := model.EventRef{EventID: 26, Year: 2024}
	ev := &stubEvents{latest: ref, fields: map[model.EventRef][]string{ref: {"Bryson DeChambeau"}}}

	f, err := Load(context.Background(), Options{}, stubStore{}, ev)
	require.NoError(t, err)
	assert.Equal(t, "latest:26/2024", f.Source)
}

func TestLoadLatestNotDetected(t *testing.T) {
	ev := &stubEvents{latestErr: errors.New("no completed event found")}
	_, err := Load(context.Background(), Options{}, stubStore{}, ev)
	assert.True(t, errors.Is(err, ErrNoField))
	assert.Contains(t, strings.Join(errors.GetAllHints(err), " "), "--event")
}

func TestLoadEventEmptyField(t *testing.T) {
	ref := model.EventRef{EventID: 5, Year: 2025}
	ev := &stubEvents{fields: map[model.EventRef][]string{ref: {}}}
	_, err := Load(context.Background(), Options{Event: 5, Year: 2025}, stubStore{}, ev)
	assert.True(t, errors.Is(err, ErrNoField))
}

func TestReadNames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"header player", "player\nA B\n", []string{"A B"}},
		{"header NAME", "NAME,x\nA B,1\n", []string{"A B"}},
		{"no header", "A B\nC D\n", []string{"A B", "C D"}},
		{"header only on first row", "A B\nname\n", []string{"A B", "name"}},
		{"quoted", "\"Smith, Cameron\",1\n", []string{"Smith, Cameron"}},
		{"empty", "", nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := ReadNames(strings.NewReader(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

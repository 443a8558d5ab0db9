package pipeline

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pable/pgaweekly/internal/model"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

type mockResolver struct{ mock.Mock }

func newMockResolver(t testingT) *mockResolver {
	m := &mockResolver{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockResolver) Resolve(ctx context.Context, name string) (model.Player, error) {
	args := m.Called(ctx, name)
	p, _ := args.Get(0).(model.Player)
	return p, args.Error(1)
}

type mockFetcher struct{ mock.Mock }

func newMockFetcher(t testingT) *mockFetcher {
	m := &mockFetcher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockFetcher) FetchPlayer(ctx context.Context, name string) (*model.PlayerData, error) {
	args := m.Called(ctx, name)
	d, _ := args.Get(0).(*model.PlayerData)
	return d, args.Error(1)
}

type mockStore struct{ mock.Mock }

func newMockStore(t testingT) *mockStore {
	m := &mockStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockStore) UpsertTournamentResults(ctx context.Context, results []model.TournamentResult) (int, error) {
	args := m.Called(ctx, results)
	return args.Int(0), args.Error(1)
}

func (m *mockStore) UpsertSkillSnapshot(ctx context.Context, snap *model.SkillSnapshot) error {
	args := m.Called(ctx, snap)
	return args.Error(0)
}

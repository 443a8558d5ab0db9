package resolver

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/pable/pgaweekly/internal/model"
)

type mockRegistry struct {
	mock.Mock
}

func newMockRegistry(t interface {
	mock.TestingT
	Cleanup(func())
}) *mockRegistry {
	m := &mockRegistry{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockRegistry) PlayersByName(ctx context.Context, name string) ([]model.Player, error) {
	args := m.Called(ctx, name)
	ps, _ := args.Get(0).([]model.Player)
	return ps, args.Error(1)
}

func (m *mockRegistry) PlayersLike(ctx context.Context, fragment string) ([]model.Player, error) {
	args := m.Called(ctx, fragment)
	ps, _ := args.Get(0).([]model.Player)
	return ps, args.Error(1)
}

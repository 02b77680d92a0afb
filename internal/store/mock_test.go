package store

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/ukydev/rentacar/internal/models"
)

// MockAPI is a mock implementation of API
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *MockAPI) ListLocations(ctx context.Context) ([]models.Location, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Location), args.Error(1)
}

func (m *MockAPI) FilterVehicles(ctx context.Context, criteria string) ([]models.Vehicle, error) {
	args := m.Called(ctx, criteria)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Vehicle), args.Error(1)
}

func (m *MockAPI) Register(ctx context.Context, req models.RegisterRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *MockAPI) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.LoginResponse), args.Error(1)
}

func (m *MockAPI) CreateReservation(ctx context.Context, token string, req models.ReservationRequest) error {
	args := m.Called(ctx, token, req)
	return args.Error(0)
}

// recordingNavigator remembers every route pushed.
type recordingNavigator struct {
	routes []string
}

func (n *recordingNavigator) navigator() Navigator {
	return NavigatorFunc(func(route string) { n.routes = append(n.routes, route) })
}

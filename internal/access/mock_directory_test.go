package access

import (
	"context"

	"github.com/stretchr/testify/mock"
)

// MockDirectory is a testify mock of Directory.
type MockDirectory struct {
	mock.Mock
}

func (m *MockDirectory) IsPlatformAdmin(ctx context.Context, userID uint64) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) MovementOf(ctx context.Context, orgID uint64) (uint64, error) {
	args := m.Called(ctx, orgID)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *MockDirectory) IsMovementAdmin(ctx context.Context, userID, movementID uint64) (bool, error) {
	args := m.Called(ctx, userID, movementID)
	return args.Bool(0), args.Error(1)
}

func (m *MockDirectory) IsChairman(ctx context.Context, userID, orgID uint64) (bool, error) {
	args := m.Called(ctx, userID, orgID)
	return args.Bool(0), args.Error(1)
}

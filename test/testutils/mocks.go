// Package testutils provides mock implementations for testing
package testutils

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/macromojo/macromojo/internal/domain/nutrition"
	"github.com/macromojo/macromojo/internal/domain/user"
	"github.com/macromojo/macromojo/internal/ports/outbound"
)

// MockUserRepository provides a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

var _ outbound.UserRepository = (*MockUserRepository)(nil)

// FindLogin mocks credential checks
func (m *MockUserRepository) FindLogin(ctx context.Context, username, password string) (bool, error) {
	args := m.Called(ctx, username, password)
	return args.Bool(0), args.Error(1)
}

// GetUserID mocks id lookups
func (m *MockUserRepository) GetUserID(ctx context.Context, username string) (int64, bool, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(int64), args.Bool(1), args.Error(2)
}

// CreateUser mocks signups
func (m *MockUserRepository) CreateUser(ctx context.Context, u *user.User, target nutrition.Macros) (int64, error) {
	args := m.Called(ctx, u, target)
	return args.Get(0).(int64), args.Error(1)
}

// GetUserTargets mocks target reads
func (m *MockUserRepository) GetUserTargets(ctx context.Context, username string) (*nutrition.Target, error) {
	args := m.Called(ctx, username)
	if t, ok := args.Get(0).(*nutrition.Target); ok {
		return t, args.Error(1)
	}
	return nil, args.Error(1)
}

// UpdateUserTargets mocks target writes
func (m *MockUserRepository) UpdateUserTargets(ctx context.Context, username string, target nutrition.Macros) error {
	args := m.Called(ctx, username, target)
	return args.Error(0)
}

// MockChatModel provides a mock language model
type MockChatModel struct {
	mock.Mock
	ProviderName string
}

var _ outbound.ChatModel = (*MockChatModel)(nil)

// Name returns the configured provider name
func (m *MockChatModel) Name() string {
	if m.ProviderName == "" {
		return "mock"
	}
	return m.ProviderName
}

// Complete mocks a completion call
func (m *MockChatModel) Complete(ctx context.Context, req outbound.ChatRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

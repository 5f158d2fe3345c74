package mocks

import "github.com/stretchr/testify/mock"

// MockTokenCipher is a mock implementation of emecef.TokenCipher.
type MockTokenCipher struct {
	mock.Mock
}

func (m *MockTokenCipher) Encrypt(plain string) (string, error) {
	args := m.Called(plain)
	return args.String(0), args.Error(1)
}

func (m *MockTokenCipher) Decrypt(stored string) (string, error) {
	args := m.Called(stored)
	return args.String(0), args.Error(1)
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/ruteri/wallet-background/interfaces"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// MockKVStore implements interfaces.KVStore for testing
type MockKVStore struct {
	mock.Mock
	name string
}

func (m *MockKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockKVStore) Set(ctx context.Context, key string, value []byte) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

func (m *MockKVStore) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *MockKVStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockKVStore) Name() string {
	return m.name
}

func (m *MockKVStore) LocationURI() string {
	return "mock:"
}

func TestMultiStore_Available(t *testing.T) {
	tests := []struct {
		name     string
		backends []bool
		expected bool
	}{
		{
			name:     "all backends available",
			backends: []bool{true, true, true},
			expected: true,
		},
		{
			name:     "some backends available",
			backends: []bool{false, true, false},
			expected: true,
		},
		{
			name:     "no backends available",
			backends: []bool{false, false, false},
			expected: false,
		},
		{
			name:     "no backends",
			backends: []bool{},
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var backends []interfaces.KVStore
			for i, available := range tt.backends {
				mockStore := &MockKVStore{name: fmt.Sprintf("mock-A%x", i)}
				mockStore.On("Available", mock.Anything).Return(available).Maybe()
				backends = append(backends, mockStore)
			}

			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(backends, logger)

			result := multi.Available(context.Background())
			assert.Equal(t, tt.expected, result)

			for _, backend := range backends {
				backend.(*MockKVStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Get(t *testing.T) {
	testKey := "seed-secret-4-secret1abc"
	testData := []byte("test data")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.KVStore
		expectedData  []byte
		expectedError error
	}{
		{
			name: "first backend successful",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, testKey).Return(testData, nil)

				mock2 := &MockKVStore{name: "mock-B"}
				// This mock should not be called as the first one succeeds

				return []interfaces.KVStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "first backend fails, second succeeds",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, testKey).Return(nil, testErr)

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, testKey).Return(testData, nil)

				return []interfaces.KVStore{mock1, mock2}
			},
			expectedData: testData,
		},
		{
			name: "missing everywhere",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, testKey).Return(nil, interfaces.ErrNotFound)

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, testKey).Return(nil, interfaces.ErrNotFound)

				return []interfaces.KVStore{mock1, mock2}
			},
			expectedError: interfaces.ErrNotFound,
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Get", mock.Anything, testKey).Return(nil, testErr)

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, testKey).Return(nil, interfaces.ErrNotFound)

				return []interfaces.KVStore{mock1, mock2}
			},
			expectedError: interfaces.ErrBackendUnavailable,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				// Get should not be called

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Get", mock.Anything, testKey).Return(testData, nil)

				return []interfaces.KVStore{mock1, mock2}
			},
			expectedData: testData,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(backends, logger)

			data, err := multi.Get(context.Background(), testKey)

			if tt.expectedError != nil {
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				assert.NoError(t, err)
			}
			assert.Equal(t, tt.expectedData, data)

			for _, backend := range backends {
				backend.(*MockKVStore).AssertExpectations(t)
			}
		})
	}
}

func TestMultiStore_Set(t *testing.T) {
	testKey := "permissions"
	testData := []byte("test data")
	testErr := errors.New("test error")

	tests := []struct {
		name          string
		setupMocks    func() []interfaces.KVStore
		expectedError bool
	}{
		{
			name: "all backends successful",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Set", mock.Anything, testKey, testData).Return(nil)

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Set", mock.Anything, testKey, testData).Return(nil)

				return []interfaces.KVStore{mock1, mock2}
			},
		},
		{
			name: "some backends fail",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Set", mock.Anything, testKey, testData).Return(nil)

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Set", mock.Anything, testKey, testData).Return(testErr)

				return []interfaces.KVStore{mock1, mock2}
			},
		},
		{
			name: "all backends fail",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(true)
				mock1.On("Set", mock.Anything, testKey, testData).Return(testErr)

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Set", mock.Anything, testKey, testData).Return(testErr)

				return []interfaces.KVStore{mock1, mock2}
			},
			expectedError: true,
		},
		{
			name: "unavailable backends are skipped",
			setupMocks: func() []interfaces.KVStore {
				mock1 := &MockKVStore{name: "mock-A"}
				mock1.On("Available", mock.Anything).Return(false)
				// Set should not be called

				mock2 := &MockKVStore{name: "mock-B"}
				mock2.On("Available", mock.Anything).Return(true)
				mock2.On("Set", mock.Anything, testKey, testData).Return(nil)

				return []interfaces.KVStore{mock1, mock2}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backends := tt.setupMocks()
			logger := slog.New(slog.NewTextHandler(io.Discard, nil))
			multi := NewMultiStore(backends, logger)

			err := multi.Set(context.Background(), testKey, testData)

			if tt.expectedError {
				assert.ErrorIs(t, err, interfaces.ErrBackendUnavailable)
			} else {
				assert.NoError(t, err)
			}

			for _, backend := range backends {
				backend.(*MockKVStore).AssertExpectations(t)
			}
		})
	}
}

type closingKVStore struct {
	*MockKVStore
	closeErr error
	closed   bool
}

func (c *closingKVStore) Close() error {
	c.closed = true
	return c.closeErr
}

func TestMultiStore_Close(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ok := &closingKVStore{MockKVStore: &MockKVStore{name: "ok"}}
	failing := &closingKVStore{MockKVStore: &MockKVStore{name: "failing"}, closeErr: errors.New("flush failed")}
	plain := &MockKVStore{name: "plain"}

	multi := NewMultiStore([]interfaces.KVStore{ok, plain, failing}, logger)
	err := multi.Close()

	assert.True(t, ok.closed)
	assert.True(t, failing.closed)
	assert.ErrorContains(t, err, "failing: flush failed")
}

package book

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"

	"circulation-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var logger = slog.New(slog.NewTextHandler(os.Stdout, nil))

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) Create(ctx context.Context, b *Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *MockRepository) FindByISBN(ctx context.Context, isbn string) (*Book, error) {
	args := m.Called(ctx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Book), args.Error(1)
}

func (m *MockRepository) FindByISBNForUpdate(ctx context.Context, tx pgx.Tx, isbn string) (*Book, error) {
	args := m.Called(ctx, tx, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Book), args.Error(1)
}

func (m *MockRepository) AdjustCopiesInTx(ctx context.Context, tx pgx.Tx, isbn string, delta int) error {
	args := m.Called(ctx, tx, isbn, delta)
	return args.Error(0)
}

var _ Repository = (*MockRepository)(nil)

const testISBN = "9781234567890"

func TestAddBookSucceeds(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, nil, logger)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.Anything).Return(nil)

	b, err := service.AddBook(ctx, testISBN, "Effective Concurrency", "Addison Wesley", 3)

	require.NoError(t, err)
	assert.Equal(t, testISBN, b.ISBN)
	assert.Equal(t, 3, b.Copies)
	mockRepo.AssertExpectations(t)
}

func TestAddBookDefaultsToOneCopy(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, nil, logger)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.Anything).Return(nil)

	b, err := service.AddBook(ctx, testISBN, "Effective Concurrency", "Addison Wesley", 0)

	require.NoError(t, err)
	assert.Equal(t, 1, b.Copies)
}

func TestAddBookValidation(t *testing.T) {
	tests := []struct {
		name      string
		isbn      string
		title     string
		publisher string
	}{
		{"short isbn", "12345", "Title", "Publisher"},
		{"isbn with letters", "978123456789X", "Title", "Publisher"},
		{"empty title", testISBN, "", "Publisher"},
		{"title with digits", testISBN, "Title 2", "Publisher"},
		{"empty publisher", testISBN, "Title", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockRepo := new(MockRepository)
			service := NewService(mockRepo, nil, logger)

			b, err := service.AddBook(context.Background(), tt.isbn, tt.title, tt.publisher, 1)

			assert.ErrorIs(t, err, apperrors.ErrInvalidArgument)
			assert.Nil(t, b)
			mockRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestAddBookDuplicateISBN(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, nil, logger)
	ctx := context.Background()

	mockRepo.On("Create", ctx, mock.Anything).Return(apperrors.ErrBookAlreadyExists)

	b, err := service.AddBook(ctx, testISBN, "Effective Concurrency", "Addison Wesley", 1)

	assert.ErrorIs(t, err, apperrors.ErrBookAlreadyExists)
	assert.Nil(t, b)
}

func TestGetBookSucceeds(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, nil, logger)
	ctx := context.Background()
	expected := &Book{ISBN: testISBN, Copies: 2}

	mockRepo.On("FindByISBN", ctx, testISBN).Return(expected, nil)

	b, err := service.GetBook(ctx, testISBN)

	require.NoError(t, err)
	assert.Equal(t, expected, b)
}

func TestGetBookNotFound(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, nil, logger)
	ctx := context.Background()

	mockRepo.On("FindByISBN", ctx, testISBN).Return(nil, nil)

	b, err := service.GetBook(ctx, testISBN)

	assert.ErrorIs(t, err, apperrors.ErrBookNotFound)
	assert.Nil(t, b)
}

func TestGetBookRepositoryError(t *testing.T) {
	mockRepo := new(MockRepository)
	service := NewService(mockRepo, nil, logger)
	ctx := context.Background()
	dbErr := errors.New("connection reset")

	mockRepo.On("FindByISBN", ctx, testISBN).Return(nil, dbErr)

	b, err := service.GetBook(ctx, testISBN)

	assert.ErrorIs(t, err, dbErr)
	assert.Nil(t, b)
}

func TestBookAvailable(t *testing.T) {
	assert.True(t, (&Book{Copies: 1}).Available())
	assert.True(t, (&Book{Copies: 5}).Available())
	assert.False(t, (&Book{Copies: 0}).Available())
}

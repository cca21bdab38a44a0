package loan

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRepository struct {
	mock.Mock
}

type TxMock struct {
	pgx.Tx
}

var tx pgx.Tx = &TxMock{}

func (m *MockRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *Loan) (*Loan, error) {
	args := m.Called(ctx, tx, newLoan)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) CountOpenLoansByMemberInTx(ctx context.Context, tx pgx.Tx, memberCode string, asOf time.Time) (int, error) {
	args := m.Called(ctx, tx, memberCode, asOf)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) FindUnsettledLoanForUpdate(ctx context.Context, tx pgx.Tx, memberCode, isbn string) (*Loan, error) {
	args := m.Called(ctx, tx, memberCode, isbn)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Loan), args.Error(1)
}

func (m *MockRepository) CloseLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64, endDate time.Time) error {
	args := m.Called(ctx, tx, loanID, endDate)
	return args.Error(0)
}

func (m *MockRepository) ReassignLoansInTx(ctx context.Context, tx pgx.Tx, loanIDs []int64, memberCode string) error {
	args := m.Called(ctx, tx, loanIDs, memberCode)
	return args.Error(0)
}

func (m *MockRepository) MarkSettledInTx(ctx context.Context, tx pgx.Tx, loanIDs []int64) error {
	args := m.Called(ctx, tx, loanIDs)
	return args.Error(0)
}

func (m *MockRepository) FindLoansByYear(ctx context.Context, year int) ([]Loan, error) {
	args := m.Called(ctx, year)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Loan), args.Error(1)
}

func (m *MockRepository) FindOpenLoansByMember(ctx context.Context, memberCode string, asOf time.Time) ([]Loan, error) {
	args := m.Called(ctx, memberCode, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Loan), args.Error(1)
}

func (m *MockRepository) FindLoansDueOnOrBefore(ctx context.Context, date time.Time) ([]Loan, error) {
	args := m.Called(ctx, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Loan), args.Error(1)
}

func (m *MockRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(pgx.Tx), args.Error(1)
}

func (m *MockRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

func (m *MockRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	args := m.Called(ctx, tx)
	return args.Error(0)
}

var _ Repository = (*MockRepository)(nil)

func TestRepository_InsertLoanInTx(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()
	newLoan := &Loan{BookISBN: "9781234567890", MemberCode: "ABC123"}
	expectedLoan := &Loan{ID: 1, BookISBN: "9781234567890", MemberCode: "ABC123"}

	mockRepo.On("InsertLoanInTx", ctx, tx, newLoan).Return(expectedLoan, nil)

	result, err := mockRepo.InsertLoanInTx(ctx, tx, newLoan)
	require.NoError(t, err)
	require.Equal(t, expectedLoan, result)

	mockRepo.AssertExpectations(t)
}

func TestRepository_CountOpenLoansByMemberInTx(t *testing.T) {
	mockRepo := new(MockRepository)
	ctx := context.Background()
	asOf := time.Now()

	mockRepo.On("CountOpenLoansByMemberInTx", ctx, tx, "ABC123", asOf).Return(1, nil)

	count, err := mockRepo.CountOpenLoansByMemberInTx(ctx, tx, "ABC123", asOf)
	require.NoError(t, err)
	require.Equal(t, 1, count)

	mockRepo.AssertExpectations(t)
}

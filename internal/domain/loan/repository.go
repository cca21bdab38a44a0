package loan

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// InsertLoanInTx persists a new open loan inside tx and returns it with
	// its generated identity.
	InsertLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *Loan) (*Loan, error)

	// CountOpenLoansByMemberInTx counts the member's open loans as of asOf
	// against the snapshot of tx.
	CountOpenLoansByMemberInTx(ctx context.Context, tx pgx.Tx, memberCode string, asOf time.Time) (int, error)

	// FindUnsettledLoanForUpdate locks and returns the loan for the
	// (member, book) pair whose copy has not been put back in stock yet.
	FindUnsettledLoanForUpdate(ctx context.Context, tx pgx.Tx, memberCode, isbn string) (*Loan, error)

	// CloseLoanInTx stamps the end date and marks the loan's stock settled.
	CloseLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64, endDate time.Time) error

	// ReassignLoansInTx moves every listed loan to the given member. Each
	// update must affect exactly one row or the whole batch fails.
	ReassignLoansInTx(ctx context.Context, tx pgx.Tx, loanIDs []int64, memberCode string) error

	// MarkSettledInTx records that the listed loans' copies are back in stock.
	MarkSettledInTx(ctx context.Context, tx pgx.Tx, loanIDs []int64) error

	FindLoansByYear(ctx context.Context, year int) ([]Loan, error)

	FindOpenLoansByMember(ctx context.Context, memberCode string, asOf time.Time) ([]Loan, error)

	// FindLoansDueOnOrBefore returns unsettled loans whose end date equals or
	// has passed the given date.
	FindLoansDueOnOrBefore(ctx context.Context, date time.Time) ([]Loan, error)

	BeginTx(ctx context.Context) (pgx.Tx, error)

	CommitTx(ctx context.Context, tx pgx.Tx) error

	RollbackTx(ctx context.Context, tx pgx.Tx) error
}

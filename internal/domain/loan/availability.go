package loan

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/domain/book"
	"circulation-engine/internal/domain/member"
	"circulation-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

// Availability is the outcome of a successful eligibility check: the book row
// comes back locked by tx so the subsequent stock decrement observes the same
// snapshot the check did.
type Availability struct {
	Book   *book.Book
	Member *member.Member
}

type AvailabilityChecker struct {
	books   book.Repository
	members member.Repository
	loans   Repository
	logger  *slog.Logger
}

func NewAvailabilityChecker(books book.Repository, members member.Repository, loans Repository, logger *slog.Logger) *AvailabilityChecker {
	if books == nil || members == nil || loans == nil {
		panic("AvailabilityChecker dependencies cannot be nil")
	}
	return &AvailabilityChecker{
		books:   books,
		members: members,
		loans:   loans,
		logger:  logger.With("component", "AvailabilityChecker"),
	}
}

// CanLend decides whether the member may take the book out as of asOf. The
// checks run in a fixed order and every failure is reported before any
// mutation: unknown book, no free copy, unknown member, member at the loan
// limit. The limit is exactly one open loan per member.
//
// Both the book and the member rows are read FOR UPDATE. The member lock is
// what enforces the limit under concurrency: two lends by the same member for
// different books touch different book rows, so without it both would read a
// zero open-loan count and commit.
func (c *AvailabilityChecker) CanLend(ctx context.Context, tx pgx.Tx, isbn, memberCode string, asOf time.Time) (*Availability, error) {
	b, err := c.books.FindByISBNForUpdate(ctx, tx, isbn)
	if err != nil {
		return nil, err
	}
	if b == nil {
		c.logger.WarnContext(ctx, "Book not found during availability check", "isbn", isbn)
		return nil, fmt.Errorf("%w: isbn %s", apperrors.ErrBookNotFound, isbn)
	}
	if !b.Available() {
		c.logger.InfoContext(ctx, "Book has no free copies", "isbn", isbn)
		return nil, fmt.Errorf("%w: isbn %s", apperrors.ErrBookUnavailable, isbn)
	}

	m, err := c.members.FindByCodeForUpdate(ctx, tx, memberCode)
	if err != nil {
		return nil, err
	}
	if m == nil {
		c.logger.WarnContext(ctx, "Member not found during availability check", "member_code", memberCode)
		return nil, fmt.Errorf("%w: code %s", apperrors.ErrMemberNotFound, memberCode)
	}

	openLoans, err := c.loans.CountOpenLoansByMemberInTx(ctx, tx, memberCode, asOf)
	if err != nil {
		return nil, err
	}
	if openLoans >= 1 {
		c.logger.InfoContext(ctx, "Member already holds an open loan", "member_code", memberCode, "open_loans", openLoans)
		return nil, fmt.Errorf("%w: member %s", apperrors.ErrMemberAtLimit, memberCode)
	}

	return &Availability{Book: b, Member: m}, nil
}

package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/domain/book"
	"circulation-engine/internal/domain/member"
	"circulation-engine/internal/event"
	"circulation-engine/internal/infrastructure/monitoring"
	"circulation-engine/internal/pkg/apperrors"
	"circulation-engine/internal/pkg/validate"

	"github.com/google/uuid"
)

// CirculationService is the lending coordinator: it decides whether a
// requested loan or return is legal, mutates the stock counter consistently
// and resolves conflicting concurrent requests through the store's row locks.
type CirculationService interface {
	// Lend opens a loan for the member and takes one copy off the shelf.
	Lend(ctx context.Context, memberCode, isbn string, startDate time.Time, endDate *time.Time) (*Loan, error)

	// ReturnBook closes the member's loan of the book and puts the copy back.
	ReturnBook(ctx context.Context, memberCode, isbn string) (*Loan, error)

	// ReassignLoans moves a batch of loans to another member, all or nothing.
	// Stock counters are untouched; this is an administrative correction, not
	// a new lend event.
	ReassignLoans(ctx context.Context, loanIDs []int64, memberCode string) (int, error)

	LoansByYear(ctx context.Context, year int) ([]Loan, error)

	OpenLoansByMember(ctx context.Context, memberCode string) ([]Loan, error)
}

type circulationService struct {
	repo         Repository
	books        book.Repository
	members      member.Repository
	availability *AvailabilityChecker
	pub          event.Publisher
	logger       *slog.Logger
}

var _ CirculationService = (*circulationService)(nil)

func NewCirculationService(repo Repository, books book.Repository, members member.Repository, pub event.Publisher, logger *slog.Logger) CirculationService {
	if repo == nil || books == nil || members == nil {
		panic("circulation service dependencies cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &circulationService{
		repo:         repo,
		books:        books,
		members:      members,
		availability: NewAvailabilityChecker(books, members, repo, logger),
		pub:          pub,
		logger:       logger.With(slog.String("component", "circulationService")),
	}
}

func today() time.Time {
	return time.Now().Truncate(24 * time.Hour)
}

func (s *circulationService) Lend(ctx context.Context, memberCode, isbn string, startDate time.Time, endDate *time.Time) (createdLoan *Loan, err error) {
	s.logger.InfoContext(ctx, "Processing lend request", "member_code", memberCode, "isbn", isbn)
	defer func() { monitoring.RecordOperation("lend", outcome(err)) }()

	if err = ValidateDateRange(startDate, endDate); err != nil {
		s.logger.WarnContext(ctx, "Lend request has an invalid date range", slog.Any("error", err))
		return nil, err
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.WrapTransactionFailure("lend", isbn, err)
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during lend", "isbn", isbn, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if _, err = s.availability.CanLend(ctx, tx, isbn, memberCode, today()); err != nil {
		// Eligibility failures leave the store untouched; the rollback in the
		// deferred handler only releases the read locks.
		return nil, err
	}

	newLoan, err := NewLoan(memberCode, isbn, startDate, endDate)
	if err != nil {
		return nil, err
	}

	createdLoan, err = s.repo.InsertLoanInTx(ctx, tx, newLoan)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to insert loan", "isbn", isbn, slog.Any("error", err))
		return nil, apperrors.WrapTransactionFailure("lend", isbn, err)
	}

	if err = s.books.AdjustCopiesInTx(ctx, tx, isbn, -1); err != nil {
		s.logger.ErrorContext(ctx, "Failed to decrement book stock", "isbn", isbn, slog.Any("error", err))
		return nil, apperrors.WrapTransactionFailure("lend", isbn, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, apperrors.WrapTransactionFailure("lend", isbn, err)
	}

	s.logger.InfoContext(ctx, "Loan opened", "loan_id", createdLoan.ID, "member_code", memberCode, "isbn", isbn)
	s.publishLoanOpened(ctx, createdLoan)

	return createdLoan, nil
}

func (s *circulationService) ReturnBook(ctx context.Context, memberCode, isbn string) (returnedLoan *Loan, err error) {
	s.logger.InfoContext(ctx, "Processing return request", "member_code", memberCode, "isbn", isbn)
	defer func() { monitoring.RecordOperation("return", outcome(err)) }()

	m, err := s.members.FindByCode(ctx, memberCode)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, fmt.Errorf("%w: code %s", apperrors.ErrMemberNotFound, memberCode)
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, apperrors.WrapTransactionFailure("return", isbn, err)
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during return", "isbn", isbn, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	b, err := s.books.FindByISBNForUpdate(ctx, tx, isbn)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: isbn %s", apperrors.ErrBookNotFound, isbn)
	}

	// The one-loan-per-member policy guarantees this lookup is unique when it
	// succeeds. A loan already settled by reconciliation no longer matches:
	// its copy is back in stock and there is nothing left to return.
	active, err := s.repo.FindUnsettledLoanForUpdate(ctx, tx, memberCode, isbn)
	if err != nil {
		return nil, err
	}
	if active == nil {
		s.logger.InfoContext(ctx, "No active loan to return", "member_code", memberCode, "isbn", isbn)
		return nil, fmt.Errorf("%w: member %s, isbn %s", apperrors.ErrNoActiveLoan, memberCode, isbn)
	}

	endDate := active.EffectiveReturnDate(today())

	if err = s.repo.CloseLoanInTx(ctx, tx, active.ID, endDate); err != nil {
		s.logger.ErrorContext(ctx, "Failed to close loan", "loan_id", active.ID, slog.Any("error", err))
		return nil, apperrors.WrapTransactionFailure("return", isbn, err)
	}

	if err = s.books.AdjustCopiesInTx(ctx, tx, isbn, 1); err != nil {
		s.logger.ErrorContext(ctx, "Failed to increment book stock", "isbn", isbn, slog.Any("error", err))
		return nil, apperrors.WrapTransactionFailure("return", isbn, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return nil, apperrors.WrapTransactionFailure("return", isbn, err)
	}

	active.EndDate = &endDate
	active.StockSettled = true
	s.logger.InfoContext(ctx, "Loan closed", "loan_id", active.ID, "end_date", endDate.Format(validate.DateLayout))
	s.publishLoanClosed(ctx, active, endDate)

	return active, nil
}

func (s *circulationService) ReassignLoans(ctx context.Context, loanIDs []int64, memberCode string) (reassigned int, err error) {
	s.logger.InfoContext(ctx, "Processing bulk loan reassignment", "member_code", memberCode, "loan_count", len(loanIDs))
	defer func() { monitoring.RecordOperation("reassign", outcome(err)) }()

	// The target must resolve before any mutation.
	m, err := s.members.FindByCode(ctx, memberCode)
	if err != nil {
		return 0, err
	}
	if m == nil {
		s.logger.WarnContext(ctx, "Reassignment target member not found", "member_code", memberCode)
		return 0, fmt.Errorf("%w: code %s", apperrors.ErrMemberNotFound, memberCode)
	}

	if len(loanIDs) == 0 {
		return 0, nil
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return 0, apperrors.WrapTransactionFailure("reassign", memberCode, err)
	}
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "Panic occurred during reassignment", "member_code", memberCode, "error", p)
			_ = s.repo.RollbackTx(ctx, tx)
			panic(p)
		}
		if err != nil {
			_ = s.repo.RollbackTx(ctx, tx)
		}
	}()

	if err = s.repo.ReassignLoansInTx(ctx, tx, loanIDs, memberCode); err != nil {
		s.logger.ErrorContext(ctx, "Failed to reassign loan batch, rolling back", slog.Any("error", err))
		return 0, apperrors.WrapTransactionFailure("reassign", memberCode, err)
	}

	if err = s.repo.CommitTx(ctx, tx); err != nil {
		return 0, apperrors.WrapTransactionFailure("reassign", memberCode, err)
	}

	s.logger.InfoContext(ctx, "Loan batch reassigned", "member_code", memberCode, "loan_count", len(loanIDs))
	s.publishLoansReassigned(ctx, loanIDs, memberCode)

	return len(loanIDs), nil
}

func (s *circulationService) LoansByYear(ctx context.Context, year int) ([]Loan, error) {
	if !validate.LoanYear(year) {
		return nil, fmt.Errorf("%w: year %d is out of range", apperrors.ErrInvalidArgument, year)
	}
	loans, err := s.repo.FindLoansByYear(ctx, year)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query loans by year", "year", year, slog.Any("error", err))
		return nil, err
	}
	return loans, nil
}

func (s *circulationService) OpenLoansByMember(ctx context.Context, memberCode string) ([]Loan, error) {
	if !validate.MemberCode(memberCode) {
		return nil, fmt.Errorf("%w: malformed member code %q", apperrors.ErrInvalidArgument, memberCode)
	}
	// A loan returned earlier today carries today's end date; querying as of
	// tomorrow keeps it off the member's possession list.
	asOf := today().AddDate(0, 0, 1)
	loans, err := s.repo.FindOpenLoansByMember(ctx, memberCode, asOf)
	if err != nil {
		s.logger.ErrorContext(ctx, "Failed to query member's open loans", "member_code", memberCode, slog.Any("error", err))
		return nil, err
	}
	return loans, nil
}

func (s *circulationService) publishLoanOpened(ctx context.Context, l *Loan) {
	ev := event.LoanOpenedEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		Payload:   loanPayload(l),
	}
	if err := s.pub.PublishLoanOpened(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Loan opened, but failed to publish event", "loan_id", l.ID, slog.Any("error", err))
	}
}

func (s *circulationService) publishLoanClosed(ctx context.Context, l *Loan, returnDate time.Time) {
	ev := event.LoanClosedEvent{
		EventID:    uuid.NewString(),
		Timestamp:  time.Now(),
		ReturnDate: returnDate,
		Payload:    loanPayload(l),
	}
	if err := s.pub.PublishLoanClosed(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Loan closed, but failed to publish event", "loan_id", l.ID, slog.Any("error", err))
	}
}

func (s *circulationService) publishLoansReassigned(ctx context.Context, loanIDs []int64, memberCode string) {
	ev := event.LoansReassignedEvent{
		EventID:       uuid.NewString(),
		Timestamp:     time.Now(),
		LoanIDs:       loanIDs,
		NewMemberCode: memberCode,
	}
	if err := s.pub.PublishLoansReassigned(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Loans reassigned, but failed to publish event", slog.Any("error", err))
	}
}

func loanPayload(l *Loan) event.LoanEventPayload {
	return event.LoanEventPayload{
		LoanID:     l.ID,
		BookISBN:   l.BookISBN,
		MemberCode: l.MemberCode,
		StartDate:  l.StartDate,
		EndDate:    l.EndDate,
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, apperrors.ErrTransactionFailed):
		return "failure_transaction"
	default:
		return "failure_validation"
	}
}

package loan

import (
	"fmt"
	"time"

	"circulation-engine/internal/pkg/apperrors"
)

type Status string

const (
	// StatusRequested exists only inside a lend transaction; a loan is never
	// observed in this state outside of one.
	StatusRequested Status = "REQUESTED"
	StatusOpen      Status = "OPEN"
	StatusClosed    Status = "CLOSED"
)

// Loan records one book copy being out with one member. Loans are closed by
// setting the end date, never deleted. StockSettled marks that this loan's
// copy has already been put back in stock, either by an explicit return or by
// the reconciliation job, so the correction is applied exactly once.
type Loan struct {
	ID           int64      `json:"id"`
	BookISBN     string     `json:"bookIsbn"`
	MemberCode   string     `json:"memberCode"`
	StartDate    time.Time  `json:"startDate"`
	EndDate      *time.Time `json:"endDate,omitempty"`
	StockSettled bool       `json:"stockSettled"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

func NewLoan(memberCode, isbn string, startDate time.Time, endDate *time.Time) (*Loan, error) {
	if err := ValidateDateRange(startDate, endDate); err != nil {
		return nil, err
	}
	return &Loan{
		BookISBN:   isbn,
		MemberCode: memberCode,
		StartDate:  startDate,
		EndDate:    endDate,
	}, nil
}

// ValidateDateRange checks the lend date pair: the start date must be a real
// calendar date and the end date, when given, must not precede it.
func ValidateDateRange(startDate time.Time, endDate *time.Time) error {
	if startDate.IsZero() {
		return fmt.Errorf("%w: start date is required", apperrors.ErrInvalidDateRange)
	}
	if endDate != nil && endDate.Before(startDate) {
		return fmt.Errorf("%w: end date %s precedes start date %s",
			apperrors.ErrInvalidDateRange, endDate.Format("2006-01-02"), startDate.Format("2006-01-02"))
	}
	return nil
}

// Open reports whether the book is still considered out as of the reference
// date: no end date, or an end date not yet reached.
func (l *Loan) Open(asOf time.Time) bool {
	return l.EndDate == nil || l.EndDate.After(asOf)
}

// Matured reports whether the loan's due date has passed without the copy
// having been put back in stock yet.
func (l *Loan) Matured(asOf time.Time) bool {
	return !l.StockSettled && l.EndDate != nil && !l.EndDate.After(asOf)
}

// State derives the externally observable lifecycle state. A loan whose copy
// is back in stock is terminal.
func (l *Loan) State() Status {
	if l.StockSettled {
		return StatusClosed
	}
	return StatusOpen
}

// EffectiveReturnDate picks the end date a return stamps on the loan: a due
// date that already passed is kept as agreed, anything else becomes today.
func (l *Loan) EffectiveReturnDate(today time.Time) time.Time {
	if l.EndDate != nil && l.EndDate.Before(today) {
		return *l.EndDate
	}
	return today
}

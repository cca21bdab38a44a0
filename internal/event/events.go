package event

import (
	"context"
	"time"
)

type LoanEventPayload struct {
	LoanID     int64      `json:"loanId"`
	BookISBN   string     `json:"bookIsbn"`
	MemberCode string     `json:"memberCode"`
	StartDate  time.Time  `json:"startDate"`
	EndDate    *time.Time `json:"endDate,omitempty"`
}

type LoanOpenedEvent struct {
	EventID   string           `json:"eventId"`
	Timestamp time.Time        `json:"timestamp"`
	Payload   LoanEventPayload `json:"payload"`
}

type LoanClosedEvent struct {
	EventID    string           `json:"eventId"`
	Timestamp  time.Time        `json:"timestamp"`
	ReturnDate time.Time        `json:"returnDate"`
	Payload    LoanEventPayload `json:"payload"`
}

type LoansReassignedEvent struct {
	EventID       string    `json:"eventId"`
	Timestamp     time.Time `json:"timestamp"`
	LoanIDs       []int64   `json:"loanIds"`
	NewMemberCode string    `json:"newMemberCode"`
}

type MemberRegisteredEvent struct {
	EventID    string    `json:"eventId"`
	Timestamp  time.Time `json:"timestamp"`
	MemberCode string    `json:"memberCode"`
}

type BookAddedEvent struct {
	EventID   string    `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
	ISBN      string    `json:"isbn"`
	Copies    int       `json:"copies"`
}

// Publisher announces circulation facts to interested consumers. Publishing
// is best-effort: a failed publish is logged by the caller and never fails
// the operation that produced the event.
type Publisher interface {
	PublishLoanOpened(ctx context.Context, event LoanOpenedEvent) error
	PublishLoanClosed(ctx context.Context, event LoanClosedEvent) error
	PublishLoansReassigned(ctx context.Context, event LoansReassignedEvent) error
	PublishMemberRegistered(ctx context.Context, event MemberRegisteredEvent) error
	PublishBookAdded(ctx context.Context, event BookAddedEvent) error
}

// NoopPublisher drops every event. Used when no broker is configured.
type NoopPublisher struct{}

var _ Publisher = (*NoopPublisher)(nil)

func (NoopPublisher) PublishLoanOpened(context.Context, LoanOpenedEvent) error         { return nil }
func (NoopPublisher) PublishLoanClosed(context.Context, LoanClosedEvent) error         { return nil }
func (NoopPublisher) PublishLoansReassigned(context.Context, LoansReassignedEvent) error {
	return nil
}
func (NoopPublisher) PublishMemberRegistered(context.Context, MemberRegisteredEvent) error {
	return nil
}
func (NoopPublisher) PublishBookAdded(context.Context, BookAddedEvent) error { return nil }

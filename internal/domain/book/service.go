package book

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/event"
	"circulation-engine/internal/pkg/apperrors"
	"circulation-engine/internal/pkg/validate"

	"github.com/google/uuid"
)

type Service interface {
	// AddBook adds a catalog entry. Copies defaults to one when not positive.
	AddBook(ctx context.Context, isbn, title, publisher string, copies int) (*Book, error)

	GetBook(ctx context.Context, isbn string) (*Book, error)
}

type bookService struct {
	repo   Repository
	pub    event.Publisher
	logger *slog.Logger
}

var _ Service = (*bookService)(nil)

func NewService(repo Repository, pub event.Publisher, logger *slog.Logger) Service {
	if repo == nil {
		panic("book repository cannot be nil")
	}
	if pub == nil {
		pub = event.NoopPublisher{}
	}
	return &bookService{
		repo:   repo,
		pub:    pub,
		logger: logger.With(slog.String("component", "bookService")),
	}
}

func (s *bookService) AddBook(ctx context.Context, isbn, title, publisher string, copies int) (*Book, error) {
	s.logger.InfoContext(ctx, "Adding book to catalog", "isbn", isbn)

	if !validate.ISBN(isbn) {
		return nil, apperrors.NewValidationError("isbn", "must be exactly 13 digits")
	}
	if !validate.Title(title) {
		return nil, apperrors.NewValidationError("title", "must be letters and spaces, at most 90 characters")
	}
	if !validate.Publisher(publisher) {
		return nil, apperrors.NewValidationError("publisher", "must be letters and spaces, at most 60 characters")
	}

	b := NewBook(isbn, title, publisher, copies)
	if err := s.repo.Create(ctx, b); err != nil {
		s.logger.ErrorContext(ctx, "Failed to save new book", "isbn", isbn, slog.Any("error", err))
		return nil, err
	}

	s.logger.InfoContext(ctx, "Book added", "isbn", isbn, "copies", b.Copies)
	ev := event.BookAddedEvent{
		EventID:   uuid.NewString(),
		Timestamp: time.Now(),
		ISBN:      isbn,
		Copies:    b.Copies,
	}
	if err := s.pub.PublishBookAdded(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Book added, but failed to publish event", "isbn", isbn, slog.Any("error", err))
	}

	return b, nil
}

func (s *bookService) GetBook(ctx context.Context, isbn string) (*Book, error) {
	b, err := s.repo.FindByISBN(ctx, isbn)
	if err != nil {
		s.logger.ErrorContext(ctx, "Repository error finding book", "isbn", isbn, slog.Any("error", err))
		return nil, err
	}
	if b == nil {
		return nil, fmt.Errorf("%w: isbn %s", apperrors.ErrBookNotFound, isbn)
	}
	return b, nil
}

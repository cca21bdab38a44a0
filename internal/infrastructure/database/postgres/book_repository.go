package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/domain/book"
	"circulation-engine/internal/infrastructure/monitoring"
	"circulation-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

const bookColumns = "isbn, title, publisher, copies, created_at, updated_at"

type BookRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ book.Repository = (*BookRepository)(nil)

func NewBookRepository(db DBPool, logger *slog.Logger) *BookRepository {
	if db == nil {
		panic("DBPool cannot be nil for BookRepository")
	}
	return &BookRepository{
		db:     db,
		logger: logger.With("component", "BookRepository"),
	}
}

func (r *BookRepository) Create(ctx context.Context, b *book.Book) error {
	if b == nil {
		return fmt.Errorf("%w: book cannot be nil", apperrors.ErrInvalidArgument)
	}

	query := `
        INSERT INTO books (isbn, title, publisher, copies, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, b.ISBN, b.Title, b.Publisher, b.Copies).Scan(&b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrDuplicateKey) {
			r.logger.WarnContext(ctx, "Book insert hit unique constraint", "isbn", b.ISBN)
			return fmt.Errorf("%w: isbn %s: %w", apperrors.ErrBookAlreadyExists, b.ISBN, translatedErr)
		}
		r.logger.ErrorContext(ctx, "Failed to insert book", "isbn", b.ISBN, "error", err)
		return translatedErr
	}

	r.logger.InfoContext(ctx, "Book inserted", "isbn", b.ISBN, "copies", b.Copies)
	return nil
}

// FindByISBN returns nil without error when no book matches; the caller owns
// the not-found semantics.
func (r *BookRepository) FindByISBN(ctx context.Context, isbn string) (*book.Book, error) {
	query := `
        SELECT ` + bookColumns + `
        FROM books
        WHERE isbn = $1`

	status := "success"
	startTime := time.Now()

	b, err := r.scanBook(r.db.QueryRow(ctx, query, isbn))

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindBookByISBN", status, time.Since(startTime))

	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to find book", "isbn", isbn, "error", err)
		return nil, err
	}
	return b, nil
}

// FindByISBNForUpdate locks the book row inside tx so the availability check
// and the stock mutation cannot interleave with a concurrent lend or return
// of the same book.
func (r *BookRepository) FindByISBNForUpdate(ctx context.Context, tx pgx.Tx, isbn string) (*book.Book, error) {
	query := `
        SELECT ` + bookColumns + `
        FROM books
        WHERE isbn = $1
        FOR UPDATE`

	b, err := r.scanBook(tx.QueryRow(ctx, query, isbn))
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to find/lock book", "isbn", isbn, "error", err)
		return nil, err
	}
	return b, nil
}

// AdjustCopiesInTx changes the stock counter by delta. The WHERE guard keeps
// copies from ever committing below zero.
func (r *BookRepository) AdjustCopiesInTx(ctx context.Context, tx pgx.Tx, isbn string, delta int) error {
	sql := `
        UPDATE books
        SET copies = copies + $1, updated_at = NOW()
        WHERE isbn = $2 AND copies + $1 >= 0`

	cmdTag, err := tx.Exec(ctx, sql, delta, isbn)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to adjust book stock", "isbn", isbn, "delta", delta, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Stock adjustment affected zero rows", "isbn", isbn, "delta", delta)
		return fmt.Errorf("%w: stock adjustment of %+d refused for isbn %s", apperrors.ErrDatabase, delta, isbn)
	}
	return nil
}

func (r *BookRepository) scanBook(row pgx.Row) (*book.Book, error) {
	var b book.Book
	err := row.Scan(&b.ISBN, &b.Title, &b.Publisher, &b.Copies, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &b, nil
}

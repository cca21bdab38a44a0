package book

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// Create inserts a new catalog entry. A duplicate ISBN surfaces as
	// apperrors.ErrBookAlreadyExists.
	Create(ctx context.Context, book *Book) error

	FindByISBN(ctx context.Context, isbn string) (*Book, error)

	// FindByISBNForUpdate reads the book inside tx with a row lock, so the
	// availability check and the stock mutation observe the same snapshot.
	FindByISBNForUpdate(ctx context.Context, tx pgx.Tx, isbn string) (*Book, error)

	// AdjustCopiesInTx changes copies by delta inside tx. The update refuses
	// to take copies below zero.
	AdjustCopiesInTx(ctx context.Context, tx pgx.Tx, isbn string, delta int) error
}

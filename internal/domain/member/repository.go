package member

import (
	"context"

	"github.com/jackc/pgx/v5"
)

type Repository interface {
	// Create inserts a new member. A duplicate code surfaces as
	// apperrors.ErrMemberAlreadyExists.
	Create(ctx context.Context, member *Member) error

	FindByCode(ctx context.Context, code string) (*Member, error)

	// FindByCodeForUpdate reads the member inside tx with a row lock. Two
	// transactions lending to the same member serialize on this lock, so the
	// open-loan count one of them reads cannot go stale before it commits.
	FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*Member, error)
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"circulation-engine/internal/domain/member"
	"circulation-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

type MemberRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ member.Repository = (*MemberRepository)(nil)

func NewMemberRepository(db DBPool, logger *slog.Logger) *MemberRepository {
	if db == nil {
		panic("DBPool cannot be nil for MemberRepository")
	}
	return &MemberRepository{
		db:     db,
		logger: logger.With("component", "MemberRepository"),
	}
}

func (r *MemberRepository) Create(ctx context.Context, m *member.Member) error {
	if m == nil {
		return fmt.Errorf("%w: member cannot be nil", apperrors.ErrInvalidArgument)
	}

	query := `
        INSERT INTO members (code, name, surname, date_of_birth, created_at, updated_at)
        VALUES ($1, $2, $3, $4, NOW(), NOW())
        RETURNING created_at, updated_at`

	err := r.db.QueryRow(ctx, query, m.Code, m.Name, m.Surname, m.DateOfBirth).Scan(&m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		translatedErr := translateDBError(err, r.logger)
		if errors.Is(translatedErr, apperrors.ErrDuplicateKey) {
			r.logger.WarnContext(ctx, "Member insert hit unique constraint", "member_code", m.Code)
			return fmt.Errorf("%w: code %s: %w", apperrors.ErrMemberAlreadyExists, m.Code, translatedErr)
		}
		r.logger.ErrorContext(ctx, "Failed to insert member", "member_code", m.Code, "error", err)
		return translatedErr
	}

	r.logger.InfoContext(ctx, "Member inserted", "member_code", m.Code)
	return nil
}

// FindByCode returns nil without error when no member matches; the caller
// owns the not-found semantics.
func (r *MemberRepository) FindByCode(ctx context.Context, code string) (*member.Member, error) {
	query := `
        SELECT code, name, surname, date_of_birth, created_at, updated_at
        FROM members
        WHERE code = $1`

	var m member.Member
	err := r.db.QueryRow(ctx, query, code).Scan(
		&m.Code, &m.Name, &m.Surname, &m.DateOfBirth, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Failed to find member", "member_code", code, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}

// FindByCodeForUpdate locks the member row inside tx. Concurrent lends by the
// same member queue here even when they target different books, which keeps
// the open-loan count read afterwards from going stale.
func (r *MemberRepository) FindByCodeForUpdate(ctx context.Context, tx pgx.Tx, code string) (*member.Member, error) {
	query := `
        SELECT code, name, surname, date_of_birth, created_at, updated_at
        FROM members
        WHERE code = $1
        FOR UPDATE`

	var m member.Member
	err := tx.QueryRow(ctx, query, code).Scan(
		&m.Code, &m.Name, &m.Surname, &m.DateOfBirth, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Failed to find/lock member", "member_code", code, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &m, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/domain/loan"
	"circulation-engine/internal/infrastructure/monitoring"
	"circulation-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v4"
)

type DBPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
	Close()
}

var _ DBPool = (*pgxpool.Pool)(nil)

var _ DBPool = (pgxmock.PgxPoolIface)(nil)

var errMsgFormat = "%w: %w"

const loanColumns = "id, book_isbn, member_code, start_date, end_date, stock_settled, created_at, updated_at"

type LoanRepository struct {
	db     DBPool
	logger *slog.Logger
}

var _ loan.Repository = (*LoanRepository)(nil)

func NewLoanRepository(db DBPool, logger *slog.Logger) *LoanRepository {
	return &LoanRepository{db: db, logger: logger.With("component", "LoanRepository")}
}

func (r *LoanRepository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to begin transaction", "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return tx, nil
}

func (r *LoanRepository) CommitTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Commit(ctx)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to commit transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) RollbackTx(ctx context.Context, tx pgx.Tx) error {
	err := tx.Rollback(ctx)

	if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		r.logger.ErrorContext(ctx, "Failed to rollback transaction", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return nil
}

func (r *LoanRepository) InsertLoanInTx(ctx context.Context, tx pgx.Tx, newLoan *loan.Loan) (*loan.Loan, error) {
	sql := `
        INSERT INTO loans (book_isbn, member_code, start_date, end_date, stock_settled, created_at, updated_at)
        VALUES ($1, $2, $3, $4, FALSE, NOW(), NOW())
        RETURNING ` + loanColumns

	var created loan.Loan
	err := tx.QueryRow(ctx, sql,
		newLoan.BookISBN, newLoan.MemberCode, newLoan.StartDate, newLoan.EndDate,
	).Scan(
		&created.ID, &created.BookISBN, &created.MemberCode, &created.StartDate,
		&created.EndDate, &created.StockSettled, &created.CreatedAt, &created.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to insert loan", "isbn", newLoan.BookISBN, "error", err)
		return nil, translateDBError(err, r.logger)
	}
	r.logger.InfoContext(ctx, "Loan created in DB", "loan_id", created.ID)
	return &created, nil
}

func (r *LoanRepository) CountOpenLoansByMemberInTx(ctx context.Context, tx pgx.Tx, memberCode string, asOf time.Time) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM loans
        WHERE member_code = $1 AND (end_date IS NULL OR end_date > $2)`

	var count int
	err := tx.QueryRow(ctx, query, memberCode, asOf).Scan(&count)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to count member's open loans", "member_code", memberCode, "error", err)
		return 0, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return count, nil
}

func (r *LoanRepository) FindUnsettledLoanForUpdate(ctx context.Context, tx pgx.Tx, memberCode, isbn string) (*loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE member_code = $1 AND book_isbn = $2 AND NOT stock_settled
        ORDER BY start_date DESC
        LIMIT 1
        FOR UPDATE`

	status := "success"
	startTime := time.Now()

	var l loan.Loan
	err := tx.QueryRow(ctx, query, memberCode, isbn).Scan(
		&l.ID, &l.BookISBN, &l.MemberCode, &l.StartDate,
		&l.EndDate, &l.StockSettled, &l.CreatedAt, &l.UpdatedAt,
	)

	if err != nil {
		status = "error"
	}
	monitoring.RecordDBQuery("FindUnsettledLoanForUpdate", status, time.Since(startTime))

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.ErrorContext(ctx, "Failed to find/lock unsettled loan", "member_code", memberCode, "isbn", isbn, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	return &l, nil
}

func (r *LoanRepository) CloseLoanInTx(ctx context.Context, tx pgx.Tx, loanID int64, endDate time.Time) error {
	sql := `
        UPDATE loans
        SET end_date = $1, stock_settled = TRUE, updated_at = NOW()
        WHERE id = $2`

	cmdTag, err := tx.Exec(ctx, sql, endDate, loanID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to close loan", "loan_id", loanID, "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if cmdTag.RowsAffected() != 1 {
		r.logger.ErrorContext(ctx, "Loan close affected zero rows", "loan_id", loanID)
		return fmt.Errorf("%w: loan close affected zero rows", apperrors.ErrDatabase)
	}
	return nil
}

func (r *LoanRepository) ReassignLoansInTx(ctx context.Context, tx pgx.Tx, loanIDs []int64, memberCode string) error {
	sql := `
        UPDATE loans
        SET member_code = $1, updated_at = NOW()
        WHERE id = $2`

	batch := &pgx.Batch{}
	for _, id := range loanIDs {
		batch.Queue(sql, memberCode, id)
	}

	results := tx.SendBatch(ctx, batch)

	for i, id := range loanIDs {
		cmdTag, err := results.Exec()
		if err != nil {
			results.Close()
			r.logger.ErrorContext(ctx, "Failed executing reassignment batch", "error", err, "entry_index", i, "loan_id", id)
			return fmt.Errorf("%w: failed reassigning loan %d: %w", apperrors.ErrDatabase, id, err)
		}
		if cmdTag.RowsAffected() != 1 {
			results.Close()
			r.logger.ErrorContext(ctx, "Reassignment affected zero rows", "loan_id", id)
			return fmt.Errorf("%w: loan %d not found during reassignment", apperrors.ErrDatabase, id)
		}
	}
	if err := results.Close(); err != nil {
		r.logger.ErrorContext(ctx, "Failed closing reassignment batch results", "error", err)
		return fmt.Errorf("%w: closing batch results failed: %w", apperrors.ErrDatabase, err)
	}

	r.logger.InfoContext(ctx, "Loans reassigned in DB", "member_code", memberCode, "num_loans", len(loanIDs))
	return nil
}

func (r *LoanRepository) MarkSettledInTx(ctx context.Context, tx pgx.Tx, loanIDs []int64) error {
	sql := `
        UPDATE loans
        SET stock_settled = TRUE, updated_at = NOW()
        WHERE id = ANY($1) AND NOT stock_settled`

	cmdTag, err := tx.Exec(ctx, sql, loanIDs)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to mark loans settled", "error", err)
		return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	if int(cmdTag.RowsAffected()) != len(loanIDs) {
		r.logger.ErrorContext(ctx, "Settled marker affected unexpected row count",
			"expected", len(loanIDs), "affected", cmdTag.RowsAffected())
		return fmt.Errorf("%w: expected to settle %d loans, settled %d", apperrors.ErrDatabase, len(loanIDs), cmdTag.RowsAffected())
	}
	return nil
}

func (r *LoanRepository) FindLoansByYear(ctx context.Context, year int) ([]loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE EXTRACT(YEAR FROM start_date) = $1
        ORDER BY start_date ASC`

	return r.queryLoans(ctx, "FindLoansByYear", query, year)
}

func (r *LoanRepository) FindOpenLoansByMember(ctx context.Context, memberCode string, asOf time.Time) ([]loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE member_code = $1 AND (end_date IS NULL OR end_date > $2)
        ORDER BY start_date ASC`

	return r.queryLoans(ctx, "FindOpenLoansByMember", query, memberCode, asOf)
}

func (r *LoanRepository) FindLoansDueOnOrBefore(ctx context.Context, date time.Time) ([]loan.Loan, error) {
	query := `
        SELECT ` + loanColumns + `
        FROM loans
        WHERE NOT stock_settled AND end_date IS NOT NULL AND end_date <= $1
        ORDER BY book_isbn, id ASC`

	return r.queryLoans(ctx, "FindLoansDueOnOrBefore", query, date)
}

func (r *LoanRepository) queryLoans(ctx context.Context, queryName, query string, args ...any) ([]loan.Loan, error) {
	status := "success"
	startTime := time.Now()

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		monitoring.RecordDBQuery(queryName, "error", time.Since(startTime))
		r.logger.ErrorContext(ctx, "Failed to query loans", "query_name", queryName, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	defer rows.Close()

	loans := make([]loan.Loan, 0)
	for rows.Next() {
		var l loan.Loan
		err := rows.Scan(
			&l.ID, &l.BookISBN, &l.MemberCode, &l.StartDate,
			&l.EndDate, &l.StockSettled, &l.CreatedAt, &l.UpdatedAt,
		)
		if err != nil {
			r.logger.ErrorContext(ctx, "Failed to scan loan row", "query_name", queryName, "error", err)
			return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
		}
		loans = append(loans, l)
	}

	if err = rows.Err(); err != nil {
		status = "error"
		r.logger.ErrorContext(ctx, "Error iterating loan rows", "query_name", queryName, "error", err)
		return nil, fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
	}
	monitoring.RecordDBQuery(queryName, status, time.Since(startTime))

	return loans, nil
}

func translateDBError(err error, contextLogger *slog.Logger) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code == "23505" {
			contextLogger.Warn("Database unique constraint violation", "detail", pgErr.Detail, "constraint", pgErr.ConstraintName)
			return fmt.Errorf("%w: %s", apperrors.ErrDuplicateKey, pgErr.ConstraintName)
		}

		contextLogger.Error("PostgreSQL specific error", "code", pgErr.Code, "message", pgErr.Message, "detail", pgErr.Detail)
		return fmt.Errorf("%w: db error code %s", apperrors.ErrDatabase, pgErr.Code)
	}

	contextLogger.Error("Generic database error", "error", err)
	return fmt.Errorf(errMsgFormat, apperrors.ErrDatabase, err)
}

package batch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"circulation-engine/internal/domain/book"
	"circulation-engine/internal/domain/loan"
	"circulation-engine/internal/infrastructure/monitoring"
)

// StockReconcileJob repairs stock counters for loans whose due date passed
// without an explicit return call. Each pass finds every unsettled loan with
// end_date <= today, then per book, in one atomic transaction, puts one copy
// back per matured loan and marks those loans settled so a later return or a
// second pass cannot apply the correction again.
type StockReconcileJob struct {
	loanRepo loan.Repository
	bookRepo book.Repository
	logger   *slog.Logger
}

func NewStockReconcileJob(loanRepo loan.Repository, bookRepo book.Repository, logger *slog.Logger) *StockReconcileJob {
	if loanRepo == nil || bookRepo == nil || logger == nil {
		panic("StockReconcileJob dependencies cannot be nil")
	}
	return &StockReconcileJob{
		loanRepo: loanRepo,
		bookRepo: bookRepo,
		logger:   logger.With("job", "StockReconcile"),
	}
}

func (j *StockReconcileJob) Run(ctx context.Context) error {
	startTime := time.Now()
	todayDate := time.Now().Truncate(24 * time.Hour)
	j.logger.InfoContext(ctx, "Starting stock reconciliation pass.", slog.String("as_of", todayDate.Format("2006-01-02")))

	matured, err := j.loanRepo.FindLoansDueOnOrBefore(ctx, todayDate)
	if err != nil {
		j.logger.ErrorContext(ctx, "Failed to find matured loans, aborting pass.", slog.Any("error", err))
		return fmt.Errorf("cannot run reconciliation, failed to find matured loans: %w", err)
	}

	if len(matured) == 0 {
		j.logger.InfoContext(ctx, "No matured loans to reconcile.", slog.Duration("duration", time.Since(startTime)))
		return nil
	}

	byBook := make(map[string][]int64)
	for _, l := range matured {
		byBook[l.BookISBN] = append(byBook[l.BookISBN], l.ID)
	}
	j.logger.InfoContext(ctx, "Found matured loans.", slog.Int("loans", len(matured)), slog.Int("books", len(byBook)))

	var settledCount, errorCount int
	for isbn, loanIDs := range byBook {
		if err := j.reconcileBook(ctx, isbn, loanIDs); err != nil {
			j.logger.ErrorContext(ctx, "Failed to reconcile book stock", slog.String("isbn", isbn), slog.Any("error", err))
			errorCount++
			continue
		}
		settledCount += len(loanIDs)
	}

	duration := time.Since(startTime)
	monitoring.RecordReconciledLoans(settledCount, duration)
	summaryLog := j.logger.With(
		slog.Duration("duration", duration),
		slog.Int("loans_settled", settledCount),
		slog.Int("errors_encountered", errorCount),
	)
	if errorCount > 0 {
		summaryLog.WarnContext(ctx, "Stock reconciliation pass finished with errors.")
		return fmt.Errorf("reconciliation completed with %d errors", errorCount)
	}
	summaryLog.InfoContext(ctx, "Stock reconciliation pass finished successfully.")
	return nil
}

// reconcileBook adjusts one book's stock atomically: either the increments
// and the settled markers land together or the book is left untouched.
func (j *StockReconcileJob) reconcileBook(ctx context.Context, isbn string, loanIDs []int64) (err error) {
	tx, err := j.loanRepo.BeginTx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = j.loanRepo.RollbackTx(ctx, tx)
		}
	}()

	b, err := j.bookRepo.FindByISBNForUpdate(ctx, tx, isbn)
	if err != nil {
		return err
	}
	if b == nil {
		return fmt.Errorf("book %s referenced by matured loans no longer exists", isbn)
	}

	if err = j.bookRepo.AdjustCopiesInTx(ctx, tx, isbn, len(loanIDs)); err != nil {
		return err
	}
	if err = j.loanRepo.MarkSettledInTx(ctx, tx, loanIDs); err != nil {
		return err
	}

	if err = j.loanRepo.CommitTx(ctx, tx); err != nil {
		return err
	}

	j.logger.InfoContext(ctx, "Book stock reconciled", slog.String("isbn", isbn), slog.Int("copies_restored", len(loanIDs)))
	return nil
}

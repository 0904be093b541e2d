package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
)

// accountLocks serializes balance writes per account within this process.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*accountLock
}

type accountLock struct {
	sync.Mutex
	refs int
}

func newAccountLocks() *accountLocks {
	return &accountLocks{locks: make(map[uuid.UUID]*accountLock)}
}

// lock acquires every id in a fixed order and returns the release func.
func (l *accountLocks) lock(ids ...uuid.UUID) func() {
	ids = slices.Clone(ids)
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })
	ids = slices.Compact(ids)

	held := make([]*accountLock, 0, len(ids))
	for _, id := range ids {
		l.mu.Lock()
		al, ok := l.locks[id]
		if !ok {
			al = &accountLock{}
			l.locks[id] = al
		}
		al.refs++
		l.mu.Unlock()

		al.Lock()
		held = append(held, al)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
			l.mu.Lock()
			held[i].refs--
			if held[i].refs == 0 {
				delete(l.locks, ids[i])
			}
			l.mu.Unlock()
		}
	}
}

// finalize applies the balance policy to every target account and writes the
// statement summary, holding the account locks throughout.
func (s *ImportService) finalize(ctx context.Context, run *importRun) error {
	ids := make([]uuid.UUID, len(run.targets))
	for i, t := range run.targets {
		ids[i] = t.account.ID
	}
	unlock := s.locks.lock(ids...)
	defer unlock()

	periodStart, periodEnd := run.period()
	for _, t := range run.targets {
		end := run.info.EndingBalance
		if t.info != nil {
			end = t.info.EndingBalance
		}
		if err := s.applyBalance(ctx, run, t.account, end, periodEnd); err != nil {
			return err
		}
	}

	statement := s.buildStatement(run, periodStart, periodEnd)
	create := s.repo.CreateStatement
	if run.tabular {
		create = s.repo.CreateStatementAtomic
	}
	if err := create(ctx, statement); err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	return nil
}

// applyBalance writes a statement ending balance unless a newer statement is
// already on file. Without one, the balance is the transaction sum, but only
// for accounts that never had a statement balance.
func (s *ImportService) applyBalance(ctx context.Context, run *importRun, acct *repository.Account, end *decimal.Decimal, periodEnd time.Time) error {
	logger := run.logger.With(slog.String("account_id", acct.ID.String()))

	if end != nil {
		latest, err := s.repo.LatestStatement(ctx, acct.ID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		if latest != nil && periodEnd.Before(latest.PeriodEnd) {
			logger.Info("statement is older than latest, balance unchanged",
				slog.Time("period_end", periodEnd),
				slog.Time("latest_period_end", latest.PeriodEnd))
			return nil
		}
		if err := s.repo.UpdateAccountBalance(ctx, acct.ID, *end); err != nil {
			return err
		}
		acct.Balance = *end
		logger.Info("account balance set from statement", slog.String("balance", end.StringFixed(2)))
		return nil
	}

	has, err := s.repo.HasStatementBalance(ctx, acct.ID)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	sum, err := s.repo.SumTransactions(ctx, acct.ID)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateAccountBalance(ctx, acct.ID, sum); err != nil {
		return err
	}
	acct.Balance = sum
	logger.Info("account balance recomputed from transactions", slog.String("balance", sum.StringFixed(2)))
	return nil
}

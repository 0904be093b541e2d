package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"unicode"

	"github.com/FACorreiaa/statement-ledger/internal/domain/import/model"
	"github.com/FACorreiaa/statement-ledger/internal/domain/import/repository"
)

// institution names the bank for account lookup and creation.
func (r *importRun) institution() string {
	if name := r.result.BankType.DisplayName(); name != "" {
		return name
	}
	return strings.TrimSpace(r.file.Hints.BankName)
}

// resolveTargets picks the ledger accounts for this run and routes every
// parsed transaction to one of them.
func (s *ImportService) resolveTargets(ctx context.Context, run *importRun) error {
	if len(run.result.Accounts) > 1 {
		if run.file.Hints.AccountID != nil {
			run.flag("account_id ignored: statement covers several accounts")
		}
		return s.resolveSubAccounts(ctx, run)
	}

	acct, err := s.resolveAccount(ctx, run)
	if err != nil {
		return err
	}
	run.targets = []*target{{account: acct, transactions: run.result.Transactions}}
	return nil
}

// resolveAccount finds the single target account: the explicit id, then a
// (type, institution) match, then any account of the type, else a new one.
func (s *ImportService) resolveAccount(ctx context.Context, run *importRun) (*repository.Account, error) {
	userID := run.file.UserID
	hints := run.file.Hints

	if hints.AccountID != nil {
		acct, err := s.repo.GetAccount(ctx, userID, *hints.AccountID)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("account %s not found: %w", hints.AccountID, err)
		}
		return acct, err
	}

	institution := run.institution()
	if institution != "" {
		acct, err := s.repo.FindAccount(ctx, userID, hints.AccountType, institution)
		if err == nil {
			return acct, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
	}

	acct, err := s.repo.FindAccountByType(ctx, userID, hints.AccountType)
	if err == nil {
		return acct, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	acct = &repository.Account{
		UserID:      userID,
		Name:        strings.TrimSpace(institution + " " + hints.AccountType.Label()),
		Type:        hints.AccountType,
		Institution: institution,
	}
	if err := s.repo.CreateAccount(ctx, acct); err != nil {
		return nil, err
	}
	run.logger.Info("created account",
		slog.String("account_id", acct.ID.String()),
		slog.String("name", acct.Name))
	return acct, nil
}

// resolveSubAccounts finds or creates one account per sub-table of a
// multi-account statement and routes transactions by account hint.
func (s *ImportService) resolveSubAccounts(ctx context.Context, run *importRun) error {
	userID := run.file.UserID
	institution := run.institution()

	for i := range run.result.Accounts {
		info := &run.result.Accounts[i]
		acct, err := s.repo.FindAccountByNumber(ctx, userID, institution, info.AccountNumber)
		if errors.Is(err, repository.ErrNotFound) {
			number := info.AccountNumber
			acct = &repository.Account{
				UserID:        userID,
				Name:          subAccountName(institution, run.file.Hints.AccountType, info),
				Type:          run.file.Hints.AccountType,
				Institution:   institution,
				AccountNumber: &number,
			}
			err = s.repo.CreateAccount(ctx, acct)
			if err == nil {
				run.logger.Info("created sub-account",
					slog.String("account_id", acct.ID.String()),
					slog.String("name", acct.Name))
			}
		}
		if err != nil {
			return fmt.Errorf("failed to resolve account %s: %w", info.AccountNumber, err)
		}
		run.targets = append(run.targets, &target{account: acct, info: info})
	}

	unrouted := 0
	for _, tx := range run.result.Transactions {
		t := routeByHint(run.targets, tx.AccountHint)
		if t == nil {
			t = run.targets[0]
			unrouted++
		}
		t.transactions = append(t.transactions, tx)
	}
	if unrouted > 0 {
		run.flag(fmt.Sprintf("%d transactions had no account number and were assigned to %s", unrouted, run.targets[0].account.Name))
	}
	return nil
}

// routeByHint matches a hint against the trailing digits of each account
// number.
func routeByHint(targets []*target, hint string) *target {
	hint = digits(hint)
	if hint == "" {
		return nil
	}
	for _, t := range targets {
		number := digits(t.info.AccountNumber)
		if number == "" {
			continue
		}
		if strings.HasSuffix(number, hint) || strings.HasSuffix(hint, number) {
			return t
		}
	}
	return nil
}

func subAccountName(institution string, accountType model.AccountType, info *model.AccountInfo) string {
	if name := strings.TrimSpace(info.Name); name != "" {
		return strings.TrimSpace(institution + " " + name)
	}
	number := digits(info.AccountNumber)
	if len(number) > 4 {
		number = number[len(number)-4:]
	}
	return strings.TrimSpace(fmt.Sprintf("%s %s %s", institution, accountType.Label(), number))
}

func digits(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsDigit(r) {
			return r
		}
		return -1
	}, s)
}

package memstore

import (
	"context"
	"math"

	"github.com/fastprodman/moneyserver/internal/repos/accounts"
)

type accountsRepo struct{ sc scope }

func (r accountsRepo) Add(_ context.Context, acc accounts.Account) error {
	return r.sc.write(func(st *state) error {
		if _, ok := st.accounts[acc.UserID]; ok {
			return accounts.ErrAccountExists
		}

		st.accounts[acc.UserID] = acc

		return nil
	})
}

func (r accountsRepo) Get(_ context.Context, userID string) (accounts.Account, error) {
	var acc accounts.Account

	err := r.sc.read(func(st *state) error {
		found, ok := st.accounts[userID]
		if !ok {
			return accounts.ErrAccountNotFound
		}

		acc = found

		return nil
	})

	return acc, err
}

func (r accountsRepo) GetBalance(ctx context.Context, userID string) (int64, error) {
	acc, err := r.Get(ctx, userID)
	if err != nil {
		return 0, err
	}

	return acc.Balance, nil
}

func (r accountsRepo) AdjustBalance(_ context.Context, userID string, delta int64) (int64, error) {
	var balance int64

	err := r.sc.write(func(st *state) error {
		acc, ok := st.accounts[userID]
		if !ok {
			return accounts.ErrAccountNotFound
		}

		if delta > 0 && acc.Balance > math.MaxInt64-delta {
			return errBalanceOverflow
		}

		next := acc.Balance + delta
		if next < 0 {
			return accounts.ErrInsufficientFunds
		}

		acc.Balance = next
		st.accounts[userID] = acc
		balance = next

		return nil
	})
	if err != nil {
		return 0, err
	}

	return balance, nil
}

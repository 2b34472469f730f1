package pgstore

import (
	"context"
	"database/sql"

	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos"
	pgaccounts "github.com/fastprodman/moneyserver/internal/repos/accounts/postgres"
	pgtransactions "github.com/fastprodman/moneyserver/internal/repos/transactions/postgres"
	pguserinfo "github.com/fastprodman/moneyserver/internal/repos/userinfo/postgres"
)

var _ repos.Store = (*Store)(nil)

// Store is the PostgreSQL backend.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Repos() repos.Repos {
	return bind(s.db)
}

func (s *Store) InTx(ctx context.Context, fn func(r repos.Repos) error) error {
	return pgutils.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return fn(bind(tx))
	})
}

func bind(q pgutils.Querier) repos.Repos {
	return repos.Repos{
		Accounts:     pgaccounts.New(q),
		Transactions: pgtransactions.New(q),
		UserInfo:     pguserinfo.New(q),
	}
}

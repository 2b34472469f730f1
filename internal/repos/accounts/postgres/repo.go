package accounts

import (
	"github.com/fastprodman/moneyserver/internal/infra/pgutils"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
)

var _ accounts.Accounts = (*accountsRepo)(nil)

type accountsRepo struct{ q pgutils.Querier }

// New binds the repo to a pool or to a running transaction.
func New(q pgutils.Querier) *accountsRepo {
	return &accountsRepo{q: q}
}

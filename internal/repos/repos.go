// Package repos groups the ledger's persistent stores behind one unit of work.
package repos

import (
	"context"

	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

// Repos is the set of stores bound to one scope: either the whole backend or
// a single transaction.
type Repos struct {
	Accounts     accounts.Accounts
	Transactions transactions.Transactions
	UserInfo     userinfo.UserInfos
}

// Store is any backend able to host the ledger.
type Store interface {
	// Repos returns stores for reads outside a unit of work. Each call sees
	// committed data only.
	Repos() Repos
	// InTx runs fn in one atomic unit of work: every write made through the
	// given Repos commits together when fn returns nil and is discarded
	// otherwise. The error returned by fn is passed through unchanged.
	InTx(ctx context.Context, fn func(r Repos) error) error
}

// Package memstore is an in-process ledger backend. Every unit of work runs
// on a private copy of the data that replaces the shared state on success,
// so a failed unit of work leaves nothing behind.
package memstore

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"

	"github.com/fastprodman/moneyserver/internal/repos"
	"github.com/fastprodman/moneyserver/internal/repos/accounts"
	"github.com/fastprodman/moneyserver/internal/repos/transactions"
	"github.com/fastprodman/moneyserver/internal/repos/userinfo"
)

var _ repos.Store = (*Store)(nil)

type state struct {
	accounts map[string]accounts.Account
	txns     map[uuid.UUID]transactions.Record
	users    map[string]userinfo.Info
}

func (s *state) clone() *state {
	return &state{
		accounts: maps.Clone(s.accounts),
		txns:     maps.Clone(s.txns),
		users:    maps.Clone(s.users),
	}
}

// scope hands a state to repo methods. Root scopes lock the store per call;
// transaction scopes already own their private copy.
type scope interface {
	read(fn func(st *state) error) error
	write(fn func(st *state) error) error
}

type Store struct {
	mu sync.RWMutex
	st *state
}

func New() *Store {
	return &Store{st: &state{
		accounts: make(map[string]accounts.Account),
		txns:     make(map[uuid.UUID]transactions.Record),
		users:    make(map[string]userinfo.Info),
	}}
}

func (s *Store) Repos() repos.Repos {
	return bind(rootScope{s: s})
}

func (s *Store) InTx(ctx context.Context, fn func(r repos.Repos) error) error {
	err := ctx.Err()
	if err != nil {
		return err
	}

	return s.apply(func(work *state) error {
		return fn(bind(txScope{st: work}))
	})
}

// apply runs fn on a copy of the state and publishes the copy if fn succeeds.
func (s *Store) apply(fn func(work *state) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()

	err := fn(work)
	if err != nil {
		return err
	}

	s.st = work

	return nil
}

func bind(sc scope) repos.Repos {
	return repos.Repos{
		Accounts:     accountsRepo{sc: sc},
		Transactions: transactionsRepo{sc: sc},
		UserInfo:     userInfoRepo{sc: sc},
	}
}

type rootScope struct{ s *Store }

func (r rootScope) read(fn func(st *state) error) error {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return fn(r.s.st)
}

// write outside InTx is its own single-statement unit of work.
func (r rootScope) write(fn func(st *state) error) error {
	return r.s.apply(fn)
}

type txScope struct{ st *state }

func (t txScope) read(fn func(st *state) error) error  { return fn(t.st) }
func (t txScope) write(fn func(st *state) error) error { return fn(t.st) }

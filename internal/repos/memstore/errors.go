package memstore

import "errors"

// errBalanceOverflow mirrors the bigint out-of-range failure of Postgres.
var errBalanceOverflow = errors.New("balance out of range")

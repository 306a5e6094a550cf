// Copyright 2025 Constellation 2.0
//
// Package fingerprint is a local, single-writer "day/stage processed"
// marker store. It exists for an out-of-scope supervisor/scheduler to
// poll ("has stage X already run for day Y?") -- it is never consulted
// by any builder and never participates in a fail-closed decision. The
// flat-file truth tree under ImmutableStore remains the only source of
// truth; this store is a derived convenience index, safe to delete and
// rebuild from the truth tree at any time.
package fingerprint

import dbm "github.com/cometbft/cometbft-db"

// KV is the minimal key-value interface the store needs. It mirrors the
// kernel's own ledger-store contract exactly, so any dbm.DB (or a fake
// in tests) can back it without an adapter.
type KV interface {
	Get(key []byte) ([]byte, error)
	Set(key, value []byte) error
}

// dbAdapter wraps a cometbft-db dbm.DB to satisfy KV.
type dbAdapter struct {
	db dbm.DB
}

// NewGoLevelDBStore opens (or creates) a GoLevelDB-backed Store at dir/name.
func NewGoLevelDBStore(name, dir string) (*Store, error) {
	db, err := dbm.NewGoLevelDB(name, dir)
	if err != nil {
		return nil, err
	}
	return NewStore(&dbAdapter{db: db}), nil
}

func (a *dbAdapter) Get(key []byte) ([]byte, error) {
	v, err := a.db.Get(key)
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (a *dbAdapter) Set(key, value []byte) error {
	return a.db.SetSync(key, value)
}

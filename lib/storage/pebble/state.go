// Package pebble checkpoints the manager state in a pebble database.
package pebble

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/compounder"

	"github.com/cockroachdb/pebble"
	"github.com/ethereum/go-ethereum/common"
	ui "github.com/holiman/uint256"
)

var (
	ErrDBClosed   = errors.New("database is closed")
	ErrNoState    = errors.New("no state saved")
	ErrCorruptKey = errors.New("corrupt state key")
)

var (
	keyTimestamp      = []byte("state/timestamp")
	keyTotalLiquidity = []byte("state/total_liquidity")
	keyTotalSupply    = []byte("state/total_supply")
	prefixShares      = []byte("shares/")
	// upper bound of the shares keyspace, '/' + 1
	endShares = []byte("shares0")
)

// StateStore keeps the latest checkpoint of a manager.
type StateStore struct {
	db *pebble.DB
}

func Open(path string) (*StateStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble %s: %w", path, err)
	}
	return &StateStore{db: db}, nil
}

func (s *StateStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// SaveState replaces the stored checkpoint in one batch.
func (s *StateStore) SaveState(_ context.Context, timestamp int, st compounder.State) error {
	if s.db == nil {
		return ErrDBClosed
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	ts := make([]byte, 8)
	binary.BigEndian.PutUint64(ts, uint64(timestamp))
	if err := batch.Set(keyTimestamp, ts, nil); err != nil {
		return err
	}
	if err := batch.Set(keyTotalLiquidity, word(st.TotalLiquidity), nil); err != nil {
		return err
	}
	if err := batch.Set(keyTotalSupply, word(st.TotalSupply), nil); err != nil {
		return err
	}
	if err := batch.DeleteRange(prefixShares, endShares, nil); err != nil {
		return err
	}
	for owner, balance := range st.Balances {
		if balance.IsZero() {
			continue
		}
		if err := batch.Set(sharesKey(owner), word(balance), nil); err != nil {
			return err
		}
	}
	return batch.Commit(pebble.Sync)
}

// LoadState returns the stored checkpoint and its timestamp.
func (s *StateStore) LoadState(_ context.Context) (compounder.State, int, error) {
	if s.db == nil {
		return compounder.State{}, 0, ErrDBClosed
	}

	ts, err := s.get(keyTimestamp)
	if err != nil {
		return compounder.State{}, 0, err
	}
	if len(ts) != 8 {
		return compounder.State{}, 0, fmt.Errorf("%w: timestamp", ErrCorruptKey)
	}
	totalLiquidity, err := s.get(keyTotalLiquidity)
	if err != nil {
		return compounder.State{}, 0, err
	}
	totalSupply, err := s.get(keyTotalSupply)
	if err != nil {
		return compounder.State{}, 0, err
	}
	st := compounder.State{
		TotalLiquidity: new(ui.Int).SetBytes(totalLiquidity),
		TotalSupply:    new(ui.Int).SetBytes(totalSupply),
		Balances:       make(map[common.Address]*ui.Int),
	}

	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: prefixShares, UpperBound: endShares})
	if err != nil {
		return compounder.State{}, 0, err
	}
	defer iter.Close()
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) != len(prefixShares)+common.AddressLength {
			return compounder.State{}, 0, fmt.Errorf("%w: %x", ErrCorruptKey, key)
		}
		owner := common.BytesToAddress(key[len(prefixShares):])
		st.Balances[owner] = new(ui.Int).SetBytes(iter.Value())
	}
	if err := iter.Error(); err != nil {
		return compounder.State{}, 0, err
	}
	return st, int(binary.BigEndian.Uint64(ts)), nil
}

func (s *StateStore) get(key []byte) ([]byte, error) {
	val, closer, err := s.db.Get(key)
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, ErrNoState
		}
		return nil, err
	}
	defer closer.Close()

	valCopy := make([]byte, len(val))
	copy(valCopy, val)
	return valCopy, nil
}

func sharesKey(owner common.Address) []byte {
	return append(append([]byte{}, prefixShares...), owner.Bytes()...)
}

func word(v *ui.Int) []byte {
	if v == nil {
		v = new(ui.Int)
	}
	b := v.Bytes32()
	return b[:]
}

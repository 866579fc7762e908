// Package storage persists simulation reports.
package storage

import (
	"context"

	"github.com/ftchann/uniswap-compounder/lib/result"
)

// Storage defines a sink for report records.
type Storage interface {
	PutSnapshots(ctx context.Context, snapshots []result.Snapshot) error
	PutHarvests(ctx context.Context, harvests []result.HarvestRecord) error
}

// Multi fans records out to several sinks in order.
type Multi []Storage

func (m Multi) PutSnapshots(ctx context.Context, snapshots []result.Snapshot) error {
	for _, s := range m {
		if err := s.PutSnapshots(ctx, snapshots); err != nil {
			return err
		}
	}
	return nil
}

func (m Multi) PutHarvests(ctx context.Context, harvests []result.HarvestRecord) error {
	for _, s := range m {
		if err := s.PutHarvests(ctx, harvests); err != nil {
			return err
		}
	}
	return nil
}

// Package postgres stores simulation reports in Postgres.
package postgres

import (
	"context"
	"fmt"

	"github.com/ftchann/uniswap-compounder/lib/result"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS compounder_snapshots (
	run_id          TEXT    NOT NULL,
	ts              BIGINT  NOT NULL,
	sqrt_price_x96  NUMERIC NOT NULL,
	price           NUMERIC NOT NULL,
	total_liquidity NUMERIC NOT NULL,
	total_supply    NUMERIC NOT NULL,
	amount0         NUMERIC NOT NULL,
	amount1         NUMERIC NOT NULL,
	value           NUMERIC NOT NULL,
	share_price     NUMERIC NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, ts)
);
CREATE TABLE IF NOT EXISTS compounder_harvests (
	run_id           TEXT    NOT NULL,
	ts               BIGINT  NOT NULL,
	fees0            NUMERIC NOT NULL,
	fees1            NUMERIC NOT NULL,
	swap_zero_for_one BOOLEAN NOT NULL,
	swap_in          NUMERIC NOT NULL,
	swap_out         NUMERIC NOT NULL,
	liquidity_added  NUMERIC NOT NULL,
	idle0            NUMERIC NOT NULL,
	idle1            NUMERIC NOT NULL,
	total_liquidity  NUMERIC NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, ts)
);
`

// Store provides Postgres persistence for the reports of one run.
type Store struct {
	pool  *pgxpool.Pool
	runID string
}

func NewStore(ctx context.Context, dsn, runID string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	if runID == "" {
		return nil, fmt.Errorf("run id is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &Store{pool: pool, runID: runID}, nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// EnsureSchema creates the report tables when missing.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schema)
	return err
}

// PutSnapshots upserts snapshots keyed by run and timestamp.
func (s *Store) PutSnapshots(ctx context.Context, snapshots []result.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, snap := range snapshots {
		batch.Queue(`
			INSERT INTO compounder_snapshots (
				run_id, ts, sqrt_price_x96, price, total_liquidity, total_supply,
				amount0, amount1, value, share_price
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (run_id, ts)
			DO UPDATE SET
				sqrt_price_x96 = EXCLUDED.sqrt_price_x96,
				price = EXCLUDED.price,
				total_liquidity = EXCLUDED.total_liquidity,
				total_supply = EXCLUDED.total_supply,
				amount0 = EXCLUDED.amount0,
				amount1 = EXCLUDED.amount1,
				value = EXCLUDED.value,
				share_price = EXCLUDED.share_price
		`,
			s.runID,
			int64(snap.Timestamp),
			snap.SqrtPriceX96,
			snap.Price,
			snap.TotalLiquidity,
			snap.TotalSupply,
			snap.Amount0,
			snap.Amount1,
			snap.Value,
			snap.SharePrice,
		)
	}
	return s.send(ctx, batch, len(snapshots))
}

// PutHarvests upserts harvest records keyed by run and timestamp.
func (s *Store) PutHarvests(ctx context.Context, harvests []result.HarvestRecord) error {
	if len(harvests) == 0 {
		return nil
	}
	batch := &pgx.Batch{}
	for _, h := range harvests {
		batch.Queue(`
			INSERT INTO compounder_harvests (
				run_id, ts, fees0, fees1, swap_zero_for_one, swap_in, swap_out,
				liquidity_added, idle0, idle1, total_liquidity
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (run_id, ts)
			DO UPDATE SET
				fees0 = EXCLUDED.fees0,
				fees1 = EXCLUDED.fees1,
				swap_zero_for_one = EXCLUDED.swap_zero_for_one,
				swap_in = EXCLUDED.swap_in,
				swap_out = EXCLUDED.swap_out,
				liquidity_added = EXCLUDED.liquidity_added,
				idle0 = EXCLUDED.idle0,
				idle1 = EXCLUDED.idle1,
				total_liquidity = EXCLUDED.total_liquidity
		`,
			s.runID,
			int64(h.Timestamp),
			h.Fees0,
			h.Fees1,
			h.SwapZeroForOne,
			h.SwapIn,
			h.SwapOut,
			h.LiquidityAdded,
			h.Idle0,
			h.Idle1,
			h.TotalLiquidity,
		)
	}
	return s.send(ctx, batch, len(harvests))
}

// CountHarvests returns the number of harvests stored for the run.
func (s *Store) CountHarvests(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `SELECT count(*) FROM compounder_harvests WHERE run_id = $1`, s.runID).Scan(&n)
	return n, err
}

func (s *Store) send(ctx context.Context, batch *pgx.Batch, n int) error {
	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < n; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}
	return nil
}

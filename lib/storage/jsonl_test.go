package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/ftchann/uniswap-compounder/lib/result"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readLines[T any](t *testing.T, path string) []T {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var out []T
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var v T
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &v))
		out = append(out, v)
	}
	require.NoError(t, scanner.Err())
	return out
}

func TestJsonlStorage(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "out")
	s := NewJsonlStorage(dir)

	require.NoError(t, s.PutSnapshots(ctx, nil))
	_, err := os.Stat(s.SnapshotsPath())
	assert.True(t, os.IsNotExist(err), "empty batches write nothing")

	require.NoError(t, s.PutSnapshots(ctx, []result.Snapshot{{Timestamp: 1, SharePrice: "1"}}))
	require.NoError(t, s.PutSnapshots(ctx, []result.Snapshot{{Timestamp: 2, SharePrice: "1.01"}}))
	require.NoError(t, s.PutHarvests(ctx, []result.HarvestRecord{{Timestamp: 2, Fees0: "10"}}))

	snapshots := readLines[result.Snapshot](t, s.SnapshotsPath())
	require.Len(t, snapshots, 2)
	assert.Equal(t, "1.01", snapshots[1].SharePrice)

	harvests := readLines[result.HarvestRecord](t, s.HarvestsPath())
	require.Len(t, harvests, 1)
	assert.Equal(t, "10", harvests[0].Fees0)
}

type countingStorage struct{ snapshots, harvests int }

func (c *countingStorage) PutSnapshots(_ context.Context, s []result.Snapshot) error {
	c.snapshots += len(s)
	return nil
}

func (c *countingStorage) PutHarvests(_ context.Context, h []result.HarvestRecord) error {
	c.harvests += len(h)
	return nil
}

func TestMulti(t *testing.T) {
	a, b := &countingStorage{}, &countingStorage{}
	m := Multi{a, b}
	require.NoError(t, m.PutSnapshots(context.Background(), make([]result.Snapshot, 3)))
	require.NoError(t, m.PutHarvests(context.Background(), make([]result.HarvestRecord, 2)))
	assert.Equal(t, 3, b.snapshots)
	assert.Equal(t, 2, a.harvests)
}

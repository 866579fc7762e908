package storage

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/ftchann/uniswap-compounder/lib/result"
)

// JsonlStorage appends report records to JSONL files in a directory:
// snapshots.jsonl and harvests.jsonl.
type JsonlStorage struct {
	dir string
	mu  sync.Mutex
}

func NewJsonlStorage(dir string) *JsonlStorage {
	return &JsonlStorage{dir: dir}
}

func (s *JsonlStorage) SnapshotsPath() string { return filepath.Join(s.dir, "snapshots.jsonl") }

func (s *JsonlStorage) HarvestsPath() string { return filepath.Join(s.dir, "harvests.jsonl") }

func (s *JsonlStorage) PutSnapshots(_ context.Context, snapshots []result.Snapshot) error {
	records := make([]any, len(snapshots))
	for i := range snapshots {
		records[i] = snapshots[i]
	}
	return s.appendLines(s.SnapshotsPath(), records)
}

func (s *JsonlStorage) PutHarvests(_ context.Context, harvests []result.HarvestRecord) error {
	records := make([]any, len(harvests))
	for i := range harvests {
		records[i] = harvests[i]
	}
	return s.appendLines(s.HarvestsPath(), records)
}

func (s *JsonlStorage) appendLines(path string, records []any) error {
	if len(records) == 0 {
		return nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open output file: %w", err)
	}
	defer file.Close()

	writer := bufio.NewWriter(file)
	for _, record := range records {
		line, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		if _, err := writer.Write(line); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("write newline: %w", err)
		}
	}

	if err := writer.Flush(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

package audit

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/metrics"
)

// Consolidator folds shard files into the durable history. At every
// observable instant history is either the old complete set or the new
// complete set: the merge lands in a temp file in the same directory and
// is published with a single atomic rename. Shards are deleted only after
// the rename succeeds, and only the shards this run folded — a concurrent
// consolidator deletes its own, so no record is ever lost to the race.
type Consolidator struct {
	dir string
	log *slog.Logger
}

func NewConsolidator(dir string) *Consolidator {
	return &Consolidator{
		dir: dir,
		log: slog.Default().With("component", "audit"),
	}
}

// Consolidate merges all readable shards into history and removes them.
// It returns the number of shards folded. Zero shards is a no-op:
// history is not rewritten. Safe to call any number of times.
func (c *Consolidator) Consolidate() (int, error) {
	shards, err := filepath.Glob(filepath.Join(c.dir, shardDirName, shardPattern))
	if err != nil {
		return 0, err
	}
	if len(shards) == 0 {
		return 0, nil
	}

	historyPath := filepath.Join(c.dir, historyFile)
	records, err := readRecords(historyPath)
	if err != nil && !os.IsNotExist(err) {
		return 0, fmt.Errorf("failed to read history: %w", err)
	}

	// A shard that cannot be read cleanly this run is left alone; its
	// writer may still be mid-line. The next run picks it up.
	var folded []string
	for _, shard := range shards {
		recs, err := readShardWhole(shard)
		if err != nil {
			c.log.Warn("Skipping shard this run", "shard", filepath.Base(shard), "error", err)
			continue
		}
		records = append(records, recs...)
		folded = append(folded, shard)
	}
	if len(folded) == 0 {
		return 0, nil
	}

	sortRecords(records)

	if err := c.replaceHistory(historyPath, records); err != nil {
		return 0, err
	}

	// Only after the rename: remove what this run folded, one at a time.
	for _, shard := range folded {
		if err := os.Remove(shard); err != nil {
			c.log.Warn("Failed to remove consolidated shard", "shard", filepath.Base(shard), "error", err)
		}
	}

	metrics.ShardsConsolidated.Add(float64(len(folded)))
	c.log.Info("Consolidated shards", "count", len(folded), "records", len(records))
	return len(folded), nil
}

// replaceHistory writes the merged set to a temp file in the history's
// directory, then renames it over history. On any failure the temp file
// is removed and the old history survives untouched.
func (c *Consolidator) replaceHistory(historyPath string, records []domain.AuditRecord) error {
	tmp, err := os.CreateTemp(c.dir, ".history-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp history: %w", err)
	}
	tmpPath := tmp.Name()

	cleanup := func() {
		tmp.Close()
		os.Remove(tmpPath)
	}

	enc := json.NewEncoder(tmp)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			cleanup()
			return fmt.Errorf("failed to write temp history: %w", err)
		}
	}
	if err := tmp.Sync(); err != nil {
		cleanup()
		return fmt.Errorf("failed to flush temp history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to close temp history: %w", err)
	}

	if err := os.Rename(tmpPath, historyPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to replace history: %w", err)
	}
	return nil
}

// readShardWhole reads one shard, refusing partial content: any
// unparsable line fails the whole shard so an in-flight record is never
// consolidated away.
func readShardWhole(path string) ([]domain.AuditRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var records []domain.AuditRecord
	start := 0
	for i := 0; i <= len(data); i++ {
		if i != len(data) && data[i] != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}
		var rec domain.AuditRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			return nil, fmt.Errorf("unparsable line at byte %d: %w", start, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

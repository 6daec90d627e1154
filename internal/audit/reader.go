package audit

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vietddude/governor/internal/core/domain"
)

// Reader answers "most recent N records" across durable history and every
// live shard. It is eventually consistent with in-flight writers: a record
// appears after its writer's flush, but never torn.
type Reader struct {
	dir string
	log *slog.Logger
}

func NewReader(dir string) *Reader {
	return &Reader{
		dir: dir,
		log: slog.Default().With("component", "audit"),
	}
}

// Tail returns the n most recent records, ascending by timestamp. A shard
// that cannot be read (locked, mid-write, transient I/O error) is skipped
// so one bad shard never blinds the whole view.
func (r *Reader) Tail(n int) ([]domain.AuditRecord, error) {
	records, err := readRecords(filepath.Join(r.dir, historyFile))
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}

	shards, err := filepath.Glob(filepath.Join(r.dir, shardDirName, shardPattern))
	if err != nil {
		return nil, err
	}
	for _, shard := range shards {
		recs, err := readRecords(shard)
		if err != nil && !os.IsNotExist(err) {
			r.log.Debug("Skipping unreadable shard", "shard", filepath.Base(shard), "error", err)
		}
		records = append(records, recs...)
	}

	sortRecords(records)
	if n > 0 && len(records) > n {
		records = records[len(records)-n:]
	}
	return records, nil
}

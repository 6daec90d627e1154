package audit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/metrics"
)

// ShardWriter appends audit records to this session's shard file. Each
// Log call is independent: open, append one whole line, fsync, close.
// No read-before-write and no cross-record coordination, so writers in
// other sessions never block this one.
type ShardWriter struct {
	mu      sync.Mutex
	path    string
	node    string
	session string
	seq     uint64
}

// NewShardWriter creates the shard directory under dir and derives this
// process's shard path. An uncreatable directory fails construction
// rather than surfacing on the first Log call.
func NewShardWriter(dir, node string) (*ShardWriter, error) {
	shardDir := filepath.Join(dir, shardDirName)
	if err := os.MkdirAll(shardDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create shard dir: %w", err)
	}

	// Creation time first so lexicographic listing approximates
	// chronological order; pid plus a uuid fragment keeps sessions unique.
	session := fmt.Sprintf("%d-%s", os.Getpid(), uuid.NewString()[:8])
	name := fmt.Sprintf("shard-%s-%s.jsonl", time.Now().UTC().Format("20060102T150405"), session)

	return &ShardWriter{
		path:    filepath.Join(shardDir, name),
		node:    node,
		session: session,
	}, nil
}

// Session returns this writer's session identifier.
func (w *ShardWriter) Session() string {
	return w.session
}

// Path returns the shard file this writer owns.
func (w *ShardWriter) Path() string {
	return w.path
}

// Log assigns id, sequence, and timestamp if unset, then appends the
// record as one JSON line and flushes before returning. A write failure
// propagates: the caller must know the decision was not recorded.
func (w *ShardWriter) Log(rec *domain.AuditRecord) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.seq++
	rec.Seq = w.seq
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = time.Now().UTC()
	}
	if rec.Node == "" {
		rec.Node = w.node
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal audit record: %w", err)
	}

	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("failed to open shard: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to append audit record: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("failed to flush shard: %w", err)
	}

	metrics.AuditRecordsWritten.Inc()
	return nil
}

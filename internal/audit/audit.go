// Package audit is the crash-safe, multi-process review log. Each session
// appends to its own shard file, so concurrent writers never contend; the
// reader merges history plus live shards on demand; the consolidator folds
// shards into the durable history with one atomic rename.
package audit

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/vietddude/governor/internal/core/domain"
)

const (
	historyFile  = "history.jsonl"
	shardDirName = "shards"
	shardPattern = "shard-*.jsonl"
)

// FindWorkspaceRoot walks up from dir looking for a .git entry. It is how
// the shard writer locates the shared audit directory when none is
// configured explicitly.
func FindWorkspaceRoot(dir string) (string, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(abs, ".git")); err == nil {
			return abs, nil
		}
		parent := filepath.Dir(abs)
		if parent == abs {
			return "", fmt.Errorf("no workspace root found above %s", dir)
		}
		abs = parent
	}
}

// readRecords parses one JSONL file, skipping lines that fail to parse.
// A torn final line from an in-flight writer is invisible, never fatal.
func readRecords(path string) ([]domain.AuditRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var records []domain.AuditRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var rec domain.AuditRecord
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return records, err
	}
	return records, nil
}

// sortRecords orders records ascending by timestamp, with sequence and id
// as tiebreaks so repeated reads are stable.
func sortRecords(records []domain.AuditRecord) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i], records[j]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.Before(b.Timestamp)
		}
		if a.Seq != b.Seq {
			return a.Seq < b.Seq
		}
		return a.ID < b.ID
	})
}

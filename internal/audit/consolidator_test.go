package audit

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func shardPaths(t *testing.T, dir string) []string {
	t.Helper()
	shards, err := filepath.Glob(filepath.Join(dir, "shards", "shard-*.jsonl"))
	if err != nil {
		t.Fatal(err)
	}
	return shards
}

func TestConsolidate_FoldsShardsIntoHistory(t *testing.T) {
	dir := t.TempDir()
	t0 := baseTime()

	w1, _ := NewShardWriter(dir, "node-1")
	w2, _ := NewShardWriter(dir, "node-2")
	writeRecord(t, w1, t0.Add(2*time.Minute), "approved")
	writeRecord(t, w2, t0.Add(1*time.Minute), "rejected")

	count, err := NewConsolidator(dir).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if count != 2 {
		t.Errorf("Consolidate = %d shards, want 2", count)
	}

	if remaining := shardPaths(t, dir); len(remaining) != 0 {
		t.Errorf("Expected shards removed, %d remain", len(remaining))
	}

	records, err := readRecords(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatalf("Failed to read history: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records in history, got %d", len(records))
	}
	if !records[0].Timestamp.Before(records[1].Timestamp) {
		t.Error("History not sorted by timestamp")
	}
}

func TestConsolidate_Idempotent(t *testing.T) {
	dir := t.TempDir()
	w, _ := NewShardWriter(dir, "node-1")
	writeRecord(t, w, baseTime(), "approved")

	if _, err := NewConsolidator(dir).Consolidate(); err != nil {
		t.Fatalf("First consolidate failed: %v", err)
	}
	before, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatal(err)
	}

	count, err := NewConsolidator(dir).Consolidate()
	if err != nil {
		t.Fatalf("Second consolidate failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Second consolidate = %d, want 0", count)
	}

	after, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("History changed on a no-op consolidation")
	}
}

func TestConsolidate_NoShards(t *testing.T) {
	count, err := NewConsolidator(t.TempDir()).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if count != 0 {
		t.Errorf("Consolidate = %d, want 0", count)
	}
}

func TestConsolidate_MergesWithExistingHistory(t *testing.T) {
	dir := t.TempDir()
	t0 := baseTime()

	w1, _ := NewShardWriter(dir, "node-1")
	writeRecord(t, w1, t0, "approved")
	if _, err := NewConsolidator(dir).Consolidate(); err != nil {
		t.Fatal(err)
	}

	w2, _ := NewShardWriter(dir, "node-2")
	writeRecord(t, w2, t0.Add(time.Minute), "rejected")
	if _, err := NewConsolidator(dir).Consolidate(); err != nil {
		t.Fatal(err)
	}

	records, err := readRecords(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("Expected 2 records after second fold, got %d", len(records))
	}
	if records[0].Verdict != "approved" || records[1].Verdict != "rejected" {
		t.Errorf("History merge order wrong: %+v", records)
	}
}

func TestConsolidate_LeavesTornShardIntact(t *testing.T) {
	dir := t.TempDir()
	w1, _ := NewShardWriter(dir, "node-1")
	w2, _ := NewShardWriter(dir, "node-2")
	writeRecord(t, w1, baseTime(), "approved")
	writeRecord(t, w2, baseTime().Add(time.Minute), "rejected")

	// w2's owner is mid-append.
	f, err := os.OpenFile(w2.Path(), os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"id":"in-fli`)
	f.Close()

	count, err := NewConsolidator(dir).Consolidate()
	if err != nil {
		t.Fatalf("Consolidate failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected only the clean shard folded, got %d", count)
	}
	if _, err := os.Stat(w2.Path()); err != nil {
		t.Error("Torn shard must be left for its writer to finish")
	}
}

func TestConsolidate_CrashBeforeRenameLeavesHistory(t *testing.T) {
	dir := t.TempDir()
	t0 := baseTime()

	w1, _ := NewShardWriter(dir, "node-1")
	writeRecord(t, w1, t0, "approved")
	if _, err := NewConsolidator(dir).Consolidate(); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatal(err)
	}

	// Simulate a consolidator that crashed between writing its temp file
	// and the rename: a stale temp file sits in the directory.
	stale := filepath.Join(dir, ".history-stale.tmp")
	if err := os.WriteFile(stale, []byte(`{"id":"ghost"}`+"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	after, err := os.ReadFile(filepath.Join(dir, historyFile))
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Error("History must be untouched by an unrenamed temp file")
	}

	// And the merged view must not see the temp file either.
	records, err := NewReader(dir).Tail(10)
	if err != nil {
		t.Fatal(err)
	}
	for _, rec := range records {
		if rec.ID == "ghost" {
			t.Error("Stale temp file leaked into the merged view")
		}
	}
}

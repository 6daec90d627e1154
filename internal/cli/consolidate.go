package cli

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/governor/internal/audit"
)

var consolidateCmd = &cobra.Command{
	Use:   "consolidate",
	Short: "Fold all audit shards into durable history",
	Long:  `Merges every shard file into the history file with one atomic replacement, then removes the folded shards. Safe to call any number of times; typically wired to a post-commit hook.`,
	Run:   runConsolidate,
}

func init() {
	rootCmd.AddCommand(consolidateCmd)
}

func runConsolidate(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	dir, err := auditDir(cfg)
	if err != nil {
		slog.Error("Failed to resolve audit dir", "error", err)
		os.Exit(1)
	}

	count, err := audit.NewConsolidator(dir).Consolidate()
	if err != nil {
		slog.Error("Consolidation failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Consolidation complete", "shards", count)
}

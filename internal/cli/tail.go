package cli

import (
	"fmt"
	"log/slog"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/governor/internal/audit"
)

var tailCount int

var tailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Show the most recent audit records across history and live shards",
	Run:   runTail,
}

func init() {
	tailCmd.Flags().IntVarP(&tailCount, "count", "n", 20, "number of records to show")
	rootCmd.AddCommand(tailCmd)
}

func runTail(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	dir, err := auditDir(cfg)
	if err != nil {
		slog.Error("Failed to resolve audit dir", "error", err)
		os.Exit(1)
	}

	records, err := audit.NewReader(dir).Tail(tailCount)
	if err != nil {
		slog.Error("Failed to read audit log", "error", err)
		os.Exit(1)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "TIME\tNODE\tVERDICT\tCREDENTIAL\tROTATED\tATTEMPTS\tDURATION")
	for _, rec := range records {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\t%d\t%dms\n",
			rec.Timestamp.Local().Format(time.RFC3339),
			rec.Node, rec.Verdict, rec.Credential, rec.Rotated, rec.Attempts, rec.DurationMS)
	}
	w.Flush()
}

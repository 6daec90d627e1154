package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/governor/internal/audit"
	"github.com/vietddude/governor/internal/core/domain"
	"github.com/vietddude/governor/internal/health"
	"github.com/vietddude/governor/internal/infra/llm"
	"github.com/vietddude/governor/internal/review"
)

var (
	reviewDoc    string
	reviewSystem string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Run one governance review call and record it in the audit log",
	Run:   runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewDoc, "doc", "-", "document to review (path, or - for stdin)")
	reviewCmd.Flags().StringVar(&reviewSystem, "system", "", "path to the system instruction file")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	content, err := readInput(reviewDoc)
	if err != nil {
		slog.Error("Failed to read document", "error", err)
		os.Exit(1)
	}
	system := ""
	if reviewSystem != "" {
		system, err = readInput(reviewSystem)
		if err != nil {
			slog.Error("Failed to read system instruction", "error", err)
			os.Exit(1)
		}
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open credential store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	dir, err := auditDir(cfg)
	if err != nil {
		slog.Error("Failed to resolve audit dir", "error", err)
		os.Exit(1)
	}
	writer, err := audit.NewShardWriter(dir, nodeName(cfg))
	if err != nil {
		slog.Error("Failed to open audit shard", "error", err)
		os.Exit(1)
	}

	if cfg.Server.Port > 0 {
		srv := health.NewServer(store, cfg.Server.Port)
		go func() {
			if err := srv.Start(); err != nil {
				slog.Warn("Health server stopped", "error", err)
			}
		}()
	}

	service := llm.NewHTTPClient(cfg.Service.BaseURL, cfg.Service.Timeout)
	client, err := review.NewClient(review.Config{
		Tier:                     cfg.Service.Tier,
		MaxAttemptsPerCredential: cfg.Retry.MaxAttemptsPerCredential,
		InitialDelay:             cfg.Retry.InitialDelay,
		MaxDelay:                 cfg.Retry.MaxDelay,
		QuotaCooldown:            cfg.Retry.QuotaCooldown,
	}, store, service)
	if err != nil {
		slog.Error("Failed to build review client", "error", err)
		os.Exit(1)
	}

	outcome, err := client.Invoke(context.Background(), system, content)
	if err != nil {
		slog.Error("Review invocation failed", "error", err)
		os.Exit(1)
	}

	rec := recordFromOutcome(cfg.Service.Tier, outcome)
	if err := writer.Log(rec); err != nil {
		slog.Error("Failed to write audit record", "error", err)
		os.Exit(1)
	}

	if !outcome.Success {
		slog.Warn("Review failed on all credentials",
			"attempts", outcome.Attempts, "category", outcome.ErrorCategory)
		for _, skip := range outcome.Skips {
			slog.Warn("Credential skipped",
				"credential", skip.Credential, "category", skip.Category, "reason", skip.Reason)
		}
		os.Exit(2)
	}

	slog.Info("Review recorded",
		"verdict", rec.Verdict, "credential", outcome.CredentialUsed,
		"rotated", outcome.Rotated, "attempts", outcome.Attempts)
	fmt.Println(outcome.Text)
}

func recordFromOutcome(tier string, outcome *domain.Outcome) *domain.AuditRecord {
	rec := &domain.AuditRecord{
		RequestedTier: tier,
		UsedTier:      outcome.ModelUsed,
		DurationMS:    outcome.Duration.Milliseconds(),
		Credential:    outcome.CredentialUsed,
		Rotated:       outcome.Rotated,
		Attempts:      outcome.Attempts,
	}
	if outcome.Success {
		rec.Verdict, rec.Rationale = review.ParseVerdict(outcome.Text)
	} else {
		rec.Verdict = domain.VerdictError
		rec.Rationale = string(outcome.ErrorCategory)
	}
	return rec
}

func readInput(path string) (string, error) {
	if path == "-" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

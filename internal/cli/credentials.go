package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/vietddude/governor/internal/core/domain"
)

var (
	credName   string
	credSecret string
)

var credentialsCmd = &cobra.Command{
	Use:   "credentials",
	Short: "Manage reviewer credentials",
}

var credentialsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List credentials and their exhaustion state",
	Run:   runCredentialsList,
}

var credentialsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add or replace a credential",
	Run:   runCredentialsAdd,
}

func init() {
	credentialsAddCmd.Flags().StringVar(&credName, "name", "", "credential name")
	credentialsAddCmd.Flags().StringVar(&credSecret, "secret", "", "credential secret (or set GOVERNOR_SECRET)")
	_ = credentialsAddCmd.MarkFlagRequired("name")

	credentialsCmd.AddCommand(credentialsListCmd)
	credentialsCmd.AddCommand(credentialsAddCmd)
	rootCmd.AddCommand(credentialsCmd)
}

func runCredentialsList(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open credential store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	creds, err := store.List(context.Background())
	if err != nil {
		slog.Error("Failed to list credentials", "error", err)
		os.Exit(1)
	}
	sort.Slice(creds, func(i, j int) bool { return creds[i].Name < creds[j].Name })

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "NAME\tENABLED\tELIGIBLE\tEXHAUSTED UNTIL")
	for _, c := range creds {
		until := "-"
		if c.ExhaustedUntil != nil {
			until = c.ExhaustedUntil.Local().Format(time.RFC3339)
		}
		fmt.Fprintf(w, "%s\t%t\t%t\t%s\n", c.Name, c.Enabled, c.Eligible(now), until)
	}
	w.Flush()
}

func runCredentialsAdd(cmd *cobra.Command, args []string) {
	cfg := loadConfig()

	secret := credSecret
	if secret == "" {
		secret = os.Getenv("GOVERNOR_SECRET")
	}
	if secret == "" {
		slog.Error("No secret given: pass --secret or set GOVERNOR_SECRET")
		os.Exit(1)
	}

	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("Failed to open credential store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	cred := domain.Credential{Name: credName, Secret: secret, Enabled: true}
	if err := store.Save(context.Background(), cred); err != nil {
		slog.Error("Failed to save credential", "error", err)
		os.Exit(1)
	}
	slog.Info("Credential saved", "credential", cred)
}

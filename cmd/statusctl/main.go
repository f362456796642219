// Command statusctl runs member status operations from a shell or an external scheduler.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"sacco_backoffice/internal/app"
	"sacco_backoffice/internal/bootstrap"
	"sacco_backoffice/internal/infra/config"
	"sacco_backoffice/internal/infra/logger"

	"github.com/spf13/cobra"
)

const commandTimeout = 10 * time.Minute

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "statusctl",
		Short:        "Member status engine operations",
		SilenceUsage: true,
	}
	root.AddCommand(newReconcileCmd(), newCheckCmd())
	return root
}

func newReconcileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Run one status update pass over all auto-managed members",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withStatusService(cmd.Context(), func(ctx context.Context, svc *app.StatusService) error {
				result, err := svc.RunStatusUpdate(ctx)
				if err != nil {
					return fmt.Errorf("status update failed: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

func newCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <member-ref>",
		Short: "Preview the automatic status of one member without writing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStatusService(cmd.Context(), func(ctx context.Context, svc *app.StatusService) error {
				result, err := svc.CheckMember(ctx, args[0])
				if err != nil {
					return fmt.Errorf("status check failed: %w", err)
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}

// withStatusService loads configuration, opens the store and runs fn against a StatusService.
// The CLI never sends Telegram notifications.
func withStatusService(parent context.Context, fn func(ctx context.Context, svc *app.StatusService) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("could not load configuration: %w", err)
	}
	logger.Init(cfg)

	stores, err := bootstrap.OpenStores(cfg, logger.Component("store"))
	if err != nil {
		return err
	}
	defer stores.Close()

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithTimeout(parent, commandTimeout)
	defer cancel()

	svc := app.NewStatusService(stores.Members, stores.Runs, nil, 0, logger.Component("statusctl")).WithClock(cfg.Now)
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

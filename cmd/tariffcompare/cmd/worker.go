package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/bher20/tariffcompare/internal/rates"
)

var workerOnce bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the scheduled rate refresh without the HTTP server",
	Long: `Refresh every retailer's rate table on TARIFFCOMPARE_REFRESH_SCHEDULE
(seconds or a five-field cron expression). Replicas sharing a Postgres
database take an advisory lock so only one refresh runs at a time.

With --once a single refresh runs and its report is printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "refresh once, print the report and exit")
}

func runWorker(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if workerOnce {
		report, runErr := a.worker.RunOnce(ctx)
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
		return runErr
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return untilCanceled(a.worker.Run(gctx)) })
	if cfg.RetailersFile != "" {
		g.Go(func() error {
			return untilCanceled(rates.WatchRetailersFile(gctx, cfg.RetailersFile, a.registry))
		})
	}
	return g.Wait()
}

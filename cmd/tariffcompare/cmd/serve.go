package cmd

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bher20/tariffcompare/internal/api"
	"github.com/bher20/tariffcompare/internal/logging"
	"github.com/bher20/tariffcompare/internal/rates"
)

const shutdownTimeout = 15 * time.Second

var (
	serveWithWorker bool
	serveWatch      bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API and web UI",
	Long: `Serve the comparison API, the signup checklist API, the embedded UI,
/metrics and the health endpoints. By default the rate refresh worker runs
in the same process; disable it when a separate "worker" deployment exists.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWithWorker, "with-worker", true, "run the scheduled rate refresh in this process")
	serveCmd.Flags().BoolVar(&serveWatch, "watch-retailers", true, "reload the retailer file when it changes")
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewMux(a.deps()),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logging.Info("tariffcompare listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()
		logging.Info("shutting down http server")
		return srv.Shutdown(sctx)
	})
	if serveWithWorker {
		g.Go(func() error { return untilCanceled(a.worker.Run(gctx)) })
	}
	if serveWatch && cfg.RetailersFile != "" {
		g.Go(func() error {
			return untilCanceled(rates.WatchRetailersFile(gctx, cfg.RetailersFile, a.registry))
		})
	}
	return g.Wait()
}

// untilCanceled treats a context cancellation as a clean stop.
func untilCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/yrfi-cli/internal/dashboard"
	"github.com/sells-group/yrfi-cli/internal/metrics"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the prediction dashboard",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if servePort != 0 {
			cfg.Server.Port = servePort
		}
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		srv := &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           newDashboard().Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		var background []func(context.Context)
		if cfg.Monitoring.Enabled {
			st, err := initStore(ctx)
			if err != nil {
				return err
			}
			defer st.Close() //nolint:errcheck

			checker, err := newChecker(st)
			if err != nil {
				return err
			}
			background = append(background, checker.Run)
		}
		return serveUntilDone(ctx, srv, background...)
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

func newDashboard() *dashboard.Server {
	return dashboard.New(dashboard.Options{
		MarketPath:     cfg.Data.Path(cfg.Data.Market),
		HistoryPath:    cfg.Data.Path(cfg.Data.Backtest),
		RollingDays:    cfg.Server.RollingDays,
		AllowedOrigins: cfg.Server.AllowedOrigin,
		Metrics:        metrics.Default(),
	})
}

// serveUntilDone runs srv and the background loops until ctx is
// cancelled, then shuts the server down gracefully.
func serveUntilDone(ctx context.Context, srv *http.Server, background ...func(context.Context)) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, run := range background {
		g.Go(func() error {
			run(gctx)
			return nil
		})
	}

	g.Go(func() error {
		zap.L().Info("starting dashboard", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return eris.Wrap(err, "server listen")
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return eris.Wrap(err, "server shutdown")
		}
		return nil
	})

	return g.Wait()
}

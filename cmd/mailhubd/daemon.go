package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/nhle/mailhub/internal/model"
	appsync "github.com/nhle/mailhub/internal/sync"
)

// watchBuffer is the number of notifications a watch subscriber can lag
// behind before it misses some.
const watchBuffer = 256

func runDaemon(parent context.Context, rt *runtime) error {
	log := rt.log
	log.Info("starting mailhubd",
		zap.String("data_dir", rt.cfg.DataDir),
		zap.Duration("interval", rt.cfg.SyncInterval()),
	)

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *http.Server
	if addr := rt.cfg.Metrics.Addr; addr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		srv = &http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		}
		go func() {
			log.Info("metrics server listening", zap.String("addr", addr))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	poller := appsync.NewPoller(rt.syncer, rt.app.SyncInput, rt.cfg.SyncInterval(), log)
	poller.Start(ctx)

	// SIGUSR1 requests an immediate pass.
	usr1 := make(chan os.Signal, 1)
	signal.Notify(usr1, syscall.SIGUSR1)
	defer signal.Stop(usr1)
	go func() {
		for {
			select {
			case <-usr1:
				log.Info("sync requested")
				poller.Trigger()
			case <-ctx.Done():
				return
			}
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	poller.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("metrics server shutdown", zap.Error(err))
		}
	}
	return nil
}

func newSyncCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one sync pass over all accounts and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				report, err := rt.app.SyncEmails(ctx)
				if report != nil {
					printReport(cmd.OutOrStdout(), report)
				}
				return err
			})
		},
	}
}

func printReport(w io.Writer, report *appsync.Report) {
	for _, o := range report.Accounts {
		status := "ok"
		if o.Err != nil {
			status = o.Err.Error()
		}
		fmt.Fprintf(w, "%s\tfetched=%d dropped=%d inserted=%d notified=%d\t%s\n",
			o.AccountID, o.Fetched, o.Dropped, o.Inserted, o.Notified, status)
	}
}

func newWatchCmd(c *cli) *cobra.Command {
	var once bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync and stream notifications to stdout as JSON lines",
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withRuntime(func(rt *runtime) error {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()

				events, unsubscribe := rt.bus.Subscribe(watchBuffer)
				done := make(chan error, 1)
				go func() {
					done <- streamNotifications(cmd.OutOrStdout(), events)
				}()

				var syncErr error
				if once {
					_, syncErr = rt.app.SyncEmails(ctx)
				} else {
					poller := appsync.NewPoller(rt.syncer, rt.app.SyncInput, rt.cfg.SyncInterval(), rt.log)
					poller.Start(ctx)
					<-ctx.Done()
					poller.Stop()
				}

				unsubscribe()
				if err := <-done; syncErr == nil {
					syncErr = err
				}
				return syncErr
			})
		},
	}
	cmd.Flags().BoolVar(&once, "once", false, "run a single pass and exit")
	return cmd
}

// streamNotifications writes each notification as one JSON line until
// events is closed.
func streamNotifications(w io.Writer, events <-chan model.Notification) error {
	enc := json.NewEncoder(w)
	var err error
	for n := range events {
		if err == nil {
			err = enc.Encode(n)
		}
	}
	return err
}

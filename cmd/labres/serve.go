package main

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/example/lab-resource-manager/internal/application"
	httptransport "github.com/example/lab-resource-manager/internal/http"
	"github.com/example/lab-resource-manager/internal/metrics"
)

// listCacheTTL bounds how stale API listings may be after a calendar is
// edited directly.
const listCacheTTL = 10 * time.Second

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve the reservation API and run the change watcher",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			a, err := wireApp(ctx, v, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer a.Close()

			notifier, err := a.changeNotifier(ctx)
			if err != nil {
				return err
			}

			reservations := application.NewReservationService(a.usages, time.Now, a.logger, application.WithListCache(listCacheTTL))
			access := application.NewAccessService(a.identities, a.access, time.Now, a.logger)
			handler := httptransport.NewRouter(httptransport.RouterConfig{
				Usages:        httptransport.NewUsageHandler(reservations, a.catalog, a.logger),
				Access:        httptransport.NewAccessHandler(access, a.logger),
				Metrics:       metrics.Handler(a.registry),
				Middleware:    []func(http.Handler) http.Handler{httptransport.RequestLogger(a.logger, a.metrics)},
				APIMiddleware: []func(http.Handler) http.Handler{httptransport.RequireActor(a.logger)},
			})

			server := &http.Server{
				Addr:              a.cfg.HTTPAddr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       30 * time.Second,
				WriteTimeout:      30 * time.Second,
				IdleTimeout:       60 * time.Second,
			}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				application.NewWatcher(notifier, a.logger).Start(ctx, a.cfg.PollingInterval)
			}()
			go func() {
				defer wg.Done()
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
					a.logger.Error("failed to shutdown server", "error", err)
				}
			}()

			a.logger.Info("reservation API listening", "addr", server.Addr)
			err = server.ListenAndServe()
			// The store is closed after the watcher has returned.
			cancel()
			wg.Wait()
			if err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

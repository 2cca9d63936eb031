package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/harrisonrobin/agenda/pkg/app"
	"github.com/harrisonrobin/agenda/pkg/config"
	"github.com/harrisonrobin/agenda/pkg/metrics"
	"github.com/harrisonrobin/agenda/pkg/schedule"
)

func (c *cli) serveCommand() *cobra.Command {
	var metricsAddr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run scheduled digests and the bot in one process",
		RunE: func(cmd *cobra.Command, args []string) error {
			if metricsAddr == "" {
				metricsAddr = c.cfg.MetricsAddr
			}
			return c.serve(metricsAddr)
		},
	}
	cmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "listen address for /metrics (default METRICS_ADDR, empty disables)")
	return cmd
}

func (c *cli) serve(metricsAddr string) error {
	if err := c.cfg.Validate(config.AppModeBoth); err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.MustNewMetrics(reg)

	a, err := app.New(ctx, c.cfg, c.log, m)
	if err != nil {
		return err
	}
	runner, err := a.NewRunner()
	if err != nil {
		return err
	}
	sched, err := schedule.New(c.cfg, runner.RunLogged, c.log)
	if err != nil {
		return err
	}
	discord, store, err := a.NewBot()
	if err != nil {
		return err
	}
	defer store.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return sched.Run(gctx) })
	g.Go(func() error { return discord.Run(gctx) })

	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
		srv := &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			c.log.Info("serving metrics", "addr", metricsAddr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	for _, next := range sched.Next() {
		c.log.Info("digest scheduled", "next_run", next.In(c.cfg.Location()).Format(time.RFC3339))
	}
	return g.Wait()
}

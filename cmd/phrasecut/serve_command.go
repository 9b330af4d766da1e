package main

import (
	"fmt"
	"net"
	"strconv"

	"phrasecut/config"
	"phrasecut/internal/deps"
	"phrasecut/internal/handler"
	"phrasecut/internal/queue"
	"phrasecut/internal/server"
	"phrasecut/log"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	var host string
	var port int
	var noWorker bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			if err = deps.CheckDependencies(deps.ResolveDependencyInventory(config.Conf.Media)); err != nil {
				log.GetLogger().Warn("clip extraction will fail until dependencies are installed", zap.Error(err))
			}

			q, err := ctx.useConfiguredRunner(svc)
			if err != nil {
				return err
			}
			if q == nil {
				ctx.recoverStale()
			} else if !noWorker {
				if err = queue.StartBackground(q, svc.Extractor, svc.ClipObserver()); err != nil {
					return fmt.Errorf("start queue worker: %w", err)
				}
			}

			if host == "" {
				host = config.Conf.Server.Host
			}
			if port == 0 {
				port = config.Conf.Server.Port
			}
			srv := server.New(net.JoinHostPort(host, strconv.Itoa(port)), handler.NewHandler(svc, ctx.registry))
			return srv.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (default from config)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (default from config)")
	cmd.Flags().BoolVar(&noWorker, "no-worker", false, "With the asynq backend, only enqueue and leave clips to phrasecut worker")
	return cmd
}

func newWorkerCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run an asynq worker that cuts enqueued clips",
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.ensureService()
			if err != nil {
				return err
			}
			if config.Conf.Queue.Backend != config.QueueBackendAsynq {
				return fmt.Errorf("queue.backend is %q; the worker needs %q", config.Conf.Queue.Backend, config.QueueBackendAsynq)
			}
			if err = deps.CheckDependencies(deps.ResolveDependencyInventory(config.Conf.Media)); err != nil {
				return err
			}
			// Run handles SIGINT/SIGTERM itself.
			return queue.StartWorker(ctx.useQueue(svc), svc.Extractor, svc.ClipObserver())
		},
	}
}

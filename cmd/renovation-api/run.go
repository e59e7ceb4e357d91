package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	apiserver "github.com/refurbd/renovation-planner/internal/api_server"
	"github.com/refurbd/renovation-planner/internal/config"
	"github.com/refurbd/renovation-planner/internal/store"
	"github.com/refurbd/renovation-planner/pkg/log"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the renovation planner api",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.New()
		if err != nil {
			zap.S().Fatalw("reading configuration", "error", err)
		}

		logLvl, err := zap.ParseAtomicLevel(cfg.Service.LogLevel)
		if err != nil {
			logLvl = zap.NewAtomicLevelAt(zapcore.InfoLevel)
		}

		logger := log.InitLog(logLvl)
		defer func() { _ = logger.Sync() }()

		undo := zap.ReplaceGlobals(logger)
		defer undo()

		zap.S().Info("Starting API service")
		defer zap.S().Info("API service stopped")

		zap.S().Info("Initializing data store")
		db, err := store.InitDB(cfg)
		if err != nil {
			zap.S().Fatalw("initializing data store", "error", err)
		}

		s := store.NewStore(db)
		defer s.Close()

		if err := migrate(cfg, db, s); err != nil {
			zap.S().Fatalw("running migrations", "error", err)
		}

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGHUP, syscall.SIGTERM, syscall.SIGQUIT)
		defer cancel()

		group, groupCtx := errgroup.WithContext(ctx)

		group.Go(func() error {
			listener, err := newListener(cfg.Service.Address)
			if err != nil {
				return err
			}
			return apiserver.New(cfg, s, listener).Run(groupCtx)
		})

		group.Go(func() error {
			listener, err := newListener(cfg.Service.MetricsAddress)
			if err != nil {
				return err
			}
			return apiserver.NewMetricServer(cfg.Service.MetricsAddress, listener).Run(groupCtx)
		})

		return group.Wait()
	},
}

func newListener(address string) (net.Listener, error) {
	if address == "" {
		address = "localhost:0"
	}
	return net.Listen("tcp", address)
}

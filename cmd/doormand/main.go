package main

import (
	"context"
	"flag"
	"log"
	"os/signal"
	"syscall"

	"doorman/internal/config"
	"doorman/internal/daemon"
	"doorman/internal/decision"
	"doorman/internal/ipc"
	"doorman/internal/logging"
	"doorman/internal/notify"
	"doorman/internal/sched"
)

func main() {
	configFlag := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, configPath, configExists, err := config.Load(*configFlag)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("prepare directories: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	store, err := decision.Open(cfg)
	if err != nil {
		logger.Error("open decision store", logging.Error(err))
		return
	}

	notifier := notify.NewService(cfg)
	engine, err := buildEngine(cfg, store, notifier, logger)
	if err != nil {
		logger.Error("assemble pipeline", logging.Error(err))
		_ = store.Close()
		return
	}

	d, err := daemon.New(cfg, store, engine, sched.New(cfg.Schedule), notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
		_ = store.Close()
		return
	}
	defer d.Close()

	ipcServer, err := ipc.NewServer(ctx, cfg.SocketPath(), d, logger)
	if err != nil {
		logger.Error("start IPC server", logging.Error(err))
		return
	}
	defer ipcServer.Close()
	ipcServer.Serve()

	if configExists {
		if err := daemon.WatchConfig(ctx, configPath, d, logger); err != nil {
			logger.Warn("config watcher unavailable", logging.Error(err))
		}
	}

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("doormand shutting down")
}

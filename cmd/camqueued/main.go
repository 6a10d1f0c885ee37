// Command camqueued is the job queue daemon. It owns the queue document,
// dispatches jobs, and serves the IPC socket the camqueue CLI talks to.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os/signal"
	"syscall"

	"camqueue/internal/config"
	"camqueue/internal/controller"
	"camqueue/internal/daemon"
	"camqueue/internal/events"
	"camqueue/internal/ipc"
	"camqueue/internal/logging"
	"camqueue/internal/notifications"
	"camqueue/internal/queue"
)

func main() {
	configPath := flag.String("config", "", "configuration file path")
	flag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, _, _, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		log.Fatalf("init logger: %v", err)
	}

	hub := events.NewHub()
	store, err := queue.Open(cfg, logger, hub)
	if err != nil {
		logger.Error("open queue store", logging.Error(err))
		return
	}

	notifier := notifications.NewService(cfg)
	executor, ctrl := buildController(cfg, store, notifier, logger)
	bindExecutor(executor, ctrl)

	d, err := daemon.New(cfg, store, ctrl, notifier, logger)
	if err != nil {
		logger.Error("create daemon", logging.Error(err))
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

	if err := d.Start(ctx); err != nil {
		logger.Error("daemon start", logging.Error(err))
		return
	}

	<-ctx.Done()
	logger.Info("camqueued shutting down")
}

// buildController wires the executor named by the configuration. An empty
// executor command means the machine interface reports outcomes over IPC.
func buildController(cfg *config.Config, store *queue.Store, notifier notifications.Service, logger *slog.Logger) (controller.Executor, *controller.Controller) {
	var executor controller.Executor
	if cfg.Executor.Command != "" {
		executor = controller.NewCommandExecutor(cfg, logger)
	} else {
		executor = controller.NewManualExecutor(logger)
	}
	ctrl := controller.New(cfg, store, executor, notifier, logger)
	return executor, ctrl
}

func bindExecutor(executor controller.Executor, ctrl *controller.Controller) {
	if cmdExec, ok := executor.(*controller.CommandExecutor); ok {
		cmdExec.Bind(ctrl)
	}
}

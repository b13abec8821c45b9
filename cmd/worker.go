package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/frahmantamala/linkup-hub/internal/daraja"
	"github.com/frahmantamala/linkup-hub/pkg/logger"
	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start background workers",
	Long:  `Start the payment sweeper loop or the local Daraja simulator.`,
}

var sweepWorkerCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the payment repair and expiry sweeps on a schedule",
	Run: func(cmd *cobra.Command, args []string) {
		startSweepWorker()
	},
}

var simulatorWorkerCmd = &cobra.Command{
	Use:   "simulator",
	Short: "Serve a local Daraja sandbox with simulated STK push callbacks",
	Run: func(cmd *cobra.Command, args []string) {
		startSimulator()
	},
}

var (
	simulatorPort int
	maxWorkers    int
	jobQueueSize  int
)

func startSweepWorker() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	deps, err := initializeDependencies(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize dependencies: %v\n", err)
		os.Exit(1)
	}
	defer deps.Close(context.Background())

	sched, err := deps.Scheduler()
	if err != nil {
		deps.Logger.Error("failed to build scheduler", "error", err)
		return
	}

	deps.Logger.Info("sweep worker is running. Press Ctrl+C to stop.", "interval", deps.Config.Sweeper.Interval)
	if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		deps.Logger.Error("sweep worker stopped", "error", err)
	}
}

func startSimulator() {
	config, err := loadConfig(".")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.InitWithConfig(config.Observability.Logging.Level, config.Observability.Logging.Format)
	simCfg := config.Daraja.Simulator

	// Use command line flags if provided, otherwise use config values
	sim := daraja.NewSimulator(daraja.SimulatorConfig{
		ConsumerKey:    config.Daraja.ConsumerKey,
		ConsumerSecret: config.Daraja.ConsumerSecret,
		MaxWorkers:     getIntFlag(maxWorkers, simCfg.MaxWorkers),
		JobQueueSize:   getIntFlag(jobQueueSize, simCfg.JobQueueSize),
		MinDelay:       simCfg.MinDelay,
		MaxDelay:       simCfg.MaxDelay,
		SuccessRate:    simCfg.SuccessRate,
	}, log)

	addr := fmt.Sprintf(":%d", getIntFlag(simulatorPort, simCfg.Port))
	server := &http.Server{
		Addr:              addr,
		Handler:           sim,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Info("daraja simulator listening", "address", addr, "success_rate", simCfg.SuccessRate)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("simulator failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// wait for shutdown signal
	sig := <-sigChan
	log.Info("received signal, shutting down simulator", "signal", sig)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("simulator shutdown error", "error", err)
	}

	shutdownDone := make(chan struct{})
	go func() {
		sim.Shutdown()
		close(shutdownDone)
	}()

	select {
	case <-shutdownDone:
		log.Info("simulator worker pool shutdown complete")
	case <-ctx.Done():
		log.Warn("shutdown timeout reached, forcing exit")
	}
}

func getIntFlag(flagValue, configValue int) int {
	if flagValue > 0 {
		return flagValue
	}
	return configValue
}

func init() {
	simulatorWorkerCmd.Flags().IntVar(&simulatorPort, "port", 0, "Port to listen on (overrides config)")
	simulatorWorkerCmd.Flags().IntVar(&maxWorkers, "max-workers", 0, "Maximum number of workers (overrides config)")
	simulatorWorkerCmd.Flags().IntVar(&jobQueueSize, "job-queue-size", 0, "Job queue buffer size (overrides config)")

	workerCmd.AddCommand(sweepWorkerCmd)
	workerCmd.AddCommand(simulatorWorkerCmd)

	rootCmd.AddCommand(workerCmd)
}

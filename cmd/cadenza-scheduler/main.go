package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cadenza/internal/cli"
	"cadenza/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger()

	logger.Info("Starting cadenza-scheduler")

	cfg := cli.LoadAndValidateConfig(logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	result := cli.InitBackend(ctx, logger, cfg)
	if result.Cleanup != nil {
		defer result.Cleanup()
	}

	// Publishing is optional here: without a broker, processed obligations
	// stay pending in the ledger until the posting worker catches up.
	amqpClient := cli.InitAMQP(logger, cfg)
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	obligationService := services.NewObligationService(result.Backend, result.Backend, amqpClient)
	budgetService := services.NewBudgetService(result.Backend)
	processor := services.NewAutoProcessor(result.Backend, obligationService)

	interval := cfg.SchedulerInterval
	logger.Info("Obligation scheduler configured",
		"interval", interval,
		"backend", cfg.DataBackend)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runSweep := func(now time.Time) {
		processed, err := processor.ProcessDueObligations(ctx, now)
		if err != nil {
			logger.Error("Obligation sweep failed", "error", err)
		} else {
			logger.Info("Obligation sweep complete", "obligations_processed", processed)
		}

		resets, err := budgetService.ResetElapsedPeriods(ctx, now)
		if err != nil {
			logger.Error("Budget period reset failed", "error", err)
		} else {
			logger.Info("Budget period reset complete", "budgets_reset", resets)
		}
	}

	// Run an initial sweep on startup
	logger.Info("Running initial scheduling sweep...")
	runSweep(time.Now())

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				logger.Info("Running scheduled sweep...")
				runSweep(now)
				logger.Info("Next sweep scheduled", "next_check", now.Add(interval).Format("15:04:05"))
			}
		}
	}()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Shutdown signal received", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("Context cancelled")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	logger.Info("Shutting down cadenza-scheduler...")
	cancel()

	select {
	case <-shutdownCtx.Done():
		logger.Warn("Shutdown timeout reached")
	case <-time.After(2 * time.Second):
		logger.Info("Scheduler shutdown complete")
	}
}

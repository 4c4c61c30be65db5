// Command sweep runs one settlement pass over expired battles and exits.
// It is meant for cron when the API servers run with the sweeper disabled.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/beatclash/backend/internal/audit"
	"github.com/beatclash/backend/internal/config"
	"github.com/beatclash/backend/internal/database"
	"github.com/beatclash/backend/internal/services"
)

func main() {
	config.LoadEnv()
	battleConfig := config.LoadBattleConfig()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.InitDatabase(ctx)
	defer db.Close()

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := services.SystemClock{}
	auditLogger := audit.NewAuditLogger()
	store := services.NewStore(db, battleConfig)
	ledgerService := services.NewLedgerService(store, clock, auditLogger)
	settlementService := services.NewSettlementService(store, ledgerService,
		services.NewRedisNotifier(redisClient, clock), clock, battleConfig, auditLogger)

	result, err := settlementService.SweepExpired(ctx)
	if err != nil {
		log.Printf("[SWEEP] pass aborted: %v", err)
		os.Exit(1)
	}

	log.Printf("[SWEEP] done: scanned=%d settled=%d skipped=%d failed=%d",
		result.Scanned, result.Settled, result.Skipped, result.Failed)
	if result.Failed > 0 {
		os.Exit(2)
	}
}

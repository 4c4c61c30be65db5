package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/beatclash/backend/docs"
	"github.com/beatclash/backend/internal/audit"
	"github.com/beatclash/backend/internal/config"
	"github.com/beatclash/backend/internal/database"
	"github.com/beatclash/backend/internal/handlers"
	mW "github.com/beatclash/backend/internal/middleware"
	"github.com/beatclash/backend/internal/services"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spf13/viper"
	httpSwagger "github.com/swaggo/http-swagger"
)

// @title Beat Battle API
// @version 1.0
// @description Battle lifecycle and flame economy
// @host localhost:8080
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	config.LoadEnv()
	battleConfig := config.LoadBattleConfig()

	secret := viper.GetString("jwt.secret_key")
	if secret == "" {
		log.Fatal("JWT_SECRET_KEY is required")
	}

	port := viper.GetString("server.port")
	docs.SwaggerInfo.Host = "localhost:" + port

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db := database.InitDatabase(ctx)
	defer db.Close()

	if viper.GetBool("server.migrate") {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatalf("Failed to migrate schema: %v", err)
		}
	}

	redisClient := database.InitRedis(ctx)
	if redisClient != nil {
		defer redisClient.Close()
	}

	clock := services.SystemClock{}
	auditLogger := audit.NewAuditLogger()
	store := services.NewStore(db, battleConfig)
	notifier := services.NewRedisNotifier(redisClient, clock)

	ledgerService := services.NewLedgerService(store, clock, auditLogger)
	battleService := services.NewBattleService(store, services.NewAccountDirectory(db), notifier, clock, battleConfig)
	voteService := services.NewVoteService(store, ledgerService, clock, battleConfig, auditLogger)
	giftService := services.NewGiftService(store, ledgerService, clock, battleConfig, auditLogger)
	settlementService := services.NewSettlementService(store, ledgerService, notifier, clock, battleConfig, auditLogger)
	inviteService := services.NewInviteService(redisClient, battleService, clock, battleConfig.InviteTTL)

	battleHandler := handlers.NewBattleHandler(battleService, voteService, giftService, settlementService)
	accountHandler := handlers.NewAccountHandler(ledgerService)
	inviteHandler := handlers.NewInviteHandler(inviteService)

	go settlementService.RunSweeper(ctx, battleConfig.SweepInterval)

	r := chi.NewRouter()

	r.Use(mW.SecurityHeaders)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		status, code := "healthy", http.StatusOK
		if err := db.PingContext(r.Context()); err != nil {
			status, code = "degraded", http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		json.NewEncoder(w).Encode(map[string]string{"status": status})
	})

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(mW.AuthMiddleware([]byte(secret)))

		battleHandler.Routes(r)
		accountHandler.Routes(r)
		inviteHandler.Routes(r)
	})

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on :%s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	<-ctx.Done()

	log.Println("Server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	log.Println("Server stopped")
}

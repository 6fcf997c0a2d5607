package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/DevGruGold/xmrt-asset-tokenizer/chain"
	"github.com/DevGruGold/xmrt-asset-tokenizer/controllers/faucet"
	"github.com/DevGruGold/xmrt-asset-tokenizer/database"
	"github.com/DevGruGold/xmrt-asset-tokenizer/middleware"
	"github.com/DevGruGold/xmrt-asset-tokenizer/routes"
)

func main() {
	// Load .env if present (do not overwrite already-set environment variables).
	if envMap, err := godotenv.Read(); err == nil {
		for k, v := range envMap {
			if os.Getenv(k) == "" {
				os.Setenv(k, v)
			}
		}
	}

	// Validate required environment variables. FAUCET_PRIVATE_KEY is deliberately
	// not required here: its absence is reported per-claim, with the ledger row
	// marked failed, matching how the faucet behaves when misconfigured.
	requiredEnvVars := []string{"DB_HOST", "DB_USER", "DB_PASS", "DB_NAME", "ETH_RPC_URL"}
	for _, envVar := range requiredEnvVars {
		if os.Getenv(envVar) == "" {
			log.Fatalf("Required environment variable %s is not set", envVar)
		}
	}

	db, err := database.Connect()
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}

	// Auto-migrate only in development to avoid accidental production schema changes
	if strings.ToLower(os.Getenv("ENV")) == "development" {
		log.Println("Running in development mode - performing auto-migration")
		if err := database.Migrate(db); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
		log.Println("Auto-migration completed successfully")
	} else {
		log.Println("Running in production mode - skipping auto-migration")
	}

	sender, err := chain.NewEthSender(os.Getenv("ETH_RPC_URL"), os.Getenv("FAUCET_PRIVATE_KEY"))
	if err != nil {
		log.Fatalf("failed to initialize transaction sender: %v", err)
	}
	if !sender.Configured() {
		log.Println("[warn] FAUCET_PRIVATE_KEY not set - claims will be recorded as failed")
	} else {
		log.Printf("Faucet funding wallet: %s", sender.FromAddress().Hex())
	}

	// Optional Redis for cross-instance claim locking
	var redisClient *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASS"),
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		log.Printf("Using Redis claim lock at %s", addr)
	}

	faucetController := faucet.NewController(db, sender, faucet.Config{
		ExplorerBaseURL: os.Getenv("EXPLORER_BASE_URL"),
		ConfirmTimeout:  envDuration("FAUCET_CONFIRM_TIMEOUT_SEC", 5*time.Minute),
		PendingMaxAge:   envDuration("FAUCET_PENDING_MAX_AGE_SEC", time.Hour),
		Redis:           redisClient,
	})

	router := routes.InitRouter(faucetController)

	// Wrap router with global middleware in recommended order
	// Logging -> Security headers -> Request ID -> Max Body -> Timeout -> Recovery
	handler := middleware.RequestLogMiddleware(
		middleware.SecurityHeadersMiddleware(
			middleware.RequestIDMiddleware(
				middleware.MaxBodyMiddleware(
					middleware.TimeoutMiddleware(
						middleware.RecoveryMiddleware(router),
					),
				),
			),
		),
	)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	// Detached confirmations must finish even though their requests are long
	// gone; otherwise submitted claims would be stuck pending until a sweep.
	log.Println("Waiting for in-flight claim confirmations...")
	faucetController.WaitForConfirmations()

	log.Println("Server exited")
}

func envDuration(key string, def time.Duration) time.Duration {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return time.Duration(v) * time.Second
		}
	}
	return def
}

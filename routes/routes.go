package routes

import (
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/DevGruGold/xmrt-asset-tokenizer/controllers/admins"
	"github.com/DevGruGold/xmrt-asset-tokenizer/controllers/faucet"
	"github.com/DevGruGold/xmrt-asset-tokenizer/middleware"
)

func optionsHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "xmrt-faucet-api",
	})
}

// InitRouter wires the faucet, cron and admin endpoints. The faucet controller
// is built in main so shutdown can drain its confirmation goroutines.
func InitRouter(faucetController *faucet.Controller) *mux.Router {
	r := mux.NewRouter()

	// Health check endpoint for Docker health checks (root level)
	r.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	// CORS: the faucet UI is a static site on a different origin. Origins come
	// from CORS_ALLOWED_ORIGINS (comma-separated) with localhost dev defaults.
	origins := []string{
		"http://localhost:3000", "http://localhost:5173",
		"http://127.0.0.1:3000", "http://127.0.0.1:5173",
	}
	if originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS"); originsEnv != "" {
		for _, p := range strings.Split(originsEnv, ",") {
			if o := strings.TrimSpace(p); o != "" {
				origins = append(origins, o)
			}
		}
	}
	r.Use(func(next http.Handler) http.Handler {
		return handlers.CORS(
			handlers.AllowedOrigins(origins),
			handlers.AllowedMethods([]string{"GET", "POST", "PUT", "OPTIONS"}),
			handlers.AllowedHeaders([]string{"Content-Type", "Authorization", "X-Requested-With", "X-Request-ID"}),
		)(next)
	})

	api := r.PathPrefix("/v1").Subrouter()

	// Catch-all OPTIONS handler for CORS preflight
	api.PathPrefix("/").HandlerFunc(optionsHandler).Methods(http.MethodOptions)

	// Claim endpoint: tight per-IP limit, the cooldown does the real limiting
	claimLimiter := middleware.NewIPRateLimiter(30, 5*time.Minute)
	// Read endpoints are polled by the UI and can be looser
	readLimiter := middleware.NewIPRateLimiter(300, 5*time.Minute)
	// Cron: 100 per hour is plenty for a sweeper
	cronLimiter := middleware.NewIPRateLimiter(100, time.Hour)

	api.Handle("/check-faucet-eligibility", readLimiter.Middleware(http.HandlerFunc(faucetController.CheckEligibilityHandler))).Methods(http.MethodPost)
	api.Handle("/claim-faucet-tokens", claimLimiter.Middleware(http.HandlerFunc(faucetController.ClaimHandler))).Methods(http.MethodPost)
	api.Handle("/get-faucet-stats", readLimiter.Middleware(http.HandlerFunc(faucetController.StatsHandler))).Methods(http.MethodPost)

	// Cron endpoint to finalize stale pending claims (protected via X-CRON-KEY header)
	api.Handle("/cron/faucet-sweep", cronLimiter.Middleware(http.HandlerFunc(faucetController.SweepHandler))).Methods(http.MethodPost)

	// Admin surface
	api.Handle("/admin/login", claimLimiter.Middleware(http.HandlerFunc(admins.LoginHandler))).Methods(http.MethodPost)
	api.Handle("/admin/faucet/config", middleware.AdminAuthMiddleware(http.HandlerFunc(admins.GetFaucetConfigHandler))).Methods(http.MethodGet)
	api.Handle("/admin/faucet/config", middleware.AdminAuthMiddleware(http.HandlerFunc(admins.UpdateFaucetConfigHandler))).Methods(http.MethodPut)
	api.Handle("/admin/faucet/claims", middleware.AdminAuthMiddleware(http.HandlerFunc(admins.ListClaimsHandler))).Methods(http.MethodGet)

	// Health check under the API prefix as well
	api.Handle("/health", http.HandlerFunc(healthHandler)).Methods(http.MethodGet)

	return r
}

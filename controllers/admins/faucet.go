package admins

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/DevGruGold/xmrt-asset-tokenizer/database"
	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
	"github.com/DevGruGold/xmrt-asset-tokenizer/utils"
)

type LoginRequest struct {
	Password string `json:"password"`
}

// LoginHandler POST /admin/login
// The faucet has a single operator account: the password is checked against
// the bcrypt hash in ADMIN_PASSWORD_HASH and a short-lived JWT is issued.
func LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Password == "" {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}

	hash := os.Getenv("ADMIN_PASSWORD_HASH")
	if hash == "" {
		log.Printf("[admin/login] ADMIN_PASSWORD_HASH is not set")
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Admin login is not configured",
		})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)); err != nil {
		utils.WriteJSON(w, http.StatusUnauthorized, utils.APIResponse{
			Success: false,
			Message: "Invalid password",
		})
		return
	}

	token, err := utils.GenerateAdminToken()
	if err != nil {
		log.Printf("[admin/login] token error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to generate token",
		})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Logged in",
		Data:    map[string]interface{}{"token": token},
	})
}

// GetFaucetConfigHandler GET /admin/faucet/config
func GetFaucetConfigHandler(w http.ResponseWriter, r *http.Request) {
	settings, err := models.LoadClaimSettings(database.DB)
	if err != nil {
		log.Printf("[admin/config] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{
			Success: false,
			Message: "Failed to load faucet config",
		})
		return
	}
	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"enabled":              settings.Enabled,
			"claim_cooldown_hours": settings.CooldownHours,
			"claim_amount":         settings.ClaimAmount,
		},
	})
}

type UpdateConfigRequest struct {
	Enabled       *bool   `json:"enabled"`
	CooldownHours *int    `json:"claim_cooldown_hours"`
	ClaimAmount   *string `json:"claim_amount"`
}

// UpdateFaucetConfigHandler PUT /admin/faucet/config
// Only fields present in the body are written; each maps to one settings row.
func UpdateFaucetConfigHandler(w http.ResponseWriter, r *http.Request) {
	var req UpdateConfigRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{
			Success: false,
			Message: "Invalid JSON body",
		})
		return
	}

	db := database.DB
	if req.Enabled != nil {
		if err := models.SaveClaimSetting(db, models.ConfigKeyEnabled, strconv.FormatBool(*req.Enabled)); err != nil {
			log.Printf("[admin/config] update error: %v", err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update faucet config"})
			return
		}
	}
	if req.CooldownHours != nil {
		if *req.CooldownHours <= 0 {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "claim_cooldown_hours must be positive"})
			return
		}
		if err := models.SaveClaimSetting(db, models.ConfigKeyCooldownHours, strconv.Itoa(*req.CooldownHours)); err != nil {
			log.Printf("[admin/config] update error: %v", err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update faucet config"})
			return
		}
	}
	if req.ClaimAmount != nil {
		amount := strings.TrimSpace(*req.ClaimAmount)
		if amount == "" {
			utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "claim_amount must not be empty"})
			return
		}
		if err := models.SaveClaimSetting(db, models.ConfigKeyClaimAmount, amount); err != nil {
			log.Printf("[admin/config] update error: %v", err)
			utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to update faucet config"})
			return
		}
	}

	GetFaucetConfigHandler(w, r)
}

// ListClaimsHandler GET /admin/faucet/claims?page=&limit=&status=
func ListClaimsHandler(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	status := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("status")))
	switch status {
	case "", models.ClaimStatusPending, models.ClaimStatusCompleted, models.ClaimStatusFailed:
	default:
		utils.WriteJSON(w, http.StatusBadRequest, utils.APIResponse{Success: false, Message: "Invalid status filter"})
		return
	}

	db := database.DB
	filtered := func() *gorm.DB {
		q := db.Model(&models.FaucetClaim{})
		if status != "" {
			q = q.Where("status = ?", status)
		}
		return q
	}

	var total int64
	if err := filtered().Count(&total).Error; err != nil {
		log.Printf("[admin/claims] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to list claims"})
		return
	}

	var claims []models.FaucetClaim
	if err := filtered().Order("claimed_at DESC").Offset(offset).Limit(limit).Find(&claims).Error; err != nil {
		log.Printf("[admin/claims] DB error: %v", err)
		utils.WriteJSON(w, http.StatusInternalServerError, utils.APIResponse{Success: false, Message: "Failed to list claims"})
		return
	}

	utils.WriteJSON(w, http.StatusOK, utils.APIResponse{
		Success: true,
		Message: "Successfully",
		Data: map[string]interface{}{
			"items": claims,
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}

package models

import (
	"errors"
	"strconv"
	"strings"

	"gorm.io/gorm"
)

// FaucetConfigEntry is one key/value row in the faucet_config table. Settings
// live in the database so operators can toggle the faucet without a deploy.
type FaucetConfigEntry struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Key   string `gorm:"column:key_name;type:varchar(64);uniqueIndex;not null" json:"key"`
	Value string `gorm:"type:varchar(191);not null" json:"value"`
}

func (FaucetConfigEntry) TableName() string {
	return "faucet_config"
}

// Setting keys read by the faucet.
const (
	ConfigKeyEnabled       = "enabled"
	ConfigKeyCooldownHours = "claim_cooldown_hours"
	ConfigKeyClaimAmount   = "claim_amount"
)

// Defaults applied when a row is missing or unparseable.
const (
	DefaultCooldownHours = 24
	DefaultClaimAmount   = "0.1"
)

// ClaimSettings is an immutable snapshot of the faucet configuration, loaded
// fresh for each operation. Stale reads between operations are acceptable.
type ClaimSettings struct {
	Enabled       bool
	CooldownHours int
	ClaimAmount   string
}

// LoadClaimSettings reads the faucet settings rows and applies defaults.
// A missing enabled row disables the faucet; the other keys fall back to
// their defaults so a partially seeded table still behaves sanely.
func LoadClaimSettings(db *gorm.DB) (ClaimSettings, error) {
	var entries []FaucetConfigEntry
	err := db.Where("key_name IN ?", []string{
		ConfigKeyEnabled, ConfigKeyCooldownHours, ConfigKeyClaimAmount,
	}).Find(&entries).Error
	if err != nil {
		return ClaimSettings{}, err
	}

	settings := ClaimSettings{
		CooldownHours: DefaultCooldownHours,
		ClaimAmount:   DefaultClaimAmount,
	}
	for _, entry := range entries {
		value := strings.TrimSpace(entry.Value)
		switch entry.Key {
		case ConfigKeyEnabled:
			settings.Enabled = value == "true" || value == "1"
		case ConfigKeyCooldownHours:
			if hours, err := strconv.Atoi(value); err == nil && hours > 0 {
				settings.CooldownHours = hours
			}
		case ConfigKeyClaimAmount:
			if value != "" {
				settings.ClaimAmount = value
			}
		}
	}
	return settings, nil
}

// SaveClaimSetting upserts a single settings row.
func SaveClaimSetting(db *gorm.DB, key, value string) error {
	var entry FaucetConfigEntry
	err := db.Where("key_name = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.Create(&FaucetConfigEntry{Key: key, Value: value}).Error
	}
	if err != nil {
		return err
	}
	return db.Model(&entry).Update("value", value).Error
}

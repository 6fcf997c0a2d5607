package database

import (
	"errors"

	"gorm.io/gorm"

	"github.com/DevGruGold/xmrt-asset-tokenizer/models"
)

// Migrate creates the faucet tables and seeds the default settings rows.
// Seeding only inserts keys that are missing, so operator changes survive
// restarts.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.FaucetConfigEntry{},
		&models.FaucetClaim{},
	); err != nil {
		return err
	}
	return SeedFaucetConfig(db)
}

// SeedFaucetConfig inserts the default faucet settings where absent.
func SeedFaucetConfig(db *gorm.DB) error {
	defaults := map[string]string{
		models.ConfigKeyEnabled:       "true",
		models.ConfigKeyCooldownHours: "24",
		models.ConfigKeyClaimAmount:   models.DefaultClaimAmount,
	}
	for key, value := range defaults {
		var entry models.FaucetConfigEntry
		err := db.Where("key_name = ?", key).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			if err := db.Create(&models.FaucetConfigEntry{Key: key, Value: value}).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

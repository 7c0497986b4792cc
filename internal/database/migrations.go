package database

import (
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/models"
)

// cleanupDuplicateAPIIDs clears api_id on all but one card sharing it (the
// greatest id), so the unique index can be created. Cards themselves are
// kept; they stay reachable through their reconciliation key.
// This runs BEFORE AutoMigrate to prevent constraint violations.
func cleanupDuplicateAPIIDs(db *gorm.DB, log *zap.Logger) error {
	if !db.Migrator().HasTable("cards") || !db.Migrator().HasColumn("cards", "api_id") {
		return nil
	}
	if db.Migrator().HasIndex(&models.Card{}, "idx_cards_api_id") {
		return nil
	}

	// Blank strings would collide under the unique index; NULLs don't.
	if err := db.Exec(`UPDATE cards SET api_id = NULL WHERE api_id = ''`).Error; err != nil {
		log.Warn("Failed to null blank api ids", zap.Error(err))
	}

	result := db.Exec(`
		UPDATE cards SET api_id = NULL
		WHERE api_id IS NOT NULL
		AND id NOT IN (
			SELECT keep_id FROM (
				SELECT MAX(id) AS keep_id FROM cards
				WHERE api_id IS NOT NULL
				GROUP BY api_id
			) keepers
		)
	`)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("Cleared duplicate card api ids", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

// RunMigrations runs data migrations after schema changes. Each step is safe
// to run repeatedly.
func RunMigrations(db *gorm.DB, log *zap.Logger) error {
	if err := migrateGameTitle(db, log); err != nil {
		return err
	}
	if err := migrateListDelimiter(db, log); err != nil {
		return err
	}
	return backfillSearchNames(db, log)
}

func migrateGameTitle(db *gorm.DB, log *zap.Logger) error {
	result := db.Exec(`UPDATE cards SET game_title = ? WHERE game_title IS NULL OR game_title = ''`, models.DefaultGameTitle)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		log.Info("Defaulted card game titles", zap.Int64("rows", result.RowsAffected))
	}
	return nil
}

// migrateListDelimiter rewrites legacy "Fire,Flying" list columns to the
// ", " delimiter without doubling already-migrated values.
func migrateListDelimiter(db *gorm.DB, log *zap.Logger) error {
	for _, column := range []string{"types", "types_local", "subtypes", "subtypes_local"} {
		result := db.Exec(`UPDATE cards SET ` + column + ` = REPLACE(REPLACE(` + column + `, ', ', ','), ',', ', ')
			WHERE ` + column + ` LIKE '%,%' AND ` + column + ` NOT LIKE '%, %'`)
		if result.Error != nil {
			log.Warn("Failed to migrate list delimiter", zap.String("column", column), zap.Error(result.Error))
			continue
		}
		if result.RowsAffected > 0 {
			log.Info("Migrated list delimiter", zap.String("column", column), zap.Int64("rows", result.RowsAffected))
		}
	}
	return nil
}

func backfillSearchNames(db *gorm.DB, log *zap.Logger) error {
	var cards []models.Card
	updated := 0
	result := db.Select("id", "name").
		Where("search_name IS NULL OR search_name = ''").
		FindInBatches(&cards, 500, func(tx *gorm.DB, batch int) error {
			for _, card := range cards {
				if err := tx.Model(&models.Card{}).Where("id = ?", card.ID).
					UpdateColumn("search_name", models.SearchKey(card.Name)).Error; err != nil {
					return err
				}
				updated++
			}
			return nil
		})
	if result.Error != nil {
		return result.Error
	}
	if updated > 0 {
		log.Info("Backfilled card search names", zap.Int("rows", updated))
	}
	return nil
}

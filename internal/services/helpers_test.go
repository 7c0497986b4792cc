package services

import (
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/database"
	"github.com/codyseavey/card-nexus/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "services.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func seedCard(t *testing.T, db *gorm.DB, name, number, rarity string) models.Card {
	t.Helper()
	card := models.Card{
		ID:         uuid.NewString(),
		Name:       name,
		SearchName: models.SearchKey(name),
		CardNumber: number,
		Expansion:  "sv1",
		GameTitle:  models.DefaultGameTitle,
		Rarity:     rarity,
	}
	require.NoError(t, db.Create(&card).Error)
	return card
}

func seedUser(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.NewString(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

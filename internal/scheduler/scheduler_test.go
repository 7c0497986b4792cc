package scheduler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/database"
	"github.com/codyseavey/card-nexus/internal/importer"
	"github.com/codyseavey/card-nexus/internal/models"
	"github.com/codyseavey/card-nexus/internal/services"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := database.Open(database.Options{
		Driver: database.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "scheduler.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func newSync(t *testing.T, db *gorm.DB) *importer.APISync {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"data": []map[string]any{
				{"id": "sch-1", "name": "Bulbasaur", "number": "1", "set": map[string]any{"id": "sch", "name": "Sched"}},
				{"id": "sch-2", "name": "Ivysaur", "number": "2", "set": map[string]any{"id": "sch", "name": "Sched"}},
			},
			"page": 1, "pageSize": 250, "count": 2, "totalCount": 2,
		})
	}))
	t.Cleanup(srv.Close)

	loader, err := importer.NewLoader(db, importer.StrategyAuto, zap.NewNop())
	require.NoError(t, err)
	runner := importer.NewRunner(loader, zap.NewNop(), importer.WithOutput(io.Discard))
	client := importer.NewCardAPIClient(importer.CardAPIConfig{BaseURL: srv.URL}, zap.NewNop())
	return importer.NewAPISync(client, runner, zap.NewNop())
}

func TestNewRegistersJobs(t *testing.T) {
	db := setupTestDB(t)
	listings := services.NewListingService(db, 0, zap.NewNop())

	s, err := New(Config{Listings: listings}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, []string{JobExpireListings}, s.JobNames())
	require.NoError(t, s.Shutdown())

	s, err = New(Config{Listings: listings, Sync: newSync(t, db)}, zap.NewNop())
	require.NoError(t, err)
	assert.Len(t, s.JobNames(), 1, "sync without an interval is not scheduled")
	require.NoError(t, s.Shutdown())

	s, err = New(Config{Listings: listings, Sync: newSync(t, db), SyncInterval: 6 * time.Hour}, zap.NewNop())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{JobExpireListings, JobCatalogSync}, s.JobNames())
	require.NoError(t, s.Shutdown())
}

func TestExpireListingsJob(t *testing.T) {
	db := setupTestDB(t)
	past := time.Now().Add(-time.Minute).UTC()
	card := models.Card{ID: uuid.NewString(), Name: "Eevee", GameTitle: models.DefaultGameTitle}
	require.NoError(t, db.Create(&card).Error)
	user := models.User{ID: uuid.NewString(), Username: "seller", Email: "s@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&user).Error)
	listing := models.Listing{
		ID: uuid.NewString(), SellerID: user.ID, CardID: card.ID,
		Kind: models.ListingSell, Status: models.ListingActive,
		PriceUSD: 3, Quantity: 1, Condition: models.PriceConditionNM, ExpiresAt: &past,
	}
	require.NoError(t, db.Create(&listing).Error)

	s, err := New(Config{Listings: services.NewListingService(db, 0, zap.NewNop())}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	require.NoError(t, s.ExpireListings(context.Background()))

	var stored models.Listing
	require.NoError(t, db.First(&stored, "id = ?", listing.ID).Error)
	assert.Equal(t, models.ListingExpired, stored.Status)
}

func TestSyncCatalogJob(t *testing.T) {
	db := setupTestDB(t)
	catalog := services.NewCatalogService(db, 0)

	s, err := New(Config{Catalog: catalog, Sync: newSync(t, db), SyncInterval: time.Hour}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown() })

	require.NoError(t, s.SyncCatalog(context.Background()))
	require.NoError(t, s.SyncCatalog(context.Background()))

	var n int64
	require.NoError(t, db.Model(&models.Card{}).Count(&n).Error)
	assert.EqualValues(t, 2, n)
}

package services

import (
	"gorm.io/gorm"

	"github.com/codyseavey/card-nexus/internal/models"
)

type scope = func(*gorm.DB) *gorm.DB

// publicUserColumns keeps emails and password hashes out of embedded users.
var publicUserColumns = []string{"id", "username", "display_name", "avatar_url", "created_at"}

func preload(name string) scope {
	return func(db *gorm.DB) *gorm.DB { return db.Preload(name) }
}

// preloadUser loads a *models.User association with public columns only.
func preloadUser(name string) scope {
	return func(db *gorm.DB) *gorm.DB {
		return db.Preload(name, func(db *gorm.DB) *gorm.DB { return db.Select(publicUserColumns) })
	}
}

// paginate counts query's rows and loads one page of them into dest. query
// must already carry its filters; order and scopes apply to the page read
// only.
func paginate(query *gorm.DB, page, limit int, order string, dest any, scopes ...scope) (models.Pagination, error) {
	page, limit = models.NormalizePage(page, limit)

	var total int64
	if err := query.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return models.Pagination{}, err
	}

	err := query.Session(&gorm.Session{}).
		Scopes(scopes...).
		Order(order).
		Offset(models.Offset(page, limit)).
		Limit(limit).
		Find(dest).Error
	if err != nil {
		return models.Pagination{}, err
	}
	return models.NewPagination(page, limit, total), nil
}

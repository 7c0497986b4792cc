package models

import "time"

// Set is an expansion as published by the card data source. Its ID is the
// source's own set id (e.g. "sv1"), not a surrogate.
type Set struct {
	ID           string    `json:"id" gorm:"primaryKey"`
	Name         string    `json:"name" gorm:"index"`
	Series       string    `json:"series"`
	GameTitle    string    `json:"game_title" gorm:"index;default:'pokemon'"`
	ReleaseDate  string    `json:"release_date"`
	Total        int       `json:"total"`
	PrintedTotal int       `json:"printed_total"`
	SymbolURL    string    `json:"symbol_url"`
	LogoURL      string    `json:"logo_url"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type SetDetail struct {
	Set       Set   `json:"set"`
	CardCount int64 `json:"card_count"`
}

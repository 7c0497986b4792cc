package models

import "time"

// Maximum copies of one card in a deck and cards per deck. Standard formats
// are stricter; these only bound storage.
const (
	MaxDeckCardQuantity = 60
	MaxDeckCards        = 200
)

type Deck struct {
	ID          string     `json:"id" gorm:"primaryKey"`
	OwnerID     string     `json:"owner_id" gorm:"not null;index"`
	Owner       *User      `json:"owner,omitempty" gorm:"foreignKey:OwnerID"`
	Name        string     `json:"name" gorm:"not null"`
	Slug        string     `json:"slug" gorm:"index"`
	Description string     `json:"description"`
	GameTitle   string     `json:"game_title" gorm:"index;default:'pokemon'"`
	Format      string     `json:"format"`
	IsPublic    bool       `json:"is_public" gorm:"index"`
	LikeCount   int        `json:"like_count" gorm:"default:0"`
	Cards       []DeckCard `json:"cards,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	Tags        []DeckTag  `json:"tags,omitempty" gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

type DeckCard struct {
	ID       uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	DeckID   string `json:"deck_id" gorm:"not null;uniqueIndex:idx_deck_card"`
	CardID   string `json:"card_id" gorm:"not null;uniqueIndex:idx_deck_card"`
	Card     *Card  `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Quantity int    `json:"quantity" gorm:"default:1"`
}

type DeckTag struct {
	ID     uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	DeckID string `json:"deck_id" gorm:"not null;uniqueIndex:idx_deck_tag"`
	Tag    string `json:"tag" gorm:"not null;uniqueIndex:idx_deck_tag;index"`
}

type DeckLike struct {
	DeckID    string    `json:"deck_id" gorm:"primaryKey"`
	UserID    string    `json:"user_id" gorm:"primaryKey"`
	CreatedAt time.Time `json:"created_at"`
}

type DeckCardInput struct {
	CardID   string `json:"card_id"`
	Quantity int    `json:"quantity"`
}

type SaveDeckRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	GameTitle   string          `json:"game_title"`
	Format      string          `json:"format"`
	IsPublic    *bool           `json:"is_public"`
	Cards       []DeckCardInput `json:"cards"`
	Tags        []string        `json:"tags"`
}

type DeckFilter struct {
	GameTitle string
	Tag       string
	OwnerID   string
	Viewer    string
	Page      int
	Limit     int
}

type DeckPage struct {
	Decks      []Deck     `json:"decks"`
	Pagination Pagination `json:"pagination"`
}

// LikeState is returned by like/unlike endpoints.
type LikeState struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}

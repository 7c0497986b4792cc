package models

// AllModels lists every table for AutoMigrate, parents before children.
func AllModels() []any {
	return []any{
		&Set{},
		&Card{},
		&PricePoint{},
		&User{},
		&Listing{},
		&Transaction{},
		&Review{},
		&Deck{},
		&DeckCard{},
		&DeckTag{},
		&DeckLike{},
		&Post{},
		&Comment{},
		&PostLike{},
	}
}

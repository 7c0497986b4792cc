package models

import (
	"strings"
	"time"

	"github.com/gosimple/unidecode"
	"gorm.io/datatypes"
)

// ListDelimiter joins list-valued source fields (types, subtypes) into a
// single text column. SplitList reverses it.
const ListDelimiter = ", "

const DefaultGameTitle = "pokemon"

// Card is the canonical card record every import source is mapped into.
// (CardNumber, Expansion, GameTitle) is the reconciliation key used when
// APIID is missing; it is indexed but not declared unique.
type Card struct {
	ID    string  `json:"id" gorm:"primaryKey"`
	APIID *string `json:"api_id" gorm:"uniqueIndex"`

	CardNumber string `json:"card_number" gorm:"index:idx_card_recon_key"`
	Expansion  string `json:"expansion" gorm:"index:idx_card_recon_key"`
	GameTitle  string `json:"game_title" gorm:"index:idx_card_recon_key;not null;default:'pokemon'"`

	Name          string  `json:"name" gorm:"not null;index"`
	NameLocal     string  `json:"name_local"`
	SearchName    string  `json:"-" gorm:"index"`
	CardType      string  `json:"card_type" gorm:"index"`
	CardTypeLocal string  `json:"card_type_local"`
	Rarity        string  `json:"rarity" gorm:"index"`
	Artist        string  `json:"artist"`
	HP            *int    `json:"hp"`
	Types         string  `json:"types"`
	TypesLocal    string  `json:"types_local"`
	Subtypes      string  `json:"subtypes"`
	SubtypesLocal string  `json:"subtypes_local"`
	EvolvesFrom   string  `json:"evolves_from"`
	ReleaseDate   string  `json:"release_date"`
	Regulation    string  `json:"regulation" gorm:"index"`
	FlavorText    string  `json:"flavor_text"`
	ImageURL      string  `json:"image_url"`
	ImageURLLarge string  `json:"image_url_large"`
	SetID         *string `json:"set_id" gorm:"index"`
	Set           *Set    `json:"set,omitempty" gorm:"foreignKey:SetID"`

	Abilities              datatypes.JSON `json:"abilities"`
	Attacks                datatypes.JSON `json:"attacks"`
	Weaknesses             datatypes.JSON `json:"weaknesses"`
	Resistances            datatypes.JSON `json:"resistances"`
	RetreatCost            datatypes.JSON `json:"retreat_cost"`
	Legalities             datatypes.JSON `json:"legalities"`
	Rules                  datatypes.JSON `json:"rules"`
	NationalPokedexNumbers datatypes.JSON `json:"national_pokedex_numbers"`
	Extra                  datatypes.JSON `json:"extra,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Label identifies a card in logs and import reports: "Pikachu #25".
func (c *Card) Label() string {
	name := strings.TrimSpace(c.Name)
	if name == "" {
		name = "<unnamed>"
	}
	if c.CardNumber == "" {
		return name
	}
	return name + " #" + c.CardNumber
}

// TypeList returns the elemental types in source order.
func (c *Card) TypeList() []string {
	return SplitList(c.Types)
}

// SplitList splits a column written with ListDelimiter back into its items.
func SplitList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ListDelimiter)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SearchKey folds a name to lowercase ASCII so "Flabébé" and "Nidoran♀"
// match plain-keyboard queries.
func SearchKey(name string) string {
	name = strings.ReplaceAll(name, "♂", " m")
	name = strings.ReplaceAll(name, "♀", " f")
	folded := strings.ToLower(unidecode.Unidecode(name))
	return strings.Join(strings.Fields(folded), " ")
}

// CardFilter holds the catalog list predicates. Empty fields do not filter.
type CardFilter struct {
	GameTitle  string
	Name       string
	Expansion  string
	Rarity     string
	Regulation string
	CardType   string
	Element    string
	SetID      string
	Page       int
	Limit      int
}

type CardPage struct {
	Cards      []Card     `json:"cards"`
	Pagination Pagination `json:"pagination"`
}

// CardDetail is the single-card read: the card plus derived marketplace data.
type CardDetail struct {
	Card               Card          `json:"card"`
	Prices             *PriceSummary `json:"prices"`
	ActiveListingCount int64         `json:"active_listing_count"`
	LowestAskUSD       *float64      `json:"lowest_ask_usd"`
}

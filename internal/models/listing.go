package models

import "time"

type ListingKind string

const (
	ListingSell  ListingKind = "sell"
	ListingBuy   ListingKind = "buy"
	ListingTrade ListingKind = "trade"
)

func (k ListingKind) Valid() bool {
	return k == ListingSell || k == ListingBuy || k == ListingTrade
}

type ListingStatus string

const (
	ListingActive    ListingStatus = "active"
	ListingSold      ListingStatus = "sold"
	ListingCancelled ListingStatus = "cancelled"
	ListingExpired   ListingStatus = "expired"
)

// Maximum quantity allowed per listing
const MaxListingQuantity = 9999

type Listing struct {
	ID          string         `json:"id" gorm:"primaryKey"`
	SellerID    string         `json:"seller_id" gorm:"not null;index"`
	Seller      *User          `json:"seller,omitempty" gorm:"foreignKey:SellerID"`
	CardID      string         `json:"card_id" gorm:"not null;index"`
	Card        *Card          `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Kind        ListingKind    `json:"kind" gorm:"not null;index;default:'sell'"`
	Status      ListingStatus  `json:"status" gorm:"not null;index;default:'active'"`
	PriceUSD    float64        `json:"price_usd"`
	Quantity    int            `json:"quantity" gorm:"default:1"`
	Condition   PriceCondition `json:"condition" gorm:"default:'NM'"`
	Description string         `json:"description"`
	ExpiresAt   *time.Time     `json:"expires_at" gorm:"index"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// ExpiredAt reports whether the listing's expiry has passed at now, whether
// or not the expiry job has flipped its status yet.
func (l *Listing) ExpiredAt(now time.Time) bool {
	return l.ExpiresAt != nil && now.After(*l.ExpiresAt)
}

type ListingFilter struct {
	CardID   string
	SellerID string
	Kind     string
	Status   string
	Page     int
	Limit    int
}

type ListingPage struct {
	Listings   []Listing  `json:"listings"`
	Pagination Pagination `json:"pagination"`
}

type CreateListingRequest struct {
	CardID      string  `json:"card_id" binding:"required"`
	Kind        string  `json:"kind"`
	PriceUSD    float64 `json:"price_usd"`
	Quantity    int     `json:"quantity"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
}

type UpdateListingRequest struct {
	PriceUSD    *float64 `json:"price_usd"`
	Quantity    *int     `json:"quantity"`
	Condition   *string  `json:"condition"`
	Description *string  `json:"description"`
}

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "pending"
	TransactionCompleted TransactionStatus = "completed"
	TransactionCancelled TransactionStatus = "cancelled"
)

type Transaction struct {
	ID          uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	ListingID   string            `json:"listing_id" gorm:"not null;index"`
	BuyerID     string            `json:"buyer_id" gorm:"not null;index"`
	SellerID    string            `json:"seller_id" gorm:"not null;index"`
	CardID      string            `json:"card_id" gorm:"not null;index"`
	Card        *Card             `json:"card,omitempty" gorm:"foreignKey:CardID"`
	Quantity    int               `json:"quantity"`
	UnitPrice   float64           `json:"unit_price"`
	TotalPrice  float64           `json:"total_price"`
	Status      TransactionStatus `json:"status" gorm:"not null;index;default:'pending'"`
	CompletedAt *time.Time        `json:"completed_at"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
}

type PurchaseRequest struct {
	Quantity int `json:"quantity"`
}

type Review struct {
	ID            uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TransactionID uint      `json:"transaction_id" gorm:"not null;uniqueIndex:idx_review_tx_reviewer"`
	ReviewerID    string    `json:"reviewer_id" gorm:"not null;uniqueIndex:idx_review_tx_reviewer"`
	Reviewer      *User     `json:"reviewer,omitempty" gorm:"foreignKey:ReviewerID"`
	RevieweeID    string    `json:"reviewee_id" gorm:"not null;index"`
	Rating        int       `json:"rating" gorm:"not null"`
	Comment       string    `json:"comment"`
	CreatedAt     time.Time `json:"created_at"`
}

type CreateReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

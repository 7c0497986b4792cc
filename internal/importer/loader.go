package importer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/codyseavey/card-nexus/internal/metrics"
	"github.com/codyseavey/card-nexus/internal/models"
)

// KeyStrategy selects how an incoming record is matched to a stored card.
type KeyStrategy string

const (
	// StrategyAuto matches on api id when the record has one and falls back
	// to the composite key when that finds nothing.
	StrategyAuto KeyStrategy = "auto"
	// StrategyAPIID matches only on api id. Records without one are invalid.
	StrategyAPIID KeyStrategy = "apiid"
	// StrategyComposite matches only on (card number, expansion, game title).
	StrategyComposite KeyStrategy = "composite"
)

func ParseStrategy(s string) (KeyStrategy, error) {
	switch KeyStrategy(strings.ToLower(strings.TrimSpace(s))) {
	case "", StrategyAuto:
		return StrategyAuto, nil
	case StrategyAPIID, "api_id", "api-id":
		return StrategyAPIID, nil
	case StrategyComposite:
		return StrategyComposite, nil
	default:
		return "", fmt.Errorf("unknown key strategy %q (want auto, apiid or composite)", s)
	}
}

var (
	ErrMissingName = errors.New("name is required")
	ErrMissingKey  = errors.New("no usable reconciliation key")
)

// Validate rejects records that cannot be stored or reconciled under
// strategy. It runs before any storage access.
func Validate(n *Normalized, strategy KeyStrategy) error {
	if strings.TrimSpace(n.Card.Name) == "" {
		return ErrMissingName
	}
	hasAPIID := n.Card.APIID != nil && *n.Card.APIID != ""
	hasComposite := n.Card.CardNumber != "" && n.Card.Expansion != ""

	switch strategy {
	case StrategyAPIID:
		if !hasAPIID {
			return fmt.Errorf("%w: api id missing", ErrMissingKey)
		}
	case StrategyComposite:
		if !hasComposite {
			return fmt.Errorf("%w: card number and expansion required", ErrMissingKey)
		}
	default:
		if !hasAPIID && !hasComposite {
			return fmt.Errorf("%w: need an api id or card number and expansion", ErrMissingKey)
		}
	}
	return nil
}

// Loader writes normalized records, one lookup and one write per record.
type Loader struct {
	db       *gorm.DB
	strategy KeyStrategy
	log      *zap.Logger
	// sets already upserted during the current run; see Reset
	ensuredSets *lru.Cache[string, struct{}]
	newID       func() string
}

func NewLoader(db *gorm.DB, strategy KeyStrategy, log *zap.Logger) (*Loader, error) {
	cache, err := lru.New[string, struct{}](1024)
	if err != nil {
		return nil, fmt.Errorf("set cache: %w", err)
	}
	return &Loader{
		db:          db,
		strategy:    strategy,
		log:         log,
		ensuredSets: cache,
		newID:       uuid.NewString,
	}, nil
}

// Reset starts a new run: every set seen from now on is upserted again once.
func (l *Loader) Reset() {
	l.ensuredSets.Purge()
}

func (l *Loader) Strategy() KeyStrategy {
	return l.strategy
}

// Load persists one record and reports what happened. It never returns an
// error: failures are captured in the Result so the caller can continue.
func (l *Loader) Load(ctx context.Context, n *Normalized) (res Result) {
	res.Label = n.Card.Label()

	defer func() {
		if r := recover(); r != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("panic while loading: %v", r)
		}
		metrics.ImportRecordsTotal.WithLabelValues(string(res.Outcome)).Inc()
	}()

	if err := Validate(n, l.strategy); err != nil {
		res.Outcome = OutcomeInvalid
		res.Err = err
		return res
	}

	db := l.db.WithContext(ctx)

	if err := l.ensureSet(db, n.Set); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("upsert set %s: %w", n.Set.ID, err)
		return res
	}

	existing, err := l.find(db, &n.Card)
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("lookup: %w", err)
		return res
	}

	card := n.Card
	card.Set = nil

	if existing == nil {
		card.ID = l.newID()
		if err := db.Create(&card).Error; err != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("insert: %w", err)
			return res
		}
		res.Outcome = OutcomeCreated
		res.CardID = card.ID
		return res
	}

	card.ID = existing.ID
	card.CreatedAt = existing.CreatedAt
	if existing.APIID != nil && *existing.APIID != "" {
		if card.APIID != nil && *card.APIID != *existing.APIID {
			l.log.Warn("Matched card by composite key but api ids differ; keeping stored id",
				zap.String("card", res.Label),
				zap.String("stored_api_id", *existing.APIID),
				zap.String("incoming_api_id", *card.APIID))
		}
		card.APIID = existing.APIID
	}

	if err := db.Save(&card).Error; err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("update: %w", err)
		return res
	}
	res.Outcome = OutcomeUpdated
	res.CardID = card.ID
	return res
}

// find returns the stored card matching c under the loader's strategy, or
// nil. Duplicate composite matches resolve to the oldest row.
func (l *Loader) find(db *gorm.DB, c *models.Card) (*models.Card, error) {
	if l.strategy != StrategyComposite && c.APIID != nil && *c.APIID != "" {
		found, err := first(db.Where("api_id = ?", *c.APIID))
		if err != nil || found != nil || l.strategy == StrategyAPIID {
			return found, err
		}
	}
	if l.strategy == StrategyAPIID || c.CardNumber == "" || c.Expansion == "" {
		return nil, nil
	}
	return first(db.Where("card_number = ? AND expansion = ? AND game_title = ?", c.CardNumber, c.Expansion, c.GameTitle).
		Order("created_at ASC, id ASC"))
}

func first(q *gorm.DB) (*models.Card, error) {
	var cards []models.Card
	if err := q.Select("id", "api_id", "created_at").Limit(1).Find(&cards).Error; err != nil {
		return nil, err
	}
	if len(cards) == 0 {
		return nil, nil
	}
	return &cards[0], nil
}

// ensureSet upserts the record's set once per run.
func (l *Loader) ensureSet(db *gorm.DB, set *models.Set) error {
	if set == nil || set.ID == "" {
		return nil
	}
	if _, ok := l.ensuredSets.Get(set.ID); ok {
		return nil
	}

	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "series", "game_title", "release_date", "total", "printed_total", "symbol_url", "logo_url", "updated_at"}),
	}).Create(set).Error
	if err != nil {
		return err
	}
	l.ensuredSets.Add(set.ID, struct{}{})
	return nil
}

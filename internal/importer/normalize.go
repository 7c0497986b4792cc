// Package importer turns external card JSON into canonical card rows.
//
// The pipeline is Normalize -> Validate -> Loader.Load, driven record by
// record by a Runner over JSON files or pages fetched from the card API.
package importer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"gorm.io/datatypes"

	"github.com/codyseavey/card-nexus/internal/models"
)

var (
	emptyList = datatypes.JSON("[]")
	emptyMap  = datatypes.JSON("{}")
)

type fieldKind int

const (
	kindText fieldKind = iota
	kindID             // text, but only string source values count
	kindList
	kindInt
	kindDocList
	kindDocMap
)

// sourceKey is one candidate location of a destination field in the source
// object. Path may be dotted to reach into nested objects ("set.id").
// The key is skipped when any of unless is present in the source, which
// keeps a legacy export's surrogate "id" from being read as an api id.
type sourceKey struct {
	path   string
	unless []string
}

func keys(paths ...string) []sourceKey {
	out := make([]sourceKey, len(paths))
	for i, p := range paths {
		out[i] = sourceKey{path: p}
	}
	return out
}

// fieldRule maps one destination field from an ordered list of source keys.
// The first key holding a usable value wins.
type fieldRule struct {
	field string
	keys  []sourceKey
	kind  fieldKind

	text func(c *models.Card, v string)
	num  func(c *models.Card, v *int)
	doc  func(c *models.Card, v datatypes.JSON)
}

// cardRules is the whole source-to-canonical mapping. Order inside keys is
// the precedence order; order of rules is irrelevant.
var cardRules = []fieldRule{
	{field: "api_id", kind: kindID,
		keys: append(keys("externalId", "external_id", "apiId", "api_id"), sourceKey{path: "id", unless: []string{"apiId", "api_id"}}),
		text: func(c *models.Card, v string) { c.APIID = &v }},
	{field: "name", kind: kindText, keys: keys("name", "cardName", "card_name"),
		text: func(c *models.Card, v string) { c.Name = v }},
	{field: "name_local", kind: kindText, keys: keys("nameJa", "name_ja", "nameLocal", "name_local", "localizedName"),
		text: func(c *models.Card, v string) { c.NameLocal = v }},
	{field: "game_title", kind: kindText, keys: keys("gameTitle", "game_title", "game"),
		text: func(c *models.Card, v string) { c.GameTitle = strings.ToLower(v) }},
	{field: "card_number", kind: kindText, keys: keys("number", "cardNumber", "card_number", "localId"),
		text: func(c *models.Card, v string) { c.CardNumber = v }},
	{field: "expansion", kind: kindText, keys: keys("expansion", "set.id", "setId", "set_id", "setCode", "set_code"),
		text: func(c *models.Card, v string) { c.Expansion = v }},
	{field: "card_type", kind: kindText, keys: keys("supertype", "cardType", "card_type"),
		text: func(c *models.Card, v string) { c.CardType = v }},
	{field: "card_type_local", kind: kindText, keys: keys("supertypeJa", "supertype_ja", "cardTypeJa", "card_type_ja", "cardTypeLocal", "card_type_local"),
		text: func(c *models.Card, v string) { c.CardTypeLocal = v }},
	{field: "rarity", kind: kindText, keys: keys("rarity", "rarityName"),
		text: func(c *models.Card, v string) { c.Rarity = v }},
	{field: "artist", kind: kindText, keys: keys("artist", "illustrator"),
		text: func(c *models.Card, v string) { c.Artist = v }},
	{field: "hp", kind: kindInt, keys: keys("hp", "HP"),
		num: func(c *models.Card, v *int) { c.HP = v }},
	{field: "types", kind: kindList, keys: keys("types"),
		text: func(c *models.Card, v string) { c.Types = v }},
	{field: "types_local", kind: kindList, keys: keys("typesJa", "types_ja", "typesLocal", "types_local"),
		text: func(c *models.Card, v string) { c.TypesLocal = v }},
	{field: "subtypes", kind: kindList, keys: keys("subtypes"),
		text: func(c *models.Card, v string) { c.Subtypes = v }},
	{field: "subtypes_local", kind: kindList, keys: keys("subtypesJa", "subtypes_ja", "subtypesLocal", "subtypes_local"),
		text: func(c *models.Card, v string) { c.SubtypesLocal = v }},
	{field: "evolves_from", kind: kindText, keys: keys("evolvesFrom", "evolves_from"),
		text: func(c *models.Card, v string) { c.EvolvesFrom = v }},
	{field: "release_date", kind: kindText, keys: keys("releaseDate", "release_date", "set.releaseDate"),
		text: func(c *models.Card, v string) { c.ReleaseDate = v }},
	{field: "regulation", kind: kindText, keys: keys("regulationMark", "regulation", "regulation_mark"),
		text: func(c *models.Card, v string) { c.Regulation = v }},
	{field: "flavor_text", kind: kindText, keys: keys("flavorText", "flavor_text"),
		text: func(c *models.Card, v string) { c.FlavorText = v }},
	{field: "image_url", kind: kindText, keys: keys("images.small", "imageUrl", "image_url", "image"),
		text: func(c *models.Card, v string) { c.ImageURL = v }},
	{field: "image_url_large", kind: kindText, keys: keys("images.large", "imageUrlLarge", "image_url_large"),
		text: func(c *models.Card, v string) { c.ImageURLLarge = v }},
	{field: "abilities", kind: kindDocList, keys: keys("abilities"),
		doc: func(c *models.Card, v datatypes.JSON) { c.Abilities = v }},
	{field: "attacks", kind: kindDocList, keys: keys("attacks"),
		doc: func(c *models.Card, v datatypes.JSON) { c.Attacks = v }},
	{field: "weaknesses", kind: kindDocList, keys: keys("weaknesses"),
		doc: func(c *models.Card, v datatypes.JSON) { c.Weaknesses = v }},
	{field: "resistances", kind: kindDocList, keys: keys("resistances"),
		doc: func(c *models.Card, v datatypes.JSON) { c.Resistances = v }},
	{field: "retreat_cost", kind: kindDocList, keys: keys("retreatCost", "retreat_cost"),
		doc: func(c *models.Card, v datatypes.JSON) { c.RetreatCost = v }},
	{field: "rules", kind: kindDocList, keys: keys("rules"),
		doc: func(c *models.Card, v datatypes.JSON) { c.Rules = v }},
	{field: "national_pokedex_numbers", kind: kindDocList, keys: keys("nationalPokedexNumbers", "national_pokedex_numbers"),
		doc: func(c *models.Card, v datatypes.JSON) { c.NationalPokedexNumbers = v }},
	{field: "legalities", kind: kindDocMap, keys: keys("legalities"),
		doc: func(c *models.Card, v datatypes.JSON) { c.Legalities = v }},
}

// Normalized is one source record mapped onto the canonical shape. Set is
// non-nil when the source embedded a set object.
type Normalized struct {
	Card models.Card
	Set  *models.Set
}

var errNotObject = errors.New("record is not a JSON object")

// Normalize maps one raw JSON object onto the canonical card record. Missing
// or malformed optional fields are defaulted, never fatal; the only error is
// a record that is not a JSON object at all.
func Normalize(raw json.RawMessage) (*Normalized, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var src map[string]any
	if err := dec.Decode(&src); err != nil {
		return nil, fmt.Errorf("%w: %v", errNotObject, err)
	}
	if src == nil {
		return nil, errNotObject
	}
	return normalizeMap(src, raw), nil
}

func normalizeMap(src map[string]any, raw json.RawMessage) *Normalized {
	n := &Normalized{}
	card := &n.Card

	for _, rule := range cardRules {
		applyRule(card, src, rule)
	}

	if card.GameTitle == "" {
		card.GameTitle = models.DefaultGameTitle
	}
	card.SearchName = models.SearchKey(card.Name)
	card.Extra = datatypes.JSON(append([]byte(nil), bytes.TrimSpace(raw)...))

	n.Set = normalizeSet(src, card.GameTitle)
	if n.Set != nil {
		setID := n.Set.ID
		card.SetID = &setID
		if card.Expansion == "" {
			card.Expansion = setID
		}
	}
	return n
}

func applyRule(card *models.Card, src map[string]any, rule fieldRule) {
	v, ok := resolve(src, rule)
	switch rule.kind {
	case kindText, kindID, kindList:
		if ok {
			rule.text(card, v.(string))
		}
	case kindInt:
		if ok {
			n := v.(int)
			rule.num(card, &n)
		} else {
			rule.num(card, nil)
		}
	case kindDocList, kindDocMap:
		if ok {
			rule.doc(card, v.(datatypes.JSON))
		} else if rule.kind == kindDocList {
			rule.doc(card, emptyList)
		} else {
			rule.doc(card, emptyMap)
		}
	}
}

// resolve walks rule.keys in order and returns the first usable value,
// already converted for rule.kind.
func resolve(src map[string]any, rule fieldRule) (any, bool) {
	for _, key := range rule.keys {
		if anyPresent(src, key.unless) {
			continue
		}
		raw, present := lookup(src, key.path)
		if !present || raw == nil {
			continue
		}
		switch rule.kind {
		case kindText:
			if s, ok := asText(raw); ok {
				return s, true
			}
		case kindID:
			if s, ok := raw.(string); ok && strings.TrimSpace(s) != "" {
				return strings.TrimSpace(s), true
			}
		case kindList:
			if s, ok := asList(raw); ok {
				return s, true
			}
		case kindInt:
			// First present key decides; unparsable means null.
			n, ok := asInt(raw)
			return n, ok
		case kindDocList, kindDocMap:
			b, err := json.Marshal(raw)
			if err != nil {
				continue
			}
			return datatypes.JSON(b), true
		}
	}
	return nil, false
}

func anyPresent(src map[string]any, paths []string) bool {
	for _, p := range paths {
		if _, ok := lookup(src, p); ok {
			return true
		}
	}
	return false
}

// lookup follows a dotted path through nested objects.
func lookup(src map[string]any, path string) (any, bool) {
	var cur any = src
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = obj[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func asText(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case json.Number:
		return t.String(), true
	case bool:
		return strconv.FormatBool(t), true
	default:
		return "", false
	}
}

// asList joins sequences with models.ListDelimiter; strings pass through.
func asList(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		s := strings.TrimSpace(t)
		return s, s != ""
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := asText(item); ok {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return "", false
		}
		return strings.Join(parts, models.ListDelimiter), true
	default:
		return "", false
	}
}

func asInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		if f, err := t.Float64(); err == nil && f == math.Trunc(f) {
			return int(f), true
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(t)); err == nil {
			return n, true
		}
	case float64:
		if t == math.Trunc(t) {
			return int(t), true
		}
	}
	return 0, false
}

// normalizeSet builds the Set embedded in pokemontcg.io style payloads.
func normalizeSet(src map[string]any, gameTitle string) *models.Set {
	obj, ok := src["set"].(map[string]any)
	if !ok {
		return nil
	}
	id, ok := asText(obj["id"])
	if !ok {
		return nil
	}

	set := &models.Set{ID: id, GameTitle: gameTitle}
	set.Name, _ = asText(obj["name"])
	set.Series, _ = asText(obj["series"])
	set.ReleaseDate, _ = asText(obj["releaseDate"])
	set.Total, _ = asInt(obj["total"])
	set.PrintedTotal, _ = asInt(obj["printedTotal"])
	if images, ok := obj["images"].(map[string]any); ok {
		set.SymbolURL, _ = asText(images["symbol"])
		set.LogoURL, _ = asText(images["logo"])
	}
	return set
}

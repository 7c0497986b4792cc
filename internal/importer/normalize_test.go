package importer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustNormalize(t *testing.T, raw string) *Normalized {
	t.Helper()
	n, err := Normalize(json.RawMessage(raw))
	require.NoError(t, err)
	return n
}

func TestNormalizePokemonTCGPayload(t *testing.T) {
	n := mustNormalize(t, `{
		"id": "sv3pt5-25",
		"name": "Pikachu",
		"supertype": "Pokémon",
		"subtypes": ["Basic"],
		"hp": "60",
		"types": ["Lightning"],
		"number": "25",
		"artist": "Mitsuhiro Arita",
		"rarity": "Common",
		"regulationMark": "G",
		"attacks": [{"name": "Gnaw", "damage": "10"}],
		"legalities": {"standard": "Legal"},
		"images": {"small": "https://img/s.png", "large": "https://img/l.png"},
		"set": {"id": "sv3pt5", "name": "151", "series": "Scarlet & Violet", "total": 207, "releaseDate": "2023/09/22"}
	}`)

	c := n.Card
	require.NotNil(t, c.APIID)
	assert.Equal(t, "sv3pt5-25", *c.APIID)
	assert.Equal(t, "Pikachu", c.Name)
	assert.Equal(t, "Pokémon", c.CardType)
	assert.Equal(t, "Basic", c.Subtypes)
	assert.Equal(t, "Lightning", c.Types)
	require.NotNil(t, c.HP)
	assert.Equal(t, 60, *c.HP)
	assert.Equal(t, "25", c.CardNumber)
	assert.Equal(t, "sv3pt5", c.Expansion)
	assert.Equal(t, "pokemon", c.GameTitle)
	assert.Equal(t, "G", c.Regulation)
	assert.Equal(t, "https://img/s.png", c.ImageURL)
	assert.Equal(t, "https://img/l.png", c.ImageURLLarge)
	assert.Equal(t, "2023/09/22", c.ReleaseDate)
	assert.JSONEq(t, `[{"name":"Gnaw","damage":"10"}]`, string(c.Attacks))
	assert.JSONEq(t, `{"standard":"Legal"}`, string(c.Legalities))
	assert.JSONEq(t, `[]`, string(c.Abilities))
	assert.Equal(t, "pikachu", c.SearchName)

	require.NotNil(t, n.Set)
	assert.Equal(t, "sv3pt5", n.Set.ID)
	assert.Equal(t, "151", n.Set.Name)
	assert.Equal(t, 207, n.Set.Total)
	require.NotNil(t, c.SetID)
	assert.Equal(t, "sv3pt5", *c.SetID)
}

func TestNormalizeKeyPriority(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		check func(t *testing.T, n *Normalized)
	}{
		{
			name: "externalId beats id",
			raw:  `{"name":"A","externalId":"ext-1","id":"raw-1"}`,
			check: func(t *testing.T, n *Normalized) {
				require.NotNil(t, n.Card.APIID)
				assert.Equal(t, "ext-1", *n.Card.APIID)
			},
		},
		{
			name: "legacy id is not an api id when api_id is present",
			raw:  `{"name":"A","id":"0b7c-uuid","api_id":null,"card_number":"1","expansion":"base1"}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Nil(t, n.Card.APIID)
			},
		},
		{
			name: "numeric id is ignored",
			raw:  `{"name":"A","id":42}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Nil(t, n.Card.APIID)
			},
		},
		{
			name: "supertype beats cardType",
			raw:  `{"name":"A","supertype":"Trainer","cardType":"Pokémon"}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Equal(t, "Trainer", n.Card.CardType)
			},
		},
		{
			name: "number beats localId",
			raw:  `{"name":"A","number":"12","localId":"099"}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Equal(t, "12", n.Card.CardNumber)
			},
		},
		{
			name: "explicit expansion beats set id",
			raw:  `{"name":"A","expansion":"SV2a","set":{"id":"sv3pt5"}}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Equal(t, "SV2a", n.Card.Expansion)
				require.NotNil(t, n.Set)
				assert.Equal(t, "sv3pt5", n.Set.ID)
			},
		},
		{
			name: "localized fields",
			raw:  `{"name":"Pikachu","nameJa":"ピカチュウ","typesJa":["雷"],"cardTypeJa":"ポケモン"}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Equal(t, "ピカチュウ", n.Card.NameLocal)
				assert.Equal(t, "雷", n.Card.TypesLocal)
				assert.Equal(t, "ポケモン", n.Card.CardTypeLocal)
			},
		},
		{
			name: "game title is lowercased",
			raw:  `{"name":"A","game":"Lorcana"}`,
			check: func(t *testing.T, n *Normalized) {
				assert.Equal(t, "lorcana", n.Card.GameTitle)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, mustNormalize(t, tt.raw))
		})
	}
}

func TestNormalizeListCoercion(t *testing.T) {
	fromArray := mustNormalize(t, `{"name":"A","types":["Fire","Flying"]}`)
	fromString := mustNormalize(t, `{"name":"A","types":"Fire, Flying"}`)
	absent := mustNormalize(t, `{"name":"A"}`)

	assert.Equal(t, "Fire, Flying", fromArray.Card.Types)
	assert.Equal(t, "Fire, Flying", fromString.Card.Types)
	assert.Equal(t, "", absent.Card.Types)
}

func TestNormalizeHP(t *testing.T) {
	tests := []struct {
		raw  string
		want *int
	}{
		{`{"name":"A","hp":"120"}`, intPtr(120)},
		{`{"name":"A","hp":90}`, intPtr(90)},
		{`{"name":"A","hp":"N/A"}`, nil},
		{`{"name":"A","hp":null}`, nil},
		{`{"name":"A"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			assert.Equal(t, tt.want, mustNormalize(t, tt.raw).Card.HP)
		})
	}
}

func TestNormalizeExtraIsVerbatimSource(t *testing.T) {
	raw := `{"name":"A","number":"1","tcgplayer":{"url":"https://x"},"unknownField":[1,2,3]}`
	n := mustNormalize(t, raw)

	var extra map[string]any
	require.NoError(t, json.Unmarshal(n.Card.Extra, &extra))
	var src map[string]any
	require.NoError(t, json.Unmarshal([]byte(raw), &src))

	for k, v := range src {
		assert.Equal(t, v, extra[k], "extra lost key %s", k)
	}
}

func TestNormalizeRejectsNonObjects(t *testing.T) {
	for _, raw := range []string{`[1,2]`, `"card"`, `null`, `{`} {
		_, err := Normalize(json.RawMessage(raw))
		assert.Error(t, err, raw)
	}
}

func intPtr(v int) *int { return &v }

package catalog

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cbodonnell/menagerie/pkg/game/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `
shops:
  - id: general
    name: General Store
    stock:
      - item: herb
        price: 5
        stock: 40
trades:
  - id: daily-herbs
    npc: herbalist
    shop: general
    repeatability: daily
    required_items:
      - item: herb
        quantity: 10
    offered_gold: 80
    offered_items:
      - item: rare_seed
        quantity: 1
        drop_chance: 0.25
  - id: scrap
    repeatability: repeatable
    cooldown: 10m
    offered_gold: 15
    requirements:
      min_level: 3
      quest: harbor
`

func TestParse(t *testing.T) {
	c, err := Parse([]byte(sample))
	require.NoError(t, err)

	shop, ok := c.Shop("general")
	require.True(t, ok)
	assert.Equal(t, "General Store", shop.Name)
	assert.Equal(t, []types.ShopItem{{ItemID: "herb", Price: 5, Stock: 40}}, shop.Stock)

	trade, ok := c.Trade("daily-herbs")
	require.True(t, ok)
	assert.Equal(t, types.RepeatDaily, trade.Repeatability)
	assert.Equal(t, []types.TradeItem{{ItemID: "herb", Quantity: 10}}, trade.RequiredItems)
	assert.Equal(t, []types.TradeItem{{ItemID: "rare_seed", Quantity: 1, DropChance: 0.25}}, trade.OfferedItems)
	assert.Equal(t, int64(80), trade.OfferedGold)

	scrap, ok := c.Trade("scrap")
	require.True(t, ok)
	assert.Equal(t, 10*time.Minute, scrap.Cooldown)
	assert.Equal(t, types.TradeRequirements{MinLevel: 3, Quest: "harbor"}, scrap.Requirements)

	_, ok = c.Trade("missing")
	assert.False(t, ok)

	assert.Len(t, c.Trades("general"), 1)
	assert.Empty(t, c.Trades("smith"))
}

func TestParse_Invalid(t *testing.T) {
	testCases := map[string]string{
		"not yaml":            "shops: [",
		"unknown repeat":      "trades:\n  - id: t\n    repeatability: sometimes\n",
		"missing repeat":      "trades:\n  - id: t\n",
		"drop chance above 1": "trades:\n  - id: t\n    repeatability: repeatable\n    offered_items:\n      - item: x\n        quantity: 1\n        drop_chance: 1.5\n",
		"negative drop":       "trades:\n  - id: t\n    repeatability: repeatable\n    offered_items:\n      - item: x\n        quantity: 1\n        drop_chance: -0.1\n",
		"zero quantity":       "trades:\n  - id: t\n    repeatability: repeatable\n    required_items:\n      - item: x\n        quantity: 0\n",
		"duplicate trade":     "trades:\n  - id: t\n    repeatability: repeatable\n  - id: t\n    repeatability: daily\n",
		"unknown shop":        "trades:\n  - id: t\n    shop: nowhere\n    repeatability: repeatable\n",
		"shop without id":     "shops:\n  - name: Nameless\n",
	}
	for name, data := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(data))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	c, err := Load(path)
	require.NoError(t, err)
	_, ok := c.Trade("scrap")
	assert.True(t, ok)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_BundledCatalog(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "configs", "catalog.yaml"))
	require.NoError(t, err)
	for _, id := range []string{"ferry-pass", "daily-herbs", "ore-exchange", "scrap-for-coin"} {
		_, ok := c.Trade(id)
		assert.True(t, ok, "missing trade %s", id)
	}
}

// Package catalog loads the static shop and trade definitions.
package catalog

import (
	"fmt"
	"os"
	"sort"

	"github.com/cbodonnell/menagerie/pkg/game/types"
	"gopkg.in/yaml.v3"
)

// Shop is a static shop definition.
type Shop struct {
	ID    string           `yaml:"id" json:"id"`
	Name  string           `yaml:"name" json:"name"`
	Stock []types.ShopItem `yaml:"stock,omitempty" json:"stock,omitempty"`
}

type file struct {
	Shops  []Shop        `yaml:"shops"`
	Trades []types.Trade `yaml:"trades"`
}

// Catalog holds shops and trades keyed by id. It is immutable once loaded.
type Catalog struct {
	shops  map[string]Shop
	trades map[string]types.Trade
}

// Empty returns a catalog without shops or trades.
func Empty() *Catalog {
	return &Catalog{
		shops:  map[string]Shop{},
		trades: map[string]types.Trade{},
	}
}

// Load reads and parses the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse parses a YAML catalog.
func Parse(data []byte) (*Catalog, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	c := Empty()
	for _, shop := range f.Shops {
		if shop.ID == "" {
			return nil, fmt.Errorf("shop without id")
		}
		if _, dup := c.shops[shop.ID]; dup {
			return nil, fmt.Errorf("duplicate shop %s", shop.ID)
		}
		for _, item := range shop.Stock {
			if item.ItemID == "" || item.Price < 0 || item.Stock < 0 {
				return nil, fmt.Errorf("shop %s has an invalid stock entry", shop.ID)
			}
		}
		c.shops[shop.ID] = shop
	}
	for _, trade := range f.Trades {
		if err := validateTrade(trade); err != nil {
			return nil, err
		}
		if _, dup := c.trades[trade.ID]; dup {
			return nil, fmt.Errorf("duplicate trade %s", trade.ID)
		}
		if trade.ShopID != "" {
			if _, ok := c.shops[trade.ShopID]; !ok {
				return nil, fmt.Errorf("trade %s references unknown shop %s", trade.ID, trade.ShopID)
			}
		}
		c.trades[trade.ID] = trade
	}
	return c, nil
}

func validateTrade(trade types.Trade) error {
	if trade.ID == "" {
		return fmt.Errorf("trade without id")
	}
	if !trade.Repeatability.Valid() {
		return fmt.Errorf("trade %s has unknown repeatability %q", trade.ID, trade.Repeatability)
	}
	if trade.Cooldown < 0 || trade.RequiredGold < 0 || trade.OfferedGold < 0 {
		return fmt.Errorf("trade %s has a negative amount", trade.ID)
	}
	for _, item := range append(append([]types.TradeItem{}, trade.RequiredItems...), trade.OfferedItems...) {
		if item.ItemID == "" || item.Quantity <= 0 {
			return fmt.Errorf("trade %s has an invalid item entry", trade.ID)
		}
		if item.DropChance < 0 || item.DropChance > 1 {
			return fmt.Errorf("trade %s: drop chance %v of %s is outside [0, 1]", trade.ID, item.DropChance, item.ItemID)
		}
	}
	return nil
}

func (c *Catalog) Trade(id string) (types.Trade, bool) {
	trade, ok := c.trades[id]
	return trade, ok
}

func (c *Catalog) Shop(id string) (Shop, bool) {
	shop, ok := c.shops[id]
	return shop, ok
}

// Trades returns the trades offered at a shop.
func (c *Catalog) Trades(shopID string) []types.Trade {
	trades := []types.Trade{}
	for _, trade := range c.trades {
		if trade.ShopID == shopID {
			trades = append(trades, trade)
		}
	}
	sort.Slice(trades, func(i, j int) bool { return trades[i].ID < trades[j].ID })
	return trades
}

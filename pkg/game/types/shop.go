package types

type TransactionDirection string

const (
	TransactionBuy   TransactionDirection = "buy"
	TransactionSell  TransactionDirection = "sell"
	TransactionTrade TransactionDirection = "trade"
)

// Transaction is a recorded exchange. It is never modified once recorded.
type Transaction struct {
	ShopID     string               `json:"shopId"`
	ItemID     string               `json:"itemId"`
	Quantity   int                  `json:"quantity"`
	UnitValue  int64                `json:"unitValue"`
	TotalValue int64                `json:"totalValue"`
	Direction  TransactionDirection `json:"direction"`
	Timestamp  int64                `json:"timestamp"`
}

// ShopItem is an entry of a shop's cached inventory.
type ShopItem struct {
	ItemID string `yaml:"item" json:"itemId"`
	Price  int64  `yaml:"price" json:"price"`
	Stock  int    `yaml:"stock" json:"stock"`
}

type ShopState struct {
	Discovered  StringSet             `json:"discovered"`
	Unlocked    StringSet             `json:"unlocked"`
	Inventories map[string][]ShopItem `json:"inventories"`
	// History holds the most recent transactions, newest first.
	History         []Transaction `json:"history"`
	CompletedTrades StringSet     `json:"completedTrades"`
	// Cooldowns maps trade ids to the unix millisecond time the trade is
	// available again.
	Cooldowns              map[string]int64 `json:"cooldowns"`
	ShopTutorialCompleted  bool             `json:"shopTutorialCompleted"`
	TradeTutorialCompleted bool             `json:"tradeTutorialCompleted"`
}

// DefaultShopState returns the shop state of a fresh game.
func DefaultShopState() *ShopState {
	return &ShopState{
		Discovered:      StringSet{},
		Unlocked:        StringSet{},
		Inventories:     make(map[string][]ShopItem),
		History:         []Transaction{},
		CompletedTrades: StringSet{},
		Cooldowns:       make(map[string]int64),
	}
}

// Clone returns a shallow copy. Slices and maps are shared and must be
// replaced, not mutated, by the caller.
func (s *ShopState) Clone() *ShopState {
	c := *s
	return &c
}

// Copy returns a deep copy of the shop state.
func (s *ShopState) Copy() *ShopState {
	if s == nil {
		return nil
	}
	c := s.Clone()
	c.Discovered = s.Discovered.Copy()
	c.Unlocked = s.Unlocked.Copy()
	c.CompletedTrades = s.CompletedTrades.Copy()
	if s.History != nil {
		c.History = append([]Transaction{}, s.History...)
	}
	if s.Inventories != nil {
		c.Inventories = make(map[string][]ShopItem, len(s.Inventories))
		for id, items := range s.Inventories {
			c.Inventories[id] = append([]ShopItem{}, items...)
		}
	}
	if s.Cooldowns != nil {
		c.Cooldowns = make(map[string]int64, len(s.Cooldowns))
		for id, expiry := range s.Cooldowns {
			c.Cooldowns[id] = expiry
		}
	}
	return c
}

// IsUnlocked reports whether the shop has been unlocked.
func (s *ShopState) IsUnlocked(shopID string) bool {
	return s != nil && s.Unlocked.Contains(shopID)
}

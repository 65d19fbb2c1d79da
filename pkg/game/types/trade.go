package types

import "time"

type Repeatability string

const (
	RepeatOneTime    Repeatability = "one_time"
	RepeatRepeatable Repeatability = "repeatable"
	RepeatDaily      Repeatability = "daily"
	RepeatWeekly     Repeatability = "weekly"
)

func (r Repeatability) Valid() bool {
	switch r {
	case RepeatOneTime, RepeatRepeatable, RepeatDaily, RepeatWeekly:
		return true
	}
	return false
}

type TradeItem struct {
	ItemID   string `yaml:"item" json:"itemId"`
	Quantity int    `yaml:"quantity" json:"quantity"`
	// DropChance is the probability in (0, 1] that an offered item is granted.
	// Ignored for required items.
	DropChance float64 `yaml:"drop_chance,omitempty" json:"dropChance,omitempty"`
}

// TradeRequirements gate when a trade may be executed. Zero values are
// not checked.
type TradeRequirements struct {
	MinLevel  int    `yaml:"min_level,omitempty" json:"minLevel,omitempty"`
	Quest     string `yaml:"quest,omitempty" json:"quest,omitempty"`
	Area      string `yaml:"area,omitempty" json:"area,omitempty"`
	StoryFlag string `yaml:"story_flag,omitempty" json:"storyFlag,omitempty"`
}

// Trade is a static NPC trade definition supplied by the catalog.
type Trade struct {
	ID            string            `yaml:"id" json:"id"`
	NPC           string            `yaml:"npc,omitempty" json:"npc,omitempty"`
	ShopID        string            `yaml:"shop,omitempty" json:"shopId,omitempty"`
	RequiredItems []TradeItem       `yaml:"required_items,omitempty" json:"requiredItems,omitempty"`
	RequiredGold  int64             `yaml:"required_gold,omitempty" json:"requiredGold,omitempty"`
	OfferedItems  []TradeItem       `yaml:"offered_items,omitempty" json:"offeredItems,omitempty"`
	OfferedGold   int64             `yaml:"offered_gold,omitempty" json:"offeredGold,omitempty"`
	Repeatability Repeatability     `yaml:"repeatability" json:"repeatability"`
	Cooldown      time.Duration     `yaml:"cooldown,omitempty" json:"cooldown,omitempty"`
	Requirements  TradeRequirements `yaml:"requirements,omitempty" json:"requirements,omitempty"`
}

// QuestFlag returns the story flag recording completion of a quest.
func QuestFlag(quest string) string {
	return "quest:" + quest
}

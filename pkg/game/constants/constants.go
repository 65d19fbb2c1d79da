package constants

import "time"

const (
	// GoldMax is the maximum amount of gold a player can hold
	GoldMax int64 = 999999
	// StartingGold is the gold a fresh game begins with
	StartingGold int64 = 500
	// StartingLevel is the player level a fresh game begins with
	StartingLevel int = 1
	// ExperiencePerLevel is the experience needed to advance one level
	ExperiencePerLevel int64 = 1000

	// InventoryCapacity is the maximum number of item stacks in the inventory
	InventoryCapacity int = 30
	// MaxStackSize is the maximum quantity a single item stack can hold
	MaxStackSize int = 99

	// TransactionHistoryLimit is the number of transactions kept in shop history
	TransactionHistoryLimit int = 10

	// BreedingBaseCost is the gold cost of breeding two generation 0 creatures
	BreedingBaseCost int64 = 300
	// BreedingGenerationSurcharge is added to the cost per generation of the
	// oldest-lineage parent
	BreedingGenerationSurcharge int64 = 100
	// ExhaustionPenaltyPerLevel is the fraction of base stats lost per exhaustion level
	ExhaustionPenaltyPerLevel float64 = 0.2
	// MinExhaustionMultiplier is the floor applied to the exhaustion stat multiplier
	MinExhaustionMultiplier float64 = 0.2

	// DailyCooldown is the cooldown used by daily trades without an explicit cooldown
	DailyCooldown = 24 * time.Hour
	// WeeklyCooldown is the cooldown used by weekly trades without an explicit cooldown
	WeeklyCooldown = 7 * 24 * time.Hour

	// AutosaveDelay is the default debounce window for autosave
	AutosaveDelay = 500 * time.Millisecond
)

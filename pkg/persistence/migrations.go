package persistence

import (
	"encoding/json"
	"fmt"

	"github.com/cbodonnell/menagerie/pkg/game/types"
)

// document is a decoded payload that migrations operate on.
type document map[string]any

// migration upgrades a payload from one version to the next.
type migration func(doc document) error

// migrations[v] upgrades a version v payload to version v+1. Every version
// below CurrentVersion has exactly one entry.
var migrations = map[int]migration{
	1: addShops,
	2: addExhaustion,
}

// migrate applies every migration from version up to CurrentVersion, in order.
func migrate(doc document, version int) error {
	for v := version; v < CurrentVersion; v++ {
		step, ok := migrations[v]
		if !ok {
			return fmt.Errorf("no migration from version %d", v)
		}
		if err := step(doc); err != nil {
			return fmt.Errorf("migration from version %d: %w", v, err)
		}
	}
	return nil
}

// addShops fills in the shop state introduced in version 2. Keys already
// present are kept.
func addShops(doc document) error {
	defaults, err := toDocument(types.DefaultShopState())
	if err != nil {
		return err
	}
	shops, ok := doc["shops"].(map[string]any)
	if !ok {
		doc["shops"] = map[string]any(defaults)
		return nil
	}
	for key, value := range defaults {
		if _, present := shops[key]; !present {
			shops[key] = value
		}
	}
	return nil
}

// addExhaustion introduces base stats, exhaustion levels and the breeding
// counter from version 3. Older creatures have never been exhausted, so their
// stats are their base stats.
func addExhaustion(doc document) error {
	creatures, ok := doc["creatures"].(map[string]any)
	if !ok {
		return nil
	}
	if _, present := creatures["breedingAttempts"]; !present {
		creatures["breedingAttempts"] = 0
	}
	entries, ok := creatures["entries"].(map[string]any)
	if !ok {
		return nil
	}
	for id, raw := range entries {
		creature, ok := raw.(map[string]any)
		if !ok {
			return fmt.Errorf("creature %s is not an object", id)
		}
		if _, present := creature["exhaustionLevel"]; !present {
			creature["exhaustionLevel"] = 0
		}
		if _, present := creature["baseStats"]; !present {
			creature["baseStats"] = creature["stats"]
		}
	}
	return nil
}

func toDocument(v any) (document, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var doc document
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

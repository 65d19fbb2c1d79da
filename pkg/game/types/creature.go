package types

// Creature is a creature owned by the player.
type Creature struct {
	ID         string   `json:"id"`
	Species    string   `json:"species"`
	Generation int      `json:"generation"`
	ParentIDs  []string `json:"parentIds,omitempty"`
	// BaseStats are the stats before exhaustion is applied.
	BaseStats map[string]int `json:"baseStats"`
	// Stats are the effective stats after exhaustion.
	Stats           map[string]int `json:"stats"`
	ExhaustionLevel int            `json:"exhaustionLevel"`
	BornAt          int64          `json:"bornAt,omitempty"`
}

// Copy returns a deep copy of the creature.
func (c *Creature) Copy() *Creature {
	n := *c
	if c.ParentIDs != nil {
		n.ParentIDs = append([]string(nil), c.ParentIDs...)
	}
	n.BaseStats = copyStats(c.BaseStats)
	n.Stats = copyStats(c.Stats)
	return &n
}

func copyStats(stats map[string]int) map[string]int {
	if stats == nil {
		return nil
	}
	c := make(map[string]int, len(stats))
	for k, v := range stats {
		c[k] = v
	}
	return c
}

// CreatureRoster holds every creature the player owns.
type CreatureRoster struct {
	Entries map[string]*Creature `json:"entries"`
	// LastUpdated is the time, in unix milliseconds, of the last roster write.
	// It strictly increases on every write and is what autosave watches.
	LastUpdated int64 `json:"lastUpdated"`
	// BreedingAttempts counts successful breedings.
	BreedingAttempts int `json:"breedingAttempts"`
}

func NewCreatureRoster() *CreatureRoster {
	return &CreatureRoster{
		Entries: make(map[string]*Creature),
	}
}

func (r *CreatureRoster) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Entries)
}

func (r *CreatureRoster) Get(id string) (*Creature, bool) {
	if r == nil {
		return nil, false
	}
	c, ok := r.Entries[id]
	return c, ok
}

// Clone returns a roster with a new entries map pointing at the same creatures.
func (r *CreatureRoster) Clone() *CreatureRoster {
	c := &CreatureRoster{
		Entries:          make(map[string]*Creature, len(r.Entries)+1),
		LastUpdated:      r.LastUpdated,
		BreedingAttempts: r.BreedingAttempts,
	}
	for id, creature := range r.Entries {
		c.Entries[id] = creature
	}
	return c
}

// Copy returns a deep copy of the roster.
func (r *CreatureRoster) Copy() *CreatureRoster {
	if r == nil {
		return nil
	}
	c := r.Clone()
	for id, creature := range c.Entries {
		c.Entries[id] = creature.Copy()
	}
	return c
}

// Package types defines the shared data structures for the Wayfarer engine.
// This package contains type definitions and the closed enums they use;
// behavior lives in the engine packages.
package types

// Handle is a stable, never-reused identifier for a spawned entity or pet.
// Zero means "none".
type Handle uint64

// Intent is the parsed representation of a player command.
type Intent struct {
	Verb   string
	Object string // optional
	Target string // optional
}

// Event is a narrative event emitted after a state change.
type Event struct {
	Type string         `json:"type"`
	Text string         `json:"text"`
	Data map[string]any `json:"data,omitempty"`
}

// Result is the output of a single session action.
type Result struct {
	Events []Event
	Output []string
}

// StatBonus is an additive stat record used by titles and equipment.
type StatBonus struct {
	MaxHP   int `json:"max_hp,omitempty"`
	MaxMP   int `json:"max_mp,omitempty"`
	Attack  int `json:"attack,omitempty"`
	Defense int `json:"defense,omitempty"`
	Speed   int `json:"speed,omitempty"`
}

// ItemEffect is the single effect a consumable applies when used.
type ItemEffect struct {
	Kind   ItemEffectKind `json:"kind"`
	Amount int            `json:"amount"`
}

// Item is an inventory record. Records with the same ID are coalesced.
type Item struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Category    ItemCategory `json:"category"`
	Rarity      Rarity       `json:"rarity"`
	Quantity    int          `json:"quantity"`
	Slot        EquipSlot    `json:"slot,omitempty"`
	Bonus       StatBonus    `json:"bonus,omitempty"`
	Effect      *ItemEffect  `json:"effect,omitempty"`
	Description string       `json:"description,omitempty"`
}

// LootEntry is one independently rolled row of a loot table.
type LootEntry struct {
	ItemID string  `json:"item_id"`
	Chance float64 `json:"chance"` // 0..1
	Min    int     `json:"min"`
	Max    int     `json:"max"`
}

// Entity is a spawned monster, NPC, boss, or ground item.
type Entity struct {
	Handle     Handle      `json:"handle"`
	TemplateID string      `json:"template_id"`
	Name       string      `json:"name"`
	Kind       EntityKind  `json:"kind"`
	Level      int         `json:"level"`
	HP         int         `json:"hp"`
	MaxHP      int         `json:"max_hp"`
	Attack     int         `json:"attack"`
	Defense    int         `json:"defense"`
	Speed      int         `json:"speed"`
	ExpReward  int         `json:"exp_reward,omitempty"`
	GoldReward int         `json:"gold_reward,omitempty"`
	Loot       []LootEntry `json:"loot,omitempty"`
	Dialogue   []string    `json:"dialogue,omitempty"`
	QuestIDs   []string    `json:"quest_ids,omitempty"`
	Capturable bool        `json:"capturable,omitempty"`
	ItemID     string      `json:"item_id,omitempty"`  // ground items only
	Quantity   int         `json:"quantity,omitempty"` // ground items only
	Location   string      `json:"location"`
}

// Pet is a captured companion.
type Pet struct {
	ID         Handle `json:"id"`
	TemplateID string `json:"template_id"`
	Name       string `json:"name"`
	Level      int    `json:"level"`
	HP         int    `json:"hp"`
	MaxHP      int    `json:"max_hp"`
	Attack     int    `json:"attack"`
	Defense    int    `json:"defense"`
	Speed      int    `json:"speed"`
}

// Objective is one measurable sub-goal of a quest.
type Objective struct {
	Kind     ObjectiveKind `json:"kind"`
	Target   string        `json:"target"`
	Required int           `json:"required"`
	Current  int           `json:"current"`
}

// QuestReward is granted on turn-in.
type QuestReward struct {
	Exp     int      `json:"exp,omitempty"`
	Gold    int      `json:"gold,omitempty"`
	Items   []string `json:"items,omitempty"`
	TitleID string   `json:"title_id,omitempty"`
}

// Quest tracks objectives toward a reward.
type Quest struct {
	ID          string      `json:"id"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Giver       string      `json:"giver,omitempty"`
	Objectives  []Objective `json:"objectives"`
	Status      QuestStatus `json:"status"`
	Reward      QuestReward `json:"reward"`
}

// Progress is the sum of all objective counts. It is always derived,
// never stored.
func (q Quest) Progress() int {
	total := 0
	for _, o := range q.Objectives {
		total += o.Current
	}
	return total
}

// Total is the sum of all objective requirements.
func (q Quest) Total() int {
	total := 0
	for _, o := range q.Objectives {
		total += o.Required
	}
	return total
}

// Achievement is a one-shot unlock with an optional reward title.
type Achievement struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Trigger     AchievementTrigger `json:"trigger"`
	Threshold   int                `json:"threshold,omitempty"`
	RewardTitle string             `json:"reward_title,omitempty"`
	Unlocked    bool               `json:"unlocked"`
}

// Title carries an additive stat bonus while equipped.
type Title struct {
	ID    string    `json:"id"`
	Name  string    `json:"name"`
	Bonus StatBonus `json:"bonus"`
}

// PlayerStats is the player's mutable character record.
type PlayerStats struct {
	Name           string             `json:"name"`
	HP             int                `json:"hp"`
	MaxHP          int                `json:"max_hp"`
	MP             int                `json:"mp"`
	MaxMP          int                `json:"max_mp"`
	Level          int                `json:"level"`
	Exp            int                `json:"exp"`
	MaxExp         int                `json:"max_exp"`
	Attack         int                `json:"attack"`
	Defense        int                `json:"defense"`
	Speed          int                `json:"speed"`
	Gold           int                `json:"gold"`
	Reputation     int                `json:"reputation"`
	LocationID     string             `json:"location_id"`
	LocationName   string             `json:"location_name"`
	Inventory      []Item             `json:"inventory"`
	Equipment      map[EquipSlot]Item `json:"equipment"`
	Pets           []Pet              `json:"pets"`
	ActivePet      Handle             `json:"active_pet,omitempty"`
	Achievements   []Achievement      `json:"achievements"`
	UnlockedTitles []string           `json:"unlocked_titles"`
	ActiveTitle    string             `json:"active_title,omitempty"`
	Victories      int                `json:"victories"`
}

// CombatState is the transient per-encounter record.
type CombatState struct {
	Phase           CombatPhase `json:"phase"`
	Tick            int         `json:"tick"`
	Round           int         `json:"round"`
	EnemyHandle     Handle      `json:"enemy_handle"`
	EnemyName       string      `json:"enemy_name"`
	PlayerAP        float64     `json:"player_ap"`
	PetAP           float64     `json:"pet_ap"`
	EnemyAP         float64     `json:"enemy_ap"`
	Turn            Actor       `json:"turn"`
	PlayerHP        int         `json:"player_hp"`
	PlayerMaxHP     int         `json:"player_max_hp"`
	PlayerMP        int         `json:"player_mp"`
	PetID           Handle      `json:"pet_id,omitempty"`
	PetName         string      `json:"pet_name,omitempty"`
	PetHP           int         `json:"pet_hp"`
	PetMaxHP        int         `json:"pet_max_hp"`
	EnemyHP         int         `json:"enemy_hp"`
	EnemyMaxHP      int         `json:"enemy_max_hp"`
	PlayerDefending bool        `json:"player_defending,omitempty"`
	PetDefending    bool        `json:"pet_defending,omitempty"`
	CaptureAt       int         `json:"capture_at,omitempty"` // tick at which a pending capture resolves; 0 = none
	Outcome         Outcome     `json:"outcome,omitempty"`
	Log             []string    `json:"log,omitempty"`
}

// Exit is a directed connection out of a location.
type Exit struct {
	Direction Direction `json:"direction"`
	TargetID  string    `json:"target_id"`
	Label     string    `json:"label"`
	Command   string    `json:"command"`
}

// Spawn is a location spawn-table row.
type Spawn struct {
	TemplateID string  `json:"template_id"`
	Chance     float64 `json:"chance"`
}

// LocationRecord is a discovered location's full record.
type LocationRecord struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Level       int      `json:"level,omitempty"`
	Exits       []Exit   `json:"exits"`
	Spawns      []Spawn  `json:"spawns,omitempty"`
	Items       []string `json:"items,omitempty"`
	NPCs        []string `json:"npcs,omitempty"`
}

// StatsDelta is an additive change to the player record, as returned by
// the narrative service. Exp is routed through leveling, not added raw.
type StatsDelta struct {
	HP          int      `json:"hp,omitempty"`
	MP          int      `json:"mp,omitempty"`
	Exp         int      `json:"exp,omitempty"`
	Gold        int      `json:"gold,omitempty"`
	Reputation  int      `json:"reputation,omitempty"`
	Items       []Item   `json:"items,omitempty"`
	RemoveItems []string `json:"remove_items,omitempty"`
}

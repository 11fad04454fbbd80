package types

// EntityKind is the closed set of entity variants.
type EntityKind string

const (
	EntityMonster EntityKind = "monster"
	EntityNPC     EntityKind = "npc"
	EntityBoss    EntityKind = "boss"
	EntityItem    EntityKind = "item"
)

// Valid reports whether k is a known variant.
func (k EntityKind) Valid() bool {
	switch k {
	case EntityMonster, EntityNPC, EntityBoss, EntityItem:
		return true
	}
	return false
}

// Hostile reports whether entities of this kind can be fought.
func (k EntityKind) Hostile() bool {
	switch k {
	case EntityMonster, EntityBoss:
		return true
	case EntityNPC, EntityItem:
		return false
	}
	return false
}

// ItemCategory is the closed set of item variants.
type ItemCategory string

const (
	ItemConsumable ItemCategory = "consumable"
	ItemEquipment  ItemCategory = "equipment"
	ItemMaterial   ItemCategory = "material"
	ItemQuest      ItemCategory = "quest"
)

// Valid reports whether c is a known variant.
func (c ItemCategory) Valid() bool {
	switch c {
	case ItemConsumable, ItemEquipment, ItemMaterial, ItemQuest:
		return true
	}
	return false
}

// Rarity is an item rarity tier.
type Rarity string

const (
	RarityCommon    Rarity = "common"
	RarityUncommon  Rarity = "uncommon"
	RarityRare      Rarity = "rare"
	RarityEpic      Rarity = "epic"
	RarityLegendary Rarity = "legendary"
)

// EquipSlot names an equipment slot.
type EquipSlot string

const (
	SlotWeapon    EquipSlot = "weapon"
	SlotArmor     EquipSlot = "armor"
	SlotAccessory EquipSlot = "accessory"
)

// Valid reports whether s is a known slot.
func (s EquipSlot) Valid() bool {
	switch s {
	case SlotWeapon, SlotArmor, SlotAccessory:
		return true
	}
	return false
}

// ItemEffectKind is the closed set of consumable effects.
type ItemEffectKind string

const (
	EffectHeal      ItemEffectKind = "heal"
	EffectRestoreMP ItemEffectKind = "restore_mp"
)

// ObjectiveKind is the closed set of quest objective variants.
type ObjectiveKind string

const (
	ObjectiveKill    ObjectiveKind = "kill"
	ObjectiveCollect ObjectiveKind = "collect"
	ObjectiveTalk    ObjectiveKind = "talk"
	ObjectiveExplore ObjectiveKind = "explore"
)

// Valid reports whether k is a known variant.
func (k ObjectiveKind) Valid() bool {
	switch k {
	case ObjectiveKill, ObjectiveCollect, ObjectiveTalk, ObjectiveExplore:
		return true
	}
	return false
}

// QuestStatus is a quest's lifecycle state.
type QuestStatus string

const (
	QuestActive      QuestStatus = "active"
	QuestCompletable QuestStatus = "completable"
	QuestTurnedIn    QuestStatus = "turned_in"
)

// AchievementTrigger is the closed set of achievement predicates.
type AchievementTrigger string

const (
	TriggerGoldAtLeast   AchievementTrigger = "gold_at_least"
	TriggerPetsAtLeast   AchievementTrigger = "pets_at_least"
	TriggerFirstVictory  AchievementTrigger = "first_victory"
	TriggerLowHPSurvival AchievementTrigger = "low_hp_survival"
	TriggerLevelAtLeast  AchievementTrigger = "level_at_least"
)

// Valid reports whether t is a known trigger.
func (t AchievementTrigger) Valid() bool {
	switch t {
	case TriggerGoldAtLeast, TriggerPetsAtLeast, TriggerFirstVictory,
		TriggerLowHPSurvival, TriggerLevelAtLeast:
		return true
	}
	return false
}

// Direction is a cardinal, diagonal, or vertical exit direction.
type Direction string

const (
	North     Direction = "north"
	South     Direction = "south"
	East      Direction = "east"
	West      Direction = "west"
	Northeast Direction = "northeast"
	Northwest Direction = "northwest"
	Southeast Direction = "southeast"
	Southwest Direction = "southwest"
	Up        Direction = "up"
	Down      Direction = "down"
)

// CombatPhase is the encounter state machine position.
type CombatPhase string

const (
	PhaseIdle   CombatPhase = "idle"
	PhaseActive CombatPhase = "active"
	PhaseEnding CombatPhase = "ending"
	PhaseClosed CombatPhase = "closed"
)

// Actor identifies a combat participant.
type Actor string

const (
	ActorNone   Actor = ""
	ActorPlayer Actor = "player"
	ActorPet    Actor = "pet"
	ActorEnemy  Actor = "enemy"
)

// Outcome is how an encounter ended.
type Outcome string

const (
	OutcomeNone     Outcome = ""
	OutcomeVictory  Outcome = "victory"
	OutcomeDefeat   Outcome = "defeat"
	OutcomeEscaped  Outcome = "escaped"
	OutcomeCaptured Outcome = "captured"
)

// Event types emitted by the engine.
const (
	EventNarrative        = "narrative"
	EventWarning          = "warning"
	EventError            = "error"
	EventLevelUp          = "level_up"
	EventQuestProgress    = "quest_progress"
	EventQuestCompletable = "quest_completable"
	EventQuestTurnedIn    = "quest_turned_in"
	EventQuestAdded       = "quest_added"
	EventAchievement      = "achievement_unlocked"
	EventTitleChanged     = "title_changed"
	EventCombatStarted    = "combat_started"
	EventCombatEnded      = "combat_ended"
	EventPlayerDefeated   = "player_defeated"
	EventLoot             = "loot"
	EventCapture          = "capture"
	EventItemTaken        = "item_taken"
	EventItemDropped      = "item_dropped"
	EventRoomEntered      = "room_entered"
)

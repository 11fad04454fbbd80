// Package progression derives level-ups, quest objective progress,
// achievement unlocks, and title bonuses from game events. All functions
// are pure: they return new stats and quest slices plus the narrative
// events the change produced.
package progression

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/nathoo/wayfarer/engine/player"
	"github.com/nathoo/wayfarer/types"
)

var (
	ErrUnknownQuest   = errors.New("unknown quest")
	ErrNotCompletable = errors.New("quest is not ready to turn in")
	ErrTitleLocked    = errors.New("title not unlocked")
)

// Config holds the leveling curve.
type Config struct {
	LevelCap        int
	ExpGrowth       float64
	HPPerLevel      int
	MPPerLevel      int
	AttackPerLevel  int
	DefensePerLevel int
	SpeedPerLevel   int
	// LowHPFraction is the hp/maxHp ratio at or below which surviving a
	// fight counts for the low_hp_survival trigger.
	LowHPFraction float64
}

// DefaultConfig returns the stock leveling curve.
func DefaultConfig() Config {
	return Config{
		LevelCap:        99,
		ExpGrowth:       1.15,
		HPPerLevel:      10,
		MPPerLevel:      5,
		AttackPerLevel:  2,
		DefensePerLevel: 1,
		SpeedPerLevel:   1,
		LowHPFraction:   0.10,
	}
}

// Validate checks that the curve terminates and grows.
func (c Config) Validate() error {
	if c.LevelCap < 1 {
		return fmt.Errorf("level cap must be >= 1, got %d", c.LevelCap)
	}
	if c.ExpGrowth < 1 {
		return fmt.Errorf("exp growth must be >= 1, got %g", c.ExpGrowth)
	}
	if c.LowHPFraction < 0 || c.LowHPFraction >= 1 {
		return fmt.Errorf("low hp fraction must be in [0,1), got %g", c.LowHPFraction)
	}
	return nil
}

// ApplyExpGain adds exp and levels up as many times as it allows, emitting
// one level_up event per level. At the level cap exp is held at maxExp.
func ApplyExpGain(stats types.PlayerStats, amount int, cfg Config) (types.PlayerStats, []types.Event) {
	if amount <= 0 {
		return stats, nil
	}
	p := player.Clone(stats)
	if p.MaxExp <= 0 {
		p.MaxExp = 100
	}
	p.Exp += amount

	var events []types.Event
	for p.Exp >= p.MaxExp && p.Level < cfg.LevelCap {
		p.Exp -= p.MaxExp
		p.Level++
		p.MaxHP += cfg.HPPerLevel
		p.MaxMP += cfg.MPPerLevel
		p.Attack += cfg.AttackPerLevel
		p.Defense += cfg.DefensePerLevel
		p.Speed += cfg.SpeedPerLevel
		p.HP = p.MaxHP
		p.MP = p.MaxMP
		p.MaxExp = int(math.Round(float64(p.MaxExp) * cfg.ExpGrowth))
		events = append(events, types.Event{
			Type: types.EventLevelUp,
			Text: fmt.Sprintf("You reached level %d!", p.Level),
			Data: map[string]any{"level": p.Level},
		})
	}
	if p.Level >= cfg.LevelCap && p.Exp > p.MaxExp {
		p.Exp = p.MaxExp
	}
	return p, events
}

// Activity is something that happened which quest objectives may count.
type Activity struct {
	Kind       types.ObjectiveKind
	TemplateID string
	Name       string
	Quantity   int
}

func (a Activity) matches(target string) bool {
	if target == "" {
		return false
	}
	return strings.EqualFold(target, a.TemplateID) || (a.Name != "" && strings.EqualFold(target, a.Name))
}

// CloneQuests deep-copies a quest list.
func CloneQuests(quests []types.Quest) []types.Quest {
	if quests == nil {
		return nil
	}
	out := make([]types.Quest, len(quests))
	for i, q := range quests {
		q.Objectives = append([]types.Objective(nil), q.Objectives...)
		q.Reward.Items = append([]string(nil), q.Reward.Items...)
		out[i] = q
	}
	return out
}

// Complete reports whether every objective is satisfied.
func Complete(q types.Quest) bool {
	for _, o := range q.Objectives {
		if o.Current < o.Required {
			return false
		}
	}
	return true
}

// UpdateFromEvent advances every matching objective of every active quest.
// Counts are clamped at the requirement and never move once a quest has
// been turned in. A quest whose objectives are all met becomes completable.
func UpdateFromEvent(quests []types.Quest, a Activity) ([]types.Quest, []types.Event) {
	qty := a.Quantity
	if qty <= 0 {
		qty = 1
	}
	out := CloneQuests(quests)
	var events []types.Event
	for qi := range out {
		q := &out[qi]
		if q.Status != types.QuestActive {
			continue
		}
		changed := false
		for oi := range q.Objectives {
			o := &q.Objectives[oi]
			if o.Kind != a.Kind || o.Current >= o.Required || !a.matches(o.Target) {
				continue
			}
			o.Current += qty
			if o.Current > o.Required {
				o.Current = o.Required
			}
			changed = true
		}
		if !changed {
			continue
		}
		events = append(events, types.Event{
			Type: types.EventQuestProgress,
			Text: fmt.Sprintf("%s: %d/%d", q.Name, q.Progress(), q.Total()),
			Data: map[string]any{"quest": q.ID, "progress": q.Progress(), "total": q.Total()},
		})
		if Complete(*q) {
			q.Status = types.QuestCompletable
			events = append(events, types.Event{
				Type: types.EventQuestCompletable,
				Text: fmt.Sprintf("Quest ready to turn in: %s", q.Name),
				Data: map[string]any{"quest": q.ID},
			})
		}
	}
	return out, events
}

// AddQuest appends q unless a quest with the same ID is already tracked.
func AddQuest(quests []types.Quest, q types.Quest) ([]types.Quest, []types.Event, bool) {
	for _, existing := range quests {
		if existing.ID == q.ID {
			return quests, nil, false
		}
	}
	out := append(CloneQuests(quests), CloneQuests([]types.Quest{q})...)
	return out, []types.Event{{
		Type: types.EventQuestAdded,
		Text: fmt.Sprintf("New quest: %s", q.Name),
		Data: map[string]any{"quest": q.ID},
	}}, true
}

// ItemSource looks up item templates for quest rewards.
type ItemSource interface {
	Item(id string) (types.Item, bool)
}

// TurnIn hands in a completable quest, freezing its objectives and granting
// exp, gold, items, and a title. Unknown reward items are skipped.
func TurnIn(stats types.PlayerStats, quests []types.Quest, id string, items ItemSource, titles map[string]types.Title, cfg Config) (types.PlayerStats, []types.Quest, []types.Event, error) {
	idx := -1
	for i, q := range quests {
		if q.ID == id || strings.EqualFold(q.Name, id) {
			idx = i
			break
		}
	}
	if idx < 0 {
		return stats, quests, nil, fmt.Errorf("turn in %q: %w", id, ErrUnknownQuest)
	}
	if quests[idx].Status != types.QuestCompletable {
		return stats, quests, nil, fmt.Errorf("turn in %q: %w", id, ErrNotCompletable)
	}

	out := CloneQuests(quests)
	q := &out[idx]
	q.Status = types.QuestTurnedIn

	events := []types.Event{{
		Type: types.EventQuestTurnedIn,
		Text: fmt.Sprintf("Quest complete: %s", q.Name),
		Data: map[string]any{"quest": q.ID, "exp": q.Reward.Exp, "gold": q.Reward.Gold},
	}}

	p := player.Clone(stats)
	p.Gold += q.Reward.Gold
	for _, itemID := range q.Reward.Items {
		if it, ok := items.Item(itemID); ok {
			p = player.AddItem(p, it)
		}
	}
	if q.Reward.TitleID != "" {
		var ev []types.Event
		p, ev = unlockTitle(p, q.Reward.TitleID, titles, "")
		events = append(events, ev...)
	}
	p, lvl := ApplyExpGain(p, q.Reward.Exp, cfg)
	events = append(events, lvl...)
	return p, out, events, nil
}

// Facts are encounter outcomes that stats alone cannot reveal.
type Facts struct {
	// LowHPSurvival is set when the player just won a fight at low hp.
	LowHPSurvival bool
}

// SurvivedLowHP reports whether hp is above zero but at or below the
// configured fraction of maxHP.
func SurvivedLowHP(hp, maxHP int, cfg Config) bool {
	if hp <= 0 || maxHP <= 0 {
		return false
	}
	return float64(hp) <= float64(maxHP)*cfg.LowHPFraction
}

func threshold(a types.Achievement) int {
	if a.Threshold <= 0 {
		return 1
	}
	return a.Threshold
}

func qualifies(a types.Achievement, p types.PlayerStats, f Facts) bool {
	switch a.Trigger {
	case types.TriggerGoldAtLeast:
		return p.Gold >= threshold(a)
	case types.TriggerPetsAtLeast:
		return len(p.Pets) >= threshold(a)
	case types.TriggerFirstVictory:
		return p.Victories >= 1
	case types.TriggerLowHPSurvival:
		return f.LowHPSurvival
	case types.TriggerLevelAtLeast:
		return p.Level >= threshold(a)
	}
	return false
}

// EvaluateAchievements unlocks every locked achievement whose trigger now
// holds. Already-unlocked achievements are left alone, so calling it again
// with the same state changes nothing.
func EvaluateAchievements(stats types.PlayerStats, titles map[string]types.Title, facts Facts) (types.PlayerStats, []types.Event) {
	p := player.Clone(stats)
	var events []types.Event
	for i := range p.Achievements {
		a := &p.Achievements[i]
		if a.Unlocked || !qualifies(*a, p, facts) {
			continue
		}
		a.Unlocked = true
		text := fmt.Sprintf("Achievement unlocked: %s", a.Name)
		data := map[string]any{"achievement": a.ID}
		if a.RewardTitle != "" {
			var ev []types.Event
			p, ev = unlockTitle(p, a.RewardTitle, titles, a.Name)
			if len(ev) > 0 {
				text += fmt.Sprintf(" (title earned: %s)", titleName(a.RewardTitle, titles))
				data["title"] = a.RewardTitle
			}
		}
		events = append(events, types.Event{Type: types.EventAchievement, Text: text, Data: data})
	}
	return p, events
}

// unlockTitle adds a title to the unlocked set once. The event is only
// emitted when source is empty; achievements fold it into their own event.
func unlockTitle(p types.PlayerStats, id string, titles map[string]types.Title, source string) (types.PlayerStats, []types.Event) {
	for _, t := range p.UnlockedTitles {
		if t == id {
			return p, nil
		}
	}
	p = player.Clone(p)
	p.UnlockedTitles = append(p.UnlockedTitles, id)
	ev := types.Event{
		Type: types.EventTitleChanged,
		Text: fmt.Sprintf("Title earned: %s", titleName(id, titles)),
		Data: map[string]any{"title": id, "unlocked": true},
	}
	if source != "" {
		ev.Data["source"] = source
	}
	return p, []types.Event{ev}
}

func titleName(id string, titles map[string]types.Title) string {
	if t, ok := titles[id]; ok && t.Name != "" {
		return t.Name
	}
	return id
}

// EquipTitle swaps the active title. The previous title's bonus is removed
// before the new one is added, so equipping and then unequipping ("")
// restores every stat exactly.
func EquipTitle(stats types.PlayerStats, titles map[string]types.Title, id string) (types.PlayerStats, []types.Event, error) {
	if id != "" {
		unlocked := false
		for _, t := range stats.UnlockedTitles {
			if t == id {
				unlocked = true
				break
			}
		}
		if !unlocked {
			return stats, nil, fmt.Errorf("equip title %q: %w", id, ErrTitleLocked)
		}
		if _, ok := titles[id]; !ok {
			return stats, nil, fmt.Errorf("equip title %q: unknown title", id)
		}
	}
	if id == stats.ActiveTitle {
		return stats, nil, nil
	}

	p := player.Clone(stats)
	if old, ok := titles[p.ActiveTitle]; ok {
		p = player.ApplyBonus(p, old.Bonus, -1)
	}
	p.ActiveTitle = id
	text := "You set aside your title."
	if id != "" {
		p = player.ApplyBonus(p, titles[id].Bonus, 1)
		text = fmt.Sprintf("You are now known as %s.", titleName(id, titles))
	}
	return p, []types.Event{{
		Type: types.EventTitleChanged,
		Text: text,
		Data: map[string]any{"title": id},
	}}, nil
}
